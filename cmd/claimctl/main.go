package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mroshb/chunkclaim/internal/config"
	"github.com/mroshb/chunkclaim/pkg/logger"
)

const usage = `usage: claimctl <command> [flags]

commands:
  check        check a player permission in a chunk
  setting      show a setting in a chunk
  owner        show the owner name of a chunk
  claim        claim a chunk for a player
  unclaim      release a chunk
  near         list claims around a block position
  town-create  found a town
  town-add     add a member to a town
  town-leave   leave the current town
  import       import claims from an xlsx workbook
  export       export claims to an xlsx workbook
`

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.LogLevel, cfg.IsDevelopment())
	defer logger.Sync()

	// Validate production security settings
	if cfg.AppEnv == "production" {
		if err := cfg.ValidateProductionSecurity(); err != nil {
			logger.Fatal("Production security validation failed", err)
		}
	}

	cmd, ok := commands[os.Args[1]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize", err)
	}
	defer a.Close()

	if err := cmd(ctx, a, os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		a.Close()
		logger.Sync()
		os.Exit(1)
	}
}
