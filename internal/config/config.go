package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverSQLite   = "sqlite"
)

type Config struct {
	// Application
	AppEnv   string `env:"APP_ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Claims
	ClaimsEnabled     bool   `env:"CLAIMS_ENABLED" envDefault:"true"`
	WildernessName    string `env:"WILDERNESS_NAME" envDefault:"Wilderness"`
	ClaimDefaultsFile string `env:"CLAIM_DEFAULTS_FILE"`
	StrictInvariants  bool   `env:"STRICT_INVARIANTS" envDefault:"false"`

	// Storage
	StorageDriver  string        `env:"STORAGE_DRIVER" envDefault:"postgres"`
	SQLitePath     string        `env:"SQLITE_PATH" envDefault:"chunkclaim.db"`
	GatewayTimeout time.Duration `env:"GATEWAY_TIMEOUT" envDefault:"2s"`

	// Database
	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER" envDefault:"chunkclaim"`
	DBPassword string `env:"DB_PASSWORD"`
	DBName     string `env:"DB_NAME" envDefault:"chunkclaim_db"`
	DBSSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`

	// Rate Limiting
	ClaimRateLimit  int           `env:"CLAIM_RATE_LIMIT" envDefault:"20"`
	ClaimRateWindow time.Duration `env:"CLAIM_RATE_WINDOW" envDefault:"1m"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.StorageDriver {
	case StorageDriverPostgres:
		if c.DBPassword == "" {
			return fmt.Errorf("DB_PASSWORD is required")
		}
	case StorageDriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required")
		}
	default:
		return fmt.Errorf("STORAGE_DRIVER must be %q or %q, got %q", StorageDriverPostgres, StorageDriverSQLite, c.StorageDriver)
	}
	if c.WildernessName == "" {
		return fmt.Errorf("WILDERNESS_NAME must not be empty")
	}
	if c.GatewayTimeout <= 0 {
		return fmt.Errorf("GATEWAY_TIMEOUT must be positive")
	}
	if c.ClaimRateLimit <= 0 {
		return fmt.Errorf("CLAIM_RATE_LIMIT must be positive")
	}
	if c.ClaimRateWindow <= 0 {
		return fmt.Errorf("CLAIM_RATE_WINDOW must be positive")
	}
	return nil
}

func (c *Config) ValidateProductionSecurity() error {
	if c.AppEnv != "production" {
		return nil
	}

	if c.StorageDriver == StorageDriverPostgres && c.DBSSLMode != "require" {
		return fmt.Errorf("DB_SSLMODE must be 'require' in production")
	}
	if c.StrictInvariants {
		return fmt.Errorf("STRICT_INVARIANTS must be disabled in production")
	}

	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}
