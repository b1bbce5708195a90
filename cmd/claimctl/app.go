package main

import (
	"github.com/mroshb/chunkclaim/internal/claims"
	"github.com/mroshb/chunkclaim/internal/config"
	"github.com/mroshb/chunkclaim/internal/database"
	"github.com/mroshb/chunkclaim/internal/middleware"
	"github.com/mroshb/chunkclaim/internal/repositories"
	"github.com/mroshb/chunkclaim/internal/services"
	"github.com/mroshb/chunkclaim/pkg/logger"
)

type app struct {
	cfg     *config.Config
	gateway claims.Gateway
	session *claims.Session
	claims  *services.ClaimService
	towns   *services.TownService

	closers []func()
}

func newApp(cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	defaults, err := loadDefaults(cfg.ClaimDefaultsFile)
	if err != nil {
		return nil, err
	}

	if err := a.openStorage(); err != nil {
		a.Close()
		return nil, err
	}

	limiter := middleware.NewRateLimiter(cfg.ClaimRateLimit, cfg.ClaimRateWindow)
	a.closers = append(a.closers, limiter.Stop)

	a.session = claims.NewSession(a.gateway, claims.Options{
		Enabled:        cfg.ClaimsEnabled,
		WildernessName: cfg.WildernessName,
		Defaults:       defaults,
		Strict:         cfg.StrictInvariants,
	})
	a.claims = services.NewClaimService(a.session, limiter)
	a.towns = services.NewTownService(a.session)

	logger.Info("Claim session ready", "env", cfg.AppEnv, "storage", cfg.StorageDriver, "claims_enabled", cfg.ClaimsEnabled)
	return a, nil
}

func (a *app) openStorage() error {
	switch a.cfg.StorageDriver {
	case config.StorageDriverSQLite:
		db, err := database.OpenSQLite(a.cfg.SQLitePath)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func() { _ = db.Close() })
		a.gateway = repositories.NewSQLiteClaimRepository(db, a.cfg.GatewayTimeout)

	default:
		db, err := database.Connect(a.cfg)
		if err != nil {
			return err
		}
		if sqlDB, err := db.DB(); err == nil {
			a.closers = append(a.closers, func() { _ = sqlDB.Close() })
		}
		if err := database.AutoMigrate(db); err != nil {
			return err
		}
		a.gateway = repositories.NewClaimRepository(db, a.cfg.GatewayTimeout)
	}
	return nil
}

// loadDefaults applies the optional YAML overrides to the built-in defaults.
func loadDefaults(path string) (claims.Defaults, error) {
	base := claims.BuiltinDefaults()
	overrides, err := config.LoadClaimDefaults(path)
	if err != nil {
		return base, err
	}
	wilderness, claim := overrides.SettingOverrides()
	return base.WithOverrides(overrides.Ranks, wilderness, claim)
}

// Close releases storage and background workers. Safe to call twice.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
