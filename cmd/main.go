package main

import (
	"context"
	"errors"
	"os"

	"github.com/desertthunder/botanica/internal/repositories"
	"github.com/desertthunder/botanica/internal/services"
	"github.com/desertthunder/botanica/internal/shared"
)

// EnvConfigPath overrides the config file location.
const EnvConfigPath = "BOTANICA_CONFIG"

func main() {
	logger := shared.NewLogger(nil)

	configPath := "config.toml"
	if v := os.Getenv(EnvConfigPath); v != "" {
		configPath = v
	}

	config, err := shared.ResolveConfig(configPath)
	if err != nil {
		logger.Warn("failed to load config, using defaults", "path", configPath, "error", err)
		config = shared.DefaultConfig()
		config.ApplyEnv()
	}
	logger.SetLevel(shared.ParseLogLevel(config.Logging.Level))

	if err := config.Validate(); err != nil {
		logger.Fatalf("invalid configuration: %v", err)
	}

	opts := RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		Logger:     logger,
	}

	if db, err := shared.OpenDatabase(config.Database); err != nil {
		logger.Warn("local store unavailable, the session will not be remembered", "path", config.Database.Path, "error", err)
	} else {
		defer db.Close()
		opts.Sessions = repositories.NewSessionRepository(db)
		opts.Cache = repositories.NewSubcategoryCacheRepository(db)
	}

	if config.Identity.ClientID != "" {
		if svc, err := services.NewIdentityService(config.Identity.Map()); err == nil {
			opts.Identity = svc
		} else {
			logger.Warn("identity provider not configured", "error", err)
		}
	}

	runner := NewRunner(opts)

	if err := runner.app().Run(context.Background(), os.Args); err != nil {
		switch {
		case errors.Is(err, shared.ErrNotImplemented):
			logger.Warn("not implemented")
			os.Exit(0)
		case errors.Is(err, shared.ErrCancelled):
			logger.Info("cancelled")
			os.Exit(0)
		case errors.Is(err, shared.ErrSessionExpired):
			logger.Fatalf("session expired, run 'botanica auth login' again: %v", err)
		default:
			logger.Fatalf("application error: %v", err)
		}
	}
}
