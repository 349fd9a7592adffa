// Package cli provides common CLI initialization utilities shared by
// cmd/ledger and cmd/ledger-migrate.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"ledger/internal/config"
	"ledger/internal/log"
	"ledger/internal/metrics"
	"ledger/internal/storage"
)

// SetupLogger initializes structured logging at the given level.
// Returns the configured logger and sets it as the default logger.
// Unknown levels fall back to info.
func SetupLogger(level string) *log.Logger {
	cfg := log.DefaultConfig()
	if lvl, err := log.ParseLevel(level); err == nil {
		cfg.Level = lvl
	}
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// InitStorage builds the connection provider and runs the startup bootstrap.
// A malformed descriptor exits the process; an unreachable engine or a failed
// schema step only degrades the returned status.
func InitStorage(ctx context.Context, logger *log.Logger, cfg *config.Config) (*storage.Provider, storage.StartupStatus) {
	storageLogger := logger.WithComponent(log.ComponentStorage)

	provider, err := storage.NewProvider(cfg.ProviderConfig())
	if err != nil {
		storageLogger.Error("Failed to initialize database provider",
			"engine", cfg.Engine(),
			"error", err)
		os.Exit(1)
	}

	info := storage.DescribeDSN(cfg.DatabaseURL)
	storageLogger.Info("Database engine selected",
		"engine", provider.Engine(),
		"db_host", info.Host,
		"db_name", info.Database,
		"sqlite_path", sqlitePath(provider.Engine(), cfg.SQLiteDBPath))

	status := storage.Bootstrap(ctx, provider, cfg.RetryPolicy(), storageLogger.Logger)
	metrics.RecordStartup(status.Ready(), status.Attempts)
	if !status.Ready() {
		storageLogger.Warn("Starting in degraded mode", "reason", status.Reason)
	}
	return provider, status
}

func sqlitePath(engine storage.Engine, path string) string {
	if engine == storage.SQLite {
		return path
	}
	return ""
}

// ShutdownContext returns a context cancelled on SIGINT or SIGTERM.
// The stop function releases the signal handler.
func ShutdownContext(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}
