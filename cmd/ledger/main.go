package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"ledger/internal/amqp"
	"ledger/internal/cli"
	"ledger/internal/config"
	apphttp "ledger/internal/http"
	"ledger/internal/log"
	"ledger/internal/services"
	"ledger/internal/storage"
)

func main() {
	cli.LoadEnvFile()

	cfg := config.Load()
	logger := cli.SetupLogger(cfg.LogLevel)
	cfg = cli.LoadAndValidateConfig(logger)

	logger.Info("Starting ledger server", "engine", cfg.Engine(), "addr", cfg.Addr())

	ctx, stop := cli.ShutdownContext(logger)
	defer stop()

	provider, startup := cli.InitStorage(ctx, logger, cfg)
	defer func() {
		if err := provider.Close(); err != nil {
			logger.Error("Failed to close database provider", "error", err)
		}
	}()

	publisher := initPublisher(ctx, logger, cfg)

	svc := services.NewMovementService(storage.NewMovementRepository(provider), publisher, logger)
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Error("Failed to close movement service", "error", err)
		}
	}()

	srv := apphttp.NewServer(apphttp.Config{
		Addr:               cfg.Addr(),
		ShowDebugErrors:    cfg.ShowDebugErrors,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Engine:             provider.Engine(),
		DatabaseURL:        cfg.DatabaseURL,
		Startup:            startup,
	}, svc, logger)
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		return
	}
	logger.Info("Server stopped gracefully")
}

// initPublisher connects to the event broker when one is configured. Events
// are optional: a broker that cannot be reached only disables them.
func initPublisher(ctx context.Context, logger *log.Logger, cfg *config.Config) services.EventPublisher {
	if cfg.AMQPURL == "" {
		logger.Info("Movement events disabled - no AMQP_URL provided")
		return nil
	}

	client, err := amqp.NewClient(ctx, cfg.AMQPURL, cfg.AMQPExchange, logger)
	if err != nil {
		logger.Warn("Failed to connect to AMQP broker; continuing without movement events", "error", err)
		return nil
	}
	logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange)
	return client
}
