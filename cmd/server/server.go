package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"jan-server/services/helpdesk-api/internal/config"
	"jan-server/services/helpdesk-api/internal/infrastructure/crontab"
	"jan-server/services/helpdesk-api/internal/infrastructure/logger"
	"jan-server/services/helpdesk-api/internal/infrastructure/observability"
	"jan-server/services/helpdesk-api/internal/interfaces/httpserver"
	"jan-server/services/helpdesk-api/internal/worker"
)

type Application struct {
	httpServer *httpserver.HTTPServer
	crontab    *crontab.Crontab
	pool       *worker.Pool
	cfg        *config.Config
	log        zerolog.Logger
	cleanup    func()
}

// Start runs the HTTP server and the cron jobs until ctx is cancelled or one of them
// fails, then drains the worker pool.
func (a *Application) Start(ctx context.Context) error {
	a.pool.Start(ctx)
	defer func() {
		a.log.Info().Msg("stopping worker pool")
		a.pool.Stop(a.cfg.ShutdownTimeout)
		a.cleanup()
	}()

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return a.crontab.Run(egCtx)
	})
	eg.Go(func() error {
		return a.httpServer.Run(egCtx)
	})
	return eg.Wait()
}

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat, cfg.ServiceName, cfg.Environment)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize observability")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown telemetry")
		}
	}()

	app, err := CreateApplication(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("create application")
	}

	if err := app.Start(ctx); err != nil {
		log.Error().Err(err).Msg("application stopped with error")
		return
	}
	log.Info().Msg("application exited cleanly")
}

func loadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
