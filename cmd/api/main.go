package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/clinicware/booking-engine/cmd/mainconfig"
	"github.com/clinicware/booking-engine/internal/api/router"
	"github.com/clinicware/booking-engine/internal/catalog"
	appconfig "github.com/clinicware/booking-engine/internal/config"
	"github.com/clinicware/booking-engine/internal/http/handlers"
	"github.com/clinicware/booking-engine/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting booking-engine API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps, cleanup, err := mainconfig.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build dependencies", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	// The in-memory queue is process-local, so the API must consume it too.
	if cfg.UseMemoryQueue {
		logger.Info("starting in-process booking worker", "workers", cfg.WorkerCount)
		deps.Worker.Start(ctx)
	}

	routerCfg := &router.Config{
		Logger:            logger,
		WebhookHandler:    handlers.NewWebhookHandler(deps.Publisher, logger),
		CatalogHandler:    handlers.NewCatalogHandler(deps.Catalog, catalog.NewResolver(), logger),
		TranscriptHandler: handlers.NewTranscriptHandler(deps.Transcripts, logger),
		MetricsHandler:    promhttp.Handler(),
	}
	r := router.New(routerCfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	if cfg.UseMemoryQueue {
		deps.Worker.Wait()
	}

	logger.Info("server stopped")
}
