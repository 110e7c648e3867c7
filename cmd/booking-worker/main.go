package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/clinicware/booking-engine/cmd/mainconfig"
	appconfig "github.com/clinicware/booking-engine/internal/config"
	"github.com/clinicware/booking-engine/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	if cfg.UseMemoryQueue {
		logger.Warn("USE_MEMORY_QUEUE=true: the in-memory queue is process-local, this worker will see no API traffic")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps, cleanup, err := mainconfig.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build dependencies", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	logger.Info("starting booking worker", "workers", cfg.WorkerCount)
	deps.Worker.Start(ctx)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down booking worker...")
	cancel()

	doneCtx, doneCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer doneCancel()

	waitCh := make(chan struct{})
	go func() {
		deps.Worker.Wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
		logger.Info("booking worker stopped")
	case <-doneCtx.Done():
		logger.Error("booking worker shutdown timed out", "error", doneCtx.Err())
	}
}
