package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"mentraflow-backend/infrastructure/config"
	"mentraflow-backend/infrastructure/di"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	container, cleanup, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	defer cleanup()
	logger := container.Logger

	shutdownTracing, err := di.InitTracingFor(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize tracing", zap.Error(err))
	}

	if cfg.QueueBackend == config.QueueWorkerPool {
		container.Pool.Start(ctx)
	}

	var watcher *config.Watcher
	if cfg.ConfigFile != "" {
		watcher, err = config.NewWatcher(cfg, container.Logging.Level, logger)
		if err != nil {
			logger.Warn("Config hot reload disabled", zap.Error(err))
		} else {
			watcher.Start()
		}
	}

	srv := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      container.Handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Starting server",
			zap.String("address", cfg.ServerAddress),
			zap.String("environment", cfg.Environment),
			zap.String("store", cfg.StoreBackend),
			zap.String("queue", cfg.QueueBackend),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}
	// Queued jobs drain before the store is closed by cleanup.
	if err := container.Pool.Shutdown(shutdownCtx); err != nil {
		logger.Error("Worker pool shutdown error", zap.Error(err))
	}
	if watcher != nil {
		watcher.Stop()
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("Tracing shutdown error", zap.Error(err))
	}

	logger.Info("Server stopped")
}
