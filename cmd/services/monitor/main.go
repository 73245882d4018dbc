package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pulsewatch/pulsewatch/internal/monitoring/server"
	"github.com/pulsewatch/pulsewatch/internal/platform/config"
	"github.com/pulsewatch/pulsewatch/internal/platform/logger"
	"github.com/pulsewatch/pulsewatch/internal/platform/metrics"
)

func main() {
	cfg, err := config.Load("monitor")
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	log := logger.New(cfg.Logger)
	log.Info("Starting Monitoring Service", "version", cfg.Version, "port", cfg.HTTP.Port)

	telemetry := metrics.NewMetrics("pulsewatch")

	srv, err := server.New(
		server.WithConfig(cfg),
		server.WithLogger(log),
		server.WithTelemetry(telemetry),
	)
	if err != nil {
		log.Fatal("failed to create server", "error", err)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Error("server error", "error", err)
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown error", "error", err)
	}

	log.Info("Monitoring Service stopped gracefully")
}
