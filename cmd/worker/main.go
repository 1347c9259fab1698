package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"switchboard.app/server/common/id"
	"switchboard.app/server/common/logger"
	"switchboard.app/server/common/otel"
	"switchboard.app/server/core/config"
	"switchboard.app/server/core/db"
	"switchboard.app/server/internal/events"
	"switchboard.app/server/internal/outbound"
	"switchboard.app/server/internal/platform"
	"switchboard.app/server/internal/store"
)

// The worker runs the outbound router on its own, for deployments that scale
// delivery separately from the API.
func main() {
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeWorker)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	fmt.Printf("%s\n", banner)

	telemetry, err := otel.Setup(ctx, cfg.OTel, cfg.Env)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}
	logger.Setup(cfg)

	slog.InfoContext(ctx, "switchboard worker starting",
		"env", cfg.Env,
		"event_bus", cfg.EventBus.Kind,
		"shards", cfg.Outbound.Shards)

	// Use a different node ID than the server
	if err := id.Init(2); err != nil {
		slog.ErrorContext(ctx, "failed to initialize id generator", "error", err)
		os.Exit(1)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	slog.InfoContext(ctx, "database connected")

	bus, err := events.Open(ctx, cfg.EventBus, true, slog.Default())
	if err != nil {
		slog.ErrorContext(ctx, "failed to open event bus", "error", err)
		os.Exit(1)
	}
	defer bus.Close()

	platforms := platform.NewRegistry(platform.Options{
		HTTPClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		ReplayWindow: cfg.Webhook.ReplayWindow,
	})

	stores := store.NewStores(database.Queries())
	router := outbound.New(bus.Consumer, stores.AppIntegrations(), platforms, outbound.Config{
		Shards:          cfg.Outbound.Shards,
		QueueSize:       cfg.Outbound.ShardQueueSize,
		ShutdownTimeout: cfg.Outbound.ShutdownTimeout,
		DispatchTimeout: cfg.Outbound.DispatchTimeout,
		RatePerSecond:   cfg.Outbound.RatePerSecond,
		RateBurst:       cfg.Outbound.RateBurst,
	}, slog.Default())

	errCh := make(chan error, 1)
	go func() {
		errCh <- router.Run(ctx)
	}()

	slog.InfoContext(ctx, "worker initialized and running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down worker...")

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Outbound.ShutdownTimeout+10*time.Second)
	defer cancel()

	stopped := make(chan struct{})
	go func() {
		router.Stop()
		close(stopped)
	}()

	select {
	case <-shutdownCtx.Done():
		slog.WarnContext(ctx, "shutdown timeout exceeded")
	case <-stopped:
		if err := <-errCh; err != nil {
			slog.ErrorContext(ctx, "router error during shutdown", "error", err)
		}
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(ctx, "worker shutdown complete")
}

const banner = `
 ___ __      __ ___  _____  ___  _  _    ___   ___   _   _  _____  ___  ___
/ __|\ \    / /|_ _||_   _|/ __|| || |  | _ \ / _ \ | | | ||_   _|| __|| _ \
\__ \ \ \/\/ /  | |   | | | (__ | __ |  |   /| (_) || |_| |  | |  | _| |   /
|___/  \_/\_/  |___|  |_|  \___||_||_|  |_|_\ \___/  \___/   |_|  |___||_|_\
`
