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

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"switchboard.app/server/common/id"
	"switchboard.app/server/common/logger"
	"switchboard.app/server/common/otel"
	"switchboard.app/server/core/config"
	"switchboard.app/server/core/db"
	"switchboard.app/server/internal/events"
	"switchboard.app/server/internal/http/handler"
	"switchboard.app/server/internal/http/middleware"
	httprouter "switchboard.app/server/internal/http/router"
	"switchboard.app/server/internal/outbound"
	"switchboard.app/server/internal/platform"
	"switchboard.app/server/internal/service"
	"switchboard.app/server/internal/store"
	"switchboard.app/server/internal/workflow"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeServer)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel, cfg.Env)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "switchboard starting", "env", cfg.Env, "service", cfg.OTel.ServiceName)
	if err := id.Init(1); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	slog.InfoContext(ctx, "database connected")

	bus, err := events.Open(ctx, cfg.EventBus, cfg.Outbound.Enabled, slog.Default())
	if err != nil {
		slog.ErrorContext(ctx, "failed to open event bus", "error", err, "kind", cfg.EventBus.Kind)
		os.Exit(1)
	}
	defer bus.Close()
	slog.InfoContext(ctx, "event bus connected", "kind", cfg.EventBus.Kind)

	signaler, err := workflow.Dial(cfg.Temporal)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to temporal", "error", err)
		os.Exit(1)
	}
	defer signaler.Close()
	slog.InfoContext(ctx, "temporal connected", "namespace", cfg.Temporal.Namespace)

	httpClient := &http.Client{
		Timeout:   30 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	platforms := platform.NewRegistry(platform.Options{
		HTTPClient:   httpClient,
		ReplayWindow: cfg.Webhook.ReplayWindow,
	})

	stores := store.NewStores(database.Queries())
	services := service.NewServices(
		stores,
		service.NewTxRunner(database),
		signaler,
		bus.Publisher,
		platforms,
		httpClient,
		cfg.Webhook,
		slog.Default(),
	)

	var router *outbound.Router
	routerErr := make(chan error, 1)
	if cfg.Outbound.Enabled {
		router = outbound.New(bus.Consumer, stores.AppIntegrations(), platforms, outboundConfig(cfg.Outbound), slog.Default())
		go func() {
			routerErr <- router.Run(ctx)
		}()
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           setupRouter(cfg, services, database.Ping),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second+cfg.Outbound.ShutdownTimeout)
	defer cancel()

	// Stop accepting webhooks first so no new messages enter the bus.
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	if router != nil {
		router.Stop()
		if err := <-routerErr; err != nil {
			slog.ErrorContext(shutdownCtx, "outbound router error", "error", err)
		}
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

func setupRouter(cfg config.Config, services *service.Services, ready handler.Pinger) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.TraceID(cfg.TraceHeaderName))

	httprouter.SetupRoutes(router, services, httprouter.RouterConfig{
		PublicURL:     cfg.PublicURL,
		JWTSigningKey: cfg.Auth.JWTSigningKey,
		JWTIssuer:     cfg.Auth.JWTIssuer,
		Ready:         ready,
	})

	return router
}

func outboundConfig(cfg config.OutboundConfig) outbound.Config {
	return outbound.Config{
		Shards:          cfg.Shards,
		QueueSize:       cfg.ShardQueueSize,
		ShutdownTimeout: cfg.ShutdownTimeout,
		DispatchTimeout: cfg.DispatchTimeout,
		RatePerSecond:   cfg.RatePerSecond,
		RateBurst:       cfg.RateBurst,
	}
}

const banner = `
 ___ __      __ ___  _____  ___  _  _  ___   ___    _    ___  ___
/ __|\ \    / /|_ _||_   _|/ __|| || || _ ) / _ \  /_\  | _ \|   \
\__ \ \ \/\/ /  | |   | | | (__ | __ || _ \| (_) |/ _ \ |   /| |) |
|___/  \_/\_/  |___|  |_|  \___||_||_||___/ \___//_/ \_\|_|_\|___/
`
