package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"

	"movie-discovery/internal/client"
	"movie-discovery/internal/config"
	"movie-discovery/internal/handler"
	"movie-discovery/internal/metrics"
	"movie-discovery/internal/session"
)

func main() {
	// Structured logging
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Catalog API client and session registry
	catalog := client.NewClient(cfg.Client.CatalogAPIURL, cfg.Client.Timeout)
	sessions := session.NewManager(catalog, catalog, cfg.Session.CooldownSeconds, cfg.Session.IdleTTL)
	go sessions.Run(ctx, cfg.Session.SweepInterval)

	h := handler.NewSessionHandler(sessions, catalog)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Session Service",
		ServerHeader: "Session-Service",
		ErrorHandler: handler.ErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New())
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Swagger docs
	swaggerYAML, err := os.ReadFile("docs/session-service.yaml")
	if err != nil {
		slog.Warn("session-service.yaml not found, swagger UI will be unavailable", "error", err)
	} else {
		handler.RegisterSwagger(app, "Session Service", swaggerYAML)
	}

	// API routes
	h.Register(app.Group("/api/v1"))

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		slog.Info("shutting down session service...")
		_ = app.Shutdown()
	}()

	// Start server
	addr := ":" + cfg.Port
	slog.Info("starting session service",
		"addr", addr,
		"catalog_api", cfg.Client.CatalogAPIURL,
		"cooldown_seconds", cfg.Session.CooldownSeconds,
	)
	if err := app.Listen(addr); err != nil {
		slog.Error("server error", "error", err)
		sessions.Close()
		os.Exit(1)
	}

	sessions.Close()
	slog.Info("session service stopped")
}
