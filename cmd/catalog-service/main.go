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

	"movie-discovery/internal/config"
	"movie-discovery/internal/database"
	"movie-discovery/internal/handler"
	"movie-discovery/internal/metrics"
	"movie-discovery/internal/middleware"
	"movie-discovery/internal/repository"
	"movie-discovery/internal/service"
	"movie-discovery/internal/tmdb"
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

	// Connect to PostgreSQL
	db, err := database.NewPostgres(cfg.DB)
	if err != nil {
		slog.Error("failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Connect to Redis (non-fatal if unavailable)
	rdb, err := database.NewRedis(cfg.Redis)
	if err != nil {
		slog.Warn("Redis unavailable, running without cache and rate limit", "error", err)
		rdb = nil
	} else {
		defer rdb.Close()
	}

	if cfg.TMDB.APIKey == "" {
		slog.Warn("TMDB_API_KEY not set, sync will fail")
	}
	tmdbClient := tmdb.NewClient(cfg.TMDB.APIKey, cfg.TMDB.BaseURL, cfg.TMDB.WatchRegion)

	// Initialize layers
	repo := repository.NewMovieRepository(db)
	catalog := service.NewCatalogService(repo, rdb)
	recs := service.NewRecommendationService(repo, rdb)
	importer := service.NewImportService(tmdbClient, repo, rdb)
	h := handler.NewCatalogHandler(catalog, recs, importer)
	limiter := middleware.NewRateLimiter(rdb, "recommendations", cfg.RateLimit.Max, cfg.RateLimit.WindowSeconds)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Catalog Service",
		ServerHeader: "Catalog-Service",
		ErrorHandler: handler.ErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New())
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Swagger docs
	swaggerYAML, err := os.ReadFile("docs/catalog-service.yaml")
	if err != nil {
		slog.Warn("catalog-service.yaml not found, swagger UI will be unavailable", "error", err)
	} else {
		handler.RegisterSwagger(app, "Catalog Service", swaggerYAML)
	}

	// API routes
	api := app.Group("/api")
	api.Get("/health", h.Health)
	api.Get("/movies", h.ListMovies)
	api.Get("/movies/:id", h.GetMovieDetail)
	api.Get("/recommendations/:id", limiter.Handler(), h.GetRecommendations)
	api.Post("/admin/sync", h.SyncMovies)

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutting down catalog service...")
		_ = app.Shutdown()
	}()

	// Start server
	addr := ":" + cfg.CatalogPort
	slog.Info("starting catalog service", "addr", addr)
	if err := app.Listen(addr); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
