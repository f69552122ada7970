package handler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"movie-discovery/internal/models"
	"movie-discovery/internal/service"
)

const (
	defaultSyncPages = 5
	maxSyncPages     = 50
)

// MovieCatalog reads the movie catalog.
type MovieCatalog interface {
	ListMovies(ctx context.Context) ([]models.MovieSummary, error)
	GetMovieDetail(ctx context.Context, id int) (*models.MovieDetail, error)
}

// Recommender produces platform-grouped recommendations.
type Recommender interface {
	GetRecommendations(ctx context.Context, movieID int) (*models.RecommendationResult, error)
}

// Syncer imports movies from TMDB.
type Syncer interface {
	SyncMovies(ctx context.Context, pages int) (int, error)
}

// CatalogHandler handles HTTP requests for the movie catalog.
type CatalogHandler struct {
	catalog MovieCatalog
	recs    Recommender
	syncer  Syncer
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(catalog MovieCatalog, recs Recommender, syncer Syncer) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, recs: recs, syncer: syncer}
}

// Health returns service health status.
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *CatalogHandler) Health(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"service": "catalog-service",
	})
}

// ListMovies returns every movie id and title.
// @Summary List movies
// @Tags movies
// @Produce json
// @Success 200 {array} models.MovieSummary
// @Failure 500 {object} ErrorResponse
// @Router /movies [get]
func (h *CatalogHandler) ListMovies(c fiber.Ctx) error {
	movies, err := h.catalog.ListMovies(c.Context())
	if err != nil {
		slog.Error("failed to list movies", "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, "failed to retrieve movies")
	}
	return c.JSON(movies)
}

// GetMovieDetail returns detailed info for a single movie.
// @Summary Get movie detail
// @Tags movies
// @Produce json
// @Param id path int true "Movie ID"
// @Success 200 {object} models.MovieDetail
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /movies/{id} [get]
func (h *CatalogHandler) GetMovieDetail(c fiber.Ctx) error {
	id, ok := movieIDParam(c)
	if !ok {
		return errorJSON(c, fiber.StatusBadRequest, "invalid movie ID")
	}

	detail, err := h.catalog.GetMovieDetail(c.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrMovieNotFound) {
			return errorJSON(c, fiber.StatusNotFound, "movie not found")
		}
		slog.Error("failed to get movie detail", "id", id, "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, "failed to retrieve movie details")
	}
	return c.JSON(detail)
}

// GetRecommendations returns the movies most similar to one movie, grouped by platform.
// @Summary Get recommendations
// @Tags recommendations
// @Produce json
// @Param id path int true "Movie ID"
// @Success 200 {object} models.RecommendationResult
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /recommendations/{id} [get]
func (h *CatalogHandler) GetRecommendations(c fiber.Ctx) error {
	id, ok := movieIDParam(c)
	if !ok {
		return errorJSON(c, fiber.StatusBadRequest, "invalid movie ID")
	}

	result, err := h.recs.GetRecommendations(c.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMovieNotFound):
			return errorJSON(c, fiber.StatusNotFound, "movie not found")
		case errors.Is(err, service.ErrNoRecommendations):
			return errorJSON(c, fiber.StatusNotFound, service.ErrNoRecommendations.Error())
		}
		slog.Error("failed to build recommendations", "id", id, "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, "failed to build recommendations")
	}
	return c.JSON(result)
}

// SyncMovies triggers a sync of movies from TMDB.
// @Summary Sync movies from TMDB
// @Tags admin
// @Produce json
// @Param pages query int false "Number of pages to sync" default(5)
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} ErrorResponse
// @Router /admin/sync [post]
func (h *CatalogHandler) SyncMovies(c fiber.Ctx) error {
	pages := fiber.Query(c, "pages", defaultSyncPages)
	if pages < 1 {
		pages = 1
	}
	if pages > maxSyncPages {
		pages = maxSyncPages
	}

	count, err := h.syncer.SyncMovies(c.Context(), pages)
	if err != nil {
		slog.Error("sync failed", "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, "sync failed: "+err.Error())
	}

	return c.JSON(fiber.Map{
		"message":       "sync completed",
		"movies_synced": count,
		"pages":         pages,
	})
}
