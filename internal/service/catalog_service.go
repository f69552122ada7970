package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"movie-discovery/internal/models"
	"movie-discovery/internal/repository"
)

const (
	movieListCacheTTL   = 5 * time.Minute
	movieDetailCacheTTL = 30 * time.Minute
	movieListCacheKey   = "movies:list"
)

// ErrMovieNotFound is returned when the requested movie is not in the catalog.
var ErrMovieNotFound = errors.New("movie not found")

// MovieStore reads movies from storage.
type MovieStore interface {
	ListMovies(ctx context.Context) ([]models.MovieSummary, error)
	GetMovie(ctx context.Context, id int) (*models.MovieDetail, error)
}

// CatalogService serves the movie list and movie details.
type CatalogService struct {
	repo  MovieStore
	cache cache
}

// NewCatalogService creates a new CatalogService. rdb may be nil.
func NewCatalogService(repo MovieStore, rdb *redis.Client) *CatalogService {
	return &CatalogService{repo: repo, cache: cache{redis: rdb}}
}

// ListMovies returns every movie id and title.
func (s *CatalogService) ListMovies(ctx context.Context) ([]models.MovieSummary, error) {
	var movies []models.MovieSummary
	if s.cache.get(ctx, movieListCacheKey, &movies) {
		return movies, nil
	}

	movies, err := s.repo.ListMovies(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list movies: %w", err)
	}

	s.cache.set(ctx, movieListCacheKey, movies, movieListCacheTTL)
	return movies, nil
}

// GetMovieDetail returns the detail view of one movie.
func (s *CatalogService) GetMovieDetail(ctx context.Context, id int) (*models.MovieDetail, error) {
	var detail models.MovieDetail
	if s.cache.get(ctx, movieKey(id), &detail) {
		return &detail, nil
	}

	found, err := s.repo.GetMovie(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrMovieNotFound
		}
		return nil, fmt.Errorf("failed to get movie: %w", err)
	}

	s.cache.set(ctx, movieKey(id), found, movieDetailCacheTTL)
	return found, nil
}
