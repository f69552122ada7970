package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"movie-discovery/internal/models"
)

const (
	// RecommendationLimit is how many similar movies a recommendation carries.
	RecommendationLimit     = 15
	recommendationsCacheTTL = 10 * time.Minute
)

// ErrNoRecommendations is returned when a movie has no similar movies stored.
var ErrNoRecommendations = errors.New("no recommendations available")

// SimilarityStore reads precomputed similarities.
type SimilarityStore interface {
	Exists(ctx context.Context, id int) (bool, error)
	GetSimilar(ctx context.Context, id, limit int) ([]models.Candidate, error)
}

// RecommendationService groups similar movies by streaming platform.
type RecommendationService struct {
	repo  SimilarityStore
	cache cache
}

// NewRecommendationService creates a new RecommendationService. rdb may be nil.
func NewRecommendationService(repo SimilarityStore, rdb *redis.Client) *RecommendationService {
	return &RecommendationService{repo: repo, cache: cache{redis: rdb}}
}

// GetRecommendations returns the movies most similar to movieID split into
// the dominant platform bucket and everything else.
func (s *RecommendationService) GetRecommendations(ctx context.Context, movieID int) (*models.RecommendationResult, error) {
	var cached models.RecommendationResult
	if s.cache.get(ctx, recommendationKey(movieID), &cached) {
		return &cached, nil
	}

	exists, err := s.repo.Exists(ctx, movieID)
	if err != nil {
		return nil, fmt.Errorf("check movie: %w", err)
	}
	if !exists {
		return nil, ErrMovieNotFound
	}

	candidates, err := s.repo.GetSimilar(ctx, movieID, RecommendationLimit)
	if err != nil {
		return nil, fmt.Errorf("get similar movies: %w", err)
	}
	if len(candidates) == 0 {
		return nil, ErrNoRecommendations
	}

	result := splitByPlatform(candidates)
	slog.Debug("recommendations computed",
		"movie_id", movieID,
		"dominant", result.Dominant.PlatformName,
		"dominant_count", len(result.Dominant.Movies),
		"other_count", len(result.Other.Movies),
	)

	s.cache.set(ctx, recommendationKey(movieID), result, recommendationsCacheTTL)
	return &result, nil
}

// splitByPlatform picks the provider name that occurs on the most candidates
// and moves every candidate carrying it into the dominant bucket. Ties go to
// the name seen first. Candidate order is preserved within each bucket.
func splitByPlatform(candidates []models.Candidate) models.RecommendationResult {
	dominant := dominantPlatform(candidates)

	result := models.RecommendationResult{
		Dominant: models.Bucket{PlatformName: dominant, Movies: []models.BucketMovie{}},
		Other:    models.Bucket{PlatformName: models.OtherPlatformsName, Movies: []models.BucketMovie{}},
	}
	if dominant == "" {
		result.Dominant.PlatformName = models.NoDominantPlatform
	}

	for _, c := range candidates {
		if dominant != "" && models.HasProvider(c.Providers, dominant) {
			result.Dominant.Movies = append(result.Dominant.Movies, c.BucketMovie)
		} else {
			result.Other.Movies = append(result.Other.Movies, c.BucketMovie)
		}
	}
	return result
}

func dominantPlatform(candidates []models.Candidate) string {
	counts := make(map[string]int)
	var order []string
	for _, c := range candidates {
		for _, p := range c.Providers {
			if p.Name == "" {
				continue
			}
			if _, seen := counts[p.Name]; !seen {
				order = append(order, p.Name)
			}
			counts[p.Name]++
		}
	}

	best, bestCount := "", 0
	for _, name := range order {
		if counts[name] > bestCount {
			best, bestCount = name, counts[name]
		}
	}
	return best
}
