// Package client talks to the catalog API on behalf of a recommendation session.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"movie-discovery/internal/models"
)

// Client is the catalog and recommendation API client. It keeps no state
// between calls.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the API rooted at baseURL. A zero timeout
// leaves requests unbounded.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: timeout,
		},
	}
}

// ListMovies fetches every selectable movie.
func (c *Client) ListMovies(ctx context.Context) ([]models.MovieSummary, error) {
	var movies []models.MovieSummary
	if err := c.getJSON(ctx, "/movies", &movies); err != nil {
		return nil, err
	}
	if movies == nil {
		movies = []models.MovieSummary{}
	}
	return movies, nil
}

// GetMovie fetches the detail view of one movie.
func (c *Client) GetMovie(ctx context.Context, movieID int) (*models.MovieDetail, error) {
	var detail models.MovieDetail
	if err := c.getJSON(ctx, fmt.Sprintf("/movies/%d", movieID), &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// GetRecommendations requests the ranked recommendation buckets for a movie.
func (c *Client) GetRecommendations(ctx context.Context, movieID int) (*models.RecommendationResult, error) {
	var result models.RecommendationResult
	if err := c.getJSON(ctx, fmt.Sprintf("/recommendations/%d", movieID), &result); err != nil {
		return nil, err
	}
	if result.Dominant.Movies == nil {
		result.Dominant.Movies = []models.BucketMovie{}
	}
	if result.Other.Movies == nil {
		result.Other.Movies = []models.BucketMovie{}
	}
	return &result, nil
}

func (c *Client) getJSON(ctx context.Context, path string, dest any) error {
	url := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &NetworkError{Op: "GET " + path, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	slog.Debug("calling catalog API", "url", url)
	resp, err := c.http.Do(req)
	if err != nil {
		slog.Error("catalog request failed", "path", path, "error", err)
		return &NetworkError{Op: "GET " + path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		svcErr := newServiceError(resp.StatusCode, body)
		level := slog.LevelError
		if resp.StatusCode < http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		slog.Log(ctx, level, "catalog returned an error", "path", path, "status", resp.StatusCode, "error", svcErr.Message)
		return svcErr
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return &ServiceError{
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("failed to decode response from %s", path),
			Err:     err,
		}
	}
	return nil
}
