package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
)

const maxAttempts = 3

// Client is the TMDB API client.
type Client struct {
	apiKey     string
	baseURL    string
	region     string
	http       *http.Client
	retryDelay time.Duration
}

// NewClient creates a new TMDB API client.
func NewClient(apiKey, baseURL, region string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		region:  region,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
		retryDelay: 500 * time.Millisecond,
	}
}

// StatusError is a non-200 answer from TMDB.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("TMDB API returned status %d: %s", e.Code, e.Body)
}

// retryable reports whether a failed call may succeed when repeated:
// transport failures, throttling and server errors.
func retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= http.StatusInternalServerError
	}
	return true
}

// ---- TMDB Response Types ----

// DiscoverResponse is the TMDB discover/movie response.
type DiscoverResponse struct {
	Page         int         `json:"page"`
	Results      []TMDBMovie `json:"results"`
	TotalPages   int         `json:"total_pages"`
	TotalResults int         `json:"total_results"`
}

// TMDBMovie is a movie from TMDB discover results.
type TMDBMovie struct {
	ID    int    `json:"id"`
	Title string `json:"original_title"`
}

// TMDBMovieDetail is the movie detail with credits, providers and keywords appended.
type TMDBMovieDetail struct {
	ID               int         `json:"id"`
	Title            string      `json:"original_title"`
	Overview         string      `json:"overview"`
	ReleaseDate      string      `json:"release_date"`
	VoteAverage      float64     `json:"vote_average"`
	PosterPath       string      `json:"poster_path"`
	OriginalLanguage string      `json:"original_language"`
	Genres           []TMDBGenre `json:"genres"`
	Credits          Credits     `json:"credits"`
	Keywords         struct {
		Keywords []TMDBKeyword `json:"keywords"`
	} `json:"keywords"`
	WatchProviders struct {
		Results map[string]RegionProviders `json:"results"`
	} `json:"watch/providers"`
}

// TMDBGenre is a genre from TMDB.
type TMDBGenre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// TMDBKeyword is a keyword tag from TMDB.
type TMDBKeyword struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Credits holds the cast and crew of a movie.
type Credits struct {
	Cast []CastMember `json:"cast"`
	Crew []CrewMember `json:"crew"`
}

// CastMember is one billed actor.
type CastMember struct {
	Name  string `json:"name"`
	Order int    `json:"order"`
}

// CrewMember is one crew credit.
type CrewMember struct {
	Name string `json:"name"`
	Job  string `json:"job"`
}

// RegionProviders lists where a movie can be watched in one region.
type RegionProviders struct {
	Link     string            `json:"link"`
	Flatrate []ProviderListing `json:"flatrate"`
	Rent     []ProviderListing `json:"rent"`
	Buy      []ProviderListing `json:"buy"`
}

// ProviderListing is a single provider offer.
type ProviderListing struct {
	ProviderID   int    `json:"provider_id"`
	ProviderName string `json:"provider_name"`
	LogoPath     string `json:"logo_path"`
}

// ---- Client Methods ----

// Region returns the watch region the client filters on.
func (c *Client) Region() string {
	return c.region
}

// DiscoverMovies fetches one page of movies streaming on any of the given providers.
func (c *Client) DiscoverMovies(ctx context.Context, page int, providerIDs []int) (*DiscoverResponse, error) {
	ids := make([]string, 0, len(providerIDs))
	for _, id := range providerIDs {
		ids = append(ids, strconv.Itoa(id))
	}

	q := url.Values{}
	q.Set("api_key", c.apiKey)
	q.Set("sort_by", "popularity.desc")
	q.Set("page", strconv.Itoa(page))
	q.Set("watch_region", c.region)
	q.Set("with_watch_providers", strings.Join(ids, "|"))

	slog.Debug("fetching TMDB discover", "page", page)
	var result DiscoverResponse
	if err := c.getJSON(ctx, "/discover/movie", q, &result); err != nil {
		return nil, fmt.Errorf("failed to fetch discover page %d: %w", page, err)
	}
	return &result, nil
}

// GetMovieDetail fetches a movie with its credits, watch providers and keywords.
func (c *Client) GetMovieDetail(ctx context.Context, tmdbID int) (*TMDBMovieDetail, error) {
	q := url.Values{}
	q.Set("api_key", c.apiKey)
	q.Set("append_to_response", "credits,watch/providers,keywords")

	slog.Debug("fetching TMDB movie detail", "tmdb_id", tmdbID)
	var result TMDBMovieDetail
	if err := c.getJSON(ctx, fmt.Sprintf("/movie/%d", tmdbID), q, &result); err != nil {
		return nil, fmt.Errorf("failed to fetch movie %d: %w", tmdbID, err)
	}
	return &result, nil
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, out interface{}) error {
	return retry.Do(
		func() error { return c.doGet(ctx, path, q, out) },
		retry.Context(ctx),
		retry.Attempts(maxAttempts),
		retry.Delay(c.retryDelay),
		retry.RetryIf(retryable),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			slog.Warn("retrying TMDB request", "path", path, "attempt", n+1, "error", err)
		}),
	)
}

func (c *Client) doGet(ctx context.Context, path string, q url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return retry.Unrecoverable(fmt.Errorf("build request: %w", err))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &StatusError{Code: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return retry.Unrecoverable(fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}
