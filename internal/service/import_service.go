package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"movie-discovery/internal/metrics"
	"movie-discovery/internal/models"
	"movie-discovery/internal/tmdb"
)

const (
	maxDirectors = 2
	maxActors    = 3
)

type providerInfo struct {
	Name         string
	SubscribeURL string
}

// TargetProviders are the streaming platforms the catalog tracks, keyed by TMDB provider id.
var TargetProviders = map[int]providerInfo{
	8:    {Name: "Netflix", SubscribeURL: "https://www.netflix.com/id/"},
	9:    {Name: "Amazon Prime Video", SubscribeURL: "https://www.primevideo.com/"},
	10:   {Name: "Amazon Video", SubscribeURL: "https://www.amazon.com/video/"},
	337:  {Name: "Disney Plus", SubscribeURL: "https://www.hotstar.com/id"},
	384:  {Name: "HBO Max", SubscribeURL: "https://www.max.com/us/"},
	1899: {Name: "Max", SubscribeURL: "https://www.max.com/us/"},
	350:  {Name: "Apple TV+", SubscribeURL: "https://tv.apple.com/id"},
	2:    {Name: "Apple TV", SubscribeURL: "https://tv.apple.com/us/"},
}

// MovieSource fetches movies from TMDB.
type MovieSource interface {
	Region() string
	DiscoverMovies(ctx context.Context, page int, providerIDs []int) (*tmdb.DiscoverResponse, error)
	GetMovieDetail(ctx context.Context, tmdbID int) (*tmdb.TMDBMovieDetail, error)
}

// MovieWriter persists imported movies and their similarities.
type MovieWriter interface {
	UpsertMovie(ctx context.Context, m *models.Movie) error
	ListFeatures(ctx context.Context) ([]models.Movie, error)
	ReplaceSimilarities(ctx context.Context, movieID int, neighbors []models.Neighbor) error
}

// ImportService pulls movies from TMDB and rebuilds the similarity table.
type ImportService struct {
	source MovieSource
	repo   MovieWriter
	cache  cache
	// delay between detail requests to stay under the TMDB rate limit
	delay time.Duration
}

// NewImportService creates a new ImportService. rdb may be nil.
func NewImportService(source MovieSource, repo MovieWriter, rdb *redis.Client) *ImportService {
	return &ImportService{
		source: source,
		repo:   repo,
		cache:  cache{redis: rdb},
		delay:  100 * time.Millisecond,
	}
}

// SyncMovies imports up to pages discover pages and recomputes similarities.
// It returns the number of movies stored.
func (s *ImportService) SyncMovies(ctx context.Context, pages int) (int, error) {
	start := time.Now()
	n, err := s.syncMovies(ctx, pages)
	metrics.RecordSync(time.Since(start), n, err)
	return n, err
}

func (s *ImportService) syncMovies(ctx context.Context, pages int) (int, error) {
	slog.Info("starting TMDB sync", "pages", pages)

	providerIDs := targetProviderIDs()
	totalSynced := 0
	for page := 1; page <= pages; page++ {
		result, err := s.source.DiscoverMovies(ctx, page, providerIDs)
		if err != nil {
			if ctx.Err() != nil {
				return totalSynced, ctx.Err()
			}
			slog.Error("failed to fetch TMDB page", "page", page, "error", err)
			continue
		}

		for _, summary := range result.Results {
			if err := s.importMovie(ctx, summary.ID); err != nil {
				if ctx.Err() != nil {
					return totalSynced, ctx.Err()
				}
				slog.Error("failed to import movie", "tmdb_id", summary.ID, "error", err)
				continue
			}
			totalSynced++
			if err := sleepCtx(ctx, s.delay); err != nil {
				return totalSynced, err
			}
		}

		slog.Info("synced page", "page", page, "movies", len(result.Results))
		if page >= result.TotalPages {
			break
		}
	}

	if err := s.RebuildSimilarities(ctx); err != nil {
		return totalSynced, err
	}

	s.cache.invalidate(ctx)

	slog.Info("TMDB sync completed", "total_synced", totalSynced)
	return totalSynced, nil
}

func (s *ImportService) importMovie(ctx context.Context, tmdbID int) error {
	detail, err := s.source.GetMovieDetail(ctx, tmdbID)
	if err != nil {
		return err
	}
	movie := mapMovie(detail, s.source.Region())
	return s.repo.UpsertMovie(ctx, &movie)
}

// RebuildSimilarities recomputes the stored neighbours of every movie.
func (s *ImportService) RebuildSimilarities(ctx context.Context) error {
	movies, err := s.repo.ListFeatures(ctx)
	if err != nil {
		return fmt.Errorf("load features: %w", err)
	}

	neighbors := nearestNeighbors(movies, neighborLimit)
	for _, m := range movies {
		if err := s.repo.ReplaceSimilarities(ctx, m.ID, neighbors[m.ID]); err != nil {
			return fmt.Errorf("store similarities: %w", err)
		}
	}

	slog.Info("similarities rebuilt", "movies", len(movies))
	return nil
}

// mapMovie converts a TMDB detail into a catalog movie.
func mapMovie(d *tmdb.TMDBMovieDetail, region string) models.Movie {
	m := models.Movie{
		ID:               d.ID,
		Title:            d.Title,
		Overview:         d.Overview,
		VoteAverage:      d.VoteAverage,
		OriginalLanguage: d.OriginalLanguage,
		Genres:           make([]string, 0, len(d.Genres)),
		Keywords:         make([]string, 0, len(d.Keywords.Keywords)),
		Directors:        make([]string, 0, maxDirectors),
		MainActors:       make([]string, 0, maxActors),
	}

	if d.PosterPath != "" {
		m.PosterURL = models.TMDBImageBaseOriginal + d.PosterPath
	}
	if _, err := time.Parse("2006-01-02", d.ReleaseDate); err == nil {
		m.ReleaseDate = d.ReleaseDate
	}

	for _, g := range d.Genres {
		if g.Name != "" {
			m.Genres = append(m.Genres, g.Name)
		}
	}
	for _, k := range d.Keywords.Keywords {
		if k.Name != "" {
			m.Keywords = append(m.Keywords, k.Name)
		}
	}
	for _, c := range d.Credits.Crew {
		if c.Job == "Director" && c.Name != "" && len(m.Directors) < maxDirectors {
			m.Directors = append(m.Directors, c.Name)
		}
	}
	for _, c := range d.Credits.Cast {
		if c.Name != "" && len(m.MainActors) < maxActors {
			m.MainActors = append(m.MainActors, c.Name)
		}
	}

	m.WatchProviders = mapProviders(d.WatchProviders.Results[region])
	return m
}

// mapProviders keeps target providers from every offer type, first offer wins per provider id.
func mapProviders(r tmdb.RegionProviders) []models.Provider {
	providers := make([]models.Provider, 0)
	seen := make(map[int]bool)
	for _, offers := range [][]tmdb.ProviderListing{r.Flatrate, r.Rent, r.Buy} {
		for _, o := range offers {
			info, ok := TargetProviders[o.ProviderID]
			if !ok || seen[o.ProviderID] {
				continue
			}
			seen[o.ProviderID] = true
			providers = append(providers, models.Provider{
				ID:           o.ProviderID,
				Name:         info.Name,
				LogoURL:      models.TMDBImageBaseOriginal + o.LogoPath,
				SubscribeURL: info.SubscribeURL,
			})
		}
	}
	return providers
}

func targetProviderIDs() []int {
	ids := make([]int, 0, len(TargetProviders))
	for id := range TargetProviders {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
