package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"movie-discovery/internal/models"
	"movie-discovery/internal/tmdb"
)

type fakeSource struct {
	pages   map[int]*tmdb.DiscoverResponse
	details map[int]*tmdb.TMDBMovieDetail
	asked   []int
}

func (f *fakeSource) Region() string { return "US" }

func (f *fakeSource) DiscoverMovies(_ context.Context, page int, providerIDs []int) (*tmdb.DiscoverResponse, error) {
	f.asked = append(f.asked, page)
	if len(providerIDs) != len(TargetProviders) {
		return nil, errors.New("unexpected provider filter")
	}
	p, ok := f.pages[page]
	if !ok {
		return nil, errors.New("page unavailable")
	}
	return p, nil
}

func (f *fakeSource) GetMovieDetail(_ context.Context, id int) (*tmdb.TMDBMovieDetail, error) {
	d, ok := f.details[id]
	if !ok {
		return nil, errors.New("detail unavailable")
	}
	return d, nil
}

type fakeWriter struct {
	movies       map[int]models.Movie
	similarities map[int][]models.Neighbor
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{movies: map[int]models.Movie{}, similarities: map[int][]models.Neighbor{}}
}

func (f *fakeWriter) UpsertMovie(_ context.Context, m *models.Movie) error {
	f.movies[m.ID] = *m
	return nil
}

func (f *fakeWriter) ListFeatures(context.Context) ([]models.Movie, error) {
	out := make([]models.Movie, 0, len(f.movies))
	for _, m := range f.movies {
		out = append(out, m)
	}
	return out, nil
}

func (f *fakeWriter) ReplaceSimilarities(_ context.Context, id int, n []models.Neighbor) error {
	f.similarities[id] = n
	return nil
}

func detail(id int, title string, genres ...string) *tmdb.TMDBMovieDetail {
	d := &tmdb.TMDBMovieDetail{ID: id, Title: title}
	for i, g := range genres {
		d.Genres = append(d.Genres, tmdb.TMDBGenre{ID: i, Name: g})
	}
	return d
}

func TestSyncMovies(t *testing.T) {
	source := &fakeSource{
		pages: map[int]*tmdb.DiscoverResponse{
			1: {Page: 1, TotalPages: 2, Results: []tmdb.TMDBMovie{{ID: 1}, {ID: 2}}},
			2: {Page: 2, TotalPages: 2, Results: []tmdb.TMDBMovie{{ID: 3}, {ID: 4}}},
		},
		details: map[int]*tmdb.TMDBMovieDetail{
			1: detail(1, "Alien", "Horror", "Sci-Fi"),
			2: detail(2, "Aliens", "Horror", "Sci-Fi"),
			3: detail(3, "Notting Hill", "Romance"),
		},
	}
	writer := newFakeWriter()
	svc := NewImportService(source, writer, nil)
	svc.delay = 0

	n, err := svc.SyncMovies(context.Background(), 5)
	require.NoError(t, err)

	assert.Equal(t, 3, n)
	assert.Equal(t, []int{1, 2}, source.asked)
	assert.Len(t, writer.movies, 3)
	require.Len(t, writer.similarities[1], 1)
	assert.Equal(t, 2, writer.similarities[1][0].MovieID)
	assert.Empty(t, writer.similarities[3])
}

func TestSyncMoviesSkipsFailedPages(t *testing.T) {
	source := &fakeSource{
		pages: map[int]*tmdb.DiscoverResponse{
			2: {Page: 2, TotalPages: 3, Results: []tmdb.TMDBMovie{{ID: 1}}},
		},
		details: map[int]*tmdb.TMDBMovieDetail{1: detail(1, "Alien")},
	}
	writer := newFakeWriter()
	svc := NewImportService(source, writer, nil)
	svc.delay = 0

	n, err := svc.SyncMovies(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []int{1, 2}, source.asked)
}

func TestSyncMoviesStopsOnCancel(t *testing.T) {
	source := &fakeSource{
		pages:   map[int]*tmdb.DiscoverResponse{1: {Page: 1, TotalPages: 1, Results: []tmdb.TMDBMovie{{ID: 1}}}},
		details: map[int]*tmdb.TMDBMovieDetail{1: detail(1, "Alien")},
	}
	svc := NewImportService(source, newFakeWriter(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.SyncMovies(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMapMovie(t *testing.T) {
	d := &tmdb.TMDBMovieDetail{
		ID:               603,
		Title:            "The Matrix",
		PosterPath:       "/matrix.jpg",
		ReleaseDate:      "1999-03-30",
		VoteAverage:      8.2,
		OriginalLanguage: "en",
		Genres:           []tmdb.TMDBGenre{{ID: 28, Name: "Action"}},
		Credits: tmdb.Credits{
			Cast: []tmdb.CastMember{{Name: "Keanu Reeves"}, {Name: "Laurence Fishburne"}, {Name: "Carrie-Anne Moss"}, {Name: "Hugo Weaving"}},
			Crew: []tmdb.CrewMember{{Name: "Lana Wachowski", Job: "Director"}, {Name: "Joel Silver", Job: "Producer"}, {Name: "Lilly Wachowski", Job: "Director"}},
		},
	}
	d.Keywords.Keywords = []tmdb.TMDBKeyword{{ID: 1, Name: "simulation"}}
	d.WatchProviders.Results = map[string]tmdb.RegionProviders{
		"US": {
			Flatrate: []tmdb.ProviderListing{{ProviderID: 8, ProviderName: "Netflix", LogoPath: "/n.jpg"}},
			Rent: []tmdb.ProviderListing{
				{ProviderID: 2, ProviderName: "Apple TV", LogoPath: "/a.jpg"},
				{ProviderID: 3, ProviderName: "Google Play Movies", LogoPath: "/g.jpg"},
			},
			Buy: []tmdb.ProviderListing{{ProviderID: 2, ProviderName: "Apple TV", LogoPath: "/a.jpg"}},
		},
		"GB": {Flatrate: []tmdb.ProviderListing{{ProviderID: 9, ProviderName: "Amazon Prime Video"}}},
	}

	m := mapMovie(d, "US")

	assert.Equal(t, models.TMDBImageBaseOriginal+"/matrix.jpg", m.PosterURL)
	assert.Equal(t, "1999-03-30", m.ReleaseDate)
	assert.Equal(t, []string{"Action"}, m.Genres)
	assert.Equal(t, []string{"simulation"}, m.Keywords)
	assert.Equal(t, []string{"Lana Wachowski", "Lilly Wachowski"}, m.Directors)
	assert.Equal(t, []string{"Keanu Reeves", "Laurence Fishburne", "Carrie-Anne Moss"}, m.MainActors)

	require.Len(t, m.WatchProviders, 2)
	assert.Equal(t, models.Provider{
		ID:           8,
		Name:         "Netflix",
		LogoURL:      models.TMDBImageBaseOriginal + "/n.jpg",
		SubscribeURL: "https://www.netflix.com/id/",
	}, m.WatchProviders[0])
	assert.Equal(t, "Apple TV", m.WatchProviders[1].Name)
}

func TestMapMovieDropsInvalidReleaseDate(t *testing.T) {
	m := mapMovie(&tmdb.TMDBMovieDetail{ID: 1, ReleaseDate: "soon"}, "US")
	assert.Empty(t, m.ReleaseDate)
	assert.Empty(t, m.PosterURL)
	assert.NotNil(t, m.WatchProviders)
}
