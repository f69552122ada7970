package models

import "time"

// Movie represents a movie stored in our database.
type Movie struct {
	ID               int        `json:"movie_id"`
	Title            string     `json:"original_title"`
	PosterURL        string     `json:"poster_path"`
	Overview         string     `json:"overview"`
	ReleaseDate      string     `json:"release_date"`
	VoteAverage      float64    `json:"vote_average"`
	OriginalLanguage string     `json:"original_language"`
	Genres           []string   `json:"genres"`
	Keywords         []string   `json:"keywords"`
	Directors        []string   `json:"directors"`
	MainActors       []string   `json:"main_actors"`
	WatchProviders   []Provider `json:"watch_providers"`
	ScrapedAt        time.Time  `json:"scraped_at"`
}

// MovieSummary is the shape used to populate the movie selection list.
type MovieSummary struct {
	ID    int    `json:"movie_id"`
	Title string `json:"original_title"`
}

// MovieDetail is the response shape for the detail view.
// Optional fields are nil when the catalog does not know them.
type MovieDetail struct {
	ID               int        `json:"movie_id"`
	Title            string     `json:"original_title"`
	PosterURL        string     `json:"poster_path"`
	Overview         string     `json:"overview"`
	VoteAverage      *float64   `json:"vote_average,omitempty"`
	ReleaseDate      *string    `json:"release_date,omitempty"`
	OriginalLanguage *string    `json:"original_language,omitempty"`
	WatchProviders   []Provider `json:"watch_providers"`
}

// Provider is a streaming platform a movie is available on.
type Provider struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	LogoURL      string `json:"logo"`
	SubscribeURL string `json:"subscribe_url"`
}

// HasProvider reports whether a provider with the given name is present.
func HasProvider(providers []Provider, name string) bool {
	for _, p := range providers {
		if p.Name == name {
			return true
		}
	}
	return false
}

const (
	TMDBImageBaseOriginal = "https://image.tmdb.org/t/p/original"
)
