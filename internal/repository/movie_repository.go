package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"movie-discovery/internal/models"
)

// ErrNotFound is returned when a movie does not exist.
var ErrNotFound = errors.New("movie not found")

// MovieRepository handles database operations for movies.
type MovieRepository struct {
	db *sql.DB
}

// NewMovieRepository creates a new MovieRepository.
func NewMovieRepository(db *sql.DB) *MovieRepository {
	return &MovieRepository{db: db}
}

// ListMovies returns every movie id and title ordered by title.
func (r *MovieRepository) ListMovies(ctx context.Context) ([]models.MovieSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT movie_id, original_title
		FROM movies
		ORDER BY original_title ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list query failed: %w", err)
	}
	defer rows.Close()

	movies := make([]models.MovieSummary, 0)
	for rows.Next() {
		var m models.MovieSummary
		if err := rows.Scan(&m.ID, &m.Title); err != nil {
			return nil, fmt.Errorf("scan movie: %w", err)
		}
		movies = append(movies, m)
	}
	return movies, rows.Err()
}

// GetMovie returns the detail view of a movie.
func (r *MovieRepository) GetMovie(ctx context.Context, id int) (*models.MovieDetail, error) {
	var (
		detail      models.MovieDetail
		voteAverage sql.NullFloat64
		releaseDate sql.NullString
		language    sql.NullString
		providers   []byte
	)

	err := r.db.QueryRowContext(ctx, `
		SELECT movie_id, original_title, COALESCE(poster_path, ''), COALESCE(overview, ''),
			vote_average, TO_CHAR(release_date, 'YYYY-MM-DD'), original_language,
			COALESCE(watch_providers, '[]'::jsonb)
		FROM movies
		WHERE movie_id = $1
	`, id).Scan(
		&detail.ID, &detail.Title, &detail.PosterURL, &detail.Overview,
		&voteAverage, &releaseDate, &language, &providers,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get movie %d: %w", id, err)
	}

	if voteAverage.Valid {
		detail.VoteAverage = &voteAverage.Float64
	}
	if releaseDate.Valid && releaseDate.String != "" {
		detail.ReleaseDate = &releaseDate.String
	}
	if language.Valid && language.String != "" {
		detail.OriginalLanguage = &language.String
	}
	detail.WatchProviders = decodeProviders(id, providers)

	return &detail, nil
}

// Exists reports whether the movie is in the catalog.
func (r *MovieRepository) Exists(ctx context.Context, id int) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM movies WHERE movie_id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check movie %d: %w", id, err)
	}
	return exists, nil
}

// GetSimilar returns the closest neighbours of a movie, best first.
func (r *MovieRepository) GetSimilar(ctx context.Context, id, limit int) ([]models.Candidate, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT m.movie_id, m.original_title, COALESCE(m.poster_path, ''),
			COALESCE(m.watch_providers, '[]'::jsonb), s.score
		FROM movie_similarities s
		INNER JOIN movies m ON m.movie_id = s.similar_movie_id
		WHERE s.movie_id = $1 AND s.similar_movie_id <> $1
		ORDER BY s.score DESC, m.movie_id ASC
		LIMIT $2
	`, id, limit)
	if err != nil {
		return nil, fmt.Errorf("similar query failed: %w", err)
	}
	defer rows.Close()

	var candidates []models.Candidate
	for rows.Next() {
		var (
			c         models.Candidate
			providers []byte
		)
		if err := rows.Scan(&c.ID, &c.Title, &c.PosterURL, &providers, &c.Score); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		c.Providers = decodeProviders(c.ID, providers)
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

// UpsertMovie inserts or updates a movie.
func (r *MovieRepository) UpsertMovie(ctx context.Context, m *models.Movie) error {
	providers, err := json.Marshal(m.WatchProviders)
	if err != nil {
		return fmt.Errorf("encode providers: %w", err)
	}

	var voteAverage interface{}
	if m.VoteAverage > 0 {
		voteAverage = m.VoteAverage
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO movies (movie_id, original_title, poster_path, overview, release_date,
			vote_average, original_language, genres, keywords, directors, main_actors,
			watch_providers, scraped_at)
		VALUES ($1, $2, $3, $4, $5::date, $6, $7, $8, $9, $10, $11, $12::jsonb, $13)
		ON CONFLICT (movie_id) DO UPDATE SET
			original_title = EXCLUDED.original_title,
			poster_path = EXCLUDED.poster_path,
			overview = EXCLUDED.overview,
			release_date = EXCLUDED.release_date,
			vote_average = EXCLUDED.vote_average,
			original_language = EXCLUDED.original_language,
			genres = EXCLUDED.genres,
			keywords = EXCLUDED.keywords,
			directors = EXCLUDED.directors,
			main_actors = EXCLUDED.main_actors,
			watch_providers = EXCLUDED.watch_providers,
			scraped_at = EXCLUDED.scraped_at
	`, m.ID, m.Title, m.PosterURL, m.Overview, nullableDate(m.ReleaseDate),
		voteAverage, nullableString(m.OriginalLanguage),
		pq.Array(m.Genres), pq.Array(m.Keywords), pq.Array(m.Directors), pq.Array(m.MainActors),
		string(providers), time.Now())
	if err != nil {
		return fmt.Errorf("upsert movie %d: %w", m.ID, err)
	}
	return nil
}

// ListFeatures returns every movie with the attributes similarity is computed from.
func (r *MovieRepository) ListFeatures(ctx context.Context) ([]models.Movie, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT movie_id, original_title, genres, keywords, directors, main_actors
		FROM movies
	`)
	if err != nil {
		return nil, fmt.Errorf("features query failed: %w", err)
	}
	defer rows.Close()

	var movies []models.Movie
	for rows.Next() {
		var m models.Movie
		if err := rows.Scan(&m.ID, &m.Title,
			pq.Array(&m.Genres), pq.Array(&m.Keywords),
			pq.Array(&m.Directors), pq.Array(&m.MainActors),
		); err != nil {
			return nil, fmt.Errorf("scan features: %w", err)
		}
		movies = append(movies, m)
	}
	return movies, rows.Err()
}

// ReplaceSimilarities swaps the stored neighbours of a movie in one transaction.
func (r *MovieRepository) ReplaceSimilarities(ctx context.Context, movieID int, neighbors []models.Neighbor) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM movie_similarities WHERE movie_id = $1`, movieID); err != nil {
		return fmt.Errorf("clear similarities: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO movie_similarities (movie_id, similar_movie_id, score)
		VALUES ($1, $2, $3)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, n := range neighbors {
		if _, err := stmt.ExecContext(ctx, movieID, n.MovieID, n.Score); err != nil {
			return fmt.Errorf("insert similarity %d->%d: %w", movieID, n.MovieID, err)
		}
	}

	return tx.Commit()
}

// decodeProviders parses the stored provider list. Invalid JSON yields an
// empty list rather than an error.
func decodeProviders(movieID int, raw []byte) []models.Provider {
	providers := make([]models.Provider, 0)
	if len(raw) == 0 {
		return providers
	}
	if err := json.Unmarshal(raw, &providers); err != nil {
		slog.Warn("invalid watch_providers", "movie_id", movieID, "error", err)
		return make([]models.Provider, 0)
	}
	return providers
}

func nullableDate(dateStr string) interface{} {
	if dateStr == "" {
		return nil
	}
	return dateStr
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
