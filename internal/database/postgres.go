package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"movie-discovery/internal/config"
)

// NewPostgres opens the catalog database and creates the movie and similarity tables.
func NewPostgres(cfg config.DBConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	slog.Info("connected to PostgreSQL", "host", cfg.Host, "db", cfg.DBName)

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

func runMigrations(db *sql.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS movies (
			movie_id INTEGER PRIMARY KEY,
			original_title VARCHAR(500) NOT NULL,
			poster_path VARCHAR(500) DEFAULT '',
			overview TEXT DEFAULT '',
			release_date DATE,
			vote_average DOUBLE PRECISION,
			original_language VARCHAR(10),
			genres TEXT[] DEFAULT '{}',
			keywords TEXT[] DEFAULT '{}',
			directors TEXT[] DEFAULT '{}',
			main_actors TEXT[] DEFAULT '{}',
			watch_providers JSONB DEFAULT '[]',
			scraped_at TIMESTAMP DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS movie_similarities (
			movie_id INTEGER REFERENCES movies(movie_id) ON DELETE CASCADE,
			similar_movie_id INTEGER REFERENCES movies(movie_id) ON DELETE CASCADE,
			score DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (movie_id, similar_movie_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_movies_title ON movies(original_title)`,
		`CREATE INDEX IF NOT EXISTS idx_similarities_score ON movie_similarities(movie_id, score DESC)`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}

	slog.Info("database migrations completed")
	return nil
}
