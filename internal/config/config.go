package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds configuration for both the catalog and the session service.
type Config struct {
	DB        DBConfig
	Redis     RedisConfig
	TMDB      TMDBConfig
	Session   SessionConfig
	Client    ClientConfig
	RateLimit RateLimitConfig
	// Port is the session service listen port, CatalogPort the catalog service's.
	Port        string `validate:"required,numeric"`
	CatalogPort string `validate:"required,numeric"`
	LogLevel    slog.Level
}

// DBConfig holds PostgreSQL configuration.
type DBConfig struct {
	Host        string `validate:"required"`
	Port        int    `validate:"min=1,max=65535"`
	User        string `validate:"required"`
	Password    string
	DBName      string `validate:"required"`
	SSLMode     string `validate:"oneof=disable allow prefer require verify-ca verify-full"`
	SSLRootCert string
}

// DSN returns the PostgreSQL connection string.
func (d DBConfig) DSN() string {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
	if d.SSLRootCert != "" {
		dsn += fmt.Sprintf(" sslrootcert=%s", d.SSLRootCert)
	}
	return dsn
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string `validate:"required"`
	Password string
	DB       int `validate:"min=0"`
}

// TMDBConfig holds TMDB API configuration used by the catalog import.
type TMDBConfig struct {
	APIKey      string
	BaseURL     string `validate:"required,url"`
	WatchRegion string `validate:"len=2"`
}

// SessionConfig controls the recommendation session workflow.
type SessionConfig struct {
	CooldownSeconds int           `validate:"min=0"`
	IdleTTL         time.Duration `validate:"gt=0"`
	SweepInterval   time.Duration `validate:"gt=0"`
}

// ClientConfig points the session service at the catalog API.
type ClientConfig struct {
	CatalogAPIURL string `validate:"required,url"`
	// Timeout of zero means requests wait for the catalog indefinitely.
	Timeout time.Duration `validate:"min=0"`
}

// RateLimitConfig bounds recommendation requests per client IP.
type RateLimitConfig struct {
	Max           int `validate:"min=1"`
	WindowSeconds int `validate:"min=1"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	var errs []error
	intEnv := func(key string, fallback int) int {
		n, err := getEnvInt(key, fallback)
		if err != nil {
			errs = append(errs, err)
		}
		return n
	}

	dbPort := intEnv("DB_PORT", 5432)
	redisDB := intEnv("REDIS_DB", 0)
	cooldown := intEnv("SESSION_COOLDOWN_SECONDS", 3)
	idleTTL := intEnv("SESSION_IDLE_TTL_MINUTES", 30)
	clientTimeout := intEnv("CLIENT_TIMEOUT_SECONDS", 0)
	rateLimitMax := intEnv("RATE_LIMIT_MAX", 60)
	rateLimitWindow := intEnv("RATE_LIMIT_WINDOW_SECONDS", 60)
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cfg := &Config{
		DB: DBConfig{
			Host:        getEnv("DB_HOST", "localhost"),
			Port:        dbPort,
			User:        getEnv("DB_USER", "postgres"),
			Password:    getEnv("DB_PASSWORD", "postgres"),
			DBName:      getEnv("DB_NAME", "movie_discovery"),
			SSLMode:     getEnv("DB_SSLMODE", "disable"),
			SSLRootCert: getEnv("DB_SSLROOTCERT", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		TMDB: TMDBConfig{
			APIKey:      getEnv("TMDB_API_KEY", ""),
			BaseURL:     getEnv("TMDB_BASE_URL", "https://api.themoviedb.org/3"),
			WatchRegion: getEnv("TMDB_WATCH_REGION", "US"),
		},
		Session: SessionConfig{
			CooldownSeconds: cooldown,
			IdleTTL:         time.Duration(idleTTL) * time.Minute,
			SweepInterval:   time.Minute,
		},
		Client: ClientConfig{
			CatalogAPIURL: strings.TrimRight(getEnv("CATALOG_API_URL", "http://localhost:8081/api"), "/"),
			Timeout:       time.Duration(clientTimeout) * time.Second,
		},
		RateLimit: RateLimitConfig{
			Max:           rateLimitMax,
			WindowSeconds: rateLimitWindow,
		},
		Port:        getEnv("SERVER_PORT", "8080"),
		CatalogPort: getEnv("CATALOG_SERVER_PORT", "8081"),
		LogLevel:    parseLevel(getEnv("LOG_LEVEL", "info")),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt parses an integer variable. Unset falls back; anything that is
// not a whole number is an error rather than a silent zero.
func getEnvInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a whole number, got %q", key, v)
	}
	return n, nil
}
