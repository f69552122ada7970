package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movie_discovery_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "movie_discovery_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	RateLimitRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "movie_discovery_rate_limit_rejected_total",
			Help: "Requests rejected by the rate limiter",
		},
	)

	// Sessions
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "movie_discovery_sessions_active",
			Help: "Number of live recommendation sessions",
		},
	)

	SessionSubmits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movie_discovery_session_submits_total",
			Help: "Submit attempts by result",
		},
		[]string{"result"}, // accepted, rejected
	)

	RecommendationOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movie_discovery_recommendation_outcomes_total",
			Help: "Completed recommendation requests by outcome",
		},
		[]string{"outcome"}, // success, error, stale
	)

	// Catalog
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movie_discovery_cache_lookups_total",
			Help: "Redis cache lookups by key family and result",
		},
		[]string{"family", "result"},
	)

	SyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "movie_discovery_sync_duration_seconds",
			Help:    "Duration of TMDB imports in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	SyncMoviesImported = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "movie_discovery_sync_movies_imported_total",
			Help: "Movies stored by TMDB imports",
		},
	)

	SyncErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "movie_discovery_sync_errors_total",
			Help: "TMDB imports that ended with an error",
		},
	)
)

// Outcome labels for RecordRecommendationOutcome.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeStale   = "stale"
)

// Handler serves the Prometheus exposition format.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}

// Middleware records request count and latency per matched route.
func Middleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		var fe *fiber.Error
		if err != nil && errors.As(err, &fe) {
			status = fe.Code
		}
		RecordAPIRequest(c.Method(), c.Route().Path, strconv.Itoa(status), time.Since(start))
		return err
	}
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, route, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordSubmit counts a submit attempt.
func RecordSubmit(accepted bool) {
	if accepted {
		SessionSubmits.WithLabelValues("accepted").Inc()
		return
	}
	SessionSubmits.WithLabelValues("rejected").Inc()
}

// RecordRecommendationOutcome counts a completed recommendation request.
func RecordRecommendationOutcome(outcome string) {
	RecommendationOutcomes.WithLabelValues(outcome).Inc()
}

// RecordCacheLookup counts a cache hit or miss for a key family.
func RecordCacheLookup(family string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookups.WithLabelValues(family, result).Inc()
}

// RecordSync records a finished TMDB import.
func RecordSync(duration time.Duration, imported int, err error) {
	SyncDuration.Observe(duration.Seconds())
	SyncMoviesImported.Add(float64(imported))
	if err != nil {
		SyncErrors.Inc()
	}
}
