// Package session implements the recommendation session workflow: movie
// selection, the request lifecycle, the post-request cooldown and the
// dislike reordering of result buckets.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"movie-discovery/internal/client"
	"movie-discovery/internal/metrics"
	"movie-discovery/internal/models"
)

// DefaultErrorMessage replaces failures that carry no message of their own.
const DefaultErrorMessage = "failed to get recommendations, please try again"

const catalogErrorMessage = "failed to load the movie list, try reloading the page"

var (
	ErrEmptySelection  = errors.New("no movie selected")
	ErrRequestInFlight = errors.New("a recommendation request is already in flight")
	ErrCoolingDown     = errors.New("cooldown in progress")
	ErrClosed          = errors.New("session closed")
)

// Catalog lists the selectable movies.
type Catalog interface {
	ListMovies(ctx context.Context) ([]models.MovieSummary, error)
}

// Recommender produces recommendation buckets for a movie.
type Recommender interface {
	GetRecommendations(ctx context.Context, movieID int) (*models.RecommendationResult, error)
}

// Option customises a Session.
type Option func(*Session)

// WithTicker replaces the countdown ticker.
func WithTicker(fn TickerFunc) Option {
	return func(s *Session) { s.newTicker = fn }
}

// WithLogger replaces the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithClock replaces the clock used to track activity.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

type request struct {
	seq     uint64
	movieID int
}

// Session is the state of one recommendation view. All methods are safe for
// concurrent use; transitions are serialised.
type Session struct {
	id              string
	catalog         Catalog
	recs            Recommender
	cooldownSeconds int
	newTicker       TickerFunc
	logger          *slog.Logger
	now             func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mount  sync.Once

	mu         sync.Mutex
	selected   *int
	phase      Phase
	errMsg     string
	result     *models.RecommendationResult
	cooldown   int
	countdown  *countdown
	inflight   *request
	seq        uint64
	movies     []models.MovieSummary
	catalogErr string
	lastActive time.Time
	closed     bool
}

// New creates a session in the Idle phase.
func New(id string, catalog Catalog, recs Recommender, cooldownSeconds int, opts ...Option) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:              id,
		catalog:         catalog,
		recs:            recs,
		cooldownSeconds: cooldownSeconds,
		newTicker:       NewTimeTicker,
		now:             time.Now,
		ctx:             ctx,
		cancel:          cancel,
		phase:           PhaseIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("session_id", id)
	s.lastActive = s.now()
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Mount loads the movie list once. A failure is not fatal: it is logged and
// reported through State.CatalogError.
func (s *Session) Mount(ctx context.Context) {
	s.mount.Do(func() {
		movies, err := s.catalog.ListMovies(ctx)

		s.mu.Lock()
		defer s.mu.Unlock()
		if err != nil {
			s.logger.Warn("failed to load movie list", "error", err)
			s.catalogErr = catalogErrorMessage
			s.movies = []models.MovieSummary{}
			return
		}
		s.movies = movies
		s.logger.Debug("movie list loaded", "count", len(movies))
	})
}

// Movies returns the movie list loaded at mount.
func (s *Session) Movies() []models.MovieSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.MovieSummary, len(s.movies))
	copy(out, s.movies)
	return out
}

// Select sets the selected movie. It is allowed in every phase and does not
// touch an in-flight request.
func (s *Session) Select(movieID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = &movieID
	s.touchLocked()
}

// ClearSelection removes the selected movie.
func (s *Session) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = nil
	s.touchLocked()
}

// Submit starts a recommendation request for the selected movie. When a
// guard fails nothing happens and the reason is returned; callers are free
// to ignore it.
func (s *Session) Submit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()

	if err := s.guardLocked(); err != nil {
		s.logger.Debug("submit ignored", "reason", err)
		metrics.RecordSubmit(false)
		return err
	}
	metrics.RecordSubmit(true)

	s.seq++
	req := request{seq: s.seq, movieID: *s.selected}
	s.inflight = &req
	s.phase = PhaseLoading
	s.errMsg = ""
	s.stopCountdownLocked()

	s.logger.Info("requesting recommendations", "movie_id", req.movieID)

	s.wg.Add(1)
	go s.fetch(req)
	return nil
}

func (s *Session) guardLocked() error {
	switch {
	case s.closed:
		return ErrClosed
	case s.selected == nil:
		return ErrEmptySelection
	case s.phase == PhaseLoading:
		return ErrRequestInFlight
	case s.cooldown > 0:
		return ErrCoolingDown
	}
	return nil
}

func (s *Session) fetch(req request) {
	defer s.wg.Done()
	result, err := s.recs.GetRecommendations(s.ctx, req.movieID)
	s.complete(req, result, err)
}

func (s *Session) complete(req request, result *models.RecommendationResult, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.inflight == nil || s.inflight.seq != req.seq {
		return
	}
	s.inflight = nil

	switch {
	case s.selected == nil || *s.selected != req.movieID:
		s.logger.Info("discarding stale recommendation response", "movie_id", req.movieID)
		metrics.RecordRecommendationOutcome(metrics.OutcomeStale)
		s.phase = PhaseIdle
	case err != nil:
		msg := client.Message(err)
		if msg == "" {
			msg = DefaultErrorMessage
		}
		s.logger.Warn("recommendation request failed", "movie_id", req.movieID, "error", err)
		metrics.RecordRecommendationOutcome(metrics.OutcomeError)
		s.phase = PhaseError
		s.errMsg = msg
	case result == nil:
		metrics.RecordRecommendationOutcome(metrics.OutcomeError)
		s.phase = PhaseError
		s.errMsg = DefaultErrorMessage
	default:
		metrics.RecordRecommendationOutcome(metrics.OutcomeSuccess)
		r := result.Clone()
		s.result = &r
		s.phase = PhaseSuccess
		s.errMsg = ""
		s.logger.Info("recommendations received",
			"movie_id", req.movieID,
			"platform", r.Dominant.PlatformName,
			"dominant", len(r.Dominant.Movies),
			"other", len(r.Other.Movies),
		)
	}

	s.startCountdownLocked()
}

// startCountdownLocked restarts the cooldown from the configured value.
func (s *Session) startCountdownLocked() {
	s.stopCountdownLocked()
	s.cooldown = s.cooldownSeconds
	if s.cooldown <= 0 {
		s.cooldown = 0
		return
	}
	s.countdown = startCountdown(s.newTicker, s.tick)
}

func (s *Session) stopCountdownLocked() {
	if s.countdown != nil {
		s.countdown.Stop()
		s.countdown = nil
	}
}

func (s *Session) tick(cd *countdown) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.countdown != cd {
		return
	}
	if s.cooldown > 0 {
		s.cooldown--
	}
	if s.cooldown == 0 {
		s.stopCountdownLocked()
	}
}

// Dislike demotes movieID to the back of whichever bucket holds it and
// reports whether either bucket held it.
func (s *Session) Dislike(movieID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()

	if s.result == nil {
		return false
	}
	switch {
	case s.result.Dominant.Contains(movieID):
		s.result.Dominant = Reorder(s.result.Dominant, movieID)
	case s.result.Other.Contains(movieID):
		s.result.Other = Reorder(s.result.Other, movieID)
	default:
		return false
	}
	s.logger.Debug("movie disliked", "movie_id", movieID)
	return true
}

// State returns a snapshot of the session.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		ID:                       s.id,
		Phase:                    s.phase,
		CooldownSecondsRemaining: s.cooldown,
		CatalogError:             s.catalogErr,
		Submit:                   submitControl(s.phase, s.cooldown, s.selected != nil),
	}
	if s.selected != nil {
		id := *s.selected
		st.SelectedMovie = &id
	}
	if s.errMsg != "" {
		msg := s.errMsg
		st.ErrorMessage = &msg
	}
	if s.result != nil {
		r := s.result.Clone()
		st.Result = &r
	}
	return st
}

// LastActive returns the time of the last user event.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Touch records activity without changing state. Polling a session keeps it alive.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()
}

// idleSince reports whether the session has had no activity since cutoff.
// A session waiting on a request is never idle.
func (s *Session) idleSince(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase != PhaseLoading && s.lastActive.Before(cutoff)
}

func (s *Session) touchLocked() {
	s.lastActive = s.now()
}

// Close tears the session down: the countdown is stopped and an in-flight
// request is cancelled and its outcome dropped. Close waits for the request
// goroutine to return.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.stopCountdownLocked()
	s.inflight = nil
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	s.logger.Debug("session closed")
}
