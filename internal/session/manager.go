package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"movie-discovery/internal/metrics"
)

var ErrNotFound = errors.New("session not found")

// Manager keeps the live sessions of the service. Sessions are created when
// a view mounts and closed when it unmounts or stays idle past the TTL.
type Manager struct {
	catalog         Catalog
	recs            Recommender
	cooldownSeconds int
	idleTTL         time.Duration
	opts            []Option
	now             func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a Manager. opts are applied to every session it creates.
func NewManager(catalog Catalog, recs Recommender, cooldownSeconds int, idleTTL time.Duration, opts ...Option) *Manager {
	return &Manager{
		catalog:         catalog,
		recs:            recs,
		cooldownSeconds: cooldownSeconds,
		idleTTL:         idleTTL,
		opts:            opts,
		now:             time.Now,
		sessions:        make(map[string]*Session),
	}
}

// Create mounts a new session and registers it.
func (m *Manager) Create(ctx context.Context) *Session {
	id := uuid.NewString()
	opts := append([]Option{WithClock(m.now)}, m.opts...)
	s := New(id, m.catalog, m.recs, m.cooldownSeconds, opts...)
	s.Mount(ctx)

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()
	metrics.ActiveSessions.Inc()

	slog.Info("session created", "session_id", id)
	return s
}

// Get returns a live session and marks it active.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	s.Touch()
	return s, nil
}

// Delete closes and forgets a session.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return ErrNotFound
	}
	metrics.ActiveSessions.Dec()
	s.Close()
	slog.Info("session deleted", "session_id", id)
	return nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep closes sessions idle for longer than the TTL and returns how many
// were closed. Sessions with a request in flight are kept.
func (m *Manager) Sweep() int {
	cutoff := m.now().Add(-m.idleTTL)

	var expired []*Session
	m.mu.Lock()
	for id, s := range m.sessions {
		if s.idleSince(cutoff) {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()
	metrics.ActiveSessions.Sub(float64(len(expired)))

	for _, s := range expired {
		s.Close()
	}
	if len(expired) > 0 {
		slog.Info("expired idle sessions", "count", len(expired))
	}
	return len(expired)
}

// Run sweeps idle sessions every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Close tears down every session.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	metrics.ActiveSessions.Sub(float64(len(sessions)))

	for _, s := range sessions {
		s.Close()
	}
	slog.Info("all sessions closed", "count", len(sessions))
}
