package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"movie-discovery/internal/client"
	"movie-discovery/internal/models"
)

type reply struct {
	result *models.RecommendationResult
	err    error
}

type fakeRecommender struct {
	mu      sync.Mutex
	calls   []int
	replies chan reply
}

func newFakeRecommender() *fakeRecommender {
	return &fakeRecommender{replies: make(chan reply, 1)}
}

func (f *fakeRecommender) GetRecommendations(ctx context.Context, movieID int) (*models.RecommendationResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, movieID)
	f.mu.Unlock()

	select {
	case r := <-f.replies:
		return r.result, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *fakeRecommender) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeCatalog struct {
	calls  atomic.Int32
	movies []models.MovieSummary
	err    error
}

func (f *fakeCatalog) ListMovies(ctx context.Context) ([]models.MovieSummary, error) {
	f.calls.Add(1)
	return f.movies, f.err
}

type manualTicker struct {
	ch      chan time.Time
	stopped atomic.Bool
}

func (m *manualTicker) C() <-chan time.Time { return m.ch }
func (m *manualTicker) Stop()               { m.stopped.Store(true) }

type tickers struct {
	mu  sync.Mutex
	all []*manualTicker
}

func (tk *tickers) new(d time.Duration) Ticker {
	tk.mu.Lock()
	defer tk.mu.Unlock()
	m := &manualTicker{ch: make(chan time.Time)}
	tk.all = append(tk.all, m)
	return m
}

func (tk *tickers) last() *manualTicker {
	tk.mu.Lock()
	defer tk.mu.Unlock()
	if len(tk.all) == 0 {
		return nil
	}
	return tk.all[len(tk.all)-1]
}

func (tk *tickers) count() int {
	tk.mu.Lock()
	defer tk.mu.Unlock()
	return len(tk.all)
}

const testCooldown = 3

func newTestSession(t *testing.T) (*Session, *fakeRecommender, *tickers) {
	t.Helper()
	recs := newFakeRecommender()
	tk := &tickers{}
	s := New("test", &fakeCatalog{}, recs, testCooldown, WithTicker(tk.new))
	t.Cleanup(s.Close)
	return s, recs, tk
}

// answer delivers the pending reply and waits until the session applied it.
func answer(s *Session, recs *fakeRecommender, r reply) {
	recs.replies <- r
	s.wg.Wait()
}

// advance runs n countdown callbacks synchronously.
func advance(s *Session, n int) {
	for i := 0; i < n; i++ {
		s.mu.Lock()
		cd := s.countdown
		s.mu.Unlock()
		if cd == nil {
			return
		}
		s.tick(cd)
	}
}

func netflixResult() *models.RecommendationResult {
	return &models.RecommendationResult{
		Dominant: models.Bucket{PlatformName: "Netflix", Movies: []models.BucketMovie{
			{ID: 1, Title: "A"}, {ID: 2, Title: "B"},
		}},
		Other: models.Bucket{PlatformName: models.OtherPlatformsName, Movies: []models.BucketMovie{
			{ID: 3, Title: "C"},
		}},
	}
}

func TestSubmitWithoutSelectionIsIgnored(t *testing.T) {
	s, recs, _ := newTestSession(t)

	err := s.Submit()
	assert.ErrorIs(t, err, ErrEmptySelection)

	st := s.State()
	assert.Equal(t, PhaseIdle, st.Phase)
	assert.Nil(t, st.SelectedMovie)
	assert.Zero(t, recs.callCount())
	assert.True(t, st.Submit.Disabled)
}

func TestSubmitResolvesToSuccess(t *testing.T) {
	s, recs, _ := newTestSession(t)

	s.Select(42)
	require.NoError(t, s.Submit())

	st := s.State()
	assert.Equal(t, PhaseLoading, st.Phase)
	assert.Equal(t, SubmitControl{Label: "Searching...", Disabled: true}, st.Submit)

	answer(s, recs, reply{result: netflixResult()})

	st = s.State()
	assert.Equal(t, PhaseSuccess, st.Phase)
	assert.Nil(t, st.ErrorMessage)
	require.NotNil(t, st.Result)
	assert.Equal(t, "Netflix", st.Result.Dominant.PlatformName)
	assert.Equal(t, []int{1, 2}, ids(st.Result.Dominant))
	assert.Equal(t, []int{3}, ids(st.Result.Other))
	assert.Equal(t, testCooldown, st.CooldownSecondsRemaining)
	assert.Equal(t, []int{42}, recs.calls)
}

func TestSubmitWhileLoadingIssuesOneRequest(t *testing.T) {
	s, recs, _ := newTestSession(t)

	s.Select(42)
	require.NoError(t, s.Submit())
	assert.ErrorIs(t, s.Submit(), ErrRequestInFlight)
	assert.ErrorIs(t, s.Submit(), ErrRequestInFlight)

	answer(s, recs, reply{result: netflixResult()})
	assert.Equal(t, 1, recs.callCount())
}

func TestCooldownBlocksSubmitUntilExpired(t *testing.T) {
	s, recs, tk := newTestSession(t)

	s.Select(42)
	require.NoError(t, s.Submit())
	answer(s, recs, reply{result: netflixResult()})

	assert.ErrorIs(t, s.Submit(), ErrCoolingDown)
	assert.Equal(t, 1, recs.callCount())

	advance(s, testCooldown-1)
	st := s.State()
	assert.Equal(t, 1, st.CooldownSecondsRemaining)
	assert.Equal(t, SubmitControl{Label: "Wait 1 seconds...", Disabled: true}, st.Submit)
	assert.ErrorIs(t, s.Submit(), ErrCoolingDown)

	advance(s, 1)
	st = s.State()
	assert.Zero(t, st.CooldownSecondsRemaining)
	assert.Equal(t, SubmitControl{Label: "Get Recommendations", Disabled: false}, st.Submit)
	assert.True(t, tk.last().stopped.Load(), "ticker must be released at zero")

	require.NoError(t, s.Submit())
	answer(s, recs, reply{result: netflixResult()})
	assert.Equal(t, 2, recs.callCount())
	assert.Equal(t, 2, tk.count())
}

func TestTickerDrivesCountdown(t *testing.T) {
	s, recs, tk := newTestSession(t)

	s.Select(7)
	require.NoError(t, s.Submit())
	answer(s, recs, reply{result: netflixResult()})

	ticker := tk.last()
	require.NotNil(t, ticker)
	for want := testCooldown - 1; want >= 0; want-- {
		ticker.ch <- time.Now()
		require.Eventually(t, func() bool {
			return s.State().CooldownSecondsRemaining == want
		}, time.Second, 5*time.Millisecond)
	}
	assert.True(t, ticker.stopped.Load())
}

func TestRejectKeepsPriorResult(t *testing.T) {
	s, recs, _ := newTestSession(t)

	s.Select(42)
	require.NoError(t, s.Submit())
	answer(s, recs, reply{result: netflixResult()})
	advance(s, testCooldown)

	require.NoError(t, s.Submit())
	st := s.State()
	assert.Equal(t, PhaseLoading, st.Phase)
	require.NotNil(t, st.Result, "stale result stays visible while loading")

	answer(s, recs, reply{err: &client.ServiceError{Status: 504, Message: "timeout"}})

	st = s.State()
	assert.Equal(t, PhaseError, st.Phase)
	require.NotNil(t, st.ErrorMessage)
	assert.Equal(t, "timeout", *st.ErrorMessage)
	assert.Equal(t, testCooldown, st.CooldownSecondsRemaining)
	require.NotNil(t, st.Result)
	assert.Equal(t, []int{1, 2}, ids(st.Result.Dominant))
}

func TestRejectWithoutMessageUsesFallback(t *testing.T) {
	s, recs, _ := newTestSession(t)

	s.Select(1)
	require.NoError(t, s.Submit())
	answer(s, recs, reply{err: errors.New("")})

	st := s.State()
	assert.Equal(t, PhaseError, st.Phase)
	require.NotNil(t, st.ErrorMessage)
	assert.Equal(t, DefaultErrorMessage, *st.ErrorMessage)
	assert.Nil(t, st.Result)
}

func TestNewRequestClearsError(t *testing.T) {
	s, recs, _ := newTestSession(t)

	s.Select(1)
	require.NoError(t, s.Submit())
	answer(s, recs, reply{err: &client.ServiceError{Status: 500, Message: "boom"}})
	advance(s, testCooldown)

	require.NoError(t, s.Submit())
	st := s.State()
	assert.Equal(t, PhaseLoading, st.Phase)
	assert.Nil(t, st.ErrorMessage)

	answer(s, recs, reply{result: netflixResult()})
	assert.Nil(t, s.State().ErrorMessage)
}

func TestStaleResponseIsDiscarded(t *testing.T) {
	s, recs, _ := newTestSession(t)

	s.Select(1)
	require.NoError(t, s.Submit())
	s.Select(2)
	assert.Equal(t, PhaseLoading, s.State().Phase, "selection does not interrupt the request")

	answer(s, recs, reply{result: netflixResult()})

	st := s.State()
	assert.Equal(t, PhaseIdle, st.Phase)
	assert.Nil(t, st.Result)
	assert.Nil(t, st.ErrorMessage)
	assert.Equal(t, testCooldown, st.CooldownSecondsRemaining)
	require.NotNil(t, st.SelectedMovie)
	assert.Equal(t, 2, *st.SelectedMovie)
}

func TestDislikeRoutesToOwningBucket(t *testing.T) {
	s, recs, _ := newTestSession(t)

	assert.False(t, s.Dislike(1), "no result yet")

	s.Select(42)
	require.NoError(t, s.Submit())
	answer(s, recs, reply{result: netflixResult()})

	assert.True(t, s.Dislike(1))
	st := s.State()
	assert.Equal(t, []int{2, 1}, ids(st.Result.Dominant))
	assert.Equal(t, []int{3}, ids(st.Result.Other))

	assert.True(t, s.Dislike(1))
	assert.Equal(t, []int{2, 1}, ids(s.State().Result.Dominant))

	assert.True(t, s.Dislike(3))
	assert.Equal(t, []int{3}, ids(s.State().Result.Other))

	assert.False(t, s.Dislike(99))
	assert.Equal(t, []int{2, 1}, ids(s.State().Result.Dominant))
}

func TestStateIsACopy(t *testing.T) {
	s, recs, _ := newTestSession(t)

	s.Select(42)
	require.NoError(t, s.Submit())
	answer(s, recs, reply{result: netflixResult()})

	st := s.State()
	st.Result.Dominant.Movies[0].ID = 100
	*st.SelectedMovie = 7

	again := s.State()
	assert.Equal(t, []int{1, 2}, ids(again.Result.Dominant))
	assert.Equal(t, 42, *again.SelectedMovie)
}

func TestZeroCooldownAllowsImmediateResubmit(t *testing.T) {
	recs := newFakeRecommender()
	tk := &tickers{}
	s := New("zero", &fakeCatalog{}, recs, 0, WithTicker(tk.new))
	t.Cleanup(s.Close)

	s.Select(1)
	require.NoError(t, s.Submit())
	answer(s, recs, reply{result: netflixResult()})

	assert.Zero(t, s.State().CooldownSecondsRemaining)
	assert.Zero(t, tk.count())
	require.NoError(t, s.Submit())
	answer(s, recs, reply{result: netflixResult()})
}

func TestCloseReleasesCountdown(t *testing.T) {
	s, recs, tk := newTestSession(t)

	s.Select(1)
	require.NoError(t, s.Submit())
	answer(s, recs, reply{result: netflixResult()})

	s.Close()
	assert.True(t, tk.last().stopped.Load())
	assert.ErrorIs(t, s.Submit(), ErrClosed)
}

func TestCloseCancelsInFlightRequest(t *testing.T) {
	s, recs, tk := newTestSession(t)

	s.Select(1)
	require.NoError(t, s.Submit())

	done := make(chan struct{})
	go func() {
		s.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close did not return")
	}
	assert.Equal(t, PhaseLoading, s.State().Phase, "outcome after close is dropped")
	assert.Zero(t, tk.count())
	assert.Equal(t, 1, recs.callCount())
}

func TestMountLoadsCatalogOnce(t *testing.T) {
	catalog := &fakeCatalog{movies: []models.MovieSummary{{ID: 1, Title: "Alien"}}}
	s := New("mount", catalog, newFakeRecommender(), testCooldown)
	t.Cleanup(s.Close)

	s.Mount(context.Background())
	s.Mount(context.Background())

	assert.Equal(t, int32(1), catalog.calls.Load())
	assert.Equal(t, []models.MovieSummary{{ID: 1, Title: "Alien"}}, s.Movies())
	assert.Empty(t, s.State().CatalogError)
}

func TestMountFailureIsNotFatal(t *testing.T) {
	catalog := &fakeCatalog{err: &client.NetworkError{Op: "GET /movies", Err: errors.New("refused")}}
	s := New("mount", catalog, newFakeRecommender(), testCooldown)
	t.Cleanup(s.Close)

	s.Mount(context.Background())

	st := s.State()
	assert.Equal(t, PhaseIdle, st.Phase)
	assert.Equal(t, catalogErrorMessage, st.CatalogError)
	assert.Empty(t, s.Movies())
}

func TestClearSelection(t *testing.T) {
	s, recs, _ := newTestSession(t)

	s.Select(3)
	s.ClearSelection()
	assert.ErrorIs(t, s.Submit(), ErrEmptySelection)
	assert.Zero(t, recs.callCount())
}
