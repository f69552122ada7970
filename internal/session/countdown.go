package session

import (
	"sync"
	"time"
)

// Ticker is the part of time.Ticker the countdown needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFunc creates a Ticker firing every d.
type TickerFunc func(d time.Duration) Ticker

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

// NewTimeTicker is the TickerFunc backed by time.NewTicker.
func NewTimeTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

// countdown owns one repeating one-second callback. It is released by Stop,
// which is safe to call more than once and from any goroutine.
type countdown struct {
	ticker Ticker
	stop   chan struct{}
	once   sync.Once
}

func startCountdown(newTicker TickerFunc, onTick func(*countdown)) *countdown {
	cd := &countdown{
		ticker: newTicker(time.Second),
		stop:   make(chan struct{}),
	}
	go cd.run(onTick)
	return cd
}

func (cd *countdown) run(onTick func(*countdown)) {
	for {
		select {
		case <-cd.stop:
			return
		case <-cd.ticker.C():
			onTick(cd)
		}
	}
}

// Stop releases the ticker. It never waits for an in-progress callback, so
// it may be called while holding the lock that callback takes.
func (cd *countdown) Stop() {
	cd.once.Do(func() {
		cd.ticker.Stop()
		close(cd.stop)
	})
}
