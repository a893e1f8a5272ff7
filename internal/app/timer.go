package app

import (
	"context"
	"sync"
	"time"
)

// Ticker abstracts time.Ticker so tests can drive the clock by hand.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory creates a ticker firing every d.
type TickerFactory func(d time.Duration) Ticker

type realTicker struct {
	*time.Ticker
}

func (t realTicker) C() <-chan time.Time { return t.Ticker.C }

// NewRealTicker wraps time.NewTicker.
func NewRealTicker(d time.Duration) Ticker {
	return realTicker{time.NewTicker(d)}
}

// Timer drives periodic ticks for one session. Every Start bumps a generation
// counter and every Stop bumps it again, so a tick delivered by a previous run is
// recognisable as stale through Live even if it raced with Stop.
type Timer struct {
	interval  time.Duration
	newTicker TickerFactory
	fire      func(gen uint64, at time.Time)

	mu      sync.Mutex
	gen     uint64
	running bool
	cancel  context.CancelFunc
}

func NewTimer(interval time.Duration, newTicker TickerFactory, fire func(gen uint64, at time.Time)) *Timer {
	if interval <= 0 {
		interval = time.Second
	}
	if newTicker == nil {
		newTicker = NewRealTicker
	}
	return &Timer{interval: interval, newTicker: newTicker, fire: fire}
}

// Start begins ticking until Stop is called or ctx is done. Starting a running
// timer is a no-op. It returns the generation of the current run.
func (t *Timer) Start(ctx context.Context) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return t.gen
	}
	t.gen++
	gen := t.gen
	runCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.running = true

	ticker := t.newTicker(t.interval)
	go t.loop(runCtx, gen, ticker)
	return gen
}

// Stop cancels the current run. It does not wait for the loop goroutine, so it is
// safe to call while the tick callback is blocked on the caller's lock.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return
	}
	t.gen++
	t.running = false
	t.cancel()
}

// Live reports whether gen is the generation of the run in progress.
func (t *Timer) Live(gen uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running && t.gen == gen
}

// Running reports whether a run is in progress.
func (t *Timer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

func (t *Timer) loop(ctx context.Context, gen uint64, ticker Ticker) {
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case at := <-ticker.C():
			if !t.Live(gen) {
				return
			}
			t.fire(gen, at)
		}
	}
}
