package app

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"quiz-session-engine/internal/domain"
)

// Session is the live, in-process owner of one quiz aggregate. It applies one
// transition at a time, drives the session timer and fans snapshots out to
// subscribers.
type Session struct {
	id  string
	now func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	state       domain.QuizSession
	history     *domain.HistoryLog
	timer       *Timer
	closed      bool
	subscribers map[chan Snapshot]struct{}

	onFinish func(ctx context.Context, s domain.QuizSession) *domain.HistoryLog
	onChange func(ctx context.Context, snap Snapshot)
}

// SessionHooks are callbacks invoked under the session lock.
type SessionHooks struct {
	// OnFinish runs once, on the active -> finished edge.
	OnFinish func(ctx context.Context, s domain.QuizSession) *domain.HistoryLog
	// OnChange runs after every applied transition.
	OnChange func(ctx context.Context, snap Snapshot)
}

// NewSession wraps a not-started aggregate. Timer-driven transitions run with a
// context derived from ctx that survives its cancellation but ends on Close.
func NewSession(ctx context.Context, state domain.QuizSession, interval time.Duration, newTicker TickerFactory, hooks SessionHooks) *Session {
	return NewSessionWithClock(ctx, state, interval, newTicker, hooks, time.Now)
}

// NewSessionWithClock allows deterministic timestamps in tests.
func NewSessionWithClock(ctx context.Context, state domain.QuizSession, interval time.Duration, newTicker TickerFactory, hooks SessionHooks, now func() time.Time) *Session {
	base, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s := &Session{
		id:          state.ID,
		now:         now,
		ctx:         base,
		cancel:      cancel,
		state:       state,
		subscribers: make(map[chan Snapshot]struct{}),
		onFinish:    hooks.OnFinish,
		onChange:    hooks.OnChange,
	}
	s.timer = NewTimer(interval, newTicker, s.tick)
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Apply runs one transition and returns the resulting snapshot. Transitions
// against a closed session are ignored.
func (s *Session) Apply(a Action) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return s.snapshotLocked()
	}
	return s.applyLocked(a, s.now())
}

// Snapshot returns the current view without transitioning.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// TimerRunning reports whether the session clock is ticking.
func (s *Session) TimerRunning() bool {
	return s.timer.Running()
}

func (s *Session) tick(gen uint64, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || !s.timer.Live(gen) {
		return
	}
	prev := s.state.State
	snap := s.applyLocked(Tick{At: at}, at)
	if prev != domain.StateFinished && snap.Session.State == domain.StateFinished {
		logrus.WithFields(logrus.Fields{
			"session": s.id,
			"elapsed": snap.Timer.Elapsed,
		}).Info("time limit reached, session auto-submitted")
	}
}

func (s *Session) applyLocked(a Action, now time.Time) Snapshot {
	prev := s.state
	next := Reduce(prev, a, now)
	s.state = next

	switch {
	case next.State == domain.StateActive && prev.State != domain.StateActive:
		s.timer.Start(s.ctx)
	case prev.State == domain.StateActive && next.State != domain.StateActive:
		s.timer.Stop()
	}

	if prev.State != domain.StateFinished && next.State == domain.StateFinished && s.onFinish != nil {
		s.history = s.onFinish(s.ctx, next)
	}

	snap := s.broadcastLocked()
	if s.onChange != nil {
		s.onChange(s.ctx, snap)
	}
	return snap
}

// Close stops the timer and releases subscribers. It is safe to call repeatedly.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.timer.Stop()
	s.cancel()
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}

func (s *Session) subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 8)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.subscribers[ch] = struct{}{}
	ch <- s.snapshotLocked()
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) broadcastLocked() Snapshot {
	snap := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// Slow subscriber: drop its oldest snapshot so the newest always lands.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
	return snap
}

func (s *Session) snapshotLocked() Snapshot {
	return newSnapshot(s.state, s.history, s.now())
}
