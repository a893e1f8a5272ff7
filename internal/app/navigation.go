package app

import (
	"time"

	"quiz-session-engine/internal/domain"
)

// Navigation is the UI-facing view derived from a session snapshot.
type Navigation struct {
	CanGoNext      bool `json:"canGoNext"`
	CanGoPrevious  bool `json:"canGoPrevious"`
	CanSubmit      bool `json:"canSubmit"`
	CurrentIndex   int  `json:"currentIndex"`
	TotalQuestions int  `json:"totalQuestions"`
	Answered       int  `json:"answered"`
	Marked         int  `json:"marked"`
	Skipped        int  `json:"skipped"`
}

// DeriveNavigation computes navigation flags and counts for s.
func DeriveNavigation(s domain.QuizSession) Navigation {
	total := len(s.Attempts)
	nav := Navigation{
		CurrentIndex:   s.CurrentIndex,
		TotalQuestions: total,
		CanGoNext:      total > 0 && s.CurrentIndex < total-1,
		CanGoPrevious:  total > 0 && s.CurrentIndex > 0,
	}
	for _, at := range s.Attempts {
		if at.Status.IsAnswered() {
			nav.Answered++
		}
		if at.Status.IsMarked() {
			nav.Marked++
		}
		if at.Status == domain.StatusSkipped {
			nav.Skipped++
		}
	}
	nav.CanSubmit = s.State == domain.StateActive && nav.Answered > 0
	return nav
}

// TimerView reports the session clock in seconds.
type TimerView struct {
	Elapsed   float64  `json:"timeElapsed"`
	Limit     float64  `json:"totalTimeLimit,omitempty"`
	Remaining *float64 `json:"timeRemaining,omitempty"`
	Running   bool     `json:"running"`
}

// DeriveTimer computes the clock view for s. Remaining is only set for timed sessions
// and never drops below zero.
func DeriveTimer(s domain.QuizSession) TimerView {
	view := TimerView{
		Elapsed: s.Elapsed.Seconds(),
		Running: s.State == domain.StateActive,
	}
	if s.TimeLimit > 0 {
		remaining := s.TimeLimit - s.Elapsed
		if remaining < 0 {
			remaining = 0
		}
		secs := remaining.Seconds()
		view.Limit = s.TimeLimit.Seconds()
		view.Remaining = &secs
	}
	return view
}

// Snapshot is one consistent view of a session, produced after every transition.
type Snapshot struct {
	Session    domain.QuizSession `json:"session"`
	Navigation Navigation         `json:"navigation"`
	Timer      TimerView          `json:"timer"`
	History    *domain.HistoryLog `json:"history,omitempty"`
	At         time.Time          `json:"at"`
}

func newSnapshot(s domain.QuizSession, history *domain.HistoryLog, at time.Time) Snapshot {
	return Snapshot{
		Session:    s,
		Navigation: DeriveNavigation(s),
		Timer:      DeriveTimer(s),
		History:    history,
		At:         at,
	}
}
