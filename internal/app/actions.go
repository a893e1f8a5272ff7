package app

import "time"

// Action is a session transition request. The set is closed: only the types in
// this file implement it.
type Action interface {
	action()
}

type (
	// Start moves a not-started session to active.
	Start struct{}
	// Pause stops the clock of an active session.
	Pause struct{}
	// Resume restarts the clock of a paused session.
	Resume struct{}
	// Submit finishes an active session and scores it.
	Submit struct{}

	// SelectOption chooses an option on the current question.
	SelectOption struct {
		OptionID string
	}
	// MarkForReview flags the current question.
	MarkForReview struct{}
	// UnmarkQuestion removes the review flag from the current question.
	UnmarkQuestion struct{}
	// SkipQuestion marks the current question as skipped.
	SkipQuestion struct{}
	// ClearAnswer removes the selection on the current question.
	ClearAnswer struct{}

	NextQuestion     struct{}
	PreviousQuestion struct{}
	GoToQuestion     struct {
		Index int
	}

	// Tick advances the clock to At, attributing the delta to the current question.
	Tick struct {
		At time.Time
	}
)

func (Start) action()            {}
func (Pause) action()            {}
func (Resume) action()           {}
func (Submit) action()           {}
func (SelectOption) action()     {}
func (MarkForReview) action()    {}
func (UnmarkQuestion) action()   {}
func (SkipQuestion) action()     {}
func (ClearAnswer) action()      {}
func (NextQuestion) action()     {}
func (PreviousQuestion) action() {}
func (GoToQuestion) action()     {}
func (Tick) action()             {}
