package domain

import "github.com/pkg/errors"

// SessionState is the lifecycle state of a quiz session.
type SessionState uint8

const (
	StateNotStarted SessionState = iota
	StateActive
	StatePaused
	StateFinished
)

var sessionStateNames = [...]string{
	StateNotStarted: "not-started",
	StateActive:     "active",
	StatePaused:     "paused",
	StateFinished:   "finished",
}

func (s SessionState) String() string {
	if int(s) < len(sessionStateNames) {
		return sessionStateNames[s]
	}
	return "unknown"
}

func (s SessionState) MarshalText() ([]byte, error) {
	if int(s) >= len(sessionStateNames) {
		return nil, errors.Errorf("invalid session state %d", s)
	}
	return []byte(s.String()), nil
}

func (s *SessionState) UnmarshalText(text []byte) error {
	for i, name := range sessionStateNames {
		if name == string(text) {
			*s = SessionState(i)
			return nil
		}
	}
	return errors.Errorf("unknown session state %q", text)
}

// QuestionStatus is the interaction status of one question within a session.
type QuestionStatus uint8

const (
	StatusNotAnswered QuestionStatus = iota
	StatusAnswered
	StatusMarked
	StatusAnsweredMarked
	StatusSkipped
)

var questionStatusNames = [...]string{
	StatusNotAnswered:    "not-answered",
	StatusAnswered:       "answered",
	StatusMarked:         "marked",
	StatusAnsweredMarked: "answered-marked",
	StatusSkipped:        "skipped",
}

func (s QuestionStatus) String() string {
	if int(s) < len(questionStatusNames) {
		return questionStatusNames[s]
	}
	return "unknown"
}

// IsMarked reports whether the status carries a review mark.
func (s QuestionStatus) IsMarked() bool {
	return s == StatusMarked || s == StatusAnsweredMarked
}

// IsAnswered reports whether the status counts as answered for navigation.
func (s QuestionStatus) IsAnswered() bool {
	return s == StatusAnswered || s == StatusAnsweredMarked
}

func (s QuestionStatus) MarshalText() ([]byte, error) {
	if int(s) >= len(questionStatusNames) {
		return nil, errors.Errorf("invalid question status %d", s)
	}
	return []byte(s.String()), nil
}

func (s *QuestionStatus) UnmarshalText(text []byte) error {
	for i, name := range questionStatusNames {
		if name == string(text) {
			*s = QuestionStatus(i)
			return nil
		}
	}
	return errors.Errorf("unknown question status %q", text)
}
