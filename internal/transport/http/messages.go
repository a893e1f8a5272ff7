package http

import (
	"encoding/json"

	"quiz-session-engine/internal/app"
	"quiz-session-engine/internal/domain"
)

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type selectPayload struct {
	OptionID string `json:"optionId"`
}

type gotoPayload struct {
	Index int `json:"index"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type resultPayload struct {
	SessionID string                   `json:"sessionId"`
	Score     *domain.QuizScore        `json:"score"`
	Aggregate *domain.HistoryAggregate `json:"aggregate,omitempty"`
}

type optionView struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type questionView struct {
	ID               string       `json:"id"`
	Prompt           string       `json:"prompt"`
	Options          []optionView `json:"options"`
	Status           string       `json:"status"`
	SelectedOptionID string       `json:"selectedOptionId,omitempty"`
	AttemptsCount    int          `json:"attemptsCount"`
	TimeSpent        float64      `json:"timeSpent"`
	CorrectOptionID  string       `json:"correctOptionId,omitempty"`
	Explanation      string       `json:"explanation,omitempty"`
}

type snapshotView struct {
	SessionID    string            `json:"sessionId"`
	Subject      string            `json:"subject"`
	State        string            `json:"state"`
	CurrentIndex int               `json:"currentQuestionIndex"`
	Questions    []questionView    `json:"questions"`
	Navigation   app.Navigation    `json:"navigation"`
	Timer        app.TimerView     `json:"timer"`
	Score        *domain.QuizScore `json:"score,omitempty"`
}

// newSnapshotView renders a snapshot for clients. Answers and explanations are
// withheld until the session is finished.
func newSnapshotView(snap app.Snapshot) snapshotView {
	s := snap.Session
	finished := s.State == domain.StateFinished
	questions := make([]questionView, 0, len(s.Attempts))
	for _, at := range s.Attempts {
		opts := make([]optionView, 0, len(at.Question.Options))
		for _, o := range at.Question.Options {
			opts = append(opts, optionView{ID: o.ID, Text: o.Text})
		}
		q := questionView{
			ID:               at.Question.ID,
			Prompt:           at.Question.Prompt,
			Options:          opts,
			Status:           at.Status.String(),
			SelectedOptionID: at.SelectedOption(),
			AttemptsCount:    at.AttemptsCount,
			TimeSpent:        at.TimeSpent.Seconds(),
		}
		if finished {
			q.CorrectOptionID = at.Question.CorrectOption()
			if s.Settings.ShowExplanations {
				q.Explanation = at.Question.Explanation
			}
		}
		questions = append(questions, q)
	}
	return snapshotView{
		SessionID:    s.ID,
		Subject:      s.Subject,
		State:        s.State.String(),
		CurrentIndex: s.CurrentIndex,
		Questions:    questions,
		Navigation:   snap.Navigation,
		Timer:        snap.Timer,
		Score:        s.Score,
	}
}
