package app_test

import (
	"fmt"
	"sync"
	"time"

	"quiz-session-engine/internal/app"
	"quiz-session-engine/internal/domain"
)

var t0 = time.Date(2024, 11, 22, 9, 0, 0, 0, time.UTC)

// mcq builds a question whose options are o1..oN with answer as the correct one.
func mcq(id, answer string, n int) domain.Question {
	q := domain.Question{ID: id, Prompt: "prompt " + id, Answer: answer, Topic: "topic-" + id, Explanation: "because " + id}
	for i := 1; i <= n; i++ {
		q.Options = append(q.Options, domain.Option{ID: fmt.Sprintf("o%d", i), Text: fmt.Sprintf("option %d", i)})
	}
	return q
}

// questionList returns n questions, each answered correctly by o1.
func questionList(n int) []domain.Question {
	out := make([]domain.Question, n)
	for i := range out {
		out[i] = mcq(fmt.Sprintf("q%d", i+1), "o1", 4)
	}
	return out
}

func plainSettings() domain.QuizSettings {
	s := domain.DefaultSettings()
	s.NegativeMarking = false
	return s
}

func activeSession(n int, settings domain.QuizSettings, limit time.Duration) domain.QuizSession {
	s := app.NewQuizSession("s1", "set-1", "math", questionList(n), settings, limit)
	return app.Reduce(s, app.Start{}, t0)
}

// apply runs actions in order, each one second after the previous.
func apply(s domain.QuizSession, actions ...app.Action) domain.QuizSession {
	at := t0
	for _, a := range actions {
		at = at.Add(time.Second)
		s = app.Reduce(s, a, at)
	}
	return s
}

// answerAll selects an option for each question: the correct one when correct[i] is true,
// a wrong one otherwise. Questions past len(correct) are left untouched.
func answerAll(s domain.QuizSession, correct []bool) domain.QuizSession {
	for i, ok := range correct {
		opt := "o2"
		if ok {
			opt = "o1"
		}
		s = apply(s, app.GoToQuestion{Index: i}, app.SelectOption{OptionID: opt})
	}
	return s
}

type fakeTicker struct {
	ch chan time.Time
}

func (f *fakeTicker) C() <-chan time.Time { return f.ch }
func (f *fakeTicker) Stop()               {}

// fakeTickers is a TickerFactory whose tickers are fired by hand.
type fakeTickers struct {
	mu      sync.Mutex
	created []*fakeTicker
	next    chan *fakeTicker
}

func newFakeTickers() *fakeTickers {
	return &fakeTickers{next: make(chan *fakeTicker, 64)}
}

func (f *fakeTickers) factory(time.Duration) app.Ticker {
	t := &fakeTicker{ch: make(chan time.Time)}
	f.mu.Lock()
	f.created = append(f.created, t)
	f.mu.Unlock()
	f.next <- t
	return t
}

func (f *fakeTickers) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}
