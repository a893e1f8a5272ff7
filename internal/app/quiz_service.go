package app

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"quiz-session-engine/internal/domain"
)

// SessionRepository abstracts where live sessions are kept (in-memory, Redis, etc).
type SessionRepository interface {
	Put(session *Session)
	Get(sessionID string) (*Session, bool)
	Delete(sessionID string)
	// Sync is called after every transition with the latest snapshot.
	Sync(ctx context.Context, snap Snapshot)
}

// QuestionRepository loads question sets (from cache/backing store).
type QuestionRepository interface {
	GetQuestionSet(ctx context.Context, setID string) (domain.QuestionSet, error)
}

// CompletionNotifier is told about every finished session.
type CompletionNotifier interface {
	SessionCompleted(ctx context.Context, s domain.QuizSession, history *domain.HistoryLog) error
}

// StartRequest describes a new attempt.
type StartRequest struct {
	QuestionSetID string
	Subject       string               // defaults to the set's subject, then its id
	Settings      *domain.QuizSettings // defaults to the service defaults
	TimeLimit     time.Duration        // zero means untimed
}

// QuizService contains the quiz session use cases.
type QuizService struct {
	sessions  SessionRepository
	questions QuestionRepository
	history   *HistoryRecorder
	notifier  CompletionNotifier

	defaults  domain.QuizSettings
	interval  time.Duration
	newTicker TickerFactory
	now       func() time.Time
	newID     func() string

	rndMu sync.Mutex
	rnd   *rand.Rand
}

// Option customises a QuizService.
type Option func(*QuizService)

// WithDefaultSettings sets the settings used when a start request has none.
func WithDefaultSettings(settings domain.QuizSettings) Option {
	return func(s *QuizService) { s.defaults = settings }
}

// WithTicker sets the tick interval and ticker source of session timers.
func WithTicker(interval time.Duration, factory TickerFactory) Option {
	return func(s *QuizService) {
		s.interval = interval
		if factory != nil {
			s.newTicker = factory
		}
	}
}

// WithClock is test-only for deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *QuizService) { s.now = now }
}

// WithNotifier publishes completion events through n.
func WithNotifier(n CompletionNotifier) Option {
	return func(s *QuizService) { s.notifier = n }
}

// WithRand fixes the shuffle source.
func WithRand(rnd *rand.Rand) Option {
	return func(s *QuizService) { s.rnd = rnd }
}

// WithIDGenerator replaces the uuid session id generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *QuizService) { s.newID = fn }
}

func NewQuizService(store SessionRepository, questions QuestionRepository, history *HistoryRecorder, opts ...Option) *QuizService {
	s := &QuizService{
		sessions:  store,
		questions: questions,
		history:   history,
		defaults:  domain.DefaultSettings(),
		interval:  time.Second,
		newTicker: NewRealTicker,
		now:       time.Now,
		newID:     uuid.NewString,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start loads the question set, prepares it and starts a new session.
func (s *QuizService) Start(ctx context.Context, req StartRequest) (Snapshot, error) {
	set, err := s.questions.GetQuestionSet(ctx, req.QuestionSetID)
	if err != nil {
		return Snapshot{}, err
	}

	settings := s.defaults
	if req.Settings != nil {
		settings = *req.Settings
	}
	s.rndMu.Lock()
	questions := PrepareQuestions(set.Questions, settings, s.rnd)
	s.rndMu.Unlock()
	if len(questions) == 0 {
		return Snapshot{}, domain.ErrEmptyQuestionSet
	}

	subject := req.Subject
	if subject == "" {
		subject = set.Subject
	}
	if subject == "" {
		subject = set.ID
	}

	state := NewQuizSession(s.newID(), set.ID, subject, questions, settings, req.TimeLimit)
	session := NewSessionWithClock(ctx, state, s.interval, s.newTicker, SessionHooks{
		OnFinish: s.finished,
		OnChange: s.sessions.Sync,
	}, s.now)
	s.sessions.Put(session)

	snap := session.Apply(Start{})
	logrus.WithFields(logrus.Fields{
		"session":   state.ID,
		"set":       set.ID,
		"subject":   subject,
		"questions": len(questions),
		"timeLimit": req.TimeLimit.String(),
	}).Info("quiz session started")
	return snap, nil
}

// Dispatch applies one action to a live session. Actions that do not apply to the
// session's current state are ignored and return the unchanged snapshot.
func (s *QuizService) Dispatch(_ context.Context, sessionID string, a Action) (Snapshot, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return Snapshot{}, domain.ErrSessionNotFound
	}
	return session.Apply(a), nil
}

// Submit finishes the session. Submitting a finished session is a no-op.
func (s *QuizService) Submit(ctx context.Context, sessionID string) (Snapshot, error) {
	return s.Dispatch(ctx, sessionID, Submit{})
}

// Snapshot returns the current view of a live session.
func (s *QuizService) Snapshot(_ context.Context, sessionID string) (Snapshot, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return Snapshot{}, domain.ErrSessionNotFound
	}
	return session.Snapshot(), nil
}

// Subscribe returns a channel that receives a snapshot after every transition.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *QuizService) Subscribe(_ context.Context, sessionID string) (<-chan Snapshot, func(), error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	ch, cancel := session.subscribe()
	return ch, cancel, nil
}

// Close tears a session down: its timer stops and it is dropped from the store.
func (s *QuizService) Close(_ context.Context, sessionID string) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return
	}
	session.Close()
	s.sessions.Delete(sessionID)
}

// History returns a subject's history log and aggregate.
func (s *QuizService) History(ctx context.Context, subject string) (domain.HistoryLog, error) {
	if s.history == nil {
		return domain.HistoryLog{Subject: subject}, nil
	}
	return s.history.Get(ctx, subject)
}

// finished runs on the active -> finished edge. Persistence and notification
// failures are logged; the score stays available either way.
func (s *QuizService) finished(ctx context.Context, qs domain.QuizSession) *domain.HistoryLog {
	logger := logrus.WithFields(logrus.Fields{
		"session": qs.ID,
		"subject": qs.Subject,
	})
	if qs.Score != nil {
		logger.WithFields(logrus.Fields{
			"percentage": qs.Score.Percentage,
			"passed":     qs.Score.Passed,
		}).Info("quiz session finished")
	}

	var history *domain.HistoryLog
	if s.history != nil {
		log, err := s.history.Record(ctx, qs)
		if err != nil {
			logger.WithError(err).Warn("history not recorded")
		} else {
			history = &log
		}
	}
	if s.notifier != nil {
		if err := s.notifier.SessionCompleted(ctx, qs, history); err != nil {
			logger.WithError(err).Warn("completion event not published")
		}
	}
	return history
}
