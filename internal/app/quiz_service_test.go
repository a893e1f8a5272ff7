package app_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quiz-session-engine/internal/app"
	"quiz-session-engine/internal/domain"
	"quiz-session-engine/internal/infra/memory"
)

type fixture struct {
	service *app.QuizService
	store   *memory.SessionStore
	history *memory.HistoryStore
	tickers *fakeTickers
}

func testSets() map[string]domain.QuestionSet {
	return map[string]domain.QuestionSet{
		"set-1": {ID: "set-1", Subject: "math", Questions: questionList(3)},
		"bare":  {ID: "bare", Questions: questionList(1)},
		"empty": {ID: "empty", Subject: "math"},
	}
}

func newFixture(t *testing.T, recorder *app.HistoryRecorder, opts ...app.Option) fixture {
	t.Helper()
	f := fixture{
		store:   memory.NewSessionStore(),
		history: memory.NewHistoryStore(domain.DefaultHistoryCap),
		tickers: newFakeTickers(),
	}
	if recorder == nil {
		recorder = app.NewHistoryRecorder(f.history)
	}
	var seq int
	base := []app.Option{
		app.WithTicker(time.Second, f.tickers.factory),
		app.WithClock(fixedClock(t0)),
		app.WithDefaultSettings(plainSettings()),
		app.WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("s-%02d", seq)
		}),
	}
	questions := memory.NewQuestionRepository(memory.NewStaticQuestionLoader(testSets()), time.Minute)
	f.service = app.NewQuizService(f.store, questions, recorder, append(base, opts...)...)
	return f
}

func TestServiceStartDispatchSubmit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	snap, err := f.service.Start(ctx, app.StartRequest{QuestionSetID: "set-1"})
	require.NoError(t, err)
	id := snap.Session.ID
	assert.Equal(t, "s-01", id)
	assert.Equal(t, domain.StateActive, snap.Session.State)
	assert.Equal(t, "math", snap.Session.Subject)
	assert.Equal(t, 3, snap.Navigation.TotalQuestions)
	assert.Equal(t, 1, f.tickers.count())

	snap, err = f.service.Dispatch(ctx, id, app.SelectOption{OptionID: "o1"})
	require.NoError(t, err)
	assert.True(t, snap.Navigation.CanSubmit)

	snap, err = f.service.Submit(ctx, id)
	require.NoError(t, err)
	require.Equal(t, domain.StateFinished, snap.Session.State)
	require.NotNil(t, snap.Session.Score)
	assert.Equal(t, 1, snap.Session.Score.Correct)
	require.NotNil(t, snap.History)
	assert.Len(t, snap.History.Entries, 1)

	session, ok := f.store.Get(id)
	require.True(t, ok)
	assert.False(t, session.TimerRunning())
}

func TestServiceDoubleSubmitRecordsOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	snap, err := f.service.Start(ctx, app.StartRequest{QuestionSetID: "set-1"})
	require.NoError(t, err)
	first, err := f.service.Submit(ctx, snap.Session.ID)
	require.NoError(t, err)
	second, err := f.service.Submit(ctx, snap.Session.ID)
	require.NoError(t, err)

	assert.Same(t, first.Session.Score, second.Session.Score)
	entries, err := f.history.List(ctx, "math")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestServiceAutoSubmitsAtTimeLimit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	snap, err := f.service.Start(ctx, app.StartRequest{QuestionSetID: "set-1", TimeLimit: 60 * time.Second})
	require.NoError(t, err)
	id := snap.Session.ID
	_, err = f.service.Dispatch(ctx, id, app.SelectOption{OptionID: "o1"})
	require.NoError(t, err)

	tk := <-f.tickers.next
	for i := 1; i <= 60; i++ {
		tk.ch <- t0.Add(time.Duration(i) * time.Second)
	}

	require.Eventually(t, func() bool {
		snap, err := f.service.Snapshot(ctx, id)
		return err == nil && snap.Session.State == domain.StateFinished
	}, time.Second, 5*time.Millisecond)

	snap, err = f.service.Snapshot(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, snap.Session.Score)
	assert.Equal(t, 60*time.Second, snap.Session.Elapsed)
	assert.Equal(t, 1, snap.Session.Score.Correct)
	assert.Equal(t, 2, snap.Session.Score.Unanswered)
	assert.Equal(t, 60.0, snap.Session.Score.TotalTimeSpent)
	require.NotNil(t, snap.Timer.Remaining)
	assert.Zero(t, *snap.Timer.Remaining)

	entries, err := f.history.List(ctx, "math")
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	// A late manual submit is rejected by the terminal state.
	_, err = f.service.Submit(ctx, id)
	require.NoError(t, err)
	entries, _ = f.history.List(ctx, "math")
	assert.Len(t, entries, 1)
}

func TestServicePauseStopsTimer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	snap, err := f.service.Start(ctx, app.StartRequest{QuestionSetID: "set-1", TimeLimit: time.Minute})
	require.NoError(t, err)
	id := snap.Session.ID
	session, _ := f.store.Get(id)

	snap, err = f.service.Dispatch(ctx, id, app.Pause{})
	require.NoError(t, err)
	assert.Equal(t, domain.StatePaused, snap.Session.State)
	assert.False(t, session.TimerRunning())

	snap, err = f.service.Dispatch(ctx, id, app.Resume{})
	require.NoError(t, err)
	assert.Equal(t, domain.StateActive, snap.Session.State)
	assert.True(t, session.TimerRunning())
	assert.Equal(t, 2, f.tickers.count())
}

func TestServiceHistoryCap(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	var last app.Snapshot
	for i := 0; i < 51; i++ {
		snap, err := f.service.Start(ctx, app.StartRequest{QuestionSetID: "set-1"})
		require.NoError(t, err)
		last, err = f.service.Submit(ctx, snap.Session.ID)
		require.NoError(t, err)
		f.service.Close(ctx, snap.Session.ID)
	}

	require.NotNil(t, last.History)
	require.Len(t, last.History.Entries, 50)
	assert.Equal(t, "s-02", last.History.Entries[0].SessionID)
	assert.Equal(t, "s-51", last.History.Entries[49].SessionID)

	log, err := f.service.History(ctx, "math")
	require.NoError(t, err)
	assert.Equal(t, 50, log.Aggregate.TotalAttempts)
}

func TestServiceHistoryFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, app.NewHistoryRecorder(failingHistory{}))

	snap, err := f.service.Start(ctx, app.StartRequest{QuestionSetID: "set-1"})
	require.NoError(t, err)
	snap, err = f.service.Submit(ctx, snap.Session.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.StateFinished, snap.Session.State)
	assert.NotNil(t, snap.Session.Score)
	assert.Nil(t, snap.History)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) SessionCompleted(_ context.Context, s domain.QuizSession, history *domain.HistoryLog) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, fmt.Sprintf("%s:%d", s.ID, len(history.Entries)))
	return nil
}

func TestServiceNotifiesCompletion(t *testing.T) {
	ctx := context.Background()
	notifier := &recordingNotifier{}
	f := newFixture(t, nil, app.WithNotifier(notifier))

	snap, err := f.service.Start(ctx, app.StartRequest{QuestionSetID: "set-1"})
	require.NoError(t, err)
	_, err = f.service.Submit(ctx, snap.Session.ID)
	require.NoError(t, err)
	_, err = f.service.Submit(ctx, snap.Session.ID)
	require.NoError(t, err)

	assert.Equal(t, []string{"s-01:1"}, notifier.events)
}

func TestServiceStartErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	_, err := f.service.Start(ctx, app.StartRequest{QuestionSetID: "missing"})
	assert.ErrorIs(t, err, domain.ErrQuestionSetNotFound)

	_, err = f.service.Start(ctx, app.StartRequest{QuestionSetID: "empty"})
	assert.ErrorIs(t, err, domain.ErrEmptyQuestionSet)
	assert.Zero(t, f.store.Len())
}

func TestServiceStartOptions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	settings := plainSettings()
	settings.QuestionsPerSession = 2
	snap, err := f.service.Start(ctx, app.StartRequest{QuestionSetID: "set-1", Subject: "algebra", Settings: &settings})
	require.NoError(t, err)
	assert.Len(t, snap.Session.Attempts, 2)
	assert.Equal(t, "algebra", snap.Session.Subject)

	snap, err = f.service.Start(ctx, app.StartRequest{QuestionSetID: "bare"})
	require.NoError(t, err)
	assert.Equal(t, "bare", snap.Session.Subject)
}

func TestServiceUnknownSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	_, err := f.service.Dispatch(ctx, "nope", app.NextQuestion{})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	_, err = f.service.Snapshot(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	_, _, err = f.service.Subscribe(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestServiceSubscribeAndClose(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	snap, err := f.service.Start(ctx, app.StartRequest{QuestionSetID: "set-1"})
	require.NoError(t, err)
	id := snap.Session.ID

	updates, cancel, err := f.service.Subscribe(ctx, id)
	require.NoError(t, err)
	defer cancel()

	initial := <-updates
	assert.Equal(t, 0, initial.Navigation.CurrentIndex)

	_, err = f.service.Dispatch(ctx, id, app.NextQuestion{})
	require.NoError(t, err)
	moved := <-updates
	assert.Equal(t, 1, moved.Navigation.CurrentIndex)

	f.service.Close(ctx, id)
	_, ok := <-updates
	assert.False(t, ok)
	assert.Zero(t, f.store.Len())

	_, err = f.service.Dispatch(ctx, id, app.NextQuestion{})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}
