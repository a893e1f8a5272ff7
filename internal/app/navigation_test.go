package app_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quiz-session-engine/internal/app"
)

func TestDeriveNavigation(t *testing.T) {
	s := activeSession(3, plainSettings(), 0)

	nav := app.DeriveNavigation(s)
	assert.True(t, nav.CanGoNext)
	assert.False(t, nav.CanGoPrevious)
	assert.False(t, nav.CanSubmit)
	assert.Equal(t, 3, nav.TotalQuestions)

	s = apply(s,
		app.SelectOption{OptionID: "o1"}, app.MarkForReview{},
		app.NextQuestion{}, app.SkipQuestion{},
		app.NextQuestion{},
	)
	nav = app.DeriveNavigation(s)
	assert.False(t, nav.CanGoNext)
	assert.True(t, nav.CanGoPrevious)
	assert.True(t, nav.CanSubmit)
	assert.Equal(t, 2, nav.CurrentIndex)
	assert.Equal(t, 1, nav.Answered)
	assert.Equal(t, 1, nav.Marked)
	assert.Equal(t, 1, nav.Skipped)
}

func TestCanSubmitRequiresActive(t *testing.T) {
	s := apply(activeSession(2, plainSettings(), 0), app.SelectOption{OptionID: "o1"}, app.Pause{})
	assert.False(t, app.DeriveNavigation(s).CanSubmit)
}

func TestDeriveTimer(t *testing.T) {
	untimed := activeSession(1, plainSettings(), 0)
	view := app.DeriveTimer(untimed)
	assert.Nil(t, view.Remaining)
	assert.True(t, view.Running)

	timed := activeSession(1, plainSettings(), 30*time.Second)
	timed = app.Reduce(timed, app.Tick{At: t0.Add(12 * time.Second)}, t0.Add(12*time.Second))
	view = app.DeriveTimer(timed)
	require.NotNil(t, view.Remaining)
	assert.Equal(t, 18.0, *view.Remaining)
	assert.Equal(t, 12.0, view.Elapsed)
	assert.Equal(t, 30.0, view.Limit)

	timed = app.Reduce(timed, app.Tick{At: t0.Add(45 * time.Second)}, t0.Add(45*time.Second))
	view = app.DeriveTimer(timed)
	require.NotNil(t, view.Remaining)
	assert.Zero(t, *view.Remaining)
	assert.False(t, view.Running)
}
