package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"quiz-session-engine/internal/app"
	"quiz-session-engine/internal/domain"
)

func TestSessionStoreSyncsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewSessionStore(newClient(mr), time.Minute)

	state := app.NewQuizSession("s-1", "set-1", "math", sampleSet().Questions, domain.DefaultSettings(), 0)
	session := app.NewSession(context.Background(), state, time.Hour, nil, app.SessionHooks{OnChange: store.Sync})
	defer session.Close()
	store.Put(session)

	session.Apply(app.Start{})
	session.Apply(app.SelectOption{OptionID: "o2"})
	if !mr.Exists("quiz:session:s-1") {
		t.Fatalf("expected redis key to be set")
	}
	if ttl := mr.TTL("quiz:session:s-1"); ttl != time.Minute {
		t.Fatalf("expected ttl of one minute, got %v", ttl)
	}

	snap, err := store.Load(context.Background(), "s-1")
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if snap.Session.State != domain.StateActive {
		t.Fatalf("expected active state, got %v", snap.Session.State)
	}
	if snap.Navigation.Answered != 1 {
		t.Fatalf("expected 1 answered, got %d", snap.Navigation.Answered)
	}

	store.Delete("s-1")
	if mr.Exists("quiz:session:s-1") {
		t.Fatalf("expected redis key to be removed")
	}
	if _, ok := store.Get("s-1"); ok {
		t.Fatalf("expected session removed")
	}
}
