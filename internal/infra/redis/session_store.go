package redis

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"quiz-session-engine/internal/app"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Notes:
//   - Live sessions stay in a local map; the timer and subscriber fan-out are
//     in-process.
//   - Every transition writes the latest snapshot to quiz:session:{id} with a TTL,
//     so other processes can observe progress and a crashed host leaves a trace.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) Put(session *app.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID()] = session
}

func (s *SessionStore) Get(sessionID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	return session, ok
}

func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	// best-effort cleanup
	_ = s.client.Del(context.Background(), s.key(sessionID)).Err()
}

// Sync stores the snapshot JSON. Failures are logged and otherwise ignored.
func (s *SessionStore) Sync(ctx context.Context, snap app.Snapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		logrus.WithError(err).WithField("session", snap.Session.ID).Warn("encode session snapshot")
		return
	}
	if err := s.client.Set(ctx, s.key(snap.Session.ID), data, s.ttl).Err(); err != nil {
		logrus.WithError(err).WithField("session", snap.Session.ID).Warn("store session snapshot")
	}
}

// Load returns the last stored snapshot for sessionID.
func (s *SessionStore) Load(ctx context.Context, sessionID string) (app.Snapshot, error) {
	var snap app.Snapshot
	data, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		return snap, err
	}
	err = json.Unmarshal(data, &snap)
	return snap, err
}

func (s *SessionStore) key(sessionID string) string {
	return "quiz:session:" + sessionID
}
