package memory

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"quiz-session-engine/internal/domain"
)

// HistoryStore keeps capped per-subject history logs in memory.
type HistoryStore struct {
	limit int

	mu   sync.RWMutex
	logs map[string][]domain.HistoryEntry
}

func NewHistoryStore(limit int) *HistoryStore {
	if limit <= 0 {
		limit = domain.DefaultHistoryCap
	}
	return &HistoryStore{limit: limit, logs: make(map[string][]domain.HistoryEntry)}
}

func (s *HistoryStore) List(_ context.Context, subject string) ([]domain.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneEntries(s.logs[subject]), nil
}

// Append adds entry to its subject log, evicting the oldest entries beyond the cap.
func (s *HistoryStore) Append(_ context.Context, entry domain.HistoryEntry) ([]domain.HistoryEntry, error) {
	if err := entry.Validate(); err != nil {
		return nil, errors.Wrapf(err, "session %q", entry.SessionID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	log := append(s.logs[entry.Subject], entry)
	if over := len(log) - s.limit; over > 0 {
		log = log[over:]
	}
	s.logs[entry.Subject] = cloneEntries(log)
	return cloneEntries(log), nil
}

func cloneEntries(in []domain.HistoryEntry) []domain.HistoryEntry {
	out := make([]domain.HistoryEntry, len(in))
	copy(out, in)
	return out
}
