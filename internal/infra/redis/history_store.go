package redis

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"quiz-session-engine/internal/domain"
)

// HistoryStore keeps each subject's history as a Redis list at history:{subject}.
// Append pushes and trims inside one MULTI so the cap holds across processes.
type HistoryStore struct {
	client *redis.Client
	limit  int
}

func NewHistoryStore(client *redis.Client, limit int) *HistoryStore {
	if limit <= 0 {
		limit = domain.DefaultHistoryCap
	}
	return &HistoryStore{client: client, limit: limit}
}

func (s *HistoryStore) List(ctx context.Context, subject string) ([]domain.HistoryEntry, error) {
	raw, err := s.client.LRange(ctx, s.key(subject), 0, -1).Result()
	if err != nil {
		return nil, errors.Wrap(err, "lrange history")
	}
	return decodeEntries(subject, raw), nil
}

func (s *HistoryStore) Append(ctx context.Context, entry domain.HistoryEntry) ([]domain.HistoryEntry, error) {
	if err := entry.Validate(); err != nil {
		return nil, errors.Wrapf(err, "session %q", entry.SessionID)
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return nil, errors.Wrap(err, "encode history entry")
	}

	key := s.key(entry.Subject)
	var lrange *redis.StringSliceCmd
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, data)
		pipe.LTrim(ctx, key, int64(-s.limit), -1)
		lrange = pipe.LRange(ctx, key, 0, -1)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "append history")
	}
	return decodeEntries(entry.Subject, lrange.Val()), nil
}

func (s *HistoryStore) key(subject string) string {
	return "history:" + subject
}

// decodeEntries skips records that do not parse or validate instead of failing the load.
func decodeEntries(subject string, raw []string) []domain.HistoryEntry {
	entries := make([]domain.HistoryEntry, 0, len(raw))
	for i, item := range raw {
		var e domain.HistoryEntry
		err := json.Unmarshal([]byte(item), &e)
		if err == nil {
			err = e.Validate()
		}
		if err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"subject":  subject,
				"position": i,
			}).Warn("skipping malformed history record")
			continue
		}
		entries = append(entries, e)
	}
	return entries
}
