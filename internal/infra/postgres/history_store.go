package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"

	"quiz-session-engine/internal/domain"
)

type historyRow struct {
	bun.BaseModel `bun:"table:history_entries,alias:h"`

	ID          int64     `bun:"id,pk,autoincrement"`
	SessionID   string    `bun:"session_id,notnull"`
	Subject     string    `bun:"subject,notnull"`
	Obtained    float64   `bun:"obtained"`
	Total       int       `bun:"total"`
	Percentage  float64   `bun:"percentage"`
	TimeSpent   float64   `bun:"time_spent"`
	Questions   string    `bun:"questions"`
	CompletedAt time.Time `bun:"completed_at,notnull"`
}

// HistoryStore keeps history logs in the history_entries table. Appends for one
// subject are serialised with a transaction-scoped advisory lock.
type HistoryStore struct {
	db    *bun.DB
	limit int
}

func NewHistoryStore(db *bun.DB, limit int) *HistoryStore {
	if limit <= 0 {
		limit = domain.DefaultHistoryCap
	}
	return &HistoryStore{db: db, limit: limit}
}

func (s *HistoryStore) List(ctx context.Context, subject string) ([]domain.HistoryEntry, error) {
	return s.list(ctx, s.db, subject)
}

// Append inserts entry, trims the subject log to the cap and returns the log.
// A second append for the same session id is ignored.
func (s *HistoryStore) Append(ctx context.Context, entry domain.HistoryEntry) ([]domain.HistoryEntry, error) {
	if err := entry.Validate(); err != nil {
		return nil, errors.Wrapf(err, "session %q", entry.SessionID)
	}
	questions, err := json.Marshal(entry.Questions)
	if err != nil {
		return nil, errors.Wrap(err, "encode history questions")
	}
	row := &historyRow{
		SessionID:   entry.SessionID,
		Subject:     entry.Subject,
		Obtained:    entry.Score.Obtained,
		Total:       entry.Score.Total,
		Percentage:  entry.Score.Percentage,
		TimeSpent:   entry.TimeSpent,
		Questions:   string(questions),
		CompletedAt: entry.CompletedAt,
	}

	var entries []domain.HistoryEntry
	err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext(?))", entry.Subject); err != nil {
			return errors.Wrap(err, "lock subject")
		}
		if _, err := tx.NewInsert().Model(row).On("CONFLICT (session_id) DO NOTHING").Returning("NULL").Exec(ctx); err != nil {
			return errors.Wrap(err, "insert history entry")
		}

		keep := tx.NewSelect().
			Model((*historyRow)(nil)).
			Column("id").
			Where("subject = ?", entry.Subject).
			Order("id DESC").
			Limit(s.limit)
		if _, err := tx.NewDelete().
			Model((*historyRow)(nil)).
			Where("subject = ?", entry.Subject).
			Where("id NOT IN (?)", keep).
			Exec(ctx); err != nil {
			return errors.Wrap(err, "evict history entries")
		}

		var err error
		entries, err = s.list(ctx, tx, entry.Subject)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *HistoryStore) list(ctx context.Context, db bun.IDB, subject string) ([]domain.HistoryEntry, error) {
	var rows []historyRow
	if err := db.NewSelect().Model(&rows).Where("subject = ?", subject).Order("id ASC").Scan(ctx); err != nil {
		return nil, errors.Wrap(err, "select history entries")
	}

	entries := make([]domain.HistoryEntry, 0, len(rows))
	for _, row := range rows {
		e, err := row.entry()
		if err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"subject": subject,
				"row":     row.ID,
			}).Warn("skipping malformed history record")
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (r historyRow) entry() (domain.HistoryEntry, error) {
	e := domain.HistoryEntry{
		SessionID: r.SessionID,
		Subject:   r.Subject,
		Score: domain.ScoreSummary{
			Obtained:   r.Obtained,
			Total:      r.Total,
			Percentage: r.Percentage,
		},
		TimeSpent:   r.TimeSpent,
		CompletedAt: r.CompletedAt,
	}
	if err := json.Unmarshal([]byte(r.Questions), &e.Questions); err != nil {
		return domain.HistoryEntry{}, errors.Wrap(domain.ErrMalformedHistoryEntry, err.Error())
	}
	return e, e.Validate()
}
