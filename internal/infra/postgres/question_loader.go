package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/pkg/errors"

	"quiz-session-engine/internal/domain"
)

// QuestionLoader loads question sets stored as JSONB in Postgres.
type QuestionLoader struct {
	pool *pgxpool.Pool
}

func NewQuestionLoader(pool *pgxpool.Pool) *QuestionLoader {
	return &QuestionLoader{pool: pool}
}

func (l *QuestionLoader) LoadQuestionSet(ctx context.Context, setID string) (domain.QuestionSet, error) {
	var (
		subject string
		raw     []byte
	)
	err := l.pool.QueryRow(ctx, `SELECT subject, data FROM question_sets WHERE id=$1`, setID).Scan(&subject, &raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.QuestionSet{}, domain.ErrQuestionSetNotFound
	}
	if err != nil {
		return domain.QuestionSet{}, errors.Wrap(err, "load question set")
	}

	var set domain.QuestionSet
	if err := json.Unmarshal(raw, &set); err != nil {
		return domain.QuestionSet{}, errors.Wrap(err, "unmarshal question set")
	}
	set.ID = setID
	if set.Subject == "" {
		set.Subject = subject
	}
	return set, nil
}

// SaveQuestionSet upserts a question set.
func (l *QuestionLoader) SaveQuestionSet(ctx context.Context, set domain.QuestionSet) error {
	data, err := json.Marshal(set)
	if err != nil {
		return errors.Wrap(err, "marshal question set")
	}
	_, err = l.pool.Exec(ctx, `
		INSERT INTO question_sets (id, subject, data, updated_at)
		VALUES ($1, $2, $3::jsonb, now())
		ON CONFLICT (id) DO UPDATE SET subject=EXCLUDED.subject, data=EXCLUDED.data, updated_at=now()`,
		set.ID, set.Subject, string(data))
	return errors.Wrap(err, "save question set")
}
