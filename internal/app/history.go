package app

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"quiz-session-engine/internal/domain"
)

// HistoryRepository stores capped per-subject history logs. Implementations enforce
// the cap on Append (oldest entries evicted first) and skip malformed records on read.
type HistoryRepository interface {
	List(ctx context.Context, subject string) ([]domain.HistoryEntry, error)
	Append(ctx context.Context, entry domain.HistoryEntry) ([]domain.HistoryEntry, error)
}

// minEntriesForTrend is the smallest log that reports a non-zero improvement rate.
const minEntriesForTrend = 4

// Summarize computes the aggregate over an insertion-ordered history log.
func Summarize(entries []domain.HistoryEntry) domain.HistoryAggregate {
	agg := domain.HistoryAggregate{TotalAttempts: len(entries)}
	if len(entries) == 0 {
		return agg
	}

	var sum float64
	for i, e := range entries {
		sum += e.Score.Percentage
		agg.TotalTimeSpent += e.TimeSpent
		if i == 0 || e.Score.Percentage > agg.BestScore {
			agg.BestScore = e.Score.Percentage
		}
	}
	agg.AverageScore = sum / float64(len(entries))
	agg.ImprovementRate = improvementRate(entries)
	return agg
}

func improvementRate(entries []domain.HistoryEntry) float64 {
	if len(entries) < minEntriesForTrend {
		return 0
	}
	half := len(entries) / 2
	first := averagePercentage(entries[:half])
	second := averagePercentage(entries[half:])
	if first == 0 {
		return 0
	}
	return (second - first) / first * 100
}

func averagePercentage(entries []domain.HistoryEntry) float64 {
	if len(entries) == 0 {
		return 0
	}
	var sum float64
	for _, e := range entries {
		sum += e.Score.Percentage
	}
	return sum / float64(len(entries))
}

// NewHistoryEntry extracts the history record of a finished session.
func NewHistoryEntry(s domain.QuizSession) (domain.HistoryEntry, error) {
	if s.State != domain.StateFinished || s.Score == nil || s.FinishedAt == nil {
		return domain.HistoryEntry{}, errors.Errorf("session %s is not finished", s.ID)
	}
	if s.Subject == "" {
		return domain.HistoryEntry{}, domain.ErrMissingSubject
	}

	questions := make([]domain.QuestionOutcome, 0, len(s.Score.Breakdown))
	for i, row := range s.Score.Breakdown {
		topic := ""
		if i < len(s.Attempts) {
			topic = s.Attempts[i].Question.Topic
		}
		questions = append(questions, domain.QuestionOutcome{
			QuestionID: row.QuestionID,
			Topic:      topic,
			IsCorrect:  row.IsCorrect,
			TimeSpent:  row.TimeSpent,
		})
	}

	return domain.HistoryEntry{
		SessionID: s.ID,
		Subject:   s.Subject,
		Score: domain.ScoreSummary{
			Obtained:   s.Score.RawScore,
			Total:      s.Score.TotalQuestions,
			Percentage: s.Score.Percentage,
		},
		TimeSpent:   s.Score.TotalTimeSpent,
		Questions:   questions,
		CompletedAt: *s.FinishedAt,
	}, nil
}

// HistoryRecorder appends finished sessions to their subject log and recomputes
// the aggregate over the whole log. Access is serialised per subject key.
type HistoryRecorder struct {
	repo HistoryRepository

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewHistoryRecorder(repo HistoryRepository) *HistoryRecorder {
	return &HistoryRecorder{repo: repo, locks: make(map[string]*sync.Mutex)}
}

// Record persists the finished session and returns the subject's updated log.
func (r *HistoryRecorder) Record(ctx context.Context, s domain.QuizSession) (domain.HistoryLog, error) {
	entry, err := NewHistoryEntry(s)
	if err != nil {
		return domain.HistoryLog{}, err
	}

	unlock := r.lock(entry.Subject)
	defer unlock()

	entries, err := r.repo.Append(ctx, entry)
	if err != nil {
		return domain.HistoryLog{}, errors.Wrapf(err, "append history for %s", entry.Subject)
	}
	logrus.WithFields(logrus.Fields{
		"session": s.ID,
		"subject": entry.Subject,
		"entries": len(entries),
	}).Debug("history recorded")
	return domain.HistoryLog{Subject: entry.Subject, Entries: entries, Aggregate: Summarize(entries)}, nil
}

// Get loads a subject's log with its aggregate.
func (r *HistoryRecorder) Get(ctx context.Context, subject string) (domain.HistoryLog, error) {
	if subject == "" {
		return domain.HistoryLog{}, domain.ErrMissingSubject
	}
	unlock := r.lock(subject)
	defer unlock()

	entries, err := r.repo.List(ctx, subject)
	if err != nil {
		return domain.HistoryLog{}, errors.Wrapf(err, "list history for %s", subject)
	}
	return domain.HistoryLog{Subject: subject, Entries: entries, Aggregate: Summarize(entries)}, nil
}

func (r *HistoryRecorder) lock(subject string) func() {
	r.mu.Lock()
	l, ok := r.locks[subject]
	if !ok {
		l = &sync.Mutex{}
		r.locks[subject] = l
	}
	r.mu.Unlock()
	l.Lock()
	return l.Unlock
}
