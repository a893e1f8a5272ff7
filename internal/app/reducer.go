package app

import (
	"time"

	"quiz-session-engine/internal/domain"
)

// NewQuizSession builds a not-started session over an already prepared question list.
func NewQuizSession(id, questionSetID, subject string, questions []domain.Question, settings domain.QuizSettings, limit time.Duration) domain.QuizSession {
	if limit < 0 {
		limit = 0
	}
	return domain.QuizSession{
		ID:            id,
		QuestionSetID: questionSetID,
		Subject:       subject,
		State:         domain.StateNotStarted,
		Questions:     questions,
		TimeLimit:     limit,
		Settings:      settings,
	}
}

// Reduce applies a to s at time now and returns the next snapshot.
// It never fails: transitions that do not apply to s return s unchanged.
// s itself is never modified.
func Reduce(s domain.QuizSession, a Action, now time.Time) domain.QuizSession {
	switch act := a.(type) {
	case Start:
		return start(s, now)
	case Pause:
		if s.State != domain.StateActive {
			return s
		}
		s = advance(s, now)
		if s.State == domain.StateFinished {
			return s
		}
		s.State = domain.StatePaused
		return s
	case Resume:
		if s.State != domain.StatePaused {
			return s
		}
		s.State = domain.StateActive
		s.LastTickAt = now
		return s
	case Submit:
		if s.State != domain.StateActive {
			return s
		}
		s = advance(s, now)
		if s.State == domain.StateFinished {
			return s
		}
		return finish(s, now)
	case Tick:
		if s.State != domain.StateActive {
			return s
		}
		return advance(s, act.At)

	case SelectOption:
		return updateCurrent(s, func(at *domain.QuestionAttempt) bool {
			if !at.Question.HasOption(act.OptionID) {
				return false
			}
			if at.Status == domain.StatusMarked {
				at.Status = domain.StatusAnsweredMarked
			} else {
				at.Status = domain.StatusAnswered
			}
			at.Selection = &domain.Selection{OptionID: act.OptionID, AnsweredAt: now}
			at.AttemptsCount++
			return true
		})
	case MarkForReview:
		return updateCurrent(s, func(at *domain.QuestionAttempt) bool {
			if at.Status == domain.StatusAnswered {
				at.Status = domain.StatusAnsweredMarked
			} else {
				at.Status = domain.StatusMarked
			}
			markedAt := now
			at.MarkedAt = &markedAt
			return true
		})
	case UnmarkQuestion:
		return updateCurrent(s, func(at *domain.QuestionAttempt) bool {
			switch {
			case at.Status == domain.StatusAnsweredMarked:
				at.Status = domain.StatusAnswered
			case at.Selection != nil:
				at.Status = domain.StatusAnswered
			default:
				at.Status = domain.StatusNotAnswered
			}
			at.MarkedAt = nil
			return true
		})
	case SkipQuestion:
		return updateCurrent(s, func(at *domain.QuestionAttempt) bool {
			at.Status = domain.StatusSkipped
			return true
		})
	case ClearAnswer:
		return updateCurrent(s, func(at *domain.QuestionAttempt) bool {
			if at.Status == domain.StatusAnsweredMarked {
				at.Status = domain.StatusMarked
			} else {
				at.Status = domain.StatusNotAnswered
			}
			at.Selection = nil
			return true
		})

	case NextQuestion:
		return moveTo(s, s.CurrentIndex+1)
	case PreviousQuestion:
		return moveTo(s, s.CurrentIndex-1)
	case GoToQuestion:
		return moveTo(s, act.Index)
	}
	return s
}

func start(s domain.QuizSession, now time.Time) domain.QuizSession {
	if s.State != domain.StateNotStarted || len(s.Questions) == 0 {
		return s
	}
	attempts := make([]domain.QuestionAttempt, len(s.Questions))
	for i, q := range s.Questions {
		attempts[i] = domain.QuestionAttempt{Question: q, Status: domain.StatusNotAnswered}
	}
	s.Attempts = attempts
	s.CurrentIndex = 0
	s.State = domain.StateActive
	s.StartedAt = now
	s.LastTickAt = now
	s.Elapsed = 0
	return s
}

// advance moves the clock to at and finishes the session once a configured limit is reached.
func advance(s domain.QuizSession, at time.Time) domain.QuizSession {
	delta := at.Sub(s.LastTickAt)
	if delta > 0 {
		s.Attempts = cloneAttempts(s.Attempts)
		s.Elapsed += delta
		if s.CurrentIndex >= 0 && s.CurrentIndex < len(s.Attempts) {
			s.Attempts[s.CurrentIndex].TimeSpent += delta
		}
		s.LastTickAt = at
	}
	if s.TimeLimit > 0 && s.Elapsed >= s.TimeLimit {
		return finish(s, at)
	}
	return s
}

func finish(s domain.QuizSession, now time.Time) domain.QuizSession {
	finishedAt := now
	s.State = domain.StateFinished
	s.FinishedAt = &finishedAt
	score := ComputeScore(s)
	s.Score = &score
	return s
}

func updateCurrent(s domain.QuizSession, fn func(*domain.QuestionAttempt) bool) domain.QuizSession {
	if s.State != domain.StateActive || s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Attempts) {
		return s
	}
	attempt := s.Attempts[s.CurrentIndex]
	if !fn(&attempt) {
		return s
	}
	s.Attempts = cloneAttempts(s.Attempts)
	s.Attempts[s.CurrentIndex] = attempt
	return s
}

func moveTo(s domain.QuizSession, index int) domain.QuizSession {
	if s.State != domain.StateActive || index < 0 || index >= len(s.Attempts) {
		return s
	}
	s.CurrentIndex = index
	return s
}

func cloneAttempts(in []domain.QuestionAttempt) []domain.QuestionAttempt {
	out := make([]domain.QuestionAttempt, len(in))
	copy(out, in)
	return out
}
