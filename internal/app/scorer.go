package app

import (
	"math"

	"quiz-session-engine/internal/domain"
)

// ComputeScore scores a session. It is pure and is invoked once, on the
// active -> finished edge.
func ComputeScore(s domain.QuizSession) domain.QuizScore {
	total := len(s.Attempts)
	score := domain.QuizScore{
		TotalQuestions: total,
		Breakdown:      make([]domain.QuestionResult, 0, total),
	}

	for _, at := range s.Attempts {
		correctAnswer := at.Question.CorrectOption()
		selected := at.SelectedOption()
		isCorrect := false

		switch {
		case at.Status == domain.StatusSkipped:
			score.Skipped++
		case selected == "":
			score.Unanswered++
		case selected == correctAnswer:
			isCorrect = true
			score.Correct++
		default:
			score.Incorrect++
		}
		if at.Status.IsMarked() {
			score.Marked++
		}

		result := domain.QuestionResult{
			QuestionID:    at.Question.ID,
			UserAnswer:    selected,
			CorrectAnswer: correctAnswer,
			IsCorrect:     isCorrect,
			TimeSpent:     at.TimeSpent.Seconds(),
			Status:        at.Status,
		}
		if s.Settings.ShowExplanations {
			result.Explanation = at.Question.Explanation
		}
		score.Breakdown = append(score.Breakdown, result)
	}

	if s.FinishedAt != nil && !s.StartedAt.IsZero() {
		if spent := s.FinishedAt.Sub(s.StartedAt).Seconds(); spent > 0 {
			score.TotalTimeSpent = math.Floor(spent)
		}
	}

	if total == 0 {
		return score
	}

	raw := float64(score.Correct)
	if s.Settings.NegativeMarking {
		raw += float64(score.Incorrect) * s.Settings.NegativeMarkValue
	}
	score.RawScore = raw
	// A heavily penalised attempt reports 0%, never a negative percentage.
	score.Percentage = math.Max(0, raw*100/float64(total))
	score.Passed = score.Percentage >= s.Settings.PassingPercentage
	score.AverageTimePerQuestion = score.TotalTimeSpent / float64(total)
	return score
}
