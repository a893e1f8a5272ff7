package app

import (
	"math/rand"

	"quiz-session-engine/internal/domain"
)

// PrepareQuestions applies the shuffle settings and the per-session cap to a copy
// of questions. The supplied slice and its option slices are left untouched.
func PrepareQuestions(questions []domain.Question, settings domain.QuizSettings, rnd *rand.Rand) []domain.Question {
	out := make([]domain.Question, len(questions))
	copy(out, questions)

	if settings.ShuffleQuestions && rnd != nil {
		rnd.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	}
	if settings.QuestionsPerSession > 0 && settings.QuestionsPerSession < len(out) {
		out = out[:settings.QuestionsPerSession]
	}
	if settings.ShuffleOptions && rnd != nil {
		for i := range out {
			opts := make([]domain.Option, len(out[i].Options))
			copy(opts, out[i].Options)
			rnd.Shuffle(len(opts), func(a, b int) { opts[a], opts[b] = opts[b], opts[a] })
			out[i].Options = opts
		}
	}
	return out
}
