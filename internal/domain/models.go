package domain

import "time"

// Option represents a possible answer for a question.
type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	// Correct is honoured when the question does not name its answer explicitly.
	Correct bool `json:"correct,omitempty"`
}

// Question models an MCQ question with exactly one correct option.
type Question struct {
	ID          string   `json:"id"`
	Prompt      string   `json:"prompt"`
	Options     []Option `json:"options"`
	Answer      string   `json:"correctOptionId,omitempty"`
	Explanation string   `json:"explanation,omitempty"`
	Topic       string   `json:"topic,omitempty"`
	Difficulty  string   `json:"difficulty,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	TimeLimit   int      `json:"timeLimit,omitempty"` // seconds, informational
	Points      int      `json:"points,omitempty"`
}

// CorrectOption returns the id of the correct option, or "" when none is defined.
func (q Question) CorrectOption() string {
	if q.Answer != "" {
		return q.Answer
	}
	for _, opt := range q.Options {
		if opt.Correct {
			return opt.ID
		}
	}
	return ""
}

// HasOption reports whether optionID belongs to the question.
func (q Question) HasOption(optionID string) bool {
	for _, opt := range q.Options {
		if opt.ID == optionID {
			return true
		}
	}
	return false
}

// QuestionSet is an ordered collection of questions supplied by the question bank.
type QuestionSet struct {
	ID        string     `json:"id"`
	Subject   string     `json:"subject,omitempty"`
	Questions []Question `json:"questions"`
}

// QuizSettings controls scoring and which actions a client may issue.
type QuizSettings struct {
	ShuffleQuestions    bool    `json:"shuffleQuestions" yaml:"shuffleQuestions"`
	ShuffleOptions      bool    `json:"shuffleOptions" yaml:"shuffleOptions"`
	ShowExplanations    bool    `json:"showExplanations" yaml:"showExplanations"`
	AllowReview         bool    `json:"allowReview" yaml:"allowReview"`
	AllowSkip           bool    `json:"allowSkip" yaml:"allowSkip"`
	AllowMarkForReview  bool    `json:"allowMarkForReview" yaml:"allowMarkForReview"`
	NegativeMarking     bool    `json:"negativeMarking" yaml:"negativeMarking"`
	NegativeMarkValue   float64 `json:"negativeMarkValue" yaml:"negativeMarkValue"`
	PassingPercentage   float64 `json:"passingPercentage" yaml:"passingPercentage"`
	QuestionsPerSession int     `json:"questionsPerSession" yaml:"questionsPerSession"` // 0 means all
}

// DefaultSettings returns the settings used when a caller supplies none.
func DefaultSettings() QuizSettings {
	return QuizSettings{
		ShowExplanations:   true,
		AllowReview:        true,
		AllowSkip:          true,
		AllowMarkForReview: true,
		NegativeMarkValue:  -0.25,
		PassingPercentage:  60,
	}
}

// Selection is the option chosen for a question and when it was chosen.
type Selection struct {
	OptionID   string    `json:"optionId"`
	AnsweredAt time.Time `json:"answeredAt"`
}

// QuestionAttempt is the per-question interaction record within a session.
type QuestionAttempt struct {
	Question      Question       `json:"question"`
	Status        QuestionStatus `json:"status"`
	Selection     *Selection     `json:"selection,omitempty"`
	MarkedAt      *time.Time     `json:"markedAt,omitempty"`
	TimeSpent     time.Duration  `json:"timeSpent"`
	AttemptsCount int            `json:"attemptsCount"`
}

// SelectedOption returns the selected option id, or "" when nothing is selected.
func (a QuestionAttempt) SelectedOption() string {
	if a.Selection == nil {
		return ""
	}
	return a.Selection.OptionID
}

// QuizSession is the aggregate for one attempt at a question set.
type QuizSession struct {
	ID            string            `json:"id"`
	QuestionSetID string            `json:"questionSetId"`
	Subject       string            `json:"subject"`
	State         SessionState      `json:"state"`
	Questions     []Question        `json:"-"`
	Attempts      []QuestionAttempt `json:"attempts"`
	CurrentIndex  int               `json:"currentQuestionIndex"`
	StartedAt     time.Time         `json:"startedAt"`
	FinishedAt    *time.Time        `json:"finishedAt,omitempty"`
	TimeLimit     time.Duration     `json:"totalTimeLimit,omitempty"` // zero means untimed
	Elapsed       time.Duration     `json:"timeElapsed"`
	LastTickAt    time.Time         `json:"-"`
	Settings      QuizSettings      `json:"settings"`
	Score         *QuizScore        `json:"score,omitempty"`
}

// Current returns the attempt at the current index.
func (s QuizSession) Current() (QuestionAttempt, bool) {
	if s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Attempts) {
		return QuestionAttempt{}, false
	}
	return s.Attempts[s.CurrentIndex], true
}

// QuestionResult is one row of a score breakdown.
type QuestionResult struct {
	QuestionID    string         `json:"questionId"`
	UserAnswer    string         `json:"userAnswer,omitempty"`
	CorrectAnswer string         `json:"correctAnswer"`
	IsCorrect     bool           `json:"isCorrect"`
	TimeSpent     float64        `json:"timeSpent"` // seconds
	Status        QuestionStatus `json:"status"`
	Explanation   string         `json:"explanation,omitempty"`
}

// QuizScore is the immutable result of a finished session.
type QuizScore struct {
	TotalQuestions         int              `json:"totalQuestions"`
	Correct                int              `json:"correct"`
	Incorrect              int              `json:"incorrect"`
	Unanswered             int              `json:"unanswered"`
	Skipped                int              `json:"skipped"`
	Marked                 int              `json:"marked"`
	RawScore               float64          `json:"rawScore"`
	Percentage             float64          `json:"percentage"`
	Passed                 bool             `json:"passed"`
	TotalTimeSpent         float64          `json:"totalTimeSpent"`         // seconds
	AverageTimePerQuestion float64          `json:"averageTimePerQuestion"` // seconds
	Breakdown              []QuestionResult `json:"breakdown"`
}

// ScoreSummary is the persisted score extract of a history entry.
type ScoreSummary struct {
	Obtained   float64 `json:"obtained"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

// QuestionOutcome is the per-question extract kept in history.
type QuestionOutcome struct {
	QuestionID string  `json:"questionId"`
	Topic      string  `json:"topic,omitempty"`
	IsCorrect  bool    `json:"isCorrect"`
	TimeSpent  float64 `json:"timeSpent"` // seconds
}

// HistoryEntry records one finished session under a subject key.
type HistoryEntry struct {
	SessionID   string            `json:"sessionId"`
	Subject     string            `json:"subject"`
	Score       ScoreSummary      `json:"score"`
	TimeSpent   float64           `json:"timeSpent"` // seconds
	Questions   []QuestionOutcome `json:"questions"`
	CompletedAt time.Time         `json:"completedAt"`
}

// Validate reports whether the entry is structurally usable for analytics.
func (e HistoryEntry) Validate() error {
	switch {
	case e.SessionID == "":
		return ErrMalformedHistoryEntry
	case e.Subject == "":
		return ErrMalformedHistoryEntry
	case e.CompletedAt.IsZero():
		return ErrMalformedHistoryEntry
	case e.Score.Total < 0, e.Score.Percentage < 0, e.TimeSpent < 0:
		return ErrMalformedHistoryEntry
	}
	return nil
}

// HistoryAggregate summarises a subject's history log.
type HistoryAggregate struct {
	TotalAttempts   int     `json:"totalAttempts"`
	AverageScore    float64 `json:"averageScore"`
	BestScore       float64 `json:"bestScore"`
	TotalTimeSpent  float64 `json:"totalTimeSpent"` // seconds
	ImprovementRate float64 `json:"improvementRate"`
}

// HistoryLog is a subject's capped, insertion-ordered history with its aggregate.
type HistoryLog struct {
	Subject   string           `json:"subject"`
	Entries   []HistoryEntry   `json:"entries"`
	Aggregate HistoryAggregate `json:"aggregate"`
}

// DefaultHistoryCap bounds each subject's history log.
const DefaultHistoryCap = 50
