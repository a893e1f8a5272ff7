package domain

import "github.com/pkg/errors"

var (
	// ErrSessionNotFound is returned when no live session has the requested id.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrQuestionSetNotFound indicates the question set could not be loaded.
	ErrQuestionSetNotFound = errors.New("question set not found")
	// ErrEmptyQuestionSet is returned when a session would start with no questions.
	ErrEmptyQuestionSet = errors.New("question set has no questions")
	// ErrMissingSubject is returned when a session has no subject key to record history under.
	ErrMissingSubject = errors.New("subject is required")
	// ErrMalformedHistoryEntry marks a stored history record that failed validation.
	ErrMalformedHistoryEntry = errors.New("malformed history entry")
)
