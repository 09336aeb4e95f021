package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the platform reports a referenced entity is absent.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates a required field is missing or malformed before a call is attempted.
	ErrValidation = errors.New("validation failed")
	// ErrUnauthorized is returned when the token is missing, malformed or rejected.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidPhase is returned when a quiz operation is not allowed in the current phase.
	ErrInvalidPhase = errors.New("operation not allowed in current quiz phase")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = fmt.Errorf("quiz %w", ErrNotFound)
	// ErrQuestionNotFound indicates a submitted question ID is invalid.
	ErrQuestionNotFound = fmt.Errorf("question %w", ErrNotFound)
	// ErrOptionNotFound indicates a submitted option ID is invalid.
	ErrOptionNotFound = fmt.Errorf("option %w", ErrNotFound)
	// ErrAttemptNotFound is returned when no attempt is registered for a user and quiz.
	ErrAttemptNotFound = fmt.Errorf("attempt %w", ErrNotFound)
	// ErrAttemptConflict is returned when another gateway instance holds the attempt.
	ErrAttemptConflict = errors.New("attempt is held by another instance")
)

// NetworkError wraps a rejected or timed out remote call.
type NetworkError struct {
	Op     string
	Status int
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: upstream status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsNetwork reports whether err is (or wraps) a NetworkError.
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}
