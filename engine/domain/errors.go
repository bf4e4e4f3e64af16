package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for validation and lookup failures.
var (
	ErrQueryEmpty        = errors.New("query is empty")
	ErrLimitOutOfRange   = errors.New("limit out of range")
	ErrInvalidTimeFilter = errors.New("invalid time filter")
	ErrInvalidSortType   = errors.New("invalid sort type")
	ErrEmptySubreddit    = errors.New("empty subreddit name")

	ErrTaskNotFound     = errors.New("task not found")
	ErrTaskNotCompleted = errors.New("task not completed")
	ErrResultNotFound   = errors.New("result not found")
	ErrNoPosts          = errors.New("no posts found for the given query")
)

// ValidationError wraps a sentinel with the offending field and value.
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}
