package domain

import (
	"errors"
	"fmt"
)

// Common domain errors
var (
	ErrInvalidInput = errors.New("invalid input")

	// Per-URL errors
	ErrNotImage     = errors.New("content type is not an image")
	ErrLockConflict = errors.New("output target is locked by another writer")
	ErrNoFileName   = errors.New("url has no file name to write to")

	// Destination errors
	ErrNotDirectory = errors.New("destination is not a directory")
	ErrNotWritable  = errors.New("destination is not writable")
)

// ConfigError is a configuration problem detected before any download starts.
// It aborts the run.
type ConfigError struct {
	Field string
	Err   error
}

// Error returns the error message
func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "configuration error: " + e.Err.Error()
	}
	return fmt.Sprintf("configuration error: %s: %v", e.Field, e.Err)
}

// Unwrap returns the underlying error
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new configuration error
func NewConfigError(field string, err error) *ConfigError {
	return &ConfigError{Field: field, Err: err}
}

// IsConfigError returns true if the error is a configuration error
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// StatusError is returned for HTTP statuses other than 200 and 304
type StatusError struct {
	Code   int
	Status string
}

// Error returns the error message
func (e *StatusError) Error() string {
	if e.Status != "" {
		return "unexpected status: " + e.Status
	}
	return fmt.Sprintf("unexpected status: %d", e.Code)
}

// SkippableError represents an error that can be logged and skipped.
// The URL is abandoned without touching the output target.
type SkippableError struct {
	Err     error
	Context string
}

// Error returns the error message
func (e *SkippableError) Error() string {
	if e.Context != "" {
		if e.Err != nil {
			return e.Context + ": " + e.Err.Error()
		}
		return e.Context
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "skippable error"
}

// Unwrap returns the underlying error
func (e *SkippableError) Unwrap() error {
	return e.Err
}

// NewSkippableError creates a new skippable error
func NewSkippableError(err error, context string) *SkippableError {
	return &SkippableError{Err: err, Context: context}
}

// IsSkippable returns true if the error can be skipped
func IsSkippable(err error) bool {
	var se *SkippableError
	return errors.As(err, &se)
}

// OutcomeForError maps a per-URL error to its terminal outcome
func OutcomeForError(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeFetched
	case errors.Is(err, ErrNotImage):
		return OutcomeSkippedNotImage
	case errors.Is(err, ErrLockConflict):
		return OutcomeSkippedLockConflict
	default:
		return OutcomeFailed
	}
}
