package domain

import "errors"

// Common errors
var (
	ErrNotFound = errors.New("record not found")

	// ErrInvalidInput covers malformed or non-positive reps/weight, unknown metric fields
	// and out-of-range indexes.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidSequence is returned for out-of-order set completion or writes
	// against an exercise that is not the current one.
	ErrInvalidSequence        = errors.New("invalid sequence")
	ErrAlreadyFinalized       = errors.New("session already finalized")
	ErrAlreadyCompletedToday  = errors.New("workout day already completed today")
	ErrPersistenceUnavailable = errors.New("persistence unavailable")
)
