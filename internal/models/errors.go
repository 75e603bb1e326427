package models

import "errors"

var (
	// ErrNotFound marks a missing program, workout or exercise reference.
	ErrNotFound = errors.New("not found")
	// ErrEmptyWorkout marks a workout with no exercises.
	ErrEmptyWorkout = errors.New("workout has no exercises")
	// ErrConflict marks an attempt to activate a second program.
	ErrConflict = errors.New("another program is active")
	// ErrStorage marks a read or write that failed on every store.
	ErrStorage = errors.New("storage unavailable")
	// ErrInvalid marks rejected input: a bad period name, an out of range
	// profile field.
	ErrInvalid = errors.New("invalid input")

	ErrInvalidState  = errors.New("action not allowed in current session state")
	ErrSessionActive = errors.New("a workout session is already running")
	ErrNoSession     = errors.New("no workout session")
)
