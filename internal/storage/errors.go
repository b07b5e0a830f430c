package storage

import "errors"

// Sentinel errors shared by the memory, Postgres, and ClickHouse backends.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned on an insert whose key already exists.
	// Signals, outcomes, and results are insert-only.
	ErrDuplicateKey = errors.New("duplicate key: insert-only store does not allow updates")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)
