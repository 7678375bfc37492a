package storage

import "errors"

var (
	// ErrNotFound is returned for an unknown run ID.
	ErrNotFound = errors.New("run not found")

	// ErrDuplicateKey is returned when a run ID, or a (run ID, period)
	// profile row, is written twice. Runs are write-once.
	ErrDuplicateKey = errors.New("duplicate key: runs are write-once")

	// ErrInvalidInput is returned for records missing a run ID, seed or
	// valid period.
	ErrInvalidInput = errors.New("invalid run record")
)
