package storage

import "errors"

// Errors shared by every store implementation. Matching records are
// append-only: a run never rewrites an offer, loop, outcome, or aggregate.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when inserting a record whose ID already
	// exists. Records are never updated in place.
	ErrDuplicateKey = errors.New("duplicate key: records are append-only")

	// ErrInvalidInput is returned for a record missing its identifier.
	ErrInvalidInput = errors.New("invalid input")
)
