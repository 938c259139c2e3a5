package storage

import "errors"

// Predefined errors for the storage package.
var (
	// ErrNotFound indicates no decision is stored for the requested pair.
	ErrNotFound = errors.New("stored decision not found")

	// ErrInvalidRecord indicates the record is missing its required keys.
	ErrInvalidRecord = errors.New("invalid decision record")

	// ErrIncompleteAssignment indicates a rollout or experiment is only
	// partially specified (key without variation id, or the reverse).
	ErrIncompleteAssignment = errors.New("incomplete assignment in decision record")

	// ErrStoreUnavailable indicates the backing store could not be reached.
	ErrStoreUnavailable = errors.New("decision store unavailable")
)
