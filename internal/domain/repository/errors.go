package repository

import "errors"

var (
	// ErrNotFound is returned when a requested document doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a compare-and-swap write loses to a
	// concurrent writer (version mismatch, or a racing first insert).
	ErrConflict = errors.New("conflict: document was modified concurrently")

	// ErrDuplicate is returned when a unique index rejects a write.
	ErrDuplicate = errors.New("duplicate key")

	// ErrAmbiguous is returned when a lookup by a key expected to be unique
	// matches more than one document.
	ErrAmbiguous = errors.New("ambiguous: key matches more than one document")
)
