package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidQuery marks a malformed query (unknown namespace or
	// operator, non-scalar value where a scalar is required). Queries that
	// fail validation are never partially executed.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrInvalidPath marks an update event whose path fails normalization.
	// The index is left untouched when it is returned.
	ErrInvalidPath = errors.New("invalid path")
)
