// Package apperrors defines the sentinel errors services return across the
// handler boundary. Handlers translate them to HTTP statuses; anything not in
// this taxonomy is treated as internal and its cause is logged, not exposed.
package apperrors

import "errors"

var (
	// ErrValidation covers missing or malformed input.
	ErrValidation = errors.New("validation failed")

	// ErrUnauthorized covers a missing, invalid or expired token. Callers
	// never learn which of the three it was.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden covers a role or ownership mismatch.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound covers a missing entity.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyProcessed covers a transition attempt on a trip that is not
	// in the expected prior status: either it never existed for this caller
	// or another writer already moved it.
	ErrAlreadyProcessed = errors.New("not found or already processed")

	// ErrConflict covers uniqueness violations such as a duplicate email.
	ErrConflict = errors.New("conflict")

	// ErrInternal covers unexpected store or IO failure.
	ErrInternal = errors.New("internal error")
)
