package repo

import "errors"

// The failure classes surfaced by the engine. Within one operation all
// validation-class failures are accumulated via errors.Join, so a caller
// sees every problem in a single round trip. Snapshot contention is never
// surfaced; the retry loop is invisible to callers.
var (
	// ErrMissingReference marks an id that resolves to no entity.
	ErrMissingReference = errors.New("missing reference")

	// ErrValidationFailed marks invalid input to a constructor or editor.
	ErrValidationFailed = errors.New("validation failed")

	// ErrCheckFailed marks a failed whole-table consistency check.
	ErrCheckFailed = errors.New("consistency check failed")

	// ErrTypeMismatch marks an edit through a narrowing the stored value
	// does not match.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrAlreadyExists marks an insert under an id that is already taken.
	ErrAlreadyExists = errors.New("entity already exists")
)
