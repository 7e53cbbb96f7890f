package complaint

import "errors"

var (
	// ErrValidation marks a command rejected before any write was
	// attempted (a required input was missing or malformed).
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a command that targeted a complaint the store no
	// longer holds.
	ErrNotFound = errors.New("complaint not found")

	// ErrPartialBatch marks a bulk operation in which some writes
	// succeeded and some failed. Successes are never rolled back; the
	// BatchResult says which ids actually changed.
	ErrPartialBatch = errors.New("bulk update partially failed")
)
