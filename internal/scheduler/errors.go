package scheduler

import "errors"

var (
	// ErrConflict means the operation is invalid in the current state,
	// such as starting a workblock while one is already active.
	ErrConflict = errors.New("conflict")

	// ErrNotFound means the referenced workblock or interval does not
	// exist or is not in the expected state.
	ErrNotFound = errors.New("not found")

	// ErrValidation means the input was malformed, such as a label that
	// trims to empty.
	ErrValidation = errors.New("invalid input")
)
