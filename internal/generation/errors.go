package generation

import "errors"

// Errors returned by collaborator implementations. The runner treats all of
// them as retryable except where an executor handles one itself, as the
// caption executor does with its fallback.
var (
	ErrInvalidResponse  = errors.New("invalid response from model")
	ErrContentBlocked   = errors.New("content blocked by model safety filters")
	ErrTransientFailure = errors.New("transient error calling model")
	ErrInvalidConfig    = errors.New("invalid collaborator configuration")
	ErrEmptyInput       = errors.New("input cannot be empty")
)
