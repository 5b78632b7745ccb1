package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrInvalidDateRange is returned when a range ends before it starts.
	ErrInvalidDateRange = errors.New("invalid date range")

	// ErrInvalidPackMode is returned for a pack mode other than skip or overwrite.
	ErrInvalidPackMode = errors.New("invalid pack mode")
)
