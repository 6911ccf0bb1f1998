package progress

import "errors"

var (
	// ErrNotFound is returned when a project, floor or task id does not resolve.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition is returned for lifecycle moves the current status forbids.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrValidation is returned for out-of-range progress or malformed timelines.
	ErrValidation = errors.New("validation error")
)
