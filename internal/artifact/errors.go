package artifact

import "errors"

// Common errors returned by artifact store implementations
var (
	// ErrStorage is returned when an artifact read or write fails at the
	// storage backend.
	ErrStorage = errors.New("artifact storage failure")

	// ErrNotFound is returned when the referenced artifact does not exist.
	ErrNotFound = errors.New("artifact not found")

	// ErrInvalidRef is returned when an artifact reference is malformed.
	ErrInvalidRef = errors.New("invalid artifact reference")

	// ErrInvalidConfig is returned when the store configuration is invalid.
	ErrInvalidConfig = errors.New("invalid artifact store configuration")
)
