package grading

import "errors"

// Common errors returned by grading engine implementations
var (
	// ErrEngine is returned when the engine reports an evaluation failure.
	// Every engine-side failure mode resolves to this error.
	ErrEngine = errors.New("grading engine failure")

	// ErrInvalidResponse is returned when the engine response cannot be
	// parsed into a complete result.
	ErrInvalidResponse = errors.New("invalid response from grading engine")

	// ErrTransientFailure is returned for temporary errors that might
	// resolve on retry.
	ErrTransientFailure = errors.New("transient error during evaluation")

	// ErrDeadlineExceeded is returned when the evaluation did not finish
	// within the configured processing deadline.
	ErrDeadlineExceeded = errors.New("evaluation deadline exceeded")

	// ErrInvalidConfig is returned when the engine configuration is invalid.
	ErrInvalidConfig = errors.New("invalid grading engine configuration")
)
