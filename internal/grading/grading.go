// Package grading defines the boundary to the grading engine that
// evaluates uploaded answer sheets. The engine is opaque and pluggable:
// a call either fully succeeds with a complete result or fully fails,
// and the pipeline tolerates any latency up to its configured deadline.
package grading

import "context"

// Result is the complete outcome of evaluating one answer sheet.
// TotalScore is always positive; the percentage is derived by callers
// from Score and TotalScore and never carried separately.
type Result struct {
	Score         int
	TotalScore    int
	Feedback      string
	ExtractedText string
}

// Engine defines the interface for answer sheet evaluation.
// Implementations may be arbitrarily slow; callers bound the call with a
// context deadline.
type Engine interface {
	// Evaluate grades the artifact identified by artifactRef.
	// Returns a complete Result, or an error wrapping one of this
	// package's sentinel errors describing the failure mode.
	Evaluate(ctx context.Context, artifactRef string) (*Result, error)
}
