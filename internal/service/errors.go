// Package service provides application-level services for submitting,
// querying and aggregating answer sheets.
package service

import "errors"

// Common service errors - sentinel errors used across service implementations.
// These errors represent common conditions that callers may want to check for with errors.Is().
//
// Error handling principles:
// 1. Service methods return sentinel errors for expected error conditions
// 2. Unexpected errors are wrapped in service-specific error types
// 3. Callers use errors.Is/errors.As to check for specific error conditions
// 4. The API layer maps service errors to appropriate HTTP status codes
var (
	// ErrSheetNotFound indicates that the answer sheet does not exist.
	// API layer should map this to HTTP 404 Not Found.
	ErrSheetNotFound = errors.New("answer sheet not found")

	// ErrForbidden indicates a sheet is owned by a different owner than the
	// one making the request. Kept distinct from ErrSheetNotFound so a
	// caller cannot probe the existence of another owner's data.
	// API layer should map this to HTTP 403 Forbidden.
	ErrForbidden = errors.New("answer sheet is owned by another user")

	// ErrSheetNotPending indicates a withdrawal was attempted after
	// processing began. Once in flight, a sheet can only end via a
	// terminal transition. API layer should map this to HTTP 409 Conflict.
	ErrSheetNotPending = errors.New("answer sheet is no longer pending")

	// ErrAnalyticsConflict indicates an analytics update could not be
	// applied within the bounded retries. Non-fatal: the grading result
	// is already persisted and remains valid.
	ErrAnalyticsConflict = errors.New("analytics update retries exhausted")
)
