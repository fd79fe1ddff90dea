package api

import (
	"errors"
	"net/http"

	"github.com/gradeflow/gradeflow-api/internal/domain"
	"github.com/gradeflow/gradeflow-api/internal/service"
	"github.com/gradeflow/gradeflow-api/internal/service/auth"
	"github.com/gradeflow/gradeflow-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken):
		return http.StatusUnauthorized

	// Authorization errors. Ownership mismatches stay 403, never 404, so
	// the two conditions remain distinguishable but existence of another
	// owner's sheet is still not probeable by id guessing: ids are UUIDs.
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden

	// Not found errors
	case errors.Is(err, service.ErrSheetNotFound),
		errors.Is(err, store.ErrSheetNotFound),
		errors.Is(err, store.ErrResultNotFound):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, service.ErrSheetNotPending):
		return http.StatusConflict

	// Bad request errors
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	// Handle nil error
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken):
		return "Invalid token"

	// Authorization errors
	case errors.Is(err, service.ErrForbidden):
		return "You do not own this answer sheet"

	// Not found errors
	case errors.Is(err, service.ErrSheetNotFound),
		errors.Is(err, store.ErrSheetNotFound):
		return "Answer sheet not found"

	case errors.Is(err, store.ErrResultNotFound):
		return "Grading result not found"

	// Conflict errors
	case errors.Is(err, service.ErrSheetNotPending):
		return "Answer sheet is already being processed"

	// Bad request errors. Validation messages are written for users and
	// carry no internals, so the concrete reason is passed through.
	case errors.Is(err, domain.ErrValidation):
		return err.Error()

	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid entity data"

	// Default case for unknown errors
	default:
		return "An unexpected error occurred"
	}
}
