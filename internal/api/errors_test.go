package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gradeflow/gradeflow-api/internal/domain"
	"github.com/gradeflow/gradeflow-api/internal/service"
	"github.com/gradeflow/gradeflow-api/internal/service/auth"
	"github.com/gradeflow/gradeflow-api/internal/store"
)

func TestMapErrorToStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid token", auth.ErrInvalidToken, http.StatusUnauthorized},
		{"expired token", auth.ErrExpiredToken, http.StatusUnauthorized},
		{"missing token", auth.ErrMissingToken, http.StatusUnauthorized},
		{"forbidden", service.ErrForbidden, http.StatusForbidden},
		{"sheet not found", service.ErrSheetNotFound, http.StatusNotFound},
		{"store sheet not found", store.ErrSheetNotFound, http.StatusNotFound},
		{"result not found", store.ErrResultNotFound, http.StatusNotFound},
		{"withdraw after processing", service.ErrSheetNotPending, http.StatusConflict},
		{"validation", fmt.Errorf("%w: title cannot be empty", domain.ErrValidation), http.StatusBadRequest},
		{"invalid entity", store.ErrInvalidEntity, http.StatusBadRequest},
		{"unknown", errors.New("broken pipe"), http.StatusInternalServerError},
		{"nil", nil, http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, MapErrorToStatusCode(tc.err))
		})
	}
}

func TestMapErrorToStatusCodeUnwrapsServiceErrors(t *testing.T) {
	wrapped := &service.IngestionServiceError{
		Operation: "withdraw",
		Message:   "failed to delete sheet",
		Err:       service.ErrSheetNotPending,
	}
	assert.Equal(t, http.StatusConflict, MapErrorToStatusCode(wrapped))
}

func TestGetSafeErrorMessage(t *testing.T) {
	// Internal details never reach the client
	internal := errors.New("pq: connection to postgres://user:hunter2@db:5432 refused")
	assert.Equal(t, "An unexpected error occurred", GetSafeErrorMessage(internal))
	assert.Equal(t, "An unexpected error occurred", GetSafeErrorMessage(nil))

	assert.Equal(t, "Invalid token", GetSafeErrorMessage(auth.ErrExpiredToken))
	assert.Equal(t, "You do not own this answer sheet", GetSafeErrorMessage(service.ErrForbidden))
	assert.Equal(t, "Answer sheet not found", GetSafeErrorMessage(service.ErrSheetNotFound))
	assert.Equal(t, "Answer sheet is already being processed", GetSafeErrorMessage(service.ErrSheetNotPending))
}

func TestGetSafeErrorMessagePassesValidationReasonThrough(t *testing.T) {
	err := fmt.Errorf("%w: file size 2097152 exceeds limit of 1048576 bytes", domain.ErrValidation)
	assert.Contains(t, GetSafeErrorMessage(err), "exceeds limit")
}
