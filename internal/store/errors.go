package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the store.
	// This is a generic version of the entity-specific not found errors
	// (e.g., ErrSheetNotFound, ErrResultNotFound).
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate
	// of a unique entity (e.g., a second result for the same sheet).
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when an entity fails validation before
	// being stored. Check the wrapped error for specific validation details.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrStaleStatus is returned when a conditional status update matched no
	// row, meaning the sheet was not in the expected prior status. Callers
	// rely on this to make duplicate or late transition attempts no-ops.
	ErrStaleStatus = errors.New("sheet not in expected status")

	// ErrTransactionFailed is returned when a database transaction fails
	// to commit or when an operation within a transaction fails.
	ErrTransactionFailed = errors.New("transaction failed")

	// Entity-specific "not found" errors

	// ErrSheetNotFound indicates that the requested answer sheet does not exist in the store.
	ErrSheetNotFound = fmt.Errorf("%w: answer sheet", ErrNotFound)

	// ErrResultNotFound indicates that the requested grading result does not exist in the store.
	ErrResultNotFound = fmt.Errorf("%w: grading result", ErrNotFound)

	// ErrSnapshotNotFound indicates that no analytics snapshot exists for the owner.
	ErrSnapshotNotFound = fmt.Errorf("%w: analytics snapshot", ErrNotFound)

	// Entity-specific "duplicate" errors

	// ErrResultExists indicates that the sheet already has a grading result.
	// The unique constraint on sheet_id enforces at most one result per sheet.
	ErrResultExists = fmt.Errorf("%w: grading result for sheet", ErrDuplicate)

	// ErrSnapshotExists indicates that a snapshot for the owner was created
	// concurrently. Callers typically retry the read-modify-write.
	ErrSnapshotExists = fmt.Errorf("%w: analytics snapshot for owner", ErrDuplicate)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
// This includes the generic ErrNotFound and all entity-specific not found errors.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError checks if the error is any kind of "duplicate" error.
// This includes the generic ErrDuplicate and all entity-specific duplicate errors.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// StoreError is a custom error type for store-specific errors with additional context.
type StoreError struct {
	Entity    string // The entity type (e.g., "answer_sheet", "grading_result")
	Operation string // The operation that failed (e.g., "create", "update")
	Message   string // Error message
	Err       error  // Original error
}

// Error implements the error interface for StoreError.
func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf(
			"%s operation on %s failed: %s: %v",
			e.Operation,
			e.Entity,
			e.Message,
			e.Err,
		)
	}
	return fmt.Sprintf("%s operation on %s failed: %s", e.Operation, e.Entity, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError with the given entity, operation, message, and wrapped error.
func NewStoreError(entity, operation, message string, err error) *StoreError {
	return &StoreError{
		Entity:    entity,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
