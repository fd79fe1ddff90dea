package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/gradeflow/gradeflow-api/internal/domain"
)

// ResultStore defines the interface for grading result persistence.
// Results are insert-only; there is no update operation.
// Version: 1.0
type ResultStore interface {
	// Create saves a new grading result.
	// It handles domain validation internally.
	// Returns ErrResultExists if the sheet already has a result (the
	// unique constraint on sheet_id enforces at most one result per sheet).
	Create(ctx context.Context, result *domain.GradingResult) error

	// GetBySheetID retrieves the result for a sheet.
	// Returns ErrResultNotFound if the sheet has no result.
	GetBySheetID(ctx context.Context, sheetID uuid.UUID) (*domain.GradingResult, error)

	// WithTx returns a new ResultStore instance that uses the provided transaction.
	// This allows for multiple operations to be executed within a single transaction.
	// The transaction should be created and managed by the caller (typically a service).
	WithTx(tx *sql.Tx) ResultStore
}
