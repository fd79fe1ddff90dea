package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/gradeflow/gradeflow-api/internal/domain"
)

// SheetStore defines the interface for answer sheet persistence.
// Version: 1.0
type SheetStore interface {
	// Create saves a new answer sheet to the store.
	// It handles domain validation internally.
	// Returns validation errors from the domain AnswerSheet if data is invalid.
	Create(ctx context.Context, sheet *domain.AnswerSheet) error

	// GetByID retrieves an answer sheet by its unique ID.
	// Returns ErrSheetNotFound if the sheet does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.AnswerSheet, error)

	// ListByOwner retrieves the owner's sheets ordered by uploaded_at
	// descending, limited to at most limit rows.
	ListByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]*domain.AnswerSheet, error)

	// FindByStatus retrieves sheets with the given status ordered by
	// uploaded_at ascending, so the oldest work is picked up first.
	// Returns an empty slice if no sheets match.
	FindByStatus(ctx context.Context, status domain.SheetStatus, limit int) ([]*domain.AnswerSheet, error)

	// FindStuckProcessing retrieves sheets whose processing_started_at is
	// before the given cutoff and that never reached a terminal status.
	FindStuckProcessing(ctx context.Context, cutoff time.Time) ([]*domain.AnswerSheet, error)

	// MarkProcessing transitions a sheet from pending to processing and
	// stamps processing_started_at, the moment the deadline is measured
	// from. Returns ErrStaleStatus if the sheet is not currently pending,
	// which callers treat as a duplicate trigger and a no-op.
	// Returns ErrSheetNotFound if the sheet does not exist.
	MarkProcessing(ctx context.Context, id uuid.UUID, startedAt time.Time) error

	// MarkCompleted transitions a sheet from processing to completed and
	// stamps processed_at. Returns ErrStaleStatus if the sheet is not
	// currently processing (e.g. a late engine response after the watchdog
	// already failed it).
	MarkCompleted(ctx context.Context, id uuid.UUID, processedAt time.Time) error

	// MarkFailed transitions a sheet from processing to failed, stamping
	// processed_at and recording the failure reason. Returns ErrStaleStatus
	// if the sheet is not currently processing.
	MarkFailed(ctx context.Context, id uuid.UUID, processedAt time.Time, reason string) error

	// DeletePending removes a sheet only while it is still pending.
	// Returns ErrStaleStatus if the sheet exists but processing has begun,
	// ErrSheetNotFound if it does not exist.
	DeletePending(ctx context.Context, id uuid.UUID) error

	// WithTx returns a new SheetStore instance that uses the provided transaction.
	// This allows for multiple operations to be executed within a single transaction.
	// The transaction should be created and managed by the caller (typically a service).
	WithTx(tx *sql.Tx) SheetStore
}
