package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/gradeflow/gradeflow-api/internal/domain"
)

// AnalyticsStore defines the interface for per-owner analytics snapshot
// persistence. The snapshot row is the only contended shared resource in
// the pipeline, so updates go through GetForUpdate inside a transaction.
// Version: 1.0
type AnalyticsStore interface {
	// Create saves the initial snapshot for an owner.
	// Returns ErrSnapshotExists if a snapshot was created concurrently;
	// callers should retry their read-modify-write.
	Create(ctx context.Context, snapshot *domain.AnalyticsSnapshot) error

	// Get retrieves the snapshot for an owner.
	// Returns ErrSnapshotNotFound if no snapshot exists yet.
	// NOTE: This method does NOT provide any row locking, so it should not
	// be used when you plan to update the row and need concurrency
	// protection.
	Get(ctx context.Context, ownerID uuid.UUID) (*domain.AnalyticsSnapshot, error)

	// GetForUpdate retrieves the snapshot with a row-level lock using
	// SELECT FOR UPDATE. This must be used within a transaction when you
	// plan to update the row, so concurrent completions for the same owner
	// are serialized and no update is lost.
	// Returns ErrSnapshotNotFound if no snapshot exists yet.
	GetForUpdate(ctx context.Context, ownerID uuid.UUID) (*domain.AnalyticsSnapshot, error)

	// Update modifies an existing snapshot.
	// Returns ErrSnapshotNotFound if the snapshot does not exist.
	Update(ctx context.Context, snapshot *domain.AnalyticsSnapshot) error

	// WithTx returns a new AnalyticsStore instance that uses the provided transaction.
	// This allows for multiple operations to be executed within a single transaction.
	// The transaction should be created and managed by the caller (typically a service).
	WithTx(tx *sql.Tx) AnalyticsStore
}
