package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/gradeflow/gradeflow-api/internal/domain"
	"github.com/gradeflow/gradeflow-api/internal/platform/logger"
	"github.com/gradeflow/gradeflow-api/internal/store"
)

// PostgresAnalyticsStore implements the store.AnalyticsStore interface
// using a PostgreSQL database as the storage backend.
type PostgresAnalyticsStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresAnalyticsStore creates a new PostgreSQL implementation of the AnalyticsStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresAnalyticsStore(db store.DBTX, logger *slog.Logger) *PostgresAnalyticsStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresAnalyticsStore{
		db:     db,
		logger: logger.With(slog.String("component", "analytics_store")),
	}
}

// Ensure PostgresAnalyticsStore implements store.AnalyticsStore interface
var _ store.AnalyticsStore = (*PostgresAnalyticsStore)(nil)

// WithTx implements store.AnalyticsStore.WithTx
func (s *PostgresAnalyticsStore) WithTx(tx *sql.Tx) store.AnalyticsStore {
	return &PostgresAnalyticsStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.AnalyticsStore.Create
// Returns store.ErrSnapshotExists if a snapshot for the owner was created
// concurrently (unique violation on owner_id).
func (s *PostgresAnalyticsStore) Create(ctx context.Context, snapshot *domain.AnalyticsSnapshot) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := snapshot.Validate(); err != nil {
		log.Warn("snapshot validation failed during create",
			slog.String("error", err.Error()),
			slog.String("owner_id", snapshot.OwnerID.String()))
		return err
	}

	query := `
		INSERT INTO analytics_snapshots (owner_id, total_sheets_processed, average_score, total_processing_seconds, last_updated)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		snapshot.OwnerID,
		snapshot.TotalSheetsProcessed,
		snapshot.AverageScore,
		snapshot.TotalProcessingSeconds,
		snapshot.LastUpdated,
	)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolationCode {
			log.Debug("snapshot created concurrently",
				slog.String("owner_id", snapshot.OwnerID.String()))
			return fmt.Errorf("%w: owner %s", store.ErrSnapshotExists, snapshot.OwnerID)
		}

		log.Error("failed to create snapshot",
			slog.String("error", err.Error()),
			slog.String("owner_id", snapshot.OwnerID.String()))
		return store.NewStoreError("analytics_snapshot", "create", "failed to insert snapshot", err)
	}

	log.Info("snapshot created",
		slog.String("owner_id", snapshot.OwnerID.String()))
	return nil
}

const snapshotColumns = `owner_id, total_sheets_processed, average_score, total_processing_seconds, last_updated`

// Get implements store.AnalyticsStore.Get
// NOTE: no row locking; use GetForUpdate inside a transaction when the
// snapshot will be modified.
func (s *PostgresAnalyticsStore) Get(ctx context.Context, ownerID uuid.UUID) (*domain.AnalyticsSnapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM analytics_snapshots WHERE owner_id = $1`
	return s.getSnapshot(ctx, query, ownerID)
}

// GetForUpdate implements store.AnalyticsStore.GetForUpdate
// It takes a row-level lock with SELECT ... FOR UPDATE so concurrent
// completions for the same owner are serialized.
func (s *PostgresAnalyticsStore) GetForUpdate(ctx context.Context, ownerID uuid.UUID) (*domain.AnalyticsSnapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM analytics_snapshots WHERE owner_id = $1 FOR UPDATE`
	return s.getSnapshot(ctx, query, ownerID)
}

func (s *PostgresAnalyticsStore) getSnapshot(
	ctx context.Context,
	query string,
	ownerID uuid.UUID,
) (*domain.AnalyticsSnapshot, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var snapshot domain.AnalyticsSnapshot
	err := s.db.QueryRowContext(ctx, query, ownerID).Scan(
		&snapshot.OwnerID,
		&snapshot.TotalSheetsProcessed,
		&snapshot.AverageScore,
		&snapshot.TotalProcessingSeconds,
		&snapshot.LastUpdated,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("snapshot not found", slog.String("owner_id", ownerID.String()))
			return nil, store.ErrSnapshotNotFound
		}
		log.Error("failed to get snapshot",
			slog.String("error", err.Error()),
			slog.String("owner_id", ownerID.String()))
		return nil, store.NewStoreError("analytics_snapshot", "get", "failed to read snapshot", err)
	}

	return &snapshot, nil
}

// Update implements store.AnalyticsStore.Update
// Returns store.ErrSnapshotNotFound if the snapshot does not exist.
func (s *PostgresAnalyticsStore) Update(ctx context.Context, snapshot *domain.AnalyticsSnapshot) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := snapshot.Validate(); err != nil {
		log.Warn("snapshot validation failed during update",
			slog.String("error", err.Error()),
			slog.String("owner_id", snapshot.OwnerID.String()))
		return err
	}

	query := `
		UPDATE analytics_snapshots
		SET total_sheets_processed = $1, average_score = $2, total_processing_seconds = $3, last_updated = $4
		WHERE owner_id = $5
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		snapshot.TotalSheetsProcessed,
		snapshot.AverageScore,
		snapshot.TotalProcessingSeconds,
		snapshot.LastUpdated,
		snapshot.OwnerID,
	)

	if err != nil {
		log.Error("failed to update snapshot",
			slog.String("error", err.Error()),
			slog.String("owner_id", snapshot.OwnerID.String()))
		return store.NewStoreError("analytics_snapshot", "update", "failed to update snapshot", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return store.NewStoreError("analytics_snapshot", "update", "failed to read rows affected", err)
	}

	if rowsAffected == 0 {
		return store.ErrSnapshotNotFound
	}

	log.Info("snapshot updated",
		slog.String("owner_id", snapshot.OwnerID.String()),
		slog.Int("total_sheets_processed", snapshot.TotalSheetsProcessed))
	return nil
}
