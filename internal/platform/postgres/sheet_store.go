package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gradeflow/gradeflow-api/internal/domain"
	"github.com/gradeflow/gradeflow-api/internal/platform/logger"
	"github.com/gradeflow/gradeflow-api/internal/store"
)

// PostgresSheetStore implements the store.SheetStore interface
// using a PostgreSQL database as the storage backend.
type PostgresSheetStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresSheetStore creates a new PostgreSQL implementation of the SheetStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresSheetStore(db store.DBTX, logger *slog.Logger) *PostgresSheetStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresSheetStore{
		db:     db,
		logger: logger.With(slog.String("component", "sheet_store")),
	}
}

// Ensure PostgresSheetStore implements store.SheetStore interface
var _ store.SheetStore = (*PostgresSheetStore)(nil)

// WithTx implements store.SheetStore.WithTx
func (s *PostgresSheetStore) WithTx(tx *sql.Tx) store.SheetStore {
	return &PostgresSheetStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.SheetStore.Create
// It saves a new answer sheet to the database, handling domain validation.
func (s *PostgresSheetStore) Create(ctx context.Context, sheet *domain.AnswerSheet) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := sheet.Validate(); err != nil {
		log.Warn("sheet validation failed during create",
			slog.String("error", err.Error()),
			slog.String("sheet_id", sheet.ID.String()))
		return err
	}

	query := `
		INSERT INTO answer_sheets (id, owner_id, title, artifact_ref, status, failure_reason, uploaded_at, processing_started_at, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		sheet.ID,
		sheet.OwnerID,
		sheet.Title,
		sheet.ArtifactRef,
		sheet.Status,
		sheet.FailureReason,
		sheet.UploadedAt,
		sheet.ProcessingStartedAt,
		sheet.ProcessedAt,
	)

	if err != nil {
		log.Error("failed to create sheet",
			slog.String("error", err.Error()),
			slog.String("sheet_id", sheet.ID.String()),
			slog.String("owner_id", sheet.OwnerID.String()))
		return store.NewStoreError("answer_sheet", "create", "failed to insert sheet", err)
	}

	log.Info("sheet created successfully",
		slog.String("sheet_id", sheet.ID.String()),
		slog.String("owner_id", sheet.OwnerID.String()),
		slog.String("status", string(sheet.Status)))
	return nil
}

const sheetColumns = `id, owner_id, title, artifact_ref, status, failure_reason, uploaded_at, processing_started_at, processed_at`

// scanSheet scans one answer sheet row from the given row scanner.
func scanSheet(scan func(dest ...any) error) (*domain.AnswerSheet, error) {
	var sheet domain.AnswerSheet
	var status string
	var failureReason sql.NullString
	var processingStartedAt sql.NullTime
	var processedAt sql.NullTime

	err := scan(
		&sheet.ID,
		&sheet.OwnerID,
		&sheet.Title,
		&sheet.ArtifactRef,
		&status,
		&failureReason,
		&sheet.UploadedAt,
		&processingStartedAt,
		&processedAt,
	)
	if err != nil {
		return nil, err
	}

	sheet.Status = domain.SheetStatus(status)
	if failureReason.Valid {
		sheet.FailureReason = failureReason.String
	}
	if processingStartedAt.Valid {
		t := processingStartedAt.Time
		sheet.ProcessingStartedAt = &t
	}
	if processedAt.Valid {
		t := processedAt.Time
		sheet.ProcessedAt = &t
	}

	return &sheet, nil
}

// GetByID implements store.SheetStore.GetByID
// Returns store.ErrSheetNotFound if the sheet does not exist.
func (s *PostgresSheetStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.AnswerSheet, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + sheetColumns + ` FROM answer_sheets WHERE id = $1`

	row := s.db.QueryRowContext(ctx, query, id)
	sheet, err := scanSheet(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("sheet not found", slog.String("sheet_id", id.String()))
			return nil, store.ErrSheetNotFound
		}
		log.Error("failed to get sheet by ID",
			slog.String("error", err.Error()),
			slog.String("sheet_id", id.String()))
		return nil, store.NewStoreError("answer_sheet", "get", "failed to read sheet", err)
	}

	return sheet, nil
}

// ListByOwner implements store.SheetStore.ListByOwner
// Sheets are ordered by uploaded_at descending.
func (s *PostgresSheetStore) ListByOwner(
	ctx context.Context,
	ownerID uuid.UUID,
	limit int,
) ([]*domain.AnswerSheet, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if limit <= 0 {
		limit = 10 // Default limit
	}

	query := `
		SELECT ` + sheetColumns + `
		FROM answer_sheets
		WHERE owner_id = $1
		ORDER BY uploaded_at DESC
		LIMIT $2
	`

	return s.querySheets(ctx, log, query, ownerID, limit)
}

// FindByStatus implements store.SheetStore.FindByStatus
// Sheets are ordered by uploaded_at ascending so the oldest work is
// picked up first.
func (s *PostgresSheetStore) FindByStatus(
	ctx context.Context,
	status domain.SheetStatus,
	limit int,
) ([]*domain.AnswerSheet, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT ` + sheetColumns + `
		FROM answer_sheets
		WHERE status = $1
		ORDER BY uploaded_at ASC
		LIMIT $2
	`

	return s.querySheets(ctx, log, query, status, limit)
}

// FindStuckProcessing implements store.SheetStore.FindStuckProcessing
func (s *PostgresSheetStore) FindStuckProcessing(
	ctx context.Context,
	cutoff time.Time,
) ([]*domain.AnswerSheet, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	// The deadline is measured from the claim, not from upload: a sheet may
	// legitimately sit pending longer than the deadline before a worker
	// picks it up.
	query := `
		SELECT ` + sheetColumns + `
		FROM answer_sheets
		WHERE status = $1 AND processing_started_at < $2
		ORDER BY processing_started_at ASC
	`

	return s.querySheets(ctx, log, query, domain.SheetStatusProcessing, cutoff)
}

// querySheets runs a query returning sheet rows and scans them all.
func (s *PostgresSheetStore) querySheets(
	ctx context.Context,
	log *slog.Logger,
	query string,
	args ...any,
) ([]*domain.AnswerSheet, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query sheets", slog.String("error", err.Error()))
		return nil, store.NewStoreError("answer_sheet", "list", "failed to query sheets", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	var sheets []*domain.AnswerSheet
	for rows.Next() {
		sheet, err := scanSheet(rows.Scan)
		if err != nil {
			log.Error("failed to scan sheet row", slog.String("error", err.Error()))
			return nil, store.NewStoreError("answer_sheet", "list", "failed to scan sheet row", err)
		}
		sheets = append(sheets, sheet)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows", slog.String("error", err.Error()))
		return nil, store.NewStoreError("answer_sheet", "list", "row iteration failed", err)
	}

	// Return empty slice instead of nil if no sheets found
	if sheets == nil {
		sheets = []*domain.AnswerSheet{}
	}

	return sheets, nil
}

// MarkProcessing implements store.SheetStore.MarkProcessing
// The update is conditional on the sheet being pending; zero rows affected
// means a duplicate or stale trigger and yields store.ErrStaleStatus.
func (s *PostgresSheetStore) MarkProcessing(ctx context.Context, id uuid.UUID, startedAt time.Time) error {
	query := `
		UPDATE answer_sheets
		SET status = $1, processing_started_at = $2
		WHERE id = $3 AND status = $4
	`
	return s.conditionalUpdate(ctx, id, "mark_processing", query,
		domain.SheetStatusProcessing, startedAt, id, domain.SheetStatusPending)
}

// MarkCompleted implements store.SheetStore.MarkCompleted
func (s *PostgresSheetStore) MarkCompleted(ctx context.Context, id uuid.UUID, processedAt time.Time) error {
	query := `
		UPDATE answer_sheets
		SET status = $1, processed_at = $2
		WHERE id = $3 AND status = $4
	`
	return s.conditionalUpdate(ctx, id, "mark_completed", query,
		domain.SheetStatusCompleted, processedAt, id, domain.SheetStatusProcessing)
}

// MarkFailed implements store.SheetStore.MarkFailed
func (s *PostgresSheetStore) MarkFailed(
	ctx context.Context,
	id uuid.UUID,
	processedAt time.Time,
	reason string,
) error {
	query := `
		UPDATE answer_sheets
		SET status = $1, processed_at = $2, failure_reason = $3
		WHERE id = $4 AND status = $5
	`
	return s.conditionalUpdate(ctx, id, "mark_failed", query,
		domain.SheetStatusFailed, processedAt, reason, id, domain.SheetStatusProcessing)
}

// DeletePending implements store.SheetStore.DeletePending
func (s *PostgresSheetStore) DeletePending(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `DELETE FROM answer_sheets WHERE id = $1 AND status = $2`

	result, err := s.db.ExecContext(ctx, query, id, domain.SheetStatusPending)
	if err != nil {
		log.Error("failed to delete pending sheet",
			slog.String("error", err.Error()),
			slog.String("sheet_id", id.String()))
		return store.NewStoreError("answer_sheet", "delete", "failed to delete pending sheet", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return store.NewStoreError("answer_sheet", "delete", "failed to read rows affected", err)
	}

	if rowsAffected == 0 {
		// Distinguish a missing sheet from one that left pending.
		if _, err := s.GetByID(ctx, id); err != nil {
			return err
		}
		log.Debug("sheet no longer pending, delete refused",
			slog.String("sheet_id", id.String()))
		return store.ErrStaleStatus
	}

	log.Info("pending sheet deleted", slog.String("sheet_id", id.String()))
	return nil
}

// conditionalUpdate executes a guarded status transition and translates
// "zero rows affected" into ErrSheetNotFound or ErrStaleStatus.
func (s *PostgresSheetStore) conditionalUpdate(
	ctx context.Context,
	id uuid.UUID,
	operation string,
	query string,
	args ...any,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to update sheet status",
			slog.String("error", err.Error()),
			slog.String("operation", operation),
			slog.String("sheet_id", id.String()))
		return store.NewStoreError("answer_sheet", operation, "failed to update sheet status", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Error("failed to get rows affected",
			slog.String("error", err.Error()),
			slog.String("sheet_id", id.String()))
		return store.NewStoreError("answer_sheet", operation, "failed to read rows affected", err)
	}

	if rowsAffected == 0 {
		if _, err := s.GetByID(ctx, id); err != nil {
			return err
		}
		// The sheet exists but was not in the expected prior status, so
		// this transition attempt is stale (duplicate trigger or a late
		// response after the watchdog acted).
		log.Debug("stale status transition ignored",
			slog.String("operation", operation),
			slog.String("sheet_id", id.String()))
		return store.ErrStaleStatus
	}

	log.Info("sheet status updated",
		slog.String("operation", operation),
		slog.String("sheet_id", id.String()))
	return nil
}
