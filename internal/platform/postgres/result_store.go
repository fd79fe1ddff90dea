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

// PostgreSQL error codes
const (
	pgUniqueViolationCode     = "23505"
	pgForeignKeyViolationCode = "23503"
)

// PostgresResultStore implements the store.ResultStore interface
// using a PostgreSQL database as the storage backend.
type PostgresResultStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresResultStore creates a new PostgreSQL implementation of the ResultStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresResultStore(db store.DBTX, logger *slog.Logger) *PostgresResultStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresResultStore{
		db:     db,
		logger: logger.With(slog.String("component", "result_store")),
	}
}

// Ensure PostgresResultStore implements store.ResultStore interface
var _ store.ResultStore = (*PostgresResultStore)(nil)

// WithTx implements store.ResultStore.WithTx
func (s *PostgresResultStore) WithTx(tx *sql.Tx) store.ResultStore {
	return &PostgresResultStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.ResultStore.Create
// Returns store.ErrResultExists if the sheet already has a result, backed
// by the unique constraint on sheet_id.
// Returns store.ErrInvalidEntity if the sheet does not exist (foreign key violation).
func (s *PostgresResultStore) Create(ctx context.Context, result *domain.GradingResult) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := result.Validate(); err != nil {
		log.Warn("result validation failed during create",
			slog.String("error", err.Error()),
			slog.String("result_id", result.ID.String()))
		return err
	}

	query := `
		INSERT INTO grading_results (id, sheet_id, owner_id, score, total_score, feedback, extracted_text, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		result.ID,
		result.SheetID,
		result.OwnerID,
		result.Score,
		result.TotalScore,
		result.Feedback,
		result.ExtractedText,
		result.CreatedAt,
	)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgUniqueViolationCode:
				log.Warn("duplicate result for sheet rejected",
					slog.String("sheet_id", result.SheetID.String()))
				return fmt.Errorf("%w: sheet %s", store.ErrResultExists, result.SheetID)
			case pgForeignKeyViolationCode:
				log.Warn("foreign key violation during result creation",
					slog.String("sheet_id", result.SheetID.String()))
				return fmt.Errorf("%w: sheet with ID %s not found",
					store.ErrInvalidEntity, result.SheetID)
			}
		}

		log.Error("failed to create result",
			slog.String("error", err.Error()),
			slog.String("result_id", result.ID.String()),
			slog.String("sheet_id", result.SheetID.String()))
		return store.NewStoreError("grading_result", "create", "failed to insert result", err)
	}

	log.Info("result created successfully",
		slog.String("result_id", result.ID.String()),
		slog.String("sheet_id", result.SheetID.String()),
		slog.Int("score", result.Score),
		slog.Int("total_score", result.TotalScore))
	return nil
}

// GetBySheetID implements store.ResultStore.GetBySheetID
// Returns store.ErrResultNotFound if the sheet has no result.
func (s *PostgresResultStore) GetBySheetID(ctx context.Context, sheetID uuid.UUID) (*domain.GradingResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, sheet_id, owner_id, score, total_score, feedback, extracted_text, created_at
		FROM grading_results
		WHERE sheet_id = $1
	`

	var result domain.GradingResult
	var feedback, extractedText sql.NullString

	err := s.db.QueryRowContext(ctx, query, sheetID).Scan(
		&result.ID,
		&result.SheetID,
		&result.OwnerID,
		&result.Score,
		&result.TotalScore,
		&feedback,
		&extractedText,
		&result.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("result not found", slog.String("sheet_id", sheetID.String()))
			return nil, store.ErrResultNotFound
		}
		log.Error("failed to get result by sheet ID",
			slog.String("error", err.Error()),
			slog.String("sheet_id", sheetID.String()))
		return nil, store.NewStoreError("grading_result", "get", "failed to read result", err)
	}

	if feedback.Valid {
		result.Feedback = feedback.String
	}
	if extractedText.Valid {
		result.ExtractedText = extractedText.String
	}

	return &result, nil
}
