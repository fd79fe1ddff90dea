package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/gradeflow/gradeflow-api/internal/domain"
	"github.com/gradeflow/gradeflow-api/internal/store"
)

// defaultListLimit caps the dashboard listing when the caller does not
// request a specific page size.
const defaultListLimit = 10

// SheetDetail pairs a sheet with its grading result. Result is nil until
// the sheet has completed.
type SheetDetail struct {
	Sheet  *domain.AnswerSheet
	Result *domain.GradingResult
}

// QueryService serves read-only views over sheets and analytics.
type QueryService interface {
	// ListSheets returns the owner's sheets, most recently uploaded first.
	// limit <= 0 applies the default page size.
	ListSheets(ctx context.Context, ownerID uuid.UUID, limit int) ([]*domain.AnswerSheet, error)

	// GetSheetDetail returns a single sheet with its result, if any.
	// Returns ErrSheetNotFound when the sheet does not exist and
	// ErrForbidden when it belongs to another owner; the two are never
	// conflated.
	GetSheetDetail(ctx context.Context, ownerID, sheetID uuid.UUID) (*SheetDetail, error)

	// GetAnalytics returns the owner's aggregate snapshot. An owner with
	// no completed sheets gets a zero-valued snapshot, not an error.
	GetAnalytics(ctx context.Context, ownerID uuid.UUID) (*domain.AnalyticsSnapshot, error)
}

// QueryServiceError wraps errors from the query service with context.
type QueryServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for QueryServiceError.
func (e *QueryServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("query %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("query %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *QueryServiceError) Unwrap() error {
	return e.Err
}

// queryServiceImpl implements the QueryService interface
type queryServiceImpl struct {
	sheets    store.SheetStore
	results   store.ResultStore
	snapshots store.AnalyticsStore
	logger    *slog.Logger
}

// NewQueryService creates a new QueryService.
// It returns an error if any of the required dependencies are nil.
func NewQueryService(
	sheets store.SheetStore,
	results store.ResultStore,
	snapshots store.AnalyticsStore,
	logger *slog.Logger,
) (QueryService, error) {
	if sheets == nil {
		return nil, &QueryServiceError{Operation: "create_service", Message: "sheet store cannot be nil"}
	}
	if results == nil {
		return nil, &QueryServiceError{Operation: "create_service", Message: "result store cannot be nil"}
	}
	if snapshots == nil {
		return nil, &QueryServiceError{Operation: "create_service", Message: "analytics store cannot be nil"}
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &queryServiceImpl{
		sheets:    sheets,
		results:   results,
		snapshots: snapshots,
		logger:    logger.With("component", "query_service"),
	}, nil
}

// ListSheets implements QueryService.ListSheets
func (s *queryServiceImpl) ListSheets(
	ctx context.Context,
	ownerID uuid.UUID,
	limit int,
) ([]*domain.AnswerSheet, error) {
	if ownerID == uuid.Nil {
		return nil, &QueryServiceError{Operation: "list_sheets", Message: "owner ID is required"}
	}
	if limit <= 0 {
		limit = defaultListLimit
	}

	sheets, err := s.sheets.ListByOwner(ctx, ownerID, limit)
	if err != nil {
		return nil, &QueryServiceError{Operation: "list_sheets", Message: "failed to list sheets", Err: err}
	}
	return sheets, nil
}

// GetSheetDetail implements QueryService.GetSheetDetail
func (s *queryServiceImpl) GetSheetDetail(
	ctx context.Context,
	ownerID, sheetID uuid.UUID,
) (*SheetDetail, error) {
	sheet, err := s.sheets.GetByID(ctx, sheetID)
	if err != nil {
		if errors.Is(err, store.ErrSheetNotFound) {
			return nil, ErrSheetNotFound
		}
		return nil, &QueryServiceError{Operation: "get_sheet", Message: "failed to retrieve sheet", Err: err}
	}

	if sheet.OwnerID != ownerID {
		return nil, ErrForbidden
	}

	detail := &SheetDetail{Sheet: sheet}

	result, err := s.results.GetBySheetID(ctx, sheetID)
	switch {
	case err == nil:
		detail.Result = result
	case errors.Is(err, store.ErrResultNotFound):
		// No result yet: the sheet is still pending, processing or failed.
	default:
		return nil, &QueryServiceError{Operation: "get_sheet", Message: "failed to retrieve result", Err: err}
	}

	return detail, nil
}

// GetAnalytics implements QueryService.GetAnalytics
func (s *queryServiceImpl) GetAnalytics(
	ctx context.Context,
	ownerID uuid.UUID,
) (*domain.AnalyticsSnapshot, error) {
	if ownerID == uuid.Nil {
		return nil, &QueryServiceError{Operation: "get_analytics", Message: "owner ID is required"}
	}

	snapshot, err := s.snapshots.Get(ctx, ownerID)
	if err != nil {
		if errors.Is(err, store.ErrSnapshotNotFound) {
			return domain.ZeroSnapshot(ownerID), nil
		}
		return nil, &QueryServiceError{Operation: "get_analytics", Message: "failed to retrieve snapshot", Err: err}
	}
	return snapshot, nil
}
