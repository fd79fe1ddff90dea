package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/gradeflow/gradeflow-api/internal/domain"
	"github.com/gradeflow/gradeflow-api/internal/store"
)

// analyticsRetryBase is the initial backoff applied to a contended
// snapshot update before it is retried.
const analyticsRetryBase = 50 * time.Millisecond

// AnalyticsService maintains the per-owner running aggregates.
type AnalyticsService interface {
	// RecordCompletion folds one completed sheet into the owner's
	// snapshot. It is applied exactly once per completion (the
	// orchestrator's idempotency guarantee holds upstream). Concurrent
	// completions for the same owner are serialized through a row lock;
	// the whole read-modify-write is retried with bounded exponential
	// backoff and surfaces ErrAnalyticsConflict on exhaustion.
	RecordCompletion(ctx context.Context, ownerID uuid.UUID, percentage, elapsedSeconds float64) error
}

// AnalyticsServiceError wraps errors from the analytics service with context.
type AnalyticsServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for AnalyticsServiceError.
func (e *AnalyticsServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("analytics %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("analytics %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *AnalyticsServiceError) Unwrap() error {
	return e.Err
}

// analyticsServiceImpl implements the AnalyticsService interface
type analyticsServiceImpl struct {
	txRunner   store.TxRunner
	snapshots  store.AnalyticsStore
	maxRetries int
	logger     *slog.Logger
}

// NewAnalyticsService creates a new AnalyticsService.
// It returns an error if any of the required dependencies are nil.
func NewAnalyticsService(
	txRunner store.TxRunner,
	snapshots store.AnalyticsStore,
	maxRetries int,
	logger *slog.Logger,
) (AnalyticsService, error) {
	if txRunner == nil {
		return nil, &AnalyticsServiceError{Operation: "create_service", Message: "transaction runner cannot be nil"}
	}
	if snapshots == nil {
		return nil, &AnalyticsServiceError{Operation: "create_service", Message: "analytics store cannot be nil"}
	}
	if maxRetries < 0 {
		maxRetries = 0
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &analyticsServiceImpl{
		txRunner:   txRunner,
		snapshots:  snapshots,
		maxRetries: maxRetries,
		logger:     logger.With("component", "analytics_service"),
	}, nil
}

// RecordCompletion implements AnalyticsService.RecordCompletion
func (s *analyticsServiceImpl) RecordCompletion(
	ctx context.Context,
	ownerID uuid.UUID,
	percentage, elapsedSeconds float64,
) error {
	if ownerID == uuid.Nil {
		return &AnalyticsServiceError{Operation: "record_completion", Message: "owner ID is required"}
	}

	backoff := retry.WithMaxRetries(uint64(s.maxRetries), retry.NewExponential(analyticsRetryBase))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := s.applyOnce(ctx, ownerID, percentage, elapsedSeconds)
		if err == nil {
			return nil
		}

		// Validation problems will not heal on retry; everything else
		// (lost lock races, concurrent snapshot creation, transient
		// database failures) is worth another attempt.
		if errors.Is(err, domain.ErrValidation) {
			return err
		}

		s.logger.Debug("analytics update attempt failed, will retry",
			"error", err,
			"owner_id", ownerID)
		return retry.RetryableError(err)
	})

	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			return &AnalyticsServiceError{Operation: "record_completion", Message: "invalid snapshot data", Err: err}
		}
		s.logger.Error("analytics update retries exhausted",
			"error", err,
			"owner_id", ownerID,
			"max_retries", s.maxRetries)
		return fmt.Errorf("%w: owner %s: %v", ErrAnalyticsConflict, ownerID, err)
	}

	s.logger.Info("completion recorded",
		"owner_id", ownerID,
		"percentage", percentage,
		"elapsed_seconds", elapsedSeconds)
	return nil
}

// applyOnce performs a single serialized read-modify-write of the owner's
// snapshot inside a transaction.
func (s *analyticsServiceImpl) applyOnce(
	ctx context.Context,
	ownerID uuid.UUID,
	percentage, elapsedSeconds float64,
) error {
	return s.txRunner.RunInTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		txSnapshots := s.snapshots.WithTx(tx)

		snapshot, err := txSnapshots.GetForUpdate(ctx, ownerID)
		if err != nil {
			if errors.Is(err, store.ErrSnapshotNotFound) {
				// First completion for this owner: create the snapshot
				// lazily. A concurrent first completion loses the unique
				// constraint race and retries against the winner's row.
				initial, newErr := domain.NewAnalyticsSnapshot(ownerID, percentage, elapsedSeconds)
				if newErr != nil {
					return fmt.Errorf("%w: %v", domain.ErrValidation, newErr)
				}
				return txSnapshots.Create(ctx, initial)
			}
			return err
		}

		snapshot.ApplyCompletion(percentage, elapsedSeconds)
		return txSnapshots.Update(ctx, snapshot)
	})
}
