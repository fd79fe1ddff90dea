package task

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gradeflow/gradeflow-api/internal/domain"
	"github.com/gradeflow/gradeflow-api/internal/grading"
	"github.com/gradeflow/gradeflow-api/internal/store"
)

// Status constants for SheetGradingTask
// These match the TaskStatus values defined in task.go
const (
	statusPending    = "pending"
	statusProcessing = "processing"
	statusCompleted  = "completed"
	statusFailed     = "failed"
)

// Common errors
var (
	ErrNilTxRunner     = errors.New("transaction runner cannot be nil")
	ErrNilSheetStore   = errors.New("sheet store cannot be nil")
	ErrNilResultStore  = errors.New("result store cannot be nil")
	ErrNilEngine       = errors.New("grading engine cannot be nil")
	ErrNilRecorder     = errors.New("analytics recorder cannot be nil")
	ErrNilLogger       = errors.New("logger cannot be nil")
	ErrEmptySheetID    = errors.New("sheet ID cannot be empty")
	ErrInvalidDeadline = errors.New("processing deadline must be positive")
)

// AnalyticsRecorder defines the interface for folding a completed grading
// into the owner's aggregate snapshot.
type AnalyticsRecorder interface {
	// RecordCompletion records one completed sheet for the owner
	RecordCompletion(ctx context.Context, ownerID uuid.UUID, percentage, elapsedSeconds float64) error
}

// sheetGradingPayload represents the serialized data stored in the task
type sheetGradingPayload struct {
	SheetID uuid.UUID `json:"sheet_id"`
}

// evaluation carries the engine outcome across the watchdog boundary
type evaluation struct {
	result *grading.Result
	err    error
}

// SheetGradingTask implements the Task interface for grading a single
// uploaded answer sheet. It drives the sheet's full status lifecycle:
// claim (pending -> processing), evaluate, then exactly one terminal
// transition. All status updates are conditional on the expected current
// status, so a duplicate trigger or a late engine response degrades to a
// logged no-op instead of a double transition.
type SheetGradingTask struct {
	id        uuid.UUID
	sheetID   uuid.UUID
	txRunner  store.TxRunner
	sheets    store.SheetStore
	results   store.ResultStore
	engine    grading.Engine
	analytics AnalyticsRecorder
	deadline  time.Duration
	logger    *slog.Logger
	status    string // Using string instead of TaskStatus to avoid initialization cycles
}

// NewSheetGradingTask creates a new grading task for the given sheet
func NewSheetGradingTask(
	sheetID uuid.UUID,
	txRunner store.TxRunner,
	sheets store.SheetStore,
	results store.ResultStore,
	engine grading.Engine,
	analytics AnalyticsRecorder,
	deadline time.Duration,
	logger *slog.Logger,
) (*SheetGradingTask, error) {
	// Validate dependencies
	if txRunner == nil {
		return nil, ErrNilTxRunner
	}
	if sheets == nil {
		return nil, ErrNilSheetStore
	}
	if results == nil {
		return nil, ErrNilResultStore
	}
	if engine == nil {
		return nil, ErrNilEngine
	}
	if analytics == nil {
		return nil, ErrNilRecorder
	}
	if logger == nil {
		return nil, ErrNilLogger
	}

	if sheetID == uuid.Nil {
		return nil, ErrEmptySheetID
	}
	if deadline <= 0 {
		return nil, ErrInvalidDeadline
	}

	return &SheetGradingTask{
		id:        uuid.New(),
		sheetID:   sheetID,
		txRunner:  txRunner,
		sheets:    sheets,
		results:   results,
		engine:    engine,
		analytics: analytics,
		deadline:  deadline,
		logger:    logger.With("task_type", TaskTypeSheetGrading, "sheet_id", sheetID),
		status:    statusPending,
	}, nil
}

// ID returns the task's unique identifier
func (t *SheetGradingTask) ID() uuid.UUID {
	return t.id
}

// Type returns the task type identifier
func (t *SheetGradingTask) Type() string {
	return TaskTypeSheetGrading
}

// SheetID returns the sheet this task grades
func (t *SheetGradingTask) SheetID() uuid.UUID {
	return t.sheetID
}

// Payload returns the task data as a byte slice
func (t *SheetGradingTask) Payload() []byte {
	payload := sheetGradingPayload{
		SheetID: t.sheetID,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		// If marshal fails, return an empty payload with error logged
		t.logger.Error("failed to marshal task payload", "error", err)
		return []byte{}
	}

	return data
}

// Status returns the current task status
// We convert the string to TaskStatus to fulfill the Task interface
func (t *SheetGradingTask) Status() TaskStatus {
	return TaskStatus(t.status)
}

// Execute runs the grading task, handling the complete lifecycle from
// claiming the sheet, evaluating it against the deadline, persisting the
// result atomically with the status transition, and recording analytics.
func (t *SheetGradingTask) Execute(ctx context.Context) error {
	t.status = statusProcessing
	t.logger.Info("starting sheet grading task")

	// Check for context cancellation
	if err := ctx.Err(); err != nil {
		t.status = statusFailed
		t.logger.Error("task cancelled by context", "error", err)
		return fmt.Errorf("task cancelled by context: %w", err)
	}

	// 1. Claim the sheet, stamping when processing began so the sweep
	// measures the deadline from the claim rather than from upload. A
	// failed claim is not an error: the sheet was either already picked up
	// (duplicate trigger) or withdrawn.
	startedAt := time.Now().UTC()
	if err := t.sheets.MarkProcessing(ctx, t.sheetID, startedAt); err != nil {
		switch {
		case errors.Is(err, store.ErrStaleStatus):
			t.status = statusCompleted
			t.logger.Info("sheet already claimed, skipping duplicate trigger")
			return nil
		case errors.Is(err, store.ErrSheetNotFound):
			t.status = statusCompleted
			t.logger.Info("sheet no longer exists, skipping")
			return nil
		default:
			t.status = statusFailed
			t.logger.Error("failed to claim sheet", "error", err)
			return fmt.Errorf("failed to claim sheet: %w", err)
		}
	}

	// 2. Retrieve the claimed sheet for its artifact reference and owner.
	sheet, err := t.sheets.GetByID(ctx, t.sheetID)
	if err != nil {
		t.failSheet(ctx, "internal error retrieving sheet")
		t.status = statusFailed
		t.logger.Error("failed to retrieve claimed sheet", "error", err)
		return fmt.Errorf("failed to retrieve claimed sheet: %w", err)
	}

	// 3. Evaluate with the watchdog deadline. The engine call runs in its
	// own goroutine so a hung engine cannot outlive the deadline.
	result, err := t.evaluate(ctx, sheet.ArtifactRef)
	if err != nil {
		t.failSheet(ctx, failureReason(err))
		t.status = statusFailed
		t.logger.Error("evaluation failed", "error", err)
		return fmt.Errorf("evaluation failed: %w", err)
	}

	processedAt := time.Now().UTC()
	elapsed := processedAt.Sub(startedAt).Seconds()

	gradingResult, err := domain.NewGradingResult(
		sheet.ID,
		sheet.OwnerID,
		result.Score,
		result.TotalScore,
		result.Feedback,
		result.ExtractedText,
	)
	if err != nil {
		t.failSheet(ctx, "engine returned an invalid result")
		t.status = statusFailed
		t.logger.Error("engine result failed validation", "error", err)
		return fmt.Errorf("engine result failed validation: %w", err)
	}

	// 4. Persist the result and the completed transition atomically. If the
	// watchdog already failed the sheet, the conditional update reports a
	// stale status, the transaction rolls back, and the late result is
	// discarded without a trace in the result table.
	err = t.txRunner.RunInTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		// The status guard runs first: a stale status aborts before the
		// result row is written.
		if err := t.sheets.WithTx(tx).MarkCompleted(ctx, t.sheetID, processedAt); err != nil {
			return err
		}
		return t.results.WithTx(tx).Create(ctx, gradingResult)
	})
	if err != nil {
		if errors.Is(err, store.ErrStaleStatus) || errors.Is(err, store.ErrResultExists) {
			t.status = statusCompleted
			t.logger.Warn("sheet already finalized, discarding late engine result",
				"error", err)
			return nil
		}
		t.status = statusFailed
		t.logger.Error("failed to persist grading result", "error", err)
		return fmt.Errorf("failed to persist grading result: %w", err)
	}

	// 5. Record analytics. Failure here never invalidates the grading: the
	// result is already durable, so a conflict is logged and swallowed.
	if err := t.analytics.RecordCompletion(ctx, sheet.OwnerID, gradingResult.Percentage(), elapsed); err != nil {
		t.logger.Error("failed to record analytics for completed sheet",
			"error", err,
			"owner_id", sheet.OwnerID)
	}

	t.status = statusCompleted
	t.logger.Info("sheet grading task completed",
		"score", gradingResult.Score,
		"total_score", gradingResult.TotalScore,
		"elapsed_seconds", elapsed)
	return nil
}

// evaluate calls the grading engine, bounded by the processing deadline.
func (t *SheetGradingTask) evaluate(ctx context.Context, artifactRef string) (*grading.Result, error) {
	evalCtx, cancel := context.WithTimeout(ctx, t.deadline)
	defer cancel()

	done := make(chan evaluation, 1)
	go func() {
		result, err := t.engine.Evaluate(evalCtx, artifactRef)
		done <- evaluation{result: result, err: err}
	}()

	select {
	case ev := <-done:
		if ev.err != nil {
			return nil, ev.err
		}
		return ev.result, nil
	case <-evalCtx.Done():
		return nil, fmt.Errorf("%w after %s", grading.ErrDeadlineExceeded, t.deadline)
	}
}

// failSheet applies the processing -> failed transition. A stale status
// means another actor (typically the stuck-sheet sweep) already finalized
// the sheet, which is fine: exactly one terminal transition happened.
func (t *SheetGradingTask) failSheet(ctx context.Context, reason string) {
	err := t.sheets.MarkFailed(ctx, t.sheetID, time.Now().UTC(), reason)
	if err != nil && !errors.Is(err, store.ErrStaleStatus) && !errors.Is(err, store.ErrSheetNotFound) {
		t.logger.Error("failed to mark sheet as failed", "error", err, "reason", reason)
	}
}

// failureReason maps an evaluation error to the reason recorded on the
// failed sheet. Engine internals are not leaked into user-visible state.
func failureReason(err error) string {
	switch {
	case errors.Is(err, grading.ErrDeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return "processing deadline exceeded"
	case errors.Is(err, grading.ErrInvalidResponse):
		return "grading engine returned an unusable response"
	default:
		return "grading engine evaluation failed"
	}
}
