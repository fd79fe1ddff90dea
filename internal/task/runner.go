package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/gradeflow/gradeflow-api/internal/domain"
	"github.com/gradeflow/gradeflow-api/internal/store"
)

// TaskFactory creates grading tasks for sheets, used during recovery and
// by the ingestion gateway when a submission is accepted.
type TaskFactory interface {
	// CreateTask creates a new grading task for the specified sheet
	CreateTask(sheetID uuid.UUID) (Task, error)
}

// GradingRunnerConfig holds configuration for the grading runner
type GradingRunnerConfig struct {
	// WorkerCount determines how many concurrent workers grade sheets
	WorkerCount int

	// QueueSize determines the buffer size for the in-memory task queue
	QueueSize int

	// MaxProcessingTime defines how long a sheet may remain in processing
	// before the sweep forces it to failed
	MaxProcessingTime time.Duration

	// SweepInterval defines how often to check for stuck sheets
	// If zero, defaults to 1 minute
	SweepInterval time.Duration

	// TrackFailures enables counting failed grading tasks. The count is
	// exposed through FailureCount and each failure is logged with the
	// running total.
	TrackFailures bool
}

// DefaultGradingRunnerConfig returns a GradingRunnerConfig with reasonable defaults
func DefaultGradingRunnerConfig() GradingRunnerConfig {
	return GradingRunnerConfig{
		WorkerCount:       4,
		QueueSize:         100,
		MaxProcessingTime: 2 * time.Minute,
		SweepInterval:     time.Minute,
	}
}

// GradingRunner manages background grading of answer sheets. It owns the
// in-memory queue and worker pool, recovers pending sheets on startup, and
// runs the stuck-sheet sweep that guarantees no sheet stays in processing
// past the deadline even across crashes and hung engine calls.
type GradingRunner struct {
	sheets     store.SheetStore
	factory    TaskFactory
	queue      *TaskQueue
	pool       *WorkerPool
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	config     GradingRunnerConfig
	logger     *slog.Logger

	// failureCount tracks failed grading tasks when TrackFailures is set
	failureCount atomic.Int64
}

// NewGradingRunner creates a new GradingRunner
func NewGradingRunner(
	sheets store.SheetStore,
	factory TaskFactory,
	config GradingRunnerConfig,
	logger *slog.Logger,
) *GradingRunner {
	// Apply default sweep interval if not specified
	if config.SweepInterval == 0 {
		config.SweepInterval = time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())

	queue := NewTaskQueue(config.QueueSize, logger)
	pool := NewWorkerPool(queue, WorkerPoolConfig{WorkerCount: config.WorkerCount}, logger)

	r := &GradingRunner{
		sheets:     sheets,
		factory:    factory,
		queue:      queue,
		pool:       pool,
		ctx:        ctx,
		cancelFunc: cancel,
		wg:         sync.WaitGroup{},
		config:     config,
		logger:     logger.With("component", "grading_runner"),
	}

	if config.TrackFailures {
		pool.SetErrorHandler(func(task Task, err error) {
			total := r.failureCount.Add(1)
			r.logger.Warn("grading task failed",
				"task_id", task.ID(),
				"error", err,
				"total_failures", total)
		})
	}

	return r
}

// FailureCount reports how many grading tasks have failed since startup.
// Always zero unless TrackFailures is enabled.
func (r *GradingRunner) FailureCount() int64 {
	return r.failureCount.Load()
}

// Submit adds a new task to the queue
func (r *GradingRunner) Submit(ctx context.Context, task Task) error {
	if err := r.queue.Enqueue(task); err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	return nil
}

// Start recovers unfinished sheets, then begins processing tasks
func (r *GradingRunner) Start() error {
	// Recover sheets left pending by a previous run
	if err := r.Recover(); err != nil {
		return fmt.Errorf("failed to recover sheets: %w", err)
	}

	r.pool.Start()

	// Start goroutine to check for stuck sheets periodically
	r.wg.Add(1)
	go r.stuckSheetSweep()

	return nil
}

// Stop gracefully shuts down the grading runner
func (r *GradingRunner) Stop() {
	r.cancelFunc()
	r.wg.Wait()
	r.queue.Close()
	r.pool.Stop()
}

// Recover re-enqueues sheets that were accepted but never graded. Sheets
// interrupted mid-processing by a crash are not requeued here: processing
// permits only terminal transitions, so the sweep fails them once they
// exceed the deadline.
func (r *GradingRunner) Recover() error {
	ctx := context.Background()

	pending, err := r.sheets.FindByStatus(ctx, domain.SheetStatusPending, r.config.QueueSize)
	if err != nil {
		return fmt.Errorf("failed to find pending sheets: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	r.logger.Info("recovering pending sheets", "count", len(pending))

	for _, sheet := range pending {
		task, err := r.factory.CreateTask(sheet.ID)
		if err != nil {
			r.logger.Error("failed to create recovery task",
				"sheet_id", sheet.ID,
				"error", err)
			continue
		}

		if err := r.queue.Enqueue(task); err != nil {
			// Queue is full; the sheet stays pending and the next sweep
			// cycle picks it up.
			r.logger.Warn("failed to requeue pending sheet",
				"sheet_id", sheet.ID,
				"error", err)
		}
	}

	return nil
}

// stuckSheetSweep periodically finds sheets that have been in processing
// longer than the deadline and forces them to failed. This is the second
// leg of the watchdog: the per-task deadline covers a slow engine, the
// sweep covers crashed workers. It also re-enqueues pending sheets that
// missed their trigger (e.g. submitted while the queue was saturated).
func (r *GradingRunner) stuckSheetSweep() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return

		case <-ticker.C:
			ctx := context.Background()
			r.failStuckSheets(ctx)
			r.requeueMissedSheets(ctx)
		}
	}
}

// failStuckSheets forces a failed transition on sheets that exceeded the
// processing deadline.
func (r *GradingRunner) failStuckSheets(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-r.config.MaxProcessingTime)

	stuck, err := r.sheets.FindStuckProcessing(ctx, cutoff)
	if err != nil {
		r.logger.Error("failed to check for stuck sheets", "error", err)
		return
	}

	if len(stuck) == 0 {
		return
	}

	r.logger.Info("found stuck sheets", "count", len(stuck))

	for _, sheet := range stuck {
		err := r.sheets.MarkFailed(ctx, sheet.ID, time.Now().UTC(), "processing deadline exceeded")
		switch {
		case err == nil:
			r.logger.Info("failed stuck sheet", "sheet_id", sheet.ID)
		case store.IsNotFoundError(err):
			// Removed concurrently; nothing to do.
		default:
			// A stale status means a worker finalized it between the scan
			// and the update, which is the race resolving itself.
			r.logger.Debug("stuck sheet already finalized",
				"sheet_id", sheet.ID,
				"error", err)
		}
	}
}

// requeueMissedSheets re-enqueues sheets that are still pending. Under
// normal operation this finds nothing: every accepted sheet is enqueued at
// submission time. It matters when the queue was full at submission or a
// recovery enqueue was dropped.
func (r *GradingRunner) requeueMissedSheets(ctx context.Context) {
	pending, err := r.sheets.FindByStatus(ctx, domain.SheetStatusPending, r.config.QueueSize)
	if err != nil {
		r.logger.Error("failed to check for missed pending sheets", "error", err)
		return
	}

	// Only requeue sheets old enough that their original trigger has
	// clearly been lost; a freshly submitted sheet is likely already in
	// the queue.
	cutoff := time.Now().UTC().Add(-r.config.SweepInterval)

	for _, sheet := range pending {
		if sheet.UploadedAt.After(cutoff) {
			continue
		}

		task, err := r.factory.CreateTask(sheet.ID)
		if err != nil {
			r.logger.Error("failed to create task for missed sheet",
				"sheet_id", sheet.ID,
				"error", err)
			continue
		}

		if err := r.queue.Enqueue(task); err != nil {
			r.logger.Warn("failed to requeue missed sheet",
				"sheet_id", sheet.ID,
				"error", err)
			return
		}

		r.logger.Info("requeued missed pending sheet", "sheet_id", sheet.ID)
	}
}
