package task

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gradeflow/gradeflow-api/internal/grading"
	"github.com/gradeflow/gradeflow-api/internal/store"
)

// SheetGradingTaskFactory creates SheetGradingTask instances
type SheetGradingTaskFactory struct {
	txRunner  store.TxRunner
	sheets    store.SheetStore
	results   store.ResultStore
	engine    grading.Engine
	analytics AnalyticsRecorder
	deadline  time.Duration
	logger    *slog.Logger
}

// NewSheetGradingTaskFactory creates a new factory for SheetGradingTasks
func NewSheetGradingTaskFactory(
	txRunner store.TxRunner,
	sheets store.SheetStore,
	results store.ResultStore,
	engine grading.Engine,
	analytics AnalyticsRecorder,
	deadline time.Duration,
	logger *slog.Logger,
) *SheetGradingTaskFactory {
	return &SheetGradingTaskFactory{
		txRunner:  txRunner,
		sheets:    sheets,
		results:   results,
		engine:    engine,
		analytics: analytics,
		deadline:  deadline,
		logger:    logger.With("component", "sheet_grading_task_factory"),
	}
}

// CreateTask creates a new SheetGradingTask for the specified sheet
func (f *SheetGradingTaskFactory) CreateTask(sheetID uuid.UUID) (Task, error) {
	task, err := NewSheetGradingTask(
		sheetID,
		f.txRunner,
		f.sheets,
		f.results,
		f.engine,
		f.analytics,
		f.deadline,
		f.logger,
	)
	if err != nil {
		return nil, err
	}
	return task, nil
}
