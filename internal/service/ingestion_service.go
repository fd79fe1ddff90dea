package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/gradeflow/gradeflow-api/internal/artifact"
	"github.com/gradeflow/gradeflow-api/internal/config"
	"github.com/gradeflow/gradeflow-api/internal/domain"
	"github.com/gradeflow/gradeflow-api/internal/store"
	"github.com/gradeflow/gradeflow-api/internal/task"
)

// TaskEnqueuer defines the interface for handing work to the pipeline.
type TaskEnqueuer interface {
	// Submit adds a task to the processing queue
	Submit(ctx context.Context, t task.Task) error
}

// GradingTaskFactory creates grading tasks for submitted sheets.
type GradingTaskFactory interface {
	// CreateTask creates a new grading task for the specified sheet
	CreateTask(sheetID uuid.UUID) (task.Task, error)
}

// IngestionService validates and records new submissions.
type IngestionService interface {
	// Submit stores the uploaded artifact, creates a pending AnswerSheet
	// and enqueues it for grading. The operation is all-or-nothing from
	// the caller's view: if the metadata insert fails after a successful
	// artifact write, the artifact write is compensated.
	Submit(ctx context.Context, ownerID uuid.UUID, title string, data []byte, contentType string) (*domain.AnswerSheet, error)

	// Withdraw removes a sheet that is still pending, along with its
	// stored artifact (best effort). Returns ErrSheetNotPending once
	// processing has begun.
	Withdraw(ctx context.Context, ownerID, sheetID uuid.UUID) error
}

// IngestionServiceError wraps errors from the ingestion service with context.
type IngestionServiceError struct {
	// Operation is the operation that failed (e.g., "submit", "withdraw")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for IngestionServiceError.
func (e *IngestionServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ingestion %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("ingestion %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *IngestionServiceError) Unwrap() error {
	return e.Err
}

// ingestionServiceImpl implements the IngestionService interface
type ingestionServiceImpl struct {
	sheets      store.SheetStore
	artifacts   artifact.Store
	taskRunner  TaskEnqueuer
	taskFactory GradingTaskFactory
	cfg         config.IngestionConfig
	logger      *slog.Logger
}

// NewIngestionService creates a new IngestionService.
// It returns an error if any of the required dependencies are nil.
func NewIngestionService(
	sheets store.SheetStore,
	artifacts artifact.Store,
	taskRunner TaskEnqueuer,
	taskFactory GradingTaskFactory,
	cfg config.IngestionConfig,
	logger *slog.Logger,
) (IngestionService, error) {
	if sheets == nil {
		return nil, &IngestionServiceError{Operation: "create_service", Message: "sheet store cannot be nil"}
	}
	if artifacts == nil {
		return nil, &IngestionServiceError{Operation: "create_service", Message: "artifact store cannot be nil"}
	}
	if taskRunner == nil {
		return nil, &IngestionServiceError{Operation: "create_service", Message: "task runner cannot be nil"}
	}
	if taskFactory == nil {
		return nil, &IngestionServiceError{Operation: "create_service", Message: "task factory cannot be nil"}
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &ingestionServiceImpl{
		sheets:      sheets,
		artifacts:   artifacts,
		taskRunner:  taskRunner,
		taskFactory: taskFactory,
		cfg:         cfg,
		logger:      logger.With("component", "ingestion_service"),
	}, nil
}

// Submit implements IngestionService.Submit
func (s *ingestionServiceImpl) Submit(
	ctx context.Context,
	ownerID uuid.UUID,
	title string,
	data []byte,
	contentType string,
) (*domain.AnswerSheet, error) {
	// 1. Validate the submission before touching any external system.
	if err := s.validateSubmission(ownerID, title, data, contentType); err != nil {
		s.logger.Warn("submission rejected",
			"error", err,
			"owner_id", ownerID)
		return nil, err
	}

	// 2. Write the artifact first; the sheet row references it.
	ref, err := s.artifacts.Put(ctx, ownerID, data, contentType)
	if err != nil {
		s.logger.Error("failed to store artifact",
			"error", err,
			"owner_id", ownerID)
		return nil, &IngestionServiceError{Operation: "submit", Message: "failed to store artifact", Err: err}
	}

	// 3. Create the pending sheet record.
	sheet, err := domain.NewAnswerSheet(ownerID, strings.TrimSpace(title), ref)
	if err != nil {
		s.compensateArtifact(ctx, ref)
		return nil, &IngestionServiceError{Operation: "submit", Message: "failed to create sheet object", Err: err}
	}

	if err := s.sheets.Create(ctx, sheet); err != nil {
		s.logger.Error("failed to persist sheet, compensating artifact write",
			"error", err,
			"sheet_id", sheet.ID,
			"owner_id", ownerID)
		s.compensateArtifact(ctx, ref)
		return nil, &IngestionServiceError{Operation: "submit", Message: "failed to save sheet", Err: err}
	}

	s.logger.Info("sheet submitted",
		"sheet_id", sheet.ID,
		"owner_id", ownerID,
		"size_bytes", len(data))

	// 4. Enqueue the grading task. A saturated queue is tolerated: the
	// sheet stays pending and the runner's sweep will pick it up.
	s.enqueueGradingTask(ctx, sheet.ID)

	return sheet, nil
}

// Withdraw implements IngestionService.Withdraw
func (s *ingestionServiceImpl) Withdraw(ctx context.Context, ownerID, sheetID uuid.UUID) error {
	sheet, err := s.sheets.GetByID(ctx, sheetID)
	if err != nil {
		if errors.Is(err, store.ErrSheetNotFound) {
			return ErrSheetNotFound
		}
		return &IngestionServiceError{Operation: "withdraw", Message: "failed to retrieve sheet", Err: err}
	}

	if sheet.OwnerID != ownerID {
		return ErrForbidden
	}

	if err := s.sheets.DeletePending(ctx, sheetID); err != nil {
		switch {
		case errors.Is(err, store.ErrStaleStatus):
			return ErrSheetNotPending
		case errors.Is(err, store.ErrSheetNotFound):
			// Removed concurrently; treat as withdrawn.
			return ErrSheetNotFound
		default:
			return &IngestionServiceError{Operation: "withdraw", Message: "failed to delete sheet", Err: err}
		}
	}

	// Best-effort artifact cleanup; the record is already gone.
	if err := s.artifacts.Delete(ctx, sheet.ArtifactRef); err != nil {
		s.logger.Warn("failed to delete artifact for withdrawn sheet",
			"error", err,
			"sheet_id", sheetID,
			"artifact_ref", sheet.ArtifactRef)
	}

	s.logger.Info("sheet withdrawn",
		"sheet_id", sheetID,
		"owner_id", ownerID)
	return nil
}

// validateSubmission checks the submission against the configured limits.
// All rejections wrap domain.ErrValidation.
func (s *ingestionServiceImpl) validateSubmission(
	ownerID uuid.UUID,
	title string,
	data []byte,
	contentType string,
) error {
	if ownerID == uuid.Nil {
		return fmt.Errorf("%w: owner ID is required", domain.ErrValidation)
	}

	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("%w: title cannot be empty", domain.ErrValidation)
	}

	if len(data) == 0 {
		return fmt.Errorf("%w: file cannot be empty", domain.ErrValidation)
	}

	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return fmt.Errorf("%w: file size %d exceeds limit of %d bytes",
			domain.ErrValidation, len(data), s.cfg.MaxUploadBytes)
	}

	allowed := false
	for _, mt := range s.cfg.AllowedMimeTypes {
		if strings.EqualFold(mt, contentType) {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("%w: content type %q is not allowed", domain.ErrValidation, contentType)
	}

	return nil
}

// compensateArtifact deletes an artifact written by a submission that
// failed afterwards. Compensation failures are logged, not returned: the
// caller already has the original error.
func (s *ingestionServiceImpl) compensateArtifact(ctx context.Context, ref string) {
	if err := s.artifacts.Delete(ctx, ref); err != nil {
		s.logger.Error("artifact compensation failed, orphaned object remains",
			"error", err,
			"artifact_ref", ref)
	}
}

// enqueueGradingTask creates and submits the grading task for a sheet.
func (s *ingestionServiceImpl) enqueueGradingTask(ctx context.Context, sheetID uuid.UUID) {
	t, err := s.taskFactory.CreateTask(sheetID)
	if err != nil {
		s.logger.Error("failed to create grading task",
			"error", err,
			"sheet_id", sheetID)
		return
	}

	if err := s.taskRunner.Submit(ctx, t); err != nil {
		s.logger.Warn("failed to enqueue grading task, sheet stays pending for recovery",
			"error", err,
			"sheet_id", sheetID)
	}
}
