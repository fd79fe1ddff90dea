package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// SheetStatus represents the processing state of an answer sheet.
type SheetStatus string

// Possible sheet status values. Completed and Failed are terminal.
const (
	SheetStatusPending    SheetStatus = "pending"
	SheetStatusProcessing SheetStatus = "processing"
	SheetStatusCompleted  SheetStatus = "completed"
	SheetStatusFailed     SheetStatus = "failed"
)

// Common validation errors for AnswerSheet
var (
	ErrEmptySheetID       = errors.New("sheet ID cannot be empty")
	ErrEmptySheetOwnerID  = errors.New("sheet owner ID cannot be empty")
	ErrEmptySheetTitle    = errors.New("sheet title cannot be empty")
	ErrEmptyArtifactRef   = errors.New("sheet artifact reference cannot be empty")
	ErrMissingProcessedAt = errors.New("terminal sheet must have a processed timestamp")
)

// AnswerSheet represents a single uploaded answer sheet awaiting or
// having undergone evaluation. The record is created by the ingestion
// gateway with status pending and is subsequently mutated only by the
// pipeline orchestrator.
type AnswerSheet struct {
	ID            uuid.UUID   `json:"id"`
	OwnerID       uuid.UUID   `json:"owner_id"`
	Title         string      `json:"title"`
	ArtifactRef   string      `json:"artifact_ref"`
	Status        SheetStatus `json:"status"`
	FailureReason string      `json:"failure_reason,omitempty"`
	UploadedAt    time.Time   `json:"uploaded_at"`

	// ProcessingStartedAt is stamped when a worker claims the sheet. The
	// stuck-sheet sweep measures the processing deadline from this moment,
	// never from upload time: a sheet may legitimately wait in pending far
	// longer than the deadline before being claimed.
	ProcessingStartedAt *time.Time `json:"processing_started_at,omitempty"`
	ProcessedAt         *time.Time `json:"processed_at,omitempty"`
}

// NewAnswerSheet creates a new AnswerSheet with the given owner, title and
// artifact reference. It generates a new UUID for the sheet ID, sets the
// status to pending, and stamps the upload time.
// Returns an error if validation fails.
func NewAnswerSheet(ownerID uuid.UUID, title, artifactRef string) (*AnswerSheet, error) {
	sheet := &AnswerSheet{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Title:       title,
		ArtifactRef: artifactRef,
		Status:      SheetStatusPending,
		UploadedAt:  time.Now().UTC(),
	}

	if err := sheet.Validate(); err != nil {
		return nil, err
	}

	return sheet, nil
}

// Validate checks if the AnswerSheet has valid data.
// Returns an error if any field fails validation.
func (s *AnswerSheet) Validate() error {
	if s.ID == uuid.Nil {
		return ErrEmptySheetID
	}

	if s.OwnerID == uuid.Nil {
		return ErrEmptySheetOwnerID
	}

	if s.Title == "" {
		return ErrEmptySheetTitle
	}

	if s.ArtifactRef == "" {
		return ErrEmptyArtifactRef
	}

	if !isValidSheetStatus(s.Status) {
		return ErrInvalidSheetStatus
	}

	if s.Status.Terminal() && s.ProcessedAt == nil {
		return ErrMissingProcessedAt
	}

	return nil
}

// Terminal reports whether the status permits no further transitions.
func (st SheetStatus) Terminal() bool {
	return st == SheetStatusCompleted || st == SheetStatusFailed
}

// CanTransitionTo reports whether the lifecycle allows moving from the
// current status to next. Transitions are monotonic and acyclic:
// pending -> processing -> {completed, failed}.
func (st SheetStatus) CanTransitionTo(next SheetStatus) bool {
	switch st {
	case SheetStatusPending:
		return next == SheetStatusProcessing
	case SheetStatusProcessing:
		return next == SheetStatusCompleted || next == SheetStatusFailed
	default:
		return false
	}
}

// isValidSheetStatus checks if the given status is a valid SheetStatus.
func isValidSheetStatus(status SheetStatus) bool {
	switch status {
	case SheetStatusPending, SheetStatusProcessing, SheetStatusCompleted, SheetStatusFailed:
		return true
	default:
		return false
	}
}
