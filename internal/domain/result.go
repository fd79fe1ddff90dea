package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for GradingResult
var (
	ErrEmptyResultID      = errors.New("result ID cannot be empty")
	ErrEmptyResultSheetID = errors.New("result sheet ID cannot be empty")
	ErrEmptyResultOwnerID = errors.New("result owner ID cannot be empty")
	ErrNegativeScore      = errors.New("score cannot be negative")
	ErrNonPositiveTotal   = errors.New("total score must be positive")
	ErrScoreExceedsTotal  = errors.New("score cannot exceed total score")
)

// GradingResult is the outcome of evaluating one answer sheet. At most one
// result exists per sheet (enforced by a unique constraint on SheetID).
// Results are created exactly once, at the processing -> completed
// transition, and never mutated afterward.
type GradingResult struct {
	ID            uuid.UUID `json:"id"`
	SheetID       uuid.UUID `json:"sheet_id"`
	OwnerID       uuid.UUID `json:"owner_id"`
	Score         int       `json:"score"`
	TotalScore    int       `json:"total_score"`
	Feedback      string    `json:"feedback,omitempty"`
	ExtractedText string    `json:"extracted_text,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewGradingResult creates a GradingResult for the given sheet.
// Returns an error if validation fails.
func NewGradingResult(
	sheetID, ownerID uuid.UUID,
	score, totalScore int,
	feedback, extractedText string,
) (*GradingResult, error) {
	result := &GradingResult{
		ID:            uuid.New(),
		SheetID:       sheetID,
		OwnerID:       ownerID,
		Score:         score,
		TotalScore:    totalScore,
		Feedback:      feedback,
		ExtractedText: extractedText,
		CreatedAt:     time.Now().UTC(),
	}

	if err := result.Validate(); err != nil {
		return nil, err
	}

	return result, nil
}

// Validate checks if the GradingResult has valid data.
// Returns an error if any field fails validation.
func (r *GradingResult) Validate() error {
	if r.ID == uuid.Nil {
		return ErrEmptyResultID
	}

	if r.SheetID == uuid.Nil {
		return ErrEmptyResultSheetID
	}

	if r.OwnerID == uuid.Nil {
		return ErrEmptyResultOwnerID
	}

	if r.Score < 0 {
		return ErrNegativeScore
	}

	if r.TotalScore <= 0 {
		return ErrNonPositiveTotal
	}

	if r.Score > r.TotalScore {
		return ErrScoreExceedsTotal
	}

	return nil
}

// Percentage returns the score as a percentage of the total. It is always
// recomputed from Score and TotalScore, never stored independently.
func (r *GradingResult) Percentage() float64 {
	return float64(r.Score) / float64(r.TotalScore) * 100
}
