package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for AnalyticsSnapshot
var (
	ErrEmptySnapshotOwnerID = errors.New("snapshot owner ID cannot be empty")
	ErrNegativeSheetCount   = errors.New("processed sheet count cannot be negative")
	ErrInvalidAverageScore  = errors.New("average score must be between 0 and 100")
	ErrNegativeTotalTime    = errors.New("total processing time cannot be negative")
)

// AnalyticsSnapshot is the per-owner running aggregate over all of that
// owner's completed sheets. It is created lazily on the first completion
// and mutated only by the analytics aggregator via a serialized
// read-modify-write.
type AnalyticsSnapshot struct {
	OwnerID                uuid.UUID `json:"owner_id"`
	TotalSheetsProcessed   int       `json:"total_sheets_processed"`
	AverageScore           float64   `json:"average_score"`
	TotalProcessingSeconds float64   `json:"total_processing_seconds"`
	LastUpdated            time.Time `json:"last_updated"`
}

// NewAnalyticsSnapshot creates the initial snapshot for an owner from
// their first completion.
func NewAnalyticsSnapshot(ownerID uuid.UUID, percentage, elapsedSeconds float64) (*AnalyticsSnapshot, error) {
	snapshot := &AnalyticsSnapshot{
		OwnerID:                ownerID,
		TotalSheetsProcessed:   1,
		AverageScore:           percentage,
		TotalProcessingSeconds: elapsedSeconds,
		LastUpdated:            time.Now().UTC(),
	}

	if err := snapshot.Validate(); err != nil {
		return nil, err
	}

	return snapshot, nil
}

// ZeroSnapshot returns an empty snapshot for an owner with no completed
// sheets yet. Reading analytics before any completion is not an error.
func ZeroSnapshot(ownerID uuid.UUID) *AnalyticsSnapshot {
	return &AnalyticsSnapshot{
		OwnerID: ownerID,
	}
}

// Validate checks if the AnalyticsSnapshot has valid data.
func (s *AnalyticsSnapshot) Validate() error {
	if s.OwnerID == uuid.Nil {
		return ErrEmptySnapshotOwnerID
	}

	if s.TotalSheetsProcessed < 0 {
		return ErrNegativeSheetCount
	}

	if s.AverageScore < 0 || s.AverageScore > 100 {
		return ErrInvalidAverageScore
	}

	if s.TotalProcessingSeconds < 0 {
		return ErrNegativeTotalTime
	}

	return nil
}

// ApplyCompletion folds one completed sheet into the running aggregate:
//
//	newCount   = oldCount + 1
//	newAverage = (oldAverage*oldCount + percentage) / newCount
//	newTime    = oldTotalTime + elapsedSeconds
//
// The update is commutative across completions, so concurrent sheets for
// the same owner may complete in either order and yield the same final
// average.
func (s *AnalyticsSnapshot) ApplyCompletion(percentage, elapsedSeconds float64) {
	oldCount := float64(s.TotalSheetsProcessed)
	s.TotalSheetsProcessed++
	s.AverageScore = (s.AverageScore*oldCount + percentage) / float64(s.TotalSheetsProcessed)
	s.TotalProcessingSeconds += elapsedSeconds
	s.LastUpdated = time.Now().UTC()
}
