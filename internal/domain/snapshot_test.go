package domain

import (
	"math"
	"math/rand"
	"testing"

	"github.com/google/uuid"
)

func TestNewAnalyticsSnapshot(t *testing.T) {
	t.Parallel()

	ownerID := uuid.New()

	snapshot, err := NewAnalyticsSnapshot(ownerID, 82.0, 120)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if snapshot.TotalSheetsProcessed != 1 {
		t.Errorf("Expected count 1, got %d", snapshot.TotalSheetsProcessed)
	}

	if snapshot.AverageScore != 82.0 {
		t.Errorf("Expected average 82.0, got %f", snapshot.AverageScore)
	}

	if snapshot.TotalProcessingSeconds != 120 {
		t.Errorf("Expected total time 120, got %f", snapshot.TotalProcessingSeconds)
	}

	if _, err := NewAnalyticsSnapshot(uuid.Nil, 82.0, 120); err != ErrEmptySnapshotOwnerID {
		t.Errorf("Expected error %v, got %v", ErrEmptySnapshotOwnerID, err)
	}
}

func TestZeroSnapshot(t *testing.T) {
	t.Parallel()

	ownerID := uuid.New()
	snapshot := ZeroSnapshot(ownerID)

	if snapshot.OwnerID != ownerID {
		t.Errorf("Expected owner ID %s, got %s", ownerID, snapshot.OwnerID)
	}

	if snapshot.TotalSheetsProcessed != 0 || snapshot.AverageScore != 0 {
		t.Error("Expected zero-valued snapshot")
	}
}

func TestApplyCompletion(t *testing.T) {
	t.Parallel()

	// Concrete scenario: prior {count=3, average=70.0, time=300}; a new
	// completion with percentage 82.0 and 120s elapsed must produce
	// {count=4, average=73.0, time=420}.
	snapshot := &AnalyticsSnapshot{
		OwnerID:                uuid.New(),
		TotalSheetsProcessed:   3,
		AverageScore:           70.0,
		TotalProcessingSeconds: 300,
	}

	snapshot.ApplyCompletion(82.0, 120)

	if snapshot.TotalSheetsProcessed != 4 {
		t.Errorf("Expected count 4, got %d", snapshot.TotalSheetsProcessed)
	}

	if math.Abs(snapshot.AverageScore-73.0) > 1e-9 {
		t.Errorf("Expected average 73.0, got %f", snapshot.AverageScore)
	}

	if snapshot.TotalProcessingSeconds != 420 {
		t.Errorf("Expected total time 420, got %f", snapshot.TotalProcessingSeconds)
	}

	if snapshot.LastUpdated.IsZero() {
		t.Error("Expected LastUpdated to be stamped")
	}
}

func TestApplyCompletionOrderIndependent(t *testing.T) {
	t.Parallel()

	percentages := make([]float64, 50)
	var sum float64
	for i := range percentages {
		percentages[i] = rand.Float64() * 100
		sum += percentages[i]
	}
	want := sum / float64(len(percentages))

	// Apply in forward order.
	forward := ZeroSnapshot(uuid.New())
	for _, p := range percentages {
		forward.ApplyCompletion(p, 1)
	}

	// Apply in reverse order.
	reverse := ZeroSnapshot(uuid.New())
	for i := len(percentages) - 1; i >= 0; i-- {
		reverse.ApplyCompletion(percentages[i], 1)
	}

	if math.Abs(forward.AverageScore-want) > 1e-6 {
		t.Errorf("Forward average = %f, want %f", forward.AverageScore, want)
	}

	if math.Abs(forward.AverageScore-reverse.AverageScore) > 1e-6 {
		t.Errorf("Order changed the average: %f vs %f", forward.AverageScore, reverse.AverageScore)
	}

	if forward.TotalSheetsProcessed != len(percentages) {
		t.Errorf("Expected count %d, got %d", len(percentages), forward.TotalSheetsProcessed)
	}
}
