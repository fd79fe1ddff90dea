package domain

import (
	"math"
	"testing"

	"github.com/google/uuid"
)

func TestNewGradingResult(t *testing.T) {
	t.Parallel()

	sheetID := uuid.New()
	ownerID := uuid.New()

	result, err := NewGradingResult(sheetID, ownerID, 82, 100, "good work", "extracted answers")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if result.ID == uuid.Nil {
		t.Error("Expected non-nil UUID, got nil UUID")
	}

	if result.SheetID != sheetID {
		t.Errorf("Expected sheet ID %s, got %s", sheetID, result.SheetID)
	}

	if result.CreatedAt.IsZero() {
		t.Error("Expected non-zero CreatedAt time")
	}

	// Invalid inputs
	if _, err := NewGradingResult(uuid.Nil, ownerID, 82, 100, "", ""); err != ErrEmptyResultSheetID {
		t.Errorf("Expected error %v, got %v", ErrEmptyResultSheetID, err)
	}

	if _, err := NewGradingResult(sheetID, ownerID, -1, 100, "", ""); err != ErrNegativeScore {
		t.Errorf("Expected error %v, got %v", ErrNegativeScore, err)
	}

	if _, err := NewGradingResult(sheetID, ownerID, 10, 0, "", ""); err != ErrNonPositiveTotal {
		t.Errorf("Expected error %v, got %v", ErrNonPositiveTotal, err)
	}

	if _, err := NewGradingResult(sheetID, ownerID, 101, 100, "", ""); err != ErrScoreExceedsTotal {
		t.Errorf("Expected error %v, got %v", ErrScoreExceedsTotal, err)
	}
}

func TestGradingResultPercentage(t *testing.T) {
	t.Parallel()

	cases := []struct {
		score int
		total int
		want  float64
	}{
		{82, 100, 82.0},
		{0, 50, 0.0},
		{50, 50, 100.0},
		{1, 3, 100.0 / 3.0},
		{17, 20, 85.0},
	}

	for _, tc := range cases {
		result, err := NewGradingResult(uuid.New(), uuid.New(), tc.score, tc.total, "", "")
		if err != nil {
			t.Fatalf("Expected no error for %d/%d, got %v", tc.score, tc.total, err)
		}

		got := result.Percentage()
		if math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("Percentage(%d/%d) = %f, want %f", tc.score, tc.total, got, tc.want)
		}

		// The percentage must always equal score/total*100 exactly as a
		// derived value, never drift from the stored fields.
		recomputed := float64(result.Score) / float64(result.TotalScore) * 100
		if got != recomputed {
			t.Errorf("Percentage() = %f differs from recomputed %f", got, recomputed)
		}
	}
}
