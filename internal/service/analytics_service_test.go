package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gradeflow/gradeflow-api/internal/domain"
	"github.com/gradeflow/gradeflow-api/internal/store"
)

func newAnalyticsService(t *testing.T, snapshots *fakeAnalyticsStore, maxRetries int) AnalyticsService {
	t.Helper()
	service, err := NewAnalyticsService(fakeTxRunner{}, snapshots, maxRetries, setupTestLogger())
	require.NoError(t, err)
	return service
}

func TestNewAnalyticsServiceValidation(t *testing.T) {
	snapshots := newFakeAnalyticsStore()
	logger := setupTestLogger()

	_, err := NewAnalyticsService(nil, snapshots, 3, logger)
	assert.Error(t, err)

	_, err = NewAnalyticsService(fakeTxRunner{}, nil, 3, logger)
	assert.Error(t, err)
}

func TestRecordCompletionCreatesFirstSnapshot(t *testing.T) {
	snapshots := newFakeAnalyticsStore()
	service := newAnalyticsService(t, snapshots, 3)
	ownerID := uuid.New()

	err := service.RecordCompletion(context.Background(), ownerID, 85.0, 42.5)
	require.NoError(t, err)

	snapshot := snapshots.get(ownerID)
	require.NotNil(t, snapshot)
	assert.Equal(t, 1, snapshot.TotalSheetsProcessed)
	assert.InDelta(t, 85.0, snapshot.AverageScore, 0.0001)
	assert.InDelta(t, 42.5, snapshot.TotalProcessingSeconds, 0.0001)
	assert.False(t, snapshot.LastUpdated.IsZero())
}

func TestRecordCompletionUpdatesRunningAverage(t *testing.T) {
	snapshots := newFakeAnalyticsStore()
	ownerID := uuid.New()

	// Three sheets already processed, averaging 70% over 300 seconds
	snapshots.snapshots[ownerID] = &domain.AnalyticsSnapshot{
		OwnerID:                ownerID,
		TotalSheetsProcessed:   3,
		AverageScore:           70.0,
		TotalProcessingSeconds: 300,
		LastUpdated:            time.Now().UTC().Add(-time.Hour),
	}

	service := newAnalyticsService(t, snapshots, 3)

	// A fourth sheet scores 82/100 and took 120 seconds
	err := service.RecordCompletion(context.Background(), ownerID, 82.0, 120)
	require.NoError(t, err)

	snapshot := snapshots.get(ownerID)
	assert.Equal(t, 4, snapshot.TotalSheetsProcessed)
	assert.InDelta(t, 73.0, snapshot.AverageScore, 0.0001)
	assert.InDelta(t, 420.0, snapshot.TotalProcessingSeconds, 0.0001)
}

func TestRecordCompletionIsCommutative(t *testing.T) {
	snapshots := newFakeAnalyticsStore()
	service := newAnalyticsService(t, snapshots, 3)
	ownerID := uuid.New()

	scores := []float64{60.0, 90.0, 75.0}
	for _, score := range scores {
		require.NoError(t, service.RecordCompletion(context.Background(), ownerID, score, 10))
	}

	snapshot := snapshots.get(ownerID)
	assert.Equal(t, 3, snapshot.TotalSheetsProcessed)
	assert.InDelta(t, 75.0, snapshot.AverageScore, 0.0001)
	assert.InDelta(t, 30.0, snapshot.TotalProcessingSeconds, 0.0001)
}

// lockingTxRunner serializes transaction bodies with a mutex, standing in
// for the row lock GetForUpdate takes against the real database.
type lockingTxRunner struct {
	mu sync.Mutex
}

func (r *lockingTxRunner) RunInTransaction(ctx context.Context, fn store.TxFn) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(ctx, nil)
}

func TestRecordCompletionConcurrentForSameOwner(t *testing.T) {
	snapshots := newFakeAnalyticsStore()
	service, err := NewAnalyticsService(&lockingTxRunner{}, snapshots, 5, setupTestLogger())
	require.NoError(t, err)
	ownerID := uuid.New()

	// Half the completions score 60%, half 90%, all racing on one owner
	const perScore = 16
	var wg sync.WaitGroup
	errs := make(chan error, 2*perScore)
	for i := 0; i < perScore; i++ {
		for _, score := range []float64{60.0, 90.0} {
			wg.Add(1)
			go func(score float64) {
				defer wg.Done()
				errs <- service.RecordCompletion(context.Background(), ownerID, score, 10)
			}(score)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	// Every completion landed exactly once and the mean is exact
	snapshot := snapshots.get(ownerID)
	require.NotNil(t, snapshot)
	assert.Equal(t, 2*perScore, snapshot.TotalSheetsProcessed)
	assert.InDelta(t, 75.0, snapshot.AverageScore, 0.0001)
	assert.InDelta(t, float64(2*perScore*10), snapshot.TotalProcessingSeconds, 0.0001)
}

func TestRecordCompletionRetriesTransientConflict(t *testing.T) {
	snapshots := newFakeAnalyticsStore()
	ownerID := uuid.New()

	snapshots.snapshots[ownerID] = &domain.AnalyticsSnapshot{
		OwnerID:              ownerID,
		TotalSheetsProcessed: 1,
		AverageScore:         50.0,
	}

	// First attempt loses the row lock race; the retry succeeds
	snapshots.getForUpdateErrs = []error{store.ErrSnapshotExists}

	service := newAnalyticsService(t, snapshots, 3)
	err := service.RecordCompletion(context.Background(), ownerID, 100.0, 5)
	require.NoError(t, err)

	snapshot := snapshots.get(ownerID)
	assert.Equal(t, 2, snapshot.TotalSheetsProcessed)
	assert.InDelta(t, 75.0, snapshot.AverageScore, 0.0001)
}

func TestRecordCompletionSurfacesConflictAfterRetriesExhausted(t *testing.T) {
	snapshots := newFakeAnalyticsStore()
	ownerID := uuid.New()

	// Every attempt fails: 1 initial + 2 retries
	snapshots.getForUpdateErrs = []error{
		errors.New("lock timeout"),
		errors.New("lock timeout"),
		errors.New("lock timeout"),
	}

	service := newAnalyticsService(t, snapshots, 2)
	err := service.RecordCompletion(context.Background(), ownerID, 80.0, 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAnalyticsConflict)

	assert.Nil(t, snapshots.get(ownerID), "no snapshot may be written on failure")
}

func TestRecordCompletionDoesNotRetryValidationErrors(t *testing.T) {
	snapshots := newFakeAnalyticsStore()
	service := newAnalyticsService(t, snapshots, 5)

	// An impossible percentage fails snapshot validation immediately
	err := service.RecordCompletion(context.Background(), uuid.New(), 150.0, 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.NotErrorIs(t, err, ErrAnalyticsConflict)
}

func TestRecordCompletionRequiresOwner(t *testing.T) {
	service := newAnalyticsService(t, newFakeAnalyticsStore(), 3)
	err := service.RecordCompletion(context.Background(), uuid.Nil, 80.0, 10)
	assert.Error(t, err)
}
