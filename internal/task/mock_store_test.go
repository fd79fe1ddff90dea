package task

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gradeflow/gradeflow-api/internal/domain"
	"github.com/gradeflow/gradeflow-api/internal/grading"
	"github.com/gradeflow/gradeflow-api/internal/store"
)

// memSheetStore is an in-memory store.SheetStore that enforces the same
// conditional-transition semantics as the real implementation.
type memSheetStore struct {
	mu     sync.Mutex
	sheets map[uuid.UUID]*domain.AnswerSheet
}

func newMemSheetStore() *memSheetStore {
	return &memSheetStore{sheets: make(map[uuid.UUID]*domain.AnswerSheet)}
}

func (s *memSheetStore) put(sheet *domain.AnswerSheet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sheet
	s.sheets[sheet.ID] = &cp
}

func (s *memSheetStore) get(id uuid.UUID) *domain.AnswerSheet {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sheet, ok := s.sheets[id]; ok {
		cp := *sheet
		return &cp
	}
	return nil
}

func (s *memSheetStore) Create(ctx context.Context, sheet *domain.AnswerSheet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sheets[sheet.ID]; ok {
		return store.ErrDuplicate
	}
	cp := *sheet
	s.sheets[sheet.ID] = &cp
	return nil
}

func (s *memSheetStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.AnswerSheet, error) {
	sheet := s.get(id)
	if sheet == nil {
		return nil, store.ErrSheetNotFound
	}
	return sheet, nil
}

func (s *memSheetStore) ListByOwner(
	ctx context.Context,
	ownerID uuid.UUID,
	limit int,
) ([]*domain.AnswerSheet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.AnswerSheet
	for _, sheet := range s.sheets {
		if sheet.OwnerID == ownerID && len(out) < limit {
			cp := *sheet
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memSheetStore) FindByStatus(
	ctx context.Context,
	status domain.SheetStatus,
	limit int,
) ([]*domain.AnswerSheet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*domain.AnswerSheet{}
	for _, sheet := range s.sheets {
		if sheet.Status == status && len(out) < limit {
			cp := *sheet
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memSheetStore) FindStuckProcessing(
	ctx context.Context,
	cutoff time.Time,
) ([]*domain.AnswerSheet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*domain.AnswerSheet{}
	for _, sheet := range s.sheets {
		if sheet.Status == domain.SheetStatusProcessing &&
			sheet.ProcessingStartedAt != nil &&
			sheet.ProcessingStartedAt.Before(cutoff) {
			cp := *sheet
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memSheetStore) transition(
	id uuid.UUID,
	expected, next domain.SheetStatus,
	apply func(*domain.AnswerSheet),
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sheet, ok := s.sheets[id]
	if !ok {
		return store.ErrSheetNotFound
	}
	if sheet.Status != expected {
		return store.ErrStaleStatus
	}
	sheet.Status = next
	if apply != nil {
		apply(sheet)
	}
	return nil
}

func (s *memSheetStore) MarkProcessing(ctx context.Context, id uuid.UUID, startedAt time.Time) error {
	return s.transition(id, domain.SheetStatusPending, domain.SheetStatusProcessing,
		func(sheet *domain.AnswerSheet) {
			sheet.ProcessingStartedAt = &startedAt
		})
}

func (s *memSheetStore) MarkCompleted(ctx context.Context, id uuid.UUID, processedAt time.Time) error {
	return s.transition(id, domain.SheetStatusProcessing, domain.SheetStatusCompleted,
		func(sheet *domain.AnswerSheet) {
			sheet.ProcessedAt = &processedAt
		})
}

func (s *memSheetStore) MarkFailed(
	ctx context.Context,
	id uuid.UUID,
	processedAt time.Time,
	reason string,
) error {
	return s.transition(id, domain.SheetStatusProcessing, domain.SheetStatusFailed,
		func(sheet *domain.AnswerSheet) {
			sheet.ProcessedAt = &processedAt
			sheet.FailureReason = reason
		})
}

func (s *memSheetStore) DeletePending(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sheet, ok := s.sheets[id]
	if !ok {
		return store.ErrSheetNotFound
	}
	if sheet.Status != domain.SheetStatusPending {
		return store.ErrStaleStatus
	}
	delete(s.sheets, id)
	return nil
}

func (s *memSheetStore) WithTx(tx *sql.Tx) store.SheetStore {
	return s
}

// memResultStore is an in-memory store.ResultStore enforcing the one
// result per sheet constraint.
type memResultStore struct {
	mu      sync.Mutex
	results map[uuid.UUID]*domain.GradingResult
}

func newMemResultStore() *memResultStore {
	return &memResultStore{results: make(map[uuid.UUID]*domain.GradingResult)}
}

func (s *memResultStore) Create(ctx context.Context, result *domain.GradingResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.results[result.SheetID]; ok {
		return store.ErrResultExists
	}
	cp := *result
	s.results[result.SheetID] = &cp
	return nil
}

func (s *memResultStore) GetBySheetID(
	ctx context.Context,
	sheetID uuid.UUID,
) (*domain.GradingResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if result, ok := s.results[sheetID]; ok {
		cp := *result
		return &cp, nil
	}
	return nil, store.ErrResultNotFound
}

func (s *memResultStore) WithTx(tx *sql.Tx) store.ResultStore {
	return s
}

// fakeTxRunner invokes the function directly. The in-memory stores are not
// transactional, so rollback semantics are approximated by the caller
// checking the returned error.
type fakeTxRunner struct{}

func (fakeTxRunner) RunInTransaction(ctx context.Context, fn store.TxFn) error {
	return fn(ctx, nil)
}

// fakeEngine returns a canned result or error, optionally after a delay
// or after calling a hook. fn, when set, replaces the canned behavior
// entirely.
type fakeEngine struct {
	result *grading.Result
	err    error
	delay  time.Duration
	before func()
	fn     func(ctx context.Context) (*grading.Result, error)
}

func (e *fakeEngine) Evaluate(ctx context.Context, artifactRef string) (*grading.Result, error) {
	if e.fn != nil {
		return e.fn(ctx)
	}
	if e.before != nil {
		e.before()
	}
	if e.delay > 0 {
		select {
		case <-time.After(e.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if e.err != nil {
		return nil, e.err
	}
	return e.result, nil
}

// recordedCompletion captures one RecordCompletion call
type recordedCompletion struct {
	ownerID    uuid.UUID
	percentage float64
	elapsed    float64
}

// fakeRecorder collects analytics notifications
type fakeRecorder struct {
	mu    sync.Mutex
	calls []recordedCompletion
	err   error
}

func (r *fakeRecorder) RecordCompletion(
	ctx context.Context,
	ownerID uuid.UUID,
	percentage, elapsedSeconds float64,
) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, recordedCompletion{
		ownerID:    ownerID,
		percentage: percentage,
		elapsed:    elapsedSeconds,
	})
	return r.err
}

func (r *fakeRecorder) completions() []recordedCompletion {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]recordedCompletion, len(r.calls))
	copy(out, r.calls)
	return out
}
