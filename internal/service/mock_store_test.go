package service

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gradeflow/gradeflow-api/internal/artifact"
	"github.com/gradeflow/gradeflow-api/internal/domain"
	"github.com/gradeflow/gradeflow-api/internal/store"
	"github.com/gradeflow/gradeflow-api/internal/task"
)

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// fakeSheetStore is an in-memory store.SheetStore with injectable failures
type fakeSheetStore struct {
	mu        sync.Mutex
	sheets    map[uuid.UUID]*domain.AnswerSheet
	createErr error
}

func newFakeSheetStore() *fakeSheetStore {
	return &fakeSheetStore{sheets: make(map[uuid.UUID]*domain.AnswerSheet)}
}

func (s *fakeSheetStore) put(sheet *domain.AnswerSheet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sheet
	s.sheets[sheet.ID] = &cp
}

func (s *fakeSheetStore) get(id uuid.UUID) *domain.AnswerSheet {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sheet, ok := s.sheets[id]; ok {
		cp := *sheet
		return &cp
	}
	return nil
}

func (s *fakeSheetStore) Create(ctx context.Context, sheet *domain.AnswerSheet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	cp := *sheet
	s.sheets[sheet.ID] = &cp
	return nil
}

func (s *fakeSheetStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.AnswerSheet, error) {
	sheet := s.get(id)
	if sheet == nil {
		return nil, store.ErrSheetNotFound
	}
	return sheet, nil
}

func (s *fakeSheetStore) ListByOwner(
	ctx context.Context,
	ownerID uuid.UUID,
	limit int,
) ([]*domain.AnswerSheet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*domain.AnswerSheet{}
	for _, sheet := range s.sheets {
		if sheet.OwnerID == ownerID && len(out) < limit {
			cp := *sheet
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *fakeSheetStore) FindByStatus(
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

func (s *fakeSheetStore) FindStuckProcessing(
	ctx context.Context,
	cutoff time.Time,
) ([]*domain.AnswerSheet, error) {
	return []*domain.AnswerSheet{}, nil
}

func (s *fakeSheetStore) MarkProcessing(ctx context.Context, id uuid.UUID, startedAt time.Time) error {
	return s.transition(id, domain.SheetStatusPending, domain.SheetStatusProcessing)
}

func (s *fakeSheetStore) MarkCompleted(ctx context.Context, id uuid.UUID, processedAt time.Time) error {
	return s.transition(id, domain.SheetStatusProcessing, domain.SheetStatusCompleted)
}

func (s *fakeSheetStore) MarkFailed(
	ctx context.Context,
	id uuid.UUID,
	processedAt time.Time,
	reason string,
) error {
	return s.transition(id, domain.SheetStatusProcessing, domain.SheetStatusFailed)
}

func (s *fakeSheetStore) transition(id uuid.UUID, expected, next domain.SheetStatus) error {
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
	return nil
}

func (s *fakeSheetStore) DeletePending(ctx context.Context, id uuid.UUID) error {
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

func (s *fakeSheetStore) WithTx(tx *sql.Tx) store.SheetStore {
	return s
}

// fakeResultStore is an in-memory store.ResultStore
type fakeResultStore struct {
	mu      sync.Mutex
	results map[uuid.UUID]*domain.GradingResult
}

func newFakeResultStore() *fakeResultStore {
	return &fakeResultStore{results: make(map[uuid.UUID]*domain.GradingResult)}
}

func (s *fakeResultStore) put(result *domain.GradingResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *result
	s.results[result.SheetID] = &cp
}

func (s *fakeResultStore) Create(ctx context.Context, result *domain.GradingResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.results[result.SheetID]; ok {
		return store.ErrResultExists
	}
	cp := *result
	s.results[result.SheetID] = &cp
	return nil
}

func (s *fakeResultStore) GetBySheetID(
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

func (s *fakeResultStore) WithTx(tx *sql.Tx) store.ResultStore {
	return s
}

// fakeAnalyticsStore is an in-memory store.AnalyticsStore. getForUpdateErrs
// lets a test inject transient failures into successive GetForUpdate calls
// to exercise the retry path.
type fakeAnalyticsStore struct {
	mu               sync.Mutex
	snapshots        map[uuid.UUID]*domain.AnalyticsSnapshot
	getForUpdateErrs []error
}

func newFakeAnalyticsStore() *fakeAnalyticsStore {
	return &fakeAnalyticsStore{snapshots: make(map[uuid.UUID]*domain.AnalyticsSnapshot)}
}

func (s *fakeAnalyticsStore) get(ownerID uuid.UUID) *domain.AnalyticsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if snapshot, ok := s.snapshots[ownerID]; ok {
		cp := *snapshot
		return &cp
	}
	return nil
}

func (s *fakeAnalyticsStore) Create(ctx context.Context, snapshot *domain.AnalyticsSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.snapshots[snapshot.OwnerID]; ok {
		return store.ErrSnapshotExists
	}
	cp := *snapshot
	s.snapshots[snapshot.OwnerID] = &cp
	return nil
}

func (s *fakeAnalyticsStore) Get(
	ctx context.Context,
	ownerID uuid.UUID,
) (*domain.AnalyticsSnapshot, error) {
	snapshot := s.get(ownerID)
	if snapshot == nil {
		return nil, store.ErrSnapshotNotFound
	}
	return snapshot, nil
}

func (s *fakeAnalyticsStore) GetForUpdate(
	ctx context.Context,
	ownerID uuid.UUID,
) (*domain.AnalyticsSnapshot, error) {
	s.mu.Lock()
	if len(s.getForUpdateErrs) > 0 {
		err := s.getForUpdateErrs[0]
		s.getForUpdateErrs = s.getForUpdateErrs[1:]
		s.mu.Unlock()
		return nil, err
	}
	s.mu.Unlock()
	return s.Get(ctx, ownerID)
}

func (s *fakeAnalyticsStore) Update(ctx context.Context, snapshot *domain.AnalyticsSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.snapshots[snapshot.OwnerID]; !ok {
		return store.ErrSnapshotNotFound
	}
	cp := *snapshot
	s.snapshots[snapshot.OwnerID] = &cp
	return nil
}

func (s *fakeAnalyticsStore) WithTx(tx *sql.Tx) store.AnalyticsStore {
	return s
}

// fakeTxRunner invokes the function directly, without a real transaction
type fakeTxRunner struct{}

func (fakeTxRunner) RunInTransaction(ctx context.Context, fn store.TxFn) error {
	return fn(ctx, nil)
}

// storedArtifact is one object held by the fake artifact store
type storedArtifact struct {
	data        []byte
	contentType string
}

// fakeArtifactStore is an in-memory artifact.Store
type fakeArtifactStore struct {
	mu      sync.Mutex
	objects map[string]storedArtifact
	putErr  error
	deletes []string
}

func newFakeArtifactStore() *fakeArtifactStore {
	return &fakeArtifactStore{objects: make(map[string]storedArtifact)}
}

func (s *fakeArtifactStore) Put(
	ctx context.Context,
	ownerID uuid.UUID,
	data []byte,
	contentType string,
) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return "", s.putErr
	}
	ref := "sheets/" + ownerID.String() + "/" + uuid.NewString()
	s.objects[ref] = storedArtifact{data: data, contentType: contentType}
	return ref, nil
}

func (s *fakeArtifactStore) Get(ctx context.Context, ref string) ([]byte, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if obj, ok := s.objects[ref]; ok {
		return obj.data, obj.contentType, nil
	}
	return nil, "", artifact.ErrNotFound
}

func (s *fakeArtifactStore) PublicURL(ctx context.Context, ref string) (string, error) {
	return "https://storage.example.com/" + ref, nil
}

func (s *fakeArtifactStore) Delete(ctx context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes = append(s.deletes, ref)
	delete(s.objects, ref)
	return nil
}

func (s *fakeArtifactStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

// enqueuedTask captures one submission to the fake runner
type fakeEnqueuer struct {
	mu        sync.Mutex
	submitted []task.Task
	err       error
}

func (e *fakeEnqueuer) Submit(ctx context.Context, t task.Task) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.submitted = append(e.submitted, t)
	return nil
}

func (e *fakeEnqueuer) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.submitted)
}

// stubTask is a minimal task.Task for factory fakes
type stubTask struct {
	id      uuid.UUID
	sheetID uuid.UUID
}

func (t *stubTask) ID() uuid.UUID                    { return t.id }
func (t *stubTask) Type() string                     { return task.TaskTypeSheetGrading }
func (t *stubTask) Payload() []byte                  { return nil }
func (t *stubTask) Status() task.TaskStatus          { return task.TaskStatusPending }
func (t *stubTask) Execute(ctx context.Context) error { return nil }

// fakeTaskFactory produces stub tasks
type fakeTaskFactory struct {
	err error
}

func (f *fakeTaskFactory) CreateTask(sheetID uuid.UUID) (task.Task, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &stubTask{id: uuid.New(), sheetID: sheetID}, nil
}
