package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/shaiso/Easel/internal/compute"
	"github.com/shaiso/Easel/internal/domain"
	"github.com/shaiso/Easel/internal/mq"
	"github.com/shaiso/Easel/internal/repo"
)

// --- Fakes ---

type memJobStore struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*domain.Job

	// vanishAfterClaim имитирует удаление джобы между claim и чтением.
	vanishAfterClaim bool
}

func newMemJobStore(jobs ...*domain.Job) *memJobStore {
	m := &memJobStore{jobs: make(map[uuid.UUID]*domain.Job)}
	for _, j := range jobs {
		copied := *j
		m.jobs[j.ID] = &copied
	}
	return m
}

func (m *memJobStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	copied := *j
	return &copied, nil
}

func (m *memJobStore) ListQueued(_ context.Context, limit int) ([]domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Job
	for _, j := range m.jobs {
		if j.Status != domain.JobStatusQueued {
			continue
		}
		out = append(out, *j)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *memJobStore) Claim(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok || j.Status != domain.JobStatusQueued {
		return false, nil
	}
	now := time.Now()
	j.Status = domain.JobStatusRunning
	j.StartedAt = &now
	if m.vanishAfterClaim {
		delete(m.jobs, id)
	}
	return true, nil
}

func (m *memJobStore) Update(_ context.Context, job *domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *job
	m.jobs[job.ID] = &copied
	return nil
}

func (m *memJobStore) get(id uuid.UUID) *domain.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil
	}
	copied := *j
	return &copied
}

// fakeComputer отдаёт заранее заданные ошибки по порядку вызовов;
// вызов без заготовленной ошибки возвращает output.
type fakeComputer struct {
	mu     sync.Mutex
	calls  int
	errs   []error
	output map[string]any
}

func (f *fakeComputer) Compute(_ context.Context, _ domain.NodeKind, _ map[string]any) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := f.calls
	f.calls++
	if call < len(f.errs) && f.errs[call] != nil {
		return nil, f.errs[call]
	}
	if f.output != nil {
		return f.output, nil
	}
	return map[string]any{"text": "ok"}, nil
}

func (f *fakeComputer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakePublisher struct {
	mu        sync.Mutex
	published []mq.JobCompletedPayload
	err       error
}

func (f *fakePublisher) PublishJobCompleted(_ context.Context, payload mq.JobCompletedPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, payload)
	return nil
}

func (f *fakePublisher) all() []mq.JobCompletedPayload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]mq.JobCompletedPayload(nil), f.published...)
}

func newTestWorker(store JobStore, computer Computer, publisher CompletedPublisher) *Worker {
	w := New(Config{
		Jobs:      store,
		Compute:   computer,
		Publisher: publisher,
	})
	w.retryBaseDelay = time.Millisecond
	return w
}

func queuedJob() *domain.Job {
	return domain.NewJob(uuid.New(), "node-1", domain.NodeKindLLM, map[string]any{"user_message": "hi"})
}

func waitForStatus(t *testing.T, store *memJobStore, id uuid.UUID, status domain.JobStatus) *domain.Job {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if job := store.get(id); job != nil && job.Status == status {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s did not reach status %s", id, status)
	return nil
}

// --- processJob Tests ---

func TestProcessJob_Success(t *testing.T) {
	job := queuedJob()
	store := newMemJobStore(job)
	computer := &fakeComputer{output: map[string]any{"text": "hello"}}
	publisher := &fakePublisher{}
	w := newTestWorker(store, computer, publisher)

	if err := w.processJob(context.Background(), job.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored := store.get(job.ID)
	if stored.Status != domain.JobStatusCompleted {
		t.Errorf("expected COMPLETED, got %s", stored.Status)
	}
	if stored.Output["text"] != "hello" {
		t.Errorf("expected output text=hello, got %v", stored.Output)
	}
	if stored.Attempt != 1 {
		t.Errorf("expected attempt 1, got %d", stored.Attempt)
	}
	if stored.FinishedAt == nil {
		t.Error("finished_at should be set")
	}

	published := publisher.all()
	if len(published) != 1 {
		t.Fatalf("expected 1 published event, got %d", len(published))
	}
	if published[0].JobID != job.ID {
		t.Errorf("expected job_id %s, got %s", job.ID, published[0].JobID)
	}
	if published[0].Status != string(domain.JobStatusCompleted) {
		t.Errorf("expected status COMPLETED, got %s", published[0].Status)
	}
}

func TestProcessJob_ClaimDenied(t *testing.T) {
	// Джоба уже RUNNING — её захватил другой воркер.
	job := queuedJob()
	job.MarkRunning()
	store := newMemJobStore(job)
	computer := &fakeComputer{}
	w := newTestWorker(store, computer, nil)

	err := w.processJob(context.Background(), job.ID)
	if !errors.Is(err, ErrJobNotQueued) {
		t.Fatalf("expected ErrJobNotQueued, got %v", err)
	}
	if computer.callCount() != 0 {
		t.Errorf("compute should not be called, got %d calls", computer.callCount())
	}
}

func TestProcessJob_VanishedAfterClaim(t *testing.T) {
	job := queuedJob()
	store := newMemJobStore(job)
	store.vanishAfterClaim = true
	w := newTestWorker(store, &fakeComputer{}, nil)

	err := w.processJob(context.Background(), job.ID)
	if !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestProcessJob_TransientThenSuccess(t *testing.T) {
	job := queuedJob()
	store := newMemJobStore(job)
	computer := &fakeComputer{errs: []error{errors.New("connection reset")}}
	w := newTestWorker(store, computer, nil)

	if err := w.processJob(context.Background(), job.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored := store.get(job.ID)
	if stored.Status != domain.JobStatusCompleted {
		t.Errorf("expected COMPLETED after retry, got %s", stored.Status)
	}
	if stored.Attempt != 2 {
		t.Errorf("expected attempt 2, got %d", stored.Attempt)
	}
	if computer.callCount() != 2 {
		t.Errorf("expected 2 compute calls, got %d", computer.callCount())
	}
	if stored.Error != "" {
		t.Errorf("error should be cleared after successful retry, got %q", stored.Error)
	}
}

func TestProcessJob_BadPayloadNotRetried(t *testing.T) {
	job := queuedJob()
	store := newMemJobStore(job)
	computer := &fakeComputer{errs: []error{
		fmt.Errorf("%w: user_message is required", compute.ErrBadPayload),
	}}
	w := newTestWorker(store, computer, nil)

	if err := w.processJob(context.Background(), job.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored := store.get(job.ID)
	if stored.Status != domain.JobStatusFailed {
		t.Errorf("expected FAILED, got %s", stored.Status)
	}
	if stored.Attempt != 1 {
		t.Errorf("bad payload should not be retried, got attempt %d", stored.Attempt)
	}
	if computer.callCount() != 1 {
		t.Errorf("expected 1 compute call, got %d", computer.callCount())
	}
	if stored.Error == "" {
		t.Error("error should be recorded")
	}
}

func TestProcessJob_UnknownKindNotRetried(t *testing.T) {
	job := queuedJob()
	store := newMemJobStore(job)
	computer := &fakeComputer{errs: []error{
		fmt.Errorf("%w: sandbox", compute.ErrProviderNotFound),
	}}
	w := newTestWorker(store, computer, nil)

	if err := w.processJob(context.Background(), job.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored := store.get(job.ID)
	if stored.Status != domain.JobStatusFailed {
		t.Errorf("expected FAILED, got %s", stored.Status)
	}
	if computer.callCount() != 1 {
		t.Errorf("expected 1 compute call, got %d", computer.callCount())
	}
}

func TestProcessJob_RetryExhausted(t *testing.T) {
	transient := errors.New("boom")
	job := queuedJob()
	store := newMemJobStore(job)
	computer := &fakeComputer{errs: []error{transient, transient, transient}}
	publisher := &fakePublisher{}
	w := newTestWorker(store, computer, publisher)

	if err := w.processJob(context.Background(), job.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored := store.get(job.ID)
	if stored.Status != domain.JobStatusFailed {
		t.Errorf("expected FAILED, got %s", stored.Status)
	}
	if stored.Attempt != defaultMaxAttempts {
		t.Errorf("expected attempt %d, got %d", defaultMaxAttempts, stored.Attempt)
	}
	if computer.callCount() != defaultMaxAttempts {
		t.Errorf("expected %d compute calls, got %d", defaultMaxAttempts, computer.callCount())
	}
	if stored.Error != "boom" {
		t.Errorf("expected error boom, got %q", stored.Error)
	}

	published := publisher.all()
	if len(published) != 1 {
		t.Fatalf("expected 1 published event, got %d", len(published))
	}
	if published[0].Status != string(domain.JobStatusFailed) {
		t.Errorf("expected published FAILED, got %s", published[0].Status)
	}
	if published[0].Attempt != defaultMaxAttempts {
		t.Errorf("expected published attempt %d, got %d", defaultMaxAttempts, published[0].Attempt)
	}
}

func TestProcessJob_CanceledDuringRetryWait(t *testing.T) {
	transient := errors.New("boom")
	job := queuedJob()
	store := newMemJobStore(job)
	computer := &fakeComputer{errs: []error{transient, transient, transient}}
	w := newTestWorker(store, computer, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := w.processJob(ctx, job.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Терминальный статус записан несмотря на отменённый контекст.
	stored := store.get(job.ID)
	if stored.Status != domain.JobStatusFailed {
		t.Errorf("expected FAILED, got %s", stored.Status)
	}
	if stored.Error == "" {
		t.Error("error should be recorded")
	}
}

func TestProcessJob_PublisherFailureTolerated(t *testing.T) {
	job := queuedJob()
	store := newMemJobStore(job)
	publisher := &fakePublisher{err: errors.New("channel closed")}
	w := newTestWorker(store, &fakeComputer{}, publisher)

	if err := w.processJob(context.Background(), job.ID); err != nil {
		t.Fatalf("publish failure should not fail the job: %v", err)
	}

	stored := store.get(job.ID)
	if stored.Status != domain.JobStatusCompleted {
		t.Errorf("expected COMPLETED, got %s", stored.Status)
	}
}

// --- handleJobReady Tests ---

func TestHandleJobReady_ExecutesJob(t *testing.T) {
	job := queuedJob()
	store := newMemJobStore(job)
	w := newTestWorker(store, &fakeComputer{}, nil)

	pool, err := ants.NewPool(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer pool.Release()
	w.pool = pool

	delivery := &mq.Delivery{
		Message: mq.Message{
			ID:   uuid.New().String(),
			Type: mq.MessageTypeJobReady,
			Payload: mq.JobReadyPayload{
				JobID:  job.ID,
				RunID:  job.RunID,
				NodeID: job.NodeID,
				Kind:   string(job.Kind),
			},
		},
	}

	if err := w.handleJobReady(context.Background(), delivery); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	waitForStatus(t, store, job.ID, domain.JobStatusCompleted)
}

func TestHandleJobReady_BadPayloadRejected(t *testing.T) {
	w := newTestWorker(newMemJobStore(), &fakeComputer{}, nil)

	delivery := &mq.Delivery{
		Message: mq.Message{
			ID:      uuid.New().String(),
			Type:    mq.MessageTypeJobReady,
			Payload: "garbage",
		},
	}

	err := w.handleJobReady(context.Background(), delivery)
	if !errors.Is(err, mq.ErrReject) {
		t.Fatalf("expected ErrReject for bad payload, got %v", err)
	}
}

// --- Polling Tests ---

func TestWorker_StartPollsAndExecutes(t *testing.T) {
	job := queuedJob()
	store := newMemJobStore(job)
	computer := &fakeComputer{}

	w := New(Config{
		Jobs:         store,
		Compute:      computer,
		PollInterval: 10 * time.Millisecond,
		Concurrency:  2,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := w.Start(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	waitForStatus(t, store, job.ID, domain.JobStatusCompleted)

	// Джоба, созданная после старта, подхватывается следующим тиком.
	late := queuedJob()
	store.Update(context.Background(), late)

	waitForStatus(t, store, late.ID, domain.JobStatusCompleted)

	w.Stop()
	if !w.IsStopped() {
		t.Error("worker should be stopped")
	}
}

// --- Backoff Tests ---

func TestWorker_Backoff(t *testing.T) {
	w := New(Config{})

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{1, 1 * time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{5, 16 * time.Second},
		{6, 30 * time.Second}, // capped at max
		{10, 30 * time.Second},
	}

	for _, tt := range tests {
		got := w.backoff(tt.attempt)
		if got != tt.expected {
			t.Errorf("attempt %d: expected %v, got %v", tt.attempt, tt.expected, got)
		}
	}
}

// --- Config Tests ---

func TestNew_DefaultConfig(t *testing.T) {
	w := New(Config{})

	if w.pollInterval != defaultPollInterval {
		t.Errorf("expected default poll interval %v, got %v", defaultPollInterval, w.pollInterval)
	}
	if w.batchSize != defaultBatchSize {
		t.Errorf("expected default batch size %d, got %d", defaultBatchSize, w.batchSize)
	}
	if w.concurrency != defaultConcurrency {
		t.Errorf("expected default concurrency %d, got %d", defaultConcurrency, w.concurrency)
	}
	if w.maxAttempts != defaultMaxAttempts {
		t.Errorf("expected default max attempts %d, got %d", defaultMaxAttempts, w.maxAttempts)
	}
	if w.retryBaseDelay != initialRetryDelay {
		t.Errorf("expected retry base delay %v, got %v", initialRetryDelay, w.retryBaseDelay)
	}
}

func TestNew_CustomConfig(t *testing.T) {
	w := New(Config{
		PollInterval: 5 * time.Second,
		BatchSize:    25,
		Concurrency:  8,
		MaxAttempts:  5,
	})

	if w.pollInterval != 5*time.Second {
		t.Errorf("expected poll interval 5s, got %v", w.pollInterval)
	}
	if w.batchSize != 25 {
		t.Errorf("expected batch size 25, got %d", w.batchSize)
	}
	if w.concurrency != 8 {
		t.Errorf("expected concurrency 8, got %d", w.concurrency)
	}
	if w.maxAttempts != 5 {
		t.Errorf("expected max attempts 5, got %d", w.maxAttempts)
	}
}

func TestWorker_IsStopped(t *testing.T) {
	w := New(Config{})

	if w.IsStopped() {
		t.Error("should not be stopped initially")
	}

	w.stoppedMu.Lock()
	w.stopped = true
	w.stoppedMu.Unlock()

	if !w.IsStopped() {
		t.Error("should be stopped")
	}
}
