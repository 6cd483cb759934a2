package jobs

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Easel/internal/domain"
)

// fakeBackend — бэкенд с программируемым поведением.
type fakeBackend struct {
	mu sync.Mutex

	submitErr error
	pollErr   error

	// statuses — последовательность состояний, отдаваемых Poll.
	// Последний элемент повторяется.
	statuses []domain.JobStatus
	output   map[string]any
	jobError string

	submits int
	polls   int
}

func (b *fakeBackend) Submit(_ context.Context, job *domain.Job) (uuid.UUID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.submits++
	if b.submitErr != nil {
		return uuid.Nil, b.submitErr
	}
	return job.ID, nil
}

func (b *fakeBackend) Poll(_ context.Context, id uuid.UUID) (*domain.Job, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.polls++
	if b.pollErr != nil {
		return nil, b.pollErr
	}

	idx := b.polls - 1
	if idx >= len(b.statuses) {
		idx = len(b.statuses) - 1
	}

	return &domain.Job{
		ID:     id,
		Status: b.statuses[idx],
		Output: b.output,
		Error:  b.jobError,
	}, nil
}

// fakeFallback — синхронный провайдер с фиксированным ответом.
type fakeFallback struct {
	mu     sync.Mutex
	output map[string]any
	err    error

	calls int
	kind  domain.NodeKind
}

func (f *fakeFallback) Compute(_ context.Context, kind domain.NodeKind, _ map[string]any) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.kind = kind
	if f.err != nil {
		return nil, f.err
	}
	return f.output, nil
}

func (f *fakeFallback) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestRunner(backend Backend, fallback Fallback) *Runner {
	return NewRunner(RunnerConfig{
		Backend:      backend,
		Fallback:     fallback,
		PollInterval: time.Millisecond,
		Timeout:      200 * time.Millisecond,
	})
}

// --- Runner Tests ---

func TestRunner_JobCompleted(t *testing.T) {
	backend := &fakeBackend{
		statuses: []domain.JobStatus{
			domain.JobStatusQueued,
			domain.JobStatusRunning,
			domain.JobStatusCompleted,
		},
		output: map[string]any{"text": "done"},
	}
	fallback := &fakeFallback{}
	runner := newTestRunner(backend, fallback)

	output, err := runner.RunJob(context.Background(), uuid.New(), "llm1", domain.NodeKindLLM, map[string]any{"user_message": "hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output["text"] != "done" {
		t.Errorf("expected job output, got %v", output)
	}
	if fallback.callCount() != 0 {
		t.Errorf("fallback should not be called, got %d calls", fallback.calls)
	}
	if backend.polls < 3 {
		t.Errorf("expected at least 3 polls, got %d", backend.polls)
	}
}

func TestRunner_SubmitError_FallsBack(t *testing.T) {
	backend := &fakeBackend{submitErr: errors.New("connection refused")}
	fallback := &fakeFallback{output: map[string]any{"text": "sync result"}}
	runner := newTestRunner(backend, fallback)

	output, err := runner.RunJob(context.Background(), uuid.New(), "llm1", domain.NodeKindLLM, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output["text"] != "sync result" {
		t.Errorf("expected fallback output, got %v", output)
	}
	if fallback.callCount() != 1 {
		t.Errorf("expected 1 fallback call, got %d", fallback.calls)
	}
	if backend.polls != 0 {
		t.Errorf("should not poll after failed submit, got %d polls", backend.polls)
	}
}

func TestRunner_JobFailed_FallsBack(t *testing.T) {
	backend := &fakeBackend{
		statuses: []domain.JobStatus{domain.JobStatusFailed},
		jobError: "model overloaded",
	}
	fallback := &fakeFallback{output: map[string]any{"text": "recovered"}}
	runner := newTestRunner(backend, fallback)

	output, err := runner.RunJob(context.Background(), uuid.New(), "llm1", domain.NodeKindLLM, nil)
	if err != nil {
		t.Fatalf("fallback success should hide job failure: %v", err)
	}
	if output["text"] != "recovered" {
		t.Errorf("expected fallback output, got %v", output)
	}
	if fallback.callCount() != 1 {
		t.Errorf("expected 1 fallback call, got %d", fallback.calls)
	}
}

func TestRunner_FallbackError(t *testing.T) {
	backend := &fakeBackend{
		statuses: []domain.JobStatus{domain.JobStatusFailed},
		jobError: "model overloaded",
	}
	fallback := &fakeFallback{err: errors.New("api key invalid")}
	runner := newTestRunner(backend, fallback)

	_, err := runner.RunJob(context.Background(), uuid.New(), "llm1", domain.NodeKindLLM, nil)
	if err == nil {
		t.Fatal("expected error when both paths fail")
	}
	if !errors.Is(err, ErrJobFailed) {
		t.Errorf("expected ErrJobFailed, got %v", err)
	}
	// Ошибка должна содержать и причину fallback, и причину async-пути
	if !strings.Contains(err.Error(), "api key invalid") {
		t.Errorf("error should mention fallback failure: %v", err)
	}
	if !strings.Contains(err.Error(), "model overloaded") {
		t.Errorf("error should mention async failure: %v", err)
	}
}

func TestRunner_Timeout_FallsBack(t *testing.T) {
	// Джоба вечно QUEUED — сработает wall-clock таймаут
	backend := &fakeBackend{
		statuses: []domain.JobStatus{domain.JobStatusQueued},
	}
	fallback := &fakeFallback{output: map[string]any{"url": "https://cdn/x.png"}}
	runner := NewRunner(RunnerConfig{
		Backend:      backend,
		Fallback:     fallback,
		PollInterval: time.Millisecond,
		Timeout:      20 * time.Millisecond,
	})

	start := time.Now()
	output, err := runner.RunJob(context.Background(), uuid.New(), "crop1", domain.NodeKindCrop, nil)
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output["url"] != "https://cdn/x.png" {
		t.Errorf("expected fallback output, got %v", output)
	}
	if elapsed > 5*time.Second {
		t.Errorf("timeout should fire near 20ms, took %v", elapsed)
	}
	if fallback.callCount() != 1 {
		t.Errorf("expected 1 fallback call, got %d", fallback.calls)
	}
	if fallback.kind != domain.NodeKindCrop {
		t.Errorf("fallback should receive kind crop, got %s", fallback.kind)
	}
}

func TestRunner_ContextCanceled(t *testing.T) {
	backend := &fakeBackend{
		statuses: []domain.JobStatus{domain.JobStatusQueued},
	}
	fallback := &fakeFallback{output: map[string]any{"text": "x"}}
	runner := newTestRunner(backend, fallback)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runner.RunJob(ctx, uuid.New(), "llm1", domain.NodeKindLLM, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	// Отмена контекста — не повод для fallback: отменён весь прогон
	if fallback.callCount() != 0 {
		t.Errorf("fallback should not run on cancel, got %d calls", fallback.calls)
	}
}

func TestRunner_PollErrors_FallBack(t *testing.T) {
	backend := &fakeBackend{pollErr: errors.New("db connection lost")}
	fallback := &fakeFallback{output: map[string]any{"text": "ok"}}
	runner := newTestRunner(backend, fallback)

	output, err := runner.RunJob(context.Background(), uuid.New(), "llm1", domain.NodeKindLLM, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output["text"] != "ok" {
		t.Errorf("expected fallback output, got %v", output)
	}
	if backend.polls != maxPollFailures {
		t.Errorf("expected %d polls before giving up, got %d", maxPollFailures, backend.polls)
	}
}

func TestRunner_NilBackend(t *testing.T) {
	fallback := &fakeFallback{output: map[string]any{"text": "direct"}}
	runner := newTestRunner(nil, fallback)

	output, err := runner.RunJob(context.Background(), uuid.New(), "llm1", domain.NodeKindLLM, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output["text"] != "direct" {
		t.Errorf("expected fallback output, got %v", output)
	}
	if fallback.callCount() != 1 {
		t.Errorf("expected 1 fallback call, got %d", fallback.calls)
	}
}

func TestNewRunner_Defaults(t *testing.T) {
	runner := NewRunner(RunnerConfig{Fallback: &fakeFallback{}})

	if runner.pollInterval != defaultPollInterval {
		t.Errorf("expected default poll interval %v, got %v", defaultPollInterval, runner.pollInterval)
	}
	if runner.timeout != defaultTimeout {
		t.Errorf("expected default timeout %v, got %v", defaultTimeout, runner.timeout)
	}
	if runner.logger == nil {
		t.Error("logger should be initialized")
	}
}

// --- QueueBackend Tests ---

type fakeJobStore struct {
	mu      sync.Mutex
	jobs    map[uuid.UUID]*domain.Job
	failing bool
}

func newFakeJobStore() *fakeJobStore {
	return &fakeJobStore{jobs: make(map[uuid.UUID]*domain.Job)}
}

func (s *fakeJobStore) Create(_ context.Context, job *domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return errors.New("insert failed")
	}
	s.jobs[job.ID] = job
	return nil
}

func (s *fakeJobStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return job, nil
}

func TestQueueBackend_Submit(t *testing.T) {
	store := newFakeJobStore()
	backend := NewQueueBackend(store, nil, nil)

	job := domain.NewJob(uuid.New(), "llm1", domain.NodeKindLLM, map[string]any{"user_message": "hi"})
	id, err := backend.Submit(context.Background(), job)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != job.ID {
		t.Errorf("expected job ID back, got %s", id)
	}

	stored, err := backend.Poll(context.Background(), id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.Status != domain.JobStatusQueued {
		t.Errorf("expected QUEUED, got %s", stored.Status)
	}
}

func TestQueueBackend_SubmitStoreError(t *testing.T) {
	store := newFakeJobStore()
	store.failing = true
	backend := NewQueueBackend(store, nil, nil)

	job := domain.NewJob(uuid.New(), "llm1", domain.NodeKindLLM, nil)
	_, err := backend.Submit(context.Background(), job)
	if err == nil {
		t.Fatal("expected error when store fails")
	}
}
