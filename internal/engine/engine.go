package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/shaiso/Easel/internal/executor"
	"github.com/shaiso/Easel/internal/mq"
)

// Default configuration values.
const (
	defaultPollInterval = 10 * time.Second
	defaultBatchSize    = 100
	defaultMaxParallel  = 8
)

// Engine выполняет runs.
//
// Получает новые runs из очереди RabbitMQ (event-driven) и поллингом
// PENDING runs из БД (страховка). Каждый run выполняется в отдельной
// горутине; двойной запуск отсекается локальной картой активных runs
// и claim'ом в БД.
type Engine struct {
	runs      RunStore
	workflows WorkflowStore
	results   ResultStore

	registry *executor.Registry

	// MQ. conn может быть nil — тогда движок работает только на поллинге.
	conn     *mq.Connection
	consumer *mq.Consumer

	// active — runs, выполняемые этим экземпляром (runID → true).
	active map[uuid.UUID]bool
	mu     sync.Mutex

	pollInterval time.Duration
	batchSize    int
	maxParallel  int

	logger     *slog.Logger
	cancelFunc context.CancelFunc
	group      *errgroup.Group
	wg         sync.WaitGroup
	stopped    bool
	stoppedMu  sync.RWMutex
}

// Config — конфигурация Engine.
type Config struct {
	// Stores
	RunStore      RunStore
	WorkflowStore WorkflowStore
	ResultStore   ResultStore

	// Registry — исполнители по типу узла.
	Registry *executor.Registry

	// Conn — соединение с RabbitMQ. nil — движок без consumer,
	// runs подхватываются только поллингом.
	Conn *mq.Connection

	// PollInterval — интервал поллинга PENDING runs (default: 10s).
	PollInterval time.Duration

	// BatchSize — количество runs за один poll (default: 100).
	BatchSize int

	// MaxParallel — лимит конкурентных узлов внутри слоя (default: 8).
	MaxParallel int

	// Logger
	Logger *slog.Logger
}

// New создаёт новый Engine.
func New(cfg Config) *Engine {
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	maxParallel := cfg.MaxParallel
	if maxParallel <= 0 {
		maxParallel = defaultMaxParallel
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		runs:         cfg.RunStore,
		workflows:    cfg.WorkflowStore,
		results:      cfg.ResultStore,
		registry:     cfg.Registry,
		conn:         cfg.Conn,
		active:       make(map[uuid.UUID]bool),
		pollInterval: pollInterval,
		batchSize:    batchSize,
		maxParallel:  maxParallel,
		logger:       logger,
	}
}

// Start запускает Engine: consumer очереди runs.requested и
// поллинг PENDING runs.
func (e *Engine) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	e.cancelFunc = cancel

	e.logger.Info("starting engine",
		"poll_interval", e.pollInterval,
		"batch_size", e.batchSize,
		"max_parallel", e.maxParallel,
	)

	g, gctx := errgroup.WithContext(ctx)
	e.group = g

	if e.conn != nil {
		e.consumer = mq.NewConsumer(e.conn, e.logger, mq.ConsumerConfig{
			Queue:    string(mq.QueueRunsRequested),
			Handler:  e.handleRunRequested,
			Prefetch: 10,
		})

		g.Go(func() error {
			if err := e.consumer.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
				// Поллинг продолжает работать без MQ.
				e.logger.Error("run consumer stopped", "error", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		e.pollLoop(gctx)
		return nil
	})

	e.logger.Info("engine started")
	return nil
}

// Stop останавливает Engine и дожидается выполняемых runs.
// Run, прерванный посреди слоёв, помечается FAILED.
func (e *Engine) Stop() {
	e.stoppedMu.Lock()
	e.stopped = true
	e.stoppedMu.Unlock()

	e.logger.Info("stopping engine...")

	if e.cancelFunc != nil {
		e.cancelFunc()
	}
	if e.consumer != nil {
		e.consumer.Stop()
	}
	if e.group != nil {
		_ = e.group.Wait()
	}

	// Дожидаемся горутин выполнения runs
	e.wg.Wait()

	e.logger.Info("engine stopped")
}

// IsStopped проверяет, остановлен ли Engine.
func (e *Engine) IsStopped() bool {
	e.stoppedMu.RLock()
	defer e.stoppedMu.RUnlock()
	return e.stopped
}

// handleRunRequested обрабатывает событие о новом run.
func (e *Engine) handleRunRequested(ctx context.Context, delivery *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.RunRequestedPayload](&delivery.Message)
	if err != nil {
		// Событие с битым payload не redeliver'ится:
		// PENDING run всё равно подхватит поллинг.
		e.logger.Error("failed to parse run.requested payload", "error", err)
		return nil
	}

	e.logger.Debug("received run.requested event", "run_id", payload.RunID)

	e.startRun(ctx, payload.RunID)
	return nil
}

// pollLoop — цикл поллинга PENDING runs.
func (e *Engine) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	// Первый poll сразу при старте (подхватываем runs, созданные пока были выключены)
	e.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.poll(ctx)
		}
	}
}

// poll выполняет один цикл поллинга.
func (e *Engine) poll(ctx context.Context) {
	runs, err := e.runs.ListPending(ctx, e.batchSize)
	if err != nil {
		e.logger.Error("failed to list pending runs", "error", err)
		return
	}

	if len(runs) == 0 {
		return
	}

	e.logger.Debug("poll found pending runs", "count", len(runs))

	for i := range runs {
		e.startRun(ctx, runs[i].ID)
	}
}

// startRun запускает выполнение run в отдельной горутине.
// Уже выполняемый run пропускается молча.
func (e *Engine) startRun(ctx context.Context, runID uuid.UUID) {
	if !e.tryActivate(runID) {
		return
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer e.deactivate(runID)

		if err := e.ExecuteRun(ctx, runID); err != nil {
			switch {
			case errors.Is(err, ErrRunNotPending):
				e.logger.Debug("run not pending, skipping", "run_id", runID)
			case errors.Is(err, context.Canceled):
				// Остановка движка: run уже запечатан как прерванный.
			default:
				e.logger.Error("run execution failed", "run_id", runID, "error", err)
			}
		}
	}()
}

// tryActivate добавляет run в активные.
// Возвращает false, если run уже выполняется этим экземпляром.
func (e *Engine) tryActivate(runID uuid.UUID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active[runID] {
		return false
	}
	e.active[runID] = true
	return true
}

// deactivate удаляет run из активных.
func (e *Engine) deactivate(runID uuid.UUID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.active, runID)
}

// ActiveRuns возвращает количество выполняемых runs.
func (e *Engine) ActiveRuns() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.active)
}
