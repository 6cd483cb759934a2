package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/shaiso/Easel/internal/domain"
	"github.com/shaiso/Easel/internal/mq"
)

// Default configuration values.
const (
	defaultPollInterval = 10 * time.Second
	defaultBatchSize    = 50
	defaultConcurrency  = 4
	defaultMaxAttempts  = 3

	// Backoff между попытками: initialRetryDelay * 2^(attempt-1),
	// не больше maxRetryDelay.
	initialRetryDelay = time.Second
	maxRetryDelay     = 30 * time.Second

	// releaseTimeout — сколько ждём завершения текущих джоб при остановке.
	releaseTimeout = 10 * time.Second
)

// JobStore — хранилище джоб (реализуется repo.JobRepo).
type JobStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error)
	ListQueued(ctx context.Context, limit int) ([]domain.Job, error)
	Claim(ctx context.Context, id uuid.UUID) (bool, error)
	Update(ctx context.Context, job *domain.Job) error
}

// Computer — синхронное вычисление payload (реализуется compute.Service).
type Computer interface {
	Compute(ctx context.Context, kind domain.NodeKind, payload map[string]any) (map[string]any, error)
}

// CompletedPublisher — публикация события job.completed (реализуется mq.Publisher).
type CompletedPublisher interface {
	PublishJobCompleted(ctx context.Context, payload mq.JobCompletedPayload) error
}

// Worker выполняет джобы вычислительных узлов.
//
// Джобы приходят двумя путями: событием из очереди jobs.ready и
// поллингом QUEUED записей в БД. Оба пути сходятся в processJob, где
// условный claim гарантирует, что джобу выполнит ровно один воркер.
// Выполнение идёт на горутинах ants-пула фиксированного размера;
// Submit в заполненный пул блокируется, и backpressure доходит до
// prefetch-окна consumer'а.
type Worker struct {
	jobs      JobStore
	compute   Computer
	publisher CompletedPublisher

	conn     *mq.Connection
	consumer *mq.Consumer

	pool *ants.Pool

	pollInterval time.Duration
	batchSize    int
	concurrency  int
	maxAttempts  int

	// retryBaseDelay — основание backoff (в тестах укорачивается).
	retryBaseDelay time.Duration

	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	stopped    bool
	stoppedMu  sync.RWMutex
}

// Config — конфигурация Worker.
type Config struct {
	// Jobs — хранилище джоб. Обязательно.
	Jobs JobStore

	// Compute — реестр провайдеров вычислений. Обязательно.
	Compute Computer

	// Publisher — публикация job.completed (nil допустим:
	// движок опрашивает джобу по БД, событие информационное).
	Publisher CompletedPublisher

	// Conn — соединение с RabbitMQ (nil допустим:
	// воркер работает только на поллинге).
	Conn *mq.Connection

	// Concurrency — размер ants-пула (default: 4).
	Concurrency int

	// PollInterval — интервал поллинга QUEUED джоб (default: 10s).
	PollInterval time.Duration

	// BatchSize — количество джоб за один poll (default: 50).
	BatchSize int

	// MaxAttempts — максимум попыток выполнения джобы (default: 3).
	MaxAttempts int

	// Logger
	Logger *slog.Logger
}

// New создаёт новый Worker.
func New(cfg Config) *Worker {
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Worker{
		jobs:           cfg.Jobs,
		compute:        cfg.Compute,
		publisher:      cfg.Publisher,
		conn:           cfg.Conn,
		pollInterval:   pollInterval,
		batchSize:      batchSize,
		concurrency:    concurrency,
		maxAttempts:    maxAttempts,
		retryBaseDelay: initialRetryDelay,
		logger:         logger,
	}
}

// Start запускает Worker.
//
// Запускает:
//   - ants-пул для выполнения джоб
//   - Consumer для jobs.ready (если есть MQ)
//   - Polling горутину для fallback
func (w *Worker) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	w.cancelFunc = cancel

	pool, err := ants.NewPool(w.concurrency)
	if err != nil {
		return fmt.Errorf("create pool: %w", err)
	}
	w.pool = pool

	w.logger.Info("starting worker",
		"concurrency", w.concurrency,
		"poll_interval", w.pollInterval,
		"batch_size", w.batchSize,
		"max_attempts", w.maxAttempts,
	)

	if w.conn != nil {
		w.consumer = mq.NewConsumer(w.conn, w.logger, mq.ConsumerConfig{
			Queue:   string(mq.QueueJobsReady),
			Handler: w.handleJobReady,
			// Prefetch вдвое больше пула, чтобы слоты не простаивали
			// между ack и следующей доставкой.
			Prefetch: w.concurrency * 2,
		})

		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			if err := w.consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				w.logger.Error("job consumer error", "error", err)
			}
		}()
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.pollLoop(ctx)
	}()

	w.logger.Info("worker started")
	return nil
}

// Stop останавливает Worker и дожидается текущих джоб.
func (w *Worker) Stop() {
	w.stoppedMu.Lock()
	w.stopped = true
	w.stoppedMu.Unlock()

	w.logger.Info("stopping worker...")

	if w.cancelFunc != nil {
		w.cancelFunc()
	}

	if w.consumer != nil {
		w.consumer.Stop()
	}

	w.wg.Wait()

	if w.pool != nil {
		if err := w.pool.ReleaseTimeout(releaseTimeout); err != nil {
			w.logger.Warn("pool release timed out", "error", err)
		}
	}

	w.logger.Info("worker stopped")
}

// IsStopped проверяет, остановлен ли Worker.
func (w *Worker) IsStopped() bool {
	w.stoppedMu.RLock()
	defer w.stoppedMu.RUnlock()
	return w.stopped
}

// pollLoop — цикл поллинга для fallback.
func (w *Worker) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	// Первый poll сразу при старте (подхватываем джобы, созданные пока были выключены)
	w.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

// poll выполняет один цикл поллинга: QUEUED джобы уходят в пул.
func (w *Worker) poll(ctx context.Context) {
	queued, err := w.jobs.ListQueued(ctx, w.batchSize)
	if err != nil {
		w.logger.Error("failed to list queued jobs", "error", err)
		return
	}

	if len(queued) == 0 {
		return
	}

	w.logger.Debug("poll found queued jobs", "count", len(queued))

	for i := range queued {
		w.dispatch(ctx, queued[i].ID)
	}
}

// dispatch отправляет джобу в ants-пул. Submit блокируется, пока
// в пуле нет свободного слота.
func (w *Worker) dispatch(ctx context.Context, jobID uuid.UUID) {
	err := w.pool.Submit(func() {
		if err := w.processJob(ctx, jobID); err != nil {
			switch {
			case errors.Is(err, ErrJobNotQueued):
				w.logger.Debug("job skipped", "job_id", jobID, "reason", err)
			case errors.Is(err, context.Canceled):
				// Остановка воркера.
			default:
				w.logger.Error("failed to process job", "job_id", jobID, "error", err)
			}
		}
	})
	if err != nil {
		// Пул закрыт: воркер останавливается, джобу подхватит
		// другой экземпляр или следующий запуск.
		w.logger.Warn("failed to submit job to pool", "job_id", jobID, "error", err)
	}
}
