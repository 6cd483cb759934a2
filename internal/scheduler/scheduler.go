package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Easel/internal/domain"
	"github.com/shaiso/Easel/internal/repo"
)

const (
	defaultTickInterval = 30 * time.Second
	defaultBatchSize    = 100
)

// ScheduleStore — доступ к расписаниям (реализуется repo.ScheduleRepo).
type ScheduleStore interface {
	ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Schedule, error)
	Update(ctx context.Context, schedule *domain.Schedule) error
}

// RunStore — создание runs (реализуется repo.RunRepo).
type RunStore interface {
	Create(ctx context.Context, run *domain.Run) error
	GetByIdempotencyKey(ctx context.Context, workflowID uuid.UUID, key string) (*domain.Run, error)
}

// WorkflowStore — проверка существования workflow (реализуется repo.WorkflowRepo).
type WorkflowStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Workflow, error)
}

// RunPublisher — публикация run.requested (реализуется mq.Publisher).
type RunPublisher interface {
	PublishRunRequested(ctx context.Context, runID uuid.UUID) error
}

// Locker — выбор лидера среди экземпляров (реализуется repo.AdvisoryLock).
type Locker interface {
	TryAcquire(ctx context.Context) (release func(), ok bool, err error)
}

// Scheduler создаёт runs по расписаниям.
//
// Каждый тик выполняется под advisory lock: из нескольких экземпляров
// расписания обрабатывает ровно один. Idempotency key run'а привязан
// к due-времени расписания, поэтому даже два лидера (например, при
// потере соединения с БД между тиками) не создадут дубликат.
type Scheduler struct {
	schedules ScheduleStore
	runs      RunStore
	workflows WorkflowStore
	publisher RunPublisher
	lock      Locker

	tickInterval time.Duration
	batchSize    int
	logger       *slog.Logger
}

// Config — конфигурация Scheduler.
type Config struct {
	// Schedules — хранилище расписаний. Обязательно.
	Schedules ScheduleStore

	// Runs — хранилище runs. Обязательно.
	Runs RunStore

	// Workflows — хранилище workflows. Обязательно.
	Workflows WorkflowStore

	// Publisher — публикация run.requested (nil допустим:
	// движок подхватит PENDING run поллингом).
	Publisher RunPublisher

	// Lock — advisory lock для выбора лидера (nil допустим:
	// единственный экземпляр тикает без блокировки).
	Lock Locker

	// TickInterval — период проверки due расписаний (default: 30s).
	TickInterval time.Duration

	// BatchSize — количество расписаний за один тик (default: 100).
	BatchSize int

	// Logger
	Logger *slog.Logger
}

// New создаёт новый Scheduler.
func New(cfg Config) *Scheduler {
	tickInterval := cfg.TickInterval
	if tickInterval <= 0 {
		tickInterval = defaultTickInterval
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		schedules:    cfg.Schedules,
		runs:         cfg.Runs,
		workflows:    cfg.Workflows,
		publisher:    cfg.Publisher,
		lock:         cfg.Lock,
		tickInterval: tickInterval,
		batchSize:    batchSize,
		logger:       logger,
	}
}

// Run крутит цикл тиков до отмены контекста.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler started", "tick_interval", s.tickInterval)

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := s.tickLocked(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error("scheduler tick failed", "error", err)
			}
		}
	}
}

// tickLocked выполняет Tick под advisory lock, если он настроен.
func (s *Scheduler) tickLocked(ctx context.Context) error {
	if s.lock == nil {
		return s.Tick(ctx)
	}

	release, ok, err := s.lock.TryAcquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire scheduler lock: %w", err)
	}
	if !ok {
		// Лидер — другой экземпляр.
		s.logger.Debug("scheduler lock held elsewhere, skipping tick")
		return nil
	}
	defer release()

	return s.Tick(ctx)
}

// Tick выполняет один проход: due расписания превращаются в PENDING runs.
//
// Ошибка одного расписания не блокирует остальные. Misfire (расписание,
// чьё due-время давно прошло) срабатывает один раз: следующее время
// вычисляется от текущего момента, без навёрстывания пропусков.
func (s *Scheduler) Tick(ctx context.Context) error {
	now := time.Now()

	schedules, err := s.schedules.ListDue(ctx, now, s.batchSize)
	if err != nil {
		return fmt.Errorf("list due schedules: %w", err)
	}

	if len(schedules) == 0 {
		return nil
	}

	s.logger.Debug("found due schedules", "count", len(schedules))

	var processed, created int
	for i := range schedules {
		sched := &schedules[i]

		runCreated, err := s.processSchedule(ctx, sched, now)
		if err != nil {
			s.logger.Error("failed to process schedule",
				"schedule_id", sched.ID,
				"schedule_name", sched.Name,
				"error", err,
			)
			continue
		}

		processed++
		if runCreated {
			created++
		}
	}

	s.logger.Info("scheduler tick completed",
		"due", len(schedules),
		"processed", processed,
		"runs_created", created,
	)

	return nil
}

// processSchedule создаёт run для одного due расписания.
// Возвращает true, если run был создан (а не найден по idempotency key).
func (s *Scheduler) processSchedule(ctx context.Context, sched *domain.Schedule, now time.Time) (bool, error) {
	if _, err := s.workflows.GetByID(ctx, sched.WorkflowID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			s.logger.Warn("workflow not found for schedule, skipping",
				"schedule_id", sched.ID,
				"workflow_id", sched.WorkflowID,
			)
			return false, nil
		}
		return false, fmt.Errorf("get workflow: %w", err)
	}

	// Ключ привязан к due-времени: на одно срабатывание — один run,
	// сколько бы раз тик ни перезапускался.
	idempKey := fmt.Sprintf("%s_%d", sched.ID, sched.NextDueAt.Unix())

	runID, runCreated, err := s.createRun(ctx, sched, idempKey, now)
	if err != nil {
		return false, err
	}

	nextDue, err := CalculateNextDue(sched, now)
	if err != nil {
		// Расписание некорректно: next_due_at не трогаем,
		// оператор увидит ошибку в логе.
		s.logger.Error("failed to calculate next due",
			"schedule_id", sched.ID,
			"error", err,
		)
		return runCreated, nil
	}

	sched.RecordRun(runID, nextDue)
	if err := s.schedules.Update(ctx, sched); err != nil {
		return runCreated, fmt.Errorf("update schedule: %w", err)
	}

	if s.publisher != nil && runCreated {
		if err := s.publisher.PublishRunRequested(ctx, runID); err != nil {
			// Run уже в БД, движок подхватит его поллингом.
			s.logger.Warn("failed to publish run.requested",
				"run_id", runID,
				"error", err,
			)
		}
	}

	return runCreated, nil
}

// createRun создаёт PENDING run либо возвращает уже существующий
// с тем же idempotency key.
func (s *Scheduler) createRun(ctx context.Context, sched *domain.Schedule, idempKey string, now time.Time) (uuid.UUID, bool, error) {
	existing, err := s.runs.GetByIdempotencyKey(ctx, sched.WorkflowID, idempKey)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return uuid.Nil, false, fmt.Errorf("check idempotency: %w", err)
	}
	if existing != nil {
		s.logger.Debug("run already exists for due time",
			"schedule_id", sched.ID,
			"run_id", existing.ID,
			"idempotency_key", idempKey,
		)
		return existing.ID, false, nil
	}

	scope := sched.Scope
	if scope == "" {
		scope = domain.ScopeFull
	}

	run := &domain.Run{
		ID:             uuid.New(),
		WorkflowID:     sched.WorkflowID,
		Scope:          scope,
		NodeIDs:        sched.NodeIDs,
		Status:         domain.RunStatusPending,
		IdempotencyKey: idempKey,
		CreatedAt:      now,
	}

	if err := s.runs.Create(ctx, run); err != nil {
		if errors.Is(err, repo.ErrAlreadyExists) {
			// Гонка с другим лидером: run с этим ключом уже вставлен.
			replay, lookupErr := s.runs.GetByIdempotencyKey(ctx, sched.WorkflowID, idempKey)
			if lookupErr != nil {
				return uuid.Nil, false, fmt.Errorf("replay idempotent run: %w", lookupErr)
			}
			return replay.ID, false, nil
		}
		return uuid.Nil, false, fmt.Errorf("create run: %w", err)
	}

	s.logger.Info("created run from schedule",
		"run_id", run.ID,
		"schedule_id", sched.ID,
		"schedule_name", sched.Name,
		"workflow_id", sched.WorkflowID,
		"scope", run.Scope,
	)

	return run.ID, true, nil
}
