package api

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/shaiso/Easel/internal/domain"
	"github.com/shaiso/Easel/internal/repo"
)

// WorkflowStore — операции над workflows, нужные API.
type WorkflowStore interface {
	Create(ctx context.Context, workflow *domain.Workflow) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Workflow, error)
	List(ctx context.Context) ([]domain.Workflow, error)
	Update(ctx context.Context, workflow *domain.Workflow) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// RunStore — операции над runs, нужные API.
type RunStore interface {
	Create(ctx context.Context, run *domain.Run) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Run, error)
	GetByIdempotencyKey(ctx context.Context, workflowID uuid.UUID, key string) (*domain.Run, error)
	List(ctx context.Context, filter repo.RunFilter) ([]domain.Run, error)
	ListByWorkflow(ctx context.Context, workflowID uuid.UUID, limit int) ([]domain.Run, error)
}

// ResultStore — чтение результатов узлов для детализации run.
type ResultStore interface {
	ListByRunID(ctx context.Context, runID uuid.UUID) ([]domain.NodeResult, error)
}

// ScheduleStore — операции над расписаниями, нужные API.
type ScheduleStore interface {
	Create(ctx context.Context, schedule *domain.Schedule) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Schedule, error)
	List(ctx context.Context, filter repo.ScheduleFilter) ([]domain.Schedule, error)
	Update(ctx context.Context, schedule *domain.Schedule) error
	Delete(ctx context.Context, id uuid.UUID) error
	SetEnabled(ctx context.Context, id uuid.UUID, enabled bool) error
}

// RunPublisher уведомляет движок о новом run через брокер.
type RunPublisher interface {
	PublishRunRequested(ctx context.Context, runID uuid.UUID) error
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	workflows WorkflowStore
	runs      RunStore
	results   ResultStore
	schedules ScheduleStore
	publisher RunPublisher
	logger    *slog.Logger
}

// Config — конфигурация для создания Handler.
// Publisher опционален: без брокера PENDING runs подхватывает поллинг движка.
type Config struct {
	Workflows WorkflowStore
	Runs      RunStore
	Results   ResultStore
	Schedules ScheduleStore
	Publisher RunPublisher
	Logger    *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		workflows: cfg.Workflows,
		runs:      cfg.Runs,
		results:   cfg.Results,
		schedules: cfg.Schedules,
		publisher: cfg.Publisher,
		logger:    logger,
	}
}
