package engine

import (
	"context"

	"github.com/google/uuid"

	"github.com/shaiso/Easel/internal/domain"
)

// RunStore — хранилище runs (реализуется repo.RunRepo).
type RunStore interface {
	// GetByID возвращает run по идентификатору.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Run, error)

	// ListPending возвращает PENDING runs, старые первыми.
	ListPending(ctx context.Context, limit int) ([]domain.Run, error)

	// Claim переводит run из PENDING в RUNNING условным UPDATE.
	// Возвращает false, если run уже не PENDING (забрал другой
	// экземпляр движка или другой путь доставки).
	Claim(ctx context.Context, id uuid.UUID) (bool, error)

	// Update сохраняет текущее состояние run.
	Update(ctx context.Context, run *domain.Run) error
}

// WorkflowStore — хранилище workflows (реализуется repo.WorkflowRepo).
type WorkflowStore interface {
	// GetByID возвращает workflow по идентификатору.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Workflow, error)

	// UpdateNodeState записывает data узла (status/output/error)
	// в сохранённый граф, чтобы холст показывал последние результаты.
	UpdateNodeState(ctx context.Context, workflowID uuid.UUID, node domain.Node) error
}

// ResultStore — хранилище записей о выполнении узлов
// (реализуется repo.ResultRepo).
type ResultStore interface {
	// Create записывает стартовавший узел (статус RUNNING).
	Create(ctx context.Context, result *domain.NodeResult) error

	// Update финализирует запись (SUCCESS/FAILED).
	Update(ctx context.Context, result *domain.NodeResult) error
}
