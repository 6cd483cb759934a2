package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/shaiso/Easel/internal/domain"
	"github.com/shaiso/Easel/internal/mq"
)

// Backend — асинхронный бэкенд джоб.
type Backend interface {
	// Submit ставит джобу в очередь и возвращает её идентификатор.
	Submit(ctx context.Context, job *domain.Job) (uuid.UUID, error)

	// Poll возвращает текущее состояние джобы.
	Poll(ctx context.Context, id uuid.UUID) (*domain.Job, error)
}

// JobStore — хранилище джоб (реализуется repo.JobRepo).
type JobStore interface {
	Create(ctx context.Context, job *domain.Job) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error)
}

// ReadyPublisher — публикация события job.ready (реализуется mq.Publisher).
type ReadyPublisher interface {
	PublishJobReady(ctx context.Context, payload mq.JobReadyPayload) error
}

// QueueBackend — бэкенд на Postgres и RabbitMQ: джоба записывается
// в таблицу jobs и анонсируется воркерам через очередь jobs.ready.
//
// Публикация best effort: если MQ недоступен, воркер подхватит
// QUEUED джобу поллингом БД.
type QueueBackend struct {
	store     JobStore
	publisher ReadyPublisher
	logger    *slog.Logger
}

// NewQueueBackend создаёт бэкенд джоб.
// publisher может быть nil — тогда джобы подхватываются только поллингом.
func NewQueueBackend(store JobStore, publisher ReadyPublisher, logger *slog.Logger) *QueueBackend {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueueBackend{
		store:     store,
		publisher: publisher,
		logger:    logger,
	}
}

// Submit записывает джобу и публикует job.ready.
func (b *QueueBackend) Submit(ctx context.Context, job *domain.Job) (uuid.UUID, error) {
	if err := b.store.Create(ctx, job); err != nil {
		return uuid.Nil, fmt.Errorf("create job: %w", err)
	}

	if b.publisher != nil {
		payload := mq.JobReadyPayload{
			JobID:  job.ID,
			RunID:  job.RunID,
			NodeID: job.NodeID,
			Kind:   string(job.Kind),
		}
		if err := b.publisher.PublishJobReady(ctx, payload); err != nil {
			b.logger.Warn("failed to publish job.ready",
				"job_id", job.ID,
				"error", err,
			)
		}
	}

	return job.ID, nil
}

// Poll перечитывает запись джобы.
func (b *QueueBackend) Poll(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	return b.store.GetByID(ctx, id)
}
