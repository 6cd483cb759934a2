package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Easel/internal/compute"
	"github.com/shaiso/Easel/internal/domain"
	"github.com/shaiso/Easel/internal/mq"
	"github.com/shaiso/Easel/internal/repo"
	"github.com/shaiso/Easel/internal/telemetry"
)

// handleJobReady обрабатывает событие о новой джобе из очереди jobs.ready.
func (w *Worker) handleJobReady(ctx context.Context, delivery *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.JobReadyPayload](&delivery.Message)
	if err != nil {
		w.logger.Error("failed to parse job.ready payload", "error", err)
		// Повторная доставка не даст другой результат; если джоба
		// существует, её подхватит поллинг.
		return fmt.Errorf("%w: %v", mq.ErrReject, err)
	}

	w.logger.Debug("received job.ready event",
		"job_id", payload.JobID,
		"run_id", payload.RunID,
		"kind", payload.Kind,
	)

	w.dispatch(ctx, payload.JobID)
	return nil
}

// processJob захватывает джобу, выполняет её и записывает результат.
func (w *Worker) processJob(ctx context.Context, jobID uuid.UUID) error {
	claimed, err := w.jobs.Claim(ctx, jobID)
	if err != nil {
		return fmt.Errorf("claim job: %w", err)
	}
	if !claimed {
		return ErrJobNotQueued
	}

	job, err := w.jobs.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
		}
		return fmt.Errorf("get job: %w", err)
	}

	// Зеркалим claim локально: счётчик попыток и время старта.
	job.MarkRunning()

	w.logger.Info("job started",
		"job_id", job.ID,
		"run_id", job.RunID,
		"node_id", job.NodeID,
		"kind", job.Kind,
		"attempt", job.Attempt,
	)

	output, execErr := w.executeWithRetry(ctx, job)

	if execErr == nil {
		job.MarkCompleted(output)
	} else {
		job.MarkFailed(execErr.Error())
	}

	if err := w.updateJob(ctx, job); err != nil {
		return fmt.Errorf("update job to %s: %w", job.Status, err)
	}

	telemetry.JobsProcessed.WithLabelValues(string(job.Kind), string(job.Status)).Inc()

	if execErr == nil {
		w.logger.Info("job completed",
			"job_id", job.ID,
			"run_id", job.RunID,
			"node_id", job.NodeID,
			"attempt", job.Attempt,
			"duration", job.Duration(),
		)
	} else {
		w.logger.Warn("job failed",
			"job_id", job.ID,
			"run_id", job.RunID,
			"node_id", job.NodeID,
			"attempt", job.Attempt,
			"error", execErr,
		)
	}

	return w.publishCompletion(ctx, job)
}

// executeWithRetry выполняет вычисление с повторами для транзиентных ошибок.
func (w *Worker) executeWithRetry(ctx context.Context, job *domain.Job) (map[string]any, error) {
	for {
		output, err := w.compute.Compute(ctx, job.Kind, job.Payload)
		if err == nil {
			return output, nil
		}

		if !retryable(err) || !job.CanRetry(w.maxAttempts) {
			return nil, err
		}

		delay := w.backoff(job.Attempt)
		w.logger.Debug("retrying job",
			"job_id", job.ID,
			"attempt", job.Attempt,
			"delay", delay,
			"error", err,
		)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		job.ResetForRetry()
		job.MarkRunning()
		if err := w.jobs.Update(ctx, job); err != nil {
			return nil, fmt.Errorf("update job for retry: %w", err)
		}
	}
}

// retryable — транзиентна ли ошибка вычисления.
// Кривой payload и неизвестный тип узла не лечатся повтором.
func retryable(err error) bool {
	return !errors.Is(err, compute.ErrBadPayload) && !errors.Is(err, compute.ErrProviderNotFound)
}

// backoff возвращает задержку перед следующей попыткой:
// base * 2^(attempt-1), не больше maxRetryDelay.
func (w *Worker) backoff(attempt int) time.Duration {
	delay := w.retryBaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maxRetryDelay {
			return maxRetryDelay
		}
	}
	return delay
}

// updateJob записывает состояние джобы. На отменённом контексте берём
// отвязанный с коротким таймаутом: терминальный статус обязан попасть
// в БД, иначе движок будет ждать джобу до своего таймаута.
func (w *Worker) updateJob(ctx context.Context, job *domain.Job) error {
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	}
	return w.jobs.Update(ctx, job)
}

// publishCompletion публикует событие job.completed.
// Best effort: движок опрашивает джобу по БД, событие информационное.
func (w *Worker) publishCompletion(ctx context.Context, job *domain.Job) error {
	if w.publisher == nil {
		return nil
	}

	payload := mq.JobCompletedPayload{
		JobID:   job.ID,
		RunID:   job.RunID,
		NodeID:  job.NodeID,
		Status:  string(job.Status),
		Error:   job.Error,
		Attempt: job.Attempt,
	}

	if err := w.publisher.PublishJobCompleted(ctx, payload); err != nil {
		w.logger.Warn("failed to publish job.completed",
			"job_id", job.ID,
			"error", err,
		)
	}
	return nil
}
