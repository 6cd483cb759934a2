package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Easel/internal/domain"
	"github.com/shaiso/Easel/internal/telemetry"
)

// Default configuration values.
const (
	defaultPollInterval = 500 * time.Millisecond
	defaultTimeout      = 2 * time.Minute

	// maxPollFailures — сколько опросов подряд может упасть,
	// прежде чем бэкенд считается недоступным.
	maxPollFailures = 3
)

// Fallback — синхронный путь вычисления (реализуется compute.Service).
// Та же логическая операция, что и у воркера, но в процессе движка
// и в обход очереди.
type Fallback interface {
	Compute(ctx context.Context, kind domain.NodeKind, payload map[string]any) (map[string]any, error)
}

// Runner выполняет вычисление через асинхронный бэкенд с fallback.
//
// Машина состояний:
//  1. Submit — джоба ставится в очередь;
//  2. Poll — опрос с фиксированным интервалом до терминального
//     статуса, не дольше Timeout;
//  3. COMPLETED → output джобы;
//  4. FAILED / таймаут / бэкенд недоступен → fallback: та же операция
//     синхронно. Ошибка fallback — финальная ошибка узла; успех
//     fallback неотличим от успеха джобы.
type Runner struct {
	backend      Backend
	fallback     Fallback
	pollInterval time.Duration
	timeout      time.Duration
	logger       *slog.Logger
}

// RunnerConfig — конфигурация Runner.
type RunnerConfig struct {
	// Backend — асинхронный бэкенд джоб (nil допустим:
	// все вычисления пойдут через fallback).
	Backend Backend

	// Fallback — синхронный путь вычисления. Обязателен.
	Fallback Fallback

	// PollInterval — интервал опроса (default: 500ms).
	PollInterval time.Duration

	// Timeout — wall-clock лимит ожидания джобы (default: 2m).
	Timeout time.Duration

	// Logger
	Logger *slog.Logger
}

// NewRunner создаёт Runner.
func NewRunner(cfg RunnerConfig) *Runner {
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{
		backend:      cfg.Backend,
		fallback:     cfg.Fallback,
		pollInterval: pollInterval,
		timeout:      timeout,
		logger:       logger,
	}
}

// RunJob выполняет вычисление kind с данным payload.
// Реализует executor.JobRunner.
func (r *Runner) RunJob(ctx context.Context, runID uuid.UUID, nodeID string, kind domain.NodeKind, payload map[string]any) (map[string]any, error) {
	if r.backend == nil {
		return r.runFallback(ctx, kind, payload, ErrBackendUnavailable)
	}

	job := domain.NewJob(runID, nodeID, kind, payload)

	id, err := r.backend.Submit(ctx, job)
	if err != nil {
		return r.runFallback(ctx, kind, payload,
			fmt.Errorf("%w: submit: %v", ErrBackendUnavailable, err))
	}
	telemetry.JobsSubmitted.WithLabelValues(string(kind)).Inc()

	r.logger.Debug("job submitted",
		"job_id", id,
		"run_id", runID,
		"node_id", nodeID,
		"kind", kind,
	)

	deadline := time.NewTimer(r.timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	pollFailures := 0
	for {
		polled, err := r.backend.Poll(ctx, id)
		if err != nil {
			pollFailures++
			if pollFailures >= maxPollFailures {
				return r.runFallback(ctx, kind, payload,
					fmt.Errorf("%w: poll: %v", ErrBackendUnavailable, err))
			}
		} else {
			pollFailures = 0

			switch polled.Status {
			case domain.JobStatusCompleted:
				return polled.Output, nil
			case domain.JobStatusFailed:
				return r.runFallback(ctx, kind, payload,
					fmt.Errorf("%w: %s", ErrJobFailed, polled.Error))
			}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return r.runFallback(ctx, kind, payload,
				fmt.Errorf("%w: no terminal status after %s", ErrJobTimeout, r.timeout))
		case <-ticker.C:
		}
	}
}

// runFallback выполняет операцию синхронно через провайдера вычислений.
// cause — причина, по которой асинхронный путь не обслужил запрос.
func (r *Runner) runFallback(ctx context.Context, kind domain.NodeKind, payload map[string]any, cause error) (map[string]any, error) {
	telemetry.JobFallbacks.WithLabelValues(string(kind)).Inc()

	r.logger.Warn("falling back to direct compute",
		"kind", kind,
		"cause", cause,
	)

	output, err := r.fallback.Compute(ctx, kind, payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v (async path: %v)", ErrJobFailed, err, cause)
	}

	return output, nil
}
