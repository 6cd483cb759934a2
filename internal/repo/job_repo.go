package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Easel/internal/domain"
)

// JobRepo — репозиторий для работы с jobs.
type JobRepo struct {
	pool *pgxpool.Pool
}

// NewJobRepo создаёт новый JobRepo.
func NewJobRepo(pool *pgxpool.Pool) *JobRepo {
	return &JobRepo{pool: pool}
}

// Create создаёт новую джобу.
func (r *JobRepo) Create(ctx context.Context, job *domain.Job) error {
	payloadJSON, err := json.Marshal(job.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	query := `
		INSERT INTO jobs (id, run_id, node_id, kind, payload, status, attempt, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = r.pool.Exec(ctx, query,
		job.ID,
		job.RunID,
		job.NodeID,
		job.Kind,
		payloadJSON,
		job.Status,
		job.Attempt,
		job.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// GetByID возвращает джобу по ID.
func (r *JobRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	query := `
		SELECT id, run_id, node_id, kind, payload, status, output,
		       error, attempt, started_at, finished_at, created_at
		FROM jobs
		WHERE id = $1
	`
	return r.scanJob(r.pool.QueryRow(ctx, query, id))
}

// ListQueued возвращает джобы в статусе QUEUED.
func (r *JobRepo) ListQueued(ctx context.Context, limit int) ([]domain.Job, error) {
	query := `
		SELECT id, run_id, node_id, kind, payload, status, output,
		       error, attempt, started_at, finished_at, created_at
		FROM jobs
		WHERE status = 'QUEUED'
		ORDER BY created_at ASC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list queued jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		job, err := r.scanJobFromRows(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// Claim атомарно переводит джобу из QUEUED в RUNNING.
//
// Возвращает false, если джобу уже забрал другой воркер
// (или она завершена): условный UPDATE не затронул ни одной строки.
func (r *JobRepo) Claim(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE jobs
		SET status = 'RUNNING', started_at = NOW()
		WHERE id = $1 AND status = 'QUEUED'
	`
	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("claim job: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// Update обновляет джобу.
func (r *JobRepo) Update(ctx context.Context, job *domain.Job) error {
	var outputJSON []byte
	if job.Output != nil {
		var err error
		outputJSON, err = json.Marshal(job.Output)
		if err != nil {
			return fmt.Errorf("marshal output: %w", err)
		}
	}

	query := `
		UPDATE jobs
		SET status = $2, output = $3, error = $4, attempt = $5,
		    started_at = $6, finished_at = $7
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		job.ID,
		job.Status,
		outputJSON,
		nullString(job.Error),
		job.Attempt,
		job.StartedAt,
		job.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Helpers ---

// scanJob сканирует одну строку в Job.
func (r *JobRepo) scanJob(row pgx.Row) (*domain.Job, error) {
	var job domain.Job
	var payloadJSON, outputJSON []byte
	var jobError *string

	err := row.Scan(
		&job.ID,
		&job.RunID,
		&job.NodeID,
		&job.Kind,
		&payloadJSON,
		&job.Status,
		&outputJSON,
		&jobError,
		&job.Attempt,
		&job.StartedAt,
		&job.FinishedAt,
		&job.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan job: %w", err)
	}

	if payloadJSON != nil {
		if err := json.Unmarshal(payloadJSON, &job.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal payload: %w", err)
		}
	}
	if outputJSON != nil {
		if err := json.Unmarshal(outputJSON, &job.Output); err != nil {
			return nil, fmt.Errorf("unmarshal output: %w", err)
		}
	}
	if jobError != nil {
		job.Error = *jobError
	}

	return &job, nil
}

// scanJobFromRows сканирует строку из rows в Job.
func (r *JobRepo) scanJobFromRows(rows pgx.Rows) (*domain.Job, error) {
	var job domain.Job
	var payloadJSON, outputJSON []byte
	var jobError *string

	err := rows.Scan(
		&job.ID,
		&job.RunID,
		&job.NodeID,
		&job.Kind,
		&payloadJSON,
		&job.Status,
		&outputJSON,
		&jobError,
		&job.Attempt,
		&job.StartedAt,
		&job.FinishedAt,
		&job.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan job: %w", err)
	}

	if payloadJSON != nil {
		if err := json.Unmarshal(payloadJSON, &job.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal payload: %w", err)
		}
	}
	if outputJSON != nil {
		if err := json.Unmarshal(outputJSON, &job.Output); err != nil {
			return nil, fmt.Errorf("unmarshal output: %w", err)
		}
	}
	if jobError != nil {
		job.Error = *jobError
	}

	return &job, nil
}
