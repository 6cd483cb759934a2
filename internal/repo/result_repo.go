package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Easel/internal/domain"
)

// ResultRepo — репозиторий для работы с node_results.
type ResultRepo struct {
	pool *pgxpool.Pool
}

// NewResultRepo создаёт новый ResultRepo.
func NewResultRepo(pool *pgxpool.Pool) *ResultRepo {
	return &ResultRepo{pool: pool}
}

// Create создаёт запись о стартующем узле (статус RUNNING, output пуст).
func (r *ResultRepo) Create(ctx context.Context, res *domain.NodeResult) error {
	inputJSON, err := json.Marshal(res.Input)
	if err != nil {
		return fmt.Errorf("marshal input: %w", err)
	}

	query := `
		INSERT INTO node_results (id, run_id, node_id, node_kind, status, input, started_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = r.pool.Exec(ctx, query,
		res.ID,
		res.RunID,
		res.NodeID,
		res.NodeKind,
		res.Status,
		inputJSON,
		res.StartedAt,
		res.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert node result: %w", err)
	}
	return nil
}

// Update финализирует запись: терминальный статус, output либо ошибка.
func (r *ResultRepo) Update(ctx context.Context, res *domain.NodeResult) error {
	var outputJSON []byte
	if res.Output != nil {
		var err error
		outputJSON, err = json.Marshal(res.Output)
		if err != nil {
			return fmt.Errorf("marshal output: %w", err)
		}
	}

	query := `
		UPDATE node_results
		SET status = $2, output = $3, error = $4, finished_at = $5
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		res.ID,
		res.Status,
		outputJSON,
		nullString(res.Error),
		res.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("update node result: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByRunID возвращает записи узлов run в порядке старта.
func (r *ResultRepo) ListByRunID(ctx context.Context, runID uuid.UUID) ([]domain.NodeResult, error) {
	query := `
		SELECT id, run_id, node_id, node_kind, status, input, output,
		       error, started_at, finished_at, created_at
		FROM node_results
		WHERE run_id = $1
		ORDER BY created_at ASC
	`
	rows, err := r.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("list node results: %w", err)
	}
	defer rows.Close()

	var results []domain.NodeResult
	for rows.Next() {
		res, err := r.scanResultFromRows(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *res)
	}
	return results, rows.Err()
}

// --- Helpers ---

// scanResultFromRows сканирует строку из rows в NodeResult.
func (r *ResultRepo) scanResultFromRows(rows pgx.Rows) (*domain.NodeResult, error) {
	var res domain.NodeResult
	var inputJSON, outputJSON []byte
	var resError *string

	err := rows.Scan(
		&res.ID,
		&res.RunID,
		&res.NodeID,
		&res.NodeKind,
		&res.Status,
		&inputJSON,
		&outputJSON,
		&resError,
		&res.StartedAt,
		&res.FinishedAt,
		&res.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan node result: %w", err)
	}

	if inputJSON != nil {
		if err := json.Unmarshal(inputJSON, &res.Input); err != nil {
			return nil, fmt.Errorf("unmarshal input: %w", err)
		}
	}
	if outputJSON != nil {
		if err := json.Unmarshal(outputJSON, &res.Output); err != nil {
			return nil, fmt.Errorf("unmarshal output: %w", err)
		}
	}
	if resError != nil {
		res.Error = *resError
	}

	return &res, nil
}
