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

// WorkflowRepo — репозиторий для работы с workflows.
type WorkflowRepo struct {
	pool *pgxpool.Pool
}

// NewWorkflowRepo создаёт новый WorkflowRepo.
func NewWorkflowRepo(pool *pgxpool.Pool) *WorkflowRepo {
	return &WorkflowRepo{pool: pool}
}

// Create создаёт новый workflow.
func (r *WorkflowRepo) Create(ctx context.Context, wf *domain.Workflow) error {
	graphJSON, err := json.Marshal(wf.Graph)
	if err != nil {
		return fmt.Errorf("marshal graph: %w", err)
	}

	query := `
		INSERT INTO workflows (id, name, description, graph, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = r.pool.Exec(ctx, query,
		wf.ID,
		wf.Name,
		nullString(wf.Description),
		graphJSON,
		wf.CreatedAt,
		wf.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert workflow: %w", err)
	}
	return nil
}

// GetByID возвращает workflow по ID.
func (r *WorkflowRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Workflow, error) {
	query := `
		SELECT id, name, description, graph, created_at, updated_at
		FROM workflows
		WHERE id = $1
	`
	return r.scanWorkflow(r.pool.QueryRow(ctx, query, id))
}

// List возвращает все workflows, недавно изменённые — первыми.
func (r *WorkflowRepo) List(ctx context.Context) ([]domain.Workflow, error) {
	query := `
		SELECT id, name, description, graph, created_at, updated_at
		FROM workflows
		ORDER BY updated_at DESC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}
	defer rows.Close()

	var workflows []domain.Workflow
	for rows.Next() {
		wf, err := r.scanWorkflowFromRows(rows)
		if err != nil {
			return nil, err
		}
		workflows = append(workflows, *wf)
	}
	return workflows, rows.Err()
}

// Update сохраняет workflow целиком: имя, описание и граф из редактора.
func (r *WorkflowRepo) Update(ctx context.Context, wf *domain.Workflow) error {
	graphJSON, err := json.Marshal(wf.Graph)
	if err != nil {
		return fmt.Errorf("marshal graph: %w", err)
	}

	query := `
		UPDATE workflows
		SET name = $2, description = $3, graph = $4, updated_at = $5
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		wf.ID,
		wf.Name,
		nullString(wf.Description),
		graphJSON,
		wf.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update workflow: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete удаляет workflow (каскадно удалит runs, node_results, schedules).
func (r *WorkflowRepo) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM workflows WHERE id = $1`
	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete workflow: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateNodeState записывает терминальное состояние узла (поля status,
// output, error в node.Data) в сохранённый граф workflow.
//
// Строка блокируется FOR UPDATE, чтобы патчи конкурентных runs
// применялись последовательно. updated_at не трогаем: это время
// сохранения из редактора, а не выполнения.
func (r *WorkflowRepo) UpdateNodeState(ctx context.Context, workflowID uuid.UUID, node domain.Node) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var graphJSON []byte
	err = tx.QueryRow(ctx, `SELECT graph FROM workflows WHERE id = $1 FOR UPDATE`, workflowID).Scan(&graphJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("select graph: %w", err)
	}

	var graph domain.GraphSpec
	if err := json.Unmarshal(graphJSON, &graph); err != nil {
		return fmt.Errorf("unmarshal graph: %w", err)
	}

	patched := false
	for i := range graph.Nodes {
		if graph.Nodes[i].ID == node.ID {
			graph.Nodes[i].Data = node.Data
			patched = true
			break
		}
	}
	if !patched {
		// Узел удалили из редактора, пока run выполнялся.
		// Патчить нечего: результат остаётся в node_results.
		return nil
	}

	patchedJSON, err := json.Marshal(graph)
	if err != nil {
		return fmt.Errorf("marshal graph: %w", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE workflows SET graph = $2 WHERE id = $1`, workflowID, patchedJSON); err != nil {
		return fmt.Errorf("update graph: %w", err)
	}
	return tx.Commit(ctx)
}

// --- Helpers ---

// scanWorkflow сканирует одну строку в Workflow.
func (r *WorkflowRepo) scanWorkflow(row pgx.Row) (*domain.Workflow, error) {
	var wf domain.Workflow
	var description *string
	var graphJSON []byte

	err := row.Scan(
		&wf.ID,
		&wf.Name,
		&description,
		&graphJSON,
		&wf.CreatedAt,
		&wf.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan workflow: %w", err)
	}

	if description != nil {
		wf.Description = *description
	}
	if err := json.Unmarshal(graphJSON, &wf.Graph); err != nil {
		return nil, fmt.Errorf("unmarshal graph: %w", err)
	}

	return &wf, nil
}

// scanWorkflowFromRows сканирует строку из rows в Workflow.
func (r *WorkflowRepo) scanWorkflowFromRows(rows pgx.Rows) (*domain.Workflow, error) {
	var wf domain.Workflow
	var description *string
	var graphJSON []byte

	err := rows.Scan(
		&wf.ID,
		&wf.Name,
		&description,
		&graphJSON,
		&wf.CreatedAt,
		&wf.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan workflow: %w", err)
	}

	if description != nil {
		wf.Description = *description
	}
	if err := json.Unmarshal(graphJSON, &wf.Graph); err != nil {
		return nil, fmt.Errorf("unmarshal graph: %w", err)
	}

	return &wf, nil
}
