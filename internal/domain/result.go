package domain

import (
	"time"

	"github.com/google/uuid"
)

// NodeResult — запись о выполнении одного узла в рамках run.
//
// Создаётся в момент старта узла (статус RUNNING) и финализируется
// ровно один раз: SUCCESS с output либо FAILED с ошибкой. После
// финализации запись неизменяема. На каждую пару (run, узел) —
// ровно одна запись.
type NodeResult struct {
	// ID — уникальный идентификатор записи.
	ID uuid.UUID `json:"id"`

	// RunID — ссылка на родительский run.
	RunID uuid.UUID `json:"run_id"`

	// NodeID — ID узла из графа.
	NodeID string `json:"node_id"`

	// NodeKind — тип узла на момент выполнения.
	NodeKind NodeKind `json:"node_kind"`

	// Status — текущий статус выполнения узла.
	Status ResultStatus `json:"status"`

	// Input — снимок входов узла, собранных резолвером на момент старта.
	Input map[string]any `json:"input,omitempty"`

	// Output — результат узла. Форма зависит от типа узла.
	Output any `json:"output,omitempty"`

	// Error — текст ошибки при неудаче.
	Error string `json:"error,omitempty"`

	// StartedAt — время начала выполнения.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt — время завершения.
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// CreatedAt — время создания записи.
	CreatedAt time.Time `json:"created_at"`
}

// NewNodeResult создаёт запись для стартующего узла в статусе RUNNING.
func NewNodeResult(runID uuid.UUID, nodeID string, kind NodeKind, input map[string]any) *NodeResult {
	now := time.Now()
	return &NodeResult{
		ID:        uuid.New(),
		RunID:     runID,
		NodeID:    nodeID,
		NodeKind:  kind,
		Status:    ResultStatusRunning,
		Input:     input,
		StartedAt: &now,
		CreatedAt: now,
	}
}

// Duration возвращает продолжительность выполнения узла.
func (r *NodeResult) Duration() time.Duration {
	if r.StartedAt == nil || r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(*r.StartedAt)
}

// IsFinished возвращает true, если выполнение узла завершено.
func (r *NodeResult) IsFinished() bool {
	return r.Status.IsTerminal()
}

// MarkSucceeded финализирует запись со статусом SUCCESS и результатом.
func (r *NodeResult) MarkSucceeded(output any) {
	now := time.Now()
	r.Status = ResultStatusSuccess
	r.FinishedAt = &now
	r.Output = output
}

// MarkFailed финализирует запись со статусом FAILED и ошибкой.
func (r *NodeResult) MarkFailed(err string) {
	now := time.Now()
	r.Status = ResultStatusFailed
	r.FinishedAt = &now
	r.Error = err
}
