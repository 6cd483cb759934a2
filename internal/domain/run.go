package domain

import (
	"time"

	"github.com/google/uuid"
)

// RunScope — политика выбора узлов для запуска.
type RunScope string

const (
	// ScopeFull — выполняются все узлы графа.
	ScopeFull RunScope = "FULL"

	// ScopeSingle — выполняются названные узлы плюс все их
	// транзитивные зависимости вверх по графу.
	ScopeSingle RunScope = "SINGLE"

	// ScopePartial — выполняются строго названные узлы,
	// зависимости не добавляются автоматически.
	ScopePartial RunScope = "PARTIAL"
)

// Valid возвращает true для известного значения scope.
func (s RunScope) Valid() bool {
	switch s {
	case ScopeFull, ScopeSingle, ScopePartial:
		return true
	default:
		return false
	}
}

// Run — экземпляр выполнения workflow.
//
// Run создаётся когда:
// - Пользователь запускает workflow из редактора (через API/CLI)
// - Scheduler создаёт run по расписанию
//
// Run фиксирует scope запроса и после завершения запечатывается:
// статус и время больше не меняются.
type Run struct {
	// ID — уникальный идентификатор run.
	ID uuid.UUID `json:"id"`

	// WorkflowID — ссылка на workflow, который выполняется.
	WorkflowID uuid.UUID `json:"workflow_id"`

	// Scope — политика выбора узлов (FULL/SINGLE/PARTIAL).
	Scope RunScope `json:"scope"`

	// NodeIDs — явно названные узлы. Обязательно для SINGLE и PARTIAL,
	// пусто для FULL.
	NodeIDs []string `json:"node_ids,omitempty"`

	// Status — текущий статус выполнения.
	Status RunStatus `json:"status"`

	// Error — текст фатальной ошибки run (не ошибок отдельных узлов).
	Error string `json:"error,omitempty"`

	// IdempotencyKey — ключ идемпотентности для предотвращения дубликатов.
	// Для scheduled runs: "{schedule_id}_{next_due_at}".
	IdempotencyKey string `json:"idempotency_key,omitempty"`

	// StartedAt — время начала выполнения (когда статус стал RUNNING).
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt — время завершения.
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// CreatedAt — время создания run.
	CreatedAt time.Time `json:"created_at"`
}

// Duration возвращает продолжительность выполнения.
// Возвращает 0, если run ещё не завершён.
func (r *Run) Duration() time.Duration {
	if r.StartedAt == nil || r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(*r.StartedAt)
}

// IsFinished возвращает true, если run завершён (в любом статусе).
func (r *Run) IsFinished() bool {
	return r.Status.IsTerminal()
}

// MarkRunning переводит run в статус RUNNING.
func (r *Run) MarkRunning() {
	now := time.Now()
	r.Status = RunStatusRunning
	r.StartedAt = &now
}

// MarkFailed завершает run с фатальной ошибкой.
func (r *Run) MarkFailed(err string) {
	now := time.Now()
	r.Status = RunStatusFailed
	r.FinishedAt = &now
	r.Error = err
}

// Finalize запечатывает run по итогам выполнения узлов.
// SUCCESS — все узлы успешны; PARTIAL — есть и успехи, и ошибки;
// FAILED — ни одного успешного узла. Run, в котором упали все узлы,
// никогда не получает SUCCESS.
func (r *Run) Finalize(succeeded, failed int) {
	now := time.Now()
	r.FinishedAt = &now
	switch {
	case failed == 0:
		r.Status = RunStatusSuccess
	case succeeded > 0:
		r.Status = RunStatusPartial
	default:
		r.Status = RunStatusFailed
	}
}
