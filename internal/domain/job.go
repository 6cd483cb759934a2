package domain

import (
	"time"

	"github.com/google/uuid"
)

// Job — единица асинхронной работы для вычислительного узла.
//
// Job создаётся клиентом джоб (движком) при выполнении вычислительного
// узла и выполняется Worker'ом. Движок опрашивает запись до терминального
// статуса либо до истечения таймаута, после чего уходит в fallback.
type Job struct {
	// ID — уникальный идентификатор джобы.
	ID uuid.UUID `json:"id"`

	// RunID — ссылка на run, в рамках которого создана джоба.
	RunID uuid.UUID `json:"run_id"`

	// NodeID — ID узла, ради которого выполняется работа.
	NodeID string `json:"node_id"`

	// Kind — тип вычисления: llm, crop, frames.
	Kind NodeKind `json:"kind"`

	// Payload — входные данные для вычисления
	// (inputs узла, слитые с defaults из data).
	Payload map[string]any `json:"payload,omitempty"`

	// Status — текущий статус джобы.
	Status JobStatus `json:"status"`

	// Output — результат вычисления. Форма зависит от Kind.
	Output map[string]any `json:"output,omitempty"`

	// Error — текст ошибки при неудаче.
	Error string `json:"error,omitempty"`

	// Attempt — номер попытки (начиная с 1), растёт при retry воркером.
	Attempt int `json:"attempt"`

	// StartedAt — время начала выполнения.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt — время завершения.
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// CreatedAt — время создания джобы.
	CreatedAt time.Time `json:"created_at"`
}

// NewJob создаёт джобу в статусе QUEUED.
func NewJob(runID uuid.UUID, nodeID string, kind NodeKind, payload map[string]any) *Job {
	return &Job{
		ID:        uuid.New(),
		RunID:     runID,
		NodeID:    nodeID,
		Kind:      kind,
		Payload:   payload,
		Status:    JobStatusQueued,
		CreatedAt: time.Now(),
	}
}

// Duration возвращает продолжительность выполнения.
func (j *Job) Duration() time.Duration {
	if j.StartedAt == nil || j.FinishedAt == nil {
		return 0
	}
	return j.FinishedAt.Sub(*j.StartedAt)
}

// IsFinished возвращает true, если джоба завершена.
func (j *Job) IsFinished() bool {
	return j.Status.IsTerminal()
}

// MarkRunning переводит джобу в статус RUNNING и увеличивает счётчик попыток.
func (j *Job) MarkRunning() {
	now := time.Now()
	j.Status = JobStatusRunning
	j.StartedAt = &now
	j.Attempt++
}

// MarkCompleted финализирует джобу со статусом COMPLETED и результатом.
func (j *Job) MarkCompleted(output map[string]any) {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.FinishedAt = &now
	j.Output = output
}

// MarkFailed финализирует джобу со статусом FAILED и ошибкой.
func (j *Job) MarkFailed(err string) {
	now := time.Now()
	j.Status = JobStatusFailed
	j.FinishedAt = &now
	j.Error = err
}

// ResetForRetry возвращает джобу в очередь для повторной попытки.
func (j *Job) ResetForRetry() {
	j.Status = JobStatusQueued
	j.StartedAt = nil
	j.FinishedAt = nil
	j.Error = ""
	// Attempt увеличится при следующем MarkRunning()
}

// CanRetry проверяет, можно ли сделать ещё одну попытку.
func (j *Job) CanRetry(maxAttempts int) bool {
	return j.Attempt < maxAttempts
}
