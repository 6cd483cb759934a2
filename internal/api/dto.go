package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Easel/internal/domain"
)

// Внешние DTO используют camelCase — формат, в котором редактор
// сериализует графы (sourceHandle, nodeIds и т.д.).

// Workflow DTOs

// CreateWorkflowRequest — запрос на создание workflow.
type CreateWorkflowRequest struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Graph       domain.GraphSpec `json:"graph"`
}

// UpdateWorkflowRequest — запрос на обновление workflow.
// Nil-поля не трогаются; graph заменяется целиком.
type UpdateWorkflowRequest struct {
	Name        *string           `json:"name,omitempty"`
	Description *string           `json:"description,omitempty"`
	Graph       *domain.GraphSpec `json:"graph,omitempty"`
}

// WorkflowResponse — ответ с workflow, включая граф.
type WorkflowResponse struct {
	ID          uuid.UUID        `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Graph       domain.GraphSpec `json:"graph"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// WorkflowSummary — элемент списка workflows, без графа.
type WorkflowSummary struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	NodeCount   int       `json:"nodeCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// WorkflowFromDomain конвертирует domain.Workflow в WorkflowResponse.
func WorkflowFromDomain(w domain.Workflow) WorkflowResponse {
	return WorkflowResponse{
		ID:          w.ID,
		Name:        w.Name,
		Description: w.Description,
		Graph:       w.Graph,
		CreatedAt:   w.CreatedAt,
		UpdatedAt:   w.UpdatedAt,
	}
}

// WorkflowSummaryFromDomain конвертирует domain.Workflow в WorkflowSummary.
func WorkflowSummaryFromDomain(w domain.Workflow) WorkflowSummary {
	return WorkflowSummary{
		ID:          w.ID,
		Name:        w.Name,
		Description: w.Description,
		NodeCount:   len(w.Graph.Nodes),
		CreatedAt:   w.CreatedAt,
		UpdatedAt:   w.UpdatedAt,
	}
}

// Connection DTOs

// ValidateConnectionRequest — запрос на проверку связи перед её
// созданием на холсте.
type ValidateConnectionRequest struct {
	Source       string `json:"source"`
	SourceHandle string `json:"sourceHandle"`
	Target       string `json:"target"`
	TargetHandle string `json:"targetHandle"`
}

// ValidateConnectionResponse — вердикт проверки связи.
type ValidateConnectionResponse struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// Run DTOs

// CreateRunRequest — запрос на запуск workflow.
type CreateRunRequest struct {
	Scope   string   `json:"scope,omitempty"`
	NodeIDs []string `json:"nodeIds,omitempty"`
}

// RunResponse — ответ с run. Duration — в миллисекундах,
// 0 пока run не завершён.
type RunResponse struct {
	RunID       uuid.UUID  `json:"runId"`
	WorkflowID  uuid.UUID  `json:"workflowId"`
	Scope       string     `json:"scope"`
	NodeIDs     []string   `json:"nodeIds,omitempty"`
	Status      string     `json:"status"`
	Error       string     `json:"error,omitempty"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Duration    int64      `json:"duration"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// RunDetailResponse — run вместе с результатами узлов.
type RunDetailResponse struct {
	RunResponse
	Results []NodeResultResponse `json:"results"`
}

// NodeResultResponse — результат одного узла в рамках run.
type NodeResultResponse struct {
	NodeID      string     `json:"nodeId"`
	NodeKind    string     `json:"nodeKind"`
	Status      string     `json:"status"`
	Output      any        `json:"output,omitempty"`
	Error       string     `json:"error,omitempty"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Duration    int64      `json:"duration"`
}

// RunFromDomain конвертирует domain.Run в RunResponse.
func RunFromDomain(r domain.Run) RunResponse {
	return RunResponse{
		RunID:       r.ID,
		WorkflowID:  r.WorkflowID,
		Scope:       string(r.Scope),
		NodeIDs:     r.NodeIDs,
		Status:      string(r.Status),
		Error:       r.Error,
		StartedAt:   r.StartedAt,
		CompletedAt: r.FinishedAt,
		Duration:    r.Duration().Milliseconds(),
		CreatedAt:   r.CreatedAt,
	}
}

// RunDetailFromDomain собирает RunDetailResponse из run и результатов узлов.
func RunDetailFromDomain(r domain.Run, results []domain.NodeResult) RunDetailResponse {
	detail := RunDetailResponse{
		RunResponse: RunFromDomain(r),
		Results:     make([]NodeResultResponse, len(results)),
	}
	for i, res := range results {
		detail.Results[i] = NodeResultFromDomain(res)
	}
	return detail
}

// NodeResultFromDomain конвертирует domain.NodeResult в NodeResultResponse.
func NodeResultFromDomain(r domain.NodeResult) NodeResultResponse {
	return NodeResultResponse{
		NodeID:      r.NodeID,
		NodeKind:    string(r.NodeKind),
		Status:      string(r.Status),
		Output:      r.Output,
		Error:       r.Error,
		StartedAt:   r.StartedAt,
		CompletedAt: r.FinishedAt,
		Duration:    r.Duration().Milliseconds(),
	}
}

// Schedule DTOs

// CreateScheduleRequest — запрос на создание schedule.
// Задаётся либо cronExpr, либо intervalSec.
type CreateScheduleRequest struct {
	WorkflowID  uuid.UUID `json:"workflowId"`
	Name        string    `json:"name,omitempty"`
	CronExpr    string    `json:"cronExpr,omitempty"`
	IntervalSec int       `json:"intervalSec,omitempty"`
	Timezone    string    `json:"timezone,omitempty"`
	Scope       string    `json:"scope,omitempty"`
	NodeIDs     []string  `json:"nodeIds,omitempty"`
	Enabled     bool      `json:"enabled"`
}

// UpdateScheduleRequest — запрос на обновление schedule.
// Nil-поля не трогаются.
type UpdateScheduleRequest struct {
	Name        *string   `json:"name,omitempty"`
	CronExpr    *string   `json:"cronExpr,omitempty"`
	IntervalSec *int      `json:"intervalSec,omitempty"`
	Timezone    *string   `json:"timezone,omitempty"`
	Scope       *string   `json:"scope,omitempty"`
	NodeIDs     *[]string `json:"nodeIds,omitempty"`
}

// ScheduleResponse — ответ со schedule.
type ScheduleResponse struct {
	ID          uuid.UUID  `json:"id"`
	WorkflowID  uuid.UUID  `json:"workflowId"`
	Name        string     `json:"name,omitempty"`
	CronExpr    string     `json:"cronExpr,omitempty"`
	IntervalSec int        `json:"intervalSec,omitempty"`
	Timezone    string     `json:"timezone"`
	Scope       string     `json:"scope"`
	NodeIDs     []string   `json:"nodeIds,omitempty"`
	Enabled     bool       `json:"enabled"`
	NextDueAt   *time.Time `json:"nextDueAt,omitempty"`
	LastRunAt   *time.Time `json:"lastRunAt,omitempty"`
	LastRunID   *uuid.UUID `json:"lastRunId,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// ScheduleFromDomain конвертирует domain.Schedule в ScheduleResponse.
func ScheduleFromDomain(s *domain.Schedule) ScheduleResponse {
	if s == nil {
		return ScheduleResponse{}
	}
	return ScheduleResponse{
		ID:          s.ID,
		WorkflowID:  s.WorkflowID,
		Name:        s.Name,
		CronExpr:    s.CronExpr,
		IntervalSec: s.IntervalSec,
		Timezone:    s.Timezone,
		Scope:       string(s.Scope),
		NodeIDs:     s.NodeIDs,
		Enabled:     s.Enabled,
		NextDueAt:   s.NextDueAt,
		LastRunAt:   s.LastRunAt,
		LastRunID:   s.LastRunID,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}
