package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Easel/internal/domain"
	"github.com/shaiso/Easel/internal/graph"
)

// ListNodeKinds возвращает каталог типов узлов: порты, правила fan-in
// и признак compute. Редактор строит по нему палитру и проверяет связи.
func (h *Handler) ListNodeKinds(w http.ResponseWriter, _ *http.Request) {
	kinds := domain.Kinds()
	List(w, kinds, len(kinds))
}

// CreateWorkflow создаёт workflow. Граф проверяется целиком:
// битые связи и циклы не доходят до базы.
func (h *Handler) CreateWorkflow(w http.ResponseWriter, r *http.Request) {
	var req CreateWorkflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if req.Name == "" {
		BadRequest(w, "name is required")
		return
	}

	if err := graph.ValidateGraph(&req.Graph); err != nil {
		BadRequest(w, err.Error())
		return
	}

	now := time.Now()
	workflow := &domain.Workflow{
		ID:          uuid.New(),
		Name:        req.Name,
		Description: req.Description,
		Graph:       req.Graph,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.workflows.Create(r.Context(), workflow); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	h.logger.Info("workflow created", "workflow_id", workflow.ID, "name", workflow.Name)
	Created(w, WorkflowFromDomain(*workflow))
}

// GetWorkflow возвращает workflow вместе с графом.
func (h *Handler) GetWorkflow(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid workflow id")
		return
	}

	workflow, err := h.workflows.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "workflow not found") {
		return
	}

	Success(w, WorkflowFromDomain(*workflow))
}

// ListWorkflows возвращает список workflows без графов.
func (h *Handler) ListWorkflows(w http.ResponseWriter, r *http.Request) {
	workflows, err := h.workflows.List(r.Context())
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]WorkflowSummary, len(workflows))
	for i, workflow := range workflows {
		result[i] = WorkflowSummaryFromDomain(workflow)
	}

	List(w, result, len(result))
}

// UpdateWorkflow обновляет workflow. Новый граф, как и при создании,
// проходит полную валидацию.
func (h *Handler) UpdateWorkflow(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid workflow id")
		return
	}

	var req UpdateWorkflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	workflow, err := h.workflows.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "workflow not found") {
		return
	}

	if req.Name != nil {
		if *req.Name == "" {
			BadRequest(w, "name cannot be empty")
			return
		}
		workflow.Name = *req.Name
	}
	if req.Description != nil {
		workflow.Description = *req.Description
	}
	if req.Graph != nil {
		if err := graph.ValidateGraph(req.Graph); err != nil {
			BadRequest(w, err.Error())
			return
		}
		workflow.Graph = *req.Graph
	}
	workflow.UpdatedAt = time.Now()

	if err := h.workflows.Update(r.Context(), workflow); HandleRepoError(w, h.logger, err, "workflow not found") {
		return
	}

	Success(w, WorkflowFromDomain(*workflow))
}

// DeleteWorkflow удаляет workflow.
func (h *Handler) DeleteWorkflow(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid workflow id")
		return
	}

	if err := h.workflows.Delete(r.Context(), id); HandleRepoError(w, h.logger, err, "workflow not found") {
		return
	}

	h.logger.Info("workflow deleted", "workflow_id", id)
	NoContent(w)
}

// ValidateConnection проверяет одну связь против сохранённого графа.
// Невалидная связь — это ответ 200 с valid=false, а не ошибка API.
func (h *Handler) ValidateConnection(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid workflow id")
		return
	}

	var req ValidateConnectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if req.Source == "" || req.SourceHandle == "" || req.Target == "" || req.TargetHandle == "" {
		BadRequest(w, "source, sourceHandle, target and targetHandle are required")
		return
	}

	workflow, err := h.workflows.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "workflow not found") {
		return
	}

	if err := graph.ValidateConnection(&workflow.Graph, req.Source, req.SourceHandle, req.Target, req.TargetHandle); err != nil {
		Success(w, ValidateConnectionResponse{Valid: false, Reason: err.Error()})
		return
	}

	Success(w, ValidateConnectionResponse{Valid: true})
}
