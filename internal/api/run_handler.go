package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Easel/internal/domain"
	"github.com/shaiso/Easel/internal/repo"
)

// defaultListLimit — размер страницы по умолчанию для списков.
const defaultListLimit = 50

// CreateRun создаёт run для workflow и уведомляет движок.
//
// Заголовок Idempotency-Key защищает от дабл-кликов: повторный запрос
// с тем же ключом возвращает уже созданный run со статусом 200 вместо 201.
func (h *Handler) CreateRun(w http.ResponseWriter, r *http.Request) {
	workflowID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid workflow id")
		return
	}

	var req CreateRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	scope := domain.RunScope(req.Scope)
	if scope == "" {
		scope = domain.ScopeFull
	}
	if !scope.Valid() {
		BadRequest(w, fmt.Sprintf("unknown scope %q", req.Scope))
		return
	}
	if scope != domain.ScopeFull && len(req.NodeIDs) == 0 {
		BadRequest(w, "nodeIds are required for SINGLE and PARTIAL scope")
		return
	}

	workflow, err := h.workflows.GetByID(r.Context(), workflowID)
	if HandleRepoError(w, h.logger, err, "workflow not found") {
		return
	}

	// Названные узлы должны существовать в текущем графе.
	for _, nodeID := range req.NodeIDs {
		if _, ok := workflow.Graph.NodeByID(nodeID); !ok {
			BadRequest(w, fmt.Sprintf("unknown node %q", nodeID))
			return
		}
	}

	idempotencyKey := r.Header.Get("Idempotency-Key")
	if idempotencyKey != "" {
		existing, err := h.runs.GetByIdempotencyKey(r.Context(), workflowID, idempotencyKey)
		if err != nil && !errors.Is(err, repo.ErrNotFound) {
			InternalError(w, h.logger, err)
			return
		}
		if existing != nil {
			Success(w, RunFromDomain(*existing))
			return
		}
	}

	run := &domain.Run{
		ID:             uuid.New(),
		WorkflowID:     workflowID,
		Scope:          scope,
		NodeIDs:        req.NodeIDs,
		Status:         domain.RunStatusPending,
		IdempotencyKey: idempotencyKey,
		CreatedAt:      time.Now(),
	}

	if err := h.runs.Create(r.Context(), run); err != nil {
		// Гонка двух запросов с одним ключом: отдаём победителя.
		if errors.Is(err, repo.ErrAlreadyExists) && idempotencyKey != "" {
			existing, lookupErr := h.runs.GetByIdempotencyKey(r.Context(), workflowID, idempotencyKey)
			if lookupErr == nil {
				Success(w, RunFromDomain(*existing))
				return
			}
			Conflict(w, "run with this idempotency key already exists")
			return
		}
		InternalError(w, h.logger, err)
		return
	}

	if h.publisher != nil {
		if err := h.publisher.PublishRunRequested(r.Context(), run.ID); err != nil {
			h.logger.Warn("failed to publish run.requested, engine will pick up by polling",
				"run_id", run.ID, "error", err)
		}
	}

	h.logger.Info("run created",
		"run_id", run.ID,
		"workflow_id", workflowID,
		"scope", run.Scope,
	)
	Created(w, RunFromDomain(*run))
}

// GetRun возвращает run вместе с результатами всех его узлов.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid run id")
		return
	}

	run, err := h.runs.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "run not found") {
		return
	}

	results, err := h.results.ListByRunID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	Success(w, RunDetailFromDomain(*run, results))
}

// ListWorkflowRuns возвращает историю запусков workflow, свежие — первыми.
func (h *Handler) ListWorkflowRuns(w http.ResponseWriter, r *http.Request) {
	workflowID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid workflow id")
		return
	}

	limit := parseIntParam(r, "limit", defaultListLimit)

	runs, err := h.runs.ListByWorkflow(r.Context(), workflowID, limit)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]RunResponse, len(runs))
	for i, run := range runs {
		result[i] = RunFromDomain(run)
	}

	List(w, result, len(result))
}

// ListRuns возвращает runs со всех workflows с фильтрацией
// по workflow_id и status.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	filter := repo.RunFilter{
		Limit:  parseIntParam(r, "limit", defaultListLimit),
		Offset: parseIntParam(r, "offset", 0),
	}

	if raw := r.URL.Query().Get("workflow_id"); raw != "" {
		workflowID, err := uuid.Parse(raw)
		if err != nil {
			BadRequest(w, "invalid workflow_id")
			return
		}
		filter.WorkflowID = &workflowID
	}

	if raw := r.URL.Query().Get("status"); raw != "" {
		status := domain.RunStatus(raw)
		if !status.Valid() {
			BadRequest(w, fmt.Sprintf("unknown status %q", raw))
			return
		}
		filter.Status = status
	}

	runs, err := h.runs.List(r.Context(), filter)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]RunResponse, len(runs))
	for i, run := range runs {
		result[i] = RunFromDomain(run)
	}

	List(w, result, len(result))
}

// parseIntParam читает целочисленный query-параметр с дефолтом.
func parseIntParam(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}
