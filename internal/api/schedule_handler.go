package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Easel/internal/domain"
	"github.com/shaiso/Easel/internal/repo"
	"github.com/shaiso/Easel/internal/scheduler"
)

// ListSchedules возвращает список schedules с фильтрацией
// по workflow_id и enabled.
func (h *Handler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	filter := repo.ScheduleFilter{
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

	if raw := r.URL.Query().Get("enabled"); raw != "" {
		enabled := raw == "true"
		filter.Enabled = &enabled
	}

	schedules, err := h.schedules.List(r.Context(), filter)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]ScheduleResponse, len(schedules))
	for i := range schedules {
		result[i] = ScheduleFromDomain(&schedules[i])
	}

	List(w, result, len(result))
}

// CreateSchedule создаёт schedule для workflow.
// Первое время запуска вычисляется сразу, от текущего момента.
func (h *Handler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req CreateScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if req.WorkflowID == uuid.Nil {
		BadRequest(w, "workflowId is required")
		return
	}

	scope := domain.RunScope(req.Scope)
	if scope == "" {
		scope = domain.ScopeFull
	}
	timezone := req.Timezone
	if timezone == "" {
		timezone = "UTC"
	}

	now := time.Now()
	schedule := &domain.Schedule{
		ID:          uuid.New(),
		WorkflowID:  req.WorkflowID,
		Name:        req.Name,
		CronExpr:    req.CronExpr,
		IntervalSec: req.IntervalSec,
		Timezone:    timezone,
		Scope:       scope,
		NodeIDs:     req.NodeIDs,
		Enabled:     req.Enabled,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := checkScheduleSpec(schedule); err != nil {
		BadRequest(w, err.Error())
		return
	}

	workflow, err := h.workflows.GetByID(r.Context(), req.WorkflowID)
	if HandleRepoError(w, h.logger, err, "workflow not found") {
		return
	}
	for _, nodeID := range schedule.NodeIDs {
		if _, ok := workflow.Graph.NodeByID(nodeID); !ok {
			BadRequest(w, fmt.Sprintf("unknown node %q", nodeID))
			return
		}
	}

	nextDue, err := scheduler.CalculateInitialNextDue(schedule)
	if err != nil {
		BadRequest(w, err.Error())
		return
	}
	schedule.NextDueAt = &nextDue

	if err := h.schedules.Create(r.Context(), schedule); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	h.logger.Info("schedule created",
		"schedule_id", schedule.ID,
		"workflow_id", schedule.WorkflowID,
		"next_due_at", nextDue,
	)
	Created(w, ScheduleFromDomain(schedule))
}

// GetSchedule возвращает schedule по ID.
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid schedule id")
		return
	}

	schedule, err := h.schedules.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "schedule not found") {
		return
	}

	Success(w, ScheduleFromDomain(schedule))
}

// UpdateSchedule обновляет schedule. Изменение cron-выражения,
// интервала или часового пояса перезапускает отсчёт следующего
// запуска от текущего момента.
func (h *Handler) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid schedule id")
		return
	}

	var req UpdateScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	schedule, err := h.schedules.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "schedule not found") {
		return
	}

	if req.Name != nil {
		schedule.Name = *req.Name
	}
	if req.CronExpr != nil {
		schedule.CronExpr = *req.CronExpr
	}
	if req.IntervalSec != nil {
		schedule.IntervalSec = *req.IntervalSec
	}
	if req.Timezone != nil {
		schedule.Timezone = *req.Timezone
	}
	if req.Scope != nil {
		schedule.Scope = domain.RunScope(*req.Scope)
	}
	if req.NodeIDs != nil {
		schedule.NodeIDs = *req.NodeIDs
	}

	if err := checkScheduleSpec(schedule); err != nil {
		BadRequest(w, err.Error())
		return
	}

	if req.CronExpr != nil || req.IntervalSec != nil || req.Timezone != nil {
		nextDue, err := scheduler.CalculateInitialNextDue(schedule)
		if err != nil {
			BadRequest(w, err.Error())
			return
		}
		schedule.NextDueAt = &nextDue
	}
	schedule.UpdatedAt = time.Now()

	if err := h.schedules.Update(r.Context(), schedule); HandleRepoError(w, h.logger, err, "schedule not found") {
		return
	}

	Success(w, ScheduleFromDomain(schedule))
}

// DeleteSchedule удаляет schedule.
func (h *Handler) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid schedule id")
		return
	}

	if err := h.schedules.Delete(r.Context(), id); HandleRepoError(w, h.logger, err, "schedule not found") {
		return
	}

	h.logger.Info("schedule deleted", "schedule_id", id)
	NoContent(w)
}

// EnableSchedule включает schedule.
func (h *Handler) EnableSchedule(w http.ResponseWriter, r *http.Request) {
	h.setScheduleEnabled(w, r, true)
}

// DisableSchedule выключает schedule.
func (h *Handler) DisableSchedule(w http.ResponseWriter, r *http.Request) {
	h.setScheduleEnabled(w, r, false)
}

// setScheduleEnabled переключает флаг активности и возвращает
// обновлённый schedule. Если next_due_at успел уйти в прошлое за
// время паузы, scheduler создаст ровно один run и пойдёт дальше.
func (h *Handler) setScheduleEnabled(w http.ResponseWriter, r *http.Request, enabled bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid schedule id")
		return
	}

	if err := h.schedules.SetEnabled(r.Context(), id, enabled); HandleRepoError(w, h.logger, err, "schedule not found") {
		return
	}

	schedule, err := h.schedules.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "schedule not found") {
		return
	}

	Success(w, ScheduleFromDomain(schedule))
}

// checkScheduleSpec валидирует тайминги и scope расписания.
func checkScheduleSpec(schedule *domain.Schedule) error {
	if schedule.CronExpr == "" && schedule.IntervalSec <= 0 {
		return errors.New("either cronExpr or intervalSec is required")
	}
	if schedule.CronExpr != "" {
		if err := scheduler.ValidateCronExpr(schedule.CronExpr); err != nil {
			return err
		}
	}
	if _, err := time.LoadLocation(schedule.Timezone); err != nil {
		return fmt.Errorf("unknown timezone %q", schedule.Timezone)
	}
	if !schedule.Scope.Valid() {
		return fmt.Errorf("unknown scope %q", schedule.Scope)
	}
	if schedule.Scope != domain.ScopeFull && len(schedule.NodeIDs) == 0 {
		return errors.New("nodeIds are required for SINGLE and PARTIAL scope")
	}
	return nil
}
