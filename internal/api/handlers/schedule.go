// Package handlers provides HTTP request handlers for the Uplink API.
// This file implements schedule management endpoints: repeat scans of a
// preset against a target on a cron expression.
package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/anstrom/uplink/internal/logging"
	"github.com/anstrom/uplink/internal/metrics"
	"github.com/anstrom/uplink/internal/scheduler"
)

// ScheduleHandler handles schedule-related API endpoints.
type ScheduleHandler struct {
	BaseHandler
	scheduler *scheduler.Scheduler
}

// NewScheduleHandler creates a new schedule handler.
func NewScheduleHandler(s *scheduler.Scheduler, logger *logging.Logger, registry metrics.MetricsRegistry) *ScheduleHandler {
	base := NewBaseHandler(logger, registry)
	base.logger = base.logger.WithFields("handler", "schedule")
	return &ScheduleHandler{BaseHandler: base, scheduler: s}
}

// ScheduleRequest represents a schedule creation request.
type ScheduleRequest struct {
	Name     string `json:"name,omitempty" validate:"max=255"`
	CronExpr string `json:"cron_expr" validate:"required"`
	Target   string `json:"target" validate:"required,max=255"`
	Preset   string `json:"preset,omitempty"`
	Alarm    bool   `json:"alarm"`
	Enabled  *bool  `json:"enabled,omitempty"`
}

// ListSchedules handles GET /api/v1/schedules.
func (h *ScheduleHandler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, h.scheduler.GetJobs())
}

// CreateSchedule handles POST /api/v1/schedules.
func (h *ScheduleHandler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req ScheduleRequest
	if err := parseJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	job, err := h.scheduler.AddScanJob(req.Name, req.CronExpr, scheduler.ScanJobConfig{
		Target: req.Target,
		Preset: req.Preset,
		Alarm:  req.Alarm,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	if req.Enabled != nil && !*req.Enabled {
		if err := h.scheduler.DisableJob(job.ID); err != nil {
			writeError(w, r, err)
			return
		}
		job.Enabled = false
	}

	h.logger.Info("Schedule created", "job_id", job.ID, "name", job.Name,
		"request_id", getRequestIDFromContext(r))
	writeJSON(w, r, http.StatusCreated, job)

	h.count("api_schedules_created_total", nil)
}

// GetSchedule handles GET /api/v1/schedules/{id}.
func (h *ScheduleHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := extractUUIDFromPath(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	job, err := h.scheduler.GetJob(id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, job)
}

// DeleteSchedule handles DELETE /api/v1/schedules/{id}.
func (h *ScheduleHandler) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := extractUUIDFromPath(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.scheduler.RemoveJob(id); err != nil {
		writeError(w, r, err)
		return
	}

	h.logger.Info("Schedule deleted", "job_id", id, "request_id", getRequestIDFromContext(r))
	w.WriteHeader(http.StatusNoContent)
}

// EnableSchedule handles POST /api/v1/schedules/{id}/enable.
func (h *ScheduleHandler) EnableSchedule(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.scheduler.EnableJob)
}

// DisableSchedule handles POST /api/v1/schedules/{id}/disable.
func (h *ScheduleHandler) DisableSchedule(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.scheduler.DisableJob)
}

func (h *ScheduleHandler) toggle(w http.ResponseWriter, r *http.Request, fn func(uuid.UUID) error) {
	id, err := extractUUIDFromPath(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := fn(id); err != nil {
		writeError(w, r, err)
		return
	}

	job, err := h.scheduler.GetJob(id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, job)
}

// RunSchedule handles POST /api/v1/schedules/{id}/run - run the job now.
func (h *ScheduleHandler) RunSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := extractUUIDFromPath(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.scheduler.RunNow(id); err != nil {
		writeError(w, r, err)
		return
	}

	job, err := h.scheduler.GetJob(id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusAccepted, job)
}
