// Package handlers provides HTTP request handlers for the Uplink API.
// This file implements the post-scan follow-up actions and the alarm.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/anstrom/uplink/internal/alarm"
	"github.com/anstrom/uplink/internal/followup"
	"github.com/anstrom/uplink/internal/logging"
	"github.com/anstrom/uplink/internal/metrics"
)

// CommandAckAlarm acknowledges the alarm over the event socket.
const CommandAckAlarm = "ack_alarm"

// FollowupHandler queues follow-up actions and acknowledges the alarm.
type FollowupHandler struct {
	BaseHandler
	service *followup.Service
	alarm   *alarm.Alarm
	hub     *Hub
}

// NewFollowupHandler creates a new follow-up handler. alarm and hub may be nil.
func NewFollowupHandler(
	service *followup.Service,
	a *alarm.Alarm,
	hub *Hub,
	logger *logging.Logger,
	registry metrics.MetricsRegistry,
) *FollowupHandler {
	base := NewBaseHandler(logger, registry)
	base.logger = base.logger.WithFields("handler", "followup")
	return &FollowupHandler{BaseHandler: base, service: service, alarm: a, hub: hub}
}

// FollowupRequest names an action and optionally a host. Without a host the
// target of the last scan is used.
type FollowupRequest struct {
	Action string `json:"action" validate:"required"`
	Host   string `json:"host,omitempty" validate:"max=255"`
}

// FollowupResponse identifies a queued follow-up. Its output arrives as
// followup_output events.
type FollowupResponse struct {
	ID     string `json:"id"`
	Action string `json:"action"`
	Host   string `json:"host"`
}

// ActionsResponse lists the available follow-up actions.
type ActionsResponse struct {
	Actions []followup.Action `json:"actions"`
}

// ListActions handles GET /api/v1/followups.
func (h *FollowupHandler) ListActions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, ActionsResponse{Actions: followup.Actions})
}

// RunFollowup handles POST /api/v1/followups.
func (h *FollowupHandler) RunFollowup(w http.ResponseWriter, r *http.Request) {
	var req FollowupRequest
	if err := parseJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	action, err := followup.ParseAction(req.Action)
	if err != nil {
		writeError(w, r, err)
		return
	}

	host, err := h.service.ResolveHost(req.Host)
	if err != nil {
		writeError(w, r, err)
		return
	}

	id, err := h.service.Submit(action, host)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.logger.InfoFollowup("Follow-up queued", string(action), host, "job_id", id,
		"request_id", getRequestIDFromContext(r))
	writeJSON(w, r, http.StatusAccepted, FollowupResponse{ID: id, Action: string(action), Host: host})
}

// GetAlarm handles GET /api/v1/alarm.
func (h *FollowupHandler) GetAlarm(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, AlarmEvent{Active: h.alarm != nil && h.alarm.Active()})
}

// AcknowledgeAlarm handles POST /api/v1/alarm/ack.
func (h *FollowupHandler) AcknowledgeAlarm(w http.ResponseWriter, r *http.Request) {
	h.acknowledge()
	writeJSON(w, r, http.StatusOK, AlarmEvent{Active: false})
}

func (h *FollowupHandler) acknowledge() {
	if h.alarm != nil {
		h.alarm.Acknowledge()
	}
	if h.hub != nil {
		h.hub.Publish(EventAlarm, AlarmEvent{Active: false})
	}
}

// RegisterCommands wires alarm acknowledgement to the event socket.
func (h *FollowupHandler) RegisterCommands(hub *Hub) {
	hub.Handle(CommandAckAlarm, func(context.Context, json.RawMessage) (interface{}, error) {
		h.acknowledge()
		return nil, nil
	})
}
