// Package handlers provides HTTP request handlers for the Uplink API.
// This file implements preset endpoints. A preset fills the scan form for a
// target with a saved set of options and scripts.
package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/anstrom/uplink/internal/logging"
	"github.com/anstrom/uplink/internal/metrics"
	"github.com/anstrom/uplink/internal/profiles"
	"github.com/anstrom/uplink/internal/scanning"
)

// ProfileHandler handles preset API endpoints.
type ProfileHandler struct {
	BaseHandler
	manager *profiles.Manager
	session *scanning.Session
}

// NewProfileHandler creates a new preset handler.
func NewProfileHandler(
	manager *profiles.Manager,
	session *scanning.Session,
	logger *logging.Logger,
	registry metrics.MetricsRegistry,
) *ProfileHandler {
	base := NewBaseHandler(logger, registry)
	base.logger = base.logger.WithFields("handler", "preset")
	return &ProfileHandler{BaseHandler: base, manager: manager, session: session}
}

// PresetRequest creates a custom preset.
type PresetRequest struct {
	Name        string   `json:"name" validate:"required,max=64,excludesall=/ "`
	Description string   `json:"description,omitempty" validate:"max=255"`
	Options     []string `json:"options,omitempty"`
	Scripts     []string `json:"scripts,omitempty"`
	CustomArgs  string   `json:"custom_args,omitempty" validate:"max=1024"`
}

// PresetScanRequest starts a scan from a preset.
type PresetScanRequest struct {
	Target string `json:"target" validate:"max=255"`
	Alarm  bool   `json:"alarm"`
}

// ListPresets handles GET /api/v1/presets.
func (h *ProfileHandler) ListPresets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, h.manager.GetAll())
}

// GetPreset handles GET /api/v1/presets/{name}.
func (h *ProfileHandler) GetPreset(w http.ResponseWriter, r *http.Request) {
	preset, err := h.manager.Get(mux.Vars(r)["name"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, preset)
}

// CreatePreset handles POST /api/v1/presets.
func (h *ProfileHandler) CreatePreset(w http.ResponseWriter, r *http.Request) {
	var req PresetRequest
	if err := parseJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	preset := &profiles.Preset{
		Name:        req.Name,
		Description: req.Description,
		Options:     req.Options,
		Scripts:     req.Scripts,
		CustomArgs:  req.CustomArgs,
	}
	if err := h.manager.Create(preset); err != nil {
		writeError(w, r, err)
		return
	}

	h.logger.Info("Preset created", "name", preset.Name, "request_id", getRequestIDFromContext(r))
	writeJSON(w, r, http.StatusCreated, preset)

	h.count("api_presets_created_total", nil)
}

// DeletePreset handles DELETE /api/v1/presets/{name}.
func (h *ProfileHandler) DeletePreset(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if err := h.manager.Delete(name); err != nil {
		writeError(w, r, err)
		return
	}

	h.logger.Info("Preset deleted", "name", name, "request_id", getRequestIDFromContext(r))
	w.WriteHeader(http.StatusNoContent)
}

// StartPresetScan handles POST /api/v1/presets/{name}/scan.
func (h *ProfileHandler) StartPresetScan(w http.ResponseWriter, r *http.Request) {
	preset, err := h.manager.Get(mux.Vars(r)["name"])
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req PresetScanRequest
	if err := parseJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	info, err := h.session.Start(r.Context(), preset.Form(req.Target, req.Alarm))
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.logger.Info("Preset scan started", "preset", preset.Name, "scan_id", info.ID)
	writeJSON(w, r, http.StatusAccepted, info)

	h.count("api_scans_started_total", metrics.Labels{"preset": preset.Name})
}
