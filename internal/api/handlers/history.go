// Package handlers provides HTTP request handlers for the Uplink API.
// This file implements the scan history endpoints.
package handlers

import (
	"fmt"
	"net/http"

	"github.com/anstrom/uplink/internal/errors"
	"github.com/anstrom/uplink/internal/history"
	"github.com/anstrom/uplink/internal/logging"
	"github.com/anstrom/uplink/internal/metrics"
	"github.com/anstrom/uplink/internal/report"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// HistoryHandler serves recorded scans.
type HistoryHandler struct {
	BaseHandler
	store history.Store
}

// NewHistoryHandler creates a history handler. A nil store answers every
// request with 503.
func NewHistoryHandler(store history.Store, logger *logging.Logger, registry metrics.MetricsRegistry) *HistoryHandler {
	base := NewBaseHandler(logger, registry)
	base.logger = base.logger.WithFields("handler", "history")
	return &HistoryHandler{BaseHandler: base, store: store}
}

// HistoryEntry is a recorded scan without its XML.
type HistoryEntry struct {
	*history.ScanRecord
	Error    string `json:"error,omitempty"`
	Duration string `json:"duration"`
}

// HistoryDetail is a recorded scan with its summary.
type HistoryDetail struct {
	HistoryEntry
	Summary string `json:"summary"`
}

func toEntry(rec *history.ScanRecord) HistoryEntry {
	return HistoryEntry{
		ScanRecord: rec,
		Error:      rec.ErrorMessage.String,
		Duration:   rec.Duration().String(),
	}
}

func (h *HistoryHandler) available(w http.ResponseWriter, r *http.Request) bool {
	if h.store == nil {
		writeError(w, r, errors.New(errors.CodeServiceUnavailable, "Scan history is not enabled"))
		return false
	}
	return true
}

// ListHistory handles GET /api/v1/history?limit=.
func (h *HistoryHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	if !h.available(w, r) {
		return
	}

	limit, err := getQueryParamInt(r, "limit", defaultHistoryLimit)
	if err != nil || limit < 1 {
		writeError(w, r, errors.New(errors.CodeValidation, "invalid limit parameter"))
		return
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	records, err := h.store.List(r.Context(), limit)
	if err != nil {
		h.logger.ErrorHistory("Failed to list scans", err, "request_id", getRequestIDFromContext(r))
		writeError(w, r, err)
		return
	}

	entries := make([]HistoryEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, toEntry(rec))
	}
	writeJSON(w, r, http.StatusOK, entries)
}

// GetHistory handles GET /api/v1/history/{id}.
func (h *HistoryHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.get(w, r)
	if !ok {
		return
	}
	writeJSON(w, r, http.StatusOK, HistoryDetail{
		HistoryEntry: toEntry(rec),
		Summary:      report.Summary([]byte(rec.XMLOutput)),
	})
}

// GetHistoryXML handles GET /api/v1/history/{id}/xml.
func (h *HistoryHandler) GetHistoryXML(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.get(w, r)
	if !ok {
		return
	}
	if rec.XMLOutput == "" {
		writeError(w, r, errors.ErrNoScanData())
		return
	}

	w.Header().Set("Content-Type", "application/xml")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="nmap_%s.xml"`, rec.StartedAt.Format("2006-01-02_15-04-05")))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(rec.XMLOutput))
}

func (h *HistoryHandler) get(w http.ResponseWriter, r *http.Request) (*history.ScanRecord, bool) {
	if !h.available(w, r) {
		return nil, false
	}

	id, err := extractUUIDFromPath(r)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}

	rec, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.logger.Debug("History lookup failed", "scan_id", id, "error", err)
		writeError(w, r, err)
		return nil, false
	}
	return rec, true
}
