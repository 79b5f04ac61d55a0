// Package handlers provides HTTP request handlers for the Uplink API.
// This file implements the scan form endpoints: the option catalog, command
// preview, scan start and stop, and the post-scan summary and report.
package handlers

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	"github.com/anstrom/uplink/internal/errors"
	"github.com/anstrom/uplink/internal/logging"
	"github.com/anstrom/uplink/internal/metrics"
	"github.com/anstrom/uplink/internal/nmapxml"
	"github.com/anstrom/uplink/internal/options"
	"github.com/anstrom/uplink/internal/report"
	"github.com/anstrom/uplink/internal/scanning"
)

// ScanHandler handles scan-related API endpoints.
type ScanHandler struct {
	BaseHandler
	session   *scanning.Session
	catalog   *options.Catalog
	reportDir string
	now       func() time.Time
}

// NewScanHandler creates a new scan handler.
func NewScanHandler(
	session *scanning.Session,
	catalog *options.Catalog,
	reportDir string,
	logger *logging.Logger,
	registry metrics.MetricsRegistry,
) *ScanHandler {
	base := NewBaseHandler(logger, registry)
	base.logger = base.logger.WithFields("handler", "scan")
	return &ScanHandler{
		BaseHandler: base,
		session:     session,
		catalog:     catalog,
		reportDir:   reportDir,
		now:         time.Now,
	}
}

// ScanRequest is the scan form.
type ScanRequest struct {
	Target     string   `json:"target" validate:"max=255"`
	Options    []string `json:"options,omitempty"`
	Scripts    []string `json:"scripts,omitempty"`
	CustomArgs string   `json:"custom_args,omitempty" validate:"max=1024"`
	Alarm      bool     `json:"alarm"`
}

func (req *ScanRequest) form() options.Form {
	return options.Form{
		Target:     req.Target,
		Options:    req.Options,
		Scripts:    req.Scripts,
		CustomArgs: req.CustomArgs,
		Alarm:      req.Alarm,
	}
}

// CommandResponse is the command a form would run.
type CommandResponse struct {
	Command []string `json:"command"`
	Line    string   `json:"line"`
	Warning string   `json:"warning,omitempty"`
}

// StopResponse reports whether a scan was stopped.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// SummaryResponse carries the post-scan summary text.
type SummaryResponse struct {
	ScanID  string `json:"scan_id"`
	Status  string `json:"status"`
	Summary string `json:"summary"`
}

// DescribeResponse is the tooltip for an option or script.
type DescribeResponse struct {
	Key         string `json:"key"`
	Description string `json:"description"`
}

// ReportResponse describes a saved report.
type ReportResponse struct {
	report.Saved
	Message string `json:"message"`
}

// GetOptions handles GET /api/v1/options - the option and script catalog.
func (h *ScanHandler) GetOptions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, h.catalog)
}

// DescribeOption handles GET /api/v1/options/describe?key= - tooltip text.
func (h *ScanHandler) DescribeOption(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	description := h.catalog.Describe(key)
	if description == "" {
		writeError(w, r, errors.New(errors.CodeNotFound, fmt.Sprintf("Unknown option or script: %s", key)))
		return
	}
	writeJSON(w, r, http.StatusOK, DescribeResponse{Key: key, Description: description})
}

// PreviewCommand handles POST /api/v1/command - the argv a form would run.
func (h *ScanHandler) PreviewCommand(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if err := parseJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	form := req.form()
	argv, warning, err := h.session.Prepare(&form)
	if err != nil {
		writeError(w, r, err)
		return
	}

	info := scanning.ScanInfo{Command: argv}
	writeJSON(w, r, http.StatusOK, CommandResponse{Command: argv, Line: info.CommandLine(), Warning: warning})
}

// StartScan handles POST /api/v1/scan - start a scan from the form.
func (h *ScanHandler) StartScan(w http.ResponseWriter, r *http.Request) {
	requestID := getRequestIDFromContext(r)

	var req ScanRequest
	if err := parseJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	info, err := h.session.Start(r.Context(), req.form())
	if err != nil {
		h.logger.Debug("Scan rejected", "request_id", requestID, "error", err)
		writeError(w, r, err)
		return
	}

	h.logger.Info("Scan started", "request_id", requestID, "scan_id", info.ID, "target", info.Target)
	writeJSON(w, r, http.StatusAccepted, info)

	h.count("api_scans_started_total", nil)
}

// StopScan handles POST /api/v1/scan/stop - terminate the running scan.
func (h *ScanHandler) StopScan(w http.ResponseWriter, r *http.Request) {
	stopped := h.session.Stop()
	writeJSON(w, r, http.StatusOK, StopResponse{Stopped: stopped})

	if stopped {
		h.count("api_scans_stopped_total", nil)
	}
}

// GetStatus handles GET /api/v1/scan - running flag, current and last scan.
func (h *ScanHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, h.session.Status())
}

// GetSummary handles GET /api/v1/scan/summary - the post-scan summary.
func (h *ScanHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	if h.session.Running() {
		writeError(w, r, errors.ErrScanInProgress(h.session.Target()))
		return
	}
	last, ok := h.session.Last()
	if !ok {
		writeError(w, r, errors.ErrNoResults())
		return
	}
	writeJSON(w, r, http.StatusOK, SummaryResponse{
		ScanID:  last.ID.String(),
		Status:  last.Status,
		Summary: last.Summary,
	})
}

// GetXML handles GET /api/v1/scan/xml - the raw XML of the last scan.
func (h *ScanHandler) GetXML(w http.ResponseWriter, r *http.Request) {
	data, err := h.session.Results()
	if err != nil {
		writeError(w, r, err)
		return
	}
	if nmapxml.IsBlank(data) {
		writeError(w, r, errors.ErrNoScanData())
		return
	}

	w.Header().Set("Content-Type", "application/xml")
	w.Header().Set("Content-Disposition", `attachment; filename="nmap_scan.xml"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// DownloadReport handles GET /api/v1/scan/report - the markdown report.
func (h *ScanHandler) DownloadReport(w http.ResponseWriter, r *http.Request) {
	data, err := h.session.Results()
	if err != nil {
		writeError(w, r, err)
		return
	}
	if nmapxml.IsBlank(data) {
		writeError(w, r, errors.ErrNoScanData())
		return
	}

	result, err := nmapxml.Parse(data)
	if err != nil {
		writeError(w, r, errors.Wrap(errors.CodeParseFailed,
			fmt.Sprintf("Failed to parse Nmap's XML output: %v. Cannot generate report.", stderrors.Unwrap(err)), err))
		return
	}

	now := h.now()
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, report.FileName(now)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(report.Markdown(result, now)))
}

// SaveReport handles POST /api/v1/scan/report - write the report to the report directory.
func (h *ScanHandler) SaveReport(w http.ResponseWriter, r *http.Request) {
	data, err := h.session.Results()
	if err != nil {
		writeError(w, r, err)
		return
	}

	saved, err := report.Save(h.reportDir, data, h.now())
	if err != nil {
		h.logger.Warn("Report not saved", "error", err)
		writeError(w, r, err)
		return
	}

	h.logger.Info("Report saved", "path", saved.MarkdownPath)
	writeJSON(w, r, http.StatusCreated, ReportResponse{Saved: *saved, Message: saved.Message()})

	h.count("api_reports_saved_total", nil)
}
