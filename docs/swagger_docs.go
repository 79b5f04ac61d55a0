// Package docs provides Swagger documentation for the Nmap Uplink API.
//
// This file contains the API endpoint documentation using swaggo annotations.
// Run `swag init` to regenerate the OpenAPI specification in ./swagger.
//
//go:generate swag init -g swagger_docs.go -o ./swagger --parseDependency --parseInternal
package docs

import (
	"net/http"
	"time"
)

// @title Nmap Uplink API
// @version 1.0.0
// @description Web front-end for nmap: build a command from a catalog of options and NSE scripts,
// @description run one scan at a time with live output, and work with the results.
// @description
// @description ## Features
// @description - **Scan form**: option catalog, command preview and custom arguments
// @description - **Live output**: scan and follow-up output streamed over the `/events` WebSocket
// @description - **Results**: plain-text summary, raw XML and Markdown reports
// @description - **Follow-ups**: ping, traceroute, reverse DNS, SNMP and ping sweep against the scanned host
// @description - **Spider graph**: animated host/port/service view with zoom, pan and node profiles
// @description - **Presets and schedules**: named option sets and cron-driven scans
// @description - **History**: completed scans persisted to PostgreSQL when enabled
// @description
// @description ## Authentication
// @description When an API key is configured every `/api/v1` endpoint requires it in the `X-API-Key` header.
// @description The event socket also accepts it as the `api_key` query parameter.
//
// @security ApiKeyAuth
//
// @contact.name Nmap Uplink
// @contact.url https://github.com/anstrom/uplink
//
// @license.name MIT
// @license.url https://github.com/anstrom/uplink/blob/main/LICENSE
//
// @host localhost:8088
// @BasePath /api/v1
//
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
// @description API key for authentication

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string            `json:"status" example:"healthy"`
	Timestamp time.Time         `json:"timestamp"`
	Uptime    string            `json:"uptime" example:"2h30m45s"`
	Checks    map[string]string `json:"checks"`
}

// VersionResponse represents version information
type VersionResponse struct {
	Version   string    `json:"version" example:"1.0.0"`
	Commit    string    `json:"commit" example:"abc123"`
	BuildTime string    `json:"build_time" example:"2024-03-09T12:00:00Z"`
	GoVersion string    `json:"go_version" example:"go1.26.2"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error     string    `json:"error" example:"Not Found"`
	Code      string    `json:"code,omitempty" example:"NOT_FOUND"`
	Message   string    `json:"message" example:"Preset not found: web"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// MessageResponse carries a single human-readable message
type MessageResponse struct {
	Message string `json:"message" example:"Report saved to reports/scan_results_2024-03-09_14-05-06.md"`
}

// ScanRequest is the scan form
type ScanRequest struct {
	Target     string   `json:"target" example:"scanme.nmap.org"`
	Options    []string `json:"options,omitempty" example:"-sV,-T4"`
	Scripts    []string `json:"scripts,omitempty" example:"http-title"`
	CustomArgs string   `json:"custom_args,omitempty" example:"-p 1-1024"`
	Alarm      bool     `json:"alarm" example:"false"`
}

// CommandResponse is the command preview
type CommandResponse struct {
	Command []string `json:"command"`
	Line    string   `json:"line" example:"nmap scanme.nmap.org -oX - -sV -T4"`
	Warning string   `json:"warning,omitempty"`
}

// ScanInfo describes a started scan
type ScanInfo struct {
	ID        string    `json:"id" example:"123e4567-e89b-12d3-a456-426614174000"`
	Target    string    `json:"target" example:"scanme.nmap.org"`
	Command   []string  `json:"command"`
	Alarm     bool      `json:"alarm"`
	Warning   string    `json:"warning,omitempty"`
	StartedAt time.Time `json:"started_at"`
}

// SummaryResponse carries the summary of the last scan
type SummaryResponse struct {
	ScanID  string `json:"scan_id"`
	Status  string `json:"status" example:"completed"`
	Summary string `json:"summary"`
}

// ScanStatus is the session state
type ScanStatus struct {
	Running bool      `json:"running"`
	Current *ScanInfo `json:"current,omitempty"`
}

// Preset is a named option set
type Preset struct {
	Name        string   `json:"name" example:"quick"`
	Description string   `json:"description" example:"Fast scan of the most common ports"`
	Options     []string `json:"options" example:"-F,-T4"`
	Scripts     []string `json:"scripts,omitempty"`
	CustomArgs  string   `json:"custom_args,omitempty"`
	BuiltIn     bool     `json:"built_in"`
}

// FollowupRequest names a follow-up action
type FollowupRequest struct {
	Action string `json:"action" example:"ping" enums:"ping,traceroute,dns,snmp,sweep"`
	Host   string `json:"host,omitempty" example:"192.168.1.1"`
}

// GraphInput is a pointer event for the spider graph, or the canvas size for configure
type GraphInput struct {
	Type   string  `json:"type" example:"zoom" enums:"press,drag,release,zoom,configure"`
	X      float64 `json:"x" example:"400"`
	Y      float64 `json:"y" example:"300"`
	Delta  int     `json:"delta,omitempty" example:"1"`
	Width  float64 `json:"width,omitempty" example:"800"`
	Height float64 `json:"height,omitempty" example:"600"`
}

// HistoryEntry is one persisted scan
type HistoryEntry struct {
	ID            string    `json:"id" example:"123e4567-e89b-12d3-a456-426614174000"`
	Target        string    `json:"target" example:"10.0.0.1"`
	Command       string    `json:"command" example:"nmap 10.0.0.1 -oX - -F"`
	Status        string    `json:"status" example:"completed"`
	HostCount     int       `json:"host_count" example:"1"`
	OpenPortCount int       `json:"open_port_count" example:"3"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	Duration      string    `json:"duration" example:"8s"`
	Error         string    `json:"error,omitempty"`
}

// ScheduleRequest creates a scheduled scan
type ScheduleRequest struct {
	Name     string `json:"name,omitempty" example:"nightly"`
	CronExpr string `json:"cron_expr" example:"0 2 * * *"`
	Target   string `json:"target" example:"10.0.0.0/24"`
	Preset   string `json:"preset,omitempty" example:"quick"`
	Alarm    bool   `json:"alarm"`
	Enabled  *bool  `json:"enabled,omitempty"`
}

// ScheduledJob is a scheduled scan
type ScheduledJob struct {
	ID             string          `json:"id"`
	Name           string          `json:"name" example:"nightly"`
	CronExpression string          `json:"cron_expression" example:"0 2 * * *"`
	Config         ScheduledConfig `json:"config"`
	Enabled        bool            `json:"enabled"`
	CreatedAt      time.Time       `json:"created_at"`
	LastRun        *time.Time      `json:"last_run,omitempty"`
	LastScanID     string          `json:"last_scan_id,omitempty"`
	LastError      string          `json:"last_error,omitempty"`
	NextRun        time.Time       `json:"next_run"`
	Runs           int             `json:"runs"`
	Skipped        int             `json:"skipped"`
}

// ScheduledConfig is what a scheduled job scans
type ScheduledConfig struct {
	Target string `json:"target" example:"10.0.0.0/24"`
	Preset string `json:"preset" example:"quick"`
	Alarm  bool   `json:"alarm"`
}

// Health godoc
// @Summary Health check
// @Description Reports nmap availability and, when history is enabled, database connectivity
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Success 503 {object} HealthResponse
// @Router /health [get]
// @ID getHealth
func Health(_ http.ResponseWriter, _ *http.Request) {}

// Version godoc
// @Summary Version information
// @Tags System
// @Produce json
// @Success 200 {object} VersionResponse
// @Router /version [get]
// @ID getVersion
func Version(_ http.ResponseWriter, _ *http.Request) {}

// PreviewCommand godoc
// @Summary Preview the nmap command
// @Description Builds the command line the form would run without starting it
// @Tags Scan
// @Accept json
// @Produce json
// @Param request body ScanRequest true "Scan form"
// @Success 200 {object} CommandResponse
// @Failure 400 {object} ErrorResponse
// @Router /command [post]
// @ID previewCommand
func PreviewCommand(_ http.ResponseWriter, _ *http.Request) {}

// StartScan godoc
// @Summary Start a scan
// @Description Starts nmap with the given form. Output is streamed on /events.
// @Tags Scan
// @Accept json
// @Produce json
// @Param request body ScanRequest true "Scan form"
// @Success 202 {object} ScanInfo
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "A scan is already running"
// @Router /scan [post]
// @ID startScan
func StartScan(_ http.ResponseWriter, _ *http.Request) {}

// GetScanStatus godoc
// @Summary Scan session status
// @Tags Scan
// @Produce json
// @Success 200 {object} ScanStatus
// @Router /scan [get]
// @ID getScanStatus
func GetScanStatus(_ http.ResponseWriter, _ *http.Request) {}

// StopScan godoc
// @Summary Stop the running scan
// @Tags Scan
// @Produce json
// @Success 200 {object} MessageResponse
// @Router /scan/stop [post]
// @ID stopScan
func StopScan(_ http.ResponseWriter, _ *http.Request) {}

// GetSummary godoc
// @Summary Plain-text summary of the last scan
// @Tags Scan
// @Produce json
// @Success 200 {object} SummaryResponse
// @Failure 422 {object} ErrorResponse "No scan data"
// @Router /scan/summary [get]
// @ID getSummary
func GetSummary(_ http.ResponseWriter, _ *http.Request) {}

// GetXML godoc
// @Summary Raw XML of the last scan
// @Tags Scan
// @Produce xml
// @Success 200 {string} string
// @Failure 422 {object} ErrorResponse "No scan data"
// @Router /scan/xml [get]
// @ID getXML
func GetXML(_ http.ResponseWriter, _ *http.Request) {}

// DownloadReport godoc
// @Summary Download the Markdown report
// @Tags Scan
// @Produce plain
// @Success 200 {string} string
// @Failure 422 {object} ErrorResponse "No scan data"
// @Router /scan/report [get]
// @ID downloadReport
func DownloadReport(_ http.ResponseWriter, _ *http.Request) {}

// SaveReport godoc
// @Summary Save the Markdown report on the server
// @Tags Scan
// @Produce json
// @Success 200 {object} MessageResponse
// @Failure 422 {object} ErrorResponse "No scan data"
// @Router /scan/report [post]
// @ID saveReport
func SaveReport(_ http.ResponseWriter, _ *http.Request) {}

// ListPresets godoc
// @Summary List presets
// @Tags Presets
// @Produce json
// @Success 200 {array} Preset
// @Router /presets [get]
// @ID listPresets
func ListPresets(_ http.ResponseWriter, _ *http.Request) {}

// CreatePreset godoc
// @Summary Create a preset
// @Tags Presets
// @Accept json
// @Produce json
// @Param request body Preset true "Preset"
// @Success 201 {object} Preset
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /presets [post]
// @ID createPreset
func CreatePreset(_ http.ResponseWriter, _ *http.Request) {}

// DeletePreset godoc
// @Summary Delete a custom preset
// @Tags Presets
// @Param name path string true "Preset name"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Built-in presets cannot be deleted"
// @Router /presets/{name} [delete]
// @ID deletePreset
func DeletePreset(_ http.ResponseWriter, _ *http.Request) {}

// RunFollowup godoc
// @Summary Run a follow-up action
// @Description Runs against the given host or the host of the last scan. Output is streamed on /events.
// @Tags Follow-ups
// @Accept json
// @Produce json
// @Param request body FollowupRequest true "Action"
// @Success 202 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse "No scan data"
// @Router /followups [post]
// @ID runFollowup
func RunFollowup(_ http.ResponseWriter, _ *http.Request) {}

// AcknowledgeAlarm godoc
// @Summary Acknowledge the completion alarm
// @Tags Follow-ups
// @Success 204
// @Router /alarm/ack [post]
// @ID acknowledgeAlarm
func AcknowledgeAlarm(_ http.ResponseWriter, _ *http.Request) {}

// OpenGraph godoc
// @Summary Open the spider graph
// @Tags Graph
// @Produce json
// @Success 201 {object} map[string]interface{}
// @Failure 404 {object} ErrorResponse "No hosts found"
// @Failure 409 {object} ErrorResponse "The visualizer is already open"
// @Failure 422 {object} ErrorResponse "No results"
// @Router /graph [post]
// @ID openGraph
func OpenGraph(_ http.ResponseWriter, _ *http.Request) {}

// SendGraphInput godoc
// @Summary Forward pointer or canvas input to the spider graph
// @Tags Graph
// @Accept json
// @Produce json
// @Param request body GraphInput true "Canvas event"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} ErrorResponse
// @Router /graph/input [post]
// @ID graphInput
func SendGraphInput(_ http.ResponseWriter, _ *http.Request) {}

// ListHistory godoc
// @Summary List persisted scans
// @Tags History
// @Produce json
// @Param limit query int false "Maximum entries" default(50)
// @Success 200 {array} HistoryEntry
// @Failure 503 {object} ErrorResponse "History disabled"
// @Router /history [get]
// @ID listHistory
func ListHistory(_ http.ResponseWriter, _ *http.Request) {}

// CreateSchedule godoc
// @Summary Schedule a preset scan
// @Tags Schedules
// @Accept json
// @Produce json
// @Param request body ScheduleRequest true "Schedule"
// @Success 201 {object} ScheduledJob
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse "Unknown preset"
// @Router /schedules [post]
// @ID createSchedule
func CreateSchedule(_ http.ResponseWriter, _ *http.Request) {}

// RunSchedule godoc
// @Summary Run a scheduled scan now
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 202 {object} ScheduledJob
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "A scan is already running"
// @Router /schedules/{id}/run [post]
// @ID runSchedule
func RunSchedule(_ http.ResponseWriter, _ *http.Request) {}

// Events godoc
// @Summary Live event socket
// @Description WebSocket carrying scan output, completion, alarm, follow-up and graph events.
// @Tags Events
// @Param api_key query string false "API key when headers cannot be set"
// @Success 101
// @Router /events [get]
// @ID events
func Events(_ http.ResponseWriter, _ *http.Request) {}
