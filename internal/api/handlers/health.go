// Package handlers provides HTTP request handlers for the Uplink API.
// This file implements health check and system status endpoints.
package handlers

import (
	"context"
	"net/http"
	"os"
	"os/exec"
	"runtime"
	"time"

	"github.com/anstrom/uplink/internal/logging"
	"github.com/anstrom/uplink/internal/metrics"
	"github.com/anstrom/uplink/internal/scanning"
)

// DatabasePinger defines the interface for history database health checking.
type DatabasePinger interface {
	PingContext(ctx context.Context) error
}

// Timeout constants.
const (
	healthCheckTimeout = 5 * time.Second
)

// Status constants.
const (
	StatusHealthy       = "healthy"
	StatusDegraded      = "degraded"
	StatusUnhealthy     = "unhealthy"
	StatusNotConfigured = "not configured"
)

// HealthHandler handles health check and status endpoints.
type HealthHandler struct {
	BaseHandler
	database  DatabasePinger
	session   *scanning.Session
	nmap      string
	lookPath  func(string) (string, error)
	startTime time.Time
}

// NewHealthHandler creates a new health handler. database may be nil when
// history is disabled.
func NewHealthHandler(
	database DatabasePinger,
	session *scanning.Session,
	nmapBinary string,
	logger *logging.Logger,
	registry metrics.MetricsRegistry,
) *HealthHandler {
	base := NewBaseHandler(logger, registry)
	base.logger = base.logger.WithFields("handler", "health")
	return &HealthHandler{
		BaseHandler: base,
		database:    database,
		session:     session,
		nmap:        nmapBinary,
		lookPath:    exec.LookPath,
		startTime:   time.Now(),
	}
}

// HealthResponse represents a health check response.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Uptime    string            `json:"uptime"`
	Checks    map[string]string `json:"checks"`
}

// LivenessResponse represents a simple liveness check response.
type LivenessResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    string    `json:"uptime"`
}

// StatusResponse represents a detailed status response.
type StatusResponse struct {
	Service   ServiceInfo     `json:"service"`
	System    SystemInfo      `json:"system"`
	Scan      scanning.Status `json:"scan"`
	Health    HealthResponse  `json:"health"`
	Timestamp time.Time       `json:"timestamp"`
}

// ServiceInfo contains service-related information.
type ServiceInfo struct {
	Name      string    `json:"name"`
	Version   string    `json:"version"`
	StartTime time.Time `json:"start_time"`
	Uptime    string    `json:"uptime"`
	PID       int       `json:"pid"`
}

// SystemInfo contains system-related information.
type SystemInfo struct {
	OS           string `json:"os"`
	Architecture string `json:"architecture"`
	CPUs         int    `json:"cpus"`
	GoVersion    string `json:"go_version"`
	Goroutines   int    `json:"goroutines"`
	AllocBytes   uint64 `json:"alloc_bytes"`
}

// VersionResponse represents version information.
type VersionResponse struct {
	Version   string    `json:"version"`
	Commit    string    `json:"commit"`
	BuildTime string    `json:"build_time"`
	GoVersion string    `json:"go_version"`
	Timestamp time.Time `json:"timestamp"`
}

// Health performs a basic health check.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	h.logger.Debug("Health check requested", "remote_addr", r.RemoteAddr)

	response := h.check(ctx)

	statusCode := http.StatusOK
	if response.Status == StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}
	writeJSON(w, r, statusCode, response)

	h.count("api_health_checks_total", metrics.Labels{metrics.LabelStatus: response.Status})
}

func (h *HealthHandler) check(ctx context.Context) HealthResponse {
	response := HealthResponse{
		Status:    StatusHealthy,
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(h.startTime).String(),
		Checks:    make(map[string]string),
	}

	// A missing nmap degrades the service but does not fail the check.
	if _, err := h.lookPath(h.nmap); err != nil {
		response.Checks["nmap"] = "not found"
		response.Status = StatusDegraded
	} else {
		response.Checks["nmap"] = StatusHealthy
	}

	if h.database == nil {
		response.Checks["history"] = StatusNotConfigured
		return response
	}
	if err := h.database.PingContext(ctx); err != nil {
		h.logger.Warn("History database ping failed", "error", err)
		response.Checks["history"] = StatusUnhealthy
		response.Status = StatusUnhealthy
	} else {
		response.Checks["history"] = StatusHealthy
	}
	return response
}

// Liveness reports that the process is serving requests.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, LivenessResponse{
		Status:    "alive",
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(h.startTime).String(),
	})
}

// Status provides detailed service status.
func (h *HealthHandler) Status(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	response := StatusResponse{
		Service: ServiceInfo{
			Name:      "uplink",
			Version:   getVersion(),
			StartTime: h.startTime,
			Uptime:    time.Since(h.startTime).String(),
			PID:       os.Getpid(),
		},
		System:    getSystemInfo(),
		Health:    h.check(ctx),
		Timestamp: time.Now().UTC(),
	}
	if h.session != nil {
		response.Scan = h.session.Status()
	}

	writeJSON(w, r, http.StatusOK, response)
}

// Version provides version information.
func (h *HealthHandler) Version(w http.ResponseWriter, r *http.Request) {
	h.logger.Debug("Version requested", "remote_addr", r.RemoteAddr)

	writeJSON(w, r, http.StatusOK, VersionResponse{
		Version:   getVersion(),
		Commit:    getCommit(),
		BuildTime: getBuildTime(),
		GoVersion: runtime.Version(),
		Timestamp: time.Now().UTC(),
	})

	h.count("api_version_requests_total", nil)
}

func getSystemInfo() SystemInfo {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	return SystemInfo{
		OS:           runtime.GOOS,
		Architecture: runtime.GOARCH,
		CPUs:         runtime.NumCPU(),
		GoVersion:    runtime.Version(),
		Goroutines:   runtime.NumGoroutine(),
		AllocBytes:   mem.Alloc,
	}
}

// Build information, set via ldflags through SetBuildInfo.
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

func getVersion() string {
	return version
}

func getCommit() string {
	return commit
}

func getBuildTime() string {
	return buildTime
}

// SetBuildInfo sets build information (called by main package).
func SetBuildInfo(v, c, bt string) {
	version = v
	commit = c
	buildTime = bt
}
