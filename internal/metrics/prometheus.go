package metrics

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	namespace = "uplink"

	subsystemScan     = "scan"
	subsystemFollowup = "followup"
	subsystemHistory  = "history"
	subsystemAPI      = "api"
	subsystemSystem   = "system"
)

// PrometheusMetrics holds the Prometheus collectors exported on /metrics.
type PrometheusMetrics struct {
	// Scan metrics
	scansTotal    *prometheus.CounterVec
	scanDuration  prometheus.Histogram
	scanErrors    *prometheus.CounterVec
	hostsFound    prometheus.Counter
	openPorts     prometheus.Counter
	activeScans   prometheus.Gauge
	scansRejected prometheus.Counter
	alarmsRaised  prometheus.Counter

	// Follow-up metrics
	followupTotal    *prometheus.CounterVec
	followupDuration *prometheus.HistogramVec

	// History metrics
	historyQueries  *prometheus.CounterVec
	historyDuration *prometheus.HistogramVec

	// API metrics
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	eventClients  prometheus.Gauge
	eventMessages *prometheus.CounterVec

	// System metrics
	memoryUsage prometheus.Gauge
	goroutines  prometheus.Gauge
	uptime      prometheus.Gauge

	startTime  time.Time
	lastUpdate time.Time
	mu         sync.RWMutex
	registry   *prometheus.Registry
}

// NewPrometheusMetrics creates and registers all collectors on a private registry.
func NewPrometheusMetrics() *PrometheusMetrics {
	registry := prometheus.NewRegistry()

	pm := &PrometheusMetrics{
		startTime: time.Now(),
		registry:  registry,
	}

	pm.initScanMetrics()
	pm.initFollowupMetrics()
	pm.initHistoryMetrics()
	pm.initAPIMetrics()
	pm.initSystemMetrics()

	registry.MustRegister(
		pm.scansTotal, pm.scanDuration, pm.scanErrors, pm.hostsFound,
		pm.openPorts, pm.activeScans, pm.scansRejected, pm.alarmsRaised,
		pm.followupTotal, pm.followupDuration,
		pm.historyQueries, pm.historyDuration,
		pm.httpRequests, pm.httpDuration, pm.eventClients, pm.eventMessages,
		pm.memoryUsage, pm.goroutines, pm.uptime,
	)

	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return pm
}

func (pm *PrometheusMetrics) initScanMetrics() {
	pm.scansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemScan,
			Name:      "total",
			Help:      "Total number of nmap scans by final status",
		},
		[]string{"status"},
	)

	pm.scanDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemScan,
			Name:      "duration_seconds",
			Help:      "Wall time of nmap scans in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 300, 600, 1800, 3600},
		},
	)

	pm.scanErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemScan,
			Name:      "errors_total",
			Help:      "Total number of failed scans by error code",
		},
		[]string{"error_type"},
	)

	pm.hostsFound = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystemScan,
		Name:      "hosts_total",
		Help:      "Hosts reported in scan results",
	})

	pm.openPorts = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystemScan,
		Name:      "open_ports_total",
		Help:      "Open ports reported in scan results",
	})

	pm.activeScans = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystemScan,
		Name:      "active",
		Help:      "1 while a scan is running",
	})

	pm.scansRejected = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystemScan,
		Name:      "rejected_total",
		Help:      "Scan requests refused because another scan was running",
	})

	pm.alarmsRaised = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystemScan,
		Name:      "alarms_total",
		Help:      "Completion alarms started",
	})
}

func (pm *PrometheusMetrics) initFollowupMetrics() {
	pm.followupTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemFollowup,
			Name:      "total",
			Help:      "Follow-up actions by action and status",
		},
		[]string{"action", "status"},
	)

	pm.followupDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemFollowup,
			Name:      "duration_seconds",
			Help:      "Duration of follow-up actions in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		},
		[]string{"action"},
	)
}

func (pm *PrometheusMetrics) initHistoryMetrics() {
	pm.historyQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemHistory,
			Name:      "queries_total",
			Help:      "History database queries by operation and status",
		},
		[]string{"operation", "status"},
	)

	pm.historyDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemHistory,
			Name:      "query_duration_seconds",
			Help:      "Duration of history database queries in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		},
		[]string{"operation"},
	)
}

func (pm *PrometheusMetrics) initAPIMetrics() {
	pm.httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemAPI,
			Name:      "requests_total",
			Help:      "HTTP requests by method, path and status",
		},
		[]string{"method", "path", "status"},
	)

	pm.httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemAPI,
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 2.0, 5.0},
		},
		[]string{"method", "path"},
	)

	pm.eventClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystemAPI,
		Name:      "event_clients",
		Help:      "Connected websocket clients",
	})

	pm.eventMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemAPI,
			Name:      "events_total",
			Help:      "Events broadcast to websocket clients by type",
		},
		[]string{"event"},
	)
}

func (pm *PrometheusMetrics) initSystemMetrics() {
	pm.memoryUsage = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystemSystem,
		Name:      "memory_bytes",
		Help:      "Current heap allocation in bytes",
	})

	pm.goroutines = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystemSystem,
		Name:      "goroutines",
		Help:      "Current number of goroutines",
	})

	pm.uptime = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystemSystem,
		Name:      "uptime_seconds",
		Help:      "Process uptime in seconds",
	})
}

// GetRegistry returns the Prometheus registry for the HTTP handler.
func (pm *PrometheusMetrics) GetRegistry() *prometheus.Registry {
	return pm.registry
}

// ObserveScan records a finished scan.
func (pm *PrometheusMetrics) ObserveScan(status string, duration time.Duration, hosts, openPorts int) {
	pm.scansTotal.WithLabelValues(status).Inc()
	pm.scanDuration.Observe(duration.Seconds())
	pm.hostsFound.Add(float64(hosts))
	pm.openPorts.Add(float64(openPorts))
}

// IncrementScanErrors increments the failed scan counter.
func (pm *PrometheusMetrics) IncrementScanErrors(errorType string) {
	pm.scanErrors.WithLabelValues(errorType).Inc()
}

// SetScanActive flips the active scan gauge.
func (pm *PrometheusMetrics) SetScanActive(active bool) {
	if active {
		pm.activeScans.Set(1)
		return
	}
	pm.activeScans.Set(0)
}

// IncrementScansRejected counts a refused start request.
func (pm *PrometheusMetrics) IncrementScansRejected() {
	pm.scansRejected.Inc()
}

// IncrementAlarms counts a started completion alarm.
func (pm *PrometheusMetrics) IncrementAlarms() {
	pm.alarmsRaised.Inc()
}

// ObserveFollowup records a finished follow-up action.
func (pm *PrometheusMetrics) ObserveFollowup(action string, duration time.Duration, success bool) {
	pm.followupTotal.WithLabelValues(action, statusLabel(success)).Inc()
	pm.followupDuration.WithLabelValues(action).Observe(duration.Seconds())
}

// ObserveHistoryQuery records a history database query.
func (pm *PrometheusMetrics) ObserveHistoryQuery(operation string, duration time.Duration, success bool) {
	pm.historyQueries.WithLabelValues(operation, statusLabel(success)).Inc()
	pm.historyDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveHTTPRequest records a served HTTP request.
func (pm *PrometheusMetrics) ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	pm.httpRequests.WithLabelValues(method, path, status).Inc()
	pm.httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// SetEventClients sets the number of connected websocket clients.
func (pm *PrometheusMetrics) SetEventClients(count int) {
	pm.eventClients.Set(float64(count))
}

// IncrementEvents counts a broadcast event.
func (pm *PrometheusMetrics) IncrementEvents(event string) {
	pm.eventMessages.WithLabelValues(event).Inc()
}

// UpdateSystemMetrics refreshes the memory, goroutine and uptime gauges.
func (pm *PrometheusMetrics) UpdateSystemMetrics() {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	pm.memoryUsage.Set(float64(memStats.Alloc))
	pm.goroutines.Set(float64(runtime.NumGoroutine()))
	pm.uptime.Set(time.Since(pm.startTime).Seconds())
	pm.lastUpdate = time.Now()
}

// GetUptime returns the time since the collectors were created.
func (pm *PrometheusMetrics) GetUptime() time.Duration {
	return time.Since(pm.startTime)
}

// GetLastUpdate returns the last system metrics refresh time.
func (pm *PrometheusMetrics) GetLastUpdate() time.Time {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.lastUpdate
}

// StartPeriodicUpdates refreshes system metrics every interval until ctx is done.
func (pm *PrometheusMetrics) StartPeriodicUpdates(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	pm.UpdateSystemMetrics()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pm.UpdateSystemMetrics()
		}
	}
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

var (
	globalMetrics *PrometheusMetrics
	metricsOnce   sync.Once
)

// GetGlobalMetrics returns the process-wide Prometheus collectors.
func GetGlobalMetrics() *PrometheusMetrics {
	metricsOnce.Do(func() {
		globalMetrics = NewPrometheusMetrics()
	})
	return globalMetrics
}
