// Package metrics collects uplink's operational metrics. A small in-process
// Registry backs the status endpoints and a Prometheus collector set backs
// /metrics.
package metrics

import (
	"sync"
	"time"
)

// MetricType represents the type of metric.
type MetricType string

const (
	TypeCounter   MetricType = "counter"
	TypeGauge     MetricType = "gauge"
	TypeHistogram MetricType = "histogram"
)

// Labels represents key-value pairs for metric labels.
type Labels map[string]string

// Metric represents a single metric with its metadata.
type Metric struct {
	Name      string
	Type      MetricType
	Value     float64
	Labels    Labels
	Timestamp time.Time
}

// Registry holds all metrics and provides collection functionality.
type Registry struct {
	mu      sync.RWMutex
	metrics map[string]*Metric
	enabled bool
}

// NewRegistry creates a new metrics registry.
func NewRegistry() *Registry {
	return &Registry{
		metrics: make(map[string]*Metric),
		enabled: true,
	}
}

// SetEnabled enables or disables metrics collection.
func (r *Registry) SetEnabled(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enabled = enabled
}

// IsEnabled returns whether metrics collection is enabled.
func (r *Registry) IsEnabled() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.enabled
}

// Counter increments a counter metric.
func (r *Registry) Counter(name string, labels Labels) {
	if !r.IsEnabled() {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := r.makeKey(name, labels)
	if metric, exists := r.metrics[key]; exists {
		metric.Value++
		metric.Timestamp = time.Now()
	} else {
		r.metrics[key] = &Metric{
			Name:      name,
			Type:      TypeCounter,
			Value:     1,
			Labels:    labels,
			Timestamp: time.Now(),
		}
	}
}

// Gauge sets a gauge metric value.
func (r *Registry) Gauge(name string, value float64, labels Labels) {
	if !r.IsEnabled() {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := r.makeKey(name, labels)
	r.metrics[key] = &Metric{
		Name:      name,
		Type:      TypeGauge,
		Value:     value,
		Labels:    labels,
		Timestamp: time.Now(),
	}
}

// Histogram records a value in a histogram metric.
func (r *Registry) Histogram(name string, value float64, labels Labels) {
	if !r.IsEnabled() {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := r.makeKey(name, labels)
	if metric, exists := r.metrics[key]; exists {
		// last observation only; Prometheus keeps the buckets
		metric.Value = value
		metric.Timestamp = time.Now()
	} else {
		r.metrics[key] = &Metric{
			Name:      name,
			Type:      TypeHistogram,
			Value:     value,
			Labels:    labels,
			Timestamp: time.Now(),
		}
	}
}

// GetMetrics returns a snapshot of all current metrics.
func (r *Registry) GetMetrics() map[string]*Metric {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]*Metric)
	for key, metric := range r.metrics {
		// Create a copy to avoid race conditions
		result[key] = &Metric{
			Name:      metric.Name,
			Type:      metric.Type,
			Value:     metric.Value,
			Labels:    copyLabels(metric.Labels),
			Timestamp: metric.Timestamp,
		}
	}
	return result
}

// Reset clears all metrics.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = make(map[string]*Metric)
}

// makeKey creates a unique key for a metric based on name and labels.
func (r *Registry) makeKey(name string, labels Labels) string {
	if len(labels) == 0 {
		return name
	}

	key := name
	for k, v := range labels {
		key += ":" + k + "=" + v
	}
	return key
}

// copyLabels creates a copy of labels map.
func copyLabels(labels Labels) Labels {
	if labels == nil {
		return nil
	}
	result := make(Labels)
	for k, v := range labels {
		result[k] = v
	}
	return result
}

// Global registry instance.
var defaultRegistry = NewRegistry()

// SetDefault sets the default metrics registry.
func SetDefault(registry *Registry) {
	defaultRegistry = registry
}

// Default returns the default metrics registry.
func Default() *Registry {
	return defaultRegistry
}

// SetEnabled enables or disables metrics collection on the default registry.
func SetEnabled(enabled bool) {
	defaultRegistry.SetEnabled(enabled)
}

// Counter increments a counter metric on the default registry.
func Counter(name string, labels Labels) {
	defaultRegistry.Counter(name, labels)
}

// Gauge sets a gauge metric on the default registry.
func Gauge(name string, value float64, labels Labels) {
	defaultRegistry.Gauge(name, value, labels)
}

// Histogram records a histogram value on the default registry.
func Histogram(name string, value float64, labels Labels) {
	defaultRegistry.Histogram(name, value, labels)
}

// GetMetrics returns all metrics from the default registry.
func GetMetrics() map[string]*Metric {
	return defaultRegistry.GetMetrics()
}

// Reset clears all metrics from the default registry.
func Reset() {
	defaultRegistry.Reset()
}

// Timer provides a simple way to measure execution time.
type Timer struct {
	start  time.Time
	name   string
	labels Labels
}

// NewTimer creates a new timer for measuring execution time.
func NewTimer(name string, labels Labels) *Timer {
	return &Timer{
		start:  time.Now(),
		name:   name,
		labels: labels,
	}
}

// Stop stops the timer and records the duration as a histogram.
func (t *Timer) Stop() {
	duration := time.Since(t.start)
	Histogram(t.name, duration.Seconds(), t.labels)
}

// Metric names recorded by uplink.
const (
	// Scan session metrics.
	MetricScanDuration  = "scan_duration_seconds"
	MetricScanTotal     = "scan_total"
	MetricScanErrors    = "scan_errors_total"
	MetricHostsFound    = "scan_hosts_found"
	MetricOpenPorts     = "scan_open_ports"
	MetricScanActive    = "scan_active"
	MetricScansRejected = "scan_rejected_total"

	// Follow-up metrics.
	MetricFollowupTotal    = "followup_total"
	MetricFollowupDuration = "followup_duration_seconds"

	// Worker pool metrics.
	MetricWorkerPoolSize = "worker_pool_size"
	MetricJobsQueued     = "worker_jobs_queued"

	// Alarm and visualizer metrics.
	MetricAlarmsRaised   = "alarm_raised_total"
	MetricGraphsOpened   = "graph_opened_total"
	MetricEventClients   = "event_clients_active"
	MetricEventBroadcast = "event_broadcast_total"

	// History metrics.
	MetricHistoryQueries  = "history_queries_total"
	MetricHistoryDuration = "history_query_duration_seconds"
)

// Common label keys.
const (
	LabelAction    = "action"
	LabelTarget    = "target"
	LabelStatus    = "status"
	LabelOperation = "operation"
	LabelError     = "error"
	LabelComponent = "component"
	LabelEvent     = "event"
)

// RecordScan records the outcome and duration of one finished scan.
func RecordScan(status string, duration time.Duration, hosts, openPorts int) {
	Counter(MetricScanTotal, Labels{LabelStatus: status})
	Histogram(MetricScanDuration, duration.Seconds(), Labels{LabelStatus: status})
	Gauge(MetricHostsFound, float64(hosts), nil)
	Gauge(MetricOpenPorts, float64(openPorts), nil)
}

// IncrementScanErrors increments the scan error counter.
func IncrementScanErrors(errorType string) {
	Counter(MetricScanErrors, Labels{LabelError: errorType})
}

// RecordFollowup records a finished follow-up action.
func RecordFollowup(action string, duration time.Duration, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	Counter(MetricFollowupTotal, Labels{LabelAction: action, LabelStatus: status})
	Histogram(MetricFollowupDuration, duration.Seconds(), Labels{LabelAction: action})
}

// RecordHistoryQuery records history database query metrics.
func RecordHistoryQuery(operation string, duration time.Duration, success bool) {
	status := "success"
	if !success {
		status = "error"
	}

	Counter(MetricHistoryQueries, Labels{
		LabelOperation: operation,
		LabelStatus:    status,
	})

	Histogram(MetricHistoryDuration, duration.Seconds(), Labels{
		LabelOperation: operation,
	})
}
