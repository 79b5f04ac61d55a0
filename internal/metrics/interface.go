package metrics

//go:generate mockgen -destination=mocks/mock_interface.go -package=mocks . MetricsRegistry

// MetricsRegistry is the in-process metrics sink used by the scan session,
// the follow-up pool and the HTTP layer.
type MetricsRegistry interface {
	SetEnabled(enabled bool)
	IsEnabled() bool

	// Counter increments a counter metric with the given name and labels.
	Counter(name string, labels Labels)

	// Gauge sets a gauge metric to the specified value.
	Gauge(name string, value float64, labels Labels)

	// Histogram records an observation for the named metric.
	Histogram(name string, value float64, labels Labels)

	// GetMetrics returns a snapshot of all current metrics.
	GetMetrics() map[string]*Metric

	Reset()
}

var _ MetricsRegistry = (*Registry)(nil)
