// Package followup runs the post-scan actions offered once a scan finishes:
// ping and traceroute through the system utilities, reverse DNS through
// miekg/dns, an SNMP system probe through gosnmp and a ping sweep through
// the nmap library. Actions run as jobs on the worker pool and stream their
// output to a Sink.
package followup

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/anstrom/uplink/internal/config"
	"github.com/anstrom/uplink/internal/errors"
	"github.com/anstrom/uplink/internal/logging"
	"github.com/anstrom/uplink/internal/metrics"
	"github.com/anstrom/uplink/internal/scanning"
	"github.com/anstrom/uplink/internal/workers"
)

// Action names a follow-up.
type Action string

const (
	ActionPing       Action = "ping"
	ActionTraceroute Action = "traceroute"
	ActionDNS        Action = "dns"
	ActionSNMP       Action = "snmp"
	ActionSweep      Action = "sweep"
)

// Actions lists every follow-up in menu order.
var Actions = []Action{ActionPing, ActionTraceroute, ActionDNS, ActionSNMP, ActionSweep}

// ParseAction validates an action name.
func ParseAction(name string) (Action, error) {
	for _, a := range Actions {
		if string(a) == strings.ToLower(name) {
			return a, nil
		}
	}
	return "", errors.New(errors.CodeValidation, fmt.Sprintf("Unknown follow-up action: %s", name))
}

// Header is the line written before an action's output.
func (a Action) Header(host string) string {
	var verb string
	switch a {
	case ActionPing:
		verb = "Pinging"
	case ActionTraceroute:
		verb = "Tracerouting"
	case ActionDNS:
		verb = "Resolving"
	case ActionSNMP:
		verb = "Querying SNMP on"
	case ActionSweep:
		verb = "Sweeping"
	default:
		verb = string(a)
	}
	return fmt.Sprintf("\n\n--- %s %s ---\n", verb, host)
}

// Sink receives follow-up output for the post-scan pane.
type Sink interface {
	FollowupOutput(action Action, host, text string)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(action Action, host, text string)

// FollowupOutput implements Sink.
func (f SinkFunc) FollowupOutput(action Action, host, text string) {
	f(action, host, text)
}

// TargetFunc returns the default host, usually the last scanned target.
type TargetFunc func() string

// Service dispatches follow-up actions.
type Service struct {
	pool     *workers.Pool
	runner   scanning.Runner
	sink     Sink
	target   TargetFunc
	cfg      config.FollowupConfig
	goos     string
	nmapPath string
	registry metrics.MetricsRegistry
	prom     *metrics.PrometheusMetrics
	logger   *logging.Logger
	seq      atomic.Uint64
}

// Option configures a Service.
type Option func(*Service)

// WithPool runs actions on pool instead of inline.
func WithPool(pool *workers.Pool) Option {
	return func(s *Service) { s.pool = pool }
}

// WithTarget sets the default host lookup.
func WithTarget(target TargetFunc) Option {
	return func(s *Service) { s.target = target }
}

// WithOS overrides runtime.GOOS for command selection.
func WithOS(goos string) Option {
	return func(s *Service) { s.goos = goos }
}

// WithNmapBinary sets the nmap executable used by sweeps.
func WithNmapBinary(path string) Option {
	return func(s *Service) { s.nmapPath = path }
}

// WithMetrics sets the metrics sinks. Either may be nil.
func WithMetrics(registry metrics.MetricsRegistry, prom *metrics.PrometheusMetrics) Option {
	return func(s *Service) {
		s.registry = registry
		s.prom = prom
	}
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// NewService creates a follow-up service writing to sink.
func NewService(runner scanning.Runner, sink Sink, cfg config.FollowupConfig, opts ...Option) *Service {
	s := &Service{
		runner: runner,
		sink:   sink,
		target: func() string { return "" },
		cfg:    cfg,
		goos:   runtime.GOOS,
		logger: logging.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent("followup")
	return s
}

// ResolveHost returns host, or the default target when host is empty.
func (s *Service) ResolveHost(host string) (string, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		host = strings.TrimSpace(s.target())
	}
	if host == "" {
		return "", errors.ErrNoResults()
	}
	return host, nil
}

// Submit queues action for host on the pool and returns the job id.
// Without a pool the action runs in a new goroutine.
func (s *Service) Submit(action Action, host string) (string, error) {
	host, err := s.ResolveHost(host)
	if err != nil {
		return "", err
	}

	id := fmt.Sprintf("%s-%d", action, s.seq.Add(1))
	run := func(ctx context.Context) error {
		return s.Execute(ctx, action, host)
	}

	if s.pool == nil {
		go func() { _ = run(context.Background()) }()
		return id, nil
	}

	if err := s.pool.Submit(workers.NewFuncJob(id, string(action), run)); err != nil {
		return "", err
	}
	return id, nil
}

// Execute runs action for host and blocks until it finishes. Failures are
// written to the sink as well as returned.
func (s *Service) Execute(ctx context.Context, action Action, host string) error {
	host, err := s.ResolveHost(host)
	if err != nil {
		return err
	}

	out := func(text string) { s.sink.FollowupOutput(action, host, text) }
	out(action.Header(host))

	s.logger.InfoFollowup("Follow-up started", string(action), host)
	start := time.Now()

	switch action {
	case ActionPing:
		err = s.runUtility(ctx, s.pingCommand(host), out)
	case ActionTraceroute:
		err = s.runUtility(ctx, s.tracerouteCommand(host), out)
	case ActionDNS:
		err = s.lookupDNS(ctx, host, out)
	case ActionSNMP:
		err = s.querySNMP(ctx, host, out)
	case ActionSweep:
		err = s.sweep(ctx, host, out)
	default:
		_, err = ParseAction(string(action))
		return err
	}

	s.record(action, time.Since(start), err)
	if err != nil {
		s.logger.ErrorFollowup("Follow-up failed", string(action), host, err)
		return errors.WrapWithTarget(errors.CodeFollowupFailed,
			fmt.Sprintf("%s failed", action), host, err)
	}
	s.logger.InfoFollowup("Follow-up finished", string(action), host, "duration", time.Since(start))
	return nil
}

func (s *Service) record(action Action, d time.Duration, err error) {
	if s.registry != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		s.registry.Counter(metrics.MetricFollowupTotal, metrics.Labels{
			metrics.LabelAction: string(action),
			metrics.LabelStatus: status,
		})
		s.registry.Histogram(metrics.MetricFollowupDuration, d.Seconds(),
			metrics.Labels{metrics.LabelAction: string(action)})
	}
	if s.prom != nil {
		s.prom.ObserveFollowup(string(action), d, err == nil)
	}
}

func unexpected(err error) string {
	return fmt.Sprintf("An unexpected error occurred: %v\n", err)
}
