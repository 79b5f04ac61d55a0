package scanning

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/anstrom/uplink/internal/alarm"
	"github.com/anstrom/uplink/internal/errors"
	"github.com/anstrom/uplink/internal/history"
	"github.com/anstrom/uplink/internal/logging"
	"github.com/anstrom/uplink/internal/metrics"
	"github.com/anstrom/uplink/internal/nmapxml"
	"github.com/anstrom/uplink/internal/options"
	"github.com/anstrom/uplink/internal/report"
)

const (
	// alarmDelay lets the completion reach the clients before the sound starts.
	alarmDelay = 100 * time.Millisecond

	historyTimeout = 10 * time.Second
	maxStderrLine  = 1024 * 1024
)

// Session runs one nmap scan at a time.
type Session struct {
	catalog     *options.Catalog
	runner      Runner
	sink        Sink
	store       history.Store
	alarm       *alarm.Alarm
	registry    metrics.MetricsRegistry
	prom        *metrics.PrometheusMetrics
	platform    options.Platform
	binary      string
	disableSudo bool
	alarmDelay  time.Duration
	logger      *logging.Logger
	now         func() time.Time

	mu      sync.Mutex
	current *activeScan
	last    *Completion
	target  string
	baseCtx context.Context
	stopAll context.CancelFunc
}

type activeScan struct {
	info    ScanInfo
	proc    Process
	stopped bool
	done    chan struct{}
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithSink sets the event sink.
func WithSink(sink Sink) SessionOption {
	return func(s *Session) { s.sink = sink }
}

// WithHistory records every finished scan in store.
func WithHistory(store history.Store) SessionOption {
	return func(s *Session) { s.store = store }
}

// WithAlarm sets the alarm started for forms that request it.
func WithAlarm(a *alarm.Alarm) SessionOption {
	return func(s *Session) { s.alarm = a }
}

// WithMetrics sets the in-process registry and the Prometheus collectors.
// Either may be nil.
func WithMetrics(registry metrics.MetricsRegistry, prom *metrics.PrometheusMetrics) SessionOption {
	return func(s *Session) {
		s.registry = registry
		s.prom = prom
	}
}

// WithPlatform overrides the detected platform.
func WithPlatform(p options.Platform) SessionOption {
	return func(s *Session) { s.platform = p }
}

// WithBinary sets the nmap executable.
func WithBinary(binary string) SessionOption {
	return func(s *Session) { s.binary = binary }
}

// WithoutSudo disables the sudo prefix for privileged scans.
func WithoutSudo() SessionOption {
	return func(s *Session) { s.disableSudo = true }
}

// WithLogger sets the session logger.
func WithLogger(logger *logging.Logger) SessionOption {
	return func(s *Session) { s.logger = logger }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// WithAlarmDelay sets the pause between completion and the first alarm sound.
func WithAlarmDelay(d time.Duration) SessionOption {
	return func(s *Session) { s.alarmDelay = d }
}

// NewSession creates an idle session.
func NewSession(catalog *options.Catalog, runner Runner, opts ...SessionOption) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		catalog:    catalog,
		runner:     runner,
		sink:       NopSink{},
		platform:   options.CurrentPlatform(),
		binary:     "nmap",
		alarmDelay: alarmDelay,
		logger:     logging.Default(),
		now:        time.Now,
		baseCtx:    ctx,
		stopAll:    cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent("scanning")
	return s
}

// Prepare validates the form and returns the argument vector that Start
// would run, together with the privilege warning, if any.
func (s *Session) Prepare(form *options.Form) ([]string, string, error) {
	if err := s.catalog.Validate(form); err != nil {
		return nil, "", err
	}

	argv, err := s.catalog.BuildCommand(form)
	if err != nil {
		return nil, "", err
	}

	platform := s.platform
	if s.disableSudo && platform.OS == "linux" {
		platform.EUID = 0
	}
	argv, warning := options.ApplyPrivilege(argv, form, platform)

	return options.WithBinary(argv, s.binary), warning, nil
}

// Start launches a scan for form. It fails while another scan is running.
// The scan outlives ctx; use Stop to end it early.
func (s *Session) Start(ctx context.Context, form options.Form) (*ScanInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	argv, warning, err := s.Prepare(&form)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.current != nil {
		s.mu.Unlock()
		s.countRejected()
		return nil, errors.ErrScanInProgress(form.Target)
	}

	scan := &activeScan{
		info: ScanInfo{
			ID:        uuid.New(),
			Target:    form.Target,
			Command:   argv,
			Alarm:     form.Alarm,
			Warning:   warning,
			StartedAt: s.now(),
		},
		done: make(chan struct{}),
	}
	s.current = scan
	s.last = nil
	s.target = form.Target
	runCtx := s.baseCtx
	s.mu.Unlock()

	log := s.logger.WithScanID(scan.info.ID.String())
	log.InfoScan("Starting scan", form.Target, "command", scan.info.CommandLine())
	if warning != "" {
		log.Warn("Privileged scan on windows", "warning", warning)
	}
	if s.prom != nil {
		s.prom.SetScanActive(true)
	}

	s.sink.Started(scan.info)
	s.sink.Output(fmt.Sprintf(executingFormat, scan.info.CommandLine()))

	go s.run(runCtx, scan, log)

	info := scan.info
	return &info, nil
}

func (s *Session) run(ctx context.Context, scan *activeScan, log *logging.Logger) {
	defer close(scan.done)

	var (
		xml    []byte
		runErr error
	)

	proc, err := s.runner.Start(ctx, scan.info.Command)
	if err != nil {
		runErr = err
	} else {
		s.mu.Lock()
		scan.proc = proc
		stopped := scan.stopped
		s.mu.Unlock()

		if stopped {
			_ = proc.Terminate()
		}
		xml, runErr = s.collect(proc)
	}

	s.finish(scan, xml, runErr, log)
}

// collect streams stderr lines to the sink and returns stdout.
func (s *Session) collect(proc Process) ([]byte, error) {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(proc.Stderr())
		scanner.Buffer(make([]byte, 0, 64*1024), maxStderrLine)
		for scanner.Scan() {
			s.sink.Output(scanner.Text() + "\n")
		}
		if err := scanner.Err(); err != nil {
			s.logger.Debug("stderr stream ended", "error", err)
		}
	}()

	out, readErr := io.ReadAll(proc.Stdout())
	wg.Wait()

	// Exit status is not reported; stopped scans exit non-zero.
	if err := proc.Wait(); err != nil {
		s.logger.Debug("nmap exited", "error", err)
	}

	return out, readErr
}

func (s *Session) finish(scan *activeScan, xml []byte, runErr error, log *logging.Logger) {
	s.mu.Lock()
	stopped := scan.stopped
	s.mu.Unlock()

	completion := Completion{
		ScanInfo:   scan.info,
		Status:     StatusCompleted,
		XML:        xml,
		FinishedAt: s.now(),
	}

	switch {
	case runErr != nil:
		completion.Status = StatusFailed
		completion.Error = s.reportFailure(runErr)
	case stopped:
		completion.Status = StatusStopped
	}

	if result, err := nmapxml.Parse(xml); err == nil {
		completion.HostCount = len(result.Hosts)
		completion.OpenPortCount = result.OpenPortCount()
	}

	s.sink.Output(completeMarker)
	completion.Summary = report.Summary(xml)

	s.sink.Completed(completion)

	s.mu.Lock()
	s.last = &completion
	s.current = nil
	s.mu.Unlock()

	log.InfoScan("Scan finished", scan.info.Target,
		"status", completion.Status,
		"duration", completion.Duration(),
		"hosts", completion.HostCount,
		"open_ports", completion.OpenPortCount)

	s.recordMetrics(&completion, runErr)
	s.recordHistory(&completion)

	if scan.info.Alarm && s.alarm != nil {
		time.AfterFunc(s.alarmDelay, s.alarm.Start)
		if s.prom != nil {
			s.prom.IncrementAlarms()
		}
	}
}

// reportFailure writes the operator message for a failed launch and returns it.
func (s *Session) reportFailure(err error) string {
	var msg string
	if IsNotFound(err) {
		msg = errors.MsgNmapNotFound + "\n"
		err = errors.ErrNmapNotFound(err)
	} else {
		msg = fmt.Sprintf(unexpectedError, err)
		err = errors.Wrap(errors.CodeScanFailed, "scan failed", err)
	}
	s.sink.Output(msg)
	s.logger.Error("Scan failed", "error", err)
	return msg
}

func (s *Session) recordMetrics(c *Completion, runErr error) {
	if s.registry != nil {
		s.registry.Counter(metrics.MetricScanTotal, metrics.Labels{metrics.LabelStatus: c.Status})
		s.registry.Histogram(metrics.MetricScanDuration, c.Duration().Seconds(),
			metrics.Labels{metrics.LabelStatus: c.Status})
		s.registry.Gauge(metrics.MetricHostsFound, float64(c.HostCount), nil)
		s.registry.Gauge(metrics.MetricOpenPorts, float64(c.OpenPortCount), nil)
	}
	if s.prom != nil {
		s.prom.SetScanActive(false)
		s.prom.ObserveScan(c.Status, c.Duration(), c.HostCount, c.OpenPortCount)
		if runErr != nil {
			s.prom.IncrementScanErrors(string(errors.GetCode(runErr)))
		}
	}
}

func (s *Session) recordHistory(c *Completion) {
	if s.store == nil {
		return
	}

	rec := &history.ScanRecord{
		ID:            c.ID,
		Target:        c.Target,
		Command:       c.CommandLine(),
		Status:        c.Status,
		XMLOutput:     string(c.XML),
		HostCount:     c.HostCount,
		OpenPortCount: c.OpenPortCount,
		StartedAt:     c.StartedAt,
		FinishedAt:    c.FinishedAt,
	}
	if c.Error != "" {
		rec.ErrorMessage = sql.NullString{String: c.Error, Valid: true}
	}

	ctx, cancel := context.WithTimeout(context.Background(), historyTimeout)
	defer cancel()

	if err := s.store.Record(ctx, rec); err != nil {
		s.logger.ErrorHistory("Failed to record scan", err, "scan_id", c.ID)
		return
	}
	s.logger.InfoHistory("Scan recorded", "scan_id", c.ID)
}

func (s *Session) countRejected() {
	if s.registry != nil {
		s.registry.Counter(metrics.MetricScansRejected, nil)
	}
	if s.prom != nil {
		s.prom.IncrementScansRejected()
	}
}

// Stop terminates the running scan. It reports false when nothing was running.
func (s *Session) Stop() bool {
	s.mu.Lock()
	scan := s.current
	if scan == nil || scan.stopped {
		s.mu.Unlock()
		return false
	}
	scan.stopped = true
	proc := scan.proc
	s.mu.Unlock()

	s.sink.Output(terminatedLine)

	if proc != nil {
		if err := proc.Terminate(); err != nil {
			s.logger.Warn("Failed to terminate nmap", "error", err)
		}
	}

	s.logger.InfoScan("Scan stopped by user", scan.info.Target)
	return true
}

// Wait blocks until the running scan, if any, has completed.
func (s *Session) Wait(ctx context.Context) error {
	s.mu.Lock()
	scan := s.current
	s.mu.Unlock()

	if scan == nil {
		return nil
	}

	select {
	case <-scan.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close terminates any running scan and waits for it to finish.
func (s *Session) Close(ctx context.Context) error {
	s.stopAll()
	return s.Wait(ctx)
}

// Running reports whether a scan is in progress.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil
}

// Status returns a snapshot of the session.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{Running: s.current != nil, Last: s.last}
	if s.current != nil {
		info := s.current.info
		st.Current = &info
	}
	return st
}

// Last returns the most recent completion, if any.
func (s *Session) Last() (*Completion, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.last != nil
}

// LastXML returns the XML collected by the most recent scan. It is empty
// from the moment the next scan starts.
func (s *Session) LastXML() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil
	}
	return s.last.XML
}

// Results returns the XML of the last finished scan. Summary, report and
// graph actions are unavailable while a scan is running.
func (s *Session) Results() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		return nil, errors.ErrScanInProgress(s.current.info.Target)
	}
	if s.last == nil {
		return nil, nil
	}
	return s.last.XML, nil
}

// Target returns the target of the most recently started scan.
func (s *Session) Target() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target
}

// SetSink replaces the event sink. It must be called before the first Start.
func (s *Session) SetSink(sink Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sink = sink
}
