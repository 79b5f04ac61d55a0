package cli

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/anstrom/uplink/internal/followup"
	"github.com/anstrom/uplink/internal/scanning"
)

var (
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed, color.Bold)
	successColor = color.New(color.FgGreen, color.Bold)
	headingColor = color.New(color.FgCyan, color.Bold)
)

// writerSink prints scan and follow-up events to a terminal.
type writerSink struct {
	mu  sync.Mutex
	out io.Writer
}

func newWriterSink(out io.Writer) *writerSink {
	return &writerSink{out: out}
}

func (s *writerSink) Started(info scanning.ScanInfo) {
	if info.Warning == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = warnColor.Fprintln(s.out, info.Warning)
}

func (s *writerSink) Output(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = fmt.Fprint(s.out, text)
}

func (s *writerSink) Completed(result scanning.Completion) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch result.Status {
	case scanning.StatusCompleted:
		_, _ = successColor.Fprintf(s.out, "\nScan completed in %s: %d host(s), %d open port(s)\n",
			result.Duration().Round(100*time.Millisecond), result.HostCount, result.OpenPortCount)
	case scanning.StatusStopped:
		_, _ = warnColor.Fprintln(s.out, "\nScan stopped")
	default:
		_, _ = errorColor.Fprintf(s.out, "\nScan failed: %s\n", result.Error)
	}

	if result.Summary != "" {
		_, _ = headingColor.Fprintln(s.out, "\nSummary")
		_, _ = fmt.Fprintln(s.out, result.Summary)
	}
}

func (s *writerSink) FollowupOutput(_ followup.Action, _ string, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = fmt.Fprint(s.out, text)
}
