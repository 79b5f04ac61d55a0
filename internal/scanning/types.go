package scanning

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Scan outcomes, shared with the history store.
const (
	StatusCompleted = "completed"
	StatusStopped   = "stopped"
	StatusFailed    = "failed"
)

// Output lines written by the session.
const (
	completeMarker  = "\n--- Scan Complete ---"
	terminatedLine  = "\nScan terminated by user.\n"
	executingFormat = "Executing command: %s\n\n"
	unexpectedError = "An unexpected error occurred: %v\n"
)

// ScanInfo describes a started scan.
type ScanInfo struct {
	ID        uuid.UUID `json:"id"`
	Target    string    `json:"target"`
	Command   []string  `json:"command"`
	Alarm     bool      `json:"alarm"`
	Warning   string    `json:"warning,omitempty"`
	StartedAt time.Time `json:"started_at"`
}

// CommandLine is the argument vector joined by spaces.
func (i *ScanInfo) CommandLine() string {
	return strings.Join(i.Command, " ")
}

// Completion is the outcome of a finished scan.
type Completion struct {
	ScanInfo
	Status        string    `json:"status"`
	XML           []byte    `json:"-"`
	Summary       string    `json:"summary"`
	HostCount     int       `json:"host_count"`
	OpenPortCount int       `json:"open_port_count"`
	FinishedAt    time.Time `json:"finished_at"`
	Error         string    `json:"error,omitempty"`
}

// Duration is the wall time of the scan.
func (c *Completion) Duration() time.Duration {
	return c.FinishedAt.Sub(c.StartedAt)
}

// HasResults reports whether the scan produced any XML.
func (c *Completion) HasResults() bool {
	return len(c.XML) > 0
}

// Status is a snapshot of the session.
type Status struct {
	Running bool        `json:"running"`
	Current *ScanInfo   `json:"current,omitempty"`
	Last    *Completion `json:"last,omitempty"`
}

// Sink receives session events. Implementations must not block for long;
// Output is called from the scan goroutine for every stderr line.
type Sink interface {
	Started(info ScanInfo)
	Output(text string)
	Completed(result Completion)
}

// NopSink discards all events.
type NopSink struct{}

// Started implements Sink.
func (NopSink) Started(ScanInfo) {}

// Output implements Sink.
func (NopSink) Output(string) {}

// Completed implements Sink.
func (NopSink) Completed(Completion) {}
