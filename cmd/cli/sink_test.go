package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"github.com/anstrom/uplink/internal/followup"
	"github.com/anstrom/uplink/internal/scanning"
)

func TestWriterSink(t *testing.T) {
	color.NoColor = true
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		result scanning.Completion
		want   []string
	}{
		{
			name: "completed",
			result: scanning.Completion{
				ScanInfo:      scanning.ScanInfo{StartedAt: started},
				Status:        scanning.StatusCompleted,
				Summary:       "Host: 10.0.0.1",
				HostCount:     1,
				OpenPortCount: 2,
				FinishedAt:    started.Add(1500 * time.Millisecond),
			},
			want: []string{"Scan completed in 1.5s: 1 host(s), 2 open port(s)", "Summary", "Host: 10.0.0.1"},
		},
		{
			name:   "stopped",
			result: scanning.Completion{Status: scanning.StatusStopped},
			want:   []string{"Scan stopped"},
		},
		{
			name:   "failed",
			result: scanning.Completion{Status: scanning.StatusFailed, Error: "nmap not found"},
			want:   []string{"Scan failed: nmap not found"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			sink := newWriterSink(&buf)
			sink.Completed(tt.result)
			for _, want := range tt.want {
				assert.Contains(t, buf.String(), want)
			}
		})
	}
}

func TestWriterSink_OutputAndWarnings(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	sink := newWriterSink(&buf)

	sink.Started(scanning.ScanInfo{})
	assert.Empty(t, buf.String())

	sink.Started(scanning.ScanInfo{Warning: "Run as Administrator for this scan."})
	sink.Output("Starting Nmap\n")
	sink.FollowupOutput(followup.ActionPing, "10.0.0.1", "64 bytes\n")

	assert.Equal(t, "Run as Administrator for this scan.\nStarting Nmap\n64 bytes\n", buf.String())
}
