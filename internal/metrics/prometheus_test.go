package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusMetrics_HTTPHandlerServes(t *testing.T) {
	pm := NewPrometheusMetrics()
	pm.UpdateSystemMetrics()

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	promhttp.HandlerFor(pm.GetRegistry(), promhttp.HandlerOpts{}).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "uplink_system_uptime_seconds")
	assert.Contains(t, rr.Body.String(), "uplink_scan_active")
}

func TestPrometheusMetrics_ObserveScan(t *testing.T) {
	pm := NewPrometheusMetrics()

	pm.ObserveScan("completed", 3*time.Second, 2, 5)
	pm.ObserveScan("completed", time.Second, 1, 0)
	pm.ObserveScan("stopped", time.Second, 0, 0)

	assert.Equal(t, 2, testutil.CollectAndCount(pm.scansTotal))
	assert.InDelta(t, 2.0, testutil.ToFloat64(pm.scansTotal.WithLabelValues("completed")), 0)
	assert.InDelta(t, 3.0, testutil.ToFloat64(pm.hostsFound), 0)
	assert.InDelta(t, 5.0, testutil.ToFloat64(pm.openPorts), 0)
}

func TestPrometheusMetrics_ScanState(t *testing.T) {
	pm := NewPrometheusMetrics()

	pm.SetScanActive(true)
	assert.InDelta(t, 1.0, testutil.ToFloat64(pm.activeScans), 0)
	pm.SetScanActive(false)
	assert.InDelta(t, 0.0, testutil.ToFloat64(pm.activeScans), 0)

	pm.IncrementScansRejected()
	pm.IncrementAlarms()
	pm.IncrementScanErrors("BINARY_NOT_FOUND")
	assert.InDelta(t, 1.0, testutil.ToFloat64(pm.scansRejected), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(pm.alarmsRaised), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(pm.scanErrors))
}

func TestPrometheusMetrics_Followups(t *testing.T) {
	pm := NewPrometheusMetrics()

	pm.ObserveFollowup("ping", time.Second, true)
	pm.ObserveFollowup("ping", time.Second, false)
	pm.ObserveFollowup("traceroute", 2*time.Second, true)

	assert.Equal(t, 3, testutil.CollectAndCount(pm.followupTotal))
	assert.Equal(t, 2, testutil.CollectAndCount(pm.followupDuration))
	assert.InDelta(t, 1.0, testutil.ToFloat64(pm.followupTotal.WithLabelValues("ping", "error")), 0)
}

func TestPrometheusMetrics_HistoryAndAPI(t *testing.T) {
	pm := NewPrometheusMetrics()

	pm.ObserveHistoryQuery("record", 5*time.Millisecond, true)
	pm.ObserveHistoryQuery("list", 5*time.Millisecond, false)
	assert.Equal(t, 2, testutil.CollectAndCount(pm.historyQueries))

	pm.ObserveHTTPRequest("GET", "/api/v1/scan", "200", time.Millisecond)
	pm.ObserveHTTPRequest("POST", "/api/v1/scan", "409", time.Millisecond)
	assert.Equal(t, 2, testutil.CollectAndCount(pm.httpRequests))

	pm.SetEventClients(3)
	pm.IncrementEvents("output")
	assert.InDelta(t, 3.0, testutil.ToFloat64(pm.eventClients), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(pm.eventMessages))
}

func TestPrometheusMetrics_PeriodicUpdates(t *testing.T) {
	pm := NewPrometheusMetrics()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		pm.StartPeriodicUpdates(ctx, 5*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return !pm.GetLastUpdate().IsZero() },
		time.Second, time.Millisecond)
	cancel()
	<-done

	assert.Greater(t, pm.GetUptime(), time.Duration(0))
}

func TestGetGlobalMetrics_Singleton(t *testing.T) {
	assert.Same(t, GetGlobalMetrics(), GetGlobalMetrics())

	families, err := GetGlobalMetrics().GetRegistry().Gather()
	require.NoError(t, err)
	found := false
	for _, f := range families {
		if strings.HasPrefix(f.GetName(), "go_") {
			found = true
		}
	}
	assert.True(t, found)
}
