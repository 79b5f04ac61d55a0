package followup

import (
	"context"
	stderrors "errors"
	"io"
	"net"
	"os/exec"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gosnmp/gosnmp"
	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/anstrom/uplink/internal/config"
	"github.com/anstrom/uplink/internal/errors"
	"github.com/anstrom/uplink/internal/metrics"
	metricsmocks "github.com/anstrom/uplink/internal/metrics/mocks"
	"github.com/anstrom/uplink/internal/scanning/mocks"
	"github.com/anstrom/uplink/internal/workers"
)

type capture struct {
	mu    sync.Mutex
	lines []string
}

func (c *capture) FollowupOutput(_ Action, _ string, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, text)
}

func (c *capture) Text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return strings.Join(c.lines, "")
}

func testConfig() config.FollowupConfig {
	return config.FollowupConfig{
		WorkerPoolSize: 1,
		QueueSize:      4,
		Timeout:        2 * time.Second,
	}
}

func expectProcess(ctrl *gomock.Controller, stdout, stderr string, waitErr error) *mocks.MockProcess {
	proc := mocks.NewMockProcess(ctrl)
	proc.EXPECT().Stdout().Return(io.Reader(strings.NewReader(stdout)))
	proc.EXPECT().Stderr().Return(io.Reader(strings.NewReader(stderr)))
	proc.EXPECT().Wait().Return(waitErr)
	return proc
}

func TestParseAction(t *testing.T) {
	for _, a := range Actions {
		got, err := ParseAction(strings.ToUpper(string(a)))
		require.NoError(t, err)
		assert.Equal(t, a, got)
	}

	_, err := ParseAction("whois")
	assert.True(t, errors.IsCode(err, errors.CodeValidation))
}

func TestHeader(t *testing.T) {
	assert.Equal(t, "\n\n--- Pinging 10.0.0.1 ---\n", ActionPing.Header("10.0.0.1"))
	assert.Equal(t, "\n\n--- Tracerouting 10.0.0.1 ---\n", ActionTraceroute.Header("10.0.0.1"))
}

func TestCommands(t *testing.T) {
	tests := []struct {
		goos       string
		ping       []string
		traceroute []string
	}{
		{"linux", []string{"ping", "-c", "4", "h"}, []string{"traceroute", "h"}},
		{"darwin", []string{"ping", "-c", "4", "h"}, []string{"traceroute", "h"}},
		{"windows", []string{"ping", "-n", "4", "h"}, []string{"tracert", "h"}},
	}
	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			s := NewService(nil, &capture{}, testConfig(), WithOS(tt.goos))
			assert.Equal(t, tt.ping, s.pingCommand("h"))
			assert.Equal(t, tt.traceroute, s.tracerouteCommand("h"))
		})
	}
}

func TestExecute_PingStdoutThenStderr(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := mocks.NewMockRunner(ctrl)
	proc := expectProcess(ctrl,
		"PING 10.0.0.1\n64 bytes from 10.0.0.1\n",
		"ping: warning\n",
		stderrors.New("exit status 1"))
	runner.EXPECT().Start(gomock.Any(), []string{"ping", "-c", "4", "10.0.0.1"}).Return(proc, nil)

	out := &capture{}
	s := NewService(runner, out, testConfig(), WithOS("linux"))

	require.NoError(t, s.Execute(context.Background(), ActionPing, "10.0.0.1"))
	assert.Equal(t,
		"\n\n--- Pinging 10.0.0.1 ---\nPING 10.0.0.1\n64 bytes from 10.0.0.1\nping: warning\n",
		out.Text())
}

func TestExecute_StreamsLinesWhileRunning(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := mocks.NewMockRunner(ctrl)

	stdout, stdoutW := io.Pipe()
	proc := mocks.NewMockProcess(ctrl)
	proc.EXPECT().Stdout().Return(stdout)
	proc.EXPECT().Stderr().Return(io.Reader(strings.NewReader("")))
	proc.EXPECT().Wait().Return(nil)
	runner.EXPECT().Start(gomock.Any(), []string{"ping", "-c", "4", "10.0.0.1"}).Return(proc, nil)

	out := &capture{}
	s := NewService(runner, out, testConfig(), WithOS("linux"))

	done := make(chan error, 1)
	go func() { done <- s.Execute(context.Background(), ActionPing, "10.0.0.1") }()

	_, err := io.WriteString(stdoutW, "64 bytes from 10.0.0.1: icmp_seq=1\n")
	require.NoError(t, err)
	assert.Eventually(t, func() bool {
		return strings.HasSuffix(out.Text(), "icmp_seq=1\n")
	}, time.Second, 5*time.Millisecond)

	_, err = io.WriteString(stdoutW, "64 bytes from 10.0.0.1: icmp_seq=2\n")
	require.NoError(t, err)
	require.NoError(t, stdoutW.Close())
	require.NoError(t, <-done)

	assert.Equal(t,
		"\n\n--- Pinging 10.0.0.1 ---\n64 bytes from 10.0.0.1: icmp_seq=1\n64 bytes from 10.0.0.1: icmp_seq=2\n",
		out.Text())
}

func TestExecute_UtilityErrors(t *testing.T) {
	tests := []struct {
		name     string
		startErr error
		want     string
		code     errors.ErrorCode
	}{
		{
			name:     "not found",
			startErr: exec.ErrNotFound,
			want:     "Error: Command not found. Please ensure it is installed and in your system's PATH.\n",
		},
		{
			name:     "unexpected",
			startErr: stderrors.New("permission denied"),
			want:     "An unexpected error occurred: permission denied\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			runner := mocks.NewMockRunner(ctrl)
			runner.EXPECT().Start(gomock.Any(), gomock.Any()).Return(nil, tt.startErr)

			out := &capture{}
			s := NewService(runner, out, testConfig(), WithOS("linux"))

			err := s.Execute(context.Background(), ActionTraceroute, "10.0.0.1")
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.CodeFollowupFailed))
			assert.Equal(t, "\n\n--- Tracerouting 10.0.0.1 ---\n"+tt.want, out.Text())
		})
	}
}

func TestResolveHost(t *testing.T) {
	target := ""
	s := NewService(nil, &capture{}, testConfig(), WithTarget(func() string { return target }))

	_, err := s.ResolveHost("")
	assert.True(t, errors.IsCode(err, errors.CodeNoScanData))

	target = "192.168.1.10"
	host, err := s.ResolveHost("  ")
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.10", host)

	host, err = s.ResolveHost("10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", host)
}

func TestSubmit_RunsOnPool(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := mocks.NewMockRunner(ctrl)
	proc := expectProcess(ctrl, "reply\n", "", nil)
	runner.EXPECT().Start(gomock.Any(), []string{"ping", "-c", "4", "192.168.1.10"}).Return(proc, nil)

	registry := metricsmocks.NewMockMetricsRegistry(ctrl)
	registry.EXPECT().Counter(metrics.MetricFollowupTotal, metrics.Labels{
		metrics.LabelAction: "ping",
		metrics.LabelStatus: "success",
	})
	registry.EXPECT().Histogram(metrics.MetricFollowupDuration, gomock.Any(),
		metrics.Labels{metrics.LabelAction: "ping"})

	pool := workers.New(workers.Config{Size: 1, QueueSize: 2, ShutdownTimeout: time.Second})
	pool.Start()
	defer func() { _ = pool.Shutdown() }()

	out := &capture{}
	s := NewService(runner, out, testConfig(),
		WithPool(pool),
		WithOS("linux"),
		WithTarget(func() string { return "192.168.1.10" }),
		WithMetrics(registry, nil))

	id, err := s.Submit(ActionPing, "")
	require.NoError(t, err)
	assert.Equal(t, "ping-1", id)

	select {
	case res := <-pool.Results():
		assert.Equal(t, id, res.JobID)
		assert.Equal(t, "ping", res.JobType)
		assert.NoError(t, res.Error)
	case <-time.After(5 * time.Second):
		t.Fatal("follow-up did not finish")
	}
	assert.Contains(t, out.Text(), "reply\n")
}

func TestSubmit_NoTarget(t *testing.T) {
	s := NewService(nil, &capture{}, testConfig())
	_, err := s.Submit(ActionPing, "")
	assert.True(t, errors.IsCode(err, errors.CodeNoScanData))
}

func startDNS(t *testing.T, handler dns.HandlerFunc) string {
	t.Helper()
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	started := make(chan struct{})
	srv := &dns.Server{PacketConn: pc, Handler: handler, NotifyStartedFunc: func() { close(started) }}
	go func() { _ = srv.ActivateAndServe() }()
	<-started
	t.Cleanup(func() { _ = srv.Shutdown() })
	return pc.LocalAddr().String()
}

func TestExecute_ReverseDNS(t *testing.T) {
	server := startDNS(t, func(w dns.ResponseWriter, r *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(r)
		q := r.Question[0]
		if q.Qtype == dns.TypePTR && q.Name == "1.1.168.192.in-addr.arpa." {
			m.Answer = append(m.Answer, &dns.PTR{
				Hdr: dns.RR_Header{Name: q.Name, Rrtype: dns.TypePTR, Class: dns.ClassINET, Ttl: 60},
				Ptr: "router.lan.",
			})
		} else {
			m.Rcode = dns.RcodeNameError
		}
		_ = w.WriteMsg(m)
	})

	cfg := testConfig()
	cfg.DNSServer = server
	out := &capture{}
	s := NewService(nil, out, cfg)

	require.NoError(t, s.Execute(context.Background(), ActionDNS, "192.168.1.1"))
	text := out.Text()
	assert.Contains(t, text, "--- Resolving 192.168.1.1 ---")
	assert.Contains(t, text, "PTR 1.1.168.192.in-addr.arpa. -> router.lan\n")
}

func TestExecute_ForwardDNS(t *testing.T) {
	server := startDNS(t, func(w dns.ResponseWriter, r *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(r)
		q := r.Question[0]
		if q.Qtype == dns.TypeA {
			m.Answer = append(m.Answer, &dns.A{
				Hdr: dns.RR_Header{Name: q.Name, Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: 60},
				A:   net.ParseIP("10.1.2.3"),
			})
		}
		_ = w.WriteMsg(m)
	})

	cfg := testConfig()
	cfg.DNSServer = server
	out := &capture{}
	s := NewService(nil, out, cfg)

	require.NoError(t, s.Execute(context.Background(), ActionDNS, "nas.lan"))
	text := out.Text()
	assert.Contains(t, text, "A nas.lan. -> 10.1.2.3\n")
	assert.Contains(t, text, "AAAA nas.lan.: no records\n")
}

func TestDNSServer_AddsDefaultPort(t *testing.T) {
	cfg := testConfig()
	cfg.DNSServer = "9.9.9.9"
	s := NewService(nil, &capture{}, cfg)

	server, err := s.dnsServer()
	require.NoError(t, err)
	assert.Equal(t, "9.9.9.9:53", server)
}

func TestFormatVariable(t *testing.T) {
	tests := []struct {
		name string
		pdu  gosnmp.SnmpPDU
		want string
	}{
		{"octet string", gosnmp.SnmpPDU{Type: gosnmp.OctetString, Value: []byte("Linux gw 6.1 ")}, "Linux gw 6.1"},
		{"time ticks", gosnmp.SnmpPDU{Type: gosnmp.TimeTicks, Value: uint32(6000)}, "1m0s"},
		{"no such object", gosnmp.SnmpPDU{Type: gosnmp.NoSuchObject}, ""},
		{"integer", gosnmp.SnmpPDU{Type: gosnmp.Integer, Value: 42}, "42"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatVariable(tt.pdu))
		})
	}
}

func TestExecute_SNMPUnreachable(t *testing.T) {
	// Reserve a UDP port and release it so nothing answers there.
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	port := pc.LocalAddr().(*net.UDPAddr).Port
	require.NoError(t, pc.Close())

	cfg := testConfig()
	cfg.Timeout = 200 * time.Millisecond
	cfg.SNMPPort = uint16(port)
	out := &capture{}
	s := NewService(nil, out, cfg)

	err = s.Execute(context.Background(), ActionSNMP, "127.0.0.1")
	require.Error(t, err)
	assert.Contains(t, out.Text(), "An unexpected error occurred:")
}

func TestSweepRange(t *testing.T) {
	assert.Equal(t, "192.168.1.0/24", SweepRange("192.168.1.77"))
	assert.Equal(t, "10.0.0.0/16", SweepRange("10.0.0.0/16"))
	assert.Equal(t, "nas.lan", SweepRange("nas.lan"))
}

func TestSweepOptions(t *testing.T) {
	s := NewService(nil, &capture{}, testConfig())
	assert.Len(t, s.sweepOptions("192.168.1.0/24"), 3)

	s = NewService(nil, &capture{}, testConfig(), WithNmapBinary("/opt/nmap/bin/nmap"))
	assert.Len(t, s.sweepOptions("192.168.1.0/24"), 4)
}

func TestExecute_SweepMissingBinary(t *testing.T) {
	out := &capture{}
	s := NewService(nil, out, testConfig(), WithNmapBinary("/nonexistent/uplink-nmap"))

	err := s.Execute(context.Background(), ActionSweep, "192.168.1.77")
	require.Error(t, err)
	text := out.Text()
	assert.Contains(t, text, "--- Sweeping 192.168.1.77 ---")
	assert.Contains(t, text, "Network: 192.168.1.0/24\n")
	assert.Contains(t, text, "An unexpected error occurred:")
}
