package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	apihandlers "github.com/anstrom/uplink/internal/api/handlers"
	"github.com/anstrom/uplink/internal/auth"
	"github.com/anstrom/uplink/internal/config"
	"github.com/anstrom/uplink/internal/graph"
	"github.com/anstrom/uplink/internal/logging"
	"github.com/anstrom/uplink/internal/metrics"
	"github.com/anstrom/uplink/internal/nmapxml/nmapxmltest"
	"github.com/anstrom/uplink/internal/options"
	"github.com/anstrom/uplink/internal/profiles"
	"github.com/anstrom/uplink/internal/scanning"
	"github.com/anstrom/uplink/internal/scanning/mocks"
)

const testAPIKey = "uplink_0123456789abcdef0123456789abcdef"

func createTestLogger() *logging.Logger {
	return logging.NewWithWriter(logging.DefaultConfig(), &bytes.Buffer{})
}

func createTestConfig() *config.Config {
	cfg := config.Default()
	cfg.API.RateLimit.Enabled = false
	cfg.API.RequestTimeout = 5 * time.Second
	return cfg
}

// newTestServer builds a server around a session driven by runner and runs
// its event hub until the test ends.
func newTestServer(t *testing.T, cfg *config.Config, runner scanning.Runner) *Server {
	t.Helper()
	logger := createTestLogger()
	catalog := options.DefaultCatalog()

	session := scanning.NewSession(catalog, runner,
		scanning.WithPlatform(options.Platform{OS: "linux", EUID: 0}),
		scanning.WithLogger(logger))
	manager, err := profiles.NewManager(catalog, nil)
	require.NoError(t, err)

	prom := metrics.NewPrometheusMetrics()
	hub := apihandlers.NewHub(logger, metrics.NewRegistry(), prom)
	session.SetSink(hub)

	s, err := New(cfg, apihandlers.Dependencies{
		Session:    session,
		Catalog:    catalog,
		Profiles:   manager,
		Visualizer: graph.NewVisualizer(),
		Hub:        hub,
		Logger:     logger,
		Registry:   metrics.NewRegistry(),
	}, prom)
	require.NoError(t, err)

	go s.hub.Run(s.ctx)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = session.Close(ctx)
		_ = s.Stop()
	})
	return s
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestNew_RequiresSessionAndVisualizer(t *testing.T) {
	_, err := New(createTestConfig(), apihandlers.Dependencies{}, nil)
	assert.Error(t, err)

	_, err = New(createTestConfig(), apihandlers.Dependencies{
		Session: scanning.NewSession(options.DefaultCatalog(), nil),
	}, nil)
	assert.Error(t, err)
}

func TestServer_Address(t *testing.T) {
	cfg := createTestConfig()
	cfg.API.ListenAddr = "0.0.0.0"
	cfg.API.Port = 9090
	s := newTestServer(t, cfg, nil)

	assert.Equal(t, "0.0.0.0:9090", s.GetAddress())
	assert.NotNil(t, s.GetRouter())
	assert.NotNil(t, s.Hub())
}

func TestServer_Routes(t *testing.T) {
	s := newTestServer(t, createTestConfig(), nil)

	tests := []struct {
		name        string
		method      string
		path        string
		status      int
		contentType string
		contains    string
	}{
		{"liveness", http.MethodGet, "/api/v1/liveness", http.StatusOK, "application/json", "alive"},
		{"version", http.MethodGet, "/api/v1/version", http.StatusOK, "application/json", "go_version"},
		{"options", http.MethodGet, "/api/v1/options", http.StatusOK, "application/json", "script_categories"},
		{"presets", http.MethodGet, "/api/v1/presets", http.StatusOK, "application/json", "quick"},
		{"scan status", http.MethodGet, "/api/v1/scan", http.StatusOK, "application/json", `"running":false`},
		{"summary before scan", http.MethodGet, "/api/v1/scan/summary", http.StatusUnprocessableEntity, "", ""},
		{"graph before scan", http.MethodPost, "/api/v1/graph", http.StatusUnprocessableEntity, "", ""},
		{"history disabled", http.MethodGet, "/api/v1/history", http.StatusServiceUnavailable, "", ""},
		{"ui root", http.MethodGet, "/", http.StatusOK, "text/html", "Nmap Uplink"},
		{"ui index", http.MethodGet, "/index.html", http.StatusOK, "text/html", "/api/v1/events"},
		{"metrics", http.MethodGet, "/metrics", http.StatusOK, "", "go_goroutines"},
		{"wrong method", http.MethodPut, "/api/v1/scan", http.StatusMethodNotAllowed, "application/json", "PUT is not supported"},
		{"wrong method on ui", http.MethodPost, "/", http.StatusMethodNotAllowed, "application/json", ""},
		{"unknown", http.MethodGet, "/api/v1/hosts", http.StatusNotFound, "application/json", "no endpoint at /api/v1/hosts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(s, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.contentType != "" {
				assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), tt.contentType),
					rec.Header().Get("Content-Type"))
			}
			if tt.contains != "" {
				assert.Contains(t, rec.Body.String(), tt.contains)
			}
		})
	}
}

func TestServer_DocsRedirect(t *testing.T) {
	s := newTestServer(t, createTestConfig(), nil)

	for _, path := range []string{"/docs", "/docs/"} {
		rec := serve(s, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusMovedPermanently, rec.Code)
		assert.Equal(t, "/swagger/index.html", rec.Header().Get("Location"))
	}

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Nmap Uplink API")
}

func TestServer_Middleware(t *testing.T) {
	s := newTestServer(t, createTestConfig(), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/liveness", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := serve(s, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))

	req = httptest.NewRequest(http.MethodPost, "/api/v1/command", strings.NewReader("target=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = serve(s, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	// The UI sits outside the API subrouter.
	rec = serve(s, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Empty(t, rec.Header().Get("X-Request-ID"))
}

func TestServer_BodyLimit(t *testing.T) {
	cfg := createTestConfig()
	cfg.API.MaxRequestSize = 64
	s := newTestServer(t, cfg, nil)

	body := `{"target":"` + strings.Repeat("a", 200) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/command", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := serve(s, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_Authentication(t *testing.T) {
	hash, err := auth.HashAPIKey(testAPIKey)
	require.NoError(t, err)

	cfg := createTestConfig()
	cfg.API.APIKeyHash = hash
	s := newTestServer(t, cfg, nil)

	tests := []struct {
		name   string
		path   string
		header map[string]string
		status int
	}{
		{"no key", "/api/v1/options", nil, http.StatusUnauthorized},
		{"wrong key", "/api/v1/options", map[string]string{"X-API-Key": "uplink_wrong"}, http.StatusUnauthorized},
		{"header key", "/api/v1/options", map[string]string{"X-API-Key": testAPIKey}, http.StatusOK},
		{"bearer key", "/api/v1/options", map[string]string{"Authorization": "Bearer " + testAPIKey}, http.StatusOK},
		{"query key without upgrade", "/api/v1/options?api_key=" + testAPIKey, nil, http.StatusUnauthorized},
		{"public health", "/api/v1/liveness", nil, http.StatusOK},
		{"public ui", "/", nil, http.StatusOK},
		{"public metrics", "/metrics", nil, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			rec := serve(s, req)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestServer_CORS(t *testing.T) {
	cfg := createTestConfig()
	cfg.API.CORS.Enabled = true
	cfg.API.CORS.AllowedOrigins = []string{"http://ui.example"}
	s := newTestServer(t, cfg, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/liveness", nil)
	req.Header.Set("Origin", "http://ui.example")
	rec := serve(s, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://ui.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/liveness", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = serve(s, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	sameHost := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
	sameHost.Host = "uplink.local:8088"
	sameHost.Header.Set("Origin", "http://uplink.local:8088")
	assert.True(t, s.allowedOrigin(sameHost))

	sameHost.Header.Set("Origin", "http://ui.example")
	assert.True(t, s.allowedOrigin(sameHost))

	sameHost.Header.Set("Origin", "http://evil.example")
	assert.False(t, s.allowedOrigin(sameHost))
}

type socketMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func TestServer_ScanOverEvents(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := mocks.NewMockRunner(ctrl)
	proc := mocks.NewMockProcess(ctrl)
	proc.EXPECT().Stdout().Return(strings.NewReader(nmapxmltest.TwoHosts))
	proc.EXPECT().Stderr().Return(strings.NewReader("Starting Nmap\n"))
	proc.EXPECT().Wait().Return(nil)
	runner.EXPECT().Start(gomock.Any(), gomock.Any()).Return(proc, nil)

	hash, err := auth.HashAPIKey(testAPIKey)
	require.NoError(t, err)
	cfg := createTestConfig()
	cfg.API.APIKeyHash = hash
	s := newTestServer(t, cfg, runner)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/events"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	if resp != nil {
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		_ = resp.Body.Close()
	}

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL+"?api_key="+testAPIKey, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })

	read := func() socketMessage {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
		var msg socketMessage
		require.NoError(t, conn.ReadJSON(&msg))
		return msg
	}

	state := read()
	require.Equal(t, apihandlers.EventState, state.Type)
	var snapshot apihandlers.StateEvent
	require.NoError(t, json.Unmarshal(state.Data, &snapshot))
	assert.False(t, snapshot.Scan.Running)

	body, err := json.Marshal(options.Form{Target: "192.168.1.1"})
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/v1/scan", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", testAPIKey)
	httpResp, err := ts.Client().Do(req)
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, httpResp.Body)
	_ = httpResp.Body.Close()
	require.Equal(t, http.StatusAccepted, httpResp.StatusCode)

	var kinds []string
	var output strings.Builder
	var completion scanning.Completion
	for {
		msg := read()
		kinds = append(kinds, msg.Type)
		if msg.Type == apihandlers.EventOutput {
			var ev apihandlers.OutputEvent
			require.NoError(t, json.Unmarshal(msg.Data, &ev))
			output.WriteString(ev.Text)
		}
		if msg.Type == apihandlers.EventScanCompleted {
			require.NoError(t, json.Unmarshal(msg.Data, &completion))
			break
		}
	}

	assert.Equal(t, apihandlers.EventScanStarted, kinds[0])
	assert.Contains(t, kinds, apihandlers.EventOutput)
	assert.Contains(t, output.String(), "Starting Nmap")
	assert.Equal(t, 2, completion.HostCount)

	req, err = http.NewRequest(http.MethodGet, ts.URL+"/api/v1/scan/summary", nil)
	require.NoError(t, err)
	req.Header.Set("X-API-Key", testAPIKey)
	httpResp, err = ts.Client().Do(req)
	require.NoError(t, err)
	defer httpResp.Body.Close()
	require.Equal(t, http.StatusOK, httpResp.StatusCode)
	var summary apihandlers.SummaryResponse
	require.NoError(t, json.NewDecoder(httpResp.Body).Decode(&summary))
	assert.Equal(t, completion.Summary, summary.Summary)
}
