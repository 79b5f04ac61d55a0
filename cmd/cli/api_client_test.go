package cli

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anstrom/uplink/internal/scheduler"
)

func TestAPIClient_Get(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/scan", r.URL.Path)
		assert.Equal(t, "upl_testkey", r.Header.Get("X-API-Key"))
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"running":true}`))
	}))
	defer server.Close()

	client := NewAPIClient(server.URL+"/", "upl_testkey")

	var status struct {
		Running bool `json:"running"`
	}
	require.NoError(t, client.Get(context.Background(), "/scan", &status))
	assert.True(t, status.Running)
}

func TestAPIClient_PostAndRaw(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/scan":
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "10.0.0.1", body["target"])
			w.WriteHeader(http.StatusAccepted)
			_, _ = w.Write([]byte(`{"target":"10.0.0.1"}`))
		case "/api/v1/scan/xml":
			_, _ = w.Write([]byte("<nmaprun/>"))
		}
	}))
	defer server.Close()

	client := NewAPIClient(server.URL, "")

	var info map[string]string
	require.NoError(t, client.Post(context.Background(), "/scan", map[string]string{"target": "10.0.0.1"}, &info))
	assert.Equal(t, "10.0.0.1", info["target"])

	var raw []byte
	require.NoError(t, client.Get(context.Background(), "/scan/xml", &raw))
	assert.Equal(t, "<nmaprun/>", string(raw))
}

func TestAPIClient_Errors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
		wantCode    string
		wantRequest string
	}{
		{
			name:        "structured error",
			status:      http.StatusConflict,
			body:        `{"error":"Conflict","code":"SCAN_IN_PROGRESS","message":"A scan is already running","request_id":"req-1"}`,
			wantMessage: "A scan is already running",
			wantCode:    "SCAN_IN_PROGRESS",
			wantRequest: "req-1",
		},
		{
			name:        "plain text",
			status:      http.StatusBadGateway,
			body:        "upstream down\n",
			wantMessage: "upstream down",
		},
		{
			name:        "empty body",
			status:      http.StatusNotFound,
			wantMessage: "Not Found",
		},
		{
			name:        "unauthorized hint",
			status:      http.StatusUnauthorized,
			body:        `{"error":"Unauthorized","message":"Valid API key required"}`,
			wantMessage: "Valid API key required (set UPLINK_API_KEY or UPLINK_API_KEY_FILE)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			err := NewAPIClient(server.URL, "").Delete(context.Background(), "/presets/x", nil)
			require.Error(t, err)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantMessage, apiErr.Message)
			assert.Equal(t, tt.wantCode, apiErr.Code)
			assert.Equal(t, tt.wantRequest, apiErr.RequestID)
		})
	}
}

func TestAPIKeyFromEnv(t *testing.T) {
	t.Setenv("UPLINK_API_KEY", "")
	t.Setenv("UPLINK_API_KEY_FILE", "")
	assert.Empty(t, apiKeyFromEnv())

	keyFile := filepath.Join(t.TempDir(), "key")
	require.NoError(t, os.WriteFile(keyFile, []byte("upl_fromfile\n"), 0o600))
	t.Setenv("UPLINK_API_KEY_FILE", keyFile)
	assert.Equal(t, "upl_fromfile", apiKeyFromEnv())

	t.Setenv("UPLINK_API_KEY", "upl_fromenv")
	assert.Equal(t, "upl_fromenv", apiKeyFromEnv())
}

func TestScheduleCommands(t *testing.T) {
	jobID := uuid.New()
	job := scheduler.ScheduledJob{
		ID:             jobID,
		Name:           "nightly",
		CronExpression: "0 2 * * *",
		Config:         scheduler.ScanJobConfig{Target: "192.168.1.0/24", Preset: "quick"},
		Enabled:        true,
		NextRun:        time.Date(2026, 3, 2, 2, 0, 0, 0, time.UTC),
		Runs:           3,
		Skipped:        1,
	}

	var (
		mu      sync.Mutex
		created map[string]interface{}
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/schedules":
			_ = json.NewEncoder(w).Encode([]scheduler.ScheduledJob{job})
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/schedules":
			mu.Lock()
			_ = json.NewDecoder(r.Body).Decode(&created)
			mu.Unlock()
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(job)
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/schedules/"+jobID.String()+"/run":
			w.WriteHeader(http.StatusAccepted)
			_ = json.NewEncoder(w).Encode(job)
		case r.Method == http.MethodDelete && r.URL.Path == "/api/v1/schedules/"+jobID.String():
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"Not Found","message":"Schedule not found"}`))
		}
	}))
	defer server.Close()

	cfgPath := writeConfig(t, nil)

	out, err := execute(t, cfgPath, "schedule", "list", "--server", server.URL)
	require.NoError(t, err)
	assert.Contains(t, out, jobID.String())
	assert.Contains(t, out, "nightly")
	assert.Contains(t, out, "192.168.1.0/24")

	out, err = execute(t, cfgPath, "schedule", "add", "nightly", "0 2 * * *", "192.168.1.0/24",
		"--preset", "quick", "--disabled", "--server", server.URL)
	require.NoError(t, err)
	assert.Contains(t, out, `Scheduled "nightly"`)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "0 2 * * *", created["cron_expr"])
	assert.Equal(t, "quick", created["preset"])
	assert.Equal(t, false, created["enabled"])

	out, err = execute(t, cfgPath, "schedule", "run", jobID.String(), "--server", server.URL)
	require.NoError(t, err)
	assert.Contains(t, out, `Started "nightly"`)

	out, err = execute(t, cfgPath, "schedule", "remove", jobID.String(), "--server", server.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "Removed schedule")

	_, err = execute(t, cfgPath, "schedule", "enable", uuid.NewString(), "--server", server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Schedule not found")
}
