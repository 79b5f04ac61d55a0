package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/anstrom/uplink/internal/config"
)

const (
	apiClientTimeout = 30 * time.Second
	userAgent        = "uplink-cli/1.0"
)

// serverURL is set by --server on commands that talk to a running server.
var serverURL string

// APIClient calls the REST API of a running uplink server.
type APIClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// APIError is a non-2xx API response.
type APIError struct {
	StatusCode int
	Message    string
	Code       string
	RequestID  string
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("API error (status %d, request %s): %s", e.StatusCode, e.RequestID, e.Message)
	}
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Message)
}

// NewAPIClient returns a client for baseURL, e.g. http://127.0.0.1:8088.
// An empty apiKey sends no credentials.
func NewAPIClient(baseURL, apiKey string) *APIClient {
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/") + "/api/v1",
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: apiClientTimeout,
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 30 * time.Second,
			},
		},
	}
}

// newAPIClientFromConfig builds a client for the configured server.
func newAPIClientFromConfig() (*APIClient, error) {
	base := serverURL
	if base == "" {
		cfg, err := loadConfig()
		if err != nil {
			return nil, err
		}
		base = defaultServerURL(cfg)
	}
	return NewAPIClient(base, apiKeyFromEnv()), nil
}

// defaultServerURL maps a wildcard listen address to loopback.
func defaultServerURL(cfg *config.Config) string {
	host := cfg.API.ListenAddr
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(cfg.API.Port))
}

// apiKeyFromEnv reads UPLINK_API_KEY, then the file named by UPLINK_API_KEY_FILE.
func apiKeyFromEnv() string {
	if key := os.Getenv("UPLINK_API_KEY"); key != "" {
		return key
	}
	if keyFile := os.Getenv("UPLINK_API_KEY_FILE"); keyFile != "" && !strings.Contains(keyFile, "..") {
		if data, err := os.ReadFile(keyFile); err == nil { //nolint:gosec // operator-supplied path
			return strings.TrimSpace(string(data))
		}
	}
	return ""
}

// Get performs a GET request and decodes the response into out.
func (c *APIClient) Get(ctx context.Context, endpoint string, out interface{}) error {
	return c.request(ctx, http.MethodGet, endpoint, nil, out)
}

// Post performs a POST request with a JSON payload.
func (c *APIClient) Post(ctx context.Context, endpoint string, payload, out interface{}) error {
	return c.request(ctx, http.MethodPost, endpoint, payload, out)
}

// Delete performs a DELETE request.
func (c *APIClient) Delete(ctx context.Context, endpoint string, out interface{}) error {
	return c.request(ctx, http.MethodDelete, endpoint, nil, out)
}

func (c *APIClient) request(ctx context.Context, method, endpoint string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return newAPIError(resp.StatusCode, data)
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if raw, ok := out.(*[]byte); ok {
		*raw = data
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func newAPIError(status int, data []byte) *APIError {
	var body struct {
		Error     string `json:"error"`
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id"`
	}
	apiErr := &APIError{StatusCode: status}
	if err := json.Unmarshal(data, &body); err != nil {
		apiErr.Message = strings.TrimSpace(string(data))
	} else {
		apiErr.Message = body.Message
		if apiErr.Message == "" {
			apiErr.Message = body.Error
		}
		apiErr.Code = body.Code
		apiErr.RequestID = body.RequestID
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	if status == http.StatusUnauthorized {
		apiErr.Message += " (set UPLINK_API_KEY or UPLINK_API_KEY_FILE)"
	}
	return apiErr
}
