package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/anstrom/uplink/internal/errors"
	"github.com/anstrom/uplink/internal/history"
	"github.com/anstrom/uplink/internal/nmapxml/nmapxmltest"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Record(ctx context.Context, rec *history.ScanRecord) error {
	return m.Called(ctx, rec).Error(0)
}

func (m *mockStore) List(ctx context.Context, limit int) ([]*history.ScanRecord, error) {
	args := m.Called(ctx, limit)
	records, _ := args.Get(0).([]*history.ScanRecord)
	return records, args.Error(1)
}

func (m *mockStore) Get(ctx context.Context, id uuid.UUID) (*history.ScanRecord, error) {
	args := m.Called(ctx, id)
	rec, _ := args.Get(0).(*history.ScanRecord)
	return rec, args.Error(1)
}

func (m *mockStore) Close() error {
	return m.Called().Error(0)
}

func sampleRecord() *history.ScanRecord {
	started := time.Date(2024, 3, 9, 14, 5, 6, 0, time.UTC)
	return &history.ScanRecord{
		ID:            uuid.New(),
		Target:        "192.168.1.0/30",
		Command:       "nmap 192.168.1.0/30 -oX - -sV -O",
		Status:        "completed",
		XMLOutput:     nmapxmltest.TwoHosts,
		HostCount:     2,
		OpenPortCount: 4,
		StartedAt:     started,
		FinishedAt:    started.Add(8 * time.Second),
	}
}

func historyRequest(path string, id string) *http.Request {
	return mux.SetURLVars(httptest.NewRequest(http.MethodGet, path, nil), map[string]string{"id": id})
}

func TestHistoryHandler_Disabled(t *testing.T) {
	h := NewHistoryHandler(nil, createTestLogger(), nil)

	rec := httptest.NewRecorder()
	h.ListHistory(rec, httptest.NewRequest(http.MethodGet, "/api/v1/history", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "Scan history is not enabled", decodeError(t, rec).Message)

	rec = httptest.NewRecorder()
	h.GetHistory(rec, historyRequest("/api/v1/history/x", uuid.NewString()))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHistoryHandler_List(t *testing.T) {
	store := &mockStore{}
	first := sampleRecord()
	failed := sampleRecord()
	failed.Status = "failed"
	failed.ErrorMessage = sql.NullString{String: "nmap exited with status 1", Valid: true}
	store.On("List", mock.Anything, 50).Return([]*history.ScanRecord{first, failed}, nil).Once()
	store.On("List", mock.Anything, 500).Return([]*history.ScanRecord{}, nil).Once()

	h := NewHistoryHandler(store, createTestLogger(), nil)

	rec := httptest.NewRecorder()
	h.ListHistory(rec, httptest.NewRequest(http.MethodGet, "/api/v1/history", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&entries))
	require.Len(t, entries, 2)
	assert.Equal(t, first.ID.String(), entries[0]["id"])
	assert.Equal(t, "8s", entries[0]["duration"])
	assert.NotContains(t, entries[0], "xml_output")
	assert.NotContains(t, entries[0], "error")
	assert.Equal(t, "nmap exited with status 1", entries[1]["error"])

	rec = httptest.NewRecorder()
	h.ListHistory(rec, httptest.NewRequest(http.MethodGet, "/api/v1/history?limit=9000", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	for _, bad := range []string{"0", "-1", "abc"} {
		rec = httptest.NewRecorder()
		h.ListHistory(rec, httptest.NewRequest(http.MethodGet, "/api/v1/history?limit="+bad, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, bad)
	}

	store.AssertExpectations(t)
}

func TestHistoryHandler_ListDatabaseError(t *testing.T) {
	store := &mockStore{}
	store.On("List", mock.Anything, 50).
		Return(nil, errors.New(errors.CodeDatabaseConnection, "History database unavailable"))

	h := NewHistoryHandler(store, createTestLogger(), nil)
	rec := httptest.NewRecorder()
	h.ListHistory(rec, httptest.NewRequest(http.MethodGet, "/api/v1/history", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHistoryHandler_Get(t *testing.T) {
	store := &mockStore{}
	sample := sampleRecord()
	missing := uuid.New()
	store.On("Get", mock.Anything, sample.ID).Return(sample, nil)
	store.On("Get", mock.Anything, missing).Return(nil, errors.New(errors.CodeNotFound, "Scan not found"))

	h := NewHistoryHandler(store, createTestLogger(), nil)

	rec := httptest.NewRecorder()
	h.GetHistory(rec, historyRequest("/api/v1/history/"+sample.ID.String(), sample.ID.String()))
	require.Equal(t, http.StatusOK, rec.Code)

	var detail struct {
		ID      string `json:"id"`
		Target  string `json:"target"`
		Summary string `json:"summary"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&detail))
	assert.Equal(t, sample.ID.String(), detail.ID)
	assert.Equal(t, sample.Target, detail.Target)
	assert.Contains(t, detail.Summary, "--- Scan Summary & Post-Scan Actions ---")
	assert.Contains(t, detail.Summary, "192.168.1.1")

	rec = httptest.NewRecorder()
	h.GetHistory(rec, historyRequest("/api/v1/history/"+missing.String(), missing.String()))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.GetHistory(rec, historyRequest("/api/v1/history/nope", "nope"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHistoryHandler_GetXML(t *testing.T) {
	store := &mockStore{}
	sample := sampleRecord()
	empty := sampleRecord()
	empty.XMLOutput = ""
	store.On("Get", mock.Anything, sample.ID).Return(sample, nil)
	store.On("Get", mock.Anything, empty.ID).Return(empty, nil)

	h := NewHistoryHandler(store, createTestLogger(), nil)

	rec := httptest.NewRecorder()
	h.GetHistoryXML(rec, historyRequest("/api/v1/history/x/xml", sample.ID.String()))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/xml", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="nmap_2024-03-09_14-05-06.xml"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, nmapxmltest.TwoHosts, rec.Body.String())

	rec = httptest.NewRecorder()
	h.GetHistoryXML(rec, historyRequest("/api/v1/history/x/xml", empty.ID.String()))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, errors.MsgNoScanData, decodeError(t, rec).Message)
}
