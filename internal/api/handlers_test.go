package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cedarline/schema-propagation/internal/registry"
	"github.com/cedarline/schema-propagation/internal/streamer"
	"github.com/cedarline/schema-propagation/internal/version"
)

func newTestServer(t *testing.T) (*Server, *version.Store, *registry.Registry) {
	t.Helper()
	store, err := version.NewStore(t.TempDir())
	require.NoError(t, err)

	reg := registry.New()
	strm := streamer.New(reg, nil)

	return NewServer(store, nil, nil, reg, strm, nil, nil), store, reg
}

func TestHandleGenerateVersion_UnknownPreset(t *testing.T) {
	s, _, _ := newTestServer(t)

	body, _ := json.Marshal(GenerateRequest{Description: "d", Preset: "not_real"})
	req := httptest.NewRequest(http.MethodPost, "/versions", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleGenerateVersion_Success(t *testing.T) {
	s, _, _ := newTestServer(t)

	body, _ := json.Marshal(GenerateRequest{Description: "add column", Preset: "add_column"})
	req := httptest.NewRequest(http.MethodPost, "/versions", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	s.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["version_id"])
	assert.Len(t, resp["checksum"], 16)
}

func TestHandleGenerateVersion_MissingFields(t *testing.T) {
	s, _, _ := newTestServer(t)

	body, _ := json.Marshal(GenerateRequest{})
	req := httptest.NewRequest(http.MethodPost, "/versions", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleGetVersion_NotFound(t *testing.T) {
	s, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/versions/does-not-exist", nil)
	rec := httptest.NewRecorder()

	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleListVersions_Empty(t *testing.T) {
	s, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/versions", nil)
	rec := httptest.NewRecorder()

	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestHandleGetPropagation_NotFound(t *testing.T) {
	s, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/propagate/nope", nil)
	rec := httptest.NewRecorder()

	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleGetPropagation_Found(t *testing.T) {
	s, _, reg := newTestServer(t)

	job := reg.Create("v1", 5)
	job.Start()

	req := httptest.NewRequest(http.MethodGet, "/propagate/"+job.JobID, nil)
	rec := httptest.NewRecorder()

	s.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var dto snapshotDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dto))
	assert.Equal(t, job.JobID, dto.JobID)
	assert.Equal(t, 5, dto.Total)
}

func TestHandleStopPropagation(t *testing.T) {
	s, _, reg := newTestServer(t)

	job := reg.Create("v1", 5)

	req := httptest.NewRequest(http.MethodPost, "/propagate/"+job.JobID+"/stop", nil)
	rec := httptest.NewRecorder()

	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.True(t, job.StopRequested())
}

func TestHandleStopPropagation_NotFound(t *testing.T) {
	s, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/propagate/nope/stop", nil)
	rec := httptest.NewRecorder()

	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleBenchmark_UnknownPreset(t *testing.T) {
	s, _, _ := newTestServer(t)

	body, _ := json.Marshal(BenchmarkRequest{Count: 3, Prefix: "bench_", Preset: "not_real", MaxConnections: 5})
	req := httptest.NewRequest(http.MethodPost, "/benchmark", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleBenchmark_MissingFields(t *testing.T) {
	s, _, _ := newTestServer(t)

	body, _ := json.Marshal(BenchmarkRequest{})
	req := httptest.NewRequest(http.MethodPost, "/benchmark", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleHealth(t *testing.T) {
	s, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
