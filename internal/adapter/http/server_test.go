package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/weather-insights/internal/adapter/http"
	"github.com/couchcryptid/weather-insights/internal/domain"
	"github.com/couchcryptid/weather-insights/internal/pipeline"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockRunner struct {
	report  domain.InsightReport
	err     error
	lastReq pipeline.Request
}

func (m *mockRunner) Run(_ context.Context, req pipeline.Request) (domain.InsightReport, error) {
	m.lastReq = req
	return m.report, m.err
}

func newTestServer(runner *mockRunner, readyErr error) *httpadapter.Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return httpadapter.NewServer(":0", runner, &mockReadiness{err: readyErr}, logger)
}

func postReport(srv *httpadapter.Server, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/reports", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	srv.ServeHTTP(rec, req)
	return rec
}

func TestCreateReport_Success(t *testing.T) {
	runner := &mockRunner{
		report: domain.InsightReport{
			ID:         "rep-1",
			Records:    31,
			Narrative:  "a calm month",
			Provenance: domain.ProvenanceTemplateFallback,
		},
	}
	srv := newTestServer(runner, nil)

	rec := postReport(srv, `{
		"start": "2023-01-01",
		"end": "2023-01-31",
		"seed": 42,
		"contamination": 0.1,
		"features": ["temperature", "precipitation"]
	}`)

	assert.Equal(t, http.StatusOK, rec.Code)

	var report domain.InsightReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "rep-1", report.ID)
	assert.Equal(t, "a calm month", report.Narrative)

	assert.True(t, runner.lastReq.Start.Equal(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, runner.lastReq.End.Equal(time.Date(2023, 1, 31, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, int64(42), runner.lastReq.Seed)
	assert.Equal(t, 0.1, runner.lastReq.Contamination)
	assert.Equal(t, []domain.FieldName{domain.FieldTemperature, domain.FieldPrecipitation}, runner.lastReq.Features)
}

func TestCreateReport_InvalidJSON(t *testing.T) {
	rec := postReport(newTestServer(&mockRunner{}, nil), `{not json`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid JSON body")
}

func TestCreateReport_ValidationFailures(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing start", `{"end":"2023-01-31"}`},
		{"bad date layout", `{"start":"01/02/2023","end":"2023-01-31"}`},
		{"contamination too high", `{"start":"2023-01-01","end":"2023-01-31","contamination":0.9}`},
		{"unknown feature", `{"start":"2023-01-01","end":"2023-01-31","features":["pressure"]}`},
		{"duplicate feature", `{"start":"2023-01-01","end":"2023-01-31","features":["temperature","temperature"]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postReport(newTestServer(&mockRunner{}, nil), tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestCreateReport_DomainValidationErrorMapsTo400(t *testing.T) {
	runner := &mockRunner{err: domain.NewValidationError("date_range", "start after end")}

	rec := postReport(newTestServer(runner, nil), `{"start":"2023-02-01","end":"2023-01-01"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "date_range")
}

func TestCreateReport_InsufficientDataMapsTo422(t *testing.T) {
	runner := &mockRunner{err: &domain.InsufficientDataError{Records: 5, Min: 10}}

	rec := postReport(newTestServer(runner, nil), `{"start":"2023-01-01","end":"2023-01-05"}`)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "need at least 10")
}

func TestCreateReport_UnexpectedErrorMapsTo500(t *testing.T) {
	runner := &mockRunner{err: fmt.Errorf("boom")}

	rec := postReport(newTestServer(runner, nil), `{"start":"2023-01-01","end":"2023-01-31"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "boom", "internals stay out of responses")
}

func TestHealthzReturns200(t *testing.T) {
	srv := newTestServer(&mockRunner{}, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv := newTestServer(&mockRunner{}, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	srv := newTestServer(&mockRunner{}, fmt.Errorf("warming up"))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "warming up", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(&mockRunner{}, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
