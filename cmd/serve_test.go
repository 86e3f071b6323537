package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/preview-cli/internal/model"
	"github.com/sells-group/preview-cli/internal/orchestrator"
	"github.com/sells-group/preview-cli/internal/platform"
	"github.com/sells-group/preview-cli/internal/resilience"
	"github.com/sells-group/preview-cli/internal/store"
	"github.com/sells-group/preview-cli/pkg/previewapi"
)

// stubBackend finishes every job on the first poll unless the URL says otherwise.
type stubBackend struct{}

func (stubBackend) Submit(_ context.Context, req previewapi.SubmitRequest) (*previewapi.SubmitResponse, error) {
	if strings.Contains(req.URL, "quota") {
		return nil, &previewapi.APIError{StatusCode: http.StatusPaymentRequired, Body: "quota exceeded"}
	}
	return &previewapi.SubmitResponse{JobID: "job-" + strings.TrimPrefix(req.URL, "https://")}, nil
}

func (stubBackend) Status(_ context.Context, jobID string) (*previewapi.StatusResponse, error) {
	if strings.Contains(jobID, "broken") {
		msg := "render crashed"
		return &previewapi.StatusResponse{Status: "failed", Error: &msg}, nil
	}
	return &previewapi.StatusResponse{
		Status: "finished",
		Result: &model.ReconstructionResult{
			URL:       "https://acme.com",
			Title:     "Acme",
			Blueprint: model.LayoutBlueprint{TemplateType: "landing", PrimaryColor: "#111"},
		},
	}, nil
}

func newTestServer(t *testing.T, withStore bool) (*httptest.Server, store.Store) {
	t.Helper()
	s := &server{platforms: platform.Defaults()}
	var opts []orchestrator.Option
	if withStore {
		st, err := store.NewSQLite(filepath.Join(t.TempDir(), "ledger.db"))
		require.NoError(t, err)
		require.NoError(t, st.Migrate(context.Background()))
		t.Cleanup(func() { st.Close() }) //nolint:errcheck
		s.store = st
		opts = append(opts, orchestrator.WithObserver(store.Observer(st)))
	}
	opts = append(opts, orchestrator.WithInterval(time.Millisecond), orchestrator.WithTimeout(time.Second))
	s.orch = orchestrator.New(stubBackend{}, opts...)

	ts := httptest.NewServer(s.routes([]string{"*"}))
	t.Cleanup(ts.Close)
	return ts, s.store
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestServe_Health(t *testing.T) {
	ts, _ := newTestServer(t, false)
	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decodeBody(t, resp)["status"])
}

func TestServe_Cards(t *testing.T) {
	ts, _ := newTestServer(t, false)

	resp, err := http.Post(ts.URL+"/v1/cards", "application/json", strings.NewReader(sampleResultJSON))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	c := body["card"].(map[string]any)
	assert.Equal(t, "product", c["template"])
	og := body["og"].(map[string]any)
	assert.Equal(t, "acme.com", og["SiteName"])

	resp, err = http.Post(ts.URL+"/v1/cards?format=html&template=article", "application/json", strings.NewReader(sampleResultJSON))
	require.NoError(t, err)
	defer resp.Body.Close()
	html, _ := io.ReadAll(resp.Body)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, string(html), `data-template="article"`)
}

func TestServe_CardsBadInput(t *testing.T) {
	ts, _ := newTestServer(t, false)

	resp, err := http.Post(ts.URL+"/v1/cards", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Post(ts.URL+"/v1/cards?template=gallery", "application/json", strings.NewReader(sampleResultJSON))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestServe_Platforms(t *testing.T) {
	ts, _ := newTestServer(t, false)

	resp, err := http.Post(ts.URL+"/v1/platforms?only=slack,linkedin", "application/json", strings.NewReader(sampleResultJSON))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cards := decodeBody(t, resp)["platforms"].([]any)
	require.Len(t, cards, 2)
	assert.Equal(t, "slack", cards[0].(map[string]any)["platform"])

	resp, err = http.Post(ts.URL+"/v1/platforms?only=myspace", "application/json", strings.NewReader(sampleResultJSON))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestServe_Previews(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		wantStatus int
	}{
		{"finished", "https://acme.com", http.StatusOK},
		{"invalid url", "ftp://acme.com", http.StatusBadRequest},
		{"quota", "https://quota.com", http.StatusPaymentRequired},
		{"job failed", "https://broken.com", http.StatusUnprocessableEntity},
	}
	ts, _ := newTestServer(t, false)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+"/v1/previews", "application/json", strings.NewReader(`{"url":"`+tt.url+`"}`))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			body := decodeBody(t, resp)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, "job-acme.com", body["job_id"])
				assert.Equal(t, "landing", body["card"].(map[string]any)["template"])
			} else {
				assert.NotEmpty(t, body["error"])
			}
		})
	}
}

func TestServe_JobsLedger(t *testing.T) {
	ts, _ := newTestServer(t, true)

	resp, err := http.Post(ts.URL+"/v1/previews", "application/json", strings.NewReader(`{"url":"https://acme.com"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(ts.URL + "/v1/jobs?outcome=finished")
	require.NoError(t, err)
	jobs := decodeBody(t, resp)["jobs"].([]any)
	require.Len(t, jobs, 1)
	assert.Equal(t, "landing", jobs[0].(map[string]any)["template"])

	resp, err = http.Get(ts.URL + "/v1/jobs/job-acme.com")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "https://acme.com", decodeBody(t, resp)["url"])

	resp, err = http.Get(ts.URL + "/v1/jobs/nope")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestServe_Stats(t *testing.T) {
	ts, _ := newTestServer(t, true)

	for _, u := range []string{"https://acme.com", "https://broken.com"} {
		resp, err := http.Post(ts.URL+"/v1/previews", "application/json", strings.NewReader(`{"url":"`+u+`"}`))
		require.NoError(t, err)
		resp.Body.Close()
	}

	resp, err := http.Get(ts.URL + "/v1/stats?hours=1")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.EqualValues(t, 2, body["total"])
	assert.EqualValues(t, 1, body["finished"])
	assert.EqualValues(t, 1, body["failed"])
	assert.EqualValues(t, 1, body["lookback_hours"])
	assert.EqualValues(t, 1, body["templates"].(map[string]any)["landing"])
}

func TestServe_JobsWithoutLedger(t *testing.T) {
	ts, _ := newTestServer(t, false)
	resp, err := http.Get(ts.URL + "/v1/jobs")
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	resp.Body.Close()
}

func TestPreviewErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&orchestrator.ValidationError{URL: "x", Reason: "bad"}, http.StatusBadRequest},
		{&orchestrator.SubmissionError{URL: "x", Err: resilience.ErrCircuitOpen}, http.StatusServiceUnavailable},
		{&orchestrator.SubmissionError{URL: "x", StatusCode: 429, Err: errors.New("slow down")}, http.StatusTooManyRequests},
		{&orchestrator.SubmissionError{URL: "x", StatusCode: 500, Err: errors.New("boom")}, http.StatusBadGateway},
		{&orchestrator.TimeoutError{JobID: "j"}, http.StatusGatewayTimeout},
		{&orchestrator.JobFailedError{JobID: "j", Message: "m"}, http.StatusUnprocessableEntity},
		{context.Canceled, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, previewErrorStatus(tt.err), tt.err.Error())
	}
}
