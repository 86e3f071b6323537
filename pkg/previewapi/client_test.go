package previewapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/preview-cli/internal/model"
	"github.com/sells-group/preview-cli/internal/resilience"
)

func newTestServer(t *testing.T, handler http.HandlerFunc, opts ...Option) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	opts = append([]Option{WithBaseURL(srv.URL), WithRateLimit(0)}, opts...)
	return NewClient("test-api-key", opts...)
}

func TestSubmit(t *testing.T) {
	tests := []struct {
		name          string
		handler       http.HandlerFunc
		wantID        string
		wantErr       bool
		wantStatus    int
		wantTransient bool
	}{
		{
			name: "happy path",
			handler: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/previews/jobs", r.URL.Path)
				assert.Equal(t, "Bearer test-api-key", r.Header.Get("Authorization"))
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

				var req SubmitRequest
				require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Equal(t, "https://example.com", req.URL)

				json.NewEncoder(w).Encode(SubmitResponse{JobID: "job-123"})
			},
			wantID: "job-123",
		},
		{
			name: "quota exceeded",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusPaymentRequired)
				w.Write([]byte(`{"error":"quota exceeded"}`))
			},
			wantErr:    true,
			wantStatus: http.StatusPaymentRequired,
		},
		{
			name: "server error is transient",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"error":"unavailable"}`))
			},
			wantErr:       true,
			wantStatus:    http.StatusServiceUnavailable,
			wantTransient: true,
		},
		{
			name: "empty job id",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{}`))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestServer(t, tt.handler)
			resp, err := c.Submit(context.Background(), SubmitRequest{URL: "https://example.com"})

			if tt.wantErr {
				require.Error(t, err)
				if tt.wantStatus != 0 {
					var apiErr *APIError
					require.ErrorAs(t, err, &apiErr)
					assert.Equal(t, tt.wantStatus, apiErr.StatusCode)
				}
				assert.Equal(t, tt.wantTransient, resilience.IsTransient(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, resp.JobID)
		})
	}
}

func TestStatus(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantState model.JobState
		wantErr   string
		wantTitle string
	}{
		{
			name:      "queued",
			body:      `{"status":"queued","result":null,"error":null}`,
			wantState: model.JobQueued,
		},
		{
			name:      "finished",
			body:      `{"status":"finished","result":{"title":"Acme","blueprint":{"templateType":"product"}},"error":null}`,
			wantState: model.JobFinished,
			wantTitle: "Acme",
		},
		{
			name:      "failed",
			body:      `{"status":"failed","result":null,"error":"page blocked by robots.txt"}`,
			wantState: model.JobFailed,
			wantErr:   "page blocked by robots.txt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "/previews/jobs/job-123", r.URL.Path)
				w.Write([]byte(tt.body))
			})

			resp, err := c.Status(context.Background(), "job-123")
			require.NoError(t, err)
			snap := resp.Snapshot()
			assert.Equal(t, tt.wantState, snap.State)
			assert.Equal(t, tt.wantErr, snap.ErrorMessage)
			if tt.wantTitle != "" {
				require.NotNil(t, snap.Result)
				assert.Equal(t, tt.wantTitle, snap.Result.Title)
			} else {
				assert.Nil(t, snap.Result)
			}
		})
	}
}

func TestStatus_NotFound(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"not found"}`))
	})

	_, err := c.Status(context.Background(), "missing")
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 404, apiErr.StatusCode)
	assert.False(t, resilience.IsTransient(err))
}

func TestDemoPreview_NoAuthHeaderWithoutKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/previews/demo", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Write([]byte(`{"url":"https://example.com","title":"Example","blueprint":{"templateType":"landing"}}`))
	}))
	t.Cleanup(srv.Close)

	c := NewClient("", WithBaseURL(srv.URL+"/"))
	res, err := c.DemoPreview(context.Background(), SubmitRequest{URL: "https://example.com"})
	require.NoError(t, err)
	assert.Equal(t, "Example", res.Title)
	assert.Equal(t, "landing", res.Blueprint.TemplateType)
}

func TestMalformedJSON(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	})

	_, err := c.Status(context.Background(), "job-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
}

func TestContextCancellation(t *testing.T) {
	var hits atomic.Int32
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Submit(ctx, SubmitRequest{URL: "https://example.com"})
	require.Error(t, err)
	assert.Zero(t, hits.Load())
}

func TestAPIError_Error(t *testing.T) {
	t.Parallel()
	e := &APIError{StatusCode: 429, Body: `{"error":"rate limited"}`}
	assert.Equal(t, `previewapi: HTTP 429: {"error":"rate limited"}`, e.Error())
}

func TestWithHTTPClient(t *testing.T) {
	t.Parallel()
	custom := &http.Client{}
	c := NewClient("key", WithHTTPClient(custom))
	hc := c.(*httpClient)
	assert.Equal(t, custom, hc.http)
}

func TestWithRateLimit(t *testing.T) {
	t.Parallel()
	c := NewClient("key", WithRateLimit(2)).(*httpClient)
	assert.InDelta(t, 2.0, float64(c.limiter.Limit()), 0.001)
	assert.Equal(t, 2, c.limiter.Burst())
}
