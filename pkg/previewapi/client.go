package previewapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/preview-cli/internal/model"
	"github.com/sells-group/preview-cli/internal/resilience"
)

// Default base URL for the preview backend.
const defaultBaseURL = "https://api.previewkit.io/v1"

// Client defines the preview backend operations.
type Client interface {
	Submit(ctx context.Context, req SubmitRequest) (*SubmitResponse, error)
	Status(ctx context.Context, jobID string) (*StatusResponse, error)
	DemoPreview(ctx context.Context, req SubmitRequest) (*model.ReconstructionResult, error)
}

// SubmitRequest is the body for POST /previews/jobs and POST /previews/demo.
type SubmitRequest struct {
	URL string `json:"url"`
}

// SubmitResponse is the response from POST /previews/jobs.
type SubmitResponse struct {
	JobID string `json:"job_id"`
}

// StatusResponse is the response from GET /previews/jobs/{id}.
type StatusResponse struct {
	Status string                      `json:"status"`
	Result *model.ReconstructionResult `json:"result"`
	Error  *string                     `json:"error"`
}

// Snapshot converts the wire response into a job snapshot.
func (s *StatusResponse) Snapshot() model.JobSnapshot {
	snap := model.JobSnapshot{
		State:  model.JobState(s.Status),
		Result: s.Result,
	}
	if s.Error != nil {
		snap.ErrorMessage = *s.Error
	}
	return snap
}

// APIError is returned when the backend responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("previewapi: HTTP %d: %s", e.StatusCode, e.Body)
}

// Option configures the httpClient.
type Option func(*httpClient)

// WithBaseURL overrides the default base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit overrides the default client-side request rate.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
	}
}

// httpClient implements Client using net/http.
type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a preview backend client. An empty apiKey sends no
// Authorization header, which is what the demo endpoint expects.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(5, 5),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Submit(ctx context.Context, req SubmitRequest) (*SubmitResponse, error) {
	var resp SubmitResponse
	if err := c.post(ctx, "/previews/jobs", req, &resp); err != nil {
		return nil, eris.Wrap(err, "previewapi: submit")
	}
	if resp.JobID == "" {
		return nil, eris.New("previewapi: submit: empty job_id")
	}
	return &resp, nil
}

func (c *httpClient) Status(ctx context.Context, jobID string) (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.get(ctx, "/previews/jobs/"+url.PathEscape(jobID), &resp); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("previewapi: status %s", jobID))
	}
	return &resp, nil
}

func (c *httpClient) DemoPreview(ctx context.Context, req SubmitRequest) (*model.ReconstructionResult, error) {
	var resp model.ReconstructionResult
	if err := c.post(ctx, "/previews/demo", req, &resp); err != nil {
		return nil, eris.Wrap(err, "previewapi: demo preview")
	}
	return &resp, nil
}

func (c *httpClient) post(ctx context.Context, path string, body any, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return eris.Wrap(err, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	return c.do(req, out)
}

func (c *httpClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	c.authorize(req)

	return c.do(req, out)
}

func (c *httpClient) authorize(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

func (c *httpClient) do(req *http.Request, out any) error {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return eris.Wrap(err, "rate limit")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "execute request")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Body:       string(data),
		}
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return resilience.NewTransientError(apiErr, resp.StatusCode)
		}
		return apiErr
	}

	if err := json.Unmarshal(data, out); err != nil {
		return eris.Wrap(err, "decode response")
	}

	return nil
}
