package orchestrator

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sells-group/preview-cli/internal/resilience"
	"github.com/sells-group/preview-cli/pkg/previewapi"
)

// ValidationError rejects a URL before any job is created.
type ValidationError struct {
	URL    string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("orchestrator: invalid url %q: %s", e.URL, e.Reason)
}

// SubmissionError means the backend refused to create the job. No polling
// follows.
type SubmissionError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *SubmissionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("orchestrator: submit %s rejected (HTTP %d): %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("orchestrator: submit %s: %v", e.URL, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// PollError is one failed status round trip. The loop keeps its schedule.
type PollError struct {
	JobID   string
	Attempt int
	Err     error
}

func (e *PollError) Error() string {
	return fmt.Sprintf("orchestrator: poll %s (attempt %d): %v", e.JobID, e.Attempt, e.Err)
}

func (e *PollError) Unwrap() error { return e.Err }

// TimeoutError means no terminal state arrived within the budget. The job
// is abandoned locally; the backend is not told.
type TimeoutError struct {
	JobID   string
	Polls   int
	Elapsed time.Duration
	// LastErr is the most recent PollError, if any.
	LastErr error
}

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("orchestrator: job %s timed out after %s (%d polls)", e.JobID, e.Elapsed, e.Polls)
	if e.LastErr != nil {
		msg += ": last error: " + e.LastErr.Error()
	}
	return msg
}

func (e *TimeoutError) Unwrap() error { return e.LastErr }

// JobFailedError carries the backend's failure message verbatim.
type JobFailedError struct {
	JobID   string
	Message string
}

func (e *JobFailedError) Error() string {
	return fmt.Sprintf("orchestrator: job %s failed: %s", e.JobID, e.Message)
}

// ValidateURL accepts absolute http(s) URLs with a host.
func ValidateURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return &ValidationError{URL: raw, Reason: "url is required"}
	}
	u, err := url.Parse(raw)
	if err != nil {
		return &ValidationError{URL: raw, Reason: err.Error()}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &ValidationError{URL: raw, Reason: "scheme must be http or https"}
	}
	if u.Hostname() == "" {
		return &ValidationError{URL: raw, Reason: "missing host"}
	}
	return nil
}

func newSubmissionError(rawURL string, err error) *SubmissionError {
	se := &SubmissionError{URL: rawURL, Err: err}
	var apiErr *previewapi.APIError
	if errors.As(err, &apiErr) {
		se.StatusCode = apiErr.StatusCode
	} else {
		se.StatusCode = resilience.StatusCode(err)
	}
	return se
}
