package model

import "time"

// JobState is the server-reported lifecycle state of a preview job.
type JobState string

const (
	JobQueued   JobState = "queued"
	JobStarted  JobState = "started"
	JobFinished JobState = "finished"
	JobFailed   JobState = "failed"
)

// IsTerminal reports whether no further transitions are possible.
// Unrecognized states are treated as still in flight.
func (s JobState) IsTerminal() bool {
	return s == JobFinished || s == JobFailed
}

// JobSnapshot is the outcome of one status poll.
type JobSnapshot struct {
	State        JobState              `json:"status"`
	Result       *ReconstructionResult `json:"result"`
	ErrorMessage string                `json:"error,omitempty"`
}

// Job is the client-side handle for one in-flight generation request.
type Job struct {
	ID        string      `json:"job_id"`
	URL       string      `json:"url"`
	Snapshot  JobSnapshot `json:"snapshot"`
	Polls     int         `json:"polls"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Local outcomes recorded by the ledger. Timeout and cancellation are
// client-side only; the backend job may still finish.
const (
	OutcomePending   = "pending"
	OutcomeFinished  = "finished"
	OutcomeFailed    = "failed"
	OutcomeTimeout   = "timeout"
	OutcomeCancelled = "cancelled"
)

// JobRecord is the ledger row for a job. It never carries the result payload.
type JobRecord struct {
	ID           string    `json:"id"`
	JobID        string    `json:"job_id"`
	URL          string    `json:"url"`
	State        JobState  `json:"state"`
	Outcome      string    `json:"outcome"`
	ErrorMessage string    `json:"error_message,omitempty"`
	Template     string    `json:"template,omitempty"`
	Polls        int       `json:"polls"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
