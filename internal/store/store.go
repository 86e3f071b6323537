// Package store keeps a ledger of submitted preview jobs: which URL, which
// backend job, how it ended. Results themselves are never persisted.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/preview-cli/internal/model"
)

// ErrNotFound is returned when no ledger row matches.
var ErrNotFound = eris.New("store: not found")

// JobFilter specifies criteria for listing jobs.
type JobFilter struct {
	State        model.JobState `json:"state,omitempty"`
	Outcome      string         `json:"outcome,omitempty"`
	URL          string         `json:"url,omitempty"`
	CreatedAfter time.Time      `json:"created_after,omitempty"`
	Limit        int            `json:"limit,omitempty"`
	Offset       int            `json:"offset,omitempty"`
}

const defaultListLimit = 50

func (f JobFilter) limit() int {
	if f.Limit <= 0 {
		return defaultListLimit
	}
	return f.Limit
}

// JobUpdate changes a ledger row. Zero fields keep their stored value;
// Polls only ever grows.
type JobUpdate struct {
	State        model.JobState
	Outcome      string
	Polls        int
	ErrorMessage string
	Template     string
}

// Store is the job ledger.
type Store interface {
	RecordSubmitted(ctx context.Context, jobID, url string) (*model.JobRecord, error)
	UpdateJob(ctx context.Context, jobID string, u JobUpdate) error
	GetJob(ctx context.Context, jobID string) (*model.JobRecord, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]model.JobRecord, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int, error)

	Migrate(ctx context.Context) error
	Close() error
}

func newRecord(id, jobID, url string, now time.Time) *model.JobRecord {
	return &model.JobRecord{
		ID:        id,
		JobID:     jobID,
		URL:       url,
		State:     model.JobQueued,
		Outcome:   model.OutcomePending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
