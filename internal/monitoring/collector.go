// Package monitoring summarizes recent preview jobs from the ledger.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/preview-cli/internal/model"
	"github.com/sells-group/preview-cli/internal/store"
)

// statsLimit caps how many ledger rows one snapshot reads.
const statsLimit = 10000

// Snapshot holds a point-in-time view of job outcomes.
type Snapshot struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Finished  int `json:"finished"`
	Failed    int `json:"failed"`
	Timeout   int `json:"timeout"`
	Cancelled int `json:"cancelled"`

	// FailRate is failed plus timed-out over every job that reached an
	// outcome other than cancellation.
	FailRate        float64        `json:"fail_rate"`
	AvgPolls        float64        `json:"avg_polls"`
	AvgDurationSecs float64        `json:"avg_duration_secs"`
	Templates       map[string]int `json:"templates"`

	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// JobLister is the part of the ledger the collector reads.
type JobLister interface {
	ListJobs(ctx context.Context, filter store.JobFilter) ([]model.JobRecord, error)
}

// Collector gathers job statistics from the ledger.
type Collector struct {
	jobs JobLister
	now  func() time.Time
}

// NewCollector creates a collector over the ledger.
func NewCollector(jobs JobLister) *Collector {
	return &Collector{jobs: jobs, now: time.Now}
}

// Collect summarizes jobs created within the lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*Snapshot, error) {
	now := c.now().UTC()
	jobs, err := c.jobs.ListJobs(ctx, store.JobFilter{
		CreatedAfter: now.Add(-time.Duration(lookbackHours) * time.Hour),
		Limit:        statsLimit,
	})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list jobs")
	}

	snap := Summarize(jobs)
	snap.LookbackHours = lookbackHours
	snap.CollectedAt = now
	return snap, nil
}

// Summarize computes outcome counts and averages for jobs.
func Summarize(jobs []model.JobRecord) *Snapshot {
	snap := &Snapshot{Total: len(jobs), Templates: map[string]int{}}

	var totalPolls, terminal int
	var totalDur time.Duration
	for _, j := range jobs {
		switch j.Outcome {
		case model.OutcomeFinished:
			snap.Finished++
			totalDur += j.UpdatedAt.Sub(j.CreatedAt)
			if j.Template != "" {
				snap.Templates[j.Template]++
			}
		case model.OutcomeFailed:
			snap.Failed++
		case model.OutcomeTimeout:
			snap.Timeout++
		case model.OutcomeCancelled:
			snap.Cancelled++
		default:
			snap.Pending++
			continue
		}
		terminal++
		totalPolls += j.Polls
	}

	if decided := snap.Finished + snap.Failed + snap.Timeout; decided > 0 {
		snap.FailRate = float64(snap.Failed+snap.Timeout) / float64(decided)
	}
	if terminal > 0 {
		snap.AvgPolls = float64(totalPolls) / float64(terminal)
	}
	if snap.Finished > 0 {
		snap.AvgDurationSecs = totalDur.Seconds() / float64(snap.Finished)
	}
	return snap
}
