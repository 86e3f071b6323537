package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/preview-cli/internal/model"
	"github.com/sells-group/preview-cli/internal/orchestrator"
)

func TestObserver_RecordsLifecycle(t *testing.T) {
	st := newTestSQLiteStore(t)
	obs := Observer(st)
	ctx := context.Background()

	obs(orchestrator.Update{JobID: "job-1", URL: "https://acme.com", Phase: orchestrator.PhaseSubmitted})
	obs(orchestrator.Update{JobID: "job-1", Phase: orchestrator.PhasePolled, Polls: 1,
		Snapshot: model.JobSnapshot{State: model.JobStarted}})
	obs(orchestrator.Update{JobID: "job-1", Phase: orchestrator.PhaseFinished, Polls: 2,
		Snapshot: model.JobSnapshot{State: model.JobFinished},
		Result:   &model.ReconstructionResult{Blueprint: model.LayoutBlueprint{TemplateType: "product"}}})

	rec, err := st.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobFinished, rec.State)
	assert.Equal(t, model.OutcomeFinished, rec.Outcome)
	assert.Equal(t, "product", rec.Template)
	assert.Equal(t, 2, rec.Polls)
}

func TestObserver_SkipsUpdatesWithoutJob(t *testing.T) {
	st := newTestSQLiteStore(t)
	Observer(st)(orchestrator.Update{URL: "https://acme.com", Phase: orchestrator.PhaseFailed, Err: errors.New("rejected")})

	jobs, err := st.ListJobs(context.Background(), JobFilter{})
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestObserver_UnknownJobIsLoggedNotFatal(t *testing.T) {
	st := newTestSQLiteStore(t)
	assert.NotPanics(t, func() {
		Observer(st)(orchestrator.Update{JobID: "ghost", Phase: orchestrator.PhaseTimeout})
	})
}

func TestTerminalUpdate(t *testing.T) {
	tests := []struct {
		name string
		u    orchestrator.Update
		want JobUpdate
	}{
		{
			name: "failed uses backend message",
			u: orchestrator.Update{Phase: orchestrator.PhaseFailed, Polls: 3,
				Snapshot: model.JobSnapshot{State: model.JobFailed, ErrorMessage: "render crashed"}},
			want: JobUpdate{State: model.JobFailed, Outcome: model.OutcomeFailed, Polls: 3, ErrorMessage: "render crashed"},
		},
		{
			name: "timeout keeps error text",
			u:    orchestrator.Update{Phase: orchestrator.PhaseTimeout, Polls: 60, Err: errors.New("timed out")},
			want: JobUpdate{Outcome: model.OutcomeTimeout, Polls: 60, ErrorMessage: "timed out"},
		},
		{
			name: "cancelled",
			u:    orchestrator.Update{Phase: orchestrator.PhaseCancelled, Polls: 1},
			want: JobUpdate{Outcome: model.OutcomeCancelled, Polls: 1},
		},
		{
			name: "finished unknown template falls back",
			u: orchestrator.Update{Phase: orchestrator.PhaseFinished,
				Snapshot: model.JobSnapshot{State: model.JobFinished},
				Result:   &model.ReconstructionResult{Blueprint: model.LayoutBlueprint{TemplateType: "nonsense"}}},
			want: JobUpdate{State: model.JobFinished, Outcome: model.OutcomeFinished, Template: "profile"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, terminalUpdate(tt.u))
		})
	}
}
