package store

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/preview-cli/internal/card"
	"github.com/sells-group/preview-cli/internal/model"
	"github.com/sells-group/preview-cli/internal/orchestrator"
)

const observerWriteTimeout = 5 * time.Second

// Observer returns an orchestrator observer that records each job's
// progress in st. Ledger failures are logged and never reach the loop.
func Observer(st Store) func(orchestrator.Update) {
	return func(u orchestrator.Update) {
		if u.JobID == "" {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), observerWriteTimeout)
		defer cancel()

		var err error
		switch u.Phase {
		case orchestrator.PhaseSubmitted:
			_, err = st.RecordSubmitted(ctx, u.JobID, u.URL)
		case orchestrator.PhasePolled, orchestrator.PhasePollError:
			err = st.UpdateJob(ctx, u.JobID, JobUpdate{State: u.Snapshot.State, Polls: u.Polls})
		default:
			err = st.UpdateJob(ctx, u.JobID, terminalUpdate(u))
		}
		if err != nil {
			zap.L().Warn("ledger: record update failed",
				zap.String("job_id", u.JobID),
				zap.String("phase", string(u.Phase)),
				zap.Error(err),
			)
		}
	}
}

func terminalUpdate(u orchestrator.Update) JobUpdate {
	ju := JobUpdate{State: u.Snapshot.State, Polls: u.Polls}
	switch u.Phase {
	case orchestrator.PhaseFinished:
		ju.Outcome = model.OutcomeFinished
		if u.Result != nil {
			ju.Template = string(card.Select(u.Result.Blueprint.TemplateType))
		}
	case orchestrator.PhaseFailed:
		ju.Outcome = model.OutcomeFailed
	case orchestrator.PhaseTimeout:
		ju.Outcome = model.OutcomeTimeout
	case orchestrator.PhaseCancelled:
		ju.Outcome = model.OutcomeCancelled
	}
	if u.Err != nil {
		ju.ErrorMessage = u.Err.Error()
	} else if u.Snapshot.ErrorMessage != "" {
		ju.ErrorMessage = u.Snapshot.ErrorMessage
	}
	return ju
}
