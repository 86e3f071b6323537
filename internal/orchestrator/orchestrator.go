// Package orchestrator drives one preview job from submission to a terminal
// state: submit, poll on a fixed interval, stop on finished, failed, timeout
// or cancellation.
package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/preview-cli/internal/model"
	"github.com/sells-group/preview-cli/internal/resilience"
	"github.com/sells-group/preview-cli/pkg/previewapi"
)

const (
	DefaultInterval = 2 * time.Second
	DefaultTimeout  = 2 * time.Minute

	// maxTerminalCache bounds the per-orchestrator memo of finished jobs.
	maxTerminalCache = 1024
)

// Backend is the part of the preview API the orchestrator calls.
type Backend interface {
	Submit(ctx context.Context, req previewapi.SubmitRequest) (*previewapi.SubmitResponse, error)
	Status(ctx context.Context, jobID string) (*previewapi.StatusResponse, error)
}

// Phase labels an Update.
type Phase string

const (
	PhaseSubmitted Phase = "submitted"
	PhasePolled    Phase = "polled"
	PhasePollError Phase = "poll_error"
	PhaseFinished  Phase = "finished"
	PhaseFailed    Phase = "failed"
	PhaseTimeout   Phase = "timeout"
	PhaseCancelled Phase = "cancelled"
)

// Terminal reports whether the loop has stopped.
func (p Phase) Terminal() bool {
	switch p {
	case PhaseFinished, PhaseFailed, PhaseTimeout, PhaseCancelled:
		return true
	}
	return false
}

// Update is emitted for every step of a job's loop.
type Update struct {
	// Generation is set by Surface; zero for bare Run calls.
	Generation uint64
	JobID      string
	URL        string
	Phase      Phase
	Snapshot   model.JobSnapshot
	Polls      int
	Result     *model.ReconstructionResult
	Err        error
	At         time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithInterval sets the fixed delay between polls.
func WithInterval(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.interval = d
		}
	}
}

// WithTimeout sets the overall budget from the first poll.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithObserver registers a callback for every Update of every job.
func WithObserver(fn func(Update)) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.observers = append(o.observers, fn)
		}
	}
}

// WithBreaker routes submissions through a shared circuit breaker.
func WithBreaker(cb *resilience.CircuitBreaker) Option {
	return func(o *Orchestrator) {
		o.breaker = cb
	}
}

// WithClock replaces the wall clock and sleeper. sleep must return
// ctx.Err() when ctx is done.
func WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
		if sleep != nil {
			o.sleep = sleep
		}
	}
}

// Orchestrator submits and polls preview jobs. Safe for concurrent use;
// each Run is its own sequential loop.
type Orchestrator struct {
	backend   Backend
	interval  time.Duration
	timeout   time.Duration
	breaker   *resilience.CircuitBreaker
	observers []func(Update)
	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error

	mu       sync.Mutex
	terminal map[string]model.JobSnapshot
	order    []string
}

// New creates an Orchestrator over backend.
func New(backend Backend, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		backend:  backend,
		interval: DefaultInterval,
		timeout:  DefaultTimeout,
		now:      time.Now,
		sleep:    sleepCtx,
		terminal: make(map[string]model.JobSnapshot),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Interval returns the poll interval in use.
func (o *Orchestrator) Interval() time.Duration { return o.interval }

// Timeout returns the poll budget in use.
func (o *Orchestrator) Timeout() time.Duration { return o.timeout }

// Submit validates rawURL and creates exactly one backend job. It is never
// retried.
func (o *Orchestrator) Submit(ctx context.Context, rawURL string) (string, error) {
	if err := ValidateURL(rawURL); err != nil {
		return "", err
	}

	call := func(ctx context.Context) (*previewapi.SubmitResponse, error) {
		return o.backend.Submit(ctx, previewapi.SubmitRequest{URL: rawURL})
	}

	var (
		resp *previewapi.SubmitResponse
		err  error
	)
	if o.breaker != nil {
		resp, err = resilience.ExecuteVal(ctx, o.breaker, call)
	} else {
		resp, err = call(ctx)
	}
	if err != nil {
		return "", newSubmissionError(rawURL, err)
	}
	return resp.JobID, nil
}

// Poll performs one status round trip. Failures are returned as *PollError.
// After a terminal snapshot has been seen for jobID, it is returned again
// without network I/O.
func (o *Orchestrator) Poll(ctx context.Context, jobID string) (model.JobSnapshot, error) {
	if snap, ok := o.cached(jobID); ok {
		return snap, nil
	}

	resp, err := o.backend.Status(ctx, jobID)
	if err != nil {
		return model.JobSnapshot{}, &PollError{JobID: jobID, Err: err}
	}

	snap := resp.Snapshot()
	if snap.State.IsTerminal() {
		o.remember(jobID, snap)
	}
	return snap, nil
}

// RunOption configures a single Run.
type RunOption func(*runConfig)

type runConfig struct {
	observers []func(Update)
}

// OnUpdate adds a callback for this run only.
func OnUpdate(fn func(Update)) RunOption {
	return func(c *runConfig) {
		if fn != nil {
			c.observers = append(c.observers, fn)
		}
	}
}

// Run submits rawURL and waits for the job to finish.
func (o *Orchestrator) Run(ctx context.Context, rawURL string, opts ...RunOption) (*model.ReconstructionResult, error) {
	var rc runConfig
	for _, opt := range opts {
		opt(&rc)
	}

	jobID, err := o.Submit(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	o.emit(rc, Update{JobID: jobID, URL: rawURL, Phase: PhaseSubmitted, Snapshot: model.JobSnapshot{State: model.JobQueued}})

	return o.wait(ctx, jobID, rawURL, rc)
}

// Wait polls an already submitted job until it reaches a terminal state.
func (o *Orchestrator) Wait(ctx context.Context, jobID, rawURL string, opts ...RunOption) (*model.ReconstructionResult, error) {
	var rc runConfig
	for _, opt := range opts {
		opt(&rc)
	}
	return o.wait(ctx, jobID, rawURL, rc)
}

func (o *Orchestrator) wait(ctx context.Context, jobID, rawURL string, rc runConfig) (*model.ReconstructionResult, error) {
	log := zap.L().With(zap.String("job_id", jobID), zap.String("url", rawURL))

	start := o.now()
	deadline := start.Add(o.timeout)
	polls := 0
	var lastErr error

	for {
		if err := ctx.Err(); err != nil {
			return nil, o.stopped(ctx, rc, jobID, rawURL, polls, start, lastErr)
		}
		if !o.now().Before(deadline) {
			terr := &TimeoutError{JobID: jobID, Polls: polls, Elapsed: o.now().Sub(start), LastErr: lastErr}
			log.Warn("orchestrator: job timed out", zap.Int("polls", polls), zap.Duration("elapsed", terr.Elapsed))
			o.emit(rc, Update{JobID: jobID, URL: rawURL, Phase: PhaseTimeout, Polls: polls, Err: terr})
			return nil, terr
		}

		snap, err := o.Poll(ctx, jobID)
		polls++

		switch {
		case err != nil && ctx.Err() != nil:
			return nil, o.stopped(ctx, rc, jobID, rawURL, polls, start, lastErr)
		case err != nil:
			pe := &PollError{JobID: jobID, Err: err}
			errors.As(err, &pe)
			pe.Attempt = polls
			lastErr = pe
			log.Warn("orchestrator: poll failed, continuing", zap.Int("attempt", polls), zap.Error(pe.Err))
			o.emit(rc, Update{JobID: jobID, URL: rawURL, Phase: PhasePollError, Polls: polls, Err: pe})
		case snap.State == model.JobFinished:
			result := snap.Result
			if result == nil {
				result = &model.ReconstructionResult{URL: rawURL}
			}
			log.Info("orchestrator: job finished", zap.Int("polls", polls))
			o.emit(rc, Update{JobID: jobID, URL: rawURL, Phase: PhaseFinished, Snapshot: snap, Polls: polls, Result: result})
			return result, nil
		case snap.State == model.JobFailed:
			ferr := &JobFailedError{JobID: jobID, Message: snap.ErrorMessage}
			log.Info("orchestrator: job failed", zap.Int("polls", polls), zap.String("message", snap.ErrorMessage))
			o.emit(rc, Update{JobID: jobID, URL: rawURL, Phase: PhaseFailed, Snapshot: snap, Polls: polls, Err: ferr})
			return nil, ferr
		default:
			log.Debug("orchestrator: job pending", zap.String("state", string(snap.State)), zap.Int("polls", polls))
			o.emit(rc, Update{JobID: jobID, URL: rawURL, Phase: PhasePolled, Snapshot: snap, Polls: polls})
		}

		wait := o.interval
		if remaining := deadline.Sub(o.now()); remaining < wait {
			wait = remaining
		}
		if err := o.sleep(ctx, wait); err != nil {
			return nil, o.stopped(ctx, rc, jobID, rawURL, polls, start, lastErr)
		}
	}
}

// stopped maps a done context to the caller-facing error. A context
// deadline counts as a timeout.
func (o *Orchestrator) stopped(ctx context.Context, rc runConfig, jobID, rawURL string, polls int, start time.Time, lastErr error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		terr := &TimeoutError{JobID: jobID, Polls: polls, Elapsed: o.now().Sub(start), LastErr: lastErr}
		o.emit(rc, Update{JobID: jobID, URL: rawURL, Phase: PhaseTimeout, Polls: polls, Err: terr})
		return terr
	}
	err := eris.Wrapf(ctx.Err(), "orchestrator: job %s cancelled", jobID)
	o.emit(rc, Update{JobID: jobID, URL: rawURL, Phase: PhaseCancelled, Polls: polls, Err: err})
	return err
}

func (o *Orchestrator) emit(rc runConfig, u Update) {
	u.At = o.now()
	for _, fn := range o.observers {
		fn(u)
	}
	for _, fn := range rc.observers {
		fn(u)
	}
}

func (o *Orchestrator) cached(jobID string) (model.JobSnapshot, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	snap, ok := o.terminal[jobID]
	return snap, ok
}

func (o *Orchestrator) remember(jobID string, snap model.JobSnapshot) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.terminal[jobID]; ok {
		return
	}
	o.terminal[jobID] = snap
	o.order = append(o.order, jobID)
	if len(o.order) > maxTerminalCache {
		delete(o.terminal, o.order[0])
		o.order = o.order[1:]
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
