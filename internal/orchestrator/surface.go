package orchestrator

import (
	"context"
	"errors"
	"sync"
)

// Surface owns at most one active job loop, as a single UI pane does.
// Starting a new job cancels the previous loop and bumps a generation
// counter. Updates from an older generation are dropped even if their
// response was already in flight.
type Surface struct {
	orch    *Orchestrator
	handler func(Update)

	mu      sync.Mutex
	gen     uint64
	cancel  context.CancelFunc
	jobID   string
	url     string
	active  bool
	dropped int
	wg      sync.WaitGroup
}

// NewSurface delivers current-generation updates to handler. The handler
// runs with the surface locked: it must not block or call back into the
// Surface.
func NewSurface(orch *Orchestrator, handler func(Update)) *Surface {
	return &Surface{orch: orch, handler: handler}
}

// Start supersedes any running job and begins a new one for rawURL. It
// returns the new generation.
func (s *Surface) Start(ctx context.Context, rawURL string) uint64 {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	gen := s.gen
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.jobID = ""
	s.url = rawURL
	s.active = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		_, err := s.orch.Run(runCtx, rawURL, OnUpdate(func(u Update) {
			u.Generation = gen
			s.deliver(u)
		}))
		// Submit failures never reach the loop, so report them here.
		var ve *ValidationError
		var se *SubmissionError
		if errors.As(err, &ve) || errors.As(err, &se) {
			s.deliver(Update{Generation: gen, URL: rawURL, Phase: PhaseFailed, Err: err, At: s.orch.now()})
		}
	}()
	return gen
}

// Cancel stops the active loop. Any late update it produces is dropped.
func (s *Surface) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
	s.active = false
}

// Current describes the surface's active job.
type Current struct {
	Generation uint64
	JobID      string
	URL        string
	Active     bool
}

// Current returns the active generation and job.
func (s *Surface) Current() Current {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Current{Generation: s.gen, JobID: s.jobID, URL: s.url, Active: s.active}
}

// Dropped counts stale updates discarded so far.
func (s *Surface) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Wait blocks until every loop started on this surface has returned.
func (s *Surface) Wait() {
	s.wg.Wait()
}

func (s *Surface) deliver(u Update) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.Generation != s.gen {
		s.dropped++
		return
	}
	if u.JobID != "" {
		s.jobID = u.JobID
	}
	if u.Phase.Terminal() {
		s.active = false
	}
	if s.handler != nil {
		s.handler(u)
	}
}
