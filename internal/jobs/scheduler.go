package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"usbb-go/internal/metrics"
	"usbb-go/internal/usbb"
)

var (
	ErrDuplicateJob = errors.New("job already tracked")
	ErrJobNotFound  = errors.New("job not found")
)

// DefaultHistorySize is the number of jobs tracked when none is configured.
const DefaultHistorySize = 100

type tracked struct {
	job        *Job
	state      State
	logs       []LogEntry
	errorCount int
	started    bool

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	logSubs map[*logSub]struct{}
}

// Scheduler tracks submitted jobs and runs them one at a time in submission
// order. Jobs marked Concurrent skip the queue.
//
// At most capacity jobs are kept. When a new job arrives and the history is
// full, the oldest jobs are dropped as long as they have completed; a running
// or pending oldest job lets the history grow past capacity for a while.
type Scheduler struct {
	mu       sync.Mutex
	cond     *sync.Cond
	capacity int
	logger   usbb.Logger
	clock    usbb.Clock

	jobs    map[string]*tracked
	order   []string // tracked ids, oldest first
	pending []string // non-concurrent jobs waiting for their turn
	running int

	jobSubs map[*jobSub]struct{}
}

// NewScheduler creates a Scheduler keeping at most capacity jobs.
func NewScheduler(capacity int, logger usbb.Logger, clock usbb.Clock) *Scheduler {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}
	s := &Scheduler{
		capacity: capacity,
		logger:   logger,
		clock:    clock,
		jobs:     make(map[string]*tracked),
		jobSubs:  make(map[*jobSub]struct{}),
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Submit starts tracking job and runs it in the background as soon as it is
// its turn.
func (s *Scheduler) Submit(job *Job) error {
	if job.ID == "" || job.Run == nil {
		return fmt.Errorf("job needs an id and a body")
	}

	s.mu.Lock()
	if _, ok := s.jobs[job.ID]; ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicateJob, job.ID)
	}
	s.evictLocked()

	ctx, cancel := context.WithCancel(context.Background())
	t := &tracked{
		job: job,
		state: State{
			ID:          job.ID,
			Name:        job.Name,
			Description: job.Description,
			Context:     job.Context,
			Status:      StatusPending,
			Active:      true,
			CreatedAt:   s.clock.Now(),
		},
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
		logSubs: make(map[*logSub]struct{}),
	}
	s.jobs[job.ID] = t
	s.order = append(s.order, job.ID)
	if !job.Concurrent {
		s.pending = append(s.pending, job.ID)
	}
	metrics.JobsTracked.Set(float64(len(s.jobs)))
	s.publishLocked(t)
	s.mu.Unlock()

	s.logger.Debug("job submitted", "job_id", job.ID, "job", job.Name)
	go s.run(t)
	return nil
}

func (s *Scheduler) evictLocked() {
	for len(s.order) >= s.capacity {
		oldest := s.jobs[s.order[0]]
		if !oldest.state.Completed {
			return
		}
		delete(s.jobs, oldest.job.ID)
		s.order = s.order[1:]
	}
}

func (s *Scheduler) run(t *tracked) {
	if !s.waitTurn(t) {
		return
	}

	log := &jobLogger{s: s, t: t, process: s.logger}
	err := invoke(t, log)

	status := StatusSuccess
	switch {
	case t.ctx.Err() != nil:
		status = StatusCancelled
		if err == nil {
			err = t.ctx.Err()
		}
	case err != nil:
		status = StatusFailed
		log.Error("job failed", "error", err)
	}

	s.mu.Lock()
	s.running--
	s.completeLocked(t, status, err)
	s.mu.Unlock()
}

// waitTurn blocks until t may start. It returns false if t was cancelled
// while waiting.
func (s *Scheduler) waitTurn(t *tracked) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !t.job.Concurrent {
		for {
			if t.state.Completed {
				return false
			}
			if s.nextRunnable() == t.job.ID {
				break
			}
			s.cond.Wait()
		}
		s.pending = s.pending[1:]
	} else if t.state.Completed {
		return false
	}

	now := s.clock.Now()
	t.started = true
	t.state.Status = StatusRunning
	t.state.StartedAt = &now
	s.running++
	s.publishLocked(t)
	metrics.RecordJobStart(t.job.Name)
	s.logger.Info("job started", "job_id", t.job.ID, "job", t.job.Name)
	return true
}

func (s *Scheduler) nextRunnable() string {
	if s.running > 0 || len(s.pending) == 0 {
		return ""
	}
	return s.pending[0]
}

func invoke(t *tracked, log *jobLogger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return t.job.Run(t.ctx, log)
}

func (s *Scheduler) completeLocked(t *tracked, status Status, err error) {
	now := s.clock.Now()
	t.state.Status = status
	t.state.Active = false
	t.state.Completed = true
	t.state.FinishedAt = &now
	t.state.ErrorCount = t.errorCount
	if err != nil {
		t.state.Error = err.Error()
	}
	t.cancel()
	close(t.done)

	s.publishLocked(t)
	for sub := range t.logSubs {
		sub.signal()
	}
	s.cond.Broadcast()

	metrics.RecordJobFinish(t.job.Name, string(status), t.errorCount)
	s.logger.Info("job finished", "job_id", t.job.ID, "job", t.job.Name,
		"status", string(status), "errors", t.errorCount)
}

func (s *Scheduler) appendLog(t *tracked, entry LogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.Index = len(t.logs) + 1
	t.logs = append(t.logs, entry)
	if entry.Level == "error" {
		t.errorCount++
	}
	for sub := range t.logSubs {
		sub.signal()
	}
}

// Cancel stops a job. A pending job ends cancelled right away; a running job
// has its context cancelled and ends cancelled once its body returns.
// Cancelling a completed job does nothing.
func (s *Scheduler) Cancel(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	switch {
	case t.state.Completed:
	case t.started:
		t.cancel()
	default:
		for i, pid := range s.pending {
			if pid == id {
				s.pending = append(s.pending[:i:i], s.pending[i+1:]...)
				break
			}
		}
		s.completeLocked(t, StatusCancelled, context.Canceled)
	}
	return nil
}

// CancelAll cancels every job that has not completed.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	ids := append([]string(nil), s.order...)
	s.mu.Unlock()
	for _, id := range ids {
		_ = s.Cancel(id)
	}
}

// Get returns the job's current state. Unknown ids yield a Deleted state.
func (s *Scheduler) Get(id string) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.jobs[id]; ok {
		return t.state
	}
	return State{ID: id, Deleted: true}
}

// List returns the state of every tracked job, oldest first.
func (s *Scheduler) List() []State {
	s.mu.Lock()
	defer s.mu.Unlock()
	states := make([]State, 0, len(s.order))
	for _, id := range s.order {
		states = append(states, s.jobs[id].state)
	}
	return states
}

// Logs returns the log lines recorded for a job so far.
func (s *Scheduler) Logs(id string) ([]LogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return t.logs[:len(t.logs):len(t.logs)], nil
}

// Wait blocks until the job completes or ctx ends.
func (s *Scheduler) Wait(ctx context.Context, id string) (State, error) {
	s.mu.Lock()
	t, ok := s.jobs[id]
	s.mu.Unlock()
	if !ok {
		return State{ID: id, Deleted: true}, nil
	}

	select {
	case <-t.done:
	case <-ctx.Done():
		return State{}, ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return t.state, nil
}
