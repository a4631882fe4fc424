package jobs

import (
	"context"
	"fmt"
	"sync"
)

// jobSub buffers state updates for one SubscribeJobs caller so publishing
// never waits on a slow reader.
type jobSub struct {
	mu    sync.Mutex
	queue []State
	wake  chan struct{}
}

func (sub *jobSub) push(st State) {
	sub.mu.Lock()
	sub.queue = append(sub.queue, st)
	sub.mu.Unlock()
	select {
	case sub.wake <- struct{}{}:
	default:
	}
}

func (sub *jobSub) drain() []State {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	q := sub.queue
	sub.queue = nil
	return q
}

type logSub struct {
	wake chan struct{}
}

func (sub *logSub) signal() {
	select {
	case sub.wake <- struct{}{}:
	default:
	}
}

func (s *Scheduler) publishLocked(t *tracked) {
	for sub := range s.jobSubs {
		sub.push(t.state)
	}
}

// SubscribeJobs streams job states. The current state of every tracked job
// is sent first, then every change as it happens. The channel is closed when
// ctx ends.
func (s *Scheduler) SubscribeJobs(ctx context.Context) <-chan State {
	sub := &jobSub{wake: make(chan struct{}, 1)}

	s.mu.Lock()
	for _, id := range s.order {
		sub.queue = append(sub.queue, s.jobs[id].state)
	}
	s.jobSubs[sub] = struct{}{}
	s.mu.Unlock()
	sub.wake <- struct{}{}

	out := make(chan State)
	go func() {
		defer close(out)
		defer func() {
			s.mu.Lock()
			delete(s.jobSubs, sub)
			s.mu.Unlock()
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case <-sub.wake:
			}
			for _, st := range sub.drain() {
				select {
				case out <- st:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// SubscribeLogs streams a job's log. The first batch holds every line logged
// so far; later batches hold only new lines. Batches share the job's backing
// array and must not be modified. The channel is closed once the job has
// completed and all lines were delivered, or when ctx ends.
func (s *Scheduler) SubscribeLogs(ctx context.Context, id string) (<-chan []LogEntry, error) {
	s.mu.Lock()
	t, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	sub := &logSub{wake: make(chan struct{}, 1)}
	t.logSubs[sub] = struct{}{}
	s.mu.Unlock()
	sub.signal()

	out := make(chan []LogEntry)
	go func() {
		defer close(out)
		defer func() {
			s.mu.Lock()
			delete(t.logSubs, sub)
			s.mu.Unlock()
		}()

		cursor := 0
		for {
			select {
			case <-ctx.Done():
				return
			case <-sub.wake:
			}

			s.mu.Lock()
			n := len(t.logs)
			batch := t.logs[cursor:n:n]
			cursor = n
			done := t.state.Completed
			s.mu.Unlock()

			if len(batch) > 0 {
				select {
				case out <- batch:
				case <-ctx.Done():
					return
				}
			}
			if done {
				return
			}
		}
	}()
	return out, nil
}
