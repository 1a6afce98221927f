// Package scheduler keeps the cluster's jobs in memory and asks for each one
// to be executed when it comes due. It runs only on the singleton node.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"busnode/monitor"
	"busnode/store"
)

// Actions accepted by CreateEdit.
const (
	ActionCreate = "create"
	ActionEdit   = "edit"
)

// FireFunc asks for one job execution. It must not block for long.
type FireFunc func(ctx context.Context, job store.Job) error

type entry struct {
	job   store.Job
	next  time.Time
	live  bool
	count int
}

// Entry is a read-only view of a scheduled job.
type Entry struct {
	Job     store.Job
	NextRun time.Time
	Pending bool
	Fired   int
}

type Scheduler struct {
	mu      sync.Mutex
	jobs    map[string]*entry
	fire    FireFunc
	now     func() time.Time
	wake    chan struct{}
	metrics *monitor.Metrics
	logger  hclog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

func New(fire FireFunc, metrics *monitor.Metrics, logger hclog.Logger) *Scheduler {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Scheduler{
		jobs:    make(map[string]*entry),
		fire:    fire,
		now:     time.Now,
		wake:    make(chan struct{}, 1),
		metrics: metrics,
		logger:  logger.Named("scheduler"),
	}
}

// CreateEdit adds a job (create) or replaces an existing one (edit).
// Inactive jobs are kept but never fire.
func (s *Scheduler) CreateEdit(action string, job store.Job) error {
	if job.Name == "" {
		return fmt.Errorf("scheduler: job has no name")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, exists := s.jobs[job.Name]
	switch action {
	case ActionCreate:
		if exists {
			return fmt.Errorf("scheduler: job %s already exists", job.Name)
		}
	case ActionEdit:
		if !exists {
			return fmt.Errorf("scheduler: job %s not found", job.Name)
		}
	default:
		return fmt.Errorf("scheduler: unknown action %q", action)
	}

	e := &entry{job: job}
	if job.IsActive {
		next, ok, err := NextRun(job, s.now(), 0)
		if err != nil {
			return err
		}
		e.next, e.live = next, ok
	}
	s.jobs[job.Name] = e
	s.logger.Debug("job scheduled", "action", action, "job", job.Name, "type", job.JobType, "next", e.next)
	s.poke()
	return nil
}

func (s *Scheduler) Delete(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[name]; !ok {
		return false
	}
	delete(s.jobs, name)
	s.poke()
	return true
}

// Jobs lists every job ordered by name.
func (s *Scheduler) Jobs() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, 0, len(s.jobs))
	for _, e := range s.jobs {
		out = append(out, Entry{Job: e.job, NextRun: e.next, Pending: e.live, Fired: e.count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Job.Name < out[j].Job.Name })
	return out
}

func (s *Scheduler) poke() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Start runs the firing loop until ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		cancel()
		return
	}
	s.cancel = cancel
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		s.loop(ctx)
	}()
}

// Stop ends the firing loop and waits for it to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

const idleWait = time.Hour

func (s *Scheduler) loop(ctx context.Context) {
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.wake:
		case <-timer.C:
		}

		s.runDue(ctx)

		wait := s.untilNext()
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)
	}
}

func (s *Scheduler) untilNext() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	wait := idleWait
	now := s.now()
	for _, e := range s.jobs {
		if !e.live {
			continue
		}
		if d := e.next.Sub(now); d < wait {
			wait = d
		}
	}
	if wait < 0 {
		wait = 0
	}
	return wait
}

func (s *Scheduler) runDue(ctx context.Context) {
	now := s.now()
	var due []store.Job

	s.mu.Lock()
	for _, e := range s.jobs {
		if !e.live || e.next.After(now) {
			continue
		}
		due = append(due, e.job)
		e.count++
		next, ok, err := NextRun(e.job, now, e.count)
		if err != nil {
			s.logger.Error("could not compute next run", "job", e.job.Name, "error", err)
			ok = false
		}
		e.next, e.live = next, ok
	}
	s.mu.Unlock()

	for _, job := range due {
		err := s.fire(ctx, job)
		s.metrics.ObserveFire(job.JobType, err)
		if err != nil {
			s.logger.Error("job execution request failed", "job", job.Name, "error", err)
			continue
		}
		s.logger.Debug("job fired", "job", job.Name)
	}
}
