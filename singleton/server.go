package singleton

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-hclog"

	"busnode/messaging"
	"busnode/scheduler"
	"busnode/store"
	"busnode/topology"
)

// ClientName is the broker client name the singleton registers under.
const ClientName = "singleton"

// JobLister reads the cluster's scheduled jobs.
type JobLister interface {
	GetJobList(ctx context.Context, clusterID int64) ([]store.Job, error)
}

// JobRequest is the payload pushed to the broker when a job is due.
type JobRequest struct {
	Action  messaging.Action `json:"action"`
	Name    string           `json:"name"`
	Service string           `json:"service"`
	Extra   string           `json:"extra,omitempty"`
}

// Server is the singleton's runtime: its own broker client and the
// scheduler that fires through it.
type Server struct {
	fabric *messaging.Context
	token  string
	jobs   JobLister
	sched  *scheduler.Scheduler
	logger hclog.Logger

	mu     sync.Mutex
	client *messaging.Client
	ready  chan struct{}
}

func NewServer(fabric *messaging.Context, token string, jobs JobLister, logger hclog.Logger) *Server {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Server{
		fabric: fabric,
		token:  token,
		jobs:   jobs,
		logger: logger.Named("singleton"),
		ready:  make(chan struct{}),
	}
}

// SetScheduler installs the scheduler Run starts. The engine builds it with
// Fire as its FireFunc.
func (s *Server) SetScheduler(sched *scheduler.Scheduler) { s.sched = sched }

func (s *Server) Scheduler() *scheduler.Scheduler { return s.sched }

// Ready is closed once the broker client and scheduler are running.
func (s *Server) Ready() <-chan struct{} { return s.ready }

// Client returns the singleton's broker client, nil until Run has set it up.
func (s *Server) Client() *messaging.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client
}

// Run brings the singleton up and blocks until ctx ends. It is meant to run
// in its own goroutine.
func (s *Server) Run(ctx context.Context, eps topology.Endpoints) error {
	client, err := s.fabric.NewClient(ClientName, s.token, eps.Singleton())
	if err != nil {
		return fmt.Errorf("singleton: %w", err)
	}
	if err := client.Init(ctx); err != nil {
		client.Close()
		return fmt.Errorf("singleton: %w", err)
	}
	client.SetReceiver(messaging.NewReceiver(s.logger))
	if err := client.Start(); err != nil {
		client.Close()
		return fmt.Errorf("singleton: %w", err)
	}

	s.mu.Lock()
	s.client = client
	s.mu.Unlock()

	if s.sched != nil {
		s.sched.Start(ctx)
	}
	close(s.ready)
	s.logger.Info("singleton server running", "push", eps.SingletonPushBrokerPull)

	<-ctx.Done()
	if s.sched != nil {
		s.sched.Stop()
	}
	return nil
}

// Fire asks the broker to execute a due job.
func (s *Server) Fire(ctx context.Context, job store.Job) error {
	client := s.Client()
	if client == nil {
		return messaging.ErrNotInitialized
	}
	return client.Send(ctx, "scheduler", messaging.TopicScheduler, JobRequest{
		Action:  messaging.ActionSchedulerJobExecute,
		Name:    job.Name,
		Service: job.Service,
		Extra:   job.Extra,
	})
}

// LoadJobs hands every active job in the cluster to the scheduler.
func (s *Server) LoadJobs(ctx context.Context, clusterID int64) (int, error) {
	if s.sched == nil {
		return 0, fmt.Errorf("singleton: no scheduler")
	}
	jobs, err := s.jobs.GetJobList(ctx, clusterID)
	if err != nil {
		return 0, fmt.Errorf("singleton: load jobs: %w", err)
	}
	n := 0
	for _, job := range jobs {
		if !job.IsActive {
			continue
		}
		if err := s.sched.CreateEdit(scheduler.ActionCreate, job); err != nil {
			s.logger.Error("could not schedule job", "job", job.Name, "error", err)
			continue
		}
		n++
	}
	s.logger.Info("jobs loaded", "count", n)
	return n, nil
}
