package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hashicorp/go-hclog"

	"busnode/monitor"
)

// Step is one teardown action.
type Step struct {
	Name string
	Run  func(ctx context.Context) error
}

// Shutdown runs teardown steps in order, once. Every step is attempted no
// matter how the ones before it went.
type Shutdown struct {
	steps   []Step
	bus     *EventBus
	metrics *monitor.Metrics
	logger  hclog.Logger

	once sync.Once
	err  error
}

func NewShutdown(steps []Step, bus *EventBus, metrics *monitor.Metrics, logger hclog.Logger) *Shutdown {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Shutdown{steps: steps, bus: bus, metrics: metrics, logger: logger.Named("shutdown")}
}

// Steps returns the step names in execution order.
func (s *Shutdown) Steps() []string {
	names := make([]string, len(s.steps))
	for i, st := range s.steps {
		names[i] = st.Name
	}
	return names
}

// Run executes the sequence the first time it is called. Later calls return
// the first run's result without doing anything.
func (s *Shutdown) Run(ctx context.Context) error {
	s.once.Do(func() {
		var errs []error
		for _, st := range s.steps {
			err := s.runStep(ctx, st)
			s.metrics.ObserveShutdownStep(st.Name, err)
			ev := ShutdownStepEvent{Step: st.Name}
			if err != nil {
				s.logger.Error("shutdown step failed", "step", st.Name, "error", err)
				ev.Detail = err.Error()
				errs = append(errs, fmt.Errorf("%s: %w", st.Name, err))
			} else {
				s.logger.Info("shutdown step done", "step", st.Name)
			}
			if s.bus != nil {
				s.bus.Emit(Event{Type: EventShutdownStep, Payload: ev})
			}
		}
		s.err = errors.Join(errs...)
	})
	return s.err
}

func (s *Shutdown) runStep(ctx context.Context, st Step) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return st.Run(ctx)
}
