// Package singleton elects the one node per cluster that runs the scheduler
// and hosts the singleton's broker client.
package singleton

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"busnode/monitor"
)

type Elector struct {
	leases  LeaseStore
	key     string
	owner   string
	ttl     time.Duration
	metrics *monitor.Metrics
	logger  hclog.Logger

	mu     sync.Mutex
	held   bool
	cancel context.CancelFunc
	done   chan struct{}
}

func NewElector(leases LeaseStore, key string, ttl time.Duration, metrics *monitor.Metrics, logger hclog.Logger) *Elector {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Elector{
		leases:  leases,
		key:     key,
		owner:   uuid.NewString(),
		ttl:     ttl,
		metrics: metrics,
		logger:  logger.Named("elector"),
	}
}

// Owner is the value this node writes into the lease.
func (e *Elector) Owner() string { return e.owner }

func (e *Elector) Held() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.held
}

func (e *Elector) setHeld(v bool) {
	e.mu.Lock()
	e.held = v
	e.mu.Unlock()
	e.metrics.SetSingletonLeader(v)
}

// TryAcquire takes the lease if nobody holds it.
func (e *Elector) TryAcquire(ctx context.Context) (bool, error) {
	ok, err := e.leases.Acquire(ctx, e.key, e.owner, e.ttl)
	if err != nil {
		return false, err
	}
	e.setHeld(ok)
	return ok, nil
}

// Decide runs one election. When the lease store can't be reached the
// configured fallback decides instead.
func (e *Elector) Decide(ctx context.Context, fallback bool) bool {
	ok, err := e.TryAcquire(ctx)
	if err != nil {
		e.logger.Warn("singleton lease store unavailable, using configured default", "enabled", fallback, "error", err)
		return fallback
	}
	if ok {
		e.logger.Info("acquired singleton lease", "key", e.key)
	} else {
		e.logger.Info("singleton lease held by another node", "key", e.key)
	}
	return ok
}

// Hold renews the lease in the background until ctx ends or the lease is
// lost. Calling it without holding the lease does nothing.
func (e *Elector) Hold(ctx context.Context) {
	if !e.Held() {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	e.mu.Lock()
	if e.cancel != nil {
		e.mu.Unlock()
		cancel()
		return
	}
	e.cancel, e.done = cancel, done
	e.mu.Unlock()

	interval := e.ttl / 3
	if interval <= 0 {
		interval = time.Second
	}
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				ok, err := e.leases.Renew(ctx, e.key, e.owner, e.ttl)
				if err != nil {
					e.logger.Warn("could not renew singleton lease", "error", err)
					continue
				}
				if !ok {
					e.logger.Error("singleton lease lost")
					e.setHeld(false)
					return
				}
			}
		}
	}()
}

// Release stops renewing and gives the lease up if this node still owns it.
func (e *Elector) Release(ctx context.Context) error {
	e.mu.Lock()
	cancel, done, held := e.cancel, e.done, e.held
	e.cancel, e.done = nil, nil
	e.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	if !held {
		return nil
	}
	_, err := e.leases.Release(ctx, e.key, e.owner)
	e.setHeld(false)
	return err
}
