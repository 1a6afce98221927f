// Package connector starts the node's protocol connector subprocesses and
// tells them to stop. Supervision of the running processes is left to the
// operating system; the only channel back to them is the broker fabric.
package connector

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"busnode/join"
	"busnode/messaging"
	"busnode/monitor"
	"busnode/store"
)

// Lister is the slice of the store the supervisor enumerates connectors from.
type Lister interface {
	GetChannelAMQPList(ctx context.Context, clusterID int64) ([]store.ConnectorRow, error)
	GetOutAMQPList(ctx context.Context, clusterID int64) ([]store.ConnectorRow, error)
	GetChannelJMSList(ctx context.Context, clusterID int64) ([]store.ConnectorRow, error)
	GetOutJMSList(ctx context.Context, clusterID int64) ([]store.ConnectorRow, error)
	GetChannelZMQList(ctx context.Context, clusterID int64) ([]store.ConnectorRow, error)
	GetOutZMQList(ctx context.Context, clusterID int64) ([]store.ConnectorRow, error)
}

// DirectiveSender publishes a directive on a topic. *messaging.Client is one.
type DirectiveSender interface {
	SendDirective(ctx context.Context, d messaging.Directive, topic string) error
}

// Emitter receives connector lifecycle notifications.
type Emitter interface {
	EmitConnectorStarted(h Handle)
	EmitConnectorFailed(kind string, id int64, err error)
	EmitDirectiveSent(family, topic string, err error)
}

// Descriptor is one connector to start. It is discarded once spawned.
type Descriptor struct {
	Kind         string
	ID           int64
	DefID        *int64
	RepoLocation string
}

// Args renders the process arguments: repo location, connector id and, for
// definition-backed kinds, the definition id.
func (d Descriptor) Args() []string {
	args := []string{d.RepoLocation, strconv.FormatInt(d.ID, 10)}
	if hasDefinition(d.Kind) && d.DefID != nil {
		args = append(args, strconv.FormatInt(*d.DefID, 10))
	}
	return args
}

func hasDefinition(kind string) bool {
	switch kind {
	case store.KindChannelAMQP, store.KindOutAMQP, store.KindChannelJMS, store.KindOutJMS:
		return true
	}
	return false
}

// Handle records a successful spawn. Nothing checks whether the process is
// still alive.
type Handle struct {
	PID       int
	Kind      string
	ID        int64
	StartedAt time.Time
}

type Config struct {
	Lister       Lister
	Launcher     Launcher
	Emitter      Emitter
	Metrics      *monitor.Metrics
	RepoLocation string
	Token        string
	SettleDelay  time.Duration
	Logger       hclog.Logger
}

type Supervisor struct {
	lister       Lister
	launcher     Launcher
	emitter      Emitter
	metrics      *monitor.Metrics
	repoLocation string
	token        string
	settleDelay  time.Duration
	logger       hclog.Logger
	sleep        func(time.Duration)

	mu      sync.Mutex
	sender  DirectiveSender
	handles []Handle
}

func NewSupervisor(c Config) *Supervisor {
	logger := c.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Supervisor{
		lister:       c.Lister,
		launcher:     c.Launcher,
		emitter:      c.Emitter,
		metrics:      c.Metrics,
		repoLocation: c.RepoLocation,
		token:        c.Token,
		settleDelay:  c.SettleDelay,
		logger:       logger.Named("connector"),
		sleep:        time.Sleep,
	}
}

// SetSender installs the broker client used by ShutdownAll.
func (s *Supervisor) SetSender(sender DirectiveSender) {
	s.mu.Lock()
	s.sender = sender
	s.mu.Unlock()
}

type listFunc func(ctx context.Context, clusterID int64) ([]store.ConnectorRow, error)

// StartAll spawns one subprocess per persisted connector, family by family.
// A failed list read skips that family only; a failed spawn is reported and
// never retried.
func (s *Supervisor) StartAll(ctx context.Context, id join.NodeIdentity) {
	families := []struct {
		kind string
		list listFunc
	}{
		{store.KindChannelAMQP, s.lister.GetChannelAMQPList},
		{store.KindOutAMQP, s.lister.GetOutAMQPList},
		{store.KindChannelJMS, s.lister.GetChannelJMSList},
		{store.KindOutJMS, s.lister.GetOutJMSList},
		{store.KindChannelZMQ, s.lister.GetChannelZMQList},
		{store.KindOutZMQ, s.lister.GetOutZMQList},
	}

	started := 0
	for _, f := range families {
		rows, err := f.list(ctx, id.ClusterID)
		if err != nil {
			s.logger.Error("could not list connectors", "kind", f.kind, "error", err)
			continue
		}
		for _, row := range rows {
			d := Descriptor{Kind: f.kind, ID: row.ID, DefID: row.DefID, RepoLocation: s.repoLocation}
			if s.start(ctx, d) {
				started++
			}
		}
	}
	s.logger.Info("connectors started", "count", started)
}

func (s *Supervisor) start(ctx context.Context, d Descriptor) bool {
	pid, err := s.launcher.Start(ctx, StartRequest{Kind: d.Kind, Args: d.Args()})
	s.metrics.ObserveSpawn(d.Kind, err)
	if err != nil {
		s.logger.Error("connector failed to start", "kind", d.Kind, "id", d.ID, "error", err)
		if s.emitter != nil {
			s.emitter.EmitConnectorFailed(d.Kind, d.ID, err)
		}
		return false
	}

	h := Handle{PID: pid, Kind: d.Kind, ID: d.ID, StartedAt: time.Now()}
	s.mu.Lock()
	s.handles = append(s.handles, h)
	s.mu.Unlock()

	s.logger.Debug("connector started", "kind", d.Kind, "id", d.ID, "pid", pid)
	if s.emitter != nil {
		s.emitter.EmitConnectorStarted(h)
	}
	return true
}

// Handles lists every connector spawned so far, in start order.
func (s *Supervisor) Handles() []Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Handle, len(s.handles))
	copy(out, s.handles)
	return out
}

// ShutdownAll broadcasts a close directive to each connector family in
// turn, pausing for the settle delay between broadcasts. Nothing is
// acknowledged and failures are only logged.
func (s *Supervisor) ShutdownAll(ctx context.Context) {
	s.mu.Lock()
	sender := s.sender
	s.mu.Unlock()
	if sender == nil {
		s.logger.Debug("no broker client, skipping connector close directives")
		return
	}

	for i, f := range messaging.ConnectorFamilies() {
		if i > 0 && s.settleDelay > 0 {
			s.sleep(s.settleDelay)
		}
		err := sender.SendDirective(ctx, messaging.Directive{Action: f.Close, ODBToken: s.token}, f.Topic)
		s.metrics.ObserveDirective(f.Name, err)
		if err != nil {
			s.logger.Error("could not send close directive", "family", f.Name, "topic", f.Topic, "error", err)
		} else {
			s.logger.Debug("close directive sent", "family", f.Name, "topic", f.Topic)
		}
		if s.emitter != nil {
			s.emitter.EmitDirectiveSent(f.Name, f.Topic, err)
		}
	}
}
