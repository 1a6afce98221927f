// Package join reads this node's cluster membership from the store and
// decides how much of the runtime to bring up.
package join

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"

	"busnode/store"
	"busnode/topology"
)

// Join status values as persisted on the server row.
const (
	StatusAccepted    = "accepted"
	StatusNotAccepted = "not-accepted"
)

// ErrNotRegistered means the store has no server row for this node's token.
var ErrNotRegistered = errors.New("node is not registered in the store")

// ConfigurationError is a fatal startup error: the node cannot run with the
// configuration it found.
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Err.Error()
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

type State int

const (
	NotAccepted State = iota
	Accepted
)

func (s State) String() string {
	if s == Accepted {
		return "accepted"
	}
	return "not-accepted"
}

// NodeIdentity is this node's membership row joined with its cluster. It is
// read once at startup and never refreshed; a changed join status only takes
// effect after a restart.
type NodeIdentity struct {
	ServerID        int64
	Name            string
	ClusterID       int64
	Host            string
	Port            int
	BrokerHost      string
	BrokerStartPort int
	BrokerToken     string
	JoinStatus      string
	JoinStatusSince *time.Time
}

// State maps the stored status onto the two join states. Anything other
// than "accepted" is treated as not accepted.
func (id NodeIdentity) State() State {
	if id.JoinStatus == StatusAccepted {
		return Accepted
	}
	return NotAccepted
}

// Endpoints derives the cluster's broker endpoint table.
func (id NodeIdentity) Endpoints() (topology.Endpoints, error) {
	return topology.Derive(id.BrokerHost, id.BrokerStartPort)
}

// ServerReader is the store query the coordinator needs.
type ServerReader interface {
	FetchServer(ctx context.Context) (*store.Server, error)
}

// Phases are the initialization steps run around the join decision. Common
// always runs first; exactly one of Accepted or NotAccepted follows. Nil
// phases are skipped.
type Phases struct {
	Common      func(ctx context.Context, id NodeIdentity) error
	Accepted    func(ctx context.Context, id NodeIdentity) error
	NotAccepted func(ctx context.Context, id NodeIdentity) error
}

type Coordinator struct {
	servers ServerReader
	logger  hclog.Logger
}

func NewCoordinator(servers ServerReader, logger hclog.Logger) *Coordinator {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Coordinator{servers: servers, logger: logger.Named("join")}
}

// Fetch reads the node identity. Every failure is a *ConfigurationError.
func (c *Coordinator) Fetch(ctx context.Context) (NodeIdentity, error) {
	srv, err := c.servers.FetchServer(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return NodeIdentity{}, &ConfigurationError{Err: ErrNotRegistered}
	}
	if err != nil {
		return NodeIdentity{}, &ConfigurationError{Err: fmt.Errorf("fetch server: %w", err)}
	}
	return NodeIdentity{
		ServerID:        srv.ID,
		Name:            srv.Name,
		ClusterID:       srv.ClusterID,
		Host:            srv.Host,
		Port:            srv.Port,
		BrokerHost:      srv.Cluster.BrokerHost,
		BrokerStartPort: srv.Cluster.BrokerStartPort,
		BrokerToken:     srv.Cluster.BrokerToken,
		JoinStatus:      srv.LastJoinStatus,
		JoinStatusSince: srv.LastJoinModDate,
	}, nil
}

// Initialize fetches the identity and runs the phases for its join state.
// The identity is returned even when a phase fails so callers can log it.
func (c *Coordinator) Initialize(ctx context.Context, phases Phases) (NodeIdentity, error) {
	id, err := c.Fetch(ctx)
	if err != nil {
		return NodeIdentity{}, err
	}
	c.logger.Info("node identity loaded", "server", id.Name, "cluster_id", id.ClusterID, "join_status", id.JoinStatus)

	if phases.Common != nil {
		if err := phases.Common(ctx, id); err != nil {
			return id, err
		}
	}

	if id.State() == Accepted {
		if phases.Accepted != nil {
			return id, phases.Accepted(ctx, id)
		}
		return id, nil
	}

	c.logger.Warn("node not accepted into cluster, connectors and broker publishing stay dormant",
		"server", id.Name, "join_status", id.JoinStatus)
	if phases.NotAccepted != nil {
		return id, phases.NotAccepted(ctx, id)
	}
	return id, nil
}
