// Package topology derives the broker fabric's endpoint addresses from a
// cluster's broker host and start port. Every in-cluster process (the node,
// its connector subprocesses, the singleton) recomputes the same table, so
// there is no registry to consult and nothing to keep in sync.
package topology

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

const scheme = "tcp"

// Port offsets from the cluster's broker start port. Each value is unique.
const (
	OffsetBrokerPushWorkerPull    = 1
	OffsetWorkerPushBrokerPull    = 2
	OffsetBrokerPubWorkerSub      = 3
	OffsetBrokerPushSingletonPull = 4
	OffsetSingletonPushBrokerPull = 5
)

const maxPort = 65535

type Endpoints struct {
	BrokerPushWorkerPull    string
	WorkerPushBrokerPull    string
	BrokerPubWorkerSub      string
	BrokerPushSingletonPull string
	SingletonPushBrokerPull string
}

// Named is one row of the endpoint table.
type Named struct {
	Name    string
	Address string
}

// RoleEndpoints is what a single broker client needs: where to push to the
// broker, where to pull commands from it, and where to subscribe to its
// broadcasts. Sub is empty for roles that don't receive broadcasts.
type RoleEndpoints struct {
	Push string
	Pull string
	Sub  string
}

// Derive builds the endpoint table for a broker host and start port.
func Derive(host string, basePort int) (Endpoints, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return Endpoints{}, fmt.Errorf("topology: empty broker host")
	}
	if basePort <= 0 {
		return Endpoints{}, fmt.Errorf("topology: invalid broker start port %d", basePort)
	}
	if basePort+OffsetSingletonPushBrokerPull > maxPort {
		return Endpoints{}, fmt.Errorf("topology: broker start port %d leaves no room for offsets", basePort)
	}
	addr := func(offset int) string {
		return scheme + "://" + net.JoinHostPort(host, strconv.Itoa(basePort+offset))
	}
	return Endpoints{
		BrokerPushWorkerPull:    addr(OffsetBrokerPushWorkerPull),
		WorkerPushBrokerPull:    addr(OffsetWorkerPushBrokerPull),
		BrokerPubWorkerSub:      addr(OffsetBrokerPubWorkerSub),
		BrokerPushSingletonPull: addr(OffsetBrokerPushSingletonPull),
		SingletonPushBrokerPull: addr(OffsetSingletonPushBrokerPull),
	}, nil
}

// DeriveString is Derive for a base port that arrives as text.
func DeriveString(host, basePort string) (Endpoints, error) {
	port, err := strconv.Atoi(strings.TrimSpace(basePort))
	if err != nil {
		return Endpoints{}, fmt.Errorf("topology: non-numeric broker start port %q", basePort)
	}
	return Derive(host, port)
}

// All returns the table in offset order.
func (e Endpoints) All() []Named {
	return []Named{
		{"broker_push_worker_pull", e.BrokerPushWorkerPull},
		{"worker_push_broker_pull", e.WorkerPushBrokerPull},
		{"broker_pub_worker_sub", e.BrokerPubWorkerSub},
		{"broker_push_singleton_pull", e.BrokerPushSingletonPull},
		{"singleton_push_broker_pull", e.SingletonPushBrokerPull},
	}
}

// Worker returns the endpoints used by the node's own broker client and by
// the broker config handed to request workers.
func (e Endpoints) Worker() RoleEndpoints {
	return RoleEndpoints{
		Push: e.WorkerPushBrokerPull,
		Pull: e.BrokerPushWorkerPull,
		Sub:  e.BrokerPubWorkerSub,
	}
}

// Singleton returns the endpoints used by the cluster singleton's client.
func (e Endpoints) Singleton() RoleEndpoints {
	return RoleEndpoints{
		Push: e.SingletonPushBrokerPull,
		Pull: e.BrokerPushSingletonPull,
	}
}

// HostPort strips the scheme from an endpoint address.
func HostPort(addr string) string {
	if i := strings.Index(addr, "://"); i >= 0 {
		return addr[i+3:]
	}
	return addr
}
