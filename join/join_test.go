package join

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"busnode/store"
)

type fakeServers struct {
	srv *store.Server
	err error
}

func (f *fakeServers) FetchServer(context.Context) (*store.Server, error) {
	return f.srv, f.err
}

func server(status string) *store.Server {
	return &store.Server{
		ID:             1,
		Name:           "node-a",
		ClusterID:      9,
		Host:           "10.0.0.2",
		Port:           17010,
		LastJoinStatus: status,
		Cluster: store.Cluster{
			ID:              9,
			BrokerHost:      "10.0.0.1",
			BrokerStartPort: 5100,
			BrokerToken:     "tok",
		},
	}
}

func TestFetchMissingRowIsConfigurationError(t *testing.T) {
	c := NewCoordinator(&fakeServers{err: store.ErrNotFound}, nil)
	_, err := c.Fetch(context.Background())

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.ErrorIs(t, err, ErrNotRegistered)
}

func TestFetchStoreFailureIsConfigurationError(t *testing.T) {
	c := NewCoordinator(&fakeServers{err: errors.New("db down")}, nil)
	_, err := c.Fetch(context.Background())

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.NotErrorIs(t, err, ErrNotRegistered)
}

func TestFetchMapsIdentity(t *testing.T) {
	c := NewCoordinator(&fakeServers{srv: server(StatusAccepted)}, nil)
	id, err := c.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(9), id.ClusterID)
	assert.Equal(t, "tok", id.BrokerToken)
	assert.Equal(t, Accepted, id.State())

	eps, err := id.Endpoints()
	require.NoError(t, err)
	assert.Equal(t, "tcp://10.0.0.1:5101", eps.BrokerPushWorkerPull)
}

func TestStateTreatsUnknownAsNotAccepted(t *testing.T) {
	for _, s := range []string{StatusNotAccepted, "", "pending", "ACCEPTED"} {
		assert.Equal(t, NotAccepted, NodeIdentity{JoinStatus: s}.State(), s)
	}
}

func TestInitializeAcceptedBranch(t *testing.T) {
	c := NewCoordinator(&fakeServers{srv: server(StatusAccepted)}, nil)
	var ran []string
	phases := Phases{
		Common:      func(context.Context, NodeIdentity) error { ran = append(ran, "common"); return nil },
		Accepted:    func(context.Context, NodeIdentity) error { ran = append(ran, "accepted"); return nil },
		NotAccepted: func(context.Context, NodeIdentity) error { ran = append(ran, "not-accepted"); return nil },
	}
	_, err := c.Initialize(context.Background(), phases)
	require.NoError(t, err)
	assert.Equal(t, []string{"common", "accepted"}, ran)
}

func TestInitializeNotAcceptedBranch(t *testing.T) {
	c := NewCoordinator(&fakeServers{srv: server("pending")}, nil)
	var ran []string
	phases := Phases{
		Common:      func(context.Context, NodeIdentity) error { ran = append(ran, "common"); return nil },
		Accepted:    func(context.Context, NodeIdentity) error { ran = append(ran, "accepted"); return nil },
		NotAccepted: func(context.Context, NodeIdentity) error { ran = append(ran, "not-accepted"); return nil },
	}
	id, err := c.Initialize(context.Background(), phases)
	require.NoError(t, err)
	assert.Equal(t, "pending", id.JoinStatus)
	assert.Equal(t, []string{"common", "not-accepted"}, ran)
}

func TestInitializeCommonFailureStops(t *testing.T) {
	c := NewCoordinator(&fakeServers{srv: server(StatusAccepted)}, nil)
	accepted := false
	_, err := c.Initialize(context.Background(), Phases{
		Common:   func(context.Context, NodeIdentity) error { return errors.New("bad topology") },
		Accepted: func(context.Context, NodeIdentity) error { accepted = true; return nil },
	})
	assert.Error(t, err)
	assert.False(t, accepted)
}
