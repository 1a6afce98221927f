package workerconfig

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"busnode/config"
	"busnode/join"
	"busnode/store"
)

func testDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(&config.DatabaseConfig{
		Driver: "sqlite",
		Token:  "odb-token-1",
		SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "test.db")},
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func identity(clusterID int64) join.NodeIdentity {
	return join.NodeIdentity{
		ClusterID:       clusterID,
		BrokerHost:      "10.0.0.5",
		BrokerStartPort: 5100,
		BrokerToken:     "broker-secret",
		JoinStatus:      join.StatusAccepted,
	}
}

func seed(t *testing.T, db *store.DB) int64 {
	t.Helper()
	ctx := context.Background()
	c := &store.Cluster{Name: "main", BrokerHost: "10.0.0.5", BrokerStartPort: 5100, BrokerToken: "broker-secret"}
	require.NoError(t, db.CreateCluster(ctx, c))

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, db.CreateBasicAuth(ctx, c.ID, &store.BasicAuth{
		Name: "svc1", IsActive: true, Username: "alice", Realm: "bus", Password: string(hash),
	}))

	acctHash, err := bcrypt.GenerateFromPassword([]byte("pw"+"salt"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, db.CreateTechAccount(ctx, c.ID, &store.TechAccount{
		Name: "tech1", IsActive: true, Password: string(acctHash), Salt: "salt",
	}))

	require.NoError(t, db.CreateHTTPSoap(ctx, c.ID, &store.HTTPSoap{
		Name: "orders-get", IsActive: true, Transport: "soap", URLPath: "/orders",
		SOAPAction: "getOrder", ServiceName: "orders.get", SecName: "svc1", SecType: "basic_auth",
	}))
	require.NoError(t, db.CreateHTTPSoap(ctx, c.ID, &store.HTTPSoap{
		Name: "orders-put", IsActive: true, Transport: "soap", URLPath: "/orders",
		SOAPAction: "putOrder", ServiceName: "orders.put", SecName: "svc1", SecType: "basic_auth",
	}))
	require.NoError(t, db.CreateOutFTP(ctx, c.ID, &store.OutFTP{Name: "archive", IsActive: true, Host: "ftp.local", Port: 21}))
	return c.ID
}

func TestBuildFoldsSameURLPathWithoutOverwriting(t *testing.T) {
	db := testDB(t)
	cid := seed(t, db)

	snap, err := NewBuilder(db, "/srv/repo", nil).Build(context.Background(), identity(cid))
	require.NoError(t, err)

	routes := snap.Routes("/orders")
	require.Len(t, routes, 2)
	assert.Equal(t, "getOrder", routes[0].SOAPAction)
	assert.Equal(t, "putOrder", routes[1].SOAPAction)

	r, ok := snap.Route("/orders", "putOrder")
	require.True(t, ok)
	assert.Equal(t, "orders.put", r.ServiceName)

	r, ok = snap.Route("/orders", "")
	require.True(t, ok)
	assert.Equal(t, "orders.get", r.ServiceName)

	_, ok = snap.Route("/orders", "deleteOrder")
	assert.False(t, ok)

	sec, ok := snap.URLSecurity("/orders")
	require.True(t, ok)
	assert.Equal(t, "svc1", sec.SecName)

	c := snap.Counts()
	assert.Equal(t, 1, c.RoutePaths)
	assert.Equal(t, 2, c.Routes)
	assert.Equal(t, 1, c.OutFTP)
	assert.Equal(t, "/srv/repo", snap.RepoLocation())
	assert.Equal(t, "tcp://10.0.0.5:5103", snap.Broker().Endpoints.BrokerPubWorkerSub)
}

func TestSnapshotIsolatedFromCallerMutation(t *testing.T) {
	db := testDB(t)
	cid := seed(t, db)
	b := NewBuilder(db, "/srv/repo", nil)

	first, err := b.Build(context.Background(), identity(cid))
	require.NoError(t, err)

	routes := first.Routes("/orders")
	routes[0].ServiceName = "hijacked"
	routes[1] = RouteInfo{}

	assert.Equal(t, "orders.get", first.Routes("/orders")[0].ServiceName)
	assert.Equal(t, "putOrder", first.Routes("/orders")[1].SOAPAction)

	second, err := b.Build(context.Background(), identity(cid))
	require.NoError(t, err)
	assert.Equal(t, "orders.get", second.Routes("/orders")[0].ServiceName)
	assert.NotSame(t, first, second)
}

func TestBasicAuthLookupReturnsRowUnchanged(t *testing.T) {
	db := testDB(t)
	cid := seed(t, db)

	snap, err := NewBuilder(db, "", nil).Build(context.Background(), identity(cid))
	require.NoError(t, err)

	got, ok := snap.BasicAuth("svc1")
	require.True(t, ok)
	assert.Equal(t, "svc1", got.Name)
	assert.True(t, got.IsActive)
	assert.Equal(t, "alice", got.Username)

	_, ok = snap.BasicAuth("nobody")
	assert.False(t, ok)
}

func TestCredentialChecks(t *testing.T) {
	db := testDB(t)
	cid := seed(t, db)
	snap, err := NewBuilder(db, "", nil).Build(context.Background(), identity(cid))
	require.NoError(t, err)

	assert.True(t, snap.CheckBasicAuth("svc1", "alice", "s3cret"))
	assert.False(t, snap.CheckBasicAuth("svc1", "alice", "wrong"))
	assert.False(t, snap.CheckBasicAuth("svc1", "bob", "s3cret"))
	assert.False(t, snap.CheckBasicAuth("missing", "alice", "s3cret"))

	assert.True(t, snap.CheckTechAccount("tech1", "pw"))
	assert.False(t, snap.CheckTechAccount("tech1", "pwsalt"))
}

type failingReader struct {
	*store.DB
	failOn string
}

var errBoom = errors.New("boom")

func (f failingReader) GetWSSList(ctx context.Context, cid int64) ([]store.WSSDefinition, error) {
	if f.failOn == "wss" {
		return nil, errBoom
	}
	return f.DB.GetWSSList(ctx, cid)
}

func (f failingReader) GetOutFTPList(ctx context.Context, cid int64) ([]store.OutFTP, error) {
	if f.failOn == "out_ftp" {
		return nil, errBoom
	}
	return f.DB.GetOutFTPList(ctx, cid)
}

func TestBuildIsAllOrNothing(t *testing.T) {
	db := testDB(t)
	cid := seed(t, db)

	for _, table := range []string{"wss", "out_ftp"} {
		snap, err := NewBuilder(failingReader{DB: db, failOn: table}, "", nil).Build(context.Background(), identity(cid))
		assert.Nil(t, snap)

		var be *BuildError
		require.ErrorAs(t, err, &be)
		assert.Equal(t, table, be.Table)
		assert.ErrorIs(t, err, errBoom)
	}
}

func TestBuildRejectsBadTopology(t *testing.T) {
	db := testDB(t)
	cid := seed(t, db)
	id := identity(cid)
	id.BrokerHost = ""

	_, err := NewBuilder(db, "", nil).Build(context.Background(), id)
	var be *BuildError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "cluster", be.Table)
}

func TestHolderSwap(t *testing.T) {
	h := NewHolder(nil)
	assert.Nil(t, h.Load())

	a, b := &Snapshot{repoLocation: "a"}, &Snapshot{repoLocation: "b"}
	h.Store(a)
	assert.Same(t, a, h.Load())

	old := h.Swap(b)
	assert.Same(t, a, old)
	assert.Same(t, b, h.Load())
}
