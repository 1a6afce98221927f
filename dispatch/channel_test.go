package dispatch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"busnode/config"
	"busnode/join"
	"busnode/messaging"
	"busnode/store"
	"busnode/workerconfig"
)

type recordingSender struct {
	topic   string
	payload any
	err     error
}

func (r *recordingSender) Send(_ context.Context, _ string, topic string, payload any) error {
	r.topic, r.payload = topic, payload
	return r.err
}

// buildSnapshot stores one secured SOAP channel and one open channel and
// builds a snapshot from them.
func buildSnapshot(t *testing.T) *workerconfig.Snapshot {
	t.Helper()
	db, err := store.Open(&config.DatabaseConfig{
		Driver: "sqlite",
		Token:  "tok",
		SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "test.db")},
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	c := &store.Cluster{Name: "main", BrokerHost: "127.0.0.1", BrokerStartPort: 5100}
	require.NoError(t, db.CreateCluster(ctx, c))

	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, db.CreateBasicAuth(ctx, c.ID, &store.BasicAuth{Name: "svc1", IsActive: true, Username: "alice", Password: string(hash)}))
	require.NoError(t, db.CreateHTTPSoap(ctx, c.ID, &store.HTTPSoap{
		Name: "orders", IsActive: true, Transport: "soap", URLPath: "/orders", SOAPAction: "getOrder",
		ServiceName: "orders.get", SecName: "svc1", SecType: SecBasicAuth,
	}))
	require.NoError(t, db.CreateHTTPSoap(ctx, c.ID, &store.HTTPSoap{
		Name: "ping", IsActive: true, URLPath: "/ping", ServiceName: "ping",
	}))
	require.NoError(t, db.CreateHTTPSoap(ctx, c.ID, &store.HTTPSoap{
		Name: "off", IsActive: false, URLPath: "/off", ServiceName: "off",
	}))

	snap, err := workerconfig.NewBuilder(db, "", nil).Build(ctx, join.NodeIdentity{
		ClusterID: c.ID, BrokerHost: c.BrokerHost, BrokerStartPort: c.BrokerStartPort,
	})
	require.NoError(t, err)
	return snap
}

func serveChannelRequest(t *testing.T, h Handler, snap *workerconfig.Snapshot, r *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	d := New(Config{Workers: 1}, h, workerconfig.NewHolder(snap), nil)
	t.Cleanup(func() { d.Stop(context.Background()) })
	rec := httptest.NewRecorder()
	d.serveRequest(rec, r)
	return rec
}

func TestChannelRejectsUnknownAndInactive(t *testing.T) {
	snap := buildSnapshot(t)
	h := NewChannelHandler(NewBrokerInvoker(&recordingSender{}))

	rec := serveChannelRequest(t, h, snap, httptest.NewRequest("GET", "/nowhere", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = serveChannelRequest(t, h, snap, httptest.NewRequest("GET", "/off", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChannelBasicAuth(t *testing.T) {
	snap := buildSnapshot(t)
	sender := &recordingSender{}
	h := NewChannelHandler(NewBrokerInvoker(sender))

	r := httptest.NewRequest("POST", "/orders", strings.NewReader("<soap/>"))
	r.Header.Set("SOAPAction", `"getOrder"`)
	rec := serveChannelRequest(t, h, snap, r)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Www-Authenticate"))

	r = httptest.NewRequest("POST", "/orders", strings.NewReader("<soap/>"))
	r.Header.Set("SOAPAction", `"getOrder"`)
	r.SetBasicAuth("alice", "pw")
	rec = serveChannelRequest(t, h, snap, r)
	require.Equal(t, http.StatusAccepted, rec.Code)

	cid := rec.Header().Get(HeaderCorrelationID)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, cid, body["cid"])

	assert.Equal(t, messaging.TopicServiceInvoke, sender.topic)
	inv, ok := sender.payload.(Invocation)
	require.True(t, ok)
	assert.Equal(t, "orders.get", inv.Service)
	assert.Equal(t, cid, inv.CorrelationID)
	assert.Equal(t, "<soap/>", string(inv.Body))
}

func TestChannelOpenRoute(t *testing.T) {
	snap := buildSnapshot(t)
	h := NewChannelHandler(NewBrokerInvoker(&recordingSender{}))
	rec := serveChannelRequest(t, h, snap, httptest.NewRequest("GET", "/ping", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestBrokerFailureIs500(t *testing.T) {
	snap := buildSnapshot(t)
	h := NewChannelHandler(NewBrokerInvoker(&recordingSender{err: errors.New("fabric down")}))
	rec := serveChannelRequest(t, h, snap, httptest.NewRequest("GET", "/ping", nil))

	cid := rec.Header().Get(HeaderCorrelationID)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "["+cid+"] Exception caught [fabric down]", rec.Body.String())
}

func TestBrokerInvokerWithoutClient(t *testing.T) {
	snap := buildSnapshot(t)
	h := NewChannelHandler(NewBrokerInvoker(nil))
	rec := serveChannelRequest(t, h, snap, httptest.NewRequest("GET", "/ping", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
