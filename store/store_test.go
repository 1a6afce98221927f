package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"busnode/config"
)

const testToken = "odb-token-1"

// testDB creates a temporary SQLite database for testing.
func testDB(t *testing.T) *DB {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	db, err := Open(&config.DatabaseConfig{
		Driver: "sqlite",
		Token:  testToken,
		SQLite: config.SQLiteConfig{Path: dbPath},
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
		os.Remove(dbPath)
	})
	return db
}

func testCluster(t *testing.T, db *DB) *Cluster {
	t.Helper()
	c := &Cluster{Name: "main", BrokerHost: "10.0.0.5", BrokerStartPort: 5100, BrokerToken: "broker-secret"}
	if err := db.CreateCluster(context.Background(), c); err != nil {
		t.Fatalf("create cluster: %v", err)
	}
	return c
}

func TestOpenUnsupportedDriver(t *testing.T) {
	if _, err := Open(&config.DatabaseConfig{Driver: "oracle"}); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestRebind(t *testing.T) {
	got := Rebind(`SELECT * FROM t WHERE a = ? AND b = ?`)
	want := `SELECT * FROM t WHERE a = $1 AND b = $2`
	if got != want {
		t.Errorf("Rebind = %q, want %q", got, want)
	}
}

// --- Server tests ---

func TestFetchServerNotRegistered(t *testing.T) {
	db := testDB(t)
	_, err := db.FetchServer(context.Background())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestFetchServerJoinsCluster(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	c := testCluster(t, db)

	other := &Server{Name: "other", ClusterID: c.ID, LastJoinStatus: "accepted"}
	if err := db.CreateServer(ctx, other, "someone-else"); err != nil {
		t.Fatalf("create other: %v", err)
	}
	s := &Server{Name: "node1", ClusterID: c.ID, Host: "10.0.0.7", Port: 17010, LastJoinStatus: "accepted"}
	if err := db.CreateServer(ctx, s, testToken); err != nil {
		t.Fatalf("create server: %v", err)
	}

	got, err := db.FetchServer(ctx)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got.ID != s.ID || got.Name != "node1" {
		t.Errorf("got server %d %q, want %d node1", got.ID, got.Name, s.ID)
	}
	if got.LastJoinStatus != "accepted" {
		t.Errorf("LastJoinStatus = %q", got.LastJoinStatus)
	}
	if got.Cluster.BrokerHost != "10.0.0.5" || got.Cluster.BrokerStartPort != 5100 {
		t.Errorf("cluster = %+v", got.Cluster)
	}
	if got.Cluster.BrokerToken != "broker-secret" {
		t.Errorf("BrokerToken = %q", got.Cluster.BrokerToken)
	}
	if got.LastJoinModDate != nil {
		t.Errorf("LastJoinModDate = %v, want nil", got.LastJoinModDate)
	}

	if err := db.SetJoinStatus(ctx, s.ID, "not-accepted"); err != nil {
		t.Fatalf("set join status: %v", err)
	}
	got, _ = db.FetchServer(ctx)
	if got.LastJoinStatus != "not-accepted" {
		t.Errorf("LastJoinStatus after update = %q", got.LastJoinStatus)
	}
	if got.LastJoinModDate == nil {
		t.Error("LastJoinModDate should be set after update")
	}
}

// --- Security tests ---

func TestSecurityLists(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	c := testCluster(t, db)

	if err := db.CreateBasicAuth(ctx, c.ID, &BasicAuth{Name: "svc1", IsActive: true, Username: "u1", Realm: "r", Password: "p"}); err != nil {
		t.Fatalf("create basic auth: %v", err)
	}
	if err := db.CreateBasicAuth(ctx, c.ID, &BasicAuth{Name: "svc0", IsActive: false, Username: "u0"}); err != nil {
		t.Fatalf("create basic auth: %v", err)
	}
	ba, err := db.GetBasicAuthList(ctx, c.ID)
	if err != nil {
		t.Fatalf("list basic auth: %v", err)
	}
	if len(ba) != 2 {
		t.Fatalf("len = %d, want 2", len(ba))
	}
	if ba[0].Name != "svc0" || ba[0].IsActive {
		t.Errorf("ba[0] = %+v", ba[0])
	}
	if ba[1].Name != "svc1" || !ba[1].IsActive || ba[1].Username != "u1" {
		t.Errorf("ba[1] = %+v", ba[1])
	}

	if err := db.CreateTechAccount(ctx, c.ID, &TechAccount{Name: "ta1", IsActive: true, Password: "hash", Salt: "salt"}); err != nil {
		t.Fatalf("create tech account: %v", err)
	}
	ta, err := db.GetTechAccountList(ctx, c.ID)
	if err != nil || len(ta) != 1 || ta[0].Salt != "salt" {
		t.Fatalf("tech accounts = %+v, err %v", ta, err)
	}

	w := &WSSDefinition{Name: "wss1", IsActive: true, Username: "wu", Password: "wp", PasswordType: "digest",
		RejectEmptyNonceCreat: true, RejectStaleTokens: false, RejectExpiryLimit: 300, NonceFreshnessTime: 60}
	if err := db.CreateWSS(ctx, c.ID, w); err != nil {
		t.Fatalf("create wss: %v", err)
	}
	wss, err := db.GetWSSList(ctx, c.ID)
	if err != nil || len(wss) != 1 {
		t.Fatalf("wss = %+v, err %v", wss, err)
	}
	if wss[0].RejectStaleTokens || !wss[0].RejectEmptyNonceCreat || wss[0].RejectExpiryLimit != 300 {
		t.Errorf("wss[0] = %+v", wss[0])
	}

	// Other clusters are not visible.
	other := &Cluster{Name: "other", BrokerHost: "h", BrokerStartPort: 1}
	db.CreateCluster(ctx, other)
	ba, _ = db.GetBasicAuthList(ctx, other.ID)
	if len(ba) != 0 {
		t.Errorf("other cluster basic auth = %d rows", len(ba))
	}
}

// --- HTTP/SOAP tests ---

func TestHTTPSoapListPreservesOrderAndKind(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	c := testCluster(t, db)

	rows := []*HTTPSoap{
		{Name: "get-customer", IsActive: true, URLPath: "/crm", SOAPAction: "getCustomer", ServiceName: "crm.get", SecName: "svc1", SecType: "basic_auth"},
		{Name: "set-customer", IsActive: true, URLPath: "/crm", SOAPAction: "setCustomer", ServiceName: "crm.set", SecName: "wss1", SecType: "wss"},
		{Name: "ping", IsActive: true, URLPath: "/ping", ServiceName: "ping"},
		{Name: "remote", IsActive: true, Connection: "outgoing", URLPath: "/remote"},
	}
	for _, r := range rows {
		if err := db.CreateHTTPSoap(ctx, c.ID, r); err != nil {
			t.Fatalf("create %s: %v", r.Name, err)
		}
	}

	got, err := db.GetHTTPSoapList(ctx, c.ID, "channel")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3 channels", len(got))
	}
	if got[0].SOAPAction != "getCustomer" || got[1].SOAPAction != "setCustomer" {
		t.Errorf("order = %q, %q", got[0].SOAPAction, got[1].SOAPAction)
	}
	if got[0].Transport != "plain_http" {
		t.Errorf("Transport default = %q", got[0].Transport)
	}

	sec, err := db.GetURLSecurity(ctx, c.ID)
	if err != nil {
		t.Fatalf("url security: %v", err)
	}
	if len(sec) != 2 {
		t.Fatalf("url security len = %d, want 2", len(sec))
	}
	if sec[0].URLPath != "/crm" || sec[0].SecName != "svc1" {
		t.Errorf("sec[0] = %+v, first definition should win", sec[0])
	}
	if sec[1].URLPath != "/ping" || sec[1].SecType != "" {
		t.Errorf("sec[1] = %+v", sec[1])
	}
}

// --- Connector tests ---

func TestConnectorLists(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	c := testCluster(t, db)

	def := int64(3)
	amqp := &ConnectorRow{Name: "orders-in", Kind: KindChannelAMQP, IsActive: true, DefID: &def}
	zmq := &ConnectorRow{Name: "feed", Kind: KindOutZMQ, IsActive: true}
	for _, r := range []*ConnectorRow{amqp, zmq} {
		if err := db.CreateConnector(ctx, c.ID, r); err != nil {
			t.Fatalf("create connector: %v", err)
		}
	}

	got, err := db.GetChannelAMQPList(ctx, c.ID)
	if err != nil {
		t.Fatalf("list amqp: %v", err)
	}
	if len(got) != 1 || got[0].ID != amqp.ID {
		t.Fatalf("amqp channels = %+v", got)
	}
	if got[0].DefID == nil || *got[0].DefID != 3 {
		t.Errorf("DefID = %v, want 3", got[0].DefID)
	}

	out, _ := db.GetOutZMQList(ctx, c.ID)
	if len(out) != 1 || out[0].DefID != nil {
		t.Errorf("zmq outgoing = %+v", out)
	}

	for name, fn := range map[string]func(context.Context, int64) ([]ConnectorRow, error){
		"out amqp":    db.GetOutAMQPList,
		"channel jms": db.GetChannelJMSList,
		"out jms":     db.GetOutJMSList,
		"channel zmq": db.GetChannelZMQList,
	} {
		rows, err := fn(ctx, c.ID)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if len(rows) != 0 {
			t.Errorf("%s = %d rows, want 0", name, len(rows))
		}
	}
}

// --- Job and FTP tests ---

func TestJobList(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	c := testCluster(t, db)

	start := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	j := &Job{Name: "cleanup", IsActive: true, JobType: JobIntervalBased, StartDate: start,
		Service: "maint.cleanup", Hours: 1, Minutes: 30, Repeats: 4, Extra: "x=1"}
	if err := db.CreateJob(ctx, c.ID, j); err != nil {
		t.Fatalf("create job: %v", err)
	}
	cron := &Job{Name: "nightly", IsActive: false, JobType: JobCronStyle, StartDate: start,
		Service: "report.nightly", CronDefinition: "0 2 * * *"}
	if err := db.CreateJob(ctx, c.ID, cron); err != nil {
		t.Fatalf("create job: %v", err)
	}

	jobs, err := db.GetJobList(ctx, c.ID)
	if err != nil {
		t.Fatalf("list jobs: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("len = %d", len(jobs))
	}
	got := jobs[0]
	if got.Name != "cleanup" || !got.StartDate.Equal(start) {
		t.Errorf("job = %+v", got)
	}
	if got.Interval() != 90*time.Minute {
		t.Errorf("Interval = %v, want 1h30m", got.Interval())
	}
	if jobs[1].CronDefinition != "0 2 * * *" || jobs[1].IsActive {
		t.Errorf("cron job = %+v", jobs[1])
	}
}

func TestOutFTPList(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	c := testCluster(t, db)

	f := &OutFTP{Name: "archive", IsActive: true, Host: "ftp.example.com", Port: 2121, User: "arch", Password: "pw", Timeout: 30, DirCache: true}
	if err := db.CreateOutFTP(ctx, c.ID, f); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := db.GetOutFTPList(ctx, c.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].Port != 2121 || !got[0].DirCache || got[0].User != "arch" {
		t.Errorf("ftp = %+v", got)
	}
}
