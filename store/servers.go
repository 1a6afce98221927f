package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by single-row lookups that match nothing.
var ErrNotFound = errors.New("store: not found")

type Cluster struct {
	ID              int64
	Name            string
	BrokerHost      string
	BrokerStartPort int
	BrokerToken     string
}

// Server is this node's membership row joined with its cluster.
type Server struct {
	ID              int64
	Name            string
	ClusterID       int64
	Host            string
	Port            int
	LastJoinStatus  string
	LastJoinModDate *time.Time
	Cluster         Cluster
}

func (db *DB) CreateCluster(ctx context.Context, c *Cluster) error {
	id, err := db.insertReturningID(ctx,
		`INSERT INTO cluster (name, broker_host, broker_start_port, broker_token) VALUES (?, ?, ?, ?)`,
		c.Name, c.BrokerHost, c.BrokerStartPort, c.BrokerToken)
	if err != nil {
		return fmt.Errorf("create cluster: %w", err)
	}
	c.ID = id
	return nil
}

// CreateServer registers a server under the given store token.
func (db *DB) CreateServer(ctx context.Context, s *Server, odbToken string) error {
	id, err := db.insertReturningID(ctx,
		`INSERT INTO server (name, cluster_id, host, port, odb_token, last_join_status) VALUES (?, ?, ?, ?, ?, ?)`,
		s.Name, s.ClusterID, s.Host, s.Port, odbToken, s.LastJoinStatus)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}
	s.ID = id
	return nil
}

// SetJoinStatus records an administrative join decision. A running node does
// not observe the change until it is restarted.
func (db *DB) SetJoinStatus(ctx context.Context, serverID int64, status string) error {
	_, err := db.ExecContext(ctx, db.Q(`UPDATE server SET last_join_status=?, last_join_mod_date=? WHERE id=?`),
		status, formatTime(time.Now()), serverID)
	return err
}

// FetchServer returns the server row registered under this store's token.
func (db *DB) FetchServer(ctx context.Context) (*Server, error) {
	row := db.QueryRowContext(ctx, db.Q(`
		SELECT s.id, s.name, s.cluster_id, s.host, s.port, s.last_join_status, s.last_join_mod_date,
		       c.id, c.name, c.broker_host, c.broker_start_port, c.broker_token
		FROM server s JOIN cluster c ON c.id = s.cluster_id
		WHERE s.odb_token = ?`), db.token)

	var s Server
	var modDate any
	err := row.Scan(&s.ID, &s.Name, &s.ClusterID, &s.Host, &s.Port, &s.LastJoinStatus, &modDate,
		&s.Cluster.ID, &s.Cluster.Name, &s.Cluster.BrokerHost, &s.Cluster.BrokerStartPort, &s.Cluster.BrokerToken)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch server: %w", err)
	}
	if t := parseTime(modDate); !t.IsZero() {
		s.LastJoinModDate = &t
	}
	return &s, nil
}
