package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Connector kinds as stored in the connector table.
const (
	KindChannelAMQP = "amqp-channel"
	KindOutAMQP     = "amqp-outgoing"
	KindChannelJMS  = "jms-channel"
	KindOutJMS      = "jms-outgoing"
	KindChannelZMQ  = "zmq-channel"
	KindOutZMQ      = "zmq-outgoing"
)

// ConnectorRow is one persisted connector definition. DefID is nil for
// connectors that are not backed by a separate definition (ZMQ).
type ConnectorRow struct {
	ID       int64
	Name     string
	Kind     string
	IsActive bool
	DefID    *int64
}

func (db *DB) listConnectors(ctx context.Context, clusterID int64, kind string) ([]ConnectorRow, error) {
	rows, err := db.QueryContext(ctx, db.Q(`
		SELECT id, name, kind, is_active, def_id
		FROM connector WHERE cluster_id = ? AND kind = ? ORDER BY id`), clusterID, kind)
	if err != nil {
		return nil, fmt.Errorf("list %s connectors: %w", kind, err)
	}
	defer rows.Close()

	var items []ConnectorRow
	for rows.Next() {
		var c ConnectorRow
		var defID sql.NullInt64
		if err := rows.Scan(&c.ID, &c.Name, &c.Kind, &c.IsActive, &defID); err != nil {
			return nil, err
		}
		c.DefID = nullInt(defID)
		items = append(items, c)
	}
	return items, rows.Err()
}

func (db *DB) GetChannelAMQPList(ctx context.Context, clusterID int64) ([]ConnectorRow, error) {
	return db.listConnectors(ctx, clusterID, KindChannelAMQP)
}

func (db *DB) GetOutAMQPList(ctx context.Context, clusterID int64) ([]ConnectorRow, error) {
	return db.listConnectors(ctx, clusterID, KindOutAMQP)
}

func (db *DB) GetChannelJMSList(ctx context.Context, clusterID int64) ([]ConnectorRow, error) {
	return db.listConnectors(ctx, clusterID, KindChannelJMS)
}

func (db *DB) GetOutJMSList(ctx context.Context, clusterID int64) ([]ConnectorRow, error) {
	return db.listConnectors(ctx, clusterID, KindOutJMS)
}

func (db *DB) GetChannelZMQList(ctx context.Context, clusterID int64) ([]ConnectorRow, error) {
	return db.listConnectors(ctx, clusterID, KindChannelZMQ)
}

func (db *DB) GetOutZMQList(ctx context.Context, clusterID int64) ([]ConnectorRow, error) {
	return db.listConnectors(ctx, clusterID, KindOutZMQ)
}

func (db *DB) CreateConnector(ctx context.Context, clusterID int64, c *ConnectorRow) error {
	id, err := db.insertReturningID(ctx,
		`INSERT INTO connector (cluster_id, name, kind, is_active, def_id) VALUES (?, ?, ?, ?, ?)`,
		clusterID, c.Name, c.Kind, c.IsActive, toNullInt(c.DefID))
	if err != nil {
		return fmt.Errorf("create connector: %w", err)
	}
	c.ID = id
	return nil
}
