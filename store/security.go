package store

import (
	"context"
	"fmt"
)

type BasicAuth struct {
	ID       int64
	Name     string
	IsActive bool
	Username string
	Realm    string
	Password string
}

type TechAccount struct {
	ID       int64
	Name     string
	IsActive bool
	Password string
	Salt     string
}

type WSSDefinition struct {
	ID                    int64
	Name                  string
	IsActive              bool
	Username              string
	Password              string
	PasswordType          string
	RejectEmptyNonceCreat bool
	RejectStaleTokens     bool
	RejectExpiryLimit     int
	NonceFreshnessTime    int
}

func (db *DB) GetBasicAuthList(ctx context.Context, clusterID int64) ([]BasicAuth, error) {
	rows, err := db.QueryContext(ctx, db.Q(`
		SELECT id, name, is_active, username, realm, password
		FROM sec_basic_auth WHERE cluster_id = ? ORDER BY name`), clusterID)
	if err != nil {
		return nil, fmt.Errorf("list basic auth: %w", err)
	}
	defer rows.Close()

	var items []BasicAuth
	for rows.Next() {
		var b BasicAuth
		if err := rows.Scan(&b.ID, &b.Name, &b.IsActive, &b.Username, &b.Realm, &b.Password); err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	return items, rows.Err()
}

func (db *DB) CreateBasicAuth(ctx context.Context, clusterID int64, b *BasicAuth) error {
	id, err := db.insertReturningID(ctx,
		`INSERT INTO sec_basic_auth (cluster_id, name, is_active, username, realm, password) VALUES (?, ?, ?, ?, ?, ?)`,
		clusterID, b.Name, b.IsActive, b.Username, b.Realm, b.Password)
	if err != nil {
		return fmt.Errorf("create basic auth: %w", err)
	}
	b.ID = id
	return nil
}

func (db *DB) GetTechAccountList(ctx context.Context, clusterID int64) ([]TechAccount, error) {
	rows, err := db.QueryContext(ctx, db.Q(`
		SELECT id, name, is_active, password, salt
		FROM sec_tech_account WHERE cluster_id = ? ORDER BY name`), clusterID)
	if err != nil {
		return nil, fmt.Errorf("list tech accounts: %w", err)
	}
	defer rows.Close()

	var items []TechAccount
	for rows.Next() {
		var a TechAccount
		if err := rows.Scan(&a.ID, &a.Name, &a.IsActive, &a.Password, &a.Salt); err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (db *DB) CreateTechAccount(ctx context.Context, clusterID int64, a *TechAccount) error {
	id, err := db.insertReturningID(ctx,
		`INSERT INTO sec_tech_account (cluster_id, name, is_active, password, salt) VALUES (?, ?, ?, ?, ?)`,
		clusterID, a.Name, a.IsActive, a.Password, a.Salt)
	if err != nil {
		return fmt.Errorf("create tech account: %w", err)
	}
	a.ID = id
	return nil
}

func (db *DB) GetWSSList(ctx context.Context, clusterID int64) ([]WSSDefinition, error) {
	rows, err := db.QueryContext(ctx, db.Q(`
		SELECT id, name, is_active, username, password, password_type,
		       reject_empty_nonce_creat, reject_stale_tokens, reject_expiry_limit, nonce_freshness_time
		FROM sec_wss WHERE cluster_id = ? ORDER BY name`), clusterID)
	if err != nil {
		return nil, fmt.Errorf("list wss: %w", err)
	}
	defer rows.Close()

	var items []WSSDefinition
	for rows.Next() {
		var w WSSDefinition
		if err := rows.Scan(&w.ID, &w.Name, &w.IsActive, &w.Username, &w.Password, &w.PasswordType,
			&w.RejectEmptyNonceCreat, &w.RejectStaleTokens, &w.RejectExpiryLimit, &w.NonceFreshnessTime); err != nil {
			return nil, err
		}
		items = append(items, w)
	}
	return items, rows.Err()
}

func (db *DB) CreateWSS(ctx context.Context, clusterID int64, w *WSSDefinition) error {
	id, err := db.insertReturningID(ctx, `
		INSERT INTO sec_wss (cluster_id, name, is_active, username, password, password_type,
		    reject_empty_nonce_creat, reject_stale_tokens, reject_expiry_limit, nonce_freshness_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		clusterID, w.Name, w.IsActive, w.Username, w.Password, w.PasswordType,
		w.RejectEmptyNonceCreat, w.RejectStaleTokens, w.RejectExpiryLimit, w.NonceFreshnessTime)
	if err != nil {
		return fmt.Errorf("create wss: %w", err)
	}
	w.ID = id
	return nil
}
