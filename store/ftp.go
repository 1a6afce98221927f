package store

import (
	"context"
	"fmt"
)

type OutFTP struct {
	ID       int64
	Name     string
	IsActive bool
	Host     string
	Port     int
	User     string
	Password string
	Acct     string
	Timeout  int
	DirCache bool
}

func (db *DB) GetOutFTPList(ctx context.Context, clusterID int64) ([]OutFTP, error) {
	rows, err := db.QueryContext(ctx, db.Q(`
		SELECT id, name, is_active, host, port, user_, password, acct, timeout, dircache
		FROM out_ftp WHERE cluster_id = ? ORDER BY name`), clusterID)
	if err != nil {
		return nil, fmt.Errorf("list out ftp: %w", err)
	}
	defer rows.Close()

	var items []OutFTP
	for rows.Next() {
		var f OutFTP
		if err := rows.Scan(&f.ID, &f.Name, &f.IsActive, &f.Host, &f.Port, &f.User, &f.Password, &f.Acct, &f.Timeout, &f.DirCache); err != nil {
			return nil, err
		}
		items = append(items, f)
	}
	return items, rows.Err()
}

func (db *DB) CreateOutFTP(ctx context.Context, clusterID int64, f *OutFTP) error {
	id, err := db.insertReturningID(ctx, `
		INSERT INTO out_ftp (cluster_id, name, is_active, host, port, user_, password, acct, timeout, dircache)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		clusterID, f.Name, f.IsActive, f.Host, f.Port, f.User, f.Password, f.Acct, f.Timeout, f.DirCache)
	if err != nil {
		return fmt.Errorf("create out ftp: %w", err)
	}
	f.ID = id
	return nil
}
