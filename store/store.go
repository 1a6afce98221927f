package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"busnode/config"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// DB is the node's handle on the persisted configuration store. Reads are
// performed by the main goroutine during initialization only; request workers
// consume the snapshot built from these rows, never the DB itself.
type DB struct {
	*sql.DB
	driver string
	token  string
}

func Open(cfg *config.DatabaseConfig) (*DB, error) {
	var db *DB
	var err error
	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg.SQLite.Path)
	case "postgres":
		db, err = openPostgres(&cfg.Postgres)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	db.token = cfg.Token
	return db, nil
}

func openSQLite(path string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", path)
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	db := &DB{DB: sqlDB, driver: "sqlite"}
	if err := db.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return db, nil
}

func openPostgres(cfg *config.PostgresConfig) (*DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.Database, cfg.User, cfg.Password, cfg.SSLMode)
	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db := &DB{DB: sqlDB, driver: "postgres"}
	if err := db.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}
	return db, nil
}

func (db *DB) Driver() string { return db.driver }

// Token is the store's correlation token. It identifies this node's server
// row and is stamped on every shutdown directive so connectors can discard
// directives issued against a different store.
func (db *DB) Token() string { return db.token }

// Q rewrites ? placeholders and datetime literals for PostgreSQL, passes through for SQLite.
func (db *DB) Q(query string) string {
	if db.driver == "postgres" {
		query = strings.ReplaceAll(query, "datetime('now','localtime')", "NOW()")
		return Rebind(query)
	}
	return query
}

func (db *DB) migrate() error {
	var schema string
	switch db.driver {
	case "sqlite":
		schema = schemaSQLite
	case "postgres":
		schema = schemaPostgres
	default:
		return fmt.Errorf("no schema for driver: %s", db.driver)
	}
	_, err := db.Exec(schema)
	return err
}

// insertReturningID runs an INSERT ... RETURNING id, which both SQLite (3.35+)
// and PostgreSQL support, so callers don't depend on LastInsertId.
func (db *DB) insertReturningID(ctx context.Context, query string, args ...any) (int64, error) {
	var id int64
	err := db.QueryRowContext(ctx, db.Q(query+" RETURNING id"), args...).Scan(&id)
	return id, err
}
