package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

// Dialect selects the SQL flavour spoken by SQLAdapter.
type Dialect string

const (
	DialectMySQL  Dialect = "mysql"
	DialectSQLite Dialect = "sqlite"
)

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS inventory (
		product_id VARCHAR(64) PRIMARY KEY,
		stock      INT NOT NULL,
		version    INT NOT NULL DEFAULT 0,
		updated_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS cart_lines (
		line_id    VARCHAR(64) PRIMARY KEY,
		user_key   VARCHAR(128) NOT NULL,
		product_id VARCHAR(64) NOT NULL,
		quantity   INT NOT NULL,
		selected   BOOLEAN NOT NULL,
		position   INT NOT NULL,
		added_at   BIGINT NOT NULL,
		INDEX idx_cart_lines_user (user_key, position)
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id           VARCHAR(64) PRIMARY KEY,
		remote_id    VARCHAR(128) NOT NULL,
		user_key     VARCHAR(128) NOT NULL,
		subtotal     DECIMAL(18,2) NOT NULL,
		shipping_fee DECIMAL(18,2) NOT NULL,
		tax_fee      DECIMAL(18,2) NOT NULL,
		total        DECIMAL(18,2) NOT NULL,
		status       VARCHAR(32) NOT NULL,
		created_at   BIGINT NOT NULL,
		updated_at   BIGINT NOT NULL,
		INDEX idx_orders_user (user_key, created_at)
	)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		order_id   VARCHAR(64) NOT NULL,
		position   INT NOT NULL,
		product_id VARCHAR(64) NOT NULL,
		name       VARCHAR(255) NOT NULL,
		quantity   INT NOT NULL,
		unit_price DECIMAL(18,2) NOT NULL,
		PRIMARY KEY (order_id, position)
	)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS inventory (
		product_id TEXT PRIMARY KEY,
		stock      INTEGER NOT NULL,
		version    INTEGER NOT NULL DEFAULT 0,
		updated_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS cart_lines (
		line_id    TEXT PRIMARY KEY,
		user_key   TEXT NOT NULL,
		product_id TEXT NOT NULL,
		quantity   INTEGER NOT NULL,
		selected   INTEGER NOT NULL,
		position   INTEGER NOT NULL,
		added_at   INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_cart_lines_user ON cart_lines(user_key, position)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id           TEXT PRIMARY KEY,
		remote_id    TEXT NOT NULL,
		user_key     TEXT NOT NULL,
		subtotal     TEXT NOT NULL,
		shipping_fee TEXT NOT NULL,
		tax_fee      TEXT NOT NULL,
		total        TEXT NOT NULL,
		status       TEXT NOT NULL,
		created_at   INTEGER NOT NULL,
		updated_at   INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_user ON orders(user_key, created_at)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		order_id   TEXT NOT NULL REFERENCES orders(id),
		position   INTEGER NOT NULL,
		product_id TEXT NOT NULL,
		name       TEXT NOT NULL,
		quantity   INTEGER NOT NULL,
		unit_price TEXT NOT NULL,
		PRIMARY KEY (order_id, position)
	)`,
}

// Migrate creates the tables used by SQLAdapter if they do not exist.
func Migrate(ctx context.Context, db *sql.DB, dialect Dialect) error {
	schema := sqliteSchema
	if dialect == DialectMySQL {
		schema = mysqlSchema
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// OpenSQLite opens a SQLite database file, or an in-memory one for ":memory:".
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// SQLite allows one writer; a single connection also keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON"} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	return db, nil
}

type MySQLPool struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// OpenMySQL opens a MySQL pool. The DSN's parseTime flag is not needed: times are stored as unix micros.
func OpenMySQL(ctx context.Context, dsn string, pool MySQLPool) (*sql.DB, error) {
	if _, err := mysql.ParseDSN(dsn); err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(pool.MaxOpenConns)
	db.SetMaxIdleConns(pool.MaxIdleConns)
	db.SetConnMaxLifetime(pool.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	return db, nil
}
