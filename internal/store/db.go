// Package store persists evaluation reports so scores can be compared
// across runs. SQLite is the default backend; MySQL is available for
// shared history.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

// Driver names accepted by Open.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// pingTimeout bounds the initial MySQL connection check.
const pingTimeout = 5 * time.Second

// DB wraps a sql.DB connection to the evaluation history database.
type DB struct {
	conn   *sql.DB
	driver string
}

// Open opens the history database. For sqlite, dsn is a file path whose
// parent directory is created if needed. For mysql, dsn is a
// go-sql-driver DSN.
func Open(driver, dsn string) (*DB, error) {
	switch strings.ToLower(driver) {
	case "", DriverSQLite:
		return openSQLite(dsn)
	case DriverMySQL:
		return openMySQL(dsn)
	default:
		return nil, fmt.Errorf("unknown history driver %q", driver)
	}
}

func openSQLite(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	// WAL lets a concurrent history read proceed during an insert.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return finishOpen(conn, DriverSQLite)
}

func openMySQL(dsn string) (*DB, error) {
	conn, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}

	return finishOpen(conn, DriverMySQL)
}

// OpenInMemory opens an in-memory SQLite database, useful for testing.
func OpenInMemory() (*DB, error) {
	conn, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, err
	}
	// Every pooled connection would otherwise get its own empty database.
	conn.SetMaxOpenConns(1)
	return finishOpen(conn, DriverSQLite)
}

func finishOpen(conn *sql.DB, driver string) (*DB, error) {
	db := &DB{conn: conn, driver: driver}
	if err := db.Migrate(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Driver reports the backend in use.
func (db *DB) Driver() string {
	return db.driver
}
