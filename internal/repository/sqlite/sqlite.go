// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// modernc.org/sqlite is a pure Go translation of SQLite, so the binary builds
// without a C toolchain. The schema is managed by golang-migrate from the SQL
// files embedded under migrations/.
//
// DATABASE/SQL OVERVIEW:
//   - sql.DB a connection pool (NOT a single connection!)
//   - sql.Row    : a single result row
//   - sql.Rows   : multiple result rows (must be closed!)
//
// Connection-level settings (foreign keys, WAL, busy timeout) are passed as
// _pragma DSN parameters so that every connection the pool opens gets them,
// not just the first one.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// MemoryPath opens a private in-memory database. Used by tests.
const MemoryPath = ":memory:"

// DB wraps a sql.DB connection pool and implements the user and favorite
// repositories. One DB is opened per process and shared by every request.
type DB struct {
	conn *sql.DB
}

// New opens the database at dbPath and applies all pending migrations.
//
// dbPath examples:
//   - "data/npmmer.db"  → file-based database (persistent)
//   - ":memory:"        → in-memory database (tests; lost on close)
func New(dbPath string) (*DB, error) {
	db, err := Open(dbPath)
	if err != nil {
		return nil, err
	}

	if err := db.MigrateUp(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Open opens the database without touching the schema. The migrate command
// uses it so that it can move the schema in either direction.
func Open(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Each connection to ":memory:" is a separate, empty database, so the pool
	// must never open a second one.
	if dbPath == MemoryPath {
		conn.SetMaxOpenConns(1)
	}

	// sql.Open does not connect; Ping surfaces a bad path or permissions now.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	return &DB{conn: conn}, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// PingContext reports whether the database is reachable. Used by the
// readiness probe.
func (db *DB) PingContext(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func dsn(dbPath string) string {
	params := []string{
		"_pragma=foreign_keys(1)",
		"_pragma=busy_timeout(5000)",
	}
	if dbPath != MemoryPath {
		params = append(params, "_pragma=journal_mode(WAL)")
	}
	return dbPath + "?" + strings.Join(params, "&")
}

// uniqueViolation reports whether err is a UNIQUE or PRIMARY KEY constraint
// failure on the given "table.column".
func uniqueViolation(err error, column string) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return strings.Contains(se.Error(), column)
	}
	return false
}
