// Package store provides the embedded SQLite entity store for pantry.
//
// The database runs fully embedded (ncruces/go-sqlite3, WASM build, no
// cgo) with WAL mode enabled so live-query readers never block the
// single writer. sqlx sits on top of database/sql for struct scanning.
//
// The store guarantees that every logical mutation — a single-row update
// or the multi-table checkout — executes as one transaction. Change
// notifications fan out post-commit through the Hub, powering the live
// query subscriptions described in the design notes; they are advisory
// and never synchronous with the triggering write.
package store

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// DB wraps the embedded SQLite connection together with the post-commit
// notification hub.
type DB struct {
	conn *sqlx.DB
	path string
	hub  *Hub
}

// Open creates (or opens) the database file at path, applies the
// connection pragmas and runs all pending migrations.
//
// The caller MUST call Close() when done.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// _timefmt makes the driver bind time.Time as RFC 3339 text and scan
	// DATETIME-declared columns back into time.Time.
	conn, err := sqlx.Connect("sqlite3", "file:"+path+"?_timefmt=rfc3339")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(5 * time.Minute)

	db := &DB{conn: conn, path: path, hub: NewHub()}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.conn.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if err := db.Migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// Path returns the database file path.
func (db *DB) Path() string { return db.path }

// Hub returns the post-commit change notification hub.
func (db *DB) Hub() *Hub { return db.hub }

// Conn returns the underlying sqlx connection for read queries.
// Mutations must go through InTx.
func (db *DB) Conn() *sqlx.DB { return db.conn }

// Close checkpoints the WAL and closes the connection.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	if _, err := db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		log.Printf("warning: failed to checkpoint WAL: %v", err)
	}
	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	db.conn = nil
	db.hub.Shutdown()
	return nil
}

// Tx is a write transaction. Repositories record which tables they
// touched so the hub can notify subscribers after commit.
type Tx struct {
	*sqlx.Tx
	changed map[string]struct{}
}

// MarkChanged records table as modified by this transaction.
func (tx *Tx) MarkChanged(table string) {
	tx.changed[table] = struct{}{}
}

// InTx runs fn inside a single transaction. On error the transaction is
// rolled back and no rows are persisted (the caller sees one wrapped
// aggregate error); on success the hub is notified for every table the
// transaction marked changed, after commit.
func (db *DB) InTx(ctx context.Context, fn func(tx *Tx) error) error {
	raw, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	tx := &Tx{Tx: raw, changed: make(map[string]struct{})}

	if err := fn(tx); err != nil {
		_ = raw.Rollback()
		return err
	}
	if err := raw.Commit(); err != nil {
		_ = raw.Rollback()
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	if len(tx.changed) > 0 {
		tables := make([]string, 0, len(tx.changed))
		for t := range tx.changed {
			tables = append(tables, t)
		}
		db.hub.Publish(tables...)
	}
	return nil
}
