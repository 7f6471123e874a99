// Package dbadapter opens and owns the embedded relational store connection
// loom persists to, and exposes transaction scoping over it (spec §4.1).
//
// Backed by modernc.org/sqlite — the pure-Go SQLite driver the teacher uses
// throughout internal/graph — so the whole engine stays cgo-free.
package dbadapter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"

	_ "modernc.org/sqlite"
)

// Mode selects how the adapter manages its underlying connection(s).
type Mode int

const (
	// File persists to a path on disk. A fresh connection is opened per
	// transaction and closed on completion (spec §4.1, §5).
	File Mode = iota
	// Memory keeps one connection open for the adapter's lifetime — an
	// in-memory SQLite database only exists as long as its one connection
	// does, so pooling would silently lose data (spec §4.1, §5).
	Memory
)

const schema = `
CREATE TABLE IF NOT EXISTS atoms (key TEXT PRIMARY KEY, value BLOB);
CREATE TABLE IF NOT EXISTS shapes (key TEXT PRIMARY KEY, value BLOB);
CREATE TABLE IF NOT EXISTS ops (key TEXT PRIMARY KEY, value BLOB);
CREATE TABLE IF NOT EXISTS sources (key TEXT PRIMARY KEY, value BLOB);
CREATE TABLE IF NOT EXISTS calls (
	call_history_id TEXT,
	name TEXT,
	direction TEXT,
	call_content_id TEXT,
	ref_content_id TEXT,
	ref_history_id TEXT,
	op TEXT,
	PRIMARY KEY (call_history_id, name)
);
`

// Queryer is the subset of *sql.DB / *sql.Tx that table implementations
// need. Both satisfy it, so callers write table code once against this
// interface regardless of whether they're inside a transaction.
type Queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Adapter owns the relational connection(s) for one storage instance.
type Adapter struct {
	mode Mode
	path string

	mu    sync.Mutex // serializes access to memDB; see spec §5
	memDB *sql.DB
}

// Open opens (creating if necessary) the database at path in the given
// mode. path is ignored in Memory mode. On first creation of a file
// database, WAL journaling and incremental vacuuming are enabled — they
// persist in the file header, so later opens do not need to repeat this.
func Open(path string, mode Mode) (*Adapter, error) {
	a := &Adapter{mode: mode, path: path}

	switch mode {
	case Memory:
		db, err := sql.Open("sqlite", "file::memory:?cache=shared")
		if err != nil {
			return nil, fmt.Errorf("dbadapter: open in-memory db: %w", err)
		}
		db.SetMaxOpenConns(1)
		if err := migrate(context.Background(), db); err != nil {
			_ = db.Close()
			return nil, err
		}
		a.memDB = db
		return a, nil

	case File:
		_, statErr := os.Stat(path)
		firstCreation := errors.Is(statErr, os.ErrNotExist)

		db, err := sql.Open("sqlite", path)
		if err != nil {
			return nil, fmt.Errorf("dbadapter: open %s: %w", path, err)
		}
		defer func() { _ = db.Close() }()

		if firstCreation {
			if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
				return nil, fmt.Errorf("dbadapter: set WAL mode: %w", err)
			}
			if _, err := db.Exec("PRAGMA auto_vacuum=INCREMENTAL"); err != nil {
				return nil, fmt.Errorf("dbadapter: set auto_vacuum: %w", err)
			}
		}
		if err := migrate(context.Background(), db); err != nil {
			return nil, err
		}
		return a, nil

	default:
		return nil, fmt.Errorf("dbadapter: unknown mode %d", mode)
	}
}

func migrate(ctx context.Context, q Queryer) error {
	if _, err := q.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("dbadapter: create schema: %w", err)
	}
	return nil
}

// Path returns the file path this adapter was opened with (empty in Memory
// mode).
func (a *Adapter) Path() string { return a.path }

// Mode returns the adapter's connection mode.
func (a *Adapter) Mode() Mode { return a.mode }
