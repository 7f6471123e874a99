// Package kvtable implements the flat key→blob table used for atoms,
// shapes, ops, and sources (spec §4.2, §6). Each of those concerns gets
// its own SQLite table with an identical (key TEXT PRIMARY KEY, value
// BLOB) shape; Table just parameterizes the table name over that shape.
// Values are raw []byte; encoding them is left to the caller.
package kvtable

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/loomstore/loom/internal/dbadapter"
)

// ErrKeyNotFound is returned by Get when key has no row.
var ErrKeyNotFound = errors.New("kvtable: key not found")

// Table is a typed view over one of the flat key/value tables. name must
// be one of "atoms", "shapes", "ops", "sources" — the tables dbadapter's
// schema creates.
type Table struct {
	name string
}

// New returns a Table bound to the given table name. It performs no I/O;
// the table itself is created by dbadapter.Open's migration.
func New(name string) *Table {
	return &Table{name: name}
}

// Get fetches the raw blob stored under key. Returns ErrKeyNotFound if
// absent.
func (t *Table) Get(ctx context.Context, q dbadapter.Queryer, key string) ([]byte, error) {
	row := q.QueryRowContext(ctx, fmt.Sprintf(`SELECT value FROM %s WHERE key = ?`, t.name), key)
	var value []byte
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("kvtable: get %s[%s]: %w", t.name, key, err)
	}
	return value, nil
}

// Set upserts key to value.
func (t *Table) Set(ctx context.Context, q dbadapter.Queryer, key string, value []byte) error {
	_, err := q.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`, t.name),
		key, value)
	if err != nil {
		return fmt.Errorf("kvtable: set %s[%s]: %w", t.name, key, err)
	}
	return nil
}

// Exists reports whether key has a row, without fetching its value.
func (t *Table) Exists(ctx context.Context, q dbadapter.Queryer, key string) (bool, error) {
	row := q.QueryRowContext(ctx, fmt.Sprintf(`SELECT 1 FROM %s WHERE key = ?`, t.name), key)
	var one int
	if err := row.Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("kvtable: exists %s[%s]: %w", t.name, key, err)
	}
	return true, nil
}

// Drop deletes the row under key, if any. Dropping an absent key is not
// an error.
func (t *Table) Drop(ctx context.Context, q dbadapter.Queryer, key string) error {
	_, err := q.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE key = ?`, t.name), key)
	if err != nil {
		return fmt.Errorf("kvtable: drop %s[%s]: %w", t.name, key, err)
	}
	return nil
}

// Keys returns every key currently stored, in arbitrary order. Used by
// provenance's orphan sweep to enumerate candidates (spec §4.9).
func (t *Table) Keys(ctx context.Context, q dbadapter.Queryer) ([]string, error) {
	rows, err := q.QueryContext(ctx, fmt.Sprintf(`SELECT key FROM %s`, t.name))
	if err != nil {
		return nil, fmt.Errorf("kvtable: keys %s: %w", t.name, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("kvtable: keys %s: scan: %w", t.name, err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("kvtable: keys %s: %w", t.name, err)
	}
	return keys, nil
}

// LoadAll returns every (key, value) pair currently stored. Used by
// loomctl's ops command to list the persisted op metadata.
func (t *Table) LoadAll(ctx context.Context, q dbadapter.Queryer) (map[string][]byte, error) {
	rows, err := q.QueryContext(ctx, fmt.Sprintf(`SELECT key, value FROM %s`, t.name))
	if err != nil {
		return nil, fmt.Errorf("kvtable: load all %s: %w", t.name, err)
	}
	defer rows.Close()

	out := make(map[string][]byte)
	for rows.Next() {
		var k string
		var v []byte
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("kvtable: load all %s: scan: %w", t.name, err)
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("kvtable: load all %s: %w", t.name, err)
	}
	return out, nil
}
