// Package calltable implements the normalized call relation (spec §3, §6):
// one row per (call, slot) pair, direction distinguishing input slots from
// output slots.
package calltable

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/loomstore/loom/internal/dbadapter"
)

// Direction distinguishes an input slot row from an output slot row.
type Direction string

const (
	Input  Direction = "input"
	Output Direction = "output"
)

// Row is one (call_history_id, name) record — one input or output slot of
// one call.
type Row struct {
	CallHistoryID string
	Name          string
	Direction     Direction
	CallContentID string
	RefContentID  string
	RefHistoryID  string
	Op            string
}

// Table is the calls table.
type Table struct{}

// New returns a Table. It performs no I/O.
func New() *Table {
	return &Table{}
}

// Save upserts rows. Rows share the same primary key shape
// (call_history_id, name) as the schema in dbadapter — a duplicate save of
// an already-stored call is idempotent (spec §4.8's cid-clone rule leans on
// this).
func (t *Table) Save(ctx context.Context, q dbadapter.Queryer, rows []Row) error {
	for _, r := range rows {
		_, err := q.ExecContext(ctx, `
			INSERT INTO calls (call_history_id, name, direction, call_content_id, ref_content_id, ref_history_id, op)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(call_history_id, name) DO UPDATE SET
				direction = excluded.direction,
				call_content_id = excluded.call_content_id,
				ref_content_id = excluded.ref_content_id,
				ref_history_id = excluded.ref_history_id,
				op = excluded.op
		`, r.CallHistoryID, r.Name, string(r.Direction), r.CallContentID, r.RefContentID, r.RefHistoryID, r.Op)
		if err != nil {
			return fmt.Errorf("calltable: save %s/%s: %w", r.CallHistoryID, r.Name, err)
		}
	}
	return nil
}

// Drop deletes every row for callHistoryID.
func (t *Table) Drop(ctx context.Context, q dbadapter.Queryer, callHistoryID string) error {
	_, err := q.ExecContext(ctx, `DELETE FROM calls WHERE call_history_id = ?`, callHistoryID)
	if err != nil {
		return fmt.Errorf("calltable: drop %s: %w", callHistoryID, err)
	}
	return nil
}

// Exists reports whether any row is stored under callHistoryID.
func (t *Table) Exists(ctx context.Context, q dbadapter.Queryer, callHistoryID string) (bool, error) {
	row := q.QueryRowContext(ctx, `SELECT 1 FROM calls WHERE call_history_id = ? LIMIT 1`, callHistoryID)
	var one int
	if err := row.Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("calltable: exists %s: %w", callHistoryID, err)
	}
	return true, nil
}

// ExistsRefHID reports whether refHistoryID appears in any row, as either
// an input or output slot — used by provenance's orphan sweep to tell
// whether a ref is still referenced by any call (spec §4.9).
func (t *Table) ExistsRefHID(ctx context.Context, q dbadapter.Queryer, refHistoryID string) (bool, error) {
	row := q.QueryRowContext(ctx, `SELECT 1 FROM calls WHERE ref_history_id = ? LIMIT 1`, refHistoryID)
	var one int
	if err := row.Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("calltable: exists ref hid %s: %w", refHistoryID, err)
	}
	return true, nil
}

// RowsByRefHID returns every row whose ref_history_id is one of
// refHistoryIDs and whose direction matches dir — the creator/consumer
// lookup provenance queries need (spec §4.9).
func (t *Table) RowsByRefHID(ctx context.Context, q dbadapter.Queryer, refHistoryIDs []string, dir Direction) ([]Row, error) {
	if len(refHistoryIDs) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(refHistoryIDs))
	args := make([]any, 0, len(refHistoryIDs)+1)
	for i, id := range refHistoryIDs {
		placeholders[i] = "?"
		args = append(args, id)
	}
	args = append(args, string(dir))

	query := fmt.Sprintf(`
		SELECT call_history_id, name, direction, call_content_id, ref_content_id, ref_history_id, op
		FROM calls WHERE ref_history_id IN (%s) AND direction = ?
	`, strings.Join(placeholders, ", "))

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("calltable: rows by ref hid: %w", err)
	}
	defer rows.Close()
	return scanRows(rows)
}

// AllRefContentIDs returns every distinct ref_content_id appearing in the
// calls table, regardless of whether it belongs to an atom or a composite
// ref — used by the orphan sweep to tell which atom cids are still
// referenced directly by a call row (spec §4.9).
func (t *Table) AllRefContentIDs(ctx context.Context, q dbadapter.Queryer) (map[string]struct{}, error) {
	rows, err := q.QueryContext(ctx, `SELECT DISTINCT ref_content_id FROM calls`)
	if err != nil {
		return nil, fmt.Errorf("calltable: all ref content ids: %w", err)
	}
	defer rows.Close()
	out := make(map[string]struct{})
	for rows.Next() {
		var cid string
		if err := rows.Scan(&cid); err != nil {
			return nil, fmt.Errorf("calltable: scan ref content id: %w", err)
		}
		out[cid] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("calltable: rows: %w", err)
	}
	return out, nil
}

// CountDistinctCalls returns the number of distinct call_history_id values
// in the table — one count per memoized call, regardless of how many
// input/output slot rows it owns. Used by the admin CLI's stats report.
func (t *Table) CountDistinctCalls(ctx context.Context, q dbadapter.Queryer) (int, error) {
	row := q.QueryRowContext(ctx, `SELECT COUNT(DISTINCT call_history_id) FROM calls`)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("calltable: count distinct calls: %w", err)
	}
	return n, nil
}

// Get returns every row stored under callHistoryID, in no particular
// order.
func (t *Table) Get(ctx context.Context, q dbadapter.Queryer, callHistoryID string) ([]Row, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT call_history_id, name, direction, call_content_id, ref_content_id, ref_history_id, op
		FROM calls WHERE call_history_id = ?
	`, callHistoryID)
	if err != nil {
		return nil, fmt.Errorf("calltable: get %s: %w", callHistoryID, err)
	}
	defer rows.Close()
	return scanRows(rows)
}

// MGetData fetches rows for every id in callHistoryIDs in one query and
// groups them by id. The result holds an entry for every requested id
// (nil for an id with no rows); it is a map, so it carries no order —
// neither the requested order nor the order SQLite returned rows in.
func (t *Table) MGetData(ctx context.Context, q dbadapter.Queryer, callHistoryIDs []string) (map[string][]Row, error) {
	result := make(map[string][]Row, len(callHistoryIDs))
	if len(callHistoryIDs) == 0 {
		return result, nil
	}

	placeholders := make([]string, len(callHistoryIDs))
	args := make([]any, len(callHistoryIDs))
	for i, id := range callHistoryIDs {
		placeholders[i] = "?"
		args[i] = id
	}

	query := fmt.Sprintf(`
		SELECT call_history_id, name, direction, call_content_id, ref_content_id, ref_history_id, op
		FROM calls WHERE call_history_id IN (%s)
	`, strings.Join(placeholders, ", "))

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("calltable: mget: %w", err)
	}
	defer rows.Close()

	all, err := scanRows(rows)
	if err != nil {
		return nil, err
	}
	byID := make(map[string][]Row, len(callHistoryIDs))
	for _, r := range all {
		byID[r.CallHistoryID] = append(byID[r.CallHistoryID], r)
	}

	for _, id := range callHistoryIDs {
		result[id] = byID[id]
	}
	return result, nil
}

func scanRows(rows *sql.Rows) ([]Row, error) {
	var out []Row
	for rows.Next() {
		var r Row
		var dir string
		if err := rows.Scan(&r.CallHistoryID, &r.Name, &dir, &r.CallContentID, &r.RefContentID, &r.RefHistoryID, &r.Op); err != nil {
			return nil, fmt.Errorf("calltable: scan: %w", err)
		}
		r.Direction = Direction(dir)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("calltable: rows: %w", err)
	}
	return out, nil
}
