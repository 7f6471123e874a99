package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/loomstore/loom/internal/calltable"
	"github.com/loomstore/loom/internal/dbadapter"
)

// CallRecord is the cache's in-memory shape for one full call: every row
// (input and output slots) under one call_history_id, keyed by slot name.
type CallRecord struct {
	HistoryID string
	Op        string
	ContentID string
	Inputs    map[string]calltable.Row
	Outputs   map[string]calltable.Row
}

func rowsToRecord(historyID string, rows []calltable.Row) CallRecord {
	rec := CallRecord{
		HistoryID: historyID,
		Inputs:    make(map[string]calltable.Row),
		Outputs:   make(map[string]calltable.Row),
	}
	for _, r := range rows {
		rec.Op = r.Op
		rec.ContentID = r.CallContentID
		switch r.Direction {
		case calltable.Input:
			rec.Inputs[r.Name] = r
		case calltable.Output:
			rec.Outputs[r.Name] = r
		}
	}
	return rec
}

func recordToRows(rec CallRecord) []calltable.Row {
	rows := make([]calltable.Row, 0, len(rec.Inputs)+len(rec.Outputs))
	for _, r := range rec.Inputs {
		rows = append(rows, r)
	}
	for _, r := range rec.Outputs {
		rows = append(rows, r)
	}
	return rows
}

// callTableBacking adapts calltable.Table to the Backing[string,
// CallRecord] interface Cache expects, bound to a fixed Queryer — callers
// open a fresh backing per transaction.
type callTableBacking struct {
	ctx context.Context
	q   dbadapter.Queryer
	tbl *calltable.Table
}

func (b callTableBacking) Get(historyID string) (CallRecord, bool, error) {
	rows, err := b.tbl.Get(b.ctx, b.q, historyID)
	if err != nil {
		return CallRecord{}, false, fmt.Errorf("cache: call get %s: %w", historyID, err)
	}
	if len(rows) == 0 {
		return CallRecord{}, false, nil
	}
	return rowsToRecord(historyID, rows), true, nil
}

func (b callTableBacking) Set(historyID string, rec CallRecord) error {
	if err := b.tbl.Save(b.ctx, b.q, recordToRows(rec)); err != nil {
		return fmt.Errorf("cache: call set %s: %w", historyID, err)
	}
	return nil
}

// CallCache is the write-through cache over the calls table (spec §4.4's
// "richer call record" variant), with content-address lookup extensions
// used by the call-cid-clone step of callInternal (spec §4.8).
type CallCache struct {
	*Cache[string, CallRecord]
	tbl *calltable.Table
}

// NewCallCache constructs a CallCache. It holds no live Queryer; callers
// pass one to each backing-touching method (Get/Commit/ExistsContent/
// GetDataContent), mirroring how dbadapter scopes connections per
// transaction.
func NewCallCache() (*CallCache, error) {
	tbl := calltable.New()
	c, err := New[string, CallRecord](callTableBacking{tbl: tbl})
	if err != nil {
		return nil, err
	}
	return &CallCache{Cache: c, tbl: tbl}, nil
}

// GetTx returns the call record for historyID, reading through ctx/q on a
// mirror miss.
func (cc *CallCache) GetTx(ctx context.Context, q dbadapter.Queryer, historyID string) (CallRecord, bool, error) {
	if v, ok, err := cc.lookupLocal(historyID); ok || err != nil {
		return v, ok, err
	}
	backing := callTableBacking{ctx: ctx, q: q, tbl: cc.tbl}
	v, ok, err := backing.Get(historyID)
	if err != nil {
		return CallRecord{}, false, err
	}
	if ok {
		cc.clean.Add(historyID, v)
	}
	return v, ok, nil
}

func (cc *CallCache) lookupLocal(historyID string) (CallRecord, bool, error) {
	if v, ok := cc.dirty[historyID]; ok {
		return v, true, nil
	}
	if v, ok := cc.clean.Get(historyID); ok {
		return v, true, nil
	}
	return CallRecord{}, false, nil
}

// CommitTx flushes every dirty call record to the calls table within the
// given transaction.
func (cc *CallCache) CommitTx(ctx context.Context, q dbadapter.Queryer) error {
	return cc.Commit(func(historyID string, rec CallRecord) error {
		return cc.tbl.Save(ctx, q, recordToRows(rec))
	})
}

// DropTx removes historyID from the cache and from the calls table.
func (cc *CallCache) DropTx(ctx context.Context, q dbadapter.Queryer, historyID string) error {
	return cc.DropPersisted(historyID, func(h string) error {
		return cc.tbl.Drop(ctx, q, h)
	})
}

// ExistsContent reports whether a call with content id cid is known,
// checking dirty entries first, then reading through to the calls table
// (spec §4.4, §4.8's cid-clone step).
func (cc *CallCache) ExistsContent(ctx context.Context, q dbadapter.Queryer, cid string) (bool, error) {
	for _, rec := range cc.dirty {
		if rec.ContentID == cid {
			return true, nil
		}
	}
	row := q.QueryRowContext(ctx, `SELECT 1 FROM calls WHERE call_content_id = ? LIMIT 1`, cid)
	var one int
	if err := row.Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("cache: exists content %s: %w", cid, err)
	}
	return true, nil
}

// GetDataContent returns the first call record known under content id cid,
// checking dirty entries first, then reading through to the calls table.
func (cc *CallCache) GetDataContent(ctx context.Context, q dbadapter.Queryer, cid string) (CallRecord, bool, error) {
	for historyID, rec := range cc.dirty {
		if rec.ContentID == cid {
			_ = historyID
			return rec, true, nil
		}
	}

	row := q.QueryRowContext(ctx, `SELECT call_history_id FROM calls WHERE call_content_id = ? LIMIT 1`, cid)
	var historyID string
	if err := row.Scan(&historyID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CallRecord{}, false, nil
		}
		return CallRecord{}, false, fmt.Errorf("cache: get data content %s: %w", cid, err)
	}
	return cc.GetTx(ctx, q, historyID)
}
