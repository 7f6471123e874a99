package dbadapter

import (
	"context"
	"database/sql"
	"fmt"
)

type txKey struct{}

// WithTx scopes acquisition of a connection around fn: commit on success,
// rollback on error or panic, close the connection on exit (except in
// Memory mode, where the one long-lived connection is kept open). Nested
// calls — ctx already carrying an open transaction — fold into the outer
// transaction instead of opening a new one (spec §4.1).
func (a *Adapter) WithTx(ctx context.Context, fn func(ctx context.Context, q Queryer) error) error {
	if q, ok := ctx.Value(txKey{}).(Queryer); ok {
		return fn(ctx, q)
	}

	switch a.mode {
	case Memory:
		a.mu.Lock()
		defer a.mu.Unlock()
		return runTx(ctx, a.memDB, fn)

	case File:
		db, err := sql.Open("sqlite", a.path)
		if err != nil {
			return fmt.Errorf("dbadapter: open %s: %w", a.path, err)
		}
		defer func() { _ = db.Close() }()
		return runTx(ctx, db, fn)

	default:
		return fmt.Errorf("dbadapter: unknown mode %d", a.mode)
	}
}

func runTx(ctx context.Context, db *sql.DB, fn func(ctx context.Context, q Queryer) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("dbadapter: begin transaction: %w", err)
	}

	scoped := context.WithValue(ctx, txKey{}, Queryer(tx))

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if cerr := tx.Commit(); cerr != nil {
			err = fmt.Errorf("dbadapter: commit: %w", cerr)
		}
	}()

	err = fn(scoped, tx)
	return err
}
