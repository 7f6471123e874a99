//go:build !unix

package dbadapter

import "context"

// IncrementalVacuum runs PRAGMA incremental_vacuum. The free-space gate is
// unix-specific (golang.org/x/sys/unix.Statfs); on other platforms vacuum
// always proceeds.
func (a *Adapter) IncrementalVacuum(ctx context.Context) (hasRoom bool, err error) {
	if a.mode == Memory {
		return true, nil
	}
	if err := a.WithTx(ctx, func(ctx context.Context, q Queryer) error {
		_, err := q.ExecContext(ctx, "PRAGMA incremental_vacuum")
		return err
	}); err != nil {
		return true, err
	}
	return true, nil
}
