//go:build unix

package dbadapter

import (
	"context"
	"fmt"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// lowDiskThreshold is the free-space floor below which IncrementalVacuum
// skips the vacuum rather than risk failing mid-operation on an already
// full filesystem.
const lowDiskThreshold = 16 * 1024 * 1024 // 16 MiB

// IncrementalVacuum runs PRAGMA incremental_vacuum, unless the filesystem
// backing the database file is nearly full, in which case it is skipped
// and hasRoom is false. No-op (hasRoom=true) in Memory mode.
func (a *Adapter) IncrementalVacuum(ctx context.Context) (hasRoom bool, err error) {
	if a.mode == Memory {
		return true, nil
	}

	dir := filepath.Dir(a.path)
	var stat unix.Statfs_t
	if err := unix.Statfs(dir, &stat); err != nil {
		return false, fmt.Errorf("dbadapter: statfs %s: %w", dir, err)
	}
	free := stat.Bavail * uint64(stat.Bsize)
	if free < lowDiskThreshold {
		return false, nil
	}

	if err := a.WithTx(ctx, func(ctx context.Context, q Queryer) error {
		_, err := q.ExecContext(ctx, "PRAGMA incremental_vacuum")
		return err
	}); err != nil {
		return true, fmt.Errorf("dbadapter: incremental_vacuum: %w", err)
	}
	return true, nil
}
