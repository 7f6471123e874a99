package refmodel

import "context"

// Attach ensures a detached ref becomes in-memory by loading it (and,
// recursively, its children) from the atoms/shapes tables. A ref that is
// already in memory is returned unchanged (spec §4.6).
func Attach(ctx context.Context, store Store, r Ref) (Ref, error) {
	if r.InMemory() {
		return r, nil
	}
	return Load(ctx, store, r.HID(), false)
}
