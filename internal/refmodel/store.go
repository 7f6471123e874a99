package refmodel

import "context"

// Store is the narrow persistence surface refmodel needs: the atoms and
// shapes tables (spec §3), already wrapped by whatever write-through cache
// and transaction scope the caller is using. internal/engine supplies the
// concrete implementation backed by internal/kvtable + internal/cache.
type Store interface {
	// GetAtom returns the serialized payload for an atom cid.
	GetAtom(ctx context.Context, cid string) ([]byte, bool, error)
	// SetAtom upserts the serialized payload for an atom cid. Idempotent.
	SetAtom(ctx context.Context, cid string, payload []byte) error

	// GetShape returns the detached shape stored under an hid.
	GetShape(ctx context.Context, hid string) (Ref, bool, error)
	// SetShape upserts the detached shape for an hid. A no-op if a shape
	// is already persisted under that hid (spec §3 lifecycle: "Shapes are
	// written once per history id; re-save is a no-op").
	SetShape(ctx context.Context, hid string, shape Ref) error
}
