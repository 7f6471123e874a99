package refmodel

import (
	"context"
	"fmt"

	"github.com/loomstore/loom/api"
	"github.com/loomstore/loom/internal/codec"
)

// Save persists r: for an in-memory atom, writes the serialized payload
// under its cid; always writes the detached shape under its hid; for
// lists/dicts, recurses into in-memory children first. Idempotent on hid
// (spec §4.6).
func Save(ctx context.Context, store Store, r Ref) error {
	switch v := r.(type) {
	case *AtomRef:
		if v.inMemory {
			data, err := codec.Serialize(v.obj)
			if err != nil {
				return fmt.Errorf("refmodel: serialize atom %s: %w", v.hid, err)
			}
			if err := store.SetAtom(ctx, v.cid, data); err != nil {
				return fmt.Errorf("refmodel: save atom %s: %w", v.cid, err)
			}
		}
		return saveShape(ctx, store, v)
	case *ListRef:
		if v.inMemory {
			for _, child := range v.items {
				if err := Save(ctx, store, child); err != nil {
					return err
				}
			}
		}
		return saveShape(ctx, store, v)
	case *DictRef:
		if v.inMemory {
			for _, child := range v.entries {
				if err := Save(ctx, store, child); err != nil {
					return err
				}
			}
		}
		return saveShape(ctx, store, v)
	default:
		return fmt.Errorf("refmodel: save: %w (%T)", api.ErrUnsupportedRefShape, r)
	}
}

func saveShape(ctx context.Context, store Store, r Ref) error {
	if err := store.SetShape(ctx, r.HID(), r); err != nil {
		return fmt.Errorf("refmodel: save shape %s: %w", r.HID(), err)
	}
	return nil
}
