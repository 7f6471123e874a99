package refmodel

import (
	"context"
	"fmt"

	"github.com/loomstore/loom/api"
	"github.com/loomstore/loom/internal/codec"
)

// Load reads the shape stored under hid and, unless lazy, materializes its
// value. For atoms, non-lazy loads also fetch and deserialize the atom
// payload. For lists/dicts, Load always recurses into each child via a
// fresh Load call — it never substitutes a cached shape.Obj (see
// DESIGN.md's Open Question decision: this is the one place the source
// this engine is modeled on has a bug, returning stale cached children on
// the lazy path).
func Load(ctx context.Context, store Store, hid string, lazy bool) (Ref, error) {
	shape, found, err := store.GetShape(ctx, hid)
	if err != nil {
		return nil, fmt.Errorf("refmodel: load shape %s: %w", hid, err)
	}
	if !found {
		return nil, api.NewNotFoundError(api.RefHID, hid)
	}

	switch v := shape.(type) {
	case *AtomRef:
		if lazy {
			return NewAtom(v.cid, v.hid, nil, false), nil
		}
		data, found, err := store.GetAtom(ctx, v.cid)
		if err != nil {
			return nil, fmt.Errorf("refmodel: load atom %s: %w", v.cid, err)
		}
		if !found {
			return nil, api.NewIntegrityError(fmt.Sprintf("atom %s referenced by shape %s is missing", v.cid, hid))
		}
		obj, err := codec.Deserialize(data)
		if err != nil {
			return nil, fmt.Errorf("refmodel: deserialize atom %s: %w", v.cid, err)
		}
		return NewAtom(v.cid, v.hid, obj, true), nil

	case *ListRef:
		children := make([]Ref, len(v.items))
		for i, child := range v.items {
			loaded, err := Load(ctx, store, child.HID(), lazy)
			if err != nil {
				return nil, err
			}
			children[i] = loaded
		}
		return NewList(v.cid, v.hid, children, true), nil

	case *DictRef:
		children := make(map[string]Ref, len(v.entries))
		for key, child := range v.entries {
			loaded, err := Load(ctx, store, child.HID(), lazy)
			if err != nil {
				return nil, err
			}
			children[key] = loaded
		}
		return NewDict(v.cid, v.hid, children, true), nil

	default:
		return nil, fmt.Errorf("refmodel: load %s: %w (%T)", hid, api.ErrUnsupportedRefShape, shape)
	}
}
