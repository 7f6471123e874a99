package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/loomstore/loom/api"
	"github.com/loomstore/loom/internal/codec"
	"github.com/loomstore/loom/internal/dbadapter"
	"github.com/loomstore/loom/internal/refmodel"
)

// construct implements spec §4.8 step 1: wrap a raw value as a Ref per its
// declared type, recursing through the make_list/make_dict structural ops
// for composites and accumulating the auxiliary calls that recursion
// produces.
func (s *Storage) construct(ctx context.Context, q dbadapter.Queryer, t api.Type, value any) (refmodel.Ref, []*Call, error) {
	if r, ok := value.(refmodel.Ref); ok {
		return r, nil, nil
	}

	switch t.Kind {
	case api.AtomKind:
		data, err := codec.Serialize(value)
		if err != nil {
			return nil, nil, fmt.Errorf("engine: construct atom: %w", err)
		}
		cid := codec.AtomCID(data)
		hid := codec.FreshHID()
		return refmodel.NewAtom(cid, hid, value, true), nil, nil

	case api.ListKind:
		items, ok := value.([]any)
		if !ok {
			return nil, nil, fmt.Errorf("engine: construct: expected []any for list type, got %T", value)
		}
		elemType := api.Atom()
		if t.Elem != nil {
			elemType = *t.Elem
		}

		order := make([]string, len(items))
		storageInputs := make(map[string]any, len(items))
		storageTypes := make(map[string]api.Type, len(items))
		for i, item := range items {
			slot := fmt.Sprintf("item_%d", i)
			order[i] = slot
			storageInputs[slot] = item
			storageTypes[slot] = elemType
		}

		op := makeListOp(order)
		outputs, main, aux, err := s.callInternal(ctx, q, op, order, storageInputs, storageTypes, storageInputs)
		if err != nil {
			return nil, nil, err
		}
		aux = append(aux, main)
		return outputs["out"], aux, nil

	case api.DictKind:
		m, ok := value.(map[string]any)
		if !ok {
			return nil, nil, fmt.Errorf("engine: construct: expected map[string]any for dict type, got %T", value)
		}
		valType := api.Atom()
		if t.Val != nil {
			valType = *t.Val
		}

		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		order := append([]string(nil), keys...)
		storageInputs := make(map[string]any, len(keys))
		storageTypes := make(map[string]api.Type, len(keys))
		for _, k := range keys {
			storageInputs[k] = m[k]
			storageTypes[k] = valType
		}

		op := makeDictOp(keys)
		outputs, main, aux, err := s.callInternal(ctx, q, op, order, storageInputs, storageTypes, storageInputs)
		if err != nil {
			return nil, nil, err
		}
		aux = append(aux, main)
		return outputs["out"], aux, nil

	default:
		return nil, nil, fmt.Errorf("engine: construct: %w", api.ErrUnsupportedRefShape)
	}
}

// destruct implements spec §4.8 step 4's recursive half: given a raw
// output value (already known, from the op's own return) and the hid the
// engine derived for it, produce the fully formed output ref, emitting
// get_list_item/get_dict_value sub-calls for every nested component so
// each has an hid linked to the containing call.
func (s *Storage) destruct(ctx context.Context, q dbadapter.Queryer, value any, assignedHID string) (refmodel.Ref, []*Call, error) {
	if r, ok := value.(refmodel.Ref); ok {
		return reassignHID(r, assignedHID), nil, nil
	}

	switch v := value.(type) {
	case []any:
		var aux []*Call
		items := make([]refmodel.Ref, len(v))
		childCIDs := make([]string, len(v))
		for i, item := range v {
			op := getListItemOp(item)
			storageInputs := map[string]any{
				"container": placeholderContainerRef(assignedHID, v),
				"index":     int64(i),
			}
			storageTypes := map[string]api.Type{"container": api.Atom(), "index": api.Atom()}
			order := []string{"container", "index"}

			outputs, main, subAux, err := s.callInternal(ctx, q, op, order, storageInputs, storageTypes, storageInputs)
			if err != nil {
				return nil, nil, err
			}
			aux = append(aux, subAux...)
			aux = append(aux, main)

			itemRef := outputs["item"]
			childCIDs[i] = itemRef.CID()
			items[i] = itemRef
		}
		cid := codec.ListCID(childCIDs)
		return refmodel.NewList(cid, assignedHID, items, true), aux, nil

	case map[string]any:
		var aux []*Call
		entries := make(map[string]refmodel.Ref, len(v))
		dictEntries := make([]codec.DictEntry, 0, len(v))
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			val := v[k]
			op := getDictValueOp(val)
			storageInputs := map[string]any{
				"container": placeholderContainerRef(assignedHID, v),
				"key":       k,
			}
			storageTypes := map[string]api.Type{"container": api.Atom(), "key": api.Atom()}
			order := []string{"container", "key"}

			outputs, main, subAux, err := s.callInternal(ctx, q, op, order, storageInputs, storageTypes, storageInputs)
			if err != nil {
				return nil, nil, err
			}
			aux = append(aux, subAux...)
			aux = append(aux, main)

			valRef := outputs["value"]
			entries[k] = valRef
			dictEntries = append(dictEntries, codec.DictEntry{Key: k, CID: valRef.CID()})
		}
		cid := codec.DictCID(dictEntries)
		return refmodel.NewDict(cid, assignedHID, entries, true), aux, nil

	default:
		data, err := codec.Serialize(value)
		if err != nil {
			return nil, nil, fmt.Errorf("engine: destruct atom: %w", err)
		}
		cid := codec.AtomCID(data)
		return refmodel.NewAtom(cid, assignedHID, value, true), nil, nil
	}
}

// placeholderContainerRef is a throwaway identity anchor for a
// get_list_item/get_dict_value sub-call's "container" input slot. Its hid
// ties every element of one destructured composite to the same container
// identity; its cid is recomputed from the still-raw composite value
// since the composite ref itself isn't fully built until every element's
// sub-call has run.
func placeholderContainerRef(assignedHID string, raw any) refmodel.Ref {
	cid, err := contentID(raw)
	if err != nil {
		cid = ""
	}
	return refmodel.NewAtom(cid, assignedHID, nil, false)
}

func reassignHID(r refmodel.Ref, hid string) refmodel.Ref {
	switch v := r.(type) {
	case *refmodel.AtomRef:
		return refmodel.NewAtom(v.CID(), hid, v.Obj(), v.InMemory())
	case *refmodel.ListRef:
		return refmodel.NewList(v.CID(), hid, v.Items(), v.InMemory())
	case *refmodel.DictRef:
		return refmodel.NewDict(v.CID(), hid, v.Entries(), v.InMemory())
	default:
		return r
	}
}
