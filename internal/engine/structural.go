package engine

import (
	"fmt"

	"github.com/loomstore/loom/api"
)

// structuralInputSpecs gives every structural op's Inputs() declaration an
// atom-typed slot per name, since the only use op.Detached() metadata
// gets put to is persistence bookkeeping — the real typing lives in the
// caller-supplied storageTypes map passed to callInternal.
func structuralInputSpecs(names ...string) []api.InputSpec {
	specs := make([]api.InputSpec, len(names))
	for i, n := range names {
		specs[i] = api.InputSpec{Name: n, Type: api.Atom()}
	}
	return specs
}

// makeListOp returns the structural "make_list" op: its function is the
// identity construction of a list from its already-known children, in
// slot order.
func makeListOp(order []string) api.Op {
	return &api.Def{
		OpName:        "make_list",
		IsStructural:  true,
		SideEffectsOK: true,
		InputSpecs:    structuralInputSpecs(order...),
		OutputSlots:   []string{"out"},
		Fn: func(args []any) ([]any, error) {
			return []any{append([]any(nil), args...)}, nil
		},
	}
}

// makeDictOp returns the structural "make_dict" op. keys gives the
// positional-to-key mapping for the args callInternal passes in slot
// order, since Fn only sees positional args.
func makeDictOp(keys []string) api.Op {
	return &api.Def{
		OpName:        "make_dict",
		IsStructural:  true,
		SideEffectsOK: true,
		InputSpecs:    structuralInputSpecs(keys...),
		OutputSlots:   []string{"out"},
		Fn: func(args []any) ([]any, error) {
			if len(args) != len(keys) {
				return nil, fmt.Errorf("engine: make_dict: arity mismatch")
			}
			m := make(map[string]any, len(keys))
			for i, k := range keys {
				m[k] = args[i]
			}
			return []any{m}, nil
		},
	}
}

// getListItemOp returns the structural "get_list_item" op used by destruct
// to record provenance for one list element. item is already known (the
// caller has the raw list in hand), so Fn ignores its args and returns it
// directly — the container/index inputs exist purely so the call is
// fingerprinted and recorded like any other (spec §4.8 step 4).
func getListItemOp(item any) api.Op {
	return &api.Def{
		OpName:        "get_list_item",
		IsStructural:  true,
		SideEffectsOK: true,
		InputSpecs:    structuralInputSpecs("container", "index"),
		OutputSlots:   []string{"item"},
		Fn: func(args []any) ([]any, error) {
			return []any{item}, nil
		},
	}
}

// getDictValueOp is get_list_item's dict-keyed counterpart.
func getDictValueOp(value any) api.Op {
	return &api.Def{
		OpName:        "get_dict_value",
		IsStructural:  true,
		SideEffectsOK: true,
		InputSpecs:    structuralInputSpecs("container", "key"),
		OutputSlots:   []string{"value"},
		Fn: func(args []any) ([]any, error) {
			return []any{value}, nil
		},
	}
}
