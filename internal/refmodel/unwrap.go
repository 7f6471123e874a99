package refmodel

import "fmt"

// Unwrap walks through a ref (and any container refs it holds) to produce
// the plain value tree (spec §4.6). r must be in memory, recursively.
func Unwrap(r Ref) (any, error) {
	switch v := r.(type) {
	case *AtomRef:
		if !v.inMemory {
			return nil, fmt.Errorf("refmodel: unwrap: atom %s is detached", v.hid)
		}
		return v.obj, nil

	case *ListRef:
		if !v.inMemory {
			return nil, fmt.Errorf("refmodel: unwrap: list %s is detached", v.hid)
		}
		out := make([]any, len(v.items))
		for i, child := range v.items {
			val, err := Unwrap(child)
			if err != nil {
				return nil, err
			}
			out[i] = val
		}
		return out, nil

	case *DictRef:
		if !v.inMemory {
			return nil, fmt.Errorf("refmodel: unwrap: dict %s is detached", v.hid)
		}
		out := make(map[string]any, len(v.entries))
		for key, child := range v.entries {
			val, err := Unwrap(child)
			if err != nil {
				return nil, err
			}
			out[key] = val
		}
		return out, nil

	default:
		return nil, fmt.Errorf("refmodel: unwrap: unsupported ref type %T", r)
	}
}
