package engine

import (
	"fmt"
	"sort"

	"github.com/loomstore/loom/internal/codec"
	"github.com/loomstore/loom/internal/refmodel"
)

// contentID computes the cid a value would have once constructed, without
// allocating refs or minting hids — used both by destruct's placeholder
// container refs (to fill the container's cid) and by the side-effect
// guard (to re-fingerprint an input after the op's function has run).
func contentID(value any) (string, error) {
	if r, ok := value.(refmodel.Ref); ok {
		return r.CID(), nil
	}

	switch v := value.(type) {
	case []any:
		childCIDs := make([]string, len(v))
		for i, item := range v {
			cid, err := contentID(item)
			if err != nil {
				return "", err
			}
			childCIDs[i] = cid
		}
		return codec.ListCID(childCIDs), nil

	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		entries := make([]codec.DictEntry, len(keys))
		for i, k := range keys {
			cid, err := contentID(v[k])
			if err != nil {
				return "", err
			}
			entries[i] = codec.DictEntry{Key: k, CID: cid}
		}
		return codec.DictCID(entries), nil

	default:
		data, err := codec.Serialize(v)
		if err != nil {
			return "", fmt.Errorf("engine: fingerprint: %w", err)
		}
		return codec.AtomCID(data), nil
	}
}
