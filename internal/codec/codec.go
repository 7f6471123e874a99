// Package codec implements loom's deterministic value serialization and the
// content/history identity rules derived from it (spec §4.5, §6).
//
// Serialization only supports a closed set of shapes — int64, float64, bool,
// string, []byte, ordered sequences, and string-keyed maps — so that two
// equal logical values always produce equal bytes and the side-effect guard
// in the call engine can trust a cid comparison (see DESIGN.md's Open
// Question on non-canonical serialization).
package codec

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
)

// Version is the codec's format tag. A change here is a breaking change to
// every cid ever computed — see spec §6.
const Version byte = 1

const (
	tagInt byte = iota + 1
	tagFloat
	tagBool
	tagString
	tagBytes
	tagSeq
	tagMap
)

// Serialize deterministically encodes v into the canonical byte form used
// for atom cids. Supported shapes: int64 (and the machine int types that
// convert to it losslessly), float64, bool, string, []byte, []any
// (ordered), and map[string]any (re-sorted by key on every encode, so
// insertion order of the source map never leaks into the bytes).
func Serialize(v any) ([]byte, error) {
	buf := []byte{Version}
	out, err := appendValue(buf, v)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func appendValue(buf []byte, v any) ([]byte, error) {
	switch val := v.(type) {
	case int:
		return appendInt(buf, int64(val)), nil
	case int32:
		return appendInt(buf, int64(val)), nil
	case int64:
		return appendInt(buf, val), nil
	case float64:
		return appendFloat(buf, val), nil
	case bool:
		return appendBool(buf, val), nil
	case string:
		return appendString(buf, val), nil
	case []byte:
		return appendBytes(buf, val), nil
	case []any:
		return appendSeq(buf, val)
	case map[string]any:
		return appendMap(buf, val)
	default:
		return nil, fmt.Errorf("codec: unsupported value type %T", v)
	}
}

func appendInt(buf []byte, v int64) []byte {
	buf = append(buf, tagInt)
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], uint64(v))
	return append(buf, tmp[:]...)
}

func appendFloat(buf []byte, v float64) []byte {
	buf = append(buf, tagFloat)
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], math.Float64bits(v))
	return append(buf, tmp[:]...)
}

func appendBool(buf []byte, v bool) []byte {
	buf = append(buf, tagBool)
	if v {
		return append(buf, 1)
	}
	return append(buf, 0)
}

func appendString(buf []byte, v string) []byte {
	buf = append(buf, tagString)
	buf = appendLen(buf, len(v))
	return append(buf, v...)
}

func appendBytes(buf []byte, v []byte) []byte {
	buf = append(buf, tagBytes)
	buf = appendLen(buf, len(v))
	return append(buf, v...)
}

func appendSeq(buf []byte, v []any) ([]byte, error) {
	buf = append(buf, tagSeq)
	buf = appendLen(buf, len(v))
	var err error
	for _, elt := range v {
		buf, err = appendValue(buf, elt)
		if err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func appendMap(buf []byte, v map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf = append(buf, tagMap)
	buf = appendLen(buf, len(keys))
	var err error
	for _, k := range keys {
		buf = appendString(buf, k)
		buf, err = appendValue(buf, v[k])
		if err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func appendLen(buf []byte, n int) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], uint64(n))
	return append(buf, tmp[:]...)
}
