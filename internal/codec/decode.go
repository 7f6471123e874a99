package codec

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Deserialize reverses Serialize. It returns the same Go shape Serialize
// accepted — int64, float64, bool, string, []byte, []any, map[string]any —
// never the original caller's exact type (e.g. an int becomes int64).
func Deserialize(data []byte) (any, error) {
	if len(data) == 0 || data[0] != Version {
		return nil, fmt.Errorf("codec: unrecognized codec version in payload")
	}
	v, rest, err := readValue(data[1:])
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("codec: %d trailing bytes after decoded value", len(rest))
	}
	return v, nil
}

func readValue(b []byte) (any, []byte, error) {
	if len(b) < 1 {
		return nil, nil, fmt.Errorf("codec: truncated payload")
	}
	tag, b := b[0], b[1:]
	switch tag {
	case tagInt:
		n, b, err := readUint64(b)
		if err != nil {
			return nil, nil, err
		}
		return int64(n), b, nil
	case tagFloat:
		n, b, err := readUint64(b)
		if err != nil {
			return nil, nil, err
		}
		return math.Float64frombits(n), b, nil
	case tagBool:
		if len(b) < 1 {
			return nil, nil, fmt.Errorf("codec: truncated bool")
		}
		return b[0] != 0, b[1:], nil
	case tagString:
		n, b, err := readLen(b)
		if err != nil {
			return nil, nil, err
		}
		if len(b) < n {
			return nil, nil, fmt.Errorf("codec: truncated string")
		}
		return string(b[:n]), b[n:], nil
	case tagBytes:
		n, b, err := readLen(b)
		if err != nil {
			return nil, nil, err
		}
		if len(b) < n {
			return nil, nil, fmt.Errorf("codec: truncated bytes")
		}
		out := make([]byte, n)
		copy(out, b[:n])
		return out, b[n:], nil
	case tagSeq:
		n, b, err := readLen(b)
		if err != nil {
			return nil, nil, err
		}
		seq := make([]any, n)
		for i := 0; i < n; i++ {
			var elt any
			elt, b, err = readValue(b)
			if err != nil {
				return nil, nil, err
			}
			seq[i] = elt
		}
		return seq, b, nil
	case tagMap:
		n, b, err := readLen(b)
		if err != nil {
			return nil, nil, err
		}
		m := make(map[string]any, n)
		for i := 0; i < n; i++ {
			var key any
			key, b, err = readValue(b)
			if err != nil {
				return nil, nil, err
			}
			var val any
			val, b, err = readValue(b)
			if err != nil {
				return nil, nil, err
			}
			m[key.(string)] = val
		}
		return m, b, nil
	default:
		return nil, nil, fmt.Errorf("codec: unknown tag %d", tag)
	}
}

func readLen(b []byte) (int, []byte, error) {
	n, b, err := readUint64(b)
	if err != nil {
		return 0, nil, err
	}
	return int(n), b, nil
}

func readUint64(b []byte) (uint64, []byte, error) {
	if len(b) < 8 {
		return 0, nil, fmt.Errorf("codec: truncated length/number field")
	}
	return binary.BigEndian.Uint64(b[:8]), b[8:], nil
}
