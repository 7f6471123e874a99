package refmodel

import (
	"encoding/json"
	"fmt"
)

// shapeDTO is the on-disk JSON form of a detached Ref. Shapes are small
// metadata trees, not value payloads, so a human-readable JSON encoding
// (matching the teacher's use of JSON columns for structured metadata) is
// preferable to the value codec, which is reserved for atom payloads.
type shapeDTO struct {
	Kind    string              `json:"kind"`
	CID     string              `json:"cid"`
	HID     string              `json:"hid"`
	Items   []shapeDTO          `json:"items,omitempty"`
	Entries map[string]shapeDTO `json:"entries,omitempty"`
}

func toDTO(r Ref) shapeDTO {
	switch v := r.(type) {
	case *AtomRef:
		return shapeDTO{Kind: "atom", CID: v.cid, HID: v.hid}
	case *ListRef:
		items := make([]shapeDTO, len(v.items))
		for i, c := range v.items {
			items[i] = toDTO(c.Shape())
		}
		return shapeDTO{Kind: "list", CID: v.cid, HID: v.hid, Items: items}
	case *DictRef:
		entries := make(map[string]shapeDTO, len(v.entries))
		for k, c := range v.entries {
			entries[k] = toDTO(c.Shape())
		}
		return shapeDTO{Kind: "dict", CID: v.cid, HID: v.hid, Entries: entries}
	default:
		panic(fmt.Sprintf("refmodel: unsupported ref type %T", r))
	}
}

func fromDTO(d shapeDTO) (Ref, error) {
	switch d.Kind {
	case "atom":
		return NewAtom(d.CID, d.HID, nil, false), nil
	case "list":
		items := make([]Ref, len(d.Items))
		for i, c := range d.Items {
			child, err := fromDTO(c)
			if err != nil {
				return nil, err
			}
			items[i] = child
		}
		return NewList(d.CID, d.HID, items, false), nil
	case "dict":
		entries := make(map[string]Ref, len(d.Entries))
		for k, c := range d.Entries {
			child, err := fromDTO(c)
			if err != nil {
				return nil, err
			}
			entries[k] = child
		}
		return NewDict(d.CID, d.HID, entries, false), nil
	default:
		return nil, fmt.Errorf("refmodel: unrecognized shape kind %q", d.Kind)
	}
}

// EncodeShape serializes the detached skeleton of r for the shapes table.
func EncodeShape(r Ref) ([]byte, error) {
	return json.Marshal(toDTO(r.Shape()))
}

// DecodeShape deserializes a shapes-table row back into a (fully detached)
// Ref skeleton.
func DecodeShape(data []byte) (Ref, error) {
	var d shapeDTO
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("refmodel: decode shape: %w", err)
	}
	return fromDTO(d)
}
