// Package refmodel implements loom's Ref variants — Atom, List, and Dict —
// and the recursive save/load/unwrap/attach operations over them (spec
// §3, §4.6).
//
// Refs are a fixed set of tagged variants dispatched structurally, per the
// "dynamic typing → tagged variants" design note: adding a new variant
// means extending Save, Load, and the identity derivations in lockstep.
package refmodel

// Ref is a handle to a value persisted in the store. The three concrete
// variants below are the whole of the type's extent.
type Ref interface {
	CID() string
	HID() string
	InMemory() bool

	// Shape returns a detached skeleton of this ref: same variant, cid and
	// hid preserved, but with no in-memory value — and, for composites,
	// with children themselves replaced by their own Shape(). Calling
	// Shape on an already-detached ref returns it unchanged.
	Shape() Ref
}

// AtomRef is a leaf value.
type AtomRef struct {
	cid      string
	hid      string
	inMemory bool
	obj      any
}

func NewAtom(cid, hid string, obj any, inMemory bool) *AtomRef {
	return &AtomRef{cid: cid, hid: hid, inMemory: inMemory, obj: obj}
}

func (r *AtomRef) CID() string    { return r.cid }
func (r *AtomRef) HID() string    { return r.hid }
func (r *AtomRef) InMemory() bool { return r.inMemory }
func (r *AtomRef) Obj() any       { return r.obj }

func (r *AtomRef) Shape() Ref {
	if !r.inMemory {
		return r
	}
	return NewAtom(r.cid, r.hid, nil, false)
}

// ListRef is an ordered sequence of child Refs.
type ListRef struct {
	cid      string
	hid      string
	inMemory bool
	items    []Ref
}

func NewList(cid, hid string, items []Ref, inMemory bool) *ListRef {
	return &ListRef{cid: cid, hid: hid, inMemory: inMemory, items: items}
}

func (r *ListRef) CID() string    { return r.cid }
func (r *ListRef) HID() string    { return r.hid }
func (r *ListRef) InMemory() bool { return r.inMemory }
func (r *ListRef) Items() []Ref   { return r.items }

func (r *ListRef) Shape() Ref {
	if !r.inMemory {
		return r
	}
	children := make([]Ref, len(r.items))
	for i, c := range r.items {
		children[i] = c.Shape()
	}
	return NewList(r.cid, r.hid, children, false)
}

// DictRef is a string-keyed mapping to child Refs.
type DictRef struct {
	cid      string
	hid      string
	inMemory bool
	entries  map[string]Ref
}

func NewDict(cid, hid string, entries map[string]Ref, inMemory bool) *DictRef {
	return &DictRef{cid: cid, hid: hid, inMemory: inMemory, entries: entries}
}

func (r *DictRef) CID() string         { return r.cid }
func (r *DictRef) HID() string         { return r.hid }
func (r *DictRef) InMemory() bool      { return r.inMemory }
func (r *DictRef) Entries() map[string]Ref { return r.entries }

func (r *DictRef) Shape() Ref {
	if !r.inMemory {
		return r
	}
	children := make(map[string]Ref, len(r.entries))
	for k, c := range r.entries {
		children[k] = c.Shape()
	}
	return NewDict(r.cid, r.hid, children, false)
}
