package api

import "github.com/loomstore/loom/internal/codec"

// Invoker is the normalized shape of an op's underlying host function: it
// receives already-bound positional arguments (variadic slots pre-exploded
// by the signature binder) and returns the raw, not-yet-wrapped outputs.
type Invoker func(args []any) ([]any, error)

// InputSpec is one declared, ordered input slot of an Op's signature.
type InputSpec struct {
	Name string
	Type Type
}

// OpMeta is the detached (metadata-only) form of an Op, the shape persisted
// in the ops table (spec §3).
type OpMeta struct {
	Name             string
	Structural       bool
	AllowSideEffects bool
	Inputs           []InputSpec
	Outputs          []string
	SemanticVersion  string
}

// Op is the collaborator interface the core consumes (spec §6). Binding a
// host-language function to an Op — the decorator — is out of scope; the
// engine only ever calls the methods below.
type Op interface {
	Name() string
	Invoke(args []any) ([]any, error)
	Structural() bool
	AllowSideEffects() bool
	Inputs() []InputSpec
	OutputNames() []string
	SemanticVersion() string
	Detached() OpMeta

	// id-derivation helpers (spec §6)
	GetPreCallID(inputHIDs map[string]string) string
	GetCallContentID(inputCIDs map[string]string) string
	GetCallHistoryID(inputHIDs map[string]string) string
	GetOutputHistoryIDs(callHID string) map[string]string
	GetOrderedOutputs(raw []any) (map[string]any, error)
}

// Def is the concrete, in-memory Op implementation: a plain struct an
// embedding application constructs to register an operation with the
// engine. It is not the decorator (which would derive this from a host
// function's reflected signature) — callers build a Def directly.
type Def struct {
	OpName           string
	Fn               Invoker
	IsStructural     bool
	SideEffectsOK    bool
	InputSpecs       []InputSpec
	OutputSlots      []string
	SemVer           string
}

var _ Op = (*Def)(nil)

func (d *Def) Name() string                     { return d.OpName }
func (d *Def) Invoke(args []any) ([]any, error) { return d.Fn(args) }
func (d *Def) Structural() bool                 { return d.IsStructural }
func (d *Def) AllowSideEffects() bool           { return d.SideEffectsOK }
func (d *Def) Inputs() []InputSpec              { return d.InputSpecs }
func (d *Def) OutputNames() []string            { return d.OutputSlots }
func (d *Def) SemanticVersion() string          { return d.SemVer }

func (d *Def) Detached() OpMeta {
	return OpMeta{
		Name:             d.OpName,
		Structural:       d.IsStructural,
		AllowSideEffects: d.SideEffectsOK,
		Inputs:           append([]InputSpec(nil), d.InputSpecs...),
		Outputs:          append([]string(nil), d.OutputSlots...),
		SemanticVersion:  d.SemVer,
	}
}

func (d *Def) opID() string { return codec.OpID(d.OpName, d.SemVer) }

func (d *Def) GetPreCallID(inputHIDs map[string]string) string {
	return codec.PreCallID(d.opID(), toSlotValues(inputHIDs))
}

func (d *Def) GetCallContentID(inputCIDs map[string]string) string {
	return codec.CallCID(d.opID(), toSlotValues(inputCIDs), d.SemVer)
}

func (d *Def) GetCallHistoryID(inputHIDs map[string]string) string {
	return codec.CallHID(d.opID(), toSlotValues(inputHIDs), d.SemVer)
}

func (d *Def) GetOutputHistoryIDs(callHID string) map[string]string {
	out := make(map[string]string, len(d.OutputSlots))
	for _, slot := range d.OutputSlots {
		out[slot] = codec.OutputHID(callHID, slot)
	}
	return out
}

// GetOrderedOutputs turns a raw host-function return (one value per
// declared output slot, in declaration order) into a slot map, per the
// op's declared output arity and names (spec §4.8 step 4).
func (d *Def) GetOrderedOutputs(raw []any) (map[string]any, error) {
	if len(raw) != len(d.OutputSlots) {
		return nil, &arityError{op: d.OpName, want: len(d.OutputSlots), got: len(raw)}
	}
	out := make(map[string]any, len(raw))
	for i, slot := range d.OutputSlots {
		out[slot] = raw[i]
	}
	return out, nil
}

type arityError struct {
	op        string
	want, got int
}

func (e *arityError) Error() string {
	return "loom: op " + e.op + " returned wrong output arity"
}

func toSlotValues(m map[string]string) []codec.SlotValue {
	out := make([]codec.SlotValue, 0, len(m))
	for k, v := range m {
		out = append(out, codec.SlotValue{Slot: k, ID: v})
	}
	return out
}
