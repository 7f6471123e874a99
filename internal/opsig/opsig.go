// Package opsig implements the signature-binding rules of spec §4.7:
// positional/keyword/variadic explosion, and the Ignore/NewArgDefault
// markers that keep storage_inputs stable across op signature changes.
package opsig

import (
	"fmt"

	"github.com/loomstore/loom/api"
)

// ParamKind classifies one declared parameter.
type ParamKind int

const (
	Positional ParamKind = iota
	Keyword
	RestPositional
	RestKeyword
)

// Param is one declared parameter of an op's signature.
type Param struct {
	Name string
	Kind ParamKind
	// Default, if non-nil, is the declared default value for a Keyword
	// parameter. Wrap it in api.NewArgDefault to mark it exempt from
	// storage_inputs when the caller supplies the same value explicitly.
	Default any
}

// Signature is an op's full declared parameter list, in call order.
type Signature struct {
	Params []Param
}

// BoundArguments is the result of binding a call site's positional and
// keyword arguments against a Signature.
type BoundArguments struct {
	// StorageInputs maps slot name to the value that should be
	// fingerprinted and persisted (spec §4.7).
	StorageInputs map[string]any
	// CallValues maps slot name to the raw value that should actually be
	// forwarded to the op's function — this differs from StorageInputs
	// wherever an Ignore marker unwraps to its raw value but is excluded
	// from storage.
	CallValues map[string]any
	// Order lists slot names in declaration/explosion order, so callers
	// that need a stable ordering (construct, destruct) don't have to
	// re-derive it from a map.
	Order []string
}

// unwrapForCompare returns the comparable value of v: an api.Ignore or
// api.NewArgDefault marker unwraps to its inner Value, anything else is
// returned unchanged. valueEquals then compares two unwrapped values.
func unwrapForCompare(v any) any {
	switch m := v.(type) {
	case api.Ignore:
		return m.Value
	case api.NewArgDefault:
		return m.Value
	default:
		return v
	}
}

func valueEquals(a, b any) bool {
	return fmt.Sprintf("%#v", unwrapForCompare(a)) == fmt.Sprintf("%#v", unwrapForCompare(b))
}

// Bind binds args (positional) and kwargs (keyword) against sig, applying
// the rest-explosion, Ignore, and NewArgDefault rules verbatim (spec
// §4.7).
func Bind(sig Signature, args []any, kwargs map[string]any) (BoundArguments, error) {
	bound := BoundArguments{
		StorageInputs: make(map[string]any),
		CallValues:    make(map[string]any),
	}

	argIdx := 0
	usedKwargs := make(map[string]bool, len(kwargs))

	for _, p := range sig.Params {
		switch p.Kind {
		case Positional:
			if argIdx >= len(args) {
				return BoundArguments{}, fmt.Errorf("opsig: missing positional argument %q", p.Name)
			}
			bindSlot(&bound, p.Name, args[argIdx])
			argIdx++

		case Keyword:
			if v, ok := kwargs[p.Name]; ok {
				usedKwargs[p.Name] = true
				bindKeywordSlot(&bound, p, v)
			} else if argIdx < len(args) {
				bindSlot(&bound, p.Name, args[argIdx])
				argIdx++
			} else if p.Default != nil {
				bindKeywordSlot(&bound, p, p.Default)
			} else {
				return BoundArguments{}, fmt.Errorf("opsig: missing keyword argument %q", p.Name)
			}

		case RestPositional:
			for ; argIdx < len(args); argIdx++ {
				slot := fmt.Sprintf("%s_%d", p.Name, argIdx-firstRestIndexOffset(sig, p))
				bindSlot(&bound, slot, args[argIdx])
			}

		case RestKeyword:
			for k, v := range kwargs {
				if usedKwargs[k] {
					continue
				}
				usedKwargs[k] = true
				bindSlot(&bound, k, v)
			}
		}
	}

	return bound, nil
}

// firstRestIndexOffset returns how many positional args were already
// consumed before the RestPositional param p, so exploded slot names
// start at name_0 rather than carrying the earlier params' offset.
func firstRestIndexOffset(sig Signature, target Param) int {
	consumed := 0
	for _, p := range sig.Params {
		if p.Name == target.Name && p.Kind == target.Kind {
			return consumed
		}
		if p.Kind == Positional {
			consumed++
		}
	}
	return consumed
}

func bindSlot(bound *BoundArguments, slot string, value any) {
	if ign, ok := value.(api.Ignore); ok {
		bound.CallValues[slot] = ign.Value
		bound.Order = append(bound.Order, slot)
		return
	}
	bound.CallValues[slot] = value
	bound.StorageInputs[slot] = value
	bound.Order = append(bound.Order, slot)
}

func bindKeywordSlot(bound *BoundArguments, p Param, value any) {
	if ign, ok := value.(api.Ignore); ok {
		bound.CallValues[p.Name] = ign.Value
		bound.Order = append(bound.Order, p.Name)
		return
	}

	forwarded := value
	if nad, ok := value.(api.NewArgDefault); ok {
		forwarded = nad.Value
	}
	bound.CallValues[p.Name] = forwarded

	if def, ok := p.Default.(api.NewArgDefault); ok && valueEquals(value, def) {
		bound.Order = append(bound.Order, p.Name)
		return
	}
	bound.StorageInputs[p.Name] = forwarded
	bound.Order = append(bound.Order, p.Name)
}
