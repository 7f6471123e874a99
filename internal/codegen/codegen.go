// Package codegen renders a registered op's declared signature as a
// human-readable Go stub, for loomctl's "ops" inspection subcommand. It
// does not generate code the engine runs — the stub is documentation,
// gofumpt-formatted the way the teacher's writeback package formats
// generated Go source (internal/writeback/format.go's FormatBuffer).
package codegen

import (
	"fmt"
	"strings"

	"mvdan.cc/gofumpt/format"

	"github.com/loomstore/loom/api"
)

// StubFunctionName is the Go function name a stub renders under,
// derived from the op's registered name (loom op names are already
// lower_snake_case; Go convention would export them, but the stub keeps
// the op's own name verbatim as a doc anchor callers can grep for).
func StubFunctionName(meta api.OpMeta) string {
	return meta.Name
}

// Stub renders meta as a commented Go function stub: one parameter per
// declared input (typed by its loom annotation, as a comment, since atom/
// list/dict don't map onto a single concrete Go type), an unnamed result
// carrying the slot name in a comment for a single declared output or one
// named result per output when there are several, and a header documenting side-effect/structural
// flags and the semantic version the op was last registered at.
func Stub(meta api.OpMeta) ([]byte, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "// %s is a loom op stub (semantic version %q).\n", meta.Name, orDash(meta.SemanticVersion))
	if meta.Structural {
		fmt.Fprintf(&b, "// Structural: true (emitted internally by the call engine).\n")
	}
	if meta.AllowSideEffects {
		fmt.Fprintf(&b, "// AllowSideEffects: true.\n")
	}
	fmt.Fprintf(&b, "func %s(", meta.Name)

	for i, in := range meta.Inputs {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s any /* %s */", in.Name, in.Type.String())
	}
	b.WriteString(") ")

	switch len(meta.Outputs) {
	case 0:
	case 1:
		fmt.Fprintf(&b, "any /* %s */ ", meta.Outputs[0])
	default:
		b.WriteString("(")
		for i, out := range meta.Outputs {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s any", out)
		}
		b.WriteString(") ")
	}

	b.WriteString("{\n\tpanic(\"unimplemented: generated stub, not a live op\")\n}\n")

	src := "package ops\n\n" + b.String()
	formatted, err := format.Source([]byte(src), format.Options{})
	if err != nil {
		return nil, fmt.Errorf("codegen: format stub for %s: %w", meta.Name, err)
	}
	return formatted, nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
