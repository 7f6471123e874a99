// Package engine implements the call-lookup/execute pipeline (spec §4.8),
// the concrete refmodel.Store wired to the write-through caches, the
// Storage type with its scoped "current context", and the user-facing
// save_call/drop_calls/commit operations (spec §4.10).
package engine

import (
	"github.com/loomstore/loom/internal/refmodel"
)

// Call is one persisted (or about-to-be-persisted) execution record (spec
// §3).
type Call struct {
	Op              string
	CID             string
	HID             string
	SemanticVersion string
	ContentVersion  string
	Inputs          map[string]refmodel.Ref
	Outputs         map[string]refmodel.Ref
}

func hidsOf(refs map[string]refmodel.Ref) map[string]string {
	out := make(map[string]string, len(refs))
	for slot, r := range refs {
		out[slot] = r.HID()
	}
	return out
}

func cidsOf(refs map[string]refmodel.Ref) map[string]string {
	out := make(map[string]string, len(refs))
	for slot, r := range refs {
		out[slot] = r.CID()
	}
	return out
}
