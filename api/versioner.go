package api

// Versioner is the optional external dependency-tracing collaborator (spec
// §6). loom consumes it through this narrow interface only; the
// AST/source-hashing implementation itself is out of scope (see
// DESIGN.md — internal/versioner ships only a filesystem-backed reference
// implementation for tests).
type Versioner interface {
	// Resolve returns the content/semantic version pair for a component at
	// a given pre-call id and code state, or ok=false if the versioner
	// declines. On a decline the call engine continues with both versions
	// empty and looks the call up as unversioned; a decline does not by
	// itself make the call a miss.
	Resolve(componentKey, preCallID, codeState string) (contentVersion, semanticVersion string, ok bool, err error)

	// SyncCodebase reconciles the versioner's persisted dependency roots
	// with the current code state. Returns ErrDuplicateSavedVersioner if
	// they disagree in a way that cannot be reconciled.
	SyncCodebase(codeState string) error

	// GuessCodeState returns an opaque token identifying the current state
	// of the code the versioner tracks.
	GuessCodeState() (string, error)

	// MakeTracer returns an opaque tracer handle a caller may use to record
	// a dependency trace for a new op version. Its shape is entirely up to
	// the Versioner implementation.
	MakeTracer() (any, error)
}

// NullVersioner is a Versioner that always declines to resolve — the
// default when no external versioner is configured. Every call is treated
// as unversioned (semantic_version == "").
type NullVersioner struct{}

var _ Versioner = NullVersioner{}

func (NullVersioner) Resolve(_, _, _ string) (string, string, bool, error) {
	return "", "", false, nil
}

func (NullVersioner) SyncCodebase(string) error       { return nil }
func (NullVersioner) GuessCodeState() (string, error) { return "", nil }
func (NullVersioner) MakeTracer() (any, error)        { return nil, nil }
