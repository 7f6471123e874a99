// Package versioner provides a filesystem-backed reference implementation
// of the api.Versioner collaborator interface (spec §6, §9's "decorator-
// based versioner" note). It is not the dependency-tracing, AST-hashing
// versioner the spec places out of scope — it never parses source, it
// only hashes whole-file contents under a root a caller points it at. It
// exists so tests and standalone callers have a real Versioner to wire
// the engine against without pulling in the excluded component.
package versioner

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"path"
	"sort"
	"sync"

	billy "github.com/go-git/go-billy/v5"

	"github.com/loomstore/loom/api"
)

// FS is the reference Versioner: it reads a tree of source files through a
// billy.Filesystem (osfs for a real directory, memfs in tests) and derives
// a code state / content version from their bytes.
type FS struct {
	fs billy.Filesystem

	mu    sync.Mutex
	roots map[string]string // componentKey -> file path, relative to fs root
	// syncedRoots is the roots map as of the last successful SyncCodebase
	// call, recorded so a later call with a disagreeing map is caught
	// (spec §7's DuplicateSavedVersioner).
	syncedRoots map[string]string
}

// New constructs an FS versioner over fs, with roots mapping each
// component key (an op name, conventionally) to the source file that
// component's version should track.
func New(fs billy.Filesystem, roots map[string]string) *FS {
	return &FS{fs: fs, roots: copyRoots(roots)}
}

var _ api.Versioner = (*FS)(nil)

// SetRoots reconfigures which file each component key tracks. The next
// SyncCodebase call compares the new map against whatever was recorded on
// the last successful sync and fails with ErrDuplicateSavedVersioner if
// they disagree (spec §7).
func (v *FS) SetRoots(roots map[string]string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.roots = copyRoots(roots)
}

func copyRoots(roots map[string]string) map[string]string {
	out := make(map[string]string, len(roots))
	for k, v := range roots {
		out[k] = v
	}
	return out
}

// hashFile returns the hex sha256 of the file at path, or an error if it
// cannot be read.
func (v *FS) hashFile(filePath string) (string, error) {
	f, err := v.fs.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("versioner: open %s: %w", filePath, err)
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("versioner: hash %s: %w", filePath, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// GuessCodeState hashes every registered root file, in sorted key order,
// into one combined digest — an opaque token for "the current state of
// the code this versioner tracks" (spec §6).
func (v *FS) GuessCodeState() (string, error) {
	v.mu.Lock()
	roots := copyRoots(v.roots)
	v.mu.Unlock()

	keys := make([]string, 0, len(roots))
	for k := range roots {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	for _, k := range keys {
		sum, err := v.hashFile(roots[k])
		if err != nil {
			return "", err
		}
		io.WriteString(h, k)
		h.Write([]byte{0})
		io.WriteString(h, sum)
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// SyncCodebase reconciles the configured roots with whatever was recorded
// on the last successful sync. A first sync always succeeds; a later sync
// with a different root set fails with ErrDuplicateSavedVersioner, since
// the persisted dependency roots no longer agree with the configuration
// (spec §7).
func (v *FS) SyncCodebase(codeState string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.syncedRoots != nil && !rootsEqual(v.syncedRoots, v.roots) {
		return fmt.Errorf("versioner: sync at state %s: %w", codeState, api.ErrDuplicateSavedVersioner)
	}
	v.syncedRoots = copyRoots(v.roots)
	return nil
}

func rootsEqual(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

// Resolve returns the content/semantic version pair for componentKey, or
// ok=false if no root is registered for it (the call engine then treats
// the call as unversioned for lookup purposes, per spec §4.8 step 2).
// contentVersion is the full file hash; semanticVersion is its first 12
// hex characters — short enough to embed in an op id (spec §4.5's "Op id
// = op name concatenated with ... semantic version").
func (v *FS) Resolve(componentKey, preCallID, codeState string) (contentVersion, semanticVersion string, ok bool, err error) {
	v.mu.Lock()
	filePath, registered := v.roots[componentKey]
	v.mu.Unlock()
	if !registered {
		return "", "", false, nil
	}

	sum, err := v.hashFile(filePath)
	if err != nil {
		return "", "", false, err
	}
	return sum, sum[:12], true, nil
}

// Tracer is the opaque handle MakeTracer returns: it records every file
// path touched while tracing one op's dependencies for a new version.
type Tracer struct {
	fs      billy.Filesystem
	mu      sync.Mutex
	touched []string
}

// Touch records that path was consulted while tracing a dependency set.
func (t *Tracer) Touch(p string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.touched = append(t.touched, path.Clean(p))
}

// Touched returns every path recorded by Touch, in recording order.
func (t *Tracer) Touched() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.touched...)
}

// MakeTracer returns a fresh Tracer bound to this versioner's filesystem
// (spec §6).
func (v *FS) MakeTracer() (any, error) {
	return &Tracer{fs: v.fs}, nil
}
