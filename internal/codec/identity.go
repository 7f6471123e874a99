package codec

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"

	"github.com/google/uuid"
)

// hashStrings hashes a tag together with an ordered list of strings. Callers
// pre-sort whatever ordering the spec requires (insertion order for lists,
// key order for dicts and slot maps) before calling this.
func hashStrings(tag string, parts ...string) string {
	h := sha256.New()
	h.Write([]byte(tag))
	h.Write([]byte{0})
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// AtomCID hashes an atom's serialized bytes (spec §4.5).
func AtomCID(serialized []byte) string {
	sum := sha256.Sum256(serialized)
	return hex.EncodeToString(sum[:])
}

// ListCID hashes ("list", child cids in order) (spec §4.5).
func ListCID(childCIDs []string) string {
	return hashStrings("list", childCIDs...)
}

// DictEntry is one (key, child cid) pair of a dict ref's content.
type DictEntry struct {
	Key string
	CID string
}

// DictCID hashes ("dict", sorted (key, child cid) pairs) (spec §4.5).
func DictCID(entries []DictEntry) string {
	sorted := append([]DictEntry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })
	parts := make([]string, 0, len(sorted)*2)
	for _, e := range sorted {
		parts = append(parts, e.Key, e.CID)
	}
	return hashStrings("dict", parts...)
}

// FreshHID mints a new history id for a ref introduced from outside any
// call (spec §4.5).
func FreshHID() string {
	return uuid.New().String()
}

// SlotValue is one (slot name, id) pair used to build the sorted
// slot-ordered hash inputs for call cid/hid derivation.
type SlotValue struct {
	Slot string
	ID   string
}

func sortedSlotParts(slots []SlotValue) []string {
	sorted := append([]SlotValue(nil), slots...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Slot < sorted[j].Slot })
	parts := make([]string, 0, len(sorted)*2)
	for _, s := range sorted {
		parts = append(parts, s.Slot, s.ID)
	}
	return parts
}

// OpID is the op name concatenated with its (possibly empty) external
// semantic version (spec §4.5).
func OpID(name, semanticVersion string) string {
	if semanticVersion == "" {
		return name
	}
	return name + "@" + semanticVersion
}

// PreCallID hashes (op id, sorted (slot, input hid)) — computed before the
// semantic version is known, so the versioner can be consulted (spec §4.8
// step 2).
func PreCallID(opID string, inputHIDs []SlotValue) string {
	return hashStrings("pre_call", append([]string{opID}, sortedSlotParts(inputHIDs)...)...)
}

// CallCID hashes (op id, sorted (slot, input cid), semantic_version)
// (spec §4.5).
func CallCID(opID string, inputCIDs []SlotValue, semanticVersion string) string {
	parts := append([]string{opID}, sortedSlotParts(inputCIDs)...)
	parts = append(parts, semanticVersion)
	return hashStrings("call_cid", parts...)
}

// CallHID hashes (op id, sorted (slot, input hid), semantic_version)
// (spec §4.5).
func CallHID(opID string, inputHIDs []SlotValue, semanticVersion string) string {
	parts := append([]string{opID}, sortedSlotParts(inputHIDs)...)
	parts = append(parts, semanticVersion)
	return hashStrings("call_hid", parts...)
}

// OutputHID hashes (call hid, output slot name) (spec §4.5).
func OutputHID(callHID, slot string) string {
	return hashStrings("output_hid", callHID, slot)
}
