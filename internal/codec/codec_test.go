package codec_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/loomstore/loom/internal/codec"
)

func roundTrip(t *testing.T, v any) any {
	t.Helper()
	data, err := codec.Serialize(v)
	require.NoError(t, err)
	got, err := codec.Deserialize(data)
	require.NoError(t, err)
	return got
}

func TestRoundTripScalars(t *testing.T) {
	require.Equal(t, int64(41), roundTrip(t, int64(41)))
	require.Equal(t, int64(41), roundTrip(t, int(41)))
	require.Equal(t, int64(41), roundTrip(t, int32(41)))
	require.Equal(t, 3.5, roundTrip(t, 3.5))
	require.Equal(t, true, roundTrip(t, true))
	require.Equal(t, "hello", roundTrip(t, "hello"))
	require.Equal(t, []byte("raw"), roundTrip(t, []byte("raw")))
}

// TestRoundTripNestedShapes exercises the composite shapes a dict/list ref's
// content actually carries: a map re-sorted by key regardless of
// construction order, nested inside a sequence.
func TestRoundTripNestedShapes(t *testing.T) {
	v := []any{
		map[string]any{"b": int64(2), "a": int64(1)},
		[]any{int64(1), int64(2), int64(3)},
	}
	got := roundTrip(t, v)
	if diff := cmp.Diff(v, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestSerializeRejectsUnsupportedType(t *testing.T) {
	_, err := codec.Serialize(struct{}{})
	require.Error(t, err)
}

func TestDeserializeRejectsWrongVersion(t *testing.T) {
	_, err := codec.Deserialize([]byte{99, 0})
	require.Error(t, err)
}

func TestDeserializeRejectsTrailingBytes(t *testing.T) {
	data, err := codec.Serialize(int64(1))
	require.NoError(t, err)
	_, err = codec.Deserialize(append(data, 0xFF))
	require.Error(t, err)
}

// TestMapKeyOrderIsCanonicalized confirms two maps built with different
// insertion orders serialize to identical bytes, the property the
// side-effect guard and every cid derivation depend on.
func TestMapKeyOrderIsCanonicalized(t *testing.T) {
	a, err := codec.Serialize(map[string]any{"z": int64(1), "a": int64(2)})
	require.NoError(t, err)
	b, err := codec.Serialize(map[string]any{"a": int64(2), "z": int64(1)})
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestAtomCIDIsDeterministic(t *testing.T) {
	data, err := codec.Serialize(int64(7))
	require.NoError(t, err)
	require.Equal(t, codec.AtomCID(data), codec.AtomCID(data))

	other, err := codec.Serialize(int64(8))
	require.NoError(t, err)
	require.NotEqual(t, codec.AtomCID(data), codec.AtomCID(other))
}

func TestListCIDDependsOnOrder(t *testing.T) {
	a := codec.ListCID([]string{"x", "y"})
	b := codec.ListCID([]string{"y", "x"})
	require.NotEqual(t, a, b)
}

func TestDictCIDIgnoresEntryOrder(t *testing.T) {
	a := codec.DictCID([]codec.DictEntry{{Key: "a", CID: "1"}, {Key: "b", CID: "2"}})
	b := codec.DictCID([]codec.DictEntry{{Key: "b", CID: "2"}, {Key: "a", CID: "1"}})
	require.Equal(t, a, b)
}

func TestFreshHIDIsUnique(t *testing.T) {
	require.NotEqual(t, codec.FreshHID(), codec.FreshHID())
}

func TestOpIDOmitsEmptySemanticVersion(t *testing.T) {
	require.Equal(t, "inc", codec.OpID("inc", ""))
	require.Equal(t, "inc@abc123", codec.OpID("inc", "abc123"))
}

func TestCallCIDAndHIDIgnoreSlotOrder(t *testing.T) {
	opID := codec.OpID("inc", "")
	a := codec.CallCID(opID, []codec.SlotValue{{Slot: "x", ID: "cid-x"}, {Slot: "y", ID: "cid-y"}}, "")
	b := codec.CallCID(opID, []codec.SlotValue{{Slot: "y", ID: "cid-y"}, {Slot: "x", ID: "cid-x"}}, "")
	require.Equal(t, a, b)

	ha := codec.CallHID(opID, []codec.SlotValue{{Slot: "x", ID: "hid-x"}, {Slot: "y", ID: "hid-y"}}, "")
	hb := codec.CallHID(opID, []codec.SlotValue{{Slot: "y", ID: "hid-y"}, {Slot: "x", ID: "hid-x"}}, "")
	require.Equal(t, ha, hb)
	require.NotEqual(t, a, ha, "cid and hid hashes must not collide across tags")
}

func TestOutputHIDDependsOnSlot(t *testing.T) {
	callHID := "some-call-hid"
	require.NotEqual(t, codec.OutputHID(callHID, "out1"), codec.OutputHID(callHID, "out2"))
}
