package opsig_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/loomstore/loom/api"
	"github.com/loomstore/loom/internal/opsig"
)

func TestBindPositional(t *testing.T) {
	sig := opsig.Signature{Params: []opsig.Param{
		{Name: "x", Kind: opsig.Positional},
		{Name: "y", Kind: opsig.Positional},
	}}
	bound, err := opsig.Bind(sig, []any{int64(1), int64(2)}, nil)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"x": int64(1), "y": int64(2)}, bound.StorageInputs)
	require.Equal(t, []string{"x", "y"}, bound.Order)
}

func TestBindRestPositionalExplodesSlots(t *testing.T) {
	sig := opsig.Signature{Params: []opsig.Param{
		{Name: "x", Kind: opsig.Positional},
		{Name: "rest", Kind: opsig.RestPositional},
	}}
	bound, err := opsig.Bind(sig, []any{int64(1), int64(2), int64(3)}, nil)
	require.NoError(t, err)
	require.Equal(t, int64(1), bound.StorageInputs["x"])
	require.Equal(t, int64(2), bound.StorageInputs["rest_0"])
	require.Equal(t, int64(3), bound.StorageInputs["rest_1"])
}

func TestBindRestKeywordPassesThroughOriginalKeys(t *testing.T) {
	sig := opsig.Signature{Params: []opsig.Param{
		{Name: "x", Kind: opsig.Keyword},
		{Name: "extra", Kind: opsig.RestKeyword},
	}}
	bound, err := opsig.Bind(sig, nil, map[string]any{"x": int64(1), "tag": "v1", "note": "hi"})
	require.NoError(t, err)
	require.Equal(t, int64(1), bound.StorageInputs["x"])
	require.Equal(t, "v1", bound.StorageInputs["tag"])
	require.Equal(t, "hi", bound.StorageInputs["note"])
}

func TestBindIgnoreExcludedFromStorageButForwarded(t *testing.T) {
	sig := opsig.Signature{Params: []opsig.Param{
		{Name: "secret", Kind: opsig.Positional},
	}}
	bound, err := opsig.Bind(sig, []any{api.Ignore{Value: "token"}}, nil)
	require.NoError(t, err)
	_, stored := bound.StorageInputs["secret"]
	require.False(t, stored)
	require.Equal(t, "token", bound.CallValues["secret"])
}

func TestBindNewArgDefaultMatchingSuppliedValueExcludedFromStorage(t *testing.T) {
	sig := opsig.Signature{Params: []opsig.Param{
		{Name: "x", Kind: opsig.Keyword},
		{Name: "y", Kind: opsig.Keyword, Default: api.NewArgDefault{Value: int64(0)}},
	}}

	withoutY, err := opsig.Bind(sig, nil, map[string]any{"x": int64(1)})
	require.NoError(t, err)
	_, stored := withoutY.StorageInputs["y"]
	require.False(t, stored)
	require.Equal(t, int64(0), withoutY.CallValues["y"])

	withY, err := opsig.Bind(sig, nil, map[string]any{"x": int64(1), "y": int64(0)})
	require.NoError(t, err)
	_, stored = withY.StorageInputs["y"]
	require.False(t, stored)
}

func TestBindNewArgDefaultWithDifferentSuppliedValueIsStored(t *testing.T) {
	sig := opsig.Signature{Params: []opsig.Param{
		{Name: "y", Kind: opsig.Keyword, Default: api.NewArgDefault{Value: int64(0)}},
	}}
	bound, err := opsig.Bind(sig, nil, map[string]any{"y": int64(5)})
	require.NoError(t, err)
	require.Equal(t, int64(5), bound.StorageInputs["y"])
}

func TestBindMissingRequiredArgumentErrors(t *testing.T) {
	sig := opsig.Signature{Params: []opsig.Param{{Name: "x", Kind: opsig.Positional}}}
	_, err := opsig.Bind(sig, nil, nil)
	require.Error(t, err)
}
