package codegen_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/loomstore/loom/api"
	"github.com/loomstore/loom/internal/codegen"
)

func TestStubRendersInputsAndOutputs(t *testing.T) {
	meta := api.OpMeta{
		Name:            "inc",
		SemanticVersion: "abc123",
		Inputs: []api.InputSpec{
			{Name: "x", Type: api.Atom()},
		},
		Outputs: []string{"result"},
	}

	src, err := codegen.Stub(meta)
	require.NoError(t, err)
	require.Contains(t, string(src), "func inc(")
	require.Contains(t, string(src), "x any")
	require.Contains(t, string(src), "abc123")
}

func TestStubRendersMultipleOutputsAsTuple(t *testing.T) {
	meta := api.OpMeta{
		Name: "split",
		Inputs: []api.InputSpec{
			{Name: "items", Type: api.List(api.Atom())},
		},
		Outputs: []string{"head", "tail"},
	}

	src, err := codegen.Stub(meta)
	require.NoError(t, err)
	require.Contains(t, string(src), "head any")
	require.Contains(t, string(src), "tail any")
	require.Contains(t, string(src), "list[atom]")
}

func TestStubRendersStructuralAndSideEffectHeaders(t *testing.T) {
	meta := api.OpMeta{
		Name:             "make_list",
		Structural:       true,
		AllowSideEffects: true,
		Outputs:          []string{"result"},
	}

	src, err := codegen.Stub(meta)
	require.NoError(t, err)
	require.Contains(t, string(src), "Structural: true")
	require.Contains(t, string(src), "AllowSideEffects: true")
}

func TestStubFunctionNameMatchesOpName(t *testing.T) {
	require.Equal(t, "inc", codegen.StubFunctionName(api.OpMeta{Name: "inc"}))
}
