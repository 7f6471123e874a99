package versioner_test

import (
	"errors"
	"testing"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/require"

	"github.com/loomstore/loom/api"
	"github.com/loomstore/loom/internal/versioner"
)

func writeFile(t *testing.T, fs billy.Filesystem, path, contents string) {
	t.Helper()
	f, err := fs.Create(path)
	require.NoError(t, err)
	_, err = f.Write([]byte(contents))
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func TestResolveDeclinesUnregisteredComponent(t *testing.T) {
	fs := memfs.New()
	writeFile(t, fs, "inc.go", "func inc(x int) int { return x + 1 }")

	v := versioner.New(fs, map[string]string{"inc": "inc.go"})

	_, _, ok, err := v.Resolve("nope", "precall", "state")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestResolveChangesWithFileContent(t *testing.T) {
	fs := memfs.New()
	writeFile(t, fs, "inc.go", "func inc(x int) int { return x + 1 }")

	v := versioner.New(fs, map[string]string{"inc": "inc.go"})

	content1, semantic1, ok, err := v.Resolve("inc", "precall", "state")
	require.NoError(t, err)
	require.True(t, ok)
	require.NotEmpty(t, content1)
	require.Len(t, semantic1, 12)

	content2, _, ok, err := v.Resolve("inc", "precall", "state")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, content1, content2)

	writeFile(t, fs, "inc.go", "func inc(x int) int { return x + 2 }")

	content3, _, ok, err := v.Resolve("inc", "precall", "state")
	require.NoError(t, err)
	require.True(t, ok)
	require.NotEqual(t, content1, content3)
}

func TestGuessCodeStateCombinesAllRoots(t *testing.T) {
	fs := memfs.New()
	writeFile(t, fs, "a.go", "package p\n// a")
	writeFile(t, fs, "b.go", "package p\n// b")

	v := versioner.New(fs, map[string]string{"a": "a.go", "b": "b.go"})
	state1, err := v.GuessCodeState()
	require.NoError(t, err)
	require.NotEmpty(t, state1)

	writeFile(t, fs, "b.go", "package p\n// changed")

	state2, err := v.GuessCodeState()
	require.NoError(t, err)
	require.NotEqual(t, state1, state2)
}

func TestSyncCodebaseAcceptsRepeatedSyncOfSameRoots(t *testing.T) {
	fs := memfs.New()
	writeFile(t, fs, "a.go", "package p")

	v := versioner.New(fs, map[string]string{"a": "a.go"})
	require.NoError(t, v.SyncCodebase("state1"))
	require.NoError(t, v.SyncCodebase("state2"), "same roots, different code state: still fine")
}

func TestSyncCodebaseRejectsDisagreeingRoots(t *testing.T) {
	fs := memfs.New()
	writeFile(t, fs, "a.go", "package p")
	v := versioner.New(fs, map[string]string{"a": "a.go"})
	require.NoError(t, v.SyncCodebase("state1"))

	v.SetRoots(map[string]string{"a": "a.go", "b": "b.go"})
	err := v.SyncCodebase("state2")
	require.Error(t, err)
	require.True(t, errors.Is(err, api.ErrDuplicateSavedVersioner))
}

func TestMakeTracerRecordsTouches(t *testing.T) {
	fs := memfs.New()
	v := versioner.New(fs, nil)
	h, err := v.MakeTracer()
	require.NoError(t, err)
	tr := h.(*versioner.Tracer)
	tr.Touch("a.go")
	tr.Touch("./b.go")
	require.Equal(t, []string{"a.go", "b.go"}, tr.Touched())
}
