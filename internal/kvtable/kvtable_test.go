package kvtable_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/loomstore/loom/internal/dbadapter"
	"github.com/loomstore/loom/internal/kvtable"
)

func openTestAdapter(t *testing.T) *dbadapter.Adapter {
	t.Helper()
	path := filepath.Join(t.TempDir(), "loom.db")
	a, err := dbadapter.Open(path, dbadapter.File)
	require.NoError(t, err)
	return a
}

func TestTableSetGetExistsDrop(t *testing.T) {
	a := openTestAdapter(t)
	ctx := context.Background()
	tbl := kvtable.New("atoms")

	err := a.WithTx(ctx, func(ctx context.Context, q dbadapter.Queryer) error {
		ok, err := tbl.Exists(ctx, q, "k1")
		require.NoError(t, err)
		require.False(t, ok)

		_, err = tbl.Get(ctx, q, "k1")
		require.ErrorIs(t, err, kvtable.ErrKeyNotFound)

		require.NoError(t, tbl.Set(ctx, q, "k1", []byte("hello")))

		ok, err = tbl.Exists(ctx, q, "k1")
		require.NoError(t, err)
		require.True(t, ok)

		v, err := tbl.Get(ctx, q, "k1")
		require.NoError(t, err)
		require.Equal(t, []byte("hello"), v)

		require.NoError(t, tbl.Set(ctx, q, "k1", []byte("world")))
		v, err = tbl.Get(ctx, q, "k1")
		require.NoError(t, err)
		require.Equal(t, []byte("world"), v)

		require.NoError(t, tbl.Drop(ctx, q, "k1"))
		ok, err = tbl.Exists(ctx, q, "k1")
		require.NoError(t, err)
		require.False(t, ok)

		return nil
	})
	require.NoError(t, err)
}

func TestTableKeysAndLoadAll(t *testing.T) {
	a := openTestAdapter(t)
	ctx := context.Background()
	tbl := kvtable.New("shapes")

	err := a.WithTx(ctx, func(ctx context.Context, q dbadapter.Queryer) error {
		require.NoError(t, tbl.Set(ctx, q, "a", []byte("1")))
		require.NoError(t, tbl.Set(ctx, q, "b", []byte("2")))

		keys, err := tbl.Keys(ctx, q)
		require.NoError(t, err)
		require.ElementsMatch(t, []string{"a", "b"}, keys)

		all, err := tbl.LoadAll(ctx, q)
		require.NoError(t, err)
		require.Equal(t, map[string][]byte{"a": []byte("1"), "b": []byte("2")}, all)

		return nil
	})
	require.NoError(t, err)
}

func TestTableDropAbsentKeyIsNotError(t *testing.T) {
	a := openTestAdapter(t)
	ctx := context.Background()
	tbl := kvtable.New("ops")

	err := a.WithTx(ctx, func(ctx context.Context, q dbadapter.Queryer) error {
		return tbl.Drop(ctx, q, "nope")
	})
	require.NoError(t, err)
}
