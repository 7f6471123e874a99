package cache_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/loomstore/loom/internal/cache"
	"github.com/loomstore/loom/internal/calltable"
	"github.com/loomstore/loom/internal/dbadapter"
)

func openTestAdapter(t *testing.T) *dbadapter.Adapter {
	t.Helper()
	path := filepath.Join(t.TempDir(), "loom.db")
	a, err := dbadapter.Open(path, dbadapter.File)
	require.NoError(t, err)
	return a
}

func TestKVCacheWriteThrough(t *testing.T) {
	a := openTestAdapter(t)
	ctx := context.Background()
	kc, err := cache.NewKVCache("atoms")
	require.NoError(t, err)

	err = a.WithTx(ctx, func(ctx context.Context, q dbadapter.Queryer) error {
		ok, err := kc.ExistsTx(ctx, q, "k")
		require.NoError(t, err)
		require.False(t, ok)

		kc.Set("k", []byte("v"))

		v, ok, err := kc.GetTx(ctx, q, "k")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, []byte("v"), v)

		return kc.CommitTx(ctx, q)
	})
	require.NoError(t, err)

	kc2, err := cache.NewKVCache("atoms")
	require.NoError(t, err)
	err = a.WithTx(ctx, func(ctx context.Context, q dbadapter.Queryer) error {
		v, ok, err := kc2.GetTx(ctx, q, "k")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, []byte("v"), v)
		return nil
	})
	require.NoError(t, err)
}

func TestCallCacheExistsContentAndGetDataContent(t *testing.T) {
	a := openTestAdapter(t)
	ctx := context.Background()
	cc, err := cache.NewCallCache()
	require.NoError(t, err)

	err = a.WithTx(ctx, func(ctx context.Context, q dbadapter.Queryer) error {
		tbl := calltable.New()
		require.NoError(t, tbl.Save(ctx, q, []calltable.Row{
			{CallHistoryID: "h1", Name: "x", Direction: calltable.Input, CallContentID: "cid1", Op: "add"},
		}))

		ok, err := cc.ExistsContent(ctx, q, "cid1")
		require.NoError(t, err)
		require.True(t, ok)

		rec, ok, err := cc.GetDataContent(ctx, q, "cid1")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "h1", rec.HistoryID)
		require.Equal(t, "add", rec.Op)

		ok, err = cc.ExistsContent(ctx, q, "missing")
		require.NoError(t, err)
		require.False(t, ok)

		return nil
	})
	require.NoError(t, err)
}
