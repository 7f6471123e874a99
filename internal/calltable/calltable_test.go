package calltable_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

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

func TestSaveGetExistsDrop(t *testing.T) {
	a := openTestAdapter(t)
	ctx := context.Background()
	tbl := calltable.New()

	rows := []calltable.Row{
		{CallHistoryID: "ch1", Name: "x", Direction: calltable.Input, CallContentID: "cc1", RefContentID: "rc1", RefHistoryID: "rh1", Op: "add"},
		{CallHistoryID: "ch1", Name: "out", Direction: calltable.Output, CallContentID: "cc1", RefContentID: "rc2", RefHistoryID: "rh2", Op: "add"},
	}

	err := a.WithTx(ctx, func(ctx context.Context, q dbadapter.Queryer) error {
		ok, err := tbl.Exists(ctx, q, "ch1")
		require.NoError(t, err)
		require.False(t, ok)

		require.NoError(t, tbl.Save(ctx, q, rows))

		ok, err = tbl.Exists(ctx, q, "ch1")
		require.NoError(t, err)
		require.True(t, ok)

		got, err := tbl.Get(ctx, q, "ch1")
		require.NoError(t, err)
		require.Len(t, got, 2)

		ok, err = tbl.ExistsRefHID(ctx, q, "rh2")
		require.NoError(t, err)
		require.True(t, ok)

		require.NoError(t, tbl.Drop(ctx, q, "ch1"))
		ok, err = tbl.Exists(ctx, q, "ch1")
		require.NoError(t, err)
		require.False(t, ok)

		return nil
	})
	require.NoError(t, err)
}

func TestMGetDataReturnsEntryForEveryRequestedID(t *testing.T) {
	a := openTestAdapter(t)
	ctx := context.Background()
	tbl := calltable.New()

	err := a.WithTx(ctx, func(ctx context.Context, q dbadapter.Queryer) error {
		rows := []calltable.Row{
			{CallHistoryID: "a", Name: "x", Direction: calltable.Input, Op: "f"},
			{CallHistoryID: "b", Name: "x", Direction: calltable.Input, Op: "f"},
			{CallHistoryID: "c", Name: "x", Direction: calltable.Input, Op: "f"},
		}
		require.NoError(t, tbl.Save(ctx, q, rows))

		byID, err := tbl.MGetData(ctx, q, []string{"c", "missing", "a", "b"})
		require.NoError(t, err)
		require.Len(t, byID, 4)
		require.Len(t, byID["c"], 1)
		require.Len(t, byID["a"], 1)
		require.Len(t, byID["b"], 1)
		require.Len(t, byID["missing"], 0)

		return nil
	})
	require.NoError(t, err)
}
