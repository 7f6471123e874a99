package provenance_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/loomstore/loom/internal/calltable"
	"github.com/loomstore/loom/internal/dbadapter"
	"github.com/loomstore/loom/internal/kvtable"
	"github.com/loomstore/loom/internal/provenance"
	"github.com/loomstore/loom/internal/refmodel"
)

func openTestAdapter(t *testing.T) *dbadapter.Adapter {
	t.Helper()
	path := filepath.Join(t.TempDir(), "loom.db")
	a, err := dbadapter.Open(path, dbadapter.File)
	require.NoError(t, err)
	return a
}

func putAtomShape(ctx context.Context, q dbadapter.Queryer, shapes, atoms *kvtable.Table, cid, hid string, obj any) error {
	ref := refmodel.NewAtom(cid, hid, obj, true)
	data, err := refmodel.EncodeShape(ref)
	if err != nil {
		return err
	}
	if err := shapes.Set(ctx, q, hid, data); err != nil {
		return err
	}
	return atoms.Set(ctx, q, cid, []byte("blob"))
}

// TestCleanupRefsDropsOrphansAndIsIdempotent exercises scenario 6: a shape
// never referenced by any call row is dropped by CleanupRefs, its atom cid
// is dropped along with it (nothing else references that cid), and running
// cleanup again reports zero for both counts.
func TestCleanupRefsDropsOrphansAndIsIdempotent(t *testing.T) {
	a := openTestAdapter(t)
	ctx := context.Background()

	calls := calltable.New()
	shapes := kvtable.New("shapes")
	atoms := kvtable.New("atoms")
	graph := provenance.New(calls, shapes, atoms)

	err := a.WithTx(ctx, func(ctx context.Context, q dbadapter.Queryer) error {
		// "live" is referenced by a call row; "dead" is not.
		if err := putAtomShape(ctx, q, shapes, atoms, "cid-live", "hid-live", "kept"); err != nil {
			return err
		}
		if err := putAtomShape(ctx, q, shapes, atoms, "cid-dead", "hid-dead", "orphan"); err != nil {
			return err
		}
		return calls.Save(ctx, q, []calltable.Row{
			{CallHistoryID: "call-1", Name: "out", Direction: calltable.Output, CallContentID: "call-cid-1", RefContentID: "cid-live", RefHistoryID: "hid-live", Op: "f"},
		})
	})
	require.NoError(t, err)

	err = a.WithTx(ctx, func(ctx context.Context, q dbadapter.Queryer) error {
		orphans, oerr := graph.GetOrphans(ctx, q, false)
		require.NoError(t, oerr)
		require.Equal(t, []string{"hid-dead"}, orphans)

		droppedShapes, droppedAtoms, cerr := graph.CleanupRefs(ctx, q, false)
		require.NoError(t, cerr)
		require.Equal(t, 1, droppedShapes)
		require.Equal(t, 1, droppedAtoms)

		ok, eerr := shapes.Exists(ctx, q, "hid-dead")
		require.NoError(t, eerr)
		require.False(t, ok)

		ok, eerr = shapes.Exists(ctx, q, "hid-live")
		require.NoError(t, eerr)
		require.True(t, ok)

		droppedShapes2, droppedAtoms2, cerr := graph.CleanupRefs(ctx, q, false)
		require.NoError(t, cerr)
		require.Equal(t, 0, droppedShapes2)
		require.Equal(t, 0, droppedAtoms2)
		return nil
	})
	require.NoError(t, err)
}

// TestCleanupRefsRejectsOpenScope checks the guard every query shares: a
// provenance query refuses to run while a storage context is open.
func TestCleanupRefsRejectsOpenScope(t *testing.T) {
	a := openTestAdapter(t)
	ctx := context.Background()
	graph := provenance.New(calltable.New(), kvtable.New("shapes"), kvtable.New("atoms"))

	err := a.WithTx(ctx, func(ctx context.Context, q dbadapter.Queryer) error {
		_, _, err := graph.CleanupRefs(ctx, q, true)
		return err
	})
	require.Error(t, err)
}

// TestCleanupRefsAndVacuumRunsVacuumOnlyWhenSomethingDropped exercises the
// opportunistic incremental vacuum path: a run that drops an orphan
// reports vacuumed, a second run with nothing left to drop does not.
func TestCleanupRefsAndVacuumRunsVacuumOnlyWhenSomethingDropped(t *testing.T) {
	a := openTestAdapter(t)
	ctx := context.Background()

	shapes := kvtable.New("shapes")
	atoms := kvtable.New("atoms")
	graph := provenance.New(calltable.New(), shapes, atoms)

	err := a.WithTx(ctx, func(ctx context.Context, q dbadapter.Queryer) error {
		return putAtomShape(ctx, q, shapes, atoms, "cid-dead", "hid-dead", "orphan")
	})
	require.NoError(t, err)

	droppedShapes, droppedAtoms, vacuumed, err := graph.CleanupRefsAndVacuum(ctx, a, false)
	require.NoError(t, err)
	require.Equal(t, 1, droppedShapes)
	require.Equal(t, 1, droppedAtoms)
	require.True(t, vacuumed, "a run that actually drops something should run the opportunistic vacuum")

	droppedShapes2, droppedAtoms2, vacuumed2, err := graph.CleanupRefsAndVacuum(ctx, a, false)
	require.NoError(t, err)
	require.Equal(t, 0, droppedShapes2)
	require.Equal(t, 0, droppedAtoms2)
	require.False(t, vacuumed2, "nothing dropped means no reason to vacuum")
}

// TestGetDependenciesWalksBackwardToFixpoint builds a two-hop chain
// a -> call1 -> b -> call2 -> c and asserts GetDependencies from c's ref hid
// reaches every earlier ref and call, while GetDependents from a's ref hid
// reaches every later one.
func TestGetDependenciesWalksBackwardToFixpoint(t *testing.T) {
	a := openTestAdapter(t)
	ctx := context.Background()
	calls := calltable.New()
	graph := provenance.New(calls, kvtable.New("shapes"), kvtable.New("atoms"))

	err := a.WithTx(ctx, func(ctx context.Context, q dbadapter.Queryer) error {
		return calls.Save(ctx, q, []calltable.Row{
			{CallHistoryID: "call1", Name: "x", Direction: calltable.Input, RefHistoryID: "ref-a", Op: "f"},
			{CallHistoryID: "call1", Name: "out", Direction: calltable.Output, RefHistoryID: "ref-b", Op: "f"},
			{CallHistoryID: "call2", Name: "x", Direction: calltable.Input, RefHistoryID: "ref-b", Op: "g"},
			{CallHistoryID: "call2", Name: "out", Direction: calltable.Output, RefHistoryID: "ref-c", Op: "g"},
		})
	})
	require.NoError(t, err)

	err = a.WithTx(ctx, func(ctx context.Context, q dbadapter.Queryer) error {
		deps, derr := graph.GetDependencies(ctx, q, false, []string{"ref-c"}, nil)
		require.NoError(t, derr)
		require.ElementsMatch(t, []string{"ref-c", "ref-b", "ref-a"}, deps.RefHIDs)
		require.ElementsMatch(t, []string{"call1", "call2"}, deps.CallHIDs)

		dependents, eerr := graph.GetDependents(ctx, q, false, []string{"ref-a"}, nil)
		require.NoError(t, eerr)
		require.ElementsMatch(t, []string{"ref-a", "ref-b", "ref-c"}, dependents.RefHIDs)
		require.ElementsMatch(t, []string{"call1", "call2"}, dependents.CallHIDs)
		return nil
	})
	require.NoError(t, err)
}
