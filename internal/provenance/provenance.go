// Package provenance answers reachability questions over the call table:
// which calls created or consumed a ref, and the transitive
// dependency/dependent closure of a set of refs and calls (spec §4.9).
// Every query here requires a consistent read of already-committed state,
// so each accepts the caller's current scope-open flag and refuses to run
// while a storage context is open.
package provenance

import (
	"context"
	"fmt"

	"github.com/loomstore/loom/api"
	"github.com/loomstore/loom/internal/calltable"
	"github.com/loomstore/loom/internal/dbadapter"
	"github.com/loomstore/loom/internal/kvtable"
)

// Graph is the read-only provenance view over one store's call and shape
// tables.
type Graph struct {
	calls  *calltable.Table
	shapes *kvtable.Table
	atoms  *kvtable.Table
}

func New(calls *calltable.Table, shapes, atoms *kvtable.Table) *Graph {
	return &Graph{calls: calls, shapes: shapes, atoms: atoms}
}

func guard(scopeOpen bool) error {
	if scopeOpen {
		return fmt.Errorf("provenance: query rejected: %w", api.ErrNotAllowedInContext)
	}
	return nil
}

func distinct(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// GetCreatorHids returns the call hids whose output rows include any of
// refHIDs.
func (g *Graph) GetCreatorHids(ctx context.Context, q dbadapter.Queryer, scopeOpen bool, refHIDs []string) ([]string, error) {
	if err := guard(scopeOpen); err != nil {
		return nil, err
	}
	rows, err := g.calls.RowsByRefHID(ctx, q, refHIDs, calltable.Output)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.CallHistoryID)
	}
	return distinct(out), nil
}

// GetConsumerHids returns the call hids whose input rows include any of
// refHIDs.
func (g *Graph) GetConsumerHids(ctx context.Context, q dbadapter.Queryer, scopeOpen bool, refHIDs []string) ([]string, error) {
	if err := guard(scopeOpen); err != nil {
		return nil, err
	}
	rows, err := g.calls.RowsByRefHID(ctx, q, refHIDs, calltable.Input)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.CallHistoryID)
	}
	return distinct(out), nil
}

// GetInputHids returns the ref hids appearing as an input slot of any of
// callHIDs.
func (g *Graph) GetInputHids(ctx context.Context, q dbadapter.Queryer, scopeOpen bool, callHIDs []string) ([]string, error) {
	if err := guard(scopeOpen); err != nil {
		return nil, err
	}
	return g.slotHids(ctx, q, callHIDs, calltable.Input)
}

// GetOutputHids returns the ref hids appearing as an output slot of any of
// callHIDs.
func (g *Graph) GetOutputHids(ctx context.Context, q dbadapter.Queryer, scopeOpen bool, callHIDs []string) ([]string, error) {
	if err := guard(scopeOpen); err != nil {
		return nil, err
	}
	return g.slotHids(ctx, q, callHIDs, calltable.Output)
}

func (g *Graph) slotHids(ctx context.Context, q dbadapter.Queryer, callHIDs []string, dir calltable.Direction) ([]string, error) {
	byID, err := g.calls.MGetData(ctx, q, callHIDs)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, rows := range byID {
		for _, r := range rows {
			if r.Direction == dir {
				out = append(out, r.RefHistoryID)
			}
		}
	}
	return distinct(out), nil
}
