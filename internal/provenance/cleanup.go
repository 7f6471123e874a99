package provenance

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/loomstore/loom/internal/dbadapter"
	"github.com/loomstore/loom/internal/kvtable"
	"github.com/loomstore/loom/internal/refmodel"
)

// GetOrphans returns every shape hid that does not appear as a
// ref_history_id in any call row (spec §4.9).
func (g *Graph) GetOrphans(ctx context.Context, q dbadapter.Queryer, scopeOpen bool) ([]string, error) {
	if err := guard(scopeOpen); err != nil {
		return nil, err
	}
	hids, err := g.shapes.Keys(ctx, q)
	if err != nil {
		return nil, err
	}

	var orphans []string
	for _, hid := range hids {
		referenced, err := g.calls.ExistsRefHID(ctx, q, hid)
		if err != nil {
			return nil, err
		}
		if !referenced {
			orphans = append(orphans, hid)
		}
	}
	return orphans, nil
}

// GetUnreferencedCIDs returns every atom cid that neither appears in any
// call row nor is reachable inside any shape that survives the orphan
// sweep (spec §4.9).
func (g *Graph) GetUnreferencedCIDs(ctx context.Context, q dbadapter.Queryer, scopeOpen bool) ([]string, error) {
	if err := guard(scopeOpen); err != nil {
		return nil, err
	}

	referenced, err := g.calls.AllRefContentIDs(ctx, q)
	if err != nil {
		return nil, err
	}

	orphans, err := g.GetOrphans(ctx, q, false)
	if err != nil {
		return nil, err
	}
	orphanSet := make(map[string]struct{}, len(orphans))
	for _, hid := range orphans {
		orphanSet[hid] = struct{}{}
	}

	shapeHIDs, err := g.shapes.Keys(ctx, q)
	if err != nil {
		return nil, err
	}
	for _, hid := range shapeHIDs {
		if _, isOrphan := orphanSet[hid]; isOrphan {
			continue
		}
		data, err := g.shapes.Get(ctx, q, hid)
		if err != nil {
			if errors.Is(err, kvtable.ErrKeyNotFound) {
				continue
			}
			return nil, err
		}
		shape, err := refmodel.DecodeShape(data)
		if err != nil {
			return nil, fmt.Errorf("provenance: decode shape %s: %w", hid, err)
		}
		collectAtomCIDs(shape, referenced)
	}

	atomCIDs, err := g.atoms.Keys(ctx, q)
	if err != nil {
		return nil, err
	}

	var unreferenced []string
	for _, cid := range atomCIDs {
		if _, ok := referenced[cid]; !ok {
			unreferenced = append(unreferenced, cid)
		}
	}
	return unreferenced, nil
}

// collectAtomCIDs walks a (possibly detached) ref tree and marks every
// atom's cid as referenced.
func collectAtomCIDs(r refmodel.Ref, referenced map[string]struct{}) {
	switch v := r.(type) {
	case *refmodel.AtomRef:
		referenced[v.CID()] = struct{}{}
	case *refmodel.ListRef:
		for _, item := range v.Items() {
			collectAtomCIDs(item, referenced)
		}
	case *refmodel.DictRef:
		for _, entry := range v.Entries() {
			collectAtomCIDs(entry, referenced)
		}
	}
}

// CleanupRefs drops every orphaned shape, then every atom cid left
// unreferenced as a result, logging counts at each step (spec §4.9).
// Idempotent: a second run with nothing new to drop reports zero for both
// counts.
func (g *Graph) CleanupRefs(ctx context.Context, q dbadapter.Queryer, scopeOpen bool) (droppedShapes, droppedAtoms int, err error) {
	if err := guard(scopeOpen); err != nil {
		return 0, 0, err
	}

	orphans, err := g.GetOrphans(ctx, q, false)
	if err != nil {
		return 0, 0, err
	}
	for _, hid := range orphans {
		if err := g.shapes.Drop(ctx, q, hid); err != nil {
			return 0, 0, err
		}
	}
	log.Printf("loom/provenance: dropped %d orphaned shape(s)", len(orphans))

	unreferenced, err := g.GetUnreferencedCIDs(ctx, q, false)
	if err != nil {
		return len(orphans), 0, err
	}
	for _, cid := range unreferenced {
		if err := g.atoms.Drop(ctx, q, cid); err != nil {
			return len(orphans), 0, err
		}
	}
	log.Printf("loom/provenance: dropped %d unreferenced atom(s)", len(unreferenced))

	return len(orphans), len(unreferenced), nil
}

// CleanupRefsAndVacuum runs CleanupRefs inside its own transaction over
// adapter, then opportunistically runs an incremental vacuum afterward if
// anything was actually dropped — reclaiming the freed pages is only
// worth the extra transaction when CleanupRefs found something (spec
// §4.1, §4.9).
func (g *Graph) CleanupRefsAndVacuum(ctx context.Context, adapter *dbadapter.Adapter, scopeOpen bool) (droppedShapes, droppedAtoms int, vacuumed bool, err error) {
	err = adapter.WithTx(ctx, func(ctx context.Context, q dbadapter.Queryer) error {
		var txErr error
		droppedShapes, droppedAtoms, txErr = g.CleanupRefs(ctx, q, scopeOpen)
		return txErr
	})
	if err != nil {
		return 0, 0, false, err
	}
	if droppedShapes == 0 && droppedAtoms == 0 {
		return droppedShapes, droppedAtoms, false, nil
	}

	hasRoom, verr := adapter.IncrementalVacuum(ctx)
	if verr != nil {
		log.Printf("loom/provenance: incremental vacuum failed: %v", verr)
		return droppedShapes, droppedAtoms, false, nil
	}
	if !hasRoom {
		log.Printf("loom/provenance: skipped incremental vacuum: low disk space")
	}
	return droppedShapes, droppedAtoms, hasRoom, nil
}
