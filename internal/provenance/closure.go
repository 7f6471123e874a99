package provenance

import (
	"context"

	"github.com/RoaringBitmap/roaring"
	"github.com/loomstore/loom/internal/dbadapter"
)

// interner assigns a dense uint32 id to each hid string on first sight —
// the same append-only map + reverse-slice idiom the teacher's lattice
// package uses to drive roaring-bitmap BFS over file/token reachability
// (internal/lattice/closure.go), applied here to ref/call hid reachability
// instead.
type interner struct {
	ids     map[string]uint32
	strings []string
}

func newInterner() *interner {
	return &interner{ids: make(map[string]uint32)}
}

func (n *interner) id(s string) uint32 {
	if id, ok := n.ids[s]; ok {
		return id
	}
	id := uint32(len(n.strings))
	n.ids[s] = id
	n.strings = append(n.strings, s)
	return id
}

func (n *interner) bitmapOf(ss []string) *roaring.Bitmap {
	bm := roaring.New()
	for _, s := range ss {
		bm.Add(n.id(s))
	}
	return bm
}

func (n *interner) stringsOf(bm *roaring.Bitmap) []string {
	out := make([]string, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		out = append(out, n.strings[it.Next()])
	}
	return out
}

// Closure is the result of a transitive dependency/dependent walk: every
// ref and call hid reached, including the original seeds.
type Closure struct {
	RefHIDs  []string
	CallHIDs []string
}

// GetDependencies computes the transitive closure backward from refHIDs
// and callHIDs: creators of refs, then inputs of those calls, iterated to
// fixpoint (spec §4.9).
func (g *Graph) GetDependencies(ctx context.Context, q dbadapter.Queryer, scopeOpen bool, refHIDs, callHIDs []string) (Closure, error) {
	if err := guard(scopeOpen); err != nil {
		return Closure{}, err
	}
	return g.walk(ctx, q, refHIDs, callHIDs, g.GetCreatorHids, g.GetInputHids)
}

// GetDependents computes the transitive closure forward from refHIDs and
// callHIDs: consumers of refs, then outputs of those calls, iterated to
// fixpoint (spec §4.9).
func (g *Graph) GetDependents(ctx context.Context, q dbadapter.Queryer, scopeOpen bool, refHIDs, callHIDs []string) (Closure, error) {
	if err := guard(scopeOpen); err != nil {
		return Closure{}, err
	}
	return g.walk(ctx, q, refHIDs, callHIDs, g.GetConsumerHids, g.GetOutputHids)
}

// walk drives the fixpoint iteration shared by GetDependencies/
// GetDependents: callsOf(refs) discovers new calls from the current ref
// frontier, refsOf(calls) discovers new refs from the (old ∪ new) call
// frontier. Iteration stops once a round discovers nothing new. scopeOpen
// is already checked by the caller, so the two collaborator functions are
// invoked with scopeOpen=false to avoid re-guarding an already-validated
// call.
func (g *Graph) walk(
	ctx context.Context,
	q dbadapter.Queryer,
	seedRefs, seedCalls []string,
	callsOf func(context.Context, dbadapter.Queryer, bool, []string) ([]string, error),
	refsOf func(context.Context, dbadapter.Queryer, bool, []string) ([]string, error),
) (Closure, error) {
	in := newInterner()
	visitedRefs := in.bitmapOf(seedRefs)
	visitedCalls := in.bitmapOf(seedCalls)

	frontierRefs := append([]string(nil), seedRefs...)
	frontierCalls := append([]string(nil), seedCalls...)

	for len(frontierRefs) > 0 || len(frontierCalls) > 0 {
		newCallIDs, err := callsOf(ctx, q, false, frontierRefs)
		if err != nil {
			return Closure{}, err
		}

		allCallsForRefs := make([]string, 0, len(newCallIDs)+len(frontierCalls))
		allCallsForRefs = append(allCallsForRefs, newCallIDs...)
		allCallsForRefs = append(allCallsForRefs, frontierCalls...)

		newRefIDs, err := refsOf(ctx, q, false, allCallsForRefs)
		if err != nil {
			return Closure{}, err
		}

		nextFrontierCalls := nextFrontier(in, visitedCalls, newCallIDs)
		nextFrontierRefs := nextFrontier(in, visitedRefs, newRefIDs)

		if len(nextFrontierCalls) == 0 && len(nextFrontierRefs) == 0 {
			break
		}
		frontierCalls = nextFrontierCalls
		frontierRefs = nextFrontierRefs
	}

	return Closure{
		RefHIDs:  in.stringsOf(visitedRefs),
		CallHIDs: in.stringsOf(visitedCalls),
	}, nil
}

// nextFrontier filters candidates down to ones not already in visited,
// marks them visited, and returns them as the next round's frontier.
func nextFrontier(in *interner, visited *roaring.Bitmap, candidates []string) []string {
	var next []string
	for _, c := range candidates {
		id := in.id(c)
		if visited.Contains(id) {
			continue
		}
		visited.Add(id)
		next = append(next, c)
	}
	return next
}
