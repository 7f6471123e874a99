package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/loomstore/loom/api"
	"github.com/loomstore/loom/internal/cache"
	"github.com/loomstore/loom/internal/calltable"
	"github.com/loomstore/loom/internal/dbadapter"
	"github.com/loomstore/loom/internal/kvtable"
	"github.com/loomstore/loom/internal/opsig"
	"github.com/loomstore/loom/internal/provenance"
	"github.com/loomstore/loom/internal/refmodel"
)

// Storage owns the relational connection, every write-through cache, the
// live Op registry, and the scoped "current context" stack for one
// memoizing computation store (spec §3's "Ownership", §4.10, §5).
type Storage struct {
	adapter *dbadapter.Adapter

	atomCache   *cache.KVCache
	shapeCache  *cache.KVCache
	opCache     *cache.KVCache
	sourceCache *cache.KVCache
	callCache   *cache.CallCache

	versioner api.Versioner
	codeState string

	opsMu sync.RWMutex
	ops   map[string]api.Op

	scope scopeStack
}

// New constructs a Storage over an already-open adapter. versioner may be
// nil, in which case every call is treated as unversioned (equivalent to
// api.NullVersioner but without the indirection).
func New(adapter *dbadapter.Adapter, versioner api.Versioner) (*Storage, error) {
	atomCache, err := cache.NewKVCache("atoms")
	if err != nil {
		return nil, err
	}
	shapeCache, err := cache.NewKVCache("shapes")
	if err != nil {
		return nil, err
	}
	opCache, err := cache.NewKVCache("ops")
	if err != nil {
		return nil, err
	}
	sourceCache, err := cache.NewKVCache("sources")
	if err != nil {
		return nil, err
	}
	callCache, err := cache.NewCallCache()
	if err != nil {
		return nil, err
	}

	return &Storage{
		adapter:     adapter,
		atomCache:   atomCache,
		shapeCache:  shapeCache,
		opCache:     opCache,
		sourceCache: sourceCache,
		callCache:   callCache,
		versioner:   versioner,
		ops:         make(map[string]api.Op),
	}, nil
}

// RegisterOp adds op to the live registry under op.Name(), overwriting any
// prior registration of the same name. Registration itself is not
// persisted — only SaveCall, on first recording a call for a new op name,
// writes its detached metadata to the ops table.
func (s *Storage) RegisterOp(op api.Op) {
	s.opsMu.Lock()
	defer s.opsMu.Unlock()
	s.ops[op.Name()] = op
}

func (s *Storage) lookupOp(name string) (api.Op, error) {
	s.opsMu.RLock()
	defer s.opsMu.RUnlock()
	op, ok := s.ops[name]
	if !ok {
		return nil, api.NewNotFoundError(api.OpName, name)
	}
	return op, nil
}

func slotTypes(op api.Op) map[string]api.Type {
	out := make(map[string]api.Type, len(op.Inputs()))
	for _, in := range op.Inputs() {
		out[in.Name] = in.Type
	}
	return out
}

// Call is the user-facing entry point: bind args/kwargs against the
// registered op's opsig signature, then run the full call_internal
// pipeline. Returns the assembled main call and every auxiliary
// structural call construct/destruct produced along the way. Neither is
// persisted yet — call SaveCall to make the result durable (spec §4.10).
func (s *Storage) Call(ctx context.Context, opName string, sig opsig.Signature, args []any, kwargs map[string]any) (main *Call, aux []*Call, err error) {
	op, err := s.lookupOp(opName)
	if err != nil {
		return nil, nil, err
	}

	bound, err := opsig.Bind(sig, args, kwargs)
	if err != nil {
		return nil, nil, fmt.Errorf("engine: bind %s: %w", opName, err)
	}

	types := slotTypes(op)
	for _, slot := range bound.Order {
		if _, ok := types[slot]; !ok {
			types[slot] = api.Atom()
		}
	}

	err = s.adapter.WithTx(ctx, func(ctx context.Context, q dbadapter.Queryer) error {
		_, m, a, cerr := s.callInternal(ctx, q, op, bound.Order, bound.StorageInputs, types, bound.CallValues)
		if cerr != nil {
			return cerr
		}
		main, aux = m, a
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return main, aux, nil
}

// SaveCall persists call: its op's detached metadata (if new), every
// input/output ref via refmodel.Save, the call's content/semantic version
// (if any), and the normalized call-table rows. Idempotent on call.HID
// (spec §4.10).
func (s *Storage) SaveCall(ctx context.Context, call *Call) error {
	return s.adapter.WithTx(ctx, func(ctx context.Context, q dbadapter.Queryer) error {
		return s.saveCallTx(ctx, q, call)
	})
}

func (s *Storage) saveCallTx(ctx context.Context, q dbadapter.Queryer, call *Call) error {
	if err := s.ensureOpSaved(ctx, q, call.Op); err != nil {
		return err
	}

	store := &txStore{q: q, atoms: s.atomCache, shapes: s.shapeCache}
	for _, ref := range call.Inputs {
		if err := refmodel.Save(ctx, store, ref); err != nil {
			return err
		}
	}
	for _, ref := range call.Outputs {
		if err := refmodel.Save(ctx, store, ref); err != nil {
			return err
		}
	}

	if err := s.setCallVersion(ctx, q, call.HID, call.SemanticVersion, call.ContentVersion); err != nil {
		return err
	}

	rows := make([]calltable.Row, 0, len(call.Inputs)+len(call.Outputs))
	for slot, ref := range call.Inputs {
		rows = append(rows, calltable.Row{
			CallHistoryID: call.HID, Name: slot, Direction: calltable.Input,
			CallContentID: call.CID, RefContentID: ref.CID(), RefHistoryID: ref.HID(), Op: call.Op,
		})
	}
	for slot, ref := range call.Outputs {
		rows = append(rows, calltable.Row{
			CallHistoryID: call.HID, Name: slot, Direction: calltable.Output,
			CallContentID: call.CID, RefContentID: ref.CID(), RefHistoryID: ref.HID(), Op: call.Op,
		})
	}

	rec := cache.CallRecord{
		HistoryID: call.HID,
		Op:        call.Op,
		ContentID: call.CID,
		Inputs:    make(map[string]calltable.Row),
		Outputs:   make(map[string]calltable.Row),
	}
	for _, r := range rows {
		switch r.Direction {
		case calltable.Input:
			rec.Inputs[r.Name] = r
		case calltable.Output:
			rec.Outputs[r.Name] = r
		}
	}
	s.callCache.Set(call.HID, rec)
	return nil
}

type opMetaDTO = api.OpMeta

func (s *Storage) ensureOpSaved(ctx context.Context, q dbadapter.Queryer, name string) error {
	if _, ok, err := s.opCache.GetTx(ctx, q, name); err != nil {
		return err
	} else if ok {
		return nil
	}
	op, err := s.lookupOp(name)
	if err != nil {
		return err
	}
	data, err := json.Marshal(opMetaDTO(op.Detached()))
	if err != nil {
		return fmt.Errorf("engine: marshal op metadata %s: %w", name, err)
	}
	s.opCache.Set(name, data)
	return nil
}

// DropCalls removes each call hid from cache and the calls table. If
// deleteDependents is set, the set is first expanded to include every
// call transitively dependent on one of hids (spec §4.10).
func (s *Storage) DropCalls(ctx context.Context, hids []string, deleteDependents bool) error {
	targets := hids
	if deleteDependents {
		expanded, err := s.expandDependents(ctx, hids)
		if err != nil {
			return err
		}
		targets = expanded
	}

	return s.adapter.WithTx(ctx, func(ctx context.Context, q dbadapter.Queryer) error {
		for _, hid := range targets {
			if err := s.callCache.DropTx(ctx, q, hid); err != nil {
				return err
			}
		}
		return nil
	})
}

// expandDependents walks the provenance graph forward from hids (treated
// as seed call hids) and returns the full transitive-dependent closure,
// including hids themselves: every call that consumed, directly or
// indirectly, an output of one of hids (spec §4.9, §4.10).
func (s *Storage) expandDependents(ctx context.Context, hids []string) ([]string, error) {
	graph := provenance.New(calltable.New(), kvtable.New("shapes"), kvtable.New("atoms"))

	var closure provenance.Closure
	err := s.adapter.WithTx(ctx, func(ctx context.Context, q dbadapter.Queryer) error {
		c, cerr := graph.GetDependents(ctx, q, s.InScope(), nil, hids)
		if cerr != nil {
			return cerr
		}
		closure = c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("engine: expand dependents: %w", err)
	}
	return closure.CallHIDs, nil
}

// Commit flushes every cache's dirty entries to the relational store
// within one transaction, in the order atoms, shapes, ops, sources, calls (spec
// §4.10).
func (s *Storage) Commit(ctx context.Context) error {
	return s.adapter.WithTx(ctx, func(ctx context.Context, q dbadapter.Queryer) error {
		if err := s.atomCache.CommitTx(ctx, q); err != nil {
			return err
		}
		if err := s.shapeCache.CommitTx(ctx, q); err != nil {
			return err
		}
		if err := s.opCache.CommitTx(ctx, q); err != nil {
			return err
		}
		if err := s.sourceCache.CommitTx(ctx, q); err != nil {
			return err
		}
		return s.callCache.CommitTx(ctx, q)
	})
}

// Enter opens a scoped storage context: it optionally synchronizes the
// external versioner with the current code state, then pushes a scope
// handle recording that code state for the duration (spec §4.10, §5,
// §9's "Global current context slot").
func (s *Storage) Enter(ctx context.Context) error {
	codeState := ""
	if s.versioner != nil {
		guessed, err := s.versioner.GuessCodeState()
		if err != nil {
			return fmt.Errorf("engine: guess code state: %w", err)
		}
		if err := s.versioner.SyncCodebase(guessed); err != nil {
			return fmt.Errorf("engine: sync codebase: %w", err)
		}
		codeState = guessed
	}
	s.codeState = codeState
	s.scope.push(&scopeHandle{codeState: codeState})
	return nil
}

// Exit closes the innermost scoped storage context and commits, even if
// bodyErr (the error the scoped body returned, if any) is non-nil —
// dirty cache entries are never silently dropped on a failure path (spec
// §4.10, §5).
func (s *Storage) Exit(ctx context.Context, bodyErr error) error {
	s.scope.pop()
	if s.scope.depth() == 0 {
		s.codeState = ""
	}
	commitErr := s.Commit(ctx)
	if bodyErr != nil {
		return bodyErr
	}
	return commitErr
}

// InScope reports whether a storage context is currently open — the
// "current context" slot user code and provenance queries consult.
func (s *Storage) InScope() bool {
	_, ok := s.scope.top()
	return ok
}
