package engine

import (
	"context"
	"fmt"

	"github.com/loomstore/loom/api"
	"github.com/loomstore/loom/internal/calltable"
	"github.com/loomstore/loom/internal/codec"
	"github.com/loomstore/loom/internal/dbadapter"
	"github.com/loomstore/loom/internal/refmodel"
)

func toSlotValues(m map[string]string) []codec.SlotValue {
	out := make([]codec.SlotValue, 0, len(m))
	for k, v := range m {
		out = append(out, codec.SlotValue{Slot: k, ID: v})
	}
	return out
}

// callInternal implements the five-step pipeline of spec §4.8. order gives
// the slot-invocation order the op's function expects; storageInputs are
// the slots fingerprinted and persisted; callValues are every slot
// (including Ignore-excluded ones) forwarded to the function, keyed the
// same way. On a cache hit, outputs/main are reconstructed without
// invoking op.Invoke at all; aux only ever grows from nested
// construct/destruct recursion, never from a hit.
func (s *Storage) callInternal(
	ctx context.Context,
	q dbadapter.Queryer,
	op api.Op,
	order []string,
	storageInputs map[string]any,
	storageTypes map[string]api.Type,
	callValues map[string]any,
) (outputs map[string]refmodel.Ref, main *Call, aux []*Call, err error) {
	// Step 1: wrap inputs.
	inputRefs := make(map[string]refmodel.Ref, len(storageInputs))
	for _, slot := range order {
		val, ok := storageInputs[slot]
		if !ok {
			continue
		}
		t := storageTypes[slot]
		ref, subAux, cerr := s.construct(ctx, q, t, val)
		if cerr != nil {
			return nil, nil, nil, cerr
		}
		inputRefs[slot] = ref
		aux = append(aux, subAux...)
	}

	inputHIDs := hidsOf(inputRefs)
	inputCIDs := cidsOf(inputRefs)

	// Step 2: lookup.
	effSemVer, effContentVer, err := s.resolveVersion(op, inputHIDs)
	if err != nil {
		return nil, nil, nil, err
	}

	opID := codec.OpID(op.Name(), effSemVer)
	expectedHID := codec.CallHID(opID, toSlotValues(inputHIDs), effSemVer)

	if rec, ok, err := s.callCache.GetTx(ctx, q, expectedHID); err != nil {
		return nil, nil, nil, err
	} else if ok {
		call, err := s.reconstructExistingCall(ctx, q, rec, inputRefs)
		if err != nil {
			return nil, nil, nil, err
		}
		return call.Outputs, call, aux, nil
	}

	expectedCID := codec.CallCID(opID, toSlotValues(inputCIDs), effSemVer)
	if existingHID, ok, err := s.findByContentID(ctx, q, expectedCID); err != nil {
		return nil, nil, nil, err
	} else if ok {
		rec, _, err := s.callCache.GetTx(ctx, q, existingHID)
		if err != nil {
			return nil, nil, nil, err
		}
		cloned, err := s.cloneCall(ctx, q, rec, expectedHID, op, inputRefs, effSemVer, effContentVer)
		if err != nil {
			return nil, nil, nil, err
		}
		return cloned.Outputs, cloned, aux, nil
	}

	// Step 3: execute (miss).
	preCIDs := make(map[string]string, len(inputRefs))
	for slot, ref := range inputRefs {
		preCIDs[slot] = ref.CID()
	}

	args := make([]any, len(order))
	for i, slot := range order {
		args[i] = callValues[slot]
	}

	raw, err := op.Invoke(args)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("engine: invoke %s: %w", op.Name(), err)
	}

	if !op.AllowSideEffects() {
		for slot, val := range storageInputs {
			post, err := contentID(val)
			if err != nil {
				return nil, nil, nil, err
			}
			if post != preCIDs[slot] {
				return nil, nil, nil, api.NewSideEffectError(op.Name(), slot)
			}
		}
	}

	// Step 4: parse outputs.
	outSlots, err := op.GetOrderedOutputs(raw)
	if err != nil {
		return nil, nil, nil, err
	}
	outputHIDs := op.GetOutputHistoryIDs(expectedHID)

	outputs = make(map[string]refmodel.Ref, len(outSlots))
	outputCIDs := make(map[string]string, len(outSlots))
	for _, slot := range op.OutputNames() {
		val := outSlots[slot]
		ref, subAux, derr := s.destruct(ctx, q, val, outputHIDs[slot])
		if derr != nil {
			return nil, nil, nil, derr
		}
		outputs[slot] = ref
		outputCIDs[slot] = ref.CID()
		aux = append(aux, subAux...)
	}

	// Step 5: assemble.
	main = &Call{
		Op:              op.Name(),
		CID:             expectedCID,
		HID:             expectedHID,
		SemanticVersion: effSemVer,
		ContentVersion:  effContentVer,
		Inputs:          inputRefs,
		Outputs:         outputs,
	}
	return outputs, main, aux, nil
}

// resolveVersion determines the effective semantic/content version for a
// call: the op's own statically declared semantic version if non-empty,
// else whatever the configured Versioner resolves for the current code
// state (spec §4.8 step 2). A declining Versioner leaves both empty,
// which is equivalent to "unversioned" for identity purposes.
func (s *Storage) resolveVersion(op api.Op, inputHIDs map[string]string) (semanticVersion, contentVersion string, err error) {
	if op.SemanticVersion() != "" {
		return op.SemanticVersion(), "", nil
	}
	if s.versioner == nil {
		return "", "", nil
	}
	preCallID := op.GetPreCallID(inputHIDs)
	content, semantic, ok, err := s.versioner.Resolve(op.Name(), preCallID, s.codeState)
	if err != nil {
		return "", "", fmt.Errorf("engine: resolve version: %w", err)
	}
	if !ok {
		return "", "", nil
	}
	return semantic, content, nil
}

func (s *Storage) findByContentID(ctx context.Context, q dbadapter.Queryer, cid string) (string, bool, error) {
	ok, err := s.callCache.ExistsContent(ctx, q, cid)
	if err != nil || !ok {
		return "", false, err
	}
	rec, ok, err := s.callCache.GetDataContent(ctx, q, cid)
	if err != nil || !ok {
		return "", ok, err
	}
	return rec.HistoryID, true, nil
}

// reconstructExistingCall rebuilds a Call from a cache/table row group
// already known under the expected hid. Inputs are returned as the caller
// already-constructed refs (identical by construction); outputs are
// materialized eagerly since callers of a hit almost always want the
// value immediately.
func (s *Storage) reconstructExistingCall(ctx context.Context, q dbadapter.Queryer, rec callRecordRows, inputRefs map[string]refmodel.Ref) (*Call, error) {
	store := &txStore{q: q, atoms: s.atomCache, shapes: s.shapeCache}
	outputs := make(map[string]refmodel.Ref, len(rec.Outputs))
	for slot, row := range rec.Outputs {
		ref, err := refmodel.Load(ctx, store, row.RefHistoryID, false)
		if err != nil {
			return nil, err
		}
		outputs[slot] = ref
	}
	semanticVersion, contentVersion, err := s.getCallVersion(ctx, q, rec.HistoryID)
	if err != nil {
		return nil, err
	}
	return &Call{
		Op:              rec.Op,
		CID:             rec.ContentID,
		HID:             rec.HistoryID,
		SemanticVersion: semanticVersion,
		ContentVersion:  contentVersion,
		Inputs:          inputRefs,
		Outputs:         outputs,
	}, nil
}

// cloneCall rewrites an existing call's hid and output hids to the
// deterministic derivation from newHID (spec §4.8 step 2's cid-clone
// path). Output cids are carried over unchanged — only identity, not
// content, differs between the two histories.
func (s *Storage) cloneCall(ctx context.Context, q dbadapter.Queryer, rec callRecordRows, newHID string, op api.Op, inputRefs map[string]refmodel.Ref, semanticVersion, contentVersion string) (*Call, error) {
	store := &txStore{q: q, atoms: s.atomCache, shapes: s.shapeCache}
	outputHIDs := op.GetOutputHistoryIDs(newHID)

	outputs := make(map[string]refmodel.Ref, len(rec.Outputs))
	for slot, row := range rec.Outputs {
		origShape, found, err := store.GetShape(ctx, row.RefHistoryID)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, api.NewIntegrityError(fmt.Sprintf("clone: shape %s missing for call %s", row.RefHistoryID, rec.HistoryID))
		}
		outputs[slot] = reassignHID(origShape, outputHIDs[slot])
	}

	return &Call{
		Op:              rec.Op,
		CID:             rec.ContentID,
		HID:             newHID,
		SemanticVersion: semanticVersion,
		ContentVersion:  contentVersion,
		Inputs:          inputRefs,
		Outputs:         outputs,
	}, nil
}

// callRecordRows is the shape callInternal needs out of a cache.CallRecord
// — declared locally so this file doesn't need to import cache just for a
// type alias.
type callRecordRows = struct {
	HistoryID string
	Op        string
	ContentID string
	Inputs    map[string]calltable.Row
	Outputs   map[string]calltable.Row
}
