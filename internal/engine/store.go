package engine

import (
	"context"
	"fmt"

	"github.com/loomstore/loom/internal/cache"
	"github.com/loomstore/loom/internal/dbadapter"
	"github.com/loomstore/loom/internal/refmodel"
)

// txStore is the concrete refmodel.Store implementation, bound to one
// transaction's Queryer. Storage constructs a fresh txStore inside every
// a.WithTx call rather than holding one long-lived, since the underlying
// connection (and therefore q) changes per transaction in File mode (spec
// §4.1, §4.6).
type txStore struct {
	q      dbadapter.Queryer
	atoms  *cache.KVCache
	shapes *cache.KVCache
}

var _ refmodel.Store = (*txStore)(nil)

func (s *txStore) GetAtom(ctx context.Context, cid string) ([]byte, bool, error) {
	return s.atoms.GetTx(ctx, s.q, cid)
}

func (s *txStore) SetAtom(ctx context.Context, cid string, payload []byte) error {
	s.atoms.Set(cid, payload)
	return nil
}

func (s *txStore) GetShape(ctx context.Context, hid string) (refmodel.Ref, bool, error) {
	data, ok, err := s.shapes.GetTx(ctx, s.q, hid)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	shape, err := refmodel.DecodeShape(data)
	if err != nil {
		return nil, false, fmt.Errorf("engine: decode shape %s: %w", hid, err)
	}
	return shape, true, nil
}

// SetShape is a no-op if a shape already exists under hid (spec §3:
// "Shapes are written once per history id; re-save is a no-op").
func (s *txStore) SetShape(ctx context.Context, hid string, shape refmodel.Ref) error {
	if _, ok, err := s.GetShape(ctx, hid); err != nil {
		return err
	} else if ok {
		return nil
	}
	data, err := refmodel.EncodeShape(shape)
	if err != nil {
		return fmt.Errorf("engine: encode shape %s: %w", hid, err)
	}
	s.shapes.Set(hid, data)
	return nil
}
