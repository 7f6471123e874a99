package cache

import (
	"context"
	"fmt"

	"github.com/loomstore/loom/internal/dbadapter"
	"github.com/loomstore/loom/internal/kvtable"
)

type kvTableBacking struct {
	ctx context.Context
	q   dbadapter.Queryer
	tbl *kvtable.Table
}

func (b kvTableBacking) Get(key string) ([]byte, bool, error) {
	v, err := b.tbl.Get(b.ctx, b.q, key)
	if err != nil {
		if err == kvtable.ErrKeyNotFound {
			return nil, false, nil
		}
		return nil, false, err
	}
	return v, true, nil
}

func (b kvTableBacking) Set(key string, value []byte) error {
	return b.tbl.Set(b.ctx, b.q, key, value)
}

// KVCache is the write-through cache over one of the flat kv tables
// (atoms, shapes, ops, sources), each getting its own KVCache instance
// bound to the matching kvtable.Table (spec §4.4).
type KVCache struct {
	*Cache[string, []byte]
	tbl *kvtable.Table
}

// NewKVCache constructs a KVCache over the named table.
func NewKVCache(tableName string) (*KVCache, error) {
	tbl := kvtable.New(tableName)
	c, err := New[string, []byte](kvTableBacking{tbl: tbl})
	if err != nil {
		return nil, err
	}
	return &KVCache{Cache: c, tbl: tbl}, nil
}

// GetTx returns the blob for key, reading through ctx/q on a mirror miss.
func (kc *KVCache) GetTx(ctx context.Context, q dbadapter.Queryer, key string) ([]byte, bool, error) {
	if v, ok := kc.dirty[key]; ok {
		return v, true, nil
	}
	if v, ok := kc.clean.Get(key); ok {
		return v, true, nil
	}
	backing := kvTableBacking{ctx: ctx, q: q, tbl: kc.tbl}
	v, ok, err := backing.Get(key)
	if err != nil {
		return nil, false, fmt.Errorf("cache: kv get %s: %w", key, err)
	}
	if ok {
		kc.clean.Add(key, v)
	}
	return v, ok, nil
}

// ExistsTx reports whether key has a value, per GetTx's lookup order.
func (kc *KVCache) ExistsTx(ctx context.Context, q dbadapter.Queryer, key string) (bool, error) {
	_, ok, err := kc.GetTx(ctx, q, key)
	return ok, err
}

// CommitTx flushes every dirty blob to the backing table within the given
// transaction.
func (kc *KVCache) CommitTx(ctx context.Context, q dbadapter.Queryer) error {
	return kc.Commit(func(key string, value []byte) error {
		return kc.tbl.Set(ctx, q, key, value)
	})
}

// DropTx removes key from the cache and from the backing table.
func (kc *KVCache) DropTx(ctx context.Context, q dbadapter.Queryer, key string) error {
	return kc.DropPersisted(key, func(k string) error {
		return kc.tbl.Drop(ctx, q, k)
	})
}
