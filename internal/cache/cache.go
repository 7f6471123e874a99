// Package cache implements the write-through in-memory mirror over the
// persisted kv/call tables (spec §4.4). Reads check the dirty set, then
// the clean LRU mirror, then fall through to the backing table; writes land
// only in the dirty set until Commit flushes them.
package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// defaultCleanSize bounds the clean-entry mirror. Large enough that the
// common "second call, same process" memoization path never touches disk.
const defaultCleanSize = 10_000

// Backing is the persistence a Cache reads through to and flushes into.
// K is the key type (string, in every Cache this package instantiates);
// V is the stored value.
type Backing[K comparable, V any] interface {
	Get(key K) (V, bool, error)
	Set(key K, value V) error
}

// Cache is a generic write-through mirror over a Backing store. The clean
// mirror is a bounded LRU; the dirty set is unbounded and only drained by
// Commit, so a value written this session is never silently evicted before
// it reaches the backing store.
type Cache[K comparable, V any] struct {
	backing Backing[K, V]
	clean   *lru.Cache[K, V]
	dirty   map[K]V
}

// New constructs a Cache over backing with the default clean-mirror bound.
func New[K comparable, V any](backing Backing[K, V]) (*Cache[K, V], error) {
	clean, err := lru.New[K, V](defaultCleanSize)
	if err != nil {
		return nil, err
	}
	return &Cache[K, V]{
		backing: backing,
		clean:   clean,
		dirty:   make(map[K]V),
	}, nil
}

// Get returns the value for key, checking the dirty set, then the clean
// mirror, then reading through to the backing store on a miss (which, if
// found, populates the clean mirror).
func (c *Cache[K, V]) Get(key K) (V, bool, error) {
	if v, ok := c.dirty[key]; ok {
		return v, true, nil
	}
	if v, ok := c.clean.Get(key); ok {
		return v, true, nil
	}
	v, ok, err := c.backing.Get(key)
	if err != nil {
		var zero V
		return zero, false, err
	}
	if ok {
		c.clean.Add(key, v)
	}
	return v, ok, nil
}

// Set records value for key in the dirty set. It is not visible to the
// backing store until Commit.
func (c *Cache[K, V]) Set(key K, value V) {
	c.dirty[key] = value
}

// Exists reports whether key has a value, per the same lookup order as
// Get, without returning the value.
func (c *Cache[K, V]) Exists(key K) (bool, error) {
	_, ok, err := c.Get(key)
	return ok, err
}

// Drop removes key from both the dirty set and the clean mirror, without
// touching the backing store. Most callers want DropPersisted instead —
// this is exposed for the rare case (a rolled-back speculative write)
// where the backing store was never supposed to see the key at all.
func (c *Cache[K, V]) Drop(key K) {
	delete(c.dirty, key)
	c.clean.Remove(key)
}

// DropPersisted removes key from the cache and from the backing store via
// deleteFn, in that order, so a dirty-but-uncommitted value is never
// resurrected by a concurrent commit racing the delete (spec §4.4: "drop
// removes from cache ... and from persistent storage").
func (c *Cache[K, V]) DropPersisted(key K, deleteFn func(key K) error) error {
	c.Drop(key)
	return deleteFn(key)
}

// Commit flushes every dirty entry to the backing store via write, then
// promotes flushed entries into the clean mirror and clears the dirty set.
// write is a caller-supplied function (typically backing.Set bound to an
// open transaction) so Commit can be called within a transactional scope
// without the Cache itself knowing about dbadapter.
func (c *Cache[K, V]) Commit(write func(key K, value V) error) error {
	for k, v := range c.dirty {
		if err := write(k, v); err != nil {
			return err
		}
		c.clean.Add(k, v)
	}
	c.dirty = make(map[K]V)
	return nil
}

// Dirty returns a snapshot of the current dirty set, for callers (such as
// the call cache's content-id lookups) that need to scan uncommitted
// entries directly rather than through Get.
func (c *Cache[K, V]) Dirty() map[K]V {
	out := make(map[K]V, len(c.dirty))
	for k, v := range c.dirty {
		out[k] = v
	}
	return out
}
