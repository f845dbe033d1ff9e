package cache

import (
	"github.com/hupe1980/vecspace/internal/hash"
)

const numShards = 16

// Sharded is an LRU cache split into independent shards by label hash.
type Sharded[V any] struct {
	shards [numShards]*LRU[V]
}

// NewSharded creates a sharded cache. The capacity is divided evenly across
// all shards.
func NewSharded[V any](capacity int) *Sharded[V] {
	s := &Sharded[V]{}
	per := max(capacity/numShards, 1)
	for i := range numShards {
		s.shards[i] = NewLRU[V](per)
	}
	return s
}

func (s *Sharded[V]) shard(key string) *LRU[V] {
	return s.shards[hash.Bucket(key, numShards)]
}

// Get returns a cached value.
func (s *Sharded[V]) Get(key string) (V, bool) { return s.shard(key).Get(key) }

// Set caches a value.
func (s *Sharded[V]) Set(key string, v V) { s.shard(key).Set(key, v) }

// Purge removes every entry.
func (s *Sharded[V]) Purge() {
	for _, sh := range s.shards {
		sh.Purge()
	}
}

// Len returns the number of cached entries.
func (s *Sharded[V]) Len() int {
	n := 0
	for _, sh := range s.shards {
		n += sh.Len()
	}
	return n
}

// Stats returns the hit and miss counts summed over all shards.
func (s *Sharded[V]) Stats() (hits, misses int64) {
	for _, sh := range s.shards {
		h, m := sh.Stats()
		hits += h
		misses += m
	}
	return hits, misses
}
