// Package cache provides bounded in-memory caches keyed by label.
//
// LRU is a single-lock least-recently-used cache. Sharded spreads entries
// over independent LRUs by label hash to reduce lock contention when many
// goroutines resolve terms at once.
package cache
