// Package shard partitions matrix rows into disjoint owned sets for the
// retrofit engine.
//
// PolicyHash assigns a label to CRC32C(label) mod n, which is reproducible
// across runs and independent of row order. PolicyBalanced runs a
// deterministic greedy longest-processing-time assignment over per-row
// costs (1 + degree), so shards carry similar edge counts.
//
// Ownership is held in roaring bitmaps; Validate checks the partition
// invariant (pairwise disjoint, union = all rows) with bitmap operations.
package shard
