// Package retrofit propagates relation-graph information into word vectors.
//
// Each round updates every row with at least one neighbor to
//
//	v(l) = (sum_n w(l,n) * v(n) + v0(l)) / (sum_n w(l,n) + 1)
//
// where v0 is the original vector and the neighbor vectors come from the
// previous round. Rows without neighbors keep their original vector. There
// is no convergence check: exactly Iterations rounds run.
//
// Rows are partitioned into shards (see package shard). One worker per shard
// reads an immutable round-start snapshot and writes only its private
// buffer; a barrier commits all buffers before the next round. The result
// therefore does not depend on the shard count or on worker scheduling.
//
// A Checkpointer persists each shard's final rows plus a manifest to a
// blobstore.Store, and Join reassembles them into one matrix.
package retrofit
