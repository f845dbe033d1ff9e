// Package graph builds the read-only relation graph that drives retrofitting.
//
// Edges come from an EdgeSource (in-memory slices, TSV edge lists or
// ConceptNet assertion tables) and are interned into a CSR adjacency over
// labels. Malformed records are skipped and counted; only I/O failures stop
// a build. A built Graph is never mutated and may be shared between
// goroutines.
//
// Project re-keys the graph onto the rows of a word-vector matrix,
// producing the RowGraph the retrofit engine iterates over.
package graph
