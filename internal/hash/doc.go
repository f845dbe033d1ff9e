// Package hash provides hashing utilities for data integrity and stable
// label routing.
//
// # CRC32-Castagnoli (CRC32C)
//
// Every checksum written by vecspace (row files, checkpoint manifests, S3
// uploads) uses CRC32-Castagnoli. Go's crc32 package uses hardware
// instructions when available.
//
// For one-shot checksums:
//
//	checksum := hash.CRC32C(data)
//
// For streaming checksums:
//
//	h := hash.NewCRC32C()
//	h.Write(chunk1)
//	h.Write(chunk2)
//	checksum := h.Sum32()
//
// # Label routing
//
// Bucket assigns a label to one of n shards. The assignment is a pure
// function of the label, so re-running with the same shard count reproduces
// the same partition.
package hash
