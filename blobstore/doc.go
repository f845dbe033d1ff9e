// Package blobstore stores retrofit checkpoints: per-shard row blobs,
// manifests and the CURRENT pointer.
//
// Store is the interface every backend implements. Implementations must be
// safe for concurrent use.
//
// # Built-in Implementations
//
//   - MemoryStore: in-process, for tests and single-process runs
//   - LocalStore: local filesystem; reads are memory mapped, writes are
//     atomic (temp file + rename)
//   - s3.Store: Amazon S3 with range reads and multipart uploads
//   - s3.DDBCommitStore: S3 plus DynamoDB conditional writes for CURRENT
//   - minio.Store: MinIO and other S3-compatible services
package blobstore
