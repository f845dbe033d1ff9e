// Package s3 stores checkpoints in Amazon S3.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("checkpoints/"),
//	    s3.WithRegion("us-east-1"),
//	)
//
// Store alone gives last-writer-wins semantics for CURRENT pointers. Wrap it
// in a DDBCommitStore when several runs may commit to the same prefix.
//
// # Features
//
//   - Range reads for partial fetches
//   - Multipart uploads with CRC32C checksums
//   - Automatic pagination for listing
package s3
