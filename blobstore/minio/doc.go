// Package minio stores checkpoints in MinIO or any S3-compatible service
// (Ceph, Garage, SeaweedFS) through the MinIO client.
//
// # Basic Usage
//
//	store, err := minio.New(ctx, minio.Config{
//	    Endpoint:  "localhost:9000",
//	    AccessKey: "minioadmin",
//	    SecretKey: "minioadmin",
//	    Bucket:    "vectors",
//	    Prefix:    "checkpoints/",
//	})
//
// The resulting Store plugs into retrofit.NewCheckpointer like any other
// blobstore.Store.
package minio
