package main

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/hupe1980/vecspace/blobstore"
	"github.com/hupe1980/vecspace/blobstore/minio"
	"github.com/hupe1980/vecspace/blobstore/s3"
	"github.com/hupe1980/vecspace/internal/config"
)

// openStore resolves a checkpoint location into a store and the key prefix
// of the checkpoint inside it.
//
//	s3://bucket/prefix     Amazon S3, CURRENT in DynamoDB when storage.s3.ddb_table is set
//	minio://bucket/prefix  MinIO or another S3-compatible endpoint
//	file:///path, path     local directory
func openStore(ctx context.Context, cfg config.StorageConfig, location string) (blobstore.Store, string, error) {
	scheme, rest, ok := strings.Cut(location, "://")
	if !ok {
		return blobstore.NewLocalStore(location), "", nil
	}
	if scheme == "file" {
		return blobstore.NewLocalStore(rest), "", nil
	}
	bucket, prefix, _ := strings.Cut(rest, "/")
	prefix = strings.Trim(prefix, "/")
	if bucket == "" {
		return nil, "", fmt.Errorf("%s: missing bucket", location)
	}

	switch scheme {
	case "s3":
		var opts []func(*s3.Options)
		if cfg.S3.Region != "" {
			opts = append(opts, s3.WithRegion(cfg.S3.Region))
		}
		if cfg.S3.Endpoint != "" {
			opts = append(opts, s3.WithEndpoint(cfg.S3.Endpoint))
		}
		st, err := s3.New(ctx, bucket, opts...)
		if err != nil {
			return nil, "", err
		}
		if cfg.S3.DDBTable == "" {
			return st, prefix, nil
		}
		ddb, err := newDynamoDB(ctx, cfg.S3)
		if err != nil {
			return nil, "", err
		}
		base := (&url.URL{Scheme: "s3", Host: bucket}).String()
		return s3.NewDDBCommitStore(st, ddb, cfg.S3.DDBTable, base), prefix, nil

	case "minio":
		if cfg.MinIO.Endpoint == "" {
			return nil, "", fmt.Errorf("%s: storage.minio.endpoint is not configured", location)
		}
		st, err := minio.New(ctx, minio.Config{
			Endpoint:     cfg.MinIO.Endpoint,
			AccessKey:    cfg.MinIO.AccessKey,
			SecretKey:    cfg.MinIO.SecretKey,
			Secure:       cfg.MinIO.Secure,
			Region:       cfg.MinIO.Region,
			Bucket:       bucket,
			CreateBucket: cfg.MinIO.CreateBucket,
		})
		if err != nil {
			return nil, "", err
		}
		return st, prefix, nil

	default:
		return nil, "", fmt.Errorf("%s: unsupported scheme %q", location, scheme)
	}
}

func newDynamoDB(ctx context.Context, cfg config.S3Config) (*dynamodb.Client, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return dynamodb.NewFromConfig(awsCfg), nil
}
