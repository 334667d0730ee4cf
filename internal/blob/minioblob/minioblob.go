// Package minioblob resolves blob references against an S3-compatible
// object store via presigned GET URLs.
package minioblob

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const urlExpiry = 15 * time.Minute

// Config holds connection settings for the object store.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Store resolves blob references to presigned URLs on a single bucket.
// Blob references are object keys.
type Store struct {
	client *minio.Client
	bucket string
}

// New connects to the object store and verifies the bucket exists.
func New(ctx context.Context, cfg Config) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	ok, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("bucket check: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("bucket %q does not exist", cfg.Bucket)
	}

	return &Store{client: client, bucket: cfg.Bucket}, nil
}

// ResolveURL returns a presigned GET URL for the object behind ref.
// A missing object yields ok=false, not an error.
func (s *Store) ResolveURL(ctx context.Context, ref string) (string, bool, error) {
	if _, err := s.client.StatObject(ctx, s.bucket, ref, minio.StatObjectOptions{}); err != nil {
		var resp minio.ErrorResponse
		if errors.As(err, &resp) && resp.Code == "NoSuchKey" {
			return "", false, nil
		}
		return "", false, fmt.Errorf("stat %q: %w", ref, err)
	}

	u, err := s.client.PresignedGetObject(ctx, s.bucket, ref, urlExpiry, url.Values{})
	if err != nil {
		return "", false, fmt.Errorf("presign %q: %w", ref, err)
	}
	return u.String(), true, nil
}
