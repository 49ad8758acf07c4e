// Package blob stores uploaded attachment bytes in S3-compatible
// object storage and hands out presigned read URLs.
package blob

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/6ixplatform/6ix-sub001/common/logger"
)

// Config holds the object storage connection settings.
type Config struct {
	Endpoint   string
	AccessKey  string
	SecretKey  string
	Bucket     string
	UseSSL     bool
	PresignTTL time.Duration
}

// Store wraps one bucket.
type Store struct {
	client     *minio.Client
	bucket     string
	presignTTL time.Duration
}

func New(cfg Config) (*Store, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("blob endpoint and bucket are required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating object storage client: %w", err)
	}

	ttl := cfg.PresignTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{client: client, bucket: cfg.Bucket, presignTTL: ttl}, nil
}

// EnsureBucket creates the bucket when it does not exist yet. Called
// once at startup.
func (s *Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("checking bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("creating bucket %s: %w", s.bucket, err)
	}
	return nil
}

// Put streams one object into the bucket and returns a presigned read
// URL for it.
func (s *Store) Put(ctx context.Context, key, contentType string, size int64, r io.Reader) (string, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "six.blob.store"})

	info, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("storing object %s: %w", key, err)
	}
	slog.DebugContext(ctx, "stored object", "key", key, "size", info.Size)

	return s.PresignedURL(ctx, key)
}

// PresignedURL returns a time-limited read URL for an existing object.
func (s *Store) PresignedURL(ctx context.Context, key string) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, s.presignTTL, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presigning object %s: %w", key, err)
	}
	return u.String(), nil
}
