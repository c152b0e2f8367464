// Package minio stores review images in an S3-compatible bucket.
package minio

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/utafrali/fitvibe/services/review/internal/storage"
)

// Config holds the connection settings of the bucket.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicURL overrides the scheme and host of issued URLs, for buckets
	// served through a CDN. Defaults to the endpoint.
	PublicURL string
}

// Storage implements storage.Storage on MinIO.
type Storage struct {
	client *minio.Client
	bucket string
	base   string
}

// New connects to MinIO and creates the bucket when it does not exist.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Storage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
		logger.Info("created image bucket", slog.String("bucket", cfg.Bucket))
	}

	return &Storage{
		client: client,
		bucket: cfg.Bucket,
		base:   bucketURL(cfg),
	}, nil
}

// bucketURL is the prefix of every object URL, ending in a slash.
func bucketURL(cfg Config) string {
	base := strings.TrimRight(cfg.PublicURL, "/")
	if base == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		base = scheme + "://" + cfg.Endpoint
	}
	return base + "/" + cfg.Bucket + "/"
}

// Upload puts an object into the bucket.
func (s *Storage) Upload(ctx context.Context, input *storage.UploadInput) (*storage.UploadResult, error) {
	_, err := s.client.PutObject(ctx, s.bucket, input.Key, input.Data, input.Size, minio.PutObjectOptions{
		ContentType: input.ContentType,
	})
	if err != nil {
		return nil, fmt.Errorf("put object %s: %w", input.Key, err)
	}
	return &storage.UploadResult{Key: input.Key, URL: s.base + input.Key}, nil
}

// Delete removes an object from the bucket.
func (s *Storage) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %s: %w", key, err)
	}
	return nil
}

// GetURL returns the public URL of key.
func (s *Storage) GetURL(_ context.Context, key string) (string, error) {
	return s.base + key, nil
}

// KeyForURL strips the bucket prefix from url.
func (s *Storage) KeyForURL(url string) (string, bool) {
	return keyForURL(s.base, url)
}

func keyForURL(base, url string) (string, bool) {
	key, ok := strings.CutPrefix(url, base)
	if !ok || key == "" {
		return "", false
	}
	return key, true
}
