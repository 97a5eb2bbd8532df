// Package publish uploads written campaign documents to S3-compatible storage.
// When no bucket is configured the NoopUploader is used and publishing is
// skipped, leaving the local directories as the only output.
package publish

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/sevabrata/campaignsync/internal/config"
	"github.com/sevabrata/campaignsync/internal/types"
)

// ErrNotConfigured is returned when object storage is not configured.
var ErrNotConfigured = errors.New("publish storage not configured")

const contentType = "application/json"

// Uploader uploads bucket documents.
type Uploader interface {
	// Upload copies the local file at filePath to the object for status/name.
	Upload(ctx context.Context, status types.Status, name, filePath string) error

	// Enabled reports whether uploads go anywhere.
	Enabled() bool
}

// s3Client defines the minimal minio.Client operations used by S3Uploader.
type s3Client interface {
	FPutObject(ctx context.Context, bucket, objectName, filePath, contentType string) error
}

// minioClientWrapper wraps *minio.Client to satisfy the s3Client interface.
type minioClientWrapper struct {
	client *minio.Client
}

func (w *minioClientWrapper) FPutObject(ctx context.Context, bucket, objectName, filePath, contentType string) error {
	_, err := w.client.FPutObject(ctx, bucket, objectName, filePath, minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: "no-cache",
	})
	return err
}

// S3Uploader uploads documents to S3-compatible storage.
type S3Uploader struct {
	client s3Client
	bucket string
	prefix string
}

// Upload uploads the document at filePath.
func (u *S3Uploader) Upload(ctx context.Context, status types.Status, name, filePath string) error {
	key := ObjectKey(u.prefix, status, name)
	if err := u.client.FPutObject(ctx, u.bucket, key, filePath, contentType); err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}

// Enabled always reports true for S3Uploader.
func (u *S3Uploader) Enabled() bool { return true }

// NoopUploader is used when object storage is not configured.
type NoopUploader struct{}

// Upload is a no-op when object storage is not configured.
func (u *NoopUploader) Upload(ctx context.Context, status types.Status, name, filePath string) error {
	return nil
}

// Enabled always reports false for NoopUploader.
func (u *NoopUploader) Enabled() bool { return false }

// NewUploader creates the appropriate Uploader based on configuration.
// Returns NoopUploader when bucket is empty, S3Uploader otherwise.
func NewUploader(cfg config.PublishConfig) (Uploader, error) {
	if cfg.Bucket == "" {
		return &NoopUploader{}, nil
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("%w: bucket %q has no endpoint", ErrNotConfigured, cfg.Bucket)
	}

	useSSL := true
	if cfg.UseSSL != nil {
		useSSL = *cfg.UseSSL
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create S3 client: %w", err)
	}

	return &S3Uploader{
		client: &minioClientWrapper{client: client},
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

// ObjectKey returns the object key for a bucket document.
// Convention: {prefix}/{status}/{name}, mirroring the local layout.
func ObjectKey(prefix string, status types.Status, name string) string {
	return path.Join(prefix, string(status), name)
}
