package storage

import (
	"context"
	"io"
)

// ObjectStorage is the narrow contract the archiver depends on. The concrete
// backend is any S3-compatible service (MinIO, R2, AWS).
type ObjectStorage interface {
	// Upload stores an object under key with the given content type.
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error

	// GetURL returns the public URL for accessing an object.
	GetURL(key string) string

	// EnsureBucket creates the bucket if it does not exist.
	EnsureBucket(ctx context.Context) error
}
