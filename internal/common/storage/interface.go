package storage

import (
	"context"
	"io"
)

// ObjectStorage is the object store surface used for source archives.
type ObjectStorage interface {
	// PutObject uploads sizeBytes bytes from reader under objectKey.
	PutObject(ctx context.Context, bucket, objectKey string, reader io.Reader, sizeBytes int64, contentType string) error

	// GetObject opens a reader for an object.
	// Caller must close the returned reader.
	GetObject(ctx context.Context, bucket, objectKey string) (io.ReadCloser, error)
}
