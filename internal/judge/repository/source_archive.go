package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"codejudge/internal/common/storage"

	"github.com/klauspost/compress/zstd"
)

const sourceContentType = "application/zstd"

// SourceArchive stores submitted source code compressed with zstd.
type SourceArchive struct {
	storage storage.ObjectStorage
	bucket  string
	prefix  string
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func NewSourceArchive(store storage.ObjectStorage, bucket, prefix string) (*SourceArchive, error) {
	if store == nil {
		return nil, errors.New("object storage is required")
	}
	if bucket == "" {
		return nil, errors.New("source bucket is required")
	}
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder failed: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder failed: %w", err)
	}
	return &SourceArchive{
		storage: store,
		bucket:  bucket,
		prefix:  strings.Trim(prefix, "/"),
		encoder: encoder,
		decoder: decoder,
	}, nil
}

// ObjectKey is <prefix>/<problemID>/<userID>/<executionID>.zst.
func (a *SourceArchive) ObjectKey(problemID, userID, executionID string) string {
	if userID == "" {
		userID = "anonymous"
	}
	return path.Join(a.prefix, problemID, userID, executionID+".zst")
}

// Put compresses source and uploads it, returning the object key.
func (a *SourceArchive) Put(ctx context.Context, problemID, userID, executionID, source string) (string, error) {
	key := a.ObjectKey(problemID, userID, executionID)
	compressed := a.encoder.EncodeAll([]byte(source), nil)
	if err := a.storage.PutObject(ctx, a.bucket, key, bytes.NewReader(compressed), int64(len(compressed)), sourceContentType); err != nil {
		return "", err
	}
	return key, nil
}

// Get downloads and decompresses an archived source.
func (a *SourceArchive) Get(ctx context.Context, key string) (string, error) {
	reader, err := a.storage.GetObject(ctx, a.bucket, key)
	if err != nil {
		return "", err
	}
	defer func() { _ = reader.Close() }()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(reader); err != nil {
		return "", fmt.Errorf("read archived source failed: %w", err)
	}
	out, err := a.decoder.DecodeAll(buf.Bytes(), nil)
	if err != nil {
		return "", fmt.Errorf("decompress archived source failed: %w", err)
	}
	return string(out), nil
}
