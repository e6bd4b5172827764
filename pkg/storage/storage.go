package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned when a blob does not exist in the store.
var ErrNotFound = errors.New("blob not found")

// BlobInfo describes a stored blob.
type BlobInfo struct {
	Name       string
	Size       int64
	ModifiedAt time.Time
}

// BlobStore persists binary content under generated names.
type BlobStore interface {
	Put(ctx context.Context, name string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, name string) (io.ReadCloser, int64, error)
	Delete(ctx context.Context, name string) error
	List(ctx context.Context) ([]BlobInfo, error)
}
