package store

import (
	"context"
	"io"
	"time"
)

// BlobInfo describes a stored object.
type BlobInfo struct {
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"contentType,omitempty"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

// Blob is the object store used for uploaded files and whole documents.
type Blob interface {
	// Put replaces any object stored under name.
	Put(ctx context.Context, name, contentType string, r io.Reader) error
	// Open returns ErrNotFound for a missing name.
	Open(ctx context.Context, name string) (io.ReadCloser, BlobInfo, error)
	List(ctx context.Context, prefix string) ([]BlobInfo, error)
	// Delete is a no-op for a missing name.
	Delete(ctx context.Context, name string) error
}
