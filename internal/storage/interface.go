package storage

import (
	"context"
	"io"
)

// Backend is the backing-store capability the Client drives. Implementations
// exist for Azure Blob Storage, S3-compatible stores and the local filesystem.
type Backend interface {
	// Exists reports whether an object is present at path. Absence is not
	// an error.
	Exists(ctx context.Context, path string) (bool, error)

	// Download returns the content of the object at path. The caller must
	// close the reader. Returns ErrNotFound if the object is absent.
	Download(ctx context.Context, path string) (io.ReadCloser, error)

	// Upload writes content to path, replacing any existing object.
	Upload(ctx context.Context, path string, content io.Reader) error

	// UploadExclusive writes content to path only if no object is present
	// there, atomically where the backend supports it. Returns
	// ErrAlreadyExists if an object is already there.
	UploadExclusive(ctx context.Context, path string, content io.Reader) error

	// Delete removes the object at path together with any snapshots or
	// versions the backend keeps for it. Deleting an absent object is not
	// an error.
	Delete(ctx context.Context, path string) error

	// Size returns the size in bytes of the object at path. Returns
	// ErrNotFound if the object is absent.
	Size(ctx context.Context, path string) (int64, error)

	// List returns the paths of all objects under prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}
