package storage

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/coffer-io/coffer/pkg/types"
)

// Client performs existence checks, reads, writes and deletes against a
// Backend, enforcing the overwrite and existence guards. It carries no
// mutable state; a single Client may be shared between goroutines.
type Client struct {
	backend          Backend
	container        string
	conditionalWrite bool
}

// Option configures a Client.
type Option func(*Client)

// WithConditionalWrite makes SaveObject use the backend's atomic
// put-if-absent instead of the default existence check followed by a write.
// The default can lose the race between check and write when two callers
// target the same path; conditional mode cannot, at the cost of requiring
// backend support.
func WithConditionalWrite() Option {
	return func(c *Client) { c.conditionalWrite = true }
}

// NewClient returns a Client over backend. container is the namespace name
// reported in the handles returned by writes (the Azure container, S3
// bucket, or local base path).
func NewClient(backend Backend, container string, opts ...Option) *Client {
	c := &Client{backend: backend, container: container}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Exists reports whether an object is present at path. A missing object is
// a false result, never an error.
func (c *Client) Exists(ctx context.Context, path string) (bool, error) {
	return c.backend.Exists(ctx, path)
}

// ReadAll returns the full content of the object at path. Returns
// ErrNotFound if the object is absent; no existence pre-check is made.
func (c *Client) ReadAll(ctx context.Context, path string) ([]byte, error) {
	rc, err := c.backend.Download(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

// DownloadToFile streams the object at remotePath into a newly created file
// at localPath. Returns ErrNotFound if the remote object is absent and
// ErrLocalFileExists if localPath is already present; existing local files
// are never overwritten. On failure after the file was created, the partial
// file is removed.
func (c *Client) DownloadToFile(ctx context.Context, remotePath, localPath string) error {
	ok, err := c.backend.Exists(ctx, remotePath)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, remotePath)
	}

	f, err := os.OpenFile(localPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("%w: %s", ErrLocalFileExists, localPath)
		}
		return fmt.Errorf("creating %s: %w", localPath, err)
	}

	rc, err := c.backend.Download(ctx, remotePath)
	if err != nil {
		f.Close()
		os.Remove(localPath)
		return err
	}
	defer rc.Close()

	if _, err := io.Copy(f, rc); err != nil {
		f.Close()
		os.Remove(localPath)
		return fmt.Errorf("writing %s: %w", localPath, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(localPath)
		return fmt.Errorf("closing %s: %w", localPath, err)
	}

	log.Debug().Str("remote", remotePath).Str("local", localPath).Msg("object downloaded to file")
	return nil
}

// UploadFile uploads the content of the local file at localPath to
// remotePath. The overwrite flag behaves exactly as in SaveObject.
func (c *Client) UploadFile(ctx context.Context, localPath, remotePath string, overwrite bool) (*types.ObjectRef, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", localPath, err)
	}
	defer f.Close()

	return c.SaveObject(ctx, f, remotePath, overwrite)
}

// SaveObject writes content to remotePath and returns a handle to the
// written object. With overwrite false, an object already present at
// remotePath fails the call with ErrAlreadyExists. The guard is an
// existence check followed by an unconditional write, so two concurrent
// savers can both pass the check and the later write wins; a Client built
// WithConditionalWrite replaces the pair with a single atomic
// put-if-absent.
func (c *Client) SaveObject(ctx context.Context, content io.Reader, remotePath string, overwrite bool) (*types.ObjectRef, error) {
	if !overwrite {
		if c.conditionalWrite {
			if err := c.backend.UploadExclusive(ctx, remotePath, content); err != nil {
				return nil, err
			}
			log.Debug().Str("path", remotePath).Msg("object saved (conditional)")
			return &types.ObjectRef{Container: c.container, Path: remotePath}, nil
		}
		ok, err := c.backend.Exists(ctx, remotePath)
		if err != nil {
			return nil, err
		}
		if ok {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, remotePath)
		}
	}

	if err := c.backend.Upload(ctx, remotePath, content); err != nil {
		return nil, err
	}

	log.Debug().Str("path", remotePath).Bool("overwrite", overwrite).Msg("object saved")
	return &types.ObjectRef{Container: c.container, Path: remotePath}, nil
}

// DeleteObject removes the object at path, snapshots included, and reports
// whether the object is gone afterwards. The delete itself does not fail
// for an absent object; the result is a post-hoc existence check, not a
// transactional guarantee, so a concurrent writer recreating the object
// makes the call return false even though the delete went through.
func (c *Client) DeleteObject(ctx context.Context, path string) (bool, error) {
	if err := c.backend.Delete(ctx, path); err != nil {
		return false, err
	}

	ok, err := c.backend.Exists(ctx, path)
	if err != nil {
		return false, err
	}

	log.Debug().Str("path", path).Bool("gone", !ok).Msg("object deleted")
	return !ok, nil
}

// Size returns the size in bytes of the object at path.
func (c *Client) Size(ctx context.Context, path string) (int64, error) {
	return c.backend.Size(ctx, path)
}

// List returns the paths of all objects under prefix.
func (c *Client) List(ctx context.Context, prefix string) ([]string, error) {
	return c.backend.List(ctx, prefix)
}
