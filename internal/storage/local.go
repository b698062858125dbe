package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// LocalBackend implements Backend on the local filesystem under a base
// directory. It exists for development and tests; the filesystem keeps no
// snapshots, so Delete's snapshot semantics are trivially satisfied.
type LocalBackend struct {
	basePath string
	mutex    sync.RWMutex
}

// NewLocalBackend creates a filesystem backend rooted at basePath, creating
// the directory if needed.
func NewLocalBackend(basePath string) (*LocalBackend, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		log.Error().Err(err).Str("path", basePath).Msg("failed to create storage directory")
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	log.Info().Str("path", basePath).Msg("local storage initialized")
	return &LocalBackend{basePath: basePath}, nil
}

// Exists reports whether an object is present at path.
func (lb *LocalBackend) Exists(ctx context.Context, path string) (bool, error) {
	lb.mutex.RLock()
	defer lb.mutex.RUnlock()

	if err := ctx.Err(); err != nil {
		return false, err
	}

	_, err := os.Stat(filepath.Join(lb.basePath, path))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check file existence: %w", err)
	}
	return true, nil
}

// Download opens the object at path for reading.
func (lb *LocalBackend) Download(ctx context.Context, path string) (io.ReadCloser, error) {
	lb.mutex.RLock()
	defer lb.mutex.RUnlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(lb.basePath, path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return f, nil
}

// Upload writes content to path, replacing any existing file. The write is
// atomic: content goes to a temp file in the same directory and is renamed
// into place, so a failed write never leaves a partial object behind.
func (lb *LocalBackend) Upload(ctx context.Context, path string, content io.Reader) error {
	lb.mutex.Lock()
	defer lb.mutex.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	fullPath := filepath.Join(lb.basePath, path)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tempPath := fullPath + ".tmp." + fmt.Sprintf("%d", time.Now().UnixNano())
	tempFile, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer func() {
		tempFile.Close()
		if _, err := os.Stat(tempPath); err == nil {
			os.Remove(tempPath)
		}
	}()

	written, err := io.Copy(tempFile, content)
	if err != nil {
		return fmt.Errorf("failed to write content: %w", err)
	}
	if err := tempFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync temporary file: %w", err)
	}
	tempFile.Close()

	if err := os.Rename(tempPath, fullPath); err != nil {
		return fmt.Errorf("failed to move file to final location: %w", err)
	}

	log.Debug().Str("path", path).Int64("bytes_written", written).Msg("file stored")
	return nil
}

// UploadExclusive writes content to path only if no file is present there.
// The exclusive-create open makes the check and the claim a single step.
func (lb *LocalBackend) UploadExclusive(ctx context.Context, path string, content io.Reader) error {
	lb.mutex.Lock()
	defer lb.mutex.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	fullPath := filepath.Join(lb.basePath, path)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := os.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, path)
		}
		return fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := io.Copy(f, content); err != nil {
		f.Close()
		os.Remove(fullPath)
		return fmt.Errorf("failed to write content: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(fullPath)
		return fmt.Errorf("failed to sync file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(fullPath)
		return fmt.Errorf("failed to close file: %w", err)
	}

	log.Debug().Str("path", path).Msg("file stored exclusively")
	return nil
}

// Delete removes the file at path. A missing file is not an error.
func (lb *LocalBackend) Delete(ctx context.Context, path string) error {
	lb.mutex.Lock()
	defer lb.mutex.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(lb.basePath, path)); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}

	log.Debug().Str("path", path).Msg("file deleted")
	return nil
}

// Size returns the size in bytes of the file at path.
func (lb *LocalBackend) Size(ctx context.Context, path string) (int64, error) {
	lb.mutex.RLock()
	defer lb.mutex.RUnlock()

	if err := ctx.Err(); err != nil {
		return 0, err
	}

	info, err := os.Stat(filepath.Join(lb.basePath, path))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return 0, fmt.Errorf("failed to get file info: %w", err)
	}
	return info.Size(), nil
}

// List returns the paths of all files under prefix, relative to the base
// directory.
func (lb *LocalBackend) List(ctx context.Context, prefix string) ([]string, error) {
	lb.mutex.RLock()
	defer lb.mutex.RUnlock()

	searchPath := filepath.Join(lb.basePath, prefix)
	var paths []string

	err := filepath.Walk(searchPath, func(path string, info os.FileInfo, err error) error {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if err != nil {
			if os.IsNotExist(err) || os.IsPermission(err) {
				return filepath.SkipDir
			}
			return err
		}
		if !info.IsDir() {
			relPath, err := filepath.Rel(lb.basePath, path)
			if err != nil {
				return err
			}
			paths = append(paths, filepath.ToSlash(relPath))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	return paths, nil
}
