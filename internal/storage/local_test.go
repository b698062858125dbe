package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestBackend(t *testing.T) *LocalBackend {
	backend, err := NewLocalBackend(t.TempDir())
	require.NoError(t, err)
	return backend
}

func createTempFile(t *testing.T) string {
	tempFile, err := os.CreateTemp("", "test")
	require.NoError(t, err)
	tempFile.Close()
	t.Cleanup(func() { os.Remove(tempFile.Name()) })
	return tempFile.Name()
}

func TestNewLocalBackend(t *testing.T) {
	tests := []struct {
		name        string
		basePath    string
		shouldError bool
	}{
		{
			name:        "valid path",
			basePath:    t.TempDir(),
			shouldError: false,
		},
		{
			name:        "non-existent path",
			basePath:    filepath.Join(t.TempDir(), "nested", "path"),
			shouldError: false,
		},
		{
			name:        "invalid path (file instead of directory)",
			basePath:    createTempFile(t),
			shouldError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend, err := NewLocalBackend(tt.basePath)

			if tt.shouldError {
				assert.Error(t, err)
				assert.Nil(t, backend)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, backend)

				info, err := os.Stat(tt.basePath)
				assert.NoError(t, err)
				assert.True(t, info.IsDir())
			}
		})
	}
}

func TestLocalBackend_Upload(t *testing.T) {
	backend := setupTestBackend(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		path    string
		content string
	}{
		{
			name:    "simple file",
			path:    "test.txt",
			content: "hello world",
		},
		{
			name:    "nested path",
			path:    "nested/dir/test.txt",
			content: "nested content",
		},
		{
			name:    "binary content",
			path:    "binary.bin",
			content: string([]byte{0x00, 0x01, 0x02, 0xFF}),
		},
		{
			name:    "empty content",
			path:    "empty.txt",
			content: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := backend.Upload(ctx, tt.path, strings.NewReader(tt.content))
			require.NoError(t, err)

			exists, err := backend.Exists(ctx, tt.path)
			assert.NoError(t, err)
			assert.True(t, exists)

			rc, err := backend.Download(ctx, tt.path)
			require.NoError(t, err)
			defer rc.Close()

			content, err := io.ReadAll(rc)
			assert.NoError(t, err)
			assert.Equal(t, tt.content, string(content))
		})
	}
}

func TestLocalBackend_UploadAtomic(t *testing.T) {
	backend := setupTestBackend(t)
	ctx := context.Background()

	// a failed write must not leave a partial object or a temp file behind
	failing := &failingReader{data: []byte("some data"), failAfter: 5}

	err := backend.Upload(ctx, "failing.txt", failing)
	assert.Error(t, err)

	exists, err := backend.Exists(ctx, "failing.txt")
	assert.NoError(t, err)
	assert.False(t, exists)

	files, err := os.ReadDir(backend.basePath)
	assert.NoError(t, err)
	for _, file := range files {
		assert.False(t, strings.Contains(file.Name(), ".tmp."),
			"temp file should not exist: %s", file.Name())
	}
}

func TestLocalBackend_UploadOverwrites(t *testing.T) {
	backend := setupTestBackend(t)
	ctx := context.Background()

	require.NoError(t, backend.Upload(ctx, "file.txt", strings.NewReader("first")))
	require.NoError(t, backend.Upload(ctx, "file.txt", strings.NewReader("second")))

	rc, err := backend.Download(ctx, "file.txt")
	require.NoError(t, err)
	defer rc.Close()

	content, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "second", string(content))
}

func TestLocalBackend_UploadExclusive(t *testing.T) {
	backend := setupTestBackend(t)
	ctx := context.Background()

	err := backend.UploadExclusive(ctx, "claim.txt", strings.NewReader("first"))
	require.NoError(t, err)

	err = backend.UploadExclusive(ctx, "claim.txt", strings.NewReader("second"))
	assert.ErrorIs(t, err, ErrAlreadyExists)

	rc, err := backend.Download(ctx, "claim.txt")
	require.NoError(t, err)
	defer rc.Close()

	content, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "first", string(content))
}

func TestLocalBackend_UploadExclusive_FailureCleansUp(t *testing.T) {
	backend := setupTestBackend(t)
	ctx := context.Background()

	failing := &failingReader{data: []byte("some data"), failAfter: 5}
	err := backend.UploadExclusive(ctx, "claim.txt", failing)
	assert.Error(t, err)

	// the path must be claimable again after the failed write
	err = backend.UploadExclusive(ctx, "claim.txt", strings.NewReader("retry"))
	assert.NoError(t, err)
}

func TestLocalBackend_Download(t *testing.T) {
	backend := setupTestBackend(t)
	ctx := context.Background()

	testContent := "test content for retrieval"
	require.NoError(t, backend.Upload(ctx, "retrieve_test.txt", strings.NewReader(testContent)))

	t.Run("existing file", func(t *testing.T) {
		rc, err := backend.Download(ctx, "retrieve_test.txt")
		require.NoError(t, err)
		defer rc.Close()

		content, err := io.ReadAll(rc)
		assert.NoError(t, err)
		assert.Equal(t, testContent, string(content))
	})

	t.Run("non-existent file", func(t *testing.T) {
		rc, err := backend.Download(ctx, "non_existent.txt")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Nil(t, rc)
	})
}

func TestLocalBackend_Delete(t *testing.T) {
	backend := setupTestBackend(t)
	ctx := context.Background()

	require.NoError(t, backend.Upload(ctx, "delete_test.txt", strings.NewReader("test content")))

	tests := []struct {
		name string
		path string
	}{
		{name: "existing file", path: "delete_test.txt"},
		{name: "non-existent file", path: "non_existent.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := backend.Delete(ctx, tt.path)
			assert.NoError(t, err)

			exists, err := backend.Exists(ctx, tt.path)
			assert.NoError(t, err)
			assert.False(t, exists)
		})
	}
}

func TestLocalBackend_Exists(t *testing.T) {
	backend := setupTestBackend(t)
	ctx := context.Background()

	require.NoError(t, backend.Upload(ctx, "exists_test.txt", strings.NewReader("test content")))

	tests := []struct {
		name     string
		path     string
		expected bool
	}{
		{name: "existing file", path: "exists_test.txt", expected: true},
		{name: "non-existent file", path: "non_existent.txt", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exists, err := backend.Exists(ctx, tt.path)
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, exists)
		})
	}
}

func TestLocalBackend_Size(t *testing.T) {
	backend := setupTestBackend(t)
	ctx := context.Background()

	testContent := "test content with known size"
	require.NoError(t, backend.Upload(ctx, "size_test.txt", strings.NewReader(testContent)))

	size, err := backend.Size(ctx, "size_test.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(len(testContent)), size)

	_, err = backend.Size(ctx, "non_existent.txt")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalBackend_List(t *testing.T) {
	backend := setupTestBackend(t)
	ctx := context.Background()

	testFiles := []string{
		"file1.txt",
		"file2.txt",
		"nested/file3.txt",
		"nested/deeper/file4.txt",
	}
	for _, file := range testFiles {
		require.NoError(t, backend.Upload(ctx, file, strings.NewReader("content")))
	}

	tests := []struct {
		name          string
		prefix        string
		expectedFiles []string
	}{
		{
			name:          "root level",
			prefix:        "",
			expectedFiles: testFiles,
		},
		{
			name:   "nested directory",
			prefix: "nested",
			expectedFiles: []string{
				"nested/file3.txt",
				"nested/deeper/file4.txt",
			},
		},
		{
			name:          "non-existent prefix",
			prefix:        "nonexistent",
			expectedFiles: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files, err := backend.List(ctx, tt.prefix)
			assert.NoError(t, err)
			assert.ElementsMatch(t, tt.expectedFiles, files)
		})
	}
}

func TestLocalBackend_ConcurrentAccess(t *testing.T) {
	backend := setupTestBackend(t)
	ctx := context.Background()

	t.Run("concurrent writes", func(t *testing.T) {
		const numGoroutines = 10
		var wg sync.WaitGroup
		wg.Add(numGoroutines)

		for i := 0; i < numGoroutines; i++ {
			go func(index int) {
				defer wg.Done()

				path := fmt.Sprintf("concurrent_%d.txt", index)
				content := fmt.Sprintf("content from goroutine %d", index)

				err := backend.Upload(ctx, path, strings.NewReader(content))
				assert.NoError(t, err)
			}(i)
		}

		wg.Wait()

		for i := 0; i < numGoroutines; i++ {
			exists, err := backend.Exists(ctx, fmt.Sprintf("concurrent_%d.txt", i))
			assert.NoError(t, err)
			assert.True(t, exists)
		}
	})

	t.Run("concurrent exclusive writers race to one winner", func(t *testing.T) {
		const numGoroutines = 10
		var wg sync.WaitGroup
		wg.Add(numGoroutines)

		winners := make(chan int, numGoroutines)
		for i := 0; i < numGoroutines; i++ {
			go func(index int) {
				defer wg.Done()

				content := fmt.Sprintf("writer %d", index)
				if err := backend.UploadExclusive(ctx, "contested.txt", strings.NewReader(content)); err == nil {
					winners <- index
				}
			}(i)
		}

		wg.Wait()
		close(winners)

		var count int
		for range winners {
			count++
		}
		assert.Equal(t, 1, count)
	})
}

func TestLocalBackend_ContextCancellation(t *testing.T) {
	backend := setupTestBackend(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := backend.Upload(ctx, "cancelled.txt", strings.NewReader("content"))
	assert.ErrorIs(t, err, context.Canceled)

	rc, err := backend.Download(ctx, "cancelled.txt")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, rc)
}

// failingReader fails after reading a certain number of bytes
type failingReader struct {
	data      []byte
	pos       int
	failAfter int
}

func (fr *failingReader) Read(p []byte) (n int, err error) {
	if fr.pos >= fr.failAfter {
		return 0, io.ErrUnexpectedEOF
	}

	if fr.pos >= len(fr.data) {
		return 0, io.EOF
	}

	n = copy(p, fr.data[fr.pos:])
	fr.pos += n

	if fr.pos >= fr.failAfter {
		return n, io.ErrUnexpectedEOF
	}

	return n, nil
}
