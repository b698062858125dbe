package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coffer-io/coffer/pkg/config"
)

func TestFactory_CreateLocalBackend(t *testing.T) {
	tempDir := t.TempDir()

	storageConfig := &config.StorageConfig{
		Type:      "local",
		LocalPath: tempDir,
	}

	factory := NewFactory(storageConfig)
	backend, err := factory.CreateBackend(context.Background())

	require.NoError(t, err)
	require.NotNil(t, backend)

	// Test that we can perform basic operations
	ctx := context.Background()
	testPath := "factory_test.txt"
	testContent := "content from factory test"

	err = backend.Upload(ctx, testPath, strings.NewReader(testContent))
	assert.NoError(t, err)

	exists, err := backend.Exists(ctx, testPath)
	assert.NoError(t, err)
	assert.True(t, exists)

	rc, err := backend.Download(ctx, testPath)
	require.NoError(t, err)
	defer rc.Close()

	retrieved := make([]byte, len(testContent))
	n, err := rc.Read(retrieved)
	assert.NoError(t, err)
	assert.Equal(t, len(testContent), n)
	assert.Equal(t, testContent, string(retrieved))
}

func TestFactory_UnsupportedType(t *testing.T) {
	storageConfig := &config.StorageConfig{
		Type: "unsupported",
	}

	factory := NewFactory(storageConfig)
	backend, err := factory.CreateBackend(context.Background())

	assert.Error(t, err)
	assert.Nil(t, backend)
	assert.Contains(t, err.Error(), "unsupported storage type")
}

func TestFactory_GCSNotSupported(t *testing.T) {
	storageConfig := &config.StorageConfig{
		Type: "gcs",
	}

	factory := NewFactory(storageConfig)
	backend, err := factory.CreateBackend(context.Background())

	assert.Error(t, err)
	assert.Nil(t, backend)
	assert.Contains(t, err.Error(), "not supported")
}

func TestFactory_AzureRequiresConfig(t *testing.T) {
	tests := []struct {
		name   string
		config config.StorageConfig
	}{
		{
			name:   "missing connection string",
			config: config.StorageConfig{Type: "azure", Container: "docs"},
		},
		{
			name:   "missing container",
			config: config.StorageConfig{Type: "azure", ConnectionString: "UseDevelopmentStorage=true"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factory := NewFactory(&tt.config)
			backend, err := factory.CreateBackend(context.Background())

			assert.Error(t, err)
			assert.Nil(t, backend)
		})
	}
}

func TestFactory_S3RequiresBucket(t *testing.T) {
	storageConfig := &config.StorageConfig{
		Type: "s3",
	}

	factory := NewFactory(storageConfig)
	backend, err := factory.CreateBackend(context.Background())

	assert.Error(t, err)
	assert.Nil(t, backend)
	assert.Contains(t, err.Error(), "bucket")
}

func TestFactory_CreateClient(t *testing.T) {
	storageConfig := &config.StorageConfig{
		Type:      "local",
		LocalPath: t.TempDir(),
	}

	factory := NewFactory(storageConfig)
	client, err := factory.CreateClient(context.Background())

	require.NoError(t, err)
	require.NotNil(t, client)

	ctx := context.Background()
	ref, err := client.SaveObject(ctx, strings.NewReader("hello"), "a.txt", false)
	require.NoError(t, err)
	assert.Equal(t, storageConfig.LocalPath, ref.Container)

	_, err = client.SaveObject(ctx, strings.NewReader("world"), "a.txt", false)
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestFactory_CreateClient_ConditionalWrite(t *testing.T) {
	storageConfig := &config.StorageConfig{
		Type:             "local",
		LocalPath:        t.TempDir(),
		ConditionalWrite: true,
	}

	factory := NewFactory(storageConfig)
	client, err := factory.CreateClient(context.Background())
	require.NoError(t, err)

	ctx := context.Background()
	_, err = client.SaveObject(ctx, strings.NewReader("hello"), "a.txt", false)
	require.NoError(t, err)

	_, err = client.SaveObject(ctx, strings.NewReader("world"), "a.txt", false)
	assert.ErrorIs(t, err, ErrAlreadyExists)
}
