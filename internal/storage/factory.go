package storage

import (
	"context"
	"fmt"

	"github.com/coffer-io/coffer/pkg/config"
)

// Factory creates storage backends based on configuration.
type Factory struct {
	config *config.StorageConfig
}

// NewFactory creates a new storage factory.
func NewFactory(config *config.StorageConfig) *Factory {
	return &Factory{config: config}
}

// CreateBackend creates a backend instance for the configured type.
func (f *Factory) CreateBackend(ctx context.Context) (Backend, error) {
	switch f.config.Type {
	case "local":
		return NewLocalBackend(f.config.LocalPath)
	case "azure":
		return NewAzureBackend(f.config.ConnectionString, f.config.Container)
	case "s3":
		return NewS3Backend(ctx, f.config)
	case "gcs":
		return nil, fmt.Errorf("gcs storage not supported")
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", f.config.Type)
	}
}

// CreateClient creates a backend for the configured type and wraps it in a
// Client carrying the configured overwrite-guard mode.
func (f *Factory) CreateClient(ctx context.Context) (*Client, error) {
	backend, err := f.CreateBackend(ctx)
	if err != nil {
		return nil, err
	}

	var opts []Option
	if f.config.ConditionalWrite {
		opts = append(opts, WithConditionalWrite())
	}
	return NewClient(backend, f.config.ContainerName(), opts...), nil
}
