package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog/log"

	"github.com/coffer-io/coffer/pkg/config"
)

// S3Backend stores objects in an S3 bucket. It also serves S3-compatible
// stores (MinIO, LocalStack) via a custom endpoint with path-style
// addressing.
type S3Backend struct {
	client *s3.Client
	bucket string
}

// NewS3Backend creates an S3 backend from storage configuration. Static
// credentials from the config take precedence; otherwise the SDK's default
// credential chain (env, shared config, instance role) is used.
func NewS3Backend(ctx context.Context, cfg *config.StorageConfig) (*S3Backend, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 storage requires a bucket name")
	}

	var awsCfg aws.Config
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		awsCfg = aws.Config{
			Region:      cfg.Region,
			Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		}
	} else {
		var err error
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
		if err != nil {
			return nil, fmt.Errorf("failed to load aws config: %w", err)
		}
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	log.Info().Str("bucket", cfg.Bucket).Str("endpoint", cfg.Endpoint).Msg("s3 storage initialized")
	return &S3Backend{client: client, bucket: cfg.Bucket}, nil
}

// Exists reports whether an object is present at path.
func (sb *S3Backend) Exists(ctx context.Context, path string) (bool, error) {
	_, err := sb.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(sb.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		var notFound *s3types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Download returns the content of the object at path.
func (sb *S3Backend) Download(ctx context.Context, path string) (io.ReadCloser, error) {
	resp, err := sb.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(sb.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		var noKey *s3types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}
	return resp.Body, nil
}

// Upload writes content to path, replacing any existing object.
func (sb *S3Backend) Upload(ctx context.Context, path string, content io.Reader) error {
	_, err := sb.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(sb.bucket),
		Key:    aws.String(path),
		Body:   content,
	})
	return err
}

// UploadExclusive writes content to path only if no object is present
// there, using an If-None-Match:* conditional put evaluated by the service.
func (sb *S3Backend) UploadExclusive(ctx context.Context, path string, content io.Reader) error {
	_, err := sb.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(sb.bucket),
		Key:         aws.String(path),
		Body:        content,
		IfNoneMatch: aws.String("*"),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "PreconditionFailed" {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, path)
		}
		return err
	}
	return nil
}

// Delete removes the object at path. S3 reports success for missing keys;
// on a versioned bucket this places a delete marker over all versions.
func (sb *S3Backend) Delete(ctx context.Context, path string) error {
	_, err := sb.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(sb.bucket),
		Key:    aws.String(path),
	})
	return err
}

// Size returns the size in bytes of the object at path.
func (sb *S3Backend) Size(ctx context.Context, path string) (int64, error) {
	resp, err := sb.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(sb.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		var notFound *s3types.NotFound
		if errors.As(err, &notFound) {
			return 0, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return 0, err
	}
	return aws.ToInt64(resp.ContentLength), nil
}

// List returns the keys of all objects under prefix.
func (sb *S3Backend) List(ctx context.Context, prefix string) ([]string, error) {
	var paths []string
	paginator := s3.NewListObjectsV2Paginator(sb.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(sb.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		for _, obj := range page.Contents {
			paths = append(paths, aws.ToString(obj.Key))
		}
	}
	return paths, nil
}
