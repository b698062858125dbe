package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blockblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
	"github.com/rs/zerolog/log"
)

// AzureBackend stores objects as block blobs in a single Azure Storage
// container. The connection string and container name are fixed at
// construction. Service, container and blob clients are derived fresh on
// every call rather than held on the struct, so a long-lived backend never
// carries a stale handle; the SDK does no network work during derivation.
type AzureBackend struct {
	connectionString string
	containerName    string
}

// NewAzureBackend creates an Azure Blob Storage backend. The connection
// string is an opaque credential/endpoint descriptor consumed by the SDK;
// its contents are not parsed or validated here.
func NewAzureBackend(connectionString, containerName string) (*AzureBackend, error) {
	if connectionString == "" {
		return nil, fmt.Errorf("azure storage requires a connection string")
	}
	if containerName == "" {
		return nil, fmt.Errorf("azure storage requires a container name")
	}

	log.Info().Str("container", containerName).Msg("azure storage initialized")
	return &AzureBackend{
		connectionString: connectionString,
		containerName:    containerName,
	}, nil
}

func (ab *AzureBackend) containerClient() (*container.Client, error) {
	svc, err := azblob.NewClientFromConnectionString(ab.connectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create service client: %w", err)
	}
	return svc.ServiceClient().NewContainerClient(ab.containerName), nil
}

func (ab *AzureBackend) blobClient(path string) (*blob.Client, error) {
	cc, err := ab.containerClient()
	if err != nil {
		return nil, err
	}
	return cc.NewBlobClient(path), nil
}

// Exists reports whether a blob is present at path. A missing blob or a
// missing container both count as absent.
func (ab *AzureBackend) Exists(ctx context.Context, path string) (bool, error) {
	bc, err := ab.blobClient(path)
	if err != nil {
		return false, err
	}

	_, err = bc.GetProperties(ctx, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Download returns the content of the blob at path.
func (ab *AzureBackend) Download(ctx context.Context, path string) (io.ReadCloser, error) {
	bc, err := ab.blobClient(path)
	if err != nil {
		return nil, err
	}

	resp, err := bc.DownloadStream(ctx, nil)
	if err != nil {
		return nil, mapAzureError(err, path)
	}
	return resp.Body, nil
}

// Upload writes content to path as a block blob, replacing any existing
// blob.
func (ab *AzureBackend) Upload(ctx context.Context, path string, content io.Reader) error {
	bbc, err := ab.blockBlobClient(path)
	if err != nil {
		return err
	}

	if _, err := bbc.UploadStream(ctx, content, nil); err != nil {
		return mapAzureError(err, path)
	}
	return nil
}

// UploadExclusive writes content to path only if no blob is present there.
// The If-None-Match:* condition makes the guard a single conditional write
// evaluated by the service, immune to the check-then-act race.
func (ab *AzureBackend) UploadExclusive(ctx context.Context, path string, content io.Reader) error {
	bbc, err := ab.blockBlobClient(path)
	if err != nil {
		return err
	}

	opts := &blockblob.UploadStreamOptions{
		AccessConditions: &blob.AccessConditions{
			ModifiedAccessConditions: &blob.ModifiedAccessConditions{
				IfNoneMatch: to.Ptr(azcore.ETagAny),
			},
		},
	}
	if _, err := bbc.UploadStream(ctx, content, opts); err != nil {
		return mapAzureError(err, path)
	}
	return nil
}

// Delete removes the blob at path along with its snapshots. A missing blob
// is not an error.
func (ab *AzureBackend) Delete(ctx context.Context, path string) error {
	bc, err := ab.blobClient(path)
	if err != nil {
		return err
	}

	opts := &blob.DeleteOptions{
		DeleteSnapshots: to.Ptr(blob.DeleteSnapshotsOptionTypeInclude),
	}
	if _, err := bc.Delete(ctx, opts); err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return nil
		}
		return err
	}
	return nil
}

// Size returns the size in bytes of the blob at path.
func (ab *AzureBackend) Size(ctx context.Context, path string) (int64, error) {
	bc, err := ab.blobClient(path)
	if err != nil {
		return 0, err
	}

	resp, err := bc.GetProperties(ctx, nil)
	if err != nil {
		return 0, mapAzureError(err, path)
	}
	if resp.ContentLength == nil {
		return 0, nil
	}
	return *resp.ContentLength, nil
}

// List returns the paths of all blobs under prefix.
func (ab *AzureBackend) List(ctx context.Context, prefix string) ([]string, error) {
	cc, err := ab.containerClient()
	if err != nil {
		return nil, err
	}

	var paths []string
	pager := cc.NewListBlobsFlatPager(&container.ListBlobsFlatOptions{Prefix: &prefix})
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list blobs: %w", err)
		}
		for _, item := range page.Segment.BlobItems {
			if item.Name != nil {
				paths = append(paths, *item.Name)
			}
		}
	}
	return paths, nil
}

func (ab *AzureBackend) blockBlobClient(path string) (*blockblob.Client, error) {
	cc, err := ab.containerClient()
	if err != nil {
		return nil, err
	}
	return cc.NewBlockBlobClient(path), nil
}

// mapAzureError translates service error codes into this package's error
// kinds; everything else passes through untouched.
func mapAzureError(err error, path string) error {
	switch {
	case bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound):
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	case bloberror.HasCode(err, bloberror.BlobAlreadyExists, bloberror.ConditionNotMet):
		return fmt.Errorf("%w: %s", ErrAlreadyExists, path)
	}
	return err
}
