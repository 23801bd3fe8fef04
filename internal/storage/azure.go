package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

// AzureStore implements FileStore on an Azure Blob Storage container,
// for deployments that archive receipt images off-host.
type AzureStore struct {
	client    *azblob.Client
	container string
}

// NewAzureStore builds a shared-key client for the given storage account.
func NewAzureStore(accountName, accountKey, container string) (*AzureStore, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("building azure credential: %w", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s.blob.core.windows.net", accountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("building azure client: %w", err)
	}

	return &AzureStore{client: client, container: container}, nil
}

// Save uploads the file as a blob named after the sanitized filename.
func (s *AzureStore) Save(ctx context.Context, filename string, data []byte) (string, error) {
	name := SanitizeFilename(filename)
	if _, err := s.client.UploadBuffer(ctx, s.container, name, data, nil); err != nil {
		return "", fmt.Errorf("uploading blob: %w", err)
	}
	return name, nil
}

// Get downloads a blob.
func (s *AzureStore) Get(ctx context.Context, filename string) ([]byte, error) {
	resp, err := s.client.DownloadStream(ctx, s.container, filename, nil)
	if err != nil {
		return nil, fmt.Errorf("downloading blob: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading blob body: %w", err)
	}
	return data, nil
}

// Delete removes a blob.
func (s *AzureStore) Delete(ctx context.Context, filename string) error {
	if _, err := s.client.DeleteBlob(ctx, s.container, filename, nil); err != nil {
		return fmt.Errorf("deleting blob: %w", err)
	}
	return nil
}
