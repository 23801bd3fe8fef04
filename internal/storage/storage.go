// Package storage persists uploaded receipt images and fetches remote
// ones for scan-by-URL requests.
package storage

import "context"

// FileStore saves and retrieves receipt image files. The local backend
// writes under the configured uploads directory; the Azure backend
// archives blobs in a container.
type FileStore interface {
	// Save stores the file and returns the name it was stored under.
	Save(ctx context.Context, filename string, data []byte) (string, error)

	// Get retrieves a previously stored file.
	Get(ctx context.Context, filename string) ([]byte, error)

	// Delete removes a stored file.
	Delete(ctx context.Context, filename string) error
}

// ImageFetcher retrieves image bytes from a remote URL.
type ImageFetcher interface {
	Fetch(ctx context.Context, imageURL string) ([]byte, error)
}
