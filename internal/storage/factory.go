package storage

import (
	"fmt"

	"go-receipt-scanner/internal/config"
)

// NewFileStore selects a FileStore implementation from configuration.
func NewFileStore(cfg *config.Config) (FileStore, error) {
	switch cfg.StorageBackend {
	case config.StorageLocal:
		return NewLocalStore(cfg.UploadsDir)
	case config.StorageAzure:
		return NewAzureStore(cfg.AzureAccount, cfg.AzureKey, cfg.AzureContainer)
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.StorageBackend)
	}
}
