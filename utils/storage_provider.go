package utils

import (
	"context"
	"fmt"
	"os"
	"strings"
)

const (
	StorageProviderLocal = "local"
	StorageProviderGCS   = "gcs"
)

func GetStorageProvider() string {
	provider := strings.TrimSpace(strings.ToLower(os.Getenv("STORAGE_PROVIDER")))
	if provider == "" {
		return StorageProviderLocal
	}
	return provider
}

// NewUploadStore builds the store selected by STORAGE_PROVIDER.
func NewUploadStore(ctx context.Context, localDir string) (UploadStore, error) {
	switch provider := GetStorageProvider(); provider {
	case StorageProviderLocal:
		return NewLocalStore(localDir)
	case StorageProviderGCS:
		return NewGCSStore(ctx, os.Getenv("GCS_BUCKET"))
	default:
		return nil, fmt.Errorf("storage provider %q not supported", provider)
	}
}
