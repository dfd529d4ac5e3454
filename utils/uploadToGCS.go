package utils

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// getGoogleClient initializes a Google Cloud Storage client
func getGoogleClient(ctx context.Context) (*storage.Client, error) {
	// Prefer ADC (Cloud Run service account / GOOGLE_APPLICATION_CREDENTIALS).
	// If you need to provide explicit JSON (e.g. locally), set GCS_CREDENTIALS_JSON.
	if credJSON := os.Getenv("GCS_CREDENTIALS_JSON"); strings.TrimSpace(credJSON) != "" {
		client, err := storage.NewClient(ctx, option.WithCredentialsJSON([]byte(credJSON)))
		if err != nil {
			return nil, err
		}
		return client, nil
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// GCSStore keeps uploads under the "uploads/" prefix of a bucket.
type GCSStore struct {
	client *storage.Client
	bucket string
}

func NewGCSStore(ctx context.Context, bucketName string) (*GCSStore, error) {
	if bucketName == "" {
		return nil, errors.New("GCS_BUCKET is required")
	}
	client, err := getGoogleClient(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := client.Bucket(bucketName).Attrs(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("gcs bucket %q not found or not accessible: %v", bucketName, err)
	}
	return &GCSStore{client: client, bucket: bucketName}, nil
}

func (s *GCSStore) objectName(key string) string {
	return "uploads/" + key
}

func (s *GCSStore) Save(ctx context.Context, fileName string, r io.Reader) (string, error) {
	key := fileName
	wc := s.client.Bucket(s.bucket).Object(s.objectName(key)).NewWriter(ctx)
	wc.ContentType = ContentTypeForName(fileName)
	if _, err := io.Copy(wc, r); err != nil {
		wc.Close()
		return "", fmt.Errorf("failed to upload file to Google Cloud Storage: %v", err)
	}
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("failed to close writer: %v", err)
	}
	return key, nil
}

func (s *GCSStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	return s.client.Bucket(s.bucket).Object(s.objectName(key)).NewReader(ctx)
}

func (s *GCSStore) Delete(ctx context.Context, key string) error {
	err := s.client.Bucket(s.bucket).Object(s.objectName(key)).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	return err
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}
