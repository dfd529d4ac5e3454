package utils

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"bitbucket.org/mmdatafocus/ticket_backend/config"
	"github.com/google/uuid"
)

// UploadStore keeps an uploaded file for the lifetime of a single run.
type UploadStore interface {
	Save(ctx context.Context, fileName string, r io.Reader) (string, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// ObjectKey gives every upload a unique name that keeps the original extension.
func ObjectKey(fieldName, fileName string) string {
	return fieldName + "-" + uuid.NewString() + strings.ToLower(filepath.Ext(fileName))
}

type LocalStore struct {
	dir string
}

func NewLocalStore(dir string) (*LocalStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("upload dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create upload dir: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

func (s *LocalStore) Save(_ context.Context, fileName string, r io.Reader) (string, error) {
	key := filepath.Base(fileName)
	f, err := os.Create(filepath.Join(s.dir, key))
	if err != nil {
		return "", fmt.Errorf("could not create file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return "", fmt.Errorf("could not write file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("could not close file: %w", err)
	}
	return key, nil
}

func (s *LocalStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(s.dir, filepath.Base(key)))
}

func (s *LocalStore) Delete(_ context.Context, key string) error {
	err := os.Remove(filepath.Join(s.dir, filepath.Base(key)))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// DeleteUpload removes a stored upload once. Failures are logged, never returned.
func DeleteUpload(ctx context.Context, store UploadStore, key string) {
	if store == nil || key == "" {
		return
	}
	if err := store.Delete(ctx, key); err != nil {
		config.LogError(config.GetLogger(), "utils/uploadStore.go", "DeleteUpload", "store.Delete", key, err)
		return
	}
	config.GetLogger().WithField("key", key).Debug("upload deleted")
}
