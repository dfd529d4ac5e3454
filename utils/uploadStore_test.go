package utils

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestObjectKey(t *testing.T) {
	a := ObjectKey("csvFile", "Stock.CSV")
	b := ObjectKey("csvFile", "Stock.CSV")
	if a == b {
		t.Fatalf("expected unique keys, got %q twice", a)
	}
	if !strings.HasPrefix(a, "csvFile-") || !strings.HasSuffix(a, ".csv") {
		t.Fatalf("unexpected key %q", a)
	}
}

func TestLocalStore_Lifecycle(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir)
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	ctx := context.Background()

	key, err := store.Save(ctx, "../escape/excelFile-1.xlsx", strings.NewReader("payload"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if key != "excelFile-1.xlsx" {
		t.Fatalf("expected base name key, got %q", key)
	}
	if _, err := os.Stat(filepath.Join(dir, key)); err != nil {
		t.Fatalf("expected file in store dir: %v", err)
	}

	rc, err := store.Open(ctx, key)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "payload" {
		t.Fatalf("unexpected content %q", data)
	}

	DeleteUpload(ctx, store, key)
	if _, err := os.Stat(filepath.Join(dir, key)); !os.IsNotExist(err) {
		t.Fatalf("expected file removed, got %v", err)
	}
	// second delete is a no-op
	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("Delete twice: %v", err)
	}
}

func TestNewUploadStore_Provider(t *testing.T) {
	t.Setenv("STORAGE_PROVIDER", "local")
	store, err := NewUploadStore(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("NewUploadStore: %v", err)
	}
	if _, ok := store.(*LocalStore); !ok {
		t.Fatalf("expected *LocalStore, got %T", store)
	}

	t.Setenv("STORAGE_PROVIDER", "s3")
	if _, err := NewUploadStore(context.Background(), t.TempDir()); err == nil {
		t.Fatalf("expected error for unsupported provider")
	}
}
