package storage

import (
	"bytes"
	"context"
	"testing"
)

func TestFileStoreRoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "https://cdn.example.com/assets")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	ctx := context.Background()

	key, err := store.Write(ctx, "jobs/job-1/0.png", []byte("png bytes"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if key != "jobs/job-1/0.png" {
		t.Fatalf("unexpected key: %s", key)
	}

	data, err := store.Read(ctx, key)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(data, []byte("png bytes")) {
		t.Fatalf("round trip mismatch: %q", data)
	}

	url, err := store.URL(ctx, key)
	if err != nil {
		t.Fatalf("URL: %v", err)
	}
	if url != "https://cdn.example.com/assets/jobs/job-1/0.png" {
		t.Fatalf("unexpected url: %s", url)
	}
}

func TestFileStoreSanitizesKeys(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	ctx := context.Background()

	key, err := store.Write(ctx, "./nested\\dir\\file.png", []byte("x"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if key != "nested/dir/file.png" {
		t.Fatalf("unexpected key: %s", key)
	}

	for _, bad := range []string{"", "../escape.png", "."} {
		if _, err := store.Write(ctx, bad, []byte("x")); err == nil {
			t.Fatalf("expected rejection for key %q", bad)
		}
	}
}

func TestFileStoreReadMissing(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if _, err := store.Read(context.Background(), "nope.png"); err == nil {
		t.Fatalf("expected error for missing object")
	}
}
