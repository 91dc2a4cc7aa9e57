package client

import (
	"context"
	"os"
	"strings"
	"testing"
)

func TestLocalStorePutLocateDelete(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	ref, err := store.Put(ctx, "versions/job/v1.wav", strings.NewReader("audio"), "audio/wav")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !strings.HasPrefix(ref, "file://") {
		t.Errorf("ref = %q, want file:// prefix", ref)
	}

	path, err := store.Locate(ctx, ref)
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if data, _ := os.ReadFile(path); string(data) != "audio" {
		t.Errorf("content = %q", data)
	}

	if err := store.Delete(ctx, ref); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("file still present after Delete: %v", err)
	}
	if err := store.Delete(ctx, ref); err != nil {
		t.Errorf("Delete of missing file: %v", err)
	}
}

func TestLocalStoreRejectsEscapes(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if _, err := store.Put(ctx, "../outside.wav", strings.NewReader("x"), "audio/wav"); err == nil {
		t.Error("Put accepted a key outside the storage dir")
	}
	if _, err := store.Locate(ctx, "file:///etc/passwd"); err == nil {
		t.Error("Locate accepted a path outside the storage dir")
	}
	if _, err := store.Locate(ctx, "https://cdn.example.com/a.wav"); err == nil {
		t.Error("Locate accepted a remote reference")
	}
}
