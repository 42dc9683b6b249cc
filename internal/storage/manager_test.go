// manager_test.go - Tests for the chunk spool
package storage

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func createTestStore(t *testing.T) *LocalStore {
	t.Helper()
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return store
}

func readSpool(t *testing.T, store *LocalStore, id string) string {
	t.Helper()
	rc, err := store.Open(id)
	if err != nil {
		t.Fatalf("Failed to open spool file: %v", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("Failed to read spool file: %v", err)
	}
	return string(data)
}

func TestNewLocalStore(t *testing.T) {
	t.Run("creates spool directory", func(t *testing.T) {
		spoolDir := filepath.Join(t.TempDir(), "spool")

		if _, err := NewLocalStore(spoolDir); err != nil {
			t.Fatalf("Failed to create store: %v", err)
		}

		if _, err := os.Stat(spoolDir); os.IsNotExist(err) {
			t.Error("Expected spool directory to be created")
		}
	})
}

func TestLocalStore_ChunkedUpload(t *testing.T) {
	t.Run("assembles chunks in index order", func(t *testing.T) {
		store := createTestStore(t)

		// Save out of order
		if err := store.SaveChunk("up-1", 1, strings.NewReader("world")); err != nil {
			t.Fatalf("Failed to save chunk 1: %v", err)
		}
		if err := store.SaveChunk("up-1", 0, strings.NewReader("hello ")); err != nil {
			t.Fatalf("Failed to save chunk 0: %v", err)
		}

		info, err := store.CompleteChunkedUpload("up-1", "greet.txt", 2)
		if err != nil {
			t.Fatalf("Failed to complete upload: %v", err)
		}

		if info.Name != "greet.txt" {
			t.Errorf("Expected name 'greet.txt', got %v", info.Name)
		}
		if info.Size != 11 {
			t.Errorf("Expected size 11, got %d", info.Size)
		}
		if got := readSpool(t, store, info.ID); got != "hello world" {
			t.Errorf("Expected 'hello world', got %q", got)
		}

		// Chunk directory is removed after assembly
		if _, err := os.Stat(store.chunkDir("up-1")); !os.IsNotExist(err) {
			t.Error("Expected chunk directory to be removed")
		}
	})

	t.Run("missing chunk fails and leaves no spool file", func(t *testing.T) {
		store := createTestStore(t)

		if err := store.SaveChunk("up-2", 0, strings.NewReader("only one")); err != nil {
			t.Fatalf("Failed to save chunk: %v", err)
		}

		if _, err := store.CompleteChunkedUpload("up-2", "x.txt", 2); err == nil {
			t.Fatal("Expected error for missing chunk")
		}
		if len(store.files) != 0 {
			t.Errorf("Expected no registered spool files, got %d", len(store.files))
		}
	})

	t.Run("rejects unsafe upload ids", func(t *testing.T) {
		store := createTestStore(t)

		for _, id := range []string{"", "../etc", "a/b", "a b"} {
			if err := store.SaveChunk(id, 0, strings.NewReader("x")); err != ErrInvalidUploadID {
				t.Errorf("SaveChunk(%q): expected ErrInvalidUploadID, got %v", id, err)
			}
		}
	})

	t.Run("rejects non-positive chunk count", func(t *testing.T) {
		store := createTestStore(t)
		if _, err := store.CompleteChunkedUpload("up-3", "x.txt", 0); err == nil {
			t.Error("Expected error for zero chunks")
		}
	})
}

func TestLocalStore_Delete(t *testing.T) {
	store := createTestStore(t)
	store.SaveChunk("up", 0, strings.NewReader("data"))
	info, err := store.CompleteChunkedUpload("up", "d.txt", 1)
	if err != nil {
		t.Fatalf("Failed to complete upload: %v", err)
	}

	if err := store.Delete(info.ID); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	if _, err := store.Open(info.ID); err == nil {
		t.Error("Expected error opening deleted spool file")
	}
	if err := store.Delete(info.ID); err == nil {
		t.Error("Expected error deleting twice")
	}
}

func TestLocalStore_CleanupStale(t *testing.T) {
	store := createTestStore(t)

	store.SaveChunk("old", 0, strings.NewReader("x"))
	old := time.Now().Add(-2 * time.Hour)
	os.Chtimes(store.chunkDir("old"), old, old)

	store.SaveChunk("fresh", 0, strings.NewReader("y"))

	store.SaveChunk("assembled", 0, strings.NewReader("z"))
	info, _ := store.CompleteChunkedUpload("assembled", "z.txt", 1)
	store.files[info.ID].CreatedAt = old

	removed := store.CleanupStale(time.Hour)
	if removed != 2 {
		t.Errorf("Expected 2 removed entries, got %d", removed)
	}
	if _, err := os.Stat(store.chunkDir("fresh")); err != nil {
		t.Error("Expected fresh chunk directory to survive")
	}
	if _, err := os.Stat(store.chunkDir("old")); !os.IsNotExist(err) {
		t.Error("Expected old chunk directory to be removed")
	}
}

func TestValidUploadID(t *testing.T) {
	valid := []string{"abc", "A-1_b", "1700000000000-123", strings.Repeat("a", 200)}
	invalid := []string{"", "a.b", "../x", "a/b", strings.Repeat("a", 201)}

	for _, id := range valid {
		if !ValidUploadID(id) {
			t.Errorf("Expected %q to be valid", id)
		}
	}
	for _, id := range invalid {
		if ValidUploadID(id) {
			t.Errorf("Expected %q to be invalid", id)
		}
	}
}
