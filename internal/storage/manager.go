// Package storage stages chunked uploads on disk until the uploader reads them.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/code-explorer/backend/internal/models"
	"github.com/google/uuid"
)

// ErrInvalidUploadID is returned for upload ids outside [A-Za-z0-9_-].
var ErrInvalidUploadID = errors.New("invalid upload id")

// Store defines the interface for the chunk spool.
type Store interface {
	SaveChunk(uploadID string, chunkIndex int, r io.Reader) error
	CompleteChunkedUpload(uploadID string, name string, totalChunks int) (*models.SpoolFile, error)
	Open(id string) (io.ReadCloser, error)
	Delete(id string) error
	CleanupStale(maxAge time.Duration) int
}

// LocalStore implements Store using the local filesystem.
type LocalStore struct {
	mu       sync.RWMutex
	spoolDir string
	files    map[string]*models.SpoolFile
}

// NewLocalStore creates a new LocalStore.
func NewLocalStore(spoolDir string) (*LocalStore, error) {
	if err := os.MkdirAll(spoolDir, 0755); err != nil {
		return nil, fmt.Errorf("creating spool directory: %w", err)
	}

	return &LocalStore{
		spoolDir: spoolDir,
		files:    make(map[string]*models.SpoolFile),
	}, nil
}

// SaveChunk saves a single chunk to a temporary location.
func (s *LocalStore) SaveChunk(uploadID string, chunkIndex int, r io.Reader) error {
	if !ValidUploadID(uploadID) {
		return ErrInvalidUploadID
	}
	if chunkIndex < 0 {
		return fmt.Errorf("negative chunk index %d", chunkIndex)
	}

	chunkDir := s.chunkDir(uploadID)
	if err := os.MkdirAll(chunkDir, 0755); err != nil {
		return fmt.Errorf("creating chunk directory: %w", err)
	}

	path := filepath.Join(chunkDir, fmt.Sprintf("chunk_%d", chunkIndex))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating chunk file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("writing chunk: %w", err)
	}

	return nil
}

// CompleteChunkedUpload assembles all chunks, in index order, into one spool file.
func (s *LocalStore) CompleteChunkedUpload(uploadID string, name string, totalChunks int) (*models.SpoolFile, error) {
	if !ValidUploadID(uploadID) {
		return nil, ErrInvalidUploadID
	}
	if totalChunks <= 0 {
		return nil, fmt.Errorf("totalChunks must be positive")
	}

	id := uuid.New().String()
	finalPath := filepath.Join(s.spoolDir, id)
	chunkDir := s.chunkDir(uploadID)

	out, err := os.Create(finalPath)
	if err != nil {
		return nil, fmt.Errorf("creating spool file: %w", err)
	}

	var totalSize int64
	for i := 0; i < totalChunks; i++ {
		n, err := appendChunk(out, filepath.Join(chunkDir, fmt.Sprintf("chunk_%d", i)))
		if err != nil {
			out.Close()
			os.Remove(finalPath)
			return nil, fmt.Errorf("assembling chunk %d: %w", i, err)
		}
		totalSize += n
	}

	if err := out.Close(); err != nil {
		os.Remove(finalPath)
		return nil, fmt.Errorf("closing spool file: %w", err)
	}

	info := &models.SpoolFile{
		ID:        id,
		Name:      name,
		Size:      totalSize,
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	s.files[id] = info
	s.mu.Unlock()

	os.RemoveAll(chunkDir)

	return info, nil
}

// Open returns a reader over an assembled spool file.
func (s *LocalStore) Open(id string) (io.ReadCloser, error) {
	s.mu.RLock()
	_, ok := s.files[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("spool file not found: %s", id)
	}

	return os.Open(filepath.Join(s.spoolDir, id))
}

// Delete removes an assembled spool file.
func (s *LocalStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[id]; !ok {
		return fmt.Errorf("spool file not found: %s", id)
	}

	path := filepath.Join(s.spoolDir, id)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting spool file: %w", err)
	}

	delete(s.files, id)
	return nil
}

// CleanupStale removes chunk directories and spool files older than maxAge.
// It returns the number of entries removed.
func (s *LocalStore) CleanupStale(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)
	removed := 0

	entries, err := os.ReadDir(filepath.Join(s.spoolDir, "chunks"))
	if err == nil {
		for _, entry := range entries {
			info, err := entry.Info()
			if err != nil || info.ModTime().After(cutoff) {
				continue
			}
			if os.RemoveAll(filepath.Join(s.spoolDir, "chunks", entry.Name())) == nil {
				removed++
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, info := range s.files {
		if info.CreatedAt.Before(cutoff) {
			os.Remove(filepath.Join(s.spoolDir, id))
			delete(s.files, id)
			removed++
		}
	}

	return removed
}

func (s *LocalStore) chunkDir(uploadID string) string {
	return filepath.Join(s.spoolDir, "chunks", uploadID)
}

func appendChunk(out io.Writer, path string) (int64, error) {
	in, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	return io.Copy(out, in)
}

// ValidUploadID reports whether id is safe to use as a directory name.
func ValidUploadID(id string) bool {
	if id == "" || len(id) > 200 {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
