// mock_storage.go - In-memory spool for testing
package testutil

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/code-explorer/backend/internal/models"
	"github.com/code-explorer/backend/internal/storage"
)

// MockStorage implements storage.Store in memory
type MockStorage struct {
	files    map[string]*models.SpoolFile
	fileData map[string][]byte
	chunks   map[string]map[int][]byte // uploadID -> chunkIndex -> data
	nextID   int
	mu       sync.RWMutex
}

// NewMockStorage creates an empty mock spool
func NewMockStorage() *MockStorage {
	return &MockStorage{
		files:    make(map[string]*models.SpoolFile),
		fileData: make(map[string][]byte),
		chunks:   make(map[string]map[int][]byte),
	}
}

func (m *MockStorage) SaveChunk(uploadID string, chunkIndex int, r io.Reader) error {
	if !storage.ValidUploadID(uploadID) {
		return storage.ErrInvalidUploadID
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.chunks[uploadID] == nil {
		m.chunks[uploadID] = make(map[int][]byte)
	}
	m.chunks[uploadID][chunkIndex] = data
	return nil
}

func (m *MockStorage) CompleteChunkedUpload(uploadID string, name string, totalChunks int) (*models.SpoolFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	uploadChunks, ok := m.chunks[uploadID]
	if !ok {
		return nil, errors.New("upload not found")
	}

	// Concatenate all chunks
	var data bytes.Buffer
	for i := 0; i < totalChunks; i++ {
		chunk, ok := uploadChunks[i]
		if !ok {
			return nil, fmt.Errorf("missing chunk %d", i)
		}
		data.Write(chunk)
	}

	m.nextID++
	id := fmt.Sprintf("spool-%d", m.nextID)
	file := &models.SpoolFile{
		ID:        id,
		Name:      name,
		Size:      int64(data.Len()),
		CreatedAt: time.Now(),
	}

	m.files[id] = file
	m.fileData[id] = data.Bytes()
	delete(m.chunks, uploadID)

	return file, nil
}

func (m *MockStorage) Open(id string) (io.ReadCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.fileData[id]
	if !ok {
		return nil, errors.New("spool file not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *MockStorage) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.files[id]; !exists {
		return errors.New("spool file not found")
	}
	delete(m.files, id)
	delete(m.fileData, id)
	return nil
}

func (m *MockStorage) CleanupStale(maxAge time.Duration) int {
	return 0
}

// Ensure MockStorage implements storage.Store
var _ storage.Store = (*MockStorage)(nil)

// Test Helper Methods

// GetFileCount returns the number of assembled spool files
func (m *MockStorage) GetFileCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.files)
}

// PendingUploads returns the number of uploads with unassembled chunks
func (m *MockStorage) PendingUploads() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chunks)
}
