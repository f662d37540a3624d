// mock_storage.go - Mock photo store implementation for testing
package testutil

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/vistoria/inspection/internal/models"
	"github.com/vistoria/inspection/internal/storage"
)

// MockStorage implements storage.Store in memory for testing
type MockStorage struct {
	files    map[string]*models.Attachment
	fileData map[string][]byte
	mu       sync.RWMutex

	// SaveErr, when set, is returned by every Save call
	SaveErr error
}

// NewMockStorage creates a new empty mock store
func NewMockStorage() *MockStorage {
	return &MockStorage{
		files:    make(map[string]*models.Attachment),
		fileData: make(map[string][]byte),
	}
}

// Save accepts the same raster images as the real stores.
func (m *MockStorage) Save(name, contentType string, r io.Reader) (*models.Attachment, error) {
	if m.SaveErr != nil {
		return nil, m.SaveErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	contentType, err = storage.CheckImageType(contentType, data)
	if err != nil {
		return nil, err
	}
	return m.AddFile(generateTestID(), filepath.Base(name), contentType, data), nil
}

func (m *MockStorage) Get(id string) (*models.Attachment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	file, ok := m.files[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := *file
	return &out, nil
}

func (m *MockStorage) Open(id string) (io.ReadCloser, *models.Attachment, error) {
	info, err := m.Get(id)
	if err != nil {
		return nil, nil, err
	}
	m.mu.RLock()
	data := m.fileData[id]
	m.mu.RUnlock()
	return io.NopCloser(bytes.NewReader(data)), info, nil
}

func (m *MockStorage) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.files[id]; !exists {
		return storage.ErrNotFound
	}

	delete(m.files, id)
	delete(m.fileData, id)
	return nil
}

// Ensure MockStorage implements storage.Store
var _ storage.Store = (*MockStorage)(nil)

// Test Helper Methods

// AddFile adds a photo directly to the mock
func (m *MockStorage) AddFile(id, name, contentType string, data []byte) *models.Attachment {
	m.mu.Lock()
	defer m.mu.Unlock()

	file := &models.Attachment{
		ID:          id,
		Name:        name,
		Size:        int64(len(data)),
		ContentType: contentType,
		UploadedAt:  time.Now().UTC(),
	}
	m.files[id] = file
	m.fileData[id] = data
	out := *file
	return &out
}

// Has reports whether a photo with id is stored
func (m *MockStorage) Has(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.files[id]
	return ok
}

// GetFileCount returns the number of stored photos
func (m *MockStorage) GetFileCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.files)
}

// generateTestID generates a simple test ID
var testIDCounter int
var testIDMutex sync.Mutex

func generateTestID() string {
	testIDMutex.Lock()
	defer testIDMutex.Unlock()
	testIDCounter++
	return fmt.Sprintf("test-id-%d", testIDCounter)
}
