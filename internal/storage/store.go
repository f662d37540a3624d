// Package storage stores inspection photos.
package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vistoria/inspection/internal/models"
)

// Store defines the interface for photo storage.
type Store interface {
	Save(name, contentType string, r io.Reader) (*models.Attachment, error)
	Get(id string) (*models.Attachment, error)
	Open(id string) (io.ReadCloser, *models.Attachment, error)
	Delete(id string) error
}

// LocalStore implements Store using the local filesystem.
// Each photo is written as <id> with its metadata in <id>.json.
type LocalStore struct {
	mu       sync.RWMutex
	imageDir string
	files    map[string]*models.Attachment
}

// NewLocalStore creates a LocalStore and reloads metadata of photos already on disk.
func NewLocalStore(imageDir string) (*LocalStore, error) {
	if err := os.MkdirAll(imageDir, 0755); err != nil {
		return nil, fmt.Errorf("creating image directory: %w", err)
	}

	s := &LocalStore{
		imageDir: imageDir,
		files:    make(map[string]*models.Attachment),
	}
	if err := s.loadIndex(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *LocalStore) loadIndex() error {
	entries, err := os.ReadDir(s.imageDir)
	if err != nil {
		return fmt.Errorf("reading image directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.imageDir, entry.Name()))
		if err != nil {
			return fmt.Errorf("reading metadata %s: %w", entry.Name(), err)
		}
		var info models.Attachment
		if err := json.Unmarshal(data, &info); err != nil || info.ID == "" {
			continue
		}
		if _, err := os.Stat(s.path(info.ID)); err != nil {
			continue
		}
		s.files[info.ID] = &info
	}
	return nil
}

func (s *LocalStore) path(id string) string {
	return filepath.Join(s.imageDir, id)
}

// Save writes a photo to the image directory.
func (s *LocalStore) Save(name, contentType string, r io.Reader) (*models.Attachment, error) {
	contentType, r, err := detectImageType(contentType, r)
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	path := s.path(id)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()

	size, err := io.Copy(f, r)
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("writing file: %w", err)
	}

	info := &models.Attachment{
		ID:          id,
		Name:        filepath.Base(name),
		Size:        size,
		ContentType: contentType,
		UploadedAt:  time.Now().UTC(),
	}

	meta, err := json.Marshal(info)
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("encoding metadata: %w", err)
	}
	if err := os.WriteFile(path+".json", meta, 0644); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("writing metadata: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[id] = info

	out := *info
	return &out, nil
}

// Get retrieves photo metadata by ID.
func (s *LocalStore) Get(id string) (*models.Attachment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, ok := s.files[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	out := *info
	return &out, nil
}

// Open returns the photo content. The caller closes the reader.
func (s *LocalStore) Open(id string) (io.ReadCloser, *models.Attachment, error) {
	info, err := s.Get(id)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(s.path(id))
	if err != nil {
		return nil, nil, fmt.Errorf("opening image: %w", err)
	}
	return f, info, nil
}

// Delete removes a photo and its metadata.
func (s *LocalStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	path := s.path(id)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting file: %w", err)
	}
	if err := os.Remove(path + ".json"); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting metadata: %w", err)
	}

	delete(s.files, id)
	return nil
}
