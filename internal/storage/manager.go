package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/laotie567/ComfyUI-test-03-Qwen/internal/models"
)

// Store defines the interface for transient upload storage.
type Store interface {
	Save(name string, r io.Reader) (*models.StoredFile, error)
	Remove(id string) error
}

// LocalStore implements Store using the local filesystem. Files are written
// under a single uploads directory with collision-resistant names; the
// directory is created on first use.
type LocalStore struct {
	uploadDir string
}

// NewLocalStore creates a new LocalStore rooted at uploadDir.
func NewLocalStore(uploadDir string) *LocalStore {
	return &LocalStore{uploadDir: uploadDir}
}

// Save writes the reader's content to a uniquely named file, preserving the
// original filename's extension.
func (s *LocalStore) Save(name string, r io.Reader) (*models.StoredFile, error) {
	if err := os.MkdirAll(s.uploadDir, 0755); err != nil {
		return nil, fmt.Errorf("creating upload directory: %w", err)
	}

	id := uuid.New().String() + filepath.Ext(name)
	path := filepath.Join(s.uploadDir, id)

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

	return &models.StoredFile{
		ID:         id,
		Name:       name,
		Path:       path,
		Size:       size,
		UploadedAt: time.Now(),
	}, nil
}

// Remove deletes a stored file by ID. Removing a file that no longer exists
// is not an error.
func (s *LocalStore) Remove(id string) error {
	path := filepath.Join(s.uploadDir, id)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting file: %w", err)
	}
	return nil
}
