package stores

import (
	"fmt"
	"os"
	"path/filepath"
)

// LocalStore is a durable key-value store for small JSON-serializable
// values. Get returns nil for an absent key, not an error.
type LocalStore interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
}

// FileLocalStore implements LocalStore with one JSON file per key under a
// data directory.
type FileLocalStore struct {
	dir string
}

// NewFileLocalStore creates the data directory if needed and returns a store.
func NewFileLocalStore(dir string) (*FileLocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &FileLocalStore{dir: dir}, nil
}

// Get reads the value stored under key, returning nil when absent.
func (s *FileLocalStore) Get(key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

// Set durably replaces the value stored under key. The write goes to a
// temporary file first so a crash never leaves a torn value behind.
func (s *FileLocalStore) Set(key string, value []byte) error {
	tmp := s.path(key) + ".tmp"
	if err := os.WriteFile(tmp, value, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := os.Rename(tmp, s.path(key)); err != nil {
		return fmt.Errorf("failed to replace %s: %w", key, err)
	}
	return nil
}

func (s *FileLocalStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}
