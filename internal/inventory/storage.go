package inventory

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Storage keeps the original receipt images
type Storage interface {
	// Save stores data under key and returns the key to retrieve it with
	Save(key string, data []byte) (string, error)

	// Get retrieves a file by key
	Get(key string) ([]byte, error)

	// Delete removes a file
	Delete(key string) error
}

// validKey rejects keys that could escape the storage root
func validKey(key string) error {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return fmt.Errorf("storage key %q: %w", key, ErrInvalid)
	}
	return nil
}

// LocalStorage implements the Storage interface using local filesystem
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates the directory if needed
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}
	return &LocalStorage{basePath: basePath}, nil
}

// Save writes a file into the storage directory
func (l *LocalStorage) Save(key string, data []byte) (string, error) {
	if err := validKey(key); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(l.basePath, key), data, 0644); err != nil {
		return "", fmt.Errorf("writing file: %w", err)
	}
	return key, nil
}

// Get reads a file from the storage directory
func (l *LocalStorage) Get(key string) ([]byte, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(l.basePath, key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("file %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return data, nil
}

// Delete removes a file from the storage directory
func (l *LocalStorage) Delete(key string) error {
	if err := validKey(key); err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(l.basePath, key)); err != nil {
		return fmt.Errorf("deleting file: %w", err)
	}
	return nil
}
