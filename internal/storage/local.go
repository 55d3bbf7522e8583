package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// localStorage implements Storage using the local filesystem
type localStorage struct {
	basePath string
	baseURL  string
}

// NewLocalStorage creates a filesystem-backed disk rooted at basePath.
// Stored paths are served under baseURL.
func NewLocalStorage(basePath, baseURL string) (*localStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return &localStorage{
		basePath: basePath,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
	}, nil
}

func (s *localStorage) fullPath(path string) string {
	return filepath.Join(s.basePath, filepath.FromSlash(path))
}

// Put writes data to path, creating parent directories as needed
func (s *localStorage) Put(ctx context.Context, path string, data []byte, contentType string) error {
	full := s.fullPath(path)
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(full, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// Get reads the file stored at path
func (s *localStorage) Get(ctx context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(s.fullPath(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

// Delete removes the file at path
func (s *localStorage) Delete(ctx context.Context, path string) error {
	if err := os.Remove(s.fullPath(path)); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// Exists reports whether a file is stored at path
func (s *localStorage) Exists(ctx context.Context, path string) (bool, error) {
	_, err := os.Stat(s.fullPath(path))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat file: %w", err)
}

// URL returns the public URL for path
func (s *localStorage) URL(path string) string {
	return s.baseURL + "/" + strings.TrimPrefix(path, "/")
}
