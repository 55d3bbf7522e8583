// Package storage provides key-addressed blob storage behind interchangeable backends.
package storage

import (
	"context"
	"fmt"
)

// Storage is a key-addressed blob store
type Storage interface {
	// Put stores data under path, creating intermediate structure as needed
	Put(ctx context.Context, path string, data []byte, contentType string) error

	// Get returns the bytes stored under path
	Get(ctx context.Context, path string) ([]byte, error)

	// Delete removes the blob at path
	Delete(ctx context.Context, path string) error

	// Exists reports whether a blob is stored under path
	Exists(ctx context.Context, path string) (bool, error)

	// URL returns the public URL for path
	URL(path string) string
}

// Registry holds the configured disks and resolves per-call disk overrides
type Registry struct {
	disks       map[string]Storage
	defaultDisk string
}

// NewRegistry creates a registry whose Default() resolves to defaultDisk
func NewRegistry(defaultDisk string) *Registry {
	return &Registry{
		disks:       make(map[string]Storage),
		defaultDisk: defaultDisk,
	}
}

// Register adds a named disk
func (r *Registry) Register(name string, s Storage) {
	r.disks[name] = s
}

// DefaultDisk returns the configured default disk name
func (r *Registry) DefaultDisk() string {
	return r.defaultDisk
}

// Disk returns the backend registered under name. An empty name
// resolves to the default disk; an unknown name is an error.
func (r *Registry) Disk(name string) (Storage, error) {
	if name == "" {
		name = r.defaultDisk
	}
	s, ok := r.disks[name]
	if !ok {
		return nil, fmt.Errorf("unknown storage disk: %s", name)
	}
	return s, nil
}

// Resolve returns the effective disk name and backend for an optional override
func (r *Registry) Resolve(override string) (string, Storage, error) {
	name := override
	if name == "" {
		name = r.defaultDisk
	}
	s, err := r.Disk(name)
	if err != nil {
		return "", nil, err
	}
	return name, s, nil
}
