// Package settings is the per-user key-value settings store. The Store
// interface keeps the persistence mechanism injectable so tests (and the
// mock driver mode) can swap in an in-memory implementation.
package settings

import (
	"errors"
	"sync"
)

// ErrNotFound is returned by Get when a key has never been written.
var ErrNotFound = errors.New("setting not found")

// Store is a flat string-to-string settings store.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(key string) (string, error)
	// Set writes value under key, overwriting any previous value.
	Set(key, value string) error
}

// MemStore is a map-backed Store for tests.
type MemStore struct {
	mu     sync.Mutex
	values map[string]string

	// FailWrites makes every Set fail, for exercising degraded paths.
	FailWrites bool
	// Writes counts successful Set calls.
	Writes int
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{values: make(map[string]string)}
}

func (m *MemStore) Get(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *MemStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return errors.New("store is read-only")
	}
	m.values[key] = value
	m.Writes++
	return nil
}
