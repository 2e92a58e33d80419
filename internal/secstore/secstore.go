// Package secstore is the secure credential store the session manager
// persists its session blob into. Values are opaque strings; structured
// state is serialized to JSON by the caller.
package secstore

import (
	"errors"
	"sync"
)

var (
	ErrNotFound = errors.New("secstore: not found")
	ErrBadKey   = errors.New("secstore: sealing key must be 32 bytes")
)

// Store describes the credential storage operations the session manager needs.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// Memory is an in-process Store used by tests and the demo binary.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Get(key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *Memory) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *Memory) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
