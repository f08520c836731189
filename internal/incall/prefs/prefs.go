// Package prefs stores small per-activity preferences.
package prefs

import (
	"context"
	"errors"
	"sync"
)

// KeyPermissionInfoDialogShown records that the storage permission explainer was shown.
const KeyPermissionInfoDialogShown = "permission-info-dialog-shown"

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("preference store closed")

// Store is a boolean preference store.
type Store interface {
	Bool(ctx context.Context, key string, def bool) (bool, error)
	SetBool(ctx context.Context, key string, value bool) error
	Close() error
}

// Memory is an in-process Store.
type Memory struct {
	mu     sync.RWMutex
	values map[string]bool
	closed bool
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{values: make(map[string]bool)}
}

func (m *Memory) Bool(ctx context.Context, key string, def bool) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return def, ErrClosed
	}
	if v, ok := m.values[key]; ok {
		return v, nil
	}
	return def, nil
}

func (m *Memory) SetBool(ctx context.Context, key string, value bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.values[key] = value
	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
