// Package notify holds ordered listener lists for the in-call core.
package notify

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// List is an ordered set of listeners. Notification iterates a snapshot, so
// listeners may add or remove entries while being notified. A panicking
// listener is logged and does not prevent later listeners from running.
type List[T any] struct {
	mu      sync.Mutex
	name    string
	entries []entry[T]
	logger  *slog.Logger
}

type entry[T any] struct {
	id       string
	listener T
}

// NewList creates an empty list. name tags log lines.
func NewList[T any](name string, logger *slog.Logger) *List[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &List[T]{name: name, logger: logger}
}

// Add appends a listener and returns its registration id.
func (l *List[T]) Add(listener T) string {
	id := uuid.New().String()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry[T]{id: id, listener: listener})
	return id
}

// Remove drops the listener registered under id.
func (l *List[T]) Remove(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, e := range l.entries {
		if e.id == id {
			l.entries = append(l.entries[:i:i], l.entries[i+1:]...)
			return true
		}
	}
	return false
}

func (l *List[T]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Each calls fn for every listener in registration order.
func (l *List[T]) Each(fn func(T)) {
	l.mu.Lock()
	snapshot := make([]entry[T], len(l.entries))
	copy(snapshot, l.entries)
	l.mu.Unlock()

	for _, e := range snapshot {
		l.deliver(e, fn)
	}
}

func (l *List[T]) deliver(e entry[T], fn func(T)) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("[Notify] Listener panicked", "list", l.name, "listener", e.id, "panic", r)
		}
	}()
	fn(e.listener)
}
