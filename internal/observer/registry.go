// Package observer provides an ordered subscription registry. Handlers are
// notified in registration order and may be removed at any time, including
// from inside a running notification.
package observer

import (
	"sync"
	"sync/atomic"
)

// ID identifies a registered handler.
type ID uint64

type entry[T any] struct {
	id      ID
	fn      func(T)
	removed atomic.Bool
}

// Registry is safe for concurrent use. The zero value is ready to use.
type Registry[T any] struct {
	mu      sync.Mutex
	next    ID
	entries []*entry[T]
}

func (r *Registry[T]) Add(fn func(T)) ID {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.next++
	r.entries = append(r.entries, &entry[T]{id: r.next, fn: fn})
	return r.next
}

// Remove unregisters a handler. A handler removed during a notification is
// not called for the remainder of that notification.
func (r *Registry[T]) Remove(id ID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, e := range r.entries {
		if e.id == id {
			e.removed.Store(true)
			r.entries = append(r.entries[:i:i], r.entries[i+1:]...)
			return true
		}
	}
	return false
}

func (r *Registry[T]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.entries {
		e.removed.Store(true)
	}
	r.entries = nil
}

func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Notify calls every handler with v. The handler list is snapshotted first so
// handlers can add or remove subscriptions without deadlocking.
func (r *Registry[T]) Notify(v T) {
	r.mu.Lock()
	snapshot := make([]*entry[T], len(r.entries))
	copy(snapshot, r.entries)
	r.mu.Unlock()

	for _, e := range snapshot {
		if e.removed.Load() {
			continue
		}
		e.fn(v)
	}
}
