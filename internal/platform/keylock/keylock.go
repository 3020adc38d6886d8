// Package keylock provides per-key mutual exclusion for serializing
// credential issuance per principal. Locks for different keys never contend.
package keylock

import "sync"

type entry struct {
	mu   sync.Mutex
	refs int
}

// Registry hands out one mutex per key on demand. Entries are reference
// counted: an entry is removed only when its last holder or waiter releases
// it, so a waiter can never acquire a stale handle that a concurrent removal
// has already detached from the registry.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// NewRegistry returns an empty lock registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// Lock acquires the mutex for key, blocking until it is available, and
// returns the function that releases it. Callers typically defer the release:
//
//	unlock := locks.Lock(key)
//	defer unlock()
func (r *Registry) Lock(key string) (unlock func()) {
	r.mu.Lock()
	e, ok := r.entries[key]
	if !ok {
		e = &entry{}
		r.entries[key] = e
	}
	e.refs++
	r.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()
		r.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(r.entries, key)
		}
		r.mu.Unlock()
	}
}

// Len returns the number of keys currently held or waited on.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
