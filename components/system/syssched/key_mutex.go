package syssched

import "sync"

// KeyMutex serializes operations sharing the same key.
//
// Remarks:
//   - Operations on different keys don't block each other.
//   - Entries are released once nobody holds or waits for the key.
type KeyMutex struct {
	mu    sync.Mutex
	locks map[string]*keyMutexEntry
}

type keyMutexEntry struct {
	mu   sync.Mutex
	refs int
}

// NewKeyMutex is an initialization of KeyMutex.
func NewKeyMutex() *KeyMutex {
	return &KeyMutex{
		locks: make(map[string]*keyMutexEntry),
	}
}

// Lock acquires the lock for the key and returns the function to release it.
func (m *KeyMutex) Lock(key string) func() {
	m.mu.Lock()

	entry, ok := m.locks[key]
	if !ok {
		entry = &keyMutexEntry{}
		m.locks[key] = entry
	}
	entry.refs++

	m.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		m.mu.Lock()
		defer m.mu.Unlock()

		entry.refs--
		if entry.refs == 0 {
			delete(m.locks, key)
		}
	}
}

// Len returns the number of keys currently held or awaited.
func (m *KeyMutex) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.locks)
}
