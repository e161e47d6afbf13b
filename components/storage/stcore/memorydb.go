package stcore

import (
	"bytes"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/open-control-systems/ping-monitor/components/status"
)

// MemoryDB is an in-memory database.
//
// Remarks:
//   - Data is lost when the process exits.
type MemoryDB struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryDB is an initialization of MemoryDB.
func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		blobs: make(map[string][]byte),
	}
}

// Read reads a blob from memory.
func (d *MemoryDB) Read(key string) (Blob, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	data, ok := d.blobs[key]
	if !ok {
		return Blob{}, status.StatusNoData
	}

	return Blob{Data: bytes.Clone(data)}, nil
}

// Write writes a blob to memory.
func (d *MemoryDB) Write(key string, blob Blob) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.blobs[key] = bytes.Clone(blob.Data)

	return nil
}

// Update reads, modifies and writes the blob under the write lock.
func (d *MemoryDB) Update(key string, fn UpdateFunc) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	data, ok := d.blobs[key]

	next, err := fn(Blob{Data: bytes.Clone(data)}, ok)
	if err != nil {
		return err
	}

	d.blobs[key] = bytes.Clone(next.Data)

	return nil
}

// Remove removes a blob from memory.
func (d *MemoryDB) Remove(key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.blobs, key)

	return nil
}

// RemovePrefix removes all blobs which keys start with prefix.
func (d *MemoryDB) RemovePrefix(prefix string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for key := range d.blobs {
		if strings.HasPrefix(key, prefix) {
			delete(d.blobs, key)
		}
	}

	return nil
}

// ForEach iterates over all blobs in key order.
func (d *MemoryDB) ForEach(fn func(key string, b Blob) error) error {
	return d.ForEachPrefix("", false, fn)
}

// ForEachPrefix iterates over blobs which keys start with prefix.
//
// Remarks:
//   - fn is called on a snapshot, it's safe to modify the database from fn.
func (d *MemoryDB) ForEachPrefix(
	prefix string,
	reverse bool,
	fn func(key string, b Blob) error,
) error {
	type entry struct {
		key  string
		data []byte
	}

	d.mu.RLock()

	var entries []entry
	for key, data := range d.blobs {
		if strings.HasPrefix(key, prefix) {
			entries = append(entries, entry{key: key, data: bytes.Clone(data)})
		}
	}

	d.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		if reverse {
			return entries[i].key > entries[j].key
		}

		return entries[i].key < entries[j].key
	})

	for _, e := range entries {
		if err := fn(e.key, Blob{Data: e.data}); err != nil {
			if errors.Is(err, ErrStop) {
				return nil
			}

			return err
		}
	}

	return nil
}

// Close is non-operational.
func (*MemoryDB) Close() error {
	return nil
}
