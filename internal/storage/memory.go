package storage

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory Store, used by tests and dry runs.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[Location][]byte
	reads   []Location
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[Location][]byte)}
}

func (m *MemoryStore) Put(ctx context.Context, loc Location, data []byte, contentType string) error {
	buf := make([]byte, len(data))
	copy(buf, data)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[loc] = buf
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, loc Location) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reads = append(m.reads, loc)
	data, ok := m.objects[loc]
	if !ok {
		return nil, newStorageError("get", loc, ErrNotFound)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *MemoryStore) GetJSON(ctx context.Context, loc Location, v any) error {
	data, err := m.Get(ctx, loc)
	if err != nil {
		return err
	}
	return decodeJSON(loc, data, v)
}

// Reads returns every location read so far, in order.
func (m *MemoryStore) Reads() []Location {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Location, len(m.reads))
	copy(out, m.reads)
	return out
}

// Keys lists stored locations sorted by String().
func (m *MemoryStore) Keys() []Location {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]Location, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}
