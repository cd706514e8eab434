package cache

import (
	"context"
	"sync"
	"time"
)

type memEntry struct {
	data    []byte
	expires time.Time
}

// Memory is an in-process Cache. Expired entries are dropped lazily on Get.
type Memory struct {
	ttl time.Duration
	now func() time.Time

	mu          sync.Mutex
	collections map[string]map[string]memEntry
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		ttl:         ttl,
		now:         time.Now,
		collections: make(map[string]map[string]memEntry),
	}
}

func (m *Memory) Get(_ context.Context, collection, key string, dst interface{}) (bool, error) {
	m.mu.Lock()
	e, ok := m.collections[collection][key]
	if ok && !m.now().Before(e.expires) {
		delete(m.collections[collection], key)
		ok = false
	}
	m.mu.Unlock()

	observe(collection, ok)
	if !ok {
		return false, nil
	}
	if err := decode(e.data, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (m *Memory) Set(_ context.Context, collection, key string, v interface{}) error {
	b, err := encode(v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	entries, ok := m.collections[collection]
	if !ok {
		entries = make(map[string]memEntry)
		m.collections[collection] = entries
	}
	entries[key] = memEntry{data: b, expires: m.now().Add(m.ttl)}
	return nil
}

func (m *Memory) InvalidateCollection(_ context.Context, collections ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range collections {
		delete(m.collections, c)
		invalidations.WithLabelValues(c).Inc()
	}
	return nil
}
