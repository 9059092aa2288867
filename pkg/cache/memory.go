package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// DefaultMaxEntries bounds the in-memory cache when no size is given.
const DefaultMaxEntries = 1000

// Memory is an in-process LRU cache backend. When full, the least recently
// used entry is evicted. Safe for concurrent use.
type Memory struct {
	mu         sync.Mutex
	maxEntries int
	order      *list.List // front = most recently used
	items      map[string]*list.Element
}

type memoryItem struct {
	key   string
	entry *Entry
}

// NewMemory creates an LRU cache holding at most maxEntries entries.
// maxEntries <= 0 falls back to DefaultMaxEntries.
func NewMemory(maxEntries int) *Memory {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Memory{
		maxEntries: maxEntries,
		order:      list.New(),
		items:      make(map[string]*list.Element),
	}
}

// Get returns the entry for key and marks it recently used.
func (m *Memory) Get(_ context.Context, key Key) (*Entry, error) {
	k := key.String()

	m.mu.Lock()
	defer m.mu.Unlock()

	elem, ok := m.items[k]
	if !ok {
		Misses.Inc()
		return nil, ErrCacheMiss
	}

	item := elem.Value.(*memoryItem)
	if item.entry.IsExpired() {
		m.removeLocked(elem)
		Misses.Inc()
		return nil, ErrCacheMiss
	}

	m.order.MoveToFront(elem)
	Hits.WithLabelValues("memory").Inc()
	return item.entry, nil
}

// Set stores entry under key. The TTL is applied via the entry's ExpiresAt;
// a non-zero ttl overrides it.
func (m *Memory) Set(_ context.Context, key Key, entry *Entry, ttl time.Duration) error {
	if ttl > 0 {
		entry.ExpiresAt = time.Now().Add(ttl)
	}
	k := key.String()

	m.mu.Lock()
	defer m.mu.Unlock()

	if elem, ok := m.items[k]; ok {
		elem.Value.(*memoryItem).entry = entry
		m.order.MoveToFront(elem)
		return nil
	}

	for m.order.Len() >= m.maxEntries {
		m.removeLocked(m.order.Back())
		Evictions.Inc()
	}

	m.items[k] = m.order.PushFront(&memoryItem{key: k, entry: entry})
	return nil
}

// Delete removes the entry for key.
func (m *Memory) Delete(_ context.Context, key Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if elem, ok := m.items[key.String()]; ok {
		m.removeLocked(elem)
	}
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}

func (m *Memory) removeLocked(elem *list.Element) {
	if elem == nil {
		return
	}
	item := elem.Value.(*memoryItem)
	delete(m.items, item.key)
	m.order.Remove(elem)
}
