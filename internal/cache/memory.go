package cache

import (
	"container/list"
	"sync"
	"time"
)

// memoryTier is the bounded LRU index with per-entry expiry. It holds copies
// of disk-tier entries only (plus entries written and not yet flushed within
// the same process lifetime), so dropping an item is always safe.
type memoryTier struct {
	capacity int
	ttl      time.Duration
	onEvict  func(reason string)

	mu    sync.Mutex
	ll    *list.List // front = most recently used
	index map[string]*list.Element
}

type memoryItem struct {
	key       string
	entry     *Entry
	expiresAt time.Time
}

func newMemoryTier(capacity int, ttl time.Duration, onEvict func(reason string)) *memoryTier {
	if onEvict == nil {
		onEvict = func(string) {}
	}
	return &memoryTier{
		capacity: capacity,
		ttl:      ttl,
		onEvict:  onEvict,
		ll:       list.New(),
		index:    make(map[string]*list.Element),
	}
}

// get returns the entry for key if present and not expired, refreshing its
// recency. Expired items are dropped on access.
func (m *memoryTier) get(key string) (*Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.index[key]
	if !ok {
		return nil, false
	}
	item := el.Value.(*memoryItem)
	if time.Now().After(item.expiresAt) {
		m.removeElement(el)
		m.onEvict("expired")
		return nil, false
	}
	m.ll.MoveToFront(el)
	return item.entry, true
}

// set inserts or replaces the entry for key, evicting the least recently used
// item when over capacity.
func (m *memoryTier) set(key string, entry *Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	expires := time.Now().Add(m.ttl)
	if el, ok := m.index[key]; ok {
		item := el.Value.(*memoryItem)
		item.entry = entry
		item.expiresAt = expires
		m.ll.MoveToFront(el)
		return
	}

	el := m.ll.PushFront(&memoryItem{key: key, entry: entry, expiresAt: expires})
	m.index[key] = el

	for m.ll.Len() > m.capacity {
		oldest := m.ll.Back()
		if oldest == nil {
			break
		}
		m.removeElement(oldest)
		m.onEvict("capacity")
	}
}

func (m *memoryTier) delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if el, ok := m.index[key]; ok {
		m.removeElement(el)
	}
}

func (m *memoryTier) clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ll.Init()
	m.index = make(map[string]*list.Element)
}

func (m *memoryTier) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ll.Len()
}

// removeElement must be called with the mutex held.
func (m *memoryTier) removeElement(el *list.Element) {
	m.ll.Remove(el)
	delete(m.index, el.Value.(*memoryItem).key)
}
