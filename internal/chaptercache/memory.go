package chaptercache

import (
	"container/list"
	"sync"
)

type memoryItem struct {
	key   string
	entry Entry
}

// memoryTier is a fixed-capacity map evicted in insertion order. Reads never
// change an entry's position and overwriting a key keeps its original slot.
type memoryTier struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*list.Element
	order    *list.List
}

func newMemoryTier(capacity int) *memoryTier {
	if capacity < 1 {
		capacity = 1
	}
	return &memoryTier{
		capacity: capacity,
		items:    make(map[string]*list.Element, capacity),
		order:    list.New(),
	}
}

func (m *memoryTier) get(key string) (Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	el, ok := m.items[key]
	if !ok {
		return Entry{}, false
	}
	return el.Value.(*memoryItem).entry, true
}

// put stores entry and reports whether an older entry was evicted.
func (m *memoryTier) put(key string, entry Entry) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if el, ok := m.items[key]; ok {
		el.Value.(*memoryItem).entry = entry
		return false
	}
	evicted := false
	for m.order.Len() >= m.capacity {
		oldest := m.order.Front()
		m.order.Remove(oldest)
		delete(m.items, oldest.Value.(*memoryItem).key)
		evicted = true
	}
	m.items[key] = m.order.PushBack(&memoryItem{key: key, entry: entry})
	return evicted
}

func (m *memoryTier) remove(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if el, ok := m.items[key]; ok {
		m.order.Remove(el)
		delete(m.items, key)
	}
}

func (m *memoryTier) clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = make(map[string]*list.Element, m.capacity)
	m.order.Init()
}

func (m *memoryTier) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}

// snapshot returns items oldest first.
func (m *memoryTier) snapshot() []memoryItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]memoryItem, 0, m.order.Len())
	for el := m.order.Front(); el != nil; el = el.Next() {
		out = append(out, *el.Value.(*memoryItem))
	}
	return out
}
