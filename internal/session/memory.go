package session

import (
	"container/list"
	"context"
	"sync"
	"time"
)

type memEntry struct {
	values    []string
	touchedAt time.Time
	element   *list.Element
}

// MemoryManager keeps session data in process memory. Entries expire after
// TTL of inactivity and the least recently written entry is evicted once
// maxEntries is reached. A background goroutine sweeps expired entries until
// Close is called.
type MemoryManager struct {
	mu         sync.Mutex
	entries    map[string]*memEntry
	order      *list.List // keys, least recently written at front
	ttl        time.Duration
	maxEntries int
	now        func() time.Time

	done   chan struct{}
	closed bool
}

// NewMemoryManager creates an in-memory manager.
func NewMemoryManager(ttl time.Duration, maxEntries int) *MemoryManager {
	m := newMemoryManager(ttl, maxEntries, time.Now)
	go m.sweep(time.Minute)
	return m
}

func newMemoryManager(ttl time.Duration, maxEntries int, now func() time.Time) *MemoryManager {
	if maxEntries <= 0 {
		maxEntries = 100000
	}
	return &MemoryManager{
		entries:    make(map[string]*memEntry),
		order:      list.New(),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        now,
		done:       make(chan struct{}),
	}
}

// Open returns the store for sessionID.
func (m *MemoryManager) Open(sessionID string) Store {
	return &memoryStore{m: m, sid: sessionID}
}

// Len returns the number of live entries.
func (m *MemoryManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Close stops the sweeper. It is safe to call multiple times.
func (m *MemoryManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		close(m.done)
		m.closed = true
	}
	return nil
}

func (m *MemoryManager) get(key string) ([]string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	if m.expired(e) {
		m.removeLocked(key, e)
		return nil, false
	}
	return clone(e.values), true
}

func (m *MemoryManager) set(key string, values []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if e, ok := m.entries[key]; ok {
		e.values = clone(values)
		e.touchedAt = now
		m.order.MoveToBack(e.element)
		return
	}
	if len(m.entries) >= m.maxEntries {
		if front := m.order.Front(); front != nil {
			k, _ := front.Value.(string)
			m.removeLocked(k, m.entries[k])
		}
	}
	m.entries[key] = &memEntry{
		values:    clone(values),
		touchedAt: now,
		element:   m.order.PushBack(key),
	}
}

func (m *MemoryManager) expired(e *memEntry) bool {
	return m.ttl > 0 && m.now().Sub(e.touchedAt) >= m.ttl
}

func (m *MemoryManager) removeLocked(key string, e *memEntry) {
	if e != nil {
		m.order.Remove(e.element)
	}
	delete(m.entries, key)
}

func (m *MemoryManager) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.sweepOnce()
		case <-m.done:
			return
		}
	}
}

func (m *MemoryManager) sweepOnce() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, e := range m.entries {
		if m.expired(e) {
			m.removeLocked(k, e)
		}
	}
}

type memoryStore struct {
	m   *MemoryManager
	sid string
}

func (s *memoryStore) key(k string) string { return s.sid + "\x00" + k }

func (s *memoryStore) Get(_ context.Context, key string) ([]string, bool, error) {
	if s.sid == "" {
		return nil, false, ErrNoSession
	}
	v, ok := s.m.get(s.key(key))
	return v, ok, nil
}

func (s *memoryStore) Set(_ context.Context, key string, values []string) error {
	if s.sid == "" {
		return ErrNoSession
	}
	s.m.set(s.key(key), values)
	return nil
}
