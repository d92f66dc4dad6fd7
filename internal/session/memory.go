package session

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	data      []byte
	version   int
	expiresAt time.Time
}

// MemoryStore keeps encoded sessions in process memory. Loads return a
// fresh copy so concurrent requests never share a Cart map.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]memoryEntry
	ttl   time.Duration
	now   func() time.Time
}

// NewMemoryStore creates a store whose sessions expire ttl after their last save.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		items: make(map[string]memoryEntry),
		ttl:   ttl,
		now:   time.Now,
	}
}

func (m *MemoryStore) Load(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	entry, ok := m.items[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	if m.ttl > 0 && m.now().After(entry.expiresAt) {
		m.mu.Lock()
		delete(m.items, id)
		m.mu.Unlock()
		return nil, ErrNotFound
	}
	return decode(id, entry.data)
}

func (m *MemoryStore) Save(ctx context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if entry, ok := m.items[s.ID]; ok && !(m.ttl > 0 && now.After(entry.expiresAt)) {
		if entry.version != s.Version {
			return ErrConflict
		}
	}

	s.Version++
	data, err := encode(s)
	if err != nil {
		s.Version--
		return err
	}
	m.items[s.ID] = memoryEntry{data: data, version: s.Version, expiresAt: now.Add(m.ttl)}
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	return nil
}

// Len returns the number of stored sessions, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}
