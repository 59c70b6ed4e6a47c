package ttlstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryEntry struct {
	value     string
	set       map[string]struct{}
	window    map[string]time.Time
	expiresAt time.Time // zero means no expiry
}

// MemoryStore is a single-process Store guarded by one mutex. Expired keys
// are dropped lazily on access.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	now     func() time.Time
}

// NewMemoryStore creates a store that reads time from now. A nil now uses time.Now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		entries: make(map[string]*memoryEntry),
		now:     now,
	}
}

// lookup returns the live entry for key; caller must hold mu
func (m *MemoryStore) lookup(key string) *memoryEntry {
	e, ok := m.entries[key]
	if !ok {
		return nil
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		delete(m.entries, key)
		return nil
	}
	return e
}

func (m *MemoryStore) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return m.now().Add(ttl)
}

func (m *MemoryStore) WindowAdmit(_ context.Context, key string, now time.Time, window, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.lookup(key)
	if e == nil {
		e = &memoryEntry{window: make(map[string]time.Time)}
		m.entries[key] = e
	}

	cutoff := now.Add(-window)
	for member, at := range e.window {
		if !at.After(cutoff) {
			delete(e.window, member)
		}
	}

	count := int64(len(e.window))
	e.window[uuid.NewString()] = now
	e.expiresAt = m.expiry(ttl)

	return count, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = &memoryEntry{value: value, expiresAt: m.expiry(ttl)}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.lookup(key)
	if e == nil || e.set != nil || e.window != nil {
		return "", ErrKeyNotFound
	}
	return e.value, nil
}

func (m *MemoryStore) GetDel(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.lookup(key)
	if e == nil || e.set != nil || e.window != nil {
		return "", ErrKeyNotFound
	}
	delete(m.entries, key)
	return e.value, nil
}

func (m *MemoryStore) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.lookup(key) != nil, nil
}

func (m *MemoryStore) TTL(_ context.Context, key string) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.lookup(key)
	if e == nil {
		return 0, ErrKeyNotFound
	}
	if e.expiresAt.IsZero() {
		return 0, nil
	}
	return e.expiresAt.Sub(m.now()), nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lookup(key) == nil {
		return false, nil
	}
	delete(m.entries, key)
	return true, nil
}

func (m *MemoryStore) AddMember(_ context.Context, key, member string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.lookup(key)
	if e == nil || e.set == nil {
		e = &memoryEntry{set: make(map[string]struct{})}
		m.entries[key] = e
	}
	e.set[member] = struct{}{}
	e.expiresAt = m.expiry(ttl)
	return nil
}

func (m *MemoryStore) Members(_ context.Context, key string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.lookup(key)
	if e == nil || e.set == nil {
		return nil, nil
	}
	members := make([]string, 0, len(e.set))
	for member := range e.set {
		members = append(members, member)
	}
	sort.Strings(members)
	return members, nil
}

func (m *MemoryStore) RemoveMembers(_ context.Context, key string, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.lookup(key)
	if e == nil || e.set == nil {
		return nil
	}
	for _, member := range members {
		delete(e.set, member)
	}
	// Redis drops a set once it is empty
	if len(e.set) == 0 {
		delete(m.entries, key)
	}
	return nil
}

func (m *MemoryStore) ScanKeys(_ context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var keys []string
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) && m.lookup(key) != nil {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *MemoryStore) Ping(context.Context) error {
	return nil
}
