package blacklist

import (
	"context"
	"crypto/sha256"
	"sync"
	"time"
)

// Memory is a concurrency-safe in-process blacklist. The zero value is not
// usable; call NewMemory.
type Memory struct {
	mu      sync.RWMutex
	entries map[[32]byte]time.Time
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[[32]byte]time.Time)}
}

// Add revokes token until expiresAt. Re-adding keeps the later expiry.
func (m *Memory) Add(_ context.Context, token string, expiresAt time.Time) error {
	key := sha256.Sum256([]byte(token))

	m.mu.Lock()
	if cur, ok := m.entries[key]; !ok || expiresAt.After(cur) {
		m.entries[key] = expiresAt
	}
	m.mu.Unlock()
	return nil
}

// Contains reports whether token has been revoked. Entries are reported even
// after their expiry until Cleanup removes them.
func (m *Memory) Contains(_ context.Context, token string) (bool, error) {
	key := sha256.Sum256([]byte(token))

	m.mu.RLock()
	_, ok := m.entries[key]
	m.mu.RUnlock()
	return ok, nil
}

// Cleanup evicts entries whose expiry is at or before now and returns how
// many were removed.
func (m *Memory) Cleanup(_ context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, exp := range m.entries {
		if !exp.After(now) {
			delete(m.entries, key)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of entries, expired or not.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
