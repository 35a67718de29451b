package lease

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryManager issues leases that only exclude callers in this process.
type MemoryManager struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	token     string
	expiresAt time.Time
}

// NewMemoryManager creates an in-process lease manager.
func NewMemoryManager() *MemoryManager {
	return &MemoryManager{entries: make(map[string]memoryEntry), now: time.Now}
}

// Acquire takes key for ttl or returns ErrHeld.
func (m *MemoryManager) Acquire(_ context.Context, key string, ttl time.Duration) (Lease, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if entry, ok := m.entries[key]; ok && now.Before(entry.expiresAt) {
		return nil, ErrHeld
	}
	token := uuid.NewString()
	m.entries[key] = memoryEntry{token: token, expiresAt: now.Add(ttl)}
	return &memoryLease{manager: m, key: key, token: token}, nil
}

type memoryLease struct {
	manager *MemoryManager
	key     string
	token   string
}

func (l *memoryLease) Key() string { return l.key }

func (l *memoryLease) Release(context.Context) error {
	l.manager.mu.Lock()
	defer l.manager.mu.Unlock()
	if entry, ok := l.manager.entries[l.key]; ok && entry.token == l.token {
		delete(l.manager.entries, l.key)
	}
	return nil
}
