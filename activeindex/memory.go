package activeindex

import (
	"context"
	"sync"
	"time"

	"github.com/campushub/concierge"
	"github.com/campushub/concierge/workflow"
)

var _ workflow.ActiveIndex = (*Memory)(nil)

// Memory is an in-process ActiveIndex with the same TTL semantics as
// the Redis one. Expired entries are dropped lazily on read.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
}

type memoryEntry struct {
	inst      *workflow.Instance
	expiresAt time.Time
}

// NewMemory creates an in-memory active index. A non-positive ttl
// falls back to the default from concierge.DefaultConfig.
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = concierge.DefaultConfig().ActiveIndexTTL
	}
	return &Memory{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
	}
}

// Set records inst as its owner's active instance.
func (m *Memory) Set(_ context.Context, inst *workflow.Instance) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[inst.OwnerID] = memoryEntry{
		inst:      inst.Clone(),
		expiresAt: time.Now().Add(m.ttl),
	}
	return nil
}

// Get returns the cached active instance for an owner, or (nil, nil)
// on a miss or an expired entry.
func (m *Memory) Get(_ context.Context, ownerID string) (*workflow.Instance, error) {
	m.mu.RLock()
	entry, ok := m.entries[ownerID]
	m.mu.RUnlock()

	if !ok {
		return nil, nil
	}
	if time.Now().After(entry.expiresAt) {
		m.mu.Lock()
		delete(m.entries, ownerID)
		m.mu.Unlock()
		return nil, nil
	}
	return entry.inst.Clone(), nil
}

// Invalidate removes the owner's cached entry.
func (m *Memory) Invalidate(_ context.Context, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, ownerID)
	return nil
}
