// Package memory provides a fully in-memory workflow.Store.
// Safe for concurrent access. Intended for unit testing and development.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/campushub/concierge"
	"github.com/campushub/concierge/id"
	"github.com/campushub/concierge/workflow"
)

var _ workflow.Store = (*Store)(nil)

// Store keeps workflow instances in a mutex-guarded map. All reads and
// writes operate on copies so callers can mutate without racing with
// the store.
type Store struct {
	mu        sync.RWMutex
	instances map[string]*workflow.Instance
}

// New returns a new empty Store.
func New() *Store {
	return &Store{
		instances: make(map[string]*workflow.Instance),
	}
}

// Ping always succeeds for the memory store.
func (m *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (m *Store) Close() error { return nil }

// CreateInstance persists a new workflow instance.
func (m *Store) CreateInstance(_ context.Context, inst *workflow.Instance) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := inst.ID.String()
	if _, exists := m.instances[key]; exists {
		return concierge.ErrInstanceExists
	}
	m.instances[key] = inst.Clone()
	return nil
}

// GetInstance retrieves a workflow instance by ID.
func (m *Store) GetInstance(_ context.Context, instanceID id.InstanceID) (*workflow.Instance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	inst, ok := m.instances[instanceID.String()]
	if !ok {
		return nil, concierge.ErrInstanceNotFound
	}
	return inst.Clone(), nil
}

// UpdateInstance persists changes to an existing instance, guarded by
// an optimistic version check.
func (m *Store) UpdateInstance(_ context.Context, inst *workflow.Instance) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := inst.ID.String()
	current, ok := m.instances[key]
	if !ok {
		return concierge.ErrInstanceNotFound
	}
	if current.Version != inst.Version {
		return concierge.ErrConcurrentModification
	}

	inst.Version++
	inst.UpdatedAt = time.Now().UTC()
	m.instances[key] = inst.Clone()
	return nil
}

// FindActive returns the newest live instance for an owner.
func (m *Store) FindActive(_ context.Context, ownerID string) (*workflow.Instance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var newest *workflow.Instance
	for _, inst := range m.instances {
		if inst.OwnerID != ownerID || !inst.State.Active() {
			continue
		}
		if newest == nil || inst.CreatedAt.After(newest.CreatedAt) {
			newest = inst
		}
	}
	if newest == nil {
		return nil, concierge.ErrInstanceNotFound
	}
	return newest.Clone(), nil
}

// ListInstances returns instances matching the given options.
func (m *Store) ListInstances(_ context.Context, opts workflow.ListOpts) ([]*workflow.Instance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*workflow.Instance, 0, len(m.instances))
	for _, inst := range m.instances {
		if opts.OwnerID != "" && inst.OwnerID != opts.OwnerID {
			continue
		}
		if opts.Type != "" && inst.Type != opts.Type {
			continue
		}
		if opts.State != "" && inst.State != opts.State {
			continue
		}
		if !opts.UpdatedBefore.IsZero() && !inst.UpdatedAt.Before(opts.UpdatedBefore) {
			continue
		}
		result = append(result, inst.Clone())
	}

	// Sort by CreatedAt for deterministic output.
	sort.Slice(result, func(i, k int) bool {
		return result[i].CreatedAt.Before(result[k].CreatedAt)
	})

	if opts.Offset > 0 {
		if opts.Offset >= len(result) {
			return nil, nil
		}
		result = result[opts.Offset:]
	}
	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}

	return result, nil
}
