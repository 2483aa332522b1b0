package workflow

import (
	"context"
	"time"

	"github.com/campushub/concierge/id"
)

// ListOpts controls filtering and pagination for instance list queries.
type ListOpts struct {
	// Limit is the maximum number of instances to return. Zero means no limit.
	Limit int
	// Offset is the number of instances to skip.
	Offset int
	// OwnerID filters by owner. Empty means all owners.
	OwnerID string
	// Type filters by workflow type. Empty means all types.
	Type string
	// State filters by lifecycle state. Empty means all states.
	State State
	// UpdatedBefore, when non-zero, returns only instances whose last
	// successful mutation is older than the given time. Used by the
	// janitor to find abandoned instances.
	UpdatedBefore time.Time
}

// Store defines the persistence contract for workflow instances.
// It is the only shared mutable resource in the engine.
type Store interface {
	// CreateInstance persists a new instance. Fails with
	// concierge.ErrInstanceExists if the ID is already taken.
	CreateInstance(ctx context.Context, inst *Instance) error

	// GetInstance retrieves an instance by ID. Fails with
	// concierge.ErrInstanceNotFound if absent.
	GetInstance(ctx context.Context, instanceID id.InstanceID) (*Instance, error)

	// UpdateInstance persists changes to an existing instance. The
	// update succeeds only if inst.Version matches the persisted
	// version; on success the store bumps the version and the
	// updated-at timestamp on both the row and inst. A mismatch fails
	// with concierge.ErrConcurrentModification.
	UpdateInstance(ctx context.Context, inst *Instance) error

	// FindActive returns the single live (running or paused) instance
	// for an owner, newest first if several exist. Fails with
	// concierge.ErrInstanceNotFound when the owner has none.
	FindActive(ctx context.Context, ownerID string) (*Instance, error)

	// ListInstances returns instances matching the given options,
	// ordered by creation time.
	ListInstances(ctx context.Context, opts ListOpts) ([]*Instance, error)
}

// ActiveIndex caches the active instance per owner. It is a derived,
// rebuildable view over the Store, never an independent source of
// truth. Implementations may drop entries at any time; a miss simply
// falls back to Store.FindActive.
type ActiveIndex interface {
	// Set records inst as its owner's active instance.
	Set(ctx context.Context, inst *Instance) error

	// Get returns the cached active instance for an owner, or
	// (nil, nil) on a miss.
	Get(ctx context.Context, ownerID string) (*Instance, error)

	// Invalidate removes the owner's cached entry.
	Invalidate(ctx context.Context, ownerID string) error
}
