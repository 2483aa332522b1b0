// Package activeindex provides workflow.ActiveIndex implementations:
// a Redis-backed cache for multi-process deployments and an in-memory
// one for tests and single-node setups. The index is a derived view
// over the durable store; every entry carries a TTL so stale cache
// state ages out on its own.
package activeindex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/campushub/concierge"
	"github.com/campushub/concierge/id"
	"github.com/campushub/concierge/workflow"
)

// Redis key naming: all keys are prefixed with "concierge:" to avoid
// collisions with other tenants of the same Redis.
const keyPrefix = "concierge:"

// activeKey returns the key caching an owner's live instance:
// concierge:active:{ownerID}
func activeKey(ownerID string) string { return keyPrefix + "active:" + ownerID }

// cachedInstance is the msgpack wire form of a cached instance. IDs
// travel as strings because the typed ID carries no exported fields.
type cachedInstance struct {
	ID          string          `msgpack:"id"`
	Type        string          `msgpack:"type"`
	OwnerID     string          `msgpack:"owner_id"`
	CurrentStep int             `msgpack:"current_step"`
	TotalSteps  int             `msgpack:"total_steps"`
	StepData    json.RawMessage `msgpack:"step_data"`
	State       string          `msgpack:"state"`
	LastError   json.RawMessage `msgpack:"last_error,omitempty"`
	Version     int64           `msgpack:"version"`
	CreatedAt   time.Time       `msgpack:"created_at"`
	UpdatedAt   time.Time       `msgpack:"updated_at"`
}

func toCached(inst *workflow.Instance) (*cachedInstance, error) {
	stepData, err := json.Marshal(inst.StepData)
	if err != nil {
		return nil, fmt.Errorf("encode step data: %w", err)
	}
	var lastErr json.RawMessage
	if inst.LastError != nil {
		lastErr, err = json.Marshal(inst.LastError)
		if err != nil {
			return nil, fmt.Errorf("encode last error: %w", err)
		}
	}
	return &cachedInstance{
		ID:          inst.ID.String(),
		Type:        inst.Type,
		OwnerID:     inst.OwnerID,
		CurrentStep: inst.CurrentStep,
		TotalSteps:  inst.TotalSteps,
		StepData:    stepData,
		State:       string(inst.State),
		LastError:   lastErr,
		Version:     inst.Version,
		CreatedAt:   inst.CreatedAt,
		UpdatedAt:   inst.UpdatedAt,
	}, nil
}

func fromCached(c *cachedInstance) (*workflow.Instance, error) {
	instID, err := id.ParseInstanceID(c.ID)
	if err != nil {
		return nil, fmt.Errorf("decode instance id: %w", err)
	}
	inst := &workflow.Instance{
		ID:          instID,
		Type:        c.Type,
		OwnerID:     c.OwnerID,
		CurrentStep: c.CurrentStep,
		TotalSteps:  c.TotalSteps,
		State:       workflow.State(c.State),
		Version:     c.Version,
	}
	inst.CreatedAt = c.CreatedAt
	inst.UpdatedAt = c.UpdatedAt
	if len(c.StepData) > 0 {
		if err := json.Unmarshal(c.StepData, &inst.StepData); err != nil {
			return nil, fmt.Errorf("decode step data: %w", err)
		}
	}
	if len(c.LastError) > 0 {
		inst.LastError = &workflow.StepError{}
		if err := json.Unmarshal(c.LastError, inst.LastError); err != nil {
			return nil, fmt.Errorf("decode last error: %w", err)
		}
	}
	return inst, nil
}

var _ workflow.ActiveIndex = (*Redis)(nil)

// Redis caches the active instance per owner as a msgpack-encoded
// value with a TTL. The caller owns the client lifecycle.
type Redis struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedis creates a Redis-backed active index. A non-positive ttl
// falls back to the default from concierge.DefaultConfig.
func NewRedis(client redis.Cmdable, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = concierge.DefaultConfig().ActiveIndexTTL
	}
	return &Redis{client: client, ttl: ttl}
}

// Ping verifies the Redis connection is alive.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Set records inst as its owner's active instance.
func (r *Redis) Set(ctx context.Context, inst *workflow.Instance) error {
	cached, err := toCached(inst)
	if err != nil {
		return fmt.Errorf("concierge/activeindex: instance %s: %w", inst.ID, err)
	}
	raw, err := msgpack.Marshal(cached)
	if err != nil {
		return fmt.Errorf("concierge/activeindex: encode instance %s: %w", inst.ID, err)
	}
	if err := r.client.Set(ctx, activeKey(inst.OwnerID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("concierge/activeindex: set %s: %w", inst.OwnerID, err)
	}
	return nil
}

// Get returns the cached active instance for an owner, or (nil, nil)
// on a miss. An entry that fails to decode is dropped and treated as
// a miss.
func (r *Redis) Get(ctx context.Context, ownerID string) (*workflow.Instance, error) {
	raw, err := r.client.Get(ctx, activeKey(ownerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("concierge/activeindex: get %s: %w", ownerID, err)
	}

	var cached cachedInstance
	if err := msgpack.Unmarshal(raw, &cached); err != nil {
		_ = r.client.Del(ctx, activeKey(ownerID)).Err()
		return nil, nil
	}
	inst, err := fromCached(&cached)
	if err != nil {
		_ = r.client.Del(ctx, activeKey(ownerID)).Err()
		return nil, nil
	}
	return inst, nil
}

// Invalidate removes the owner's cached entry.
func (r *Redis) Invalidate(ctx context.Context, ownerID string) error {
	if err := r.client.Del(ctx, activeKey(ownerID)).Err(); err != nil {
		return fmt.Errorf("concierge/activeindex: invalidate %s: %w", ownerID, err)
	}
	return nil
}
