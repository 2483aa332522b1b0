package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/campushub/concierge"
	"github.com/campushub/concierge/id"
	"github.com/campushub/concierge/workflow"
)

// CreateInstance persists a new workflow instance.
func (s *Store) CreateInstance(ctx context.Context, inst *workflow.Instance) error {
	m, err := toInstanceModel(inst)
	if err != nil {
		return err
	}

	_, err = s.db.Collection(colInstances).InsertOne(ctx, m)
	if err != nil {
		if isDuplicateKey(err) {
			return concierge.ErrInstanceExists
		}
		return fmt.Errorf("concierge/mongo: create instance: %w", err)
	}
	return nil
}

// GetInstance retrieves an instance by ID.
func (s *Store) GetInstance(ctx context.Context, instanceID id.InstanceID) (*workflow.Instance, error) {
	var m instanceModel
	err := s.db.Collection(colInstances).
		FindOne(ctx, bson.M{"_id": instanceID.String()}).
		Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, concierge.ErrInstanceNotFound
		}
		return nil, fmt.Errorf("concierge/mongo: get instance: %w", err)
	}
	return fromInstanceModel(&m)
}

// UpdateInstance persists changes to an existing instance. The replace
// filter matches on both ID and version, so a stale writer touches
// nothing; on success the version and UpdatedAt on inst are advanced.
func (s *Store) UpdateInstance(ctx context.Context, inst *workflow.Instance) error {
	m, err := toInstanceModel(inst)
	if err != nil {
		return err
	}
	m.Version = inst.Version + 1
	m.UpdatedAt = now()

	res, err := s.db.Collection(colInstances).ReplaceOne(ctx,
		bson.M{"_id": m.ID, "version": inst.Version},
		m,
	)
	if err != nil {
		return fmt.Errorf("concierge/mongo: update instance: %w", err)
	}
	if res.MatchedCount == 0 {
		return s.classifyUpdateMiss(ctx, inst)
	}

	inst.Version = m.Version
	inst.UpdatedAt = m.UpdatedAt
	return nil
}

// classifyUpdateMiss distinguishes a missing document from a version
// mismatch after an update matched nothing.
func (s *Store) classifyUpdateMiss(ctx context.Context, inst *workflow.Instance) error {
	err := s.db.Collection(colInstances).
		FindOne(ctx, bson.M{"_id": inst.ID.String()},
			options.FindOne().SetProjection(bson.M{"_id": 1})).
		Err()
	if isNoDocuments(err) {
		return concierge.ErrInstanceNotFound
	}
	if err != nil {
		return fmt.Errorf("concierge/mongo: update instance: %w", err)
	}
	return concierge.ErrConcurrentModification
}

// FindActive returns the owner's most recently created active instance,
// or ErrInstanceNotFound when the owner has none.
func (s *Store) FindActive(ctx context.Context, ownerID string) (*workflow.Instance, error) {
	filter := bson.M{
		"owner_id": ownerID,
		"state":    bson.M{"$in": []string{string(workflow.StateRunning), string(workflow.StatePaused)}},
	}

	var m instanceModel
	err := s.db.Collection(colInstances).
		FindOne(ctx, filter,
			options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})).
		Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, concierge.ErrInstanceNotFound
		}
		return nil, fmt.Errorf("concierge/mongo: find active: %w", err)
	}
	return fromInstanceModel(&m)
}

// ListInstances returns instances matching opts, oldest first.
func (s *Store) ListInstances(ctx context.Context, opts workflow.ListOpts) ([]*workflow.Instance, error) {
	filter := bson.M{}
	if opts.OwnerID != "" {
		filter["owner_id"] = opts.OwnerID
	}
	if opts.Type != "" {
		filter["workflow_type"] = opts.Type
	}
	if opts.State != "" {
		filter["state"] = string(opts.State)
	}
	if !opts.UpdatedBefore.IsZero() {
		filter["updated_at"] = bson.M{"$lt": opts.UpdatedBefore}
	}

	findOpts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	if opts.Limit > 0 {
		findOpts.SetLimit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		findOpts.SetSkip(int64(opts.Offset))
	}

	cursor, err := s.db.Collection(colInstances).Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("concierge/mongo: list instances: %w", err)
	}
	defer cursor.Close(ctx)

	var models []instanceModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("concierge/mongo: list instances decode: %w", err)
	}

	out := make([]*workflow.Instance, 0, len(models))
	for i := range models {
		inst, convErr := fromInstanceModel(&models[i])
		if convErr != nil {
			return nil, fmt.Errorf("concierge/mongo: list instances convert: %w", convErr)
		}
		out = append(out, inst)
	}
	return out, nil
}
