package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/campushub/concierge/workflow"
)

const colInstances = "concierge_instances"

var _ workflow.Store = (*Store)(nil)

// Store is a MongoDB implementation of workflow.Store. The version
// check on updates uses a filtered replace, so concurrent advances
// against the same instance resolve the same way as in the SQL stores.
type Store struct {
	client *mongod.Client
	db     *mongod.Database
	owned  bool
	logger *slog.Logger
}

// Option configures the Store.
type Option func(*Store)

// WithLogger sets the logger for the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New connects to MongoDB at uri and uses the named database. Close
// disconnects the client.
func New(ctx context.Context, uri, database string, opts ...Option) (*Store, error) {
	client, err := mongod.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("concierge/mongo: connect: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("concierge/mongo: ping: %w", err)
	}

	s := NewFromClient(client, database, opts...)
	s.owned = true
	return s, nil
}

// NewFromClient creates a Store from an existing client. The caller
// owns the client lifecycle; Close will not disconnect it.
func NewFromClient(client *mongod.Client, database string, opts ...Option) *Store {
	s := &Store{
		client: client,
		db:     client.Database(database),
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Migrate creates the instance collection indexes.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := []mongod.IndexModel{
		// Active-instance lookup per owner.
		{Keys: bson.D{
			{Key: "owner_id", Value: 1},
			{Key: "state", Value: 1},
			{Key: "created_at", Value: -1},
		}},
		// Janitor sweep over stale instances.
		{Keys: bson.D{
			{Key: "state", Value: 1},
			{Key: "updated_at", Value: 1},
		}},
		{Keys: bson.D{{Key: "workflow_type", Value: 1}}},
	}

	_, err := s.db.Collection(colInstances).Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("concierge/mongo: migrate indexes: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects the client when the Store created it; otherwise it
// is a no-op.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Database returns the underlying database handle for advanced usage.
func (s *Store) Database() *mongod.Database {
	return s.db
}

// ── helpers ──────────────────────────────────────────────────────

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments returns true when err indicates no MongoDB documents found.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongod.ErrNoDocuments)
}

// isDuplicateKey checks if a MongoDB error is a duplicate key violation.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "duplicate key") ||
		strings.Contains(err.Error(), "E11000")
}
