package janitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	cronlib "github.com/robfig/cron/v3"

	"github.com/campushub/concierge"
	"github.com/campushub/concierge/workflow"
)

// sweepStates are the lifecycle states a sweep considers abandonable.
var sweepStates = []workflow.State{workflow.StateRunning, workflow.StatePaused}

// Janitor cancels instances whose owners walked away: any active
// instance without a successful mutation for the abandon window gets
// cancelled on the next sweep, freeing the owner's routing slot.
type Janitor struct {
	engine       *workflow.Engine
	store        workflow.Store
	abandonAfter time.Duration
	schedule     string
	batchSize    int
	logger       *slog.Logger

	cron *cronlib.Cron
}

// Option configures the Janitor.
type Option func(*Janitor)

// WithAbandonAfter sets the inactivity window after which an active
// instance counts as abandoned.
func WithAbandonAfter(d time.Duration) Option {
	return func(j *Janitor) {
		j.abandonAfter = d
	}
}

// WithSchedule sets the sweep cron expression. Standard 5-field specs
// and descriptors like "@every 15m" are accepted.
func WithSchedule(expr string) Option {
	return func(j *Janitor) {
		j.schedule = expr
	}
}

// WithBatchSize bounds how many instances a single sweep cancels per
// state. Zero means unbounded.
func WithBatchSize(n int) Option {
	return func(j *Janitor) {
		j.batchSize = n
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(j *Janitor) {
		j.logger = logger
	}
}

// New creates a Janitor. Cancellations go through the engine so the
// usual events and index invalidation fire; the store is only read.
func New(engine *workflow.Engine, store workflow.Store, opts ...Option) *Janitor {
	cfg := concierge.DefaultConfig()

	j := &Janitor{
		engine:       engine,
		store:        store,
		abandonAfter: cfg.AbandonAfter,
		schedule:     cfg.SweepSchedule,
		batchSize:    500,
		logger:       slog.Default(),
	}

	for _, opt := range opts {
		opt(j)
	}

	return j
}

// Start begins the periodic sweep. Stop must be called on shutdown.
func (j *Janitor) Start() error {
	if j.cron != nil {
		return nil
	}

	c := cronlib.New()
	_, err := c.AddFunc(j.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		if _, err := j.Sweep(ctx); err != nil {
			j.logger.Error("janitor sweep failed", slog.String("error", err.Error()))
		}
	})
	if err != nil {
		return fmt.Errorf("concierge/janitor: parse schedule %q: %w", j.schedule, err)
	}

	c.Start()
	j.cron = c
	j.logger.Info("janitor started",
		slog.String("schedule", j.schedule),
		slog.Duration("abandon_after", j.abandonAfter))
	return nil
}

// Stop halts the sweep loop and waits for an in-flight sweep to finish.
func (j *Janitor) Stop(ctx context.Context) error {
	if j.cron == nil {
		return nil
	}

	done := j.cron.Stop().Done()
	j.cron = nil

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Sweep cancels all abandoned instances once and returns how many it
// cancelled. Races with a late-arriving owner message are resolved by
// the engine's version check; the losing cancel is skipped quietly.
func (j *Janitor) Sweep(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-j.abandonAfter)
	cancelled := 0

	for _, state := range sweepStates {
		stale, err := j.store.ListInstances(ctx, workflow.ListOpts{
			State:         state,
			UpdatedBefore: cutoff,
			Limit:         j.batchSize,
		})
		if err != nil {
			return cancelled, fmt.Errorf("concierge/janitor: list %s instances: %w", state, err)
		}

		for _, inst := range stale {
			if _, err := j.engine.Cancel(ctx, inst.ID); err != nil {
				if errors.Is(err, concierge.ErrTerminalState) ||
					errors.Is(err, concierge.ErrConcurrentModification) ||
					errors.Is(err, concierge.ErrInstanceNotFound) {
					continue
				}
				return cancelled, fmt.Errorf("concierge/janitor: cancel %s: %w", inst.ID, err)
			}

			cancelled++
			j.logger.Info("cancelled abandoned instance",
				slog.String("instance_id", inst.ID.String()),
				slog.String("owner_id", inst.OwnerID),
				slog.String("workflow", inst.Type),
				slog.Time("last_update", inst.UpdatedAt))
		}
	}

	return cancelled, nil
}
