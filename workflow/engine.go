package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/campushub/concierge"
	"github.com/campushub/concierge/id"
	"github.com/campushub/concierge/middleware"
)

// Engine advances workflow instances one step at a time, enforcing
// validation before mutation and persisting state after every
// transition. Create one with NewEngine and functional options.
type Engine struct {
	registry *Registry
	store    Store
	index    ActiveIndex
	emitter  Emitter
	logger   *slog.Logger
	mw       middleware.Middleware

	executeTimeout time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithEmitter sets the lifecycle emitter (usually an ext.Registry).
func WithEmitter(em Emitter) Option {
	return func(e *Engine) { e.emitter = em }
}

// WithActiveIndex sets the derived active-instance-per-owner cache.
// Without one, GetActive always queries the store.
func WithActiveIndex(idx ActiveIndex) Option {
	return func(e *Engine) { e.index = idx }
}

// WithExecuteTimeout bounds every step execute call. Zero disables the
// bound (the caller's context still applies).
func WithExecuteTimeout(d time.Duration) Option {
	return func(e *Engine) { e.executeTimeout = d }
}

// WithMiddleware wraps step execution with the given middleware,
// outermost first.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(e *Engine) { e.mw = middleware.Chain(mws...) }
}

// NewEngine creates a workflow engine over a registry and a store.
func NewEngine(registry *Registry, store Store, opts ...Option) *Engine {
	e := &Engine{
		registry:       registry,
		store:          store,
		emitter:        NopEmitter{},
		logger:         slog.Default(),
		executeTimeout: concierge.DefaultConfig().ExecuteTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the engine's workflow registry.
func (e *Engine) Registry() *Registry { return e.registry }

// Start creates a new instance of the given workflow type for an owner
// and immediately executes step 0 with the initial input.
//
// If the owner already has a running instance, the request is routed as
// an Advance on that instance instead of creating a second one (at most
// one live workflow per owner). If the owner's live instance is paused,
// Start fails with concierge.ErrInstancePaused: the caller must resume
// or cancel it first.
func (e *Engine) Start(ctx context.Context, wfType, ownerID string, input json.RawMessage) (*Instance, error) {
	def, err := e.registry.Lookup(wfType)
	if err != nil {
		return nil, err
	}

	active, err := e.GetActive(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("start workflow %q: find active: %w", wfType, err)
	}
	if active != nil {
		if active.State == StatePaused {
			return active, fmt.Errorf("start workflow %q: %w", wfType, concierge.ErrInstancePaused)
		}
		e.logger.Info("routing start to active instance",
			slog.String("owner_id", ownerID),
			slog.String("requested_type", wfType),
			slog.String("instance_id", active.ID.String()),
		)
		return e.Advance(ctx, active.ID, input)
	}

	inst := &Instance{
		Entity:      concierge.NewEntity(),
		ID:          id.NewInstanceID(),
		Type:        wfType,
		OwnerID:     ownerID,
		CurrentStep: 0,
		TotalSteps:  len(def.Steps),
		StepData:    Data{},
		State:       StateRunning,
		Version:     1,
	}

	if err := e.store.CreateInstance(ctx, inst); err != nil {
		return nil, fmt.Errorf("create instance for workflow %q: %w", wfType, err)
	}

	e.emitter.EmitInstanceStarted(ctx, inst)
	e.indexSet(ctx, inst)

	return e.advance(ctx, inst, def, input)
}

// Advance moves an instance forward by validating the input against the
// current step and, on success, executing it. This is the only path
// that mutates the step index.
func (e *Engine) Advance(ctx context.Context, instanceID id.InstanceID, input json.RawMessage) (*Instance, error) {
	inst, err := e.store.GetInstance(ctx, instanceID)
	if err != nil {
		return nil, err
	}

	if inst.State.Terminal() {
		return nil, fmt.Errorf("advance instance %s: %w (%s)", instanceID, concierge.ErrTerminalState, inst.State)
	}
	if inst.State == StatePaused {
		return nil, fmt.Errorf("advance instance %s: %w", instanceID, concierge.ErrInstancePaused)
	}

	def, err := e.registry.Lookup(inst.Type)
	if err != nil {
		return nil, err
	}

	return e.advance(ctx, inst, def, input)
}

// advance runs validate + execute for the instance's current step.
// Validation failure and execution failure both leave the step index
// and accumulated data untouched; only the recorded last error changes.
func (e *Engine) advance(ctx context.Context, inst *Instance, def *Definition, input json.RawMessage) (*Instance, error) {
	// Unreachable while the completed invariant holds.
	if inst.CurrentStep >= inst.TotalSteps {
		e.logger.Error("instance step index out of range",
			slog.String("instance_id", inst.ID.String()),
			slog.Int("current_step", inst.CurrentStep),
			slog.Int("total_steps", inst.TotalSteps),
		)
		return nil, fmt.Errorf("advance instance %s: step %d of %d: %w",
			inst.ID, inst.CurrentStep, inst.TotalSteps, concierge.ErrInvariantViolation)
	}

	step := def.Steps[inst.CurrentStep]

	if err := step.Validate(ctx, input, inst); err != nil {
		verr := asValidationError(step.Name(), err)
		inst.LastError = verr.StepError()
		if saveErr := e.store.UpdateInstance(ctx, inst); saveErr != nil {
			return nil, fmt.Errorf("persist validation failure on %s: %w", inst.ID, saveErr)
		}
		e.indexSet(ctx, inst)
		e.emitter.EmitStepFailed(ctx, inst, step.Name(), verr)
		return inst, verr
	}

	result, elapsed, err := e.executeStep(ctx, step, input, inst)
	if err != nil {
		execErr := &ExecutionError{
			Step:    step.Name(),
			Err:     err,
			Timeout: errors.Is(err, context.DeadlineExceeded),
		}
		inst.LastError = execErr.StepError()
		if saveErr := e.store.UpdateInstance(ctx, inst); saveErr != nil {
			return nil, fmt.Errorf("persist execution failure on %s: %w", inst.ID, saveErr)
		}
		e.indexSet(ctx, inst)
		e.emitter.EmitStepFailed(ctx, inst, step.Name(), execErr)
		return inst, execErr
	}

	inst.StepData = inst.StepData.Merge(result.Data)
	inst.CurrentStep++
	inst.LastError = nil
	if inst.CurrentStep == inst.TotalSteps {
		inst.State = StateCompleted
	}

	// The version check makes the whole step atomic: if a concurrent
	// advance (or a cancel) won the race, this update loses and the
	// execute result is discarded rather than merged into stale state.
	if err := e.store.UpdateInstance(ctx, inst); err != nil {
		return nil, fmt.Errorf("persist step %q on %s: %w", step.Name(), inst.ID, err)
	}
	inst.Notice = result.Notice

	e.emitter.EmitStepCompleted(ctx, inst, step.Name(), elapsed)

	if inst.State == StateCompleted {
		e.emitter.EmitInstanceCompleted(ctx, inst)
		e.indexInvalidate(ctx, inst.OwnerID)
	} else {
		e.indexSet(ctx, inst)
	}

	return inst, nil
}

// executeStep runs the step's execute through the middleware chain,
// bounded by the configured timeout.
func (e *Engine) executeStep(ctx context.Context, step Step, input json.RawMessage, inst *Instance) (StepResult, time.Duration, error) {
	if e.executeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.executeTimeout)
		defer cancel()
	}

	info := middleware.StepInfo{
		InstanceID: inst.ID.String(),
		Workflow:   inst.Type,
		Step:       step.Name(),
		OwnerID:    inst.OwnerID,
	}

	var result StepResult
	handler := func(ctx context.Context) error {
		var err error
		result, err = step.Execute(ctx, input, inst)
		return err
	}

	start := time.Now()
	var err error
	if e.mw != nil {
		err = e.mw(ctx, info, handler)
	} else {
		err = handler(ctx)
	}
	return result, time.Since(start), err
}

// Pause suspends a live instance. Step index and accumulated data are
// untouched; only the state flips.
func (e *Engine) Pause(ctx context.Context, instanceID id.InstanceID) (*Instance, error) {
	inst, err := e.store.GetInstance(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	if inst.State.Terminal() {
		return nil, fmt.Errorf("pause instance %s: %w (%s)", instanceID, concierge.ErrTerminalState, inst.State)
	}
	if inst.State == StatePaused {
		return nil, fmt.Errorf("pause instance %s: %w", instanceID, concierge.ErrInstancePaused)
	}

	inst.State = StatePaused
	if err := e.store.UpdateInstance(ctx, inst); err != nil {
		return nil, fmt.Errorf("persist pause on %s: %w", instanceID, err)
	}
	e.indexSet(ctx, inst)
	e.emitter.EmitInstancePaused(ctx, inst)
	return inst, nil
}

// Resume lifts a pause. Everything was already durably persisted at the
// last successful advance, so resuming returns the state exactly as it
// was, regardless of which session or channel paused it.
func (e *Engine) Resume(ctx context.Context, instanceID id.InstanceID) (*Instance, error) {
	inst, err := e.store.GetInstance(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	if inst.State.Terminal() {
		return nil, fmt.Errorf("resume instance %s: %w (%s)", instanceID, concierge.ErrTerminalState, inst.State)
	}
	if inst.State != StatePaused {
		return nil, fmt.Errorf("resume instance %s: %w", instanceID, concierge.ErrNotPaused)
	}

	inst.State = StateRunning
	if err := e.store.UpdateInstance(ctx, inst); err != nil {
		return nil, fmt.Errorf("persist resume on %s: %w", instanceID, err)
	}
	e.indexSet(ctx, inst)
	e.emitter.EmitInstanceResumed(ctx, inst)
	return inst, nil
}

// Cancel terminates an instance. Cancellation is a state transition,
// not an interrupt: an execute already in flight will lose the version
// check when it tries to commit and its result is discarded.
func (e *Engine) Cancel(ctx context.Context, instanceID id.InstanceID) (*Instance, error) {
	inst, err := e.store.GetInstance(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	if inst.State.Terminal() {
		return nil, fmt.Errorf("cancel instance %s: %w (%s)", instanceID, concierge.ErrTerminalState, inst.State)
	}

	inst.State = StateCancelled
	if err := e.store.UpdateInstance(ctx, inst); err != nil {
		return nil, fmt.Errorf("persist cancel on %s: %w", instanceID, err)
	}
	e.indexInvalidate(ctx, inst.OwnerID)
	e.emitter.EmitInstanceCancelled(ctx, inst)
	return inst, nil
}

// Get retrieves an instance by ID.
func (e *Engine) Get(ctx context.Context, instanceID id.InstanceID) (*Instance, error) {
	return e.store.GetInstance(ctx, instanceID)
}

// GetActive returns the owner's single live instance, or nil if there
// is none. The active index is consulted first; on a miss the durable
// store is queried and the index repopulated.
func (e *Engine) GetActive(ctx context.Context, ownerID string) (*Instance, error) {
	if e.index != nil {
		inst, err := e.index.Get(ctx, ownerID)
		if err != nil {
			e.logger.Warn("active index lookup failed",
				slog.String("owner_id", ownerID),
				slog.String("error", err.Error()),
			)
		} else if inst != nil {
			return inst, nil
		}
	}

	inst, err := e.store.FindActive(ctx, ownerID)
	if err != nil {
		if errors.Is(err, concierge.ErrInstanceNotFound) {
			return nil, nil
		}
		return nil, err
	}

	e.indexSet(ctx, inst)
	return inst, nil
}

// Prompt returns the human-readable prompt for the instance's next
// step, or empty once the instance is terminal.
func (e *Engine) Prompt(inst *Instance) string {
	if inst.State.Terminal() {
		return ""
	}
	def, err := e.registry.Lookup(inst.Type)
	if err != nil || inst.CurrentStep >= len(def.Steps) {
		return ""
	}
	return def.Steps[inst.CurrentStep].Prompt(inst)
}

// indexSet updates the derived cache, logging failures instead of
// surfacing them: the index is rebuildable from the store.
func (e *Engine) indexSet(ctx context.Context, inst *Instance) {
	if e.index == nil {
		return
	}
	if err := e.index.Set(ctx, inst); err != nil {
		e.logger.Warn("active index set failed",
			slog.String("instance_id", inst.ID.String()),
			slog.String("error", err.Error()),
		)
	}
}

func (e *Engine) indexInvalidate(ctx context.Context, ownerID string) {
	if e.index == nil {
		return
	}
	if err := e.index.Invalidate(ctx, ownerID); err != nil {
		e.logger.Warn("active index invalidate failed",
			slog.String("owner_id", ownerID),
			slog.String("error", err.Error()),
		)
	}
}
