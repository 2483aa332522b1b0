package workflow

import (
	"context"
	"time"
)

// Emitter receives instance lifecycle notifications from the engine.
// This interface is satisfied by ext.Registry; it is defined here to
// break the import cycle between workflow and ext. Emit methods must
// not block the advancing caller and must never return errors into the
// engine's mutation path.
type Emitter interface {
	EmitInstanceStarted(ctx context.Context, inst *Instance)
	EmitStepCompleted(ctx context.Context, inst *Instance, stepName string, elapsed time.Duration)
	EmitStepFailed(ctx context.Context, inst *Instance, stepName string, err error)
	EmitInstanceCompleted(ctx context.Context, inst *Instance)
	EmitInstancePaused(ctx context.Context, inst *Instance)
	EmitInstanceResumed(ctx context.Context, inst *Instance)
	EmitInstanceCancelled(ctx context.Context, inst *Instance)
}

// NopEmitter is an Emitter that does nothing. Used when no extensions
// are wired, and by tests.
type NopEmitter struct{}

func (NopEmitter) EmitInstanceStarted(_ context.Context, _ *Instance) {}
func (NopEmitter) EmitStepCompleted(_ context.Context, _ *Instance, _ string, _ time.Duration) {
}
func (NopEmitter) EmitStepFailed(_ context.Context, _ *Instance, _ string, _ error) {}
func (NopEmitter) EmitInstanceCompleted(_ context.Context, _ *Instance)             {}
func (NopEmitter) EmitInstancePaused(_ context.Context, _ *Instance)                {}
func (NopEmitter) EmitInstanceResumed(_ context.Context, _ *Instance)               {}
func (NopEmitter) EmitInstanceCancelled(_ context.Context, _ *Instance)             {}
