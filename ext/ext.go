package ext

import (
	"context"
	"time"

	"github.com/campushub/concierge/workflow"
)

// Extension is the base interface all extensions must implement.
type Extension interface {
	// Name returns a unique human-readable name for the extension.
	Name() string
}

// ──────────────────────────────────────────────────
// Instance lifecycle hooks
// ──────────────────────────────────────────────────

// InstanceStarted is called after a new workflow instance is created.
type InstanceStarted interface {
	OnInstanceStarted(ctx context.Context, inst *workflow.Instance) error
}

// StepCompleted is called after a step executes successfully.
type StepCompleted interface {
	OnStepCompleted(ctx context.Context, inst *workflow.Instance, stepName string, elapsed time.Duration) error
}

// StepFailed is called when a step's validation or execution fails.
type StepFailed interface {
	OnStepFailed(ctx context.Context, inst *workflow.Instance, stepName string, err error) error
}

// InstanceCompleted is called when the final step of an instance
// finishes successfully.
type InstanceCompleted interface {
	OnInstanceCompleted(ctx context.Context, inst *workflow.Instance) error
}

// InstancePaused is called after an instance is suspended.
type InstancePaused interface {
	OnInstancePaused(ctx context.Context, inst *workflow.Instance) error
}

// InstanceResumed is called after a paused instance returns to running.
type InstanceResumed interface {
	OnInstanceResumed(ctx context.Context, inst *workflow.Instance) error
}

// InstanceCancelled is called after an instance is cancelled.
type InstanceCancelled interface {
	OnInstanceCancelled(ctx context.Context, inst *workflow.Instance) error
}

// ──────────────────────────────────────────────────
// Other lifecycle hooks
// ──────────────────────────────────────────────────

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
