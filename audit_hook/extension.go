package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/campushub/concierge/ext"
	"github.com/campushub/concierge/workflow"
)

// Compile-time interface checks.
var (
	_ ext.Extension         = (*Extension)(nil)
	_ ext.InstanceStarted   = (*Extension)(nil)
	_ ext.StepCompleted     = (*Extension)(nil)
	_ ext.StepFailed        = (*Extension)(nil)
	_ ext.InstanceCompleted = (*Extension)(nil)
	_ ext.InstancePaused    = (*Extension)(nil)
	_ ext.InstanceResumed   = (*Extension)(nil)
	_ ext.InstanceCancelled = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// It is defined locally so the package does not depend on any
// particular audit product; callers inject an adapter at wiring time.
type Recorder interface {
	// Record persists a fully-formed audit event.
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	// What happened
	Action   string `json:"action"`
	Resource string `json:"resource"`
	Category string `json:"category"`

	// Details
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Severity constants.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Outcome constants.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Extension bridges instance lifecycle events to an audit trail
// backend. Each lifecycle hook emits a structured audit event through
// the [Recorder].
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements ext.Extension.
func (e *Extension) Name() string { return "audit-hook" }

// ── Instance lifecycle hooks ────────────────────────

// OnInstanceStarted implements ext.InstanceStarted.
func (e *Extension) OnInstanceStarted(ctx context.Context, inst *workflow.Instance) error {
	return e.record(ctx, ActionInstanceStarted, SeverityInfo, OutcomeSuccess,
		inst.ID.String(), nil,
		"workflow", inst.Type,
		"owner_id", inst.OwnerID,
		"total_steps", inst.TotalSteps,
	)
}

// OnStepCompleted implements ext.StepCompleted.
func (e *Extension) OnStepCompleted(ctx context.Context, inst *workflow.Instance, stepName string, elapsed time.Duration) error {
	return e.record(ctx, ActionStepCompleted, SeverityInfo, OutcomeSuccess,
		inst.ID.String(), nil,
		"workflow", inst.Type,
		"owner_id", inst.OwnerID,
		"step", stepName,
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// OnStepFailed implements ext.StepFailed.
func (e *Extension) OnStepFailed(ctx context.Context, inst *workflow.Instance, stepName string, stepErr error) error {
	return e.record(ctx, ActionStepFailed, SeverityWarning, OutcomeFailure,
		inst.ID.String(), stepErr,
		"workflow", inst.Type,
		"owner_id", inst.OwnerID,
		"step", stepName,
	)
}

// OnInstanceCompleted implements ext.InstanceCompleted.
func (e *Extension) OnInstanceCompleted(ctx context.Context, inst *workflow.Instance) error {
	return e.record(ctx, ActionInstanceCompleted, SeverityInfo, OutcomeSuccess,
		inst.ID.String(), nil,
		"workflow", inst.Type,
		"owner_id", inst.OwnerID,
	)
}

// OnInstancePaused implements ext.InstancePaused.
func (e *Extension) OnInstancePaused(ctx context.Context, inst *workflow.Instance) error {
	return e.record(ctx, ActionInstancePaused, SeverityInfo, OutcomeSuccess,
		inst.ID.String(), nil,
		"workflow", inst.Type,
		"owner_id", inst.OwnerID,
		"current_step", inst.CurrentStep,
	)
}

// OnInstanceResumed implements ext.InstanceResumed.
func (e *Extension) OnInstanceResumed(ctx context.Context, inst *workflow.Instance) error {
	return e.record(ctx, ActionInstanceResumed, SeverityInfo, OutcomeSuccess,
		inst.ID.String(), nil,
		"workflow", inst.Type,
		"owner_id", inst.OwnerID,
		"current_step", inst.CurrentStep,
	)
}

// OnInstanceCancelled implements ext.InstanceCancelled.
func (e *Extension) OnInstanceCancelled(ctx context.Context, inst *workflow.Instance) error {
	return e.record(ctx, ActionInstanceCancelled, SeverityWarning, OutcomeSuccess,
		inst.ID.String(), nil,
		"workflow", inst.Type,
		"owner_id", inst.OwnerID,
		"current_step", inst.CurrentStep,
	)
}

// ── Internal helpers ────────────────────────────────

// record builds and sends an audit event if the action is enabled.
// The kvPairs argument is a list of key-value pairs added to Metadata.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resourceID string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   ResourceInstance,
		Category:   CategoryWorkflow,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
