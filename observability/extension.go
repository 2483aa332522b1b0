package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/campushub/concierge/ext"
	"github.com/campushub/concierge/workflow"
)

const meterName = "github.com/campushub/concierge/observability"

// Compile-time interface checks.
var (
	_ ext.Extension         = (*MetricsExtension)(nil)
	_ ext.InstanceStarted   = (*MetricsExtension)(nil)
	_ ext.StepCompleted     = (*MetricsExtension)(nil)
	_ ext.StepFailed        = (*MetricsExtension)(nil)
	_ ext.InstanceCompleted = (*MetricsExtension)(nil)
	_ ext.InstancePaused    = (*MetricsExtension)(nil)
	_ ext.InstanceResumed   = (*MetricsExtension)(nil)
	_ ext.InstanceCancelled = (*MetricsExtension)(nil)
)

// MetricsExtension records system-wide lifecycle counters via
// OpenTelemetry. Register it on the ext.Registry to track instance
// starts, step outcomes, completions, pauses, resumes, and cancels per
// workflow type.
type MetricsExtension struct {
	instancesStarted   metric.Int64Counter
	stepsCompleted     metric.Int64Counter
	stepsFailed        metric.Int64Counter
	instancesCompleted metric.Int64Counter
	instancesPaused    metric.Int64Counter
	instancesResumed   metric.Int64Counter
	instancesCancelled metric.Int64Counter
}

// NewMetricsExtension creates a MetricsExtension using the global
// meter provider.
func NewMetricsExtension() *MetricsExtension {
	return NewMetricsExtensionWithMeter(otel.Meter(meterName))
}

// NewMetricsExtensionWithMeter creates a MetricsExtension with the
// provided meter. Instrument creation errors fall back to the API's
// no-op instruments.
func NewMetricsExtensionWithMeter(meter metric.Meter) *MetricsExtension {
	counter := func(name, desc, unit string) metric.Int64Counter {
		c, err := meter.Int64Counter(name,
			metric.WithDescription(desc),
			metric.WithUnit(unit),
		)
		_ = err // noop fallback guaranteed by OTel API contract
		return c
	}

	return &MetricsExtension{
		instancesStarted:   counter("concierge.instances.started", "Workflow instances created", "{instance}"),
		stepsCompleted:     counter("concierge.steps.completed", "Steps that executed successfully", "{step}"),
		stepsFailed:        counter("concierge.steps.failed", "Steps rejected by validation or failed in execution", "{step}"),
		instancesCompleted: counter("concierge.instances.completed", "Workflow instances that finished every step", "{instance}"),
		instancesPaused:    counter("concierge.instances.paused", "Workflow instances suspended", "{instance}"),
		instancesResumed:   counter("concierge.instances.resumed", "Paused instances returned to running", "{instance}"),
		instancesCancelled: counter("concierge.instances.cancelled", "Workflow instances abandoned by their owner", "{instance}"),
	}
}

// Name implements ext.Extension.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

func typeAttr(inst *workflow.Instance) metric.AddOption {
	return metric.WithAttributes(attribute.String("workflow", inst.Type))
}

// ── Instance lifecycle hooks ────────────────────────

// OnInstanceStarted implements ext.InstanceStarted.
func (m *MetricsExtension) OnInstanceStarted(ctx context.Context, inst *workflow.Instance) error {
	m.instancesStarted.Add(ctx, 1, typeAttr(inst))
	return nil
}

// OnStepCompleted implements ext.StepCompleted.
func (m *MetricsExtension) OnStepCompleted(ctx context.Context, inst *workflow.Instance, stepName string, _ time.Duration) error {
	m.stepsCompleted.Add(ctx, 1, metric.WithAttributes(
		attribute.String("workflow", inst.Type),
		attribute.String("step", stepName),
	))
	return nil
}

// OnStepFailed implements ext.StepFailed.
func (m *MetricsExtension) OnStepFailed(ctx context.Context, inst *workflow.Instance, stepName string, _ error) error {
	m.stepsFailed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("workflow", inst.Type),
		attribute.String("step", stepName),
	))
	return nil
}

// OnInstanceCompleted implements ext.InstanceCompleted.
func (m *MetricsExtension) OnInstanceCompleted(ctx context.Context, inst *workflow.Instance) error {
	m.instancesCompleted.Add(ctx, 1, typeAttr(inst))
	return nil
}

// OnInstancePaused implements ext.InstancePaused.
func (m *MetricsExtension) OnInstancePaused(ctx context.Context, inst *workflow.Instance) error {
	m.instancesPaused.Add(ctx, 1, typeAttr(inst))
	return nil
}

// OnInstanceResumed implements ext.InstanceResumed.
func (m *MetricsExtension) OnInstanceResumed(ctx context.Context, inst *workflow.Instance) error {
	m.instancesResumed.Add(ctx, 1, typeAttr(inst))
	return nil
}

// OnInstanceCancelled implements ext.InstanceCancelled.
func (m *MetricsExtension) OnInstanceCancelled(ctx context.Context, inst *workflow.Instance) error {
	m.instancesCancelled.Add(ctx, 1, typeAttr(inst))
	return nil
}
