package audithook

// Audit event actions. Each constant corresponds to one ext lifecycle hook
// and becomes the Action field of the audit event.
const (
	ActionInstanceStarted   = "workflow.started"
	ActionStepCompleted     = "workflow.step_completed"
	ActionStepFailed        = "workflow.step_failed"
	ActionInstanceCompleted = "workflow.completed"
	ActionInstancePaused    = "workflow.paused"
	ActionInstanceResumed   = "workflow.resumed"
	ActionInstanceCancelled = "workflow.cancelled"
)

// CategoryWorkflow groups all instance lifecycle actions.
const CategoryWorkflow = "concierge.workflow"

// ResourceInstance is the Resource field for instance audit events.
const ResourceInstance = "workflow_instance"

// AllActions returns every action this extension can emit.
func AllActions() []string {
	return []string{
		ActionInstanceStarted,
		ActionStepCompleted,
		ActionStepFailed,
		ActionInstanceCompleted,
		ActionInstancePaused,
		ActionInstanceResumed,
		ActionInstanceCancelled,
	}
}
