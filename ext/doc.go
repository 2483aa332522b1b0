// Package ext defines the extension system for Concierge.
//
// Extensions are notified of workflow instance lifecycle events and can
// react to them: recording metrics, sending notifications, writing
// audit logs. Each lifecycle hook is a separate interface so extensions
// opt in only to the events they care about.
//
// # Implementing an Extension
//
//	type MyExtension struct{}
//
//	func (e *MyExtension) Name() string { return "my-extension" }
//
//	// Opt in to specific hooks by implementing their interfaces.
//	func (e *MyExtension) OnStepCompleted(ctx context.Context, inst *workflow.Instance, step string, elapsed time.Duration) error {
//	    log.Printf("instance %s completed step %s in %s", inst.ID, step, elapsed)
//	    return nil
//	}
//
// # Instance Lifecycle Hooks
//
//   - [InstanceStarted] — a new instance was created
//   - [StepCompleted] — a step finished successfully
//   - [StepFailed] — a step's validation or execution failed
//   - [InstanceCompleted] — the final step finished
//   - [InstancePaused] — the instance was suspended
//   - [InstanceResumed] — a paused instance returned to running
//   - [InstanceCancelled] — the owner abandoned the instance
//
// # Other Hooks
//
//   - [Shutdown] — the service is shutting down gracefully
//
// The [Registry] fans out each event to all registered extensions that
// implement the corresponding hook interface, and satisfies
// workflow.Emitter so it plugs straight into the engine.
package ext
