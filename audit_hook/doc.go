// Package audithook is a Concierge extension that bridges instance
// lifecycle events to an audit trail backend.
//
// Every instance lifecycle hook emits a structured audit event through
// the [Recorder] interface. The extension assigns severity levels (info
// for normal operations, warning for step failures and cancels) and
// rich metadata (workflow type, owner, step name, elapsed time).
//
// # Usage
//
//	audithook.New(audithook.RecorderFunc(func(ctx context.Context, evt *audithook.AuditEvent) error {
//	    return trail.Write(ctx, evt.Action, evt.Resource, evt.ResourceID, evt.Metadata)
//	}))
//
// # Selective filtering
//
//	audithook.New(recorder,
//	    audithook.WithActions(
//	        audithook.ActionStepFailed,
//	        audithook.ActionInstanceCancelled,
//	    ),
//	)
package audithook
