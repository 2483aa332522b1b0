package workflow

import (
	"github.com/campushub/concierge"
	"github.com/campushub/concierge/id"
)

// State represents the lifecycle state of a workflow instance.
type State string

const (
	// StateRunning means the instance accepts advances.
	StateRunning State = "running"
	// StatePaused means the instance is suspended; all progress is
	// durable and resuming is a pure flag flip.
	StatePaused State = "paused"
	// StateCompleted means every step executed successfully. Terminal.
	StateCompleted State = "completed"
	// StateCancelled means the owner abandoned the instance. Terminal.
	StateCancelled State = "cancelled"
)

// Terminal reports whether no further transitions may leave this state.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCancelled
}

// Active reports whether the instance counts as the owner's live
// workflow for message routing (not completed, not cancelled).
func (s State) Active() bool {
	return s == StateRunning || s == StatePaused
}

// ErrorKind distinguishes the two recoverable step failure classes.
type ErrorKind string

const (
	// KindValidation marks input the step rejected before any mutation.
	KindValidation ErrorKind = "validation"
	// KindExecution marks an external-call failure or timeout during
	// the step's execute.
	KindExecution ErrorKind = "execution"
)

// StepError is the persisted form of the last validation or execution
// failure on an instance. It carries enough detail for a caller to
// render a specific, actionable message.
type StepError struct {
	Step         string    `json:"step"`
	Kind         ErrorKind `json:"kind"`
	Reason       string    `json:"reason"`
	Timeout      bool      `json:"timeout,omitempty"`
	Alternatives []string  `json:"alternatives,omitempty"`
}

// Instance is a single in-progress or finished run of a workflow
// definition for one owner. All mutation goes through the Engine.
type Instance struct {
	concierge.Entity

	ID          id.InstanceID `json:"id"`
	Type        string        `json:"type"`
	OwnerID     string        `json:"owner_id"`
	CurrentStep int           `json:"current_step"`
	TotalSteps  int           `json:"total_steps"`
	StepData    Data          `json:"step_data"`
	State       State         `json:"state"`
	LastError   *StepError    `json:"last_error,omitempty"`

	// Notice is the user-facing message produced by the most recent
	// successful step, if any. Transient: set on the instance returned
	// from Advance, never persisted.
	Notice string `json:"notice,omitempty"`

	// Version is a monotonic counter bumped by every successful store
	// update. The store rejects updates whose version does not match
	// the persisted one, serializing concurrent advances.
	Version int64 `json:"version"`
}

// Completed reports whether every step executed successfully.
func (i *Instance) Completed() bool { return i.State == StateCompleted }

// Clone returns a deep-enough copy: step data and last error are
// copied so the caller can mutate the clone without racing the store.
func (i *Instance) Clone() *Instance {
	cp := *i
	cp.StepData = i.StepData.Clone()
	if i.LastError != nil {
		le := *i.LastError
		cp.LastError = &le
	}
	return &cp
}
