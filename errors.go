package concierge

import "errors"

var (
	// Registry errors.
	ErrUnknownWorkflowType   = errors.New("concierge: unknown workflow type")
	ErrDuplicateWorkflowType = errors.New("concierge: workflow type already registered")

	// Store errors.
	ErrNoStore                = errors.New("concierge: no store configured")
	ErrInstanceNotFound       = errors.New("concierge: workflow instance not found")
	ErrInstanceExists         = errors.New("concierge: workflow instance already exists")
	ErrConcurrentModification = errors.New("concierge: instance modified concurrently")

	// State errors.
	ErrTerminalState      = errors.New("concierge: instance is in a terminal state")
	ErrInstancePaused     = errors.New("concierge: instance is paused")
	ErrNotPaused          = errors.New("concierge: instance is not paused")
	ErrInvariantViolation = errors.New("concierge: instance invariant violated")
)
