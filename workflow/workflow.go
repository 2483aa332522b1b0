package workflow

import (
	"context"
	"encoding/json"
)

// Step is one unit of a workflow definition. Implementations are
// stateless: everything they need comes from the input, the instance's
// accumulated step data, and whatever external collaborator they close
// over at construction time.
type Step interface {
	// Name returns the step's identifier, unique within its definition.
	Name() string

	// Validate checks the input against the step's requirements and the
	// instance's accumulated data. Returning an error leaves the
	// instance entirely unchanged apart from its recorded last error.
	// Return a *ValidationError to carry a user-facing reason and
	// alternative suggestions.
	Validate(ctx context.Context, input json.RawMessage, inst *Instance) error

	// Execute performs the step's work, typically calling an external
	// service. The returned result's Data is merged into the instance's
	// step data on success. On error the instance stays at this step
	// with all prior data intact.
	Execute(ctx context.Context, input json.RawMessage, inst *Instance) (StepResult, error)

	// Prompt returns the human-readable question to ask the owner
	// before this step runs.
	Prompt(inst *Instance) string
}

// StepResult is what a successful Execute contributes to the instance.
type StepResult struct {
	// Data is merged into the instance's StepData. Keys written by
	// earlier steps are preserved unless explicitly overwritten here.
	Data Data

	// Notice is an optional user-facing message produced by the step,
	// e.g. a booking confirmation summary.
	Notice string
}

// Definition is a static workflow definition: an ordered list of steps
// identified by a unique type name. Definitions are immutable after
// registration.
type Definition struct {
	// Type is the unique identifier for this workflow, e.g. "book_mentor".
	Type string

	// Steps is the ordered step sequence. An instance is complete when
	// its step index reaches len(Steps).
	Steps []Step
}

// NewDefinition creates a workflow definition from an ordered step list.
func NewDefinition(wfType string, steps ...Step) *Definition {
	return &Definition{Type: wfType, Steps: steps}
}

// funcStep adapts plain functions to the Step interface. Used by tests
// and by chains whose steps don't warrant a named type.
type funcStep struct {
	name     string
	validate func(ctx context.Context, input json.RawMessage, inst *Instance) error
	execute  func(ctx context.Context, input json.RawMessage, inst *Instance) (StepResult, error)
	prompt   func(inst *Instance) string
}

// NewStep builds a Step from functions. validate may be nil (always
// valid) and prompt may be nil (empty prompt); execute is required.
func NewStep(
	name string,
	validate func(ctx context.Context, input json.RawMessage, inst *Instance) error,
	execute func(ctx context.Context, input json.RawMessage, inst *Instance) (StepResult, error),
	prompt func(inst *Instance) string,
) Step {
	return &funcStep{name: name, validate: validate, execute: execute, prompt: prompt}
}

func (s *funcStep) Name() string { return s.name }

func (s *funcStep) Validate(ctx context.Context, input json.RawMessage, inst *Instance) error {
	if s.validate == nil {
		return nil
	}
	return s.validate(ctx, input, inst)
}

func (s *funcStep) Execute(ctx context.Context, input json.RawMessage, inst *Instance) (StepResult, error) {
	return s.execute(ctx, input, inst)
}

func (s *funcStep) Prompt(inst *Instance) string {
	if s.prompt == nil {
		return ""
	}
	return s.prompt(inst)
}
