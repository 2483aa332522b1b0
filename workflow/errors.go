package workflow

import (
	"errors"
	"fmt"
)

// ValidationError reports input a step rejected. It is recoverable:
// the instance stays at the same step and the caller should re-advance
// with corrected input. Alternatives, when set, are suggestions the
// caller can offer instead of a bare rejection.
type ValidationError struct {
	Step         string
	Reason       string
	Alternatives []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("step %q: %s", e.Step, e.Reason)
}

// StepError converts the error to its persisted form.
func (e *ValidationError) StepError() *StepError {
	return &StepError{
		Step:         e.Step,
		Kind:         KindValidation,
		Reason:       e.Reason,
		Alternatives: e.Alternatives,
	}
}

// ExecutionError reports a failed or timed-out step execute. It is
// recoverable: accumulated step data is untouched and re-advancing
// re-attempts the same step.
type ExecutionError struct {
	Step    string
	Err     error
	Timeout bool
}

func (e *ExecutionError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("step %q timed out: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("step %q failed: %v", e.Step, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// StepError converts the error to its persisted form.
func (e *ExecutionError) StepError() *StepError {
	return &StepError{
		Step:    e.Step,
		Kind:    KindExecution,
		Reason:  e.Err.Error(),
		Timeout: e.Timeout,
	}
}

// asValidationError normalizes any Validate error into a
// *ValidationError carrying the step name.
func asValidationError(stepName string, err error) *ValidationError {
	var verr *ValidationError
	if errors.As(err, &verr) {
		if verr.Step == "" {
			verr.Step = stepName
		}
		return verr
	}
	return &ValidationError{Step: stepName, Reason: err.Error()}
}
