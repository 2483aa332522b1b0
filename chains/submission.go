package chains

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/campushub/concierge/workflow"
)

// Step data keys written by the submission tracking chain.
const (
	keySubmissions = "submissions"
	keyStatus      = "status"
)

// Submission is one tracked request from the submissions service.
type Submission struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Status    string `json:"status"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// Submissions is the external submission tracking service.
type Submissions interface {
	// List returns the owner's open submissions.
	List(ctx context.Context, ownerID string) ([]Submission, error)

	// Get returns one submission with its full status detail.
	Get(ctx context.Context, submissionID string) (*Submission, error)
}

// NewTrackSubmission builds the two-step submission tracking workflow:
// lookup -> report.
func NewTrackSubmission(svc Submissions, opts ...Option) *workflow.Definition {
	_ = buildOptions(opts)

	return workflow.NewDefinition(TypeTrackSubmission,
		lookupStep(svc),
		reportStep(svc),
	)
}

type submissionInput struct {
	Message      string `json:"message"`
	SubmissionID string `json:"submission_id"`
}

func lookupStep(svc Submissions) workflow.Step {
	return workflow.NewStep("lookup",
		nil,
		func(ctx context.Context, _ json.RawMessage, inst *workflow.Instance) (workflow.StepResult, error) {
			subs, err := svc.List(ctx, inst.OwnerID)
			if err != nil {
				return workflow.StepResult{}, fmt.Errorf("submission list: %w", err)
			}

			data := workflow.Data{}
			if err := workflow.SetField(data, keySubmissions, subs); err != nil {
				return workflow.StepResult{}, err
			}
			return workflow.StepResult{Data: data}, nil
		},
		func(_ *workflow.Instance) string {
			return "Which submission do you want to check?"
		},
	)
}

func reportStep(svc Submissions) workflow.Step {
	return workflow.NewStep("report",
		func(_ context.Context, input json.RawMessage, inst *workflow.Instance) error {
			var in submissionInput
			if err := decodeInput(input, &in); err != nil {
				return err
			}

			subs, err := workflow.Field[[]Submission](inst.StepData, keySubmissions)
			if err != nil {
				return err
			}

			ids := make([]string, len(subs))
			for i, s := range subs {
				ids[i] = s.ID
			}

			if in.SubmissionID == "" {
				return &workflow.ValidationError{
					Reason:       "submission id is required",
					Alternatives: ids,
				}
			}
			for _, s := range subs {
				if s.ID == in.SubmissionID {
					return nil
				}
			}
			return &workflow.ValidationError{
				Reason:       fmt.Sprintf("no submission %q on file", in.SubmissionID),
				Alternatives: ids,
			}
		},
		func(ctx context.Context, input json.RawMessage, _ *workflow.Instance) (workflow.StepResult, error) {
			var in submissionInput
			if err := decodeInput(input, &in); err != nil {
				return workflow.StepResult{}, err
			}

			sub, err := svc.Get(ctx, in.SubmissionID)
			if err != nil {
				return workflow.StepResult{}, fmt.Errorf("submission status: %w", err)
			}

			data := workflow.Data{}
			if err := workflow.SetField(data, keyStatus, sub); err != nil {
				return workflow.StepResult{}, err
			}
			return workflow.StepResult{
				Data:   data,
				Notice: fmt.Sprintf("%s is %s.", sub.Title, sub.Status),
			}, nil
		},
		func(_ *workflow.Instance) string {
			return "Which submission id?"
		},
	)
}
