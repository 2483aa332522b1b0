package chains

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/campushub/concierge/workflow"
)

// Step data keys written by the approval status chain.
const (
	keyPendingApprovals = "pending_approvals"
	keyApproval         = "approval"
)

// Approval is one request in the approval pipeline.
type Approval struct {
	ID       string `json:"id"`
	Subject  string `json:"subject"`
	State    string `json:"state"`
	Approver string `json:"approver,omitempty"`
}

// Approvals is the external approval pipeline service.
type Approvals interface {
	// Pending returns the owner's in-flight approval requests.
	Pending(ctx context.Context, ownerID string) ([]Approval, error)

	// Status returns the current state of one request.
	Status(ctx context.Context, requestID string) (*Approval, error)
}

// NewApprovalStatus builds the two-step approval status workflow:
// identify -> report.
func NewApprovalStatus(svc Approvals, opts ...Option) *workflow.Definition {
	_ = buildOptions(opts)

	return workflow.NewDefinition(TypeApprovalStatus,
		identifyStep(svc),
		approvalReportStep(svc),
	)
}

type approvalInput struct {
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

func identifyStep(svc Approvals) workflow.Step {
	return workflow.NewStep("identify",
		nil,
		func(ctx context.Context, _ json.RawMessage, inst *workflow.Instance) (workflow.StepResult, error) {
			pending, err := svc.Pending(ctx, inst.OwnerID)
			if err != nil {
				return workflow.StepResult{}, fmt.Errorf("approval pending: %w", err)
			}

			data := workflow.Data{}
			if err := workflow.SetField(data, keyPendingApprovals, pending); err != nil {
				return workflow.StepResult{}, err
			}
			return workflow.StepResult{Data: data}, nil
		},
		func(_ *workflow.Instance) string {
			return "Which approval request do you want to check?"
		},
	)
}

func approvalReportStep(svc Approvals) workflow.Step {
	return workflow.NewStep("report",
		func(_ context.Context, input json.RawMessage, inst *workflow.Instance) error {
			var in approvalInput
			if err := decodeInput(input, &in); err != nil {
				return err
			}

			pending, err := workflow.Field[[]Approval](inst.StepData, keyPendingApprovals)
			if err != nil {
				return err
			}

			ids := make([]string, len(pending))
			for i, a := range pending {
				ids[i] = a.ID
			}

			if in.RequestID == "" {
				return &workflow.ValidationError{Reason: "request id is required", Alternatives: ids}
			}
			for _, a := range pending {
				if a.ID == in.RequestID {
					return nil
				}
			}
			return &workflow.ValidationError{
				Reason:       fmt.Sprintf("no pending request %q", in.RequestID),
				Alternatives: ids,
			}
		},
		func(ctx context.Context, input json.RawMessage, _ *workflow.Instance) (workflow.StepResult, error) {
			var in approvalInput
			if err := decodeInput(input, &in); err != nil {
				return workflow.StepResult{}, err
			}

			approval, err := svc.Status(ctx, in.RequestID)
			if err != nil {
				return workflow.StepResult{}, fmt.Errorf("approval status: %w", err)
			}

			data := workflow.Data{}
			if err := workflow.SetField(data, keyApproval, approval); err != nil {
				return workflow.StepResult{}, err
			}
			return workflow.StepResult{
				Data:   data,
				Notice: fmt.Sprintf("%s is %s.", approval.Subject, approval.State),
			}, nil
		},
		func(_ *workflow.Instance) string {
			return "Which request id?"
		},
	)
}
