package chains

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/campushub/concierge/workflow"
)

// Step data keys written by the resource discovery chain.
const (
	keyCandidates  = "candidates"
	keyReservation = "reservation"
)

// Resource categories searched in parallel.
var resourceCategories = []string{"rooms", "equipment", "labs"}

// Resource is one bookable campus asset.
type Resource struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// Reservation is a confirmed hold on a resource.
type Reservation struct {
	ID         string `json:"id"`
	ResourceID string `json:"resource_id"`
}

// Inventory is the external campus inventory service.
type Inventory interface {
	// Search returns resources in a category matching the query.
	Search(ctx context.Context, category, query string) ([]Resource, error)

	// Reserve places a hold on a resource for the owner.
	Reserve(ctx context.Context, resourceID, ownerID string) (*Reservation, error)
}

// NewDiscoverResources builds the three-step resource discovery
// workflow: search -> select_resource -> reserve. The search fans out
// across all categories concurrently.
func NewDiscoverResources(inv Inventory, opts ...Option) *workflow.Definition {
	_ = buildOptions(opts)

	return workflow.NewDefinition(TypeDiscoverResources,
		resourceSearchStep(inv),
		resourceSelectStep(),
		resourceReserveStep(inv),
	)
}

type resourceInput struct {
	Message    string `json:"message"`
	Query      string `json:"query"`
	ResourceID string `json:"resource_id"`
}

func resourceSearchStep(inv Inventory) workflow.Step {
	return workflow.NewStep("search",
		func(_ context.Context, input json.RawMessage, _ *workflow.Instance) error {
			var in resourceInput
			if err := decodeInput(input, &in); err != nil {
				return err
			}
			if firstNonEmpty(in.Query, in.Message) == "" {
				return &workflow.ValidationError{Reason: "what kind of resource are you looking for?"}
			}
			return nil
		},
		func(ctx context.Context, input json.RawMessage, _ *workflow.Instance) (workflow.StepResult, error) {
			var in resourceInput
			if err := decodeInput(input, &in); err != nil {
				return workflow.StepResult{}, err
			}
			query := firstNonEmpty(in.Query, in.Message)

			var (
				mu         sync.Mutex
				candidates []Resource
			)

			g, gctx := errgroup.WithContext(ctx)
			for _, category := range resourceCategories {
				g.Go(func() error {
					found, err := inv.Search(gctx, category, query)
					if err != nil {
						return fmt.Errorf("inventory search %s: %w", category, err)
					}
					mu.Lock()
					candidates = append(candidates, found...)
					mu.Unlock()
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return workflow.StepResult{}, err
			}

			data := workflow.Data{}
			if err := workflow.SetField(data, keyCandidates, candidates); err != nil {
				return workflow.StepResult{}, err
			}
			return workflow.StepResult{Data: data}, nil
		},
		func(_ *workflow.Instance) string {
			return "What kind of resource do you need?"
		},
	)
}

func resourceSelectStep() workflow.Step {
	return workflow.NewStep("select_resource",
		func(_ context.Context, input json.RawMessage, inst *workflow.Instance) error {
			var in resourceInput
			if err := decodeInput(input, &in); err != nil {
				return err
			}

			candidates, err := workflow.Field[[]Resource](inst.StepData, keyCandidates)
			if err != nil {
				return err
			}

			ids := make([]string, len(candidates))
			for i, r := range candidates {
				ids[i] = r.ID
			}

			if in.ResourceID == "" {
				return &workflow.ValidationError{Reason: "resource is required", Alternatives: ids}
			}
			for _, r := range candidates {
				if r.ID == in.ResourceID {
					return nil
				}
			}
			return &workflow.ValidationError{
				Reason:       fmt.Sprintf("no resource %q in the search results", in.ResourceID),
				Alternatives: ids,
			}
		},
		func(_ context.Context, input json.RawMessage, _ *workflow.Instance) (workflow.StepResult, error) {
			var in resourceInput
			if err := decodeInput(input, &in); err != nil {
				return workflow.StepResult{}, err
			}

			data := workflow.Data{}
			if err := workflow.SetField(data, "selected_resource", in.ResourceID); err != nil {
				return workflow.StepResult{}, err
			}
			return workflow.StepResult{Data: data}, nil
		},
		func(_ *workflow.Instance) string {
			return "Which resource would you like to reserve?"
		},
	)
}

func resourceReserveStep(inv Inventory) workflow.Step {
	return workflow.NewStep("reserve",
		nil,
		func(ctx context.Context, _ json.RawMessage, inst *workflow.Instance) (workflow.StepResult, error) {
			resourceID, err := workflow.Field[string](inst.StepData, "selected_resource")
			if err != nil {
				return workflow.StepResult{}, err
			}

			res, err := inv.Reserve(ctx, resourceID, inst.OwnerID)
			if err != nil {
				return workflow.StepResult{}, fmt.Errorf("inventory reserve: %w", err)
			}

			data := workflow.Data{}
			if err := workflow.SetField(data, keyReservation, res); err != nil {
				return workflow.StepResult{}, err
			}
			return workflow.StepResult{
				Data:   data,
				Notice: fmt.Sprintf("Reserved %s.", resourceID),
			}, nil
		},
		func(_ *workflow.Instance) string {
			return "Ready to reserve?"
		},
	)
}
