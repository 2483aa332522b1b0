package chains

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/campushub/concierge/workflow"
)

// Step data keys written by the mentor booking chain.
const (
	keyAvailableMentors = "available_mentors"
	keySelectedMentor   = "selected_mentor"
	keyProposedSlot     = "proposed_slot"
	keyBooking          = "booking"
)

// Mentor is one entry from the mentor directory.
type Mentor struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Expertise []string `json:"expertise,omitempty"`
	Available bool     `json:"available"`
}

// Booking is a confirmed mentor session.
type Booking struct {
	ID       string `json:"id"`
	MentorID string `json:"mentor_id"`
	Slot     string `json:"slot"`
}

// MentorDirectory is the external mentor service consumed by the chain.
type MentorDirectory interface {
	// Search returns mentors matching an expertise area. An empty
	// result is not an error.
	Search(ctx context.Context, expertise string) ([]Mentor, error)

	// Slots returns the open time slots for a mentor.
	Slots(ctx context.Context, mentorID string) ([]string, error)

	// Book reserves a slot with a mentor for the owner.
	Book(ctx context.Context, mentorID, slot, ownerID string) (*Booking, error)
}

// Notifier delivers fire-and-forget user notifications. A send failure
// never fails the step that triggered it.
type Notifier interface {
	Send(ctx context.Context, ownerID, message string) error
}

// NewBookMentor builds the four-step mentor booking workflow:
// search -> select_mentor -> schedule -> confirm.
func NewBookMentor(dir MentorDirectory, notifier Notifier, opts ...Option) *workflow.Definition {
	o := buildOptions(opts)

	return workflow.NewDefinition(TypeBookMentor,
		searchStep(dir),
		selectMentorStep(),
		scheduleStep(dir),
		confirmStep(dir, notifier, o.logger),
	)
}

type mentorInput struct {
	Message   string `json:"message"`
	Expertise string `json:"expertise"`
	MentorID  string `json:"mentor_id"`
	Slot      string `json:"slot"`
	Confirm   string `json:"confirm"`
}

func searchStep(dir MentorDirectory) workflow.Step {
	return workflow.NewStep("search",
		func(_ context.Context, input json.RawMessage, _ *workflow.Instance) error {
			var in mentorInput
			if err := decodeInput(input, &in); err != nil {
				return err
			}
			if firstNonEmpty(in.Expertise, in.Message) == "" {
				return &workflow.ValidationError{Reason: "tell me the expertise area you are looking for"}
			}
			return nil
		},
		func(ctx context.Context, input json.RawMessage, _ *workflow.Instance) (workflow.StepResult, error) {
			var in mentorInput
			if err := decodeInput(input, &in); err != nil {
				return workflow.StepResult{}, err
			}

			mentors, err := dir.Search(ctx, firstNonEmpty(in.Expertise, in.Message))
			if err != nil {
				return workflow.StepResult{}, fmt.Errorf("mentor search: %w", err)
			}

			data := workflow.Data{}
			if err := workflow.SetField(data, keyAvailableMentors, mentors); err != nil {
				return workflow.StepResult{}, err
			}
			return workflow.StepResult{Data: data}, nil
		},
		func(_ *workflow.Instance) string {
			return "What expertise area should the mentor cover?"
		},
	)
}

func selectMentorStep() workflow.Step {
	return workflow.NewStep("select_mentor",
		func(_ context.Context, input json.RawMessage, inst *workflow.Instance) error {
			var in mentorInput
			if err := decodeInput(input, &in); err != nil {
				return err
			}

			mentors, err := workflow.Field[[]Mentor](inst.StepData, keyAvailableMentors)
			if err != nil {
				return err
			}

			available := make([]string, 0, len(mentors))
			for _, m := range mentors {
				if m.Available {
					available = append(available, m.ID)
				}
			}

			if in.MentorID == "" {
				return &workflow.ValidationError{
					Reason:       "mentor is required",
					Alternatives: available,
				}
			}
			for _, m := range mentors {
				if m.ID == in.MentorID {
					if !m.Available {
						return &workflow.ValidationError{
							Reason:       fmt.Sprintf("mentor %s is not available", m.Name),
							Alternatives: available,
						}
					}
					return nil
				}
			}
			return &workflow.ValidationError{
				Reason:       fmt.Sprintf("no mentor %q in the search results", in.MentorID),
				Alternatives: available,
			}
		},
		func(_ context.Context, input json.RawMessage, inst *workflow.Instance) (workflow.StepResult, error) {
			var in mentorInput
			if err := decodeInput(input, &in); err != nil {
				return workflow.StepResult{}, err
			}

			mentors, err := workflow.Field[[]Mentor](inst.StepData, keyAvailableMentors)
			if err != nil {
				return workflow.StepResult{}, err
			}

			data := workflow.Data{}
			for _, m := range mentors {
				if m.ID == in.MentorID {
					if err := workflow.SetField(data, keySelectedMentor, m); err != nil {
						return workflow.StepResult{}, err
					}
					break
				}
			}
			return workflow.StepResult{Data: data}, nil
		},
		func(_ *workflow.Instance) string {
			return "Which mentor would you like to book?"
		},
	)
}

func scheduleStep(dir MentorDirectory) workflow.Step {
	return workflow.NewStep("schedule",
		func(ctx context.Context, input json.RawMessage, inst *workflow.Instance) error {
			var in mentorInput
			if err := decodeInput(input, &in); err != nil {
				return err
			}
			if in.Slot == "" {
				return &workflow.ValidationError{Reason: "pick a time slot for the session"}
			}

			mentor, err := workflow.Field[Mentor](inst.StepData, keySelectedMentor)
			if err != nil {
				return err
			}
			slots, err := dir.Slots(ctx, mentor.ID)
			if err != nil {
				return fmt.Errorf("mentor slots: %w", err)
			}
			for _, s := range slots {
				if s == in.Slot {
					return nil
				}
			}
			return &workflow.ValidationError{
				Reason:       fmt.Sprintf("slot %q is taken", in.Slot),
				Alternatives: slots,
			}
		},
		func(_ context.Context, input json.RawMessage, _ *workflow.Instance) (workflow.StepResult, error) {
			var in mentorInput
			if err := decodeInput(input, &in); err != nil {
				return workflow.StepResult{}, err
			}

			data := workflow.Data{}
			if err := workflow.SetField(data, keyProposedSlot, in.Slot); err != nil {
				return workflow.StepResult{}, err
			}
			return workflow.StepResult{Data: data}, nil
		},
		func(_ *workflow.Instance) string {
			return "When should the session take place?"
		},
	)
}

func confirmStep(dir MentorDirectory, notifier Notifier, logger *slog.Logger) workflow.Step {
	return workflow.NewStep("confirm",
		func(_ context.Context, input json.RawMessage, _ *workflow.Instance) error {
			var in mentorInput
			if err := decodeInput(input, &in); err != nil {
				return err
			}
			if in.Confirm != "yes" {
				return &workflow.ValidationError{Reason: `reply "yes" to confirm the booking`}
			}
			return nil
		},
		func(ctx context.Context, _ json.RawMessage, inst *workflow.Instance) (workflow.StepResult, error) {
			mentor, err := workflow.Field[Mentor](inst.StepData, keySelectedMentor)
			if err != nil {
				return workflow.StepResult{}, err
			}
			slot, err := workflow.Field[string](inst.StepData, keyProposedSlot)
			if err != nil {
				return workflow.StepResult{}, err
			}

			booking, err := dir.Book(ctx, mentor.ID, slot, inst.OwnerID)
			if err != nil {
				return workflow.StepResult{}, fmt.Errorf("mentor booking: %w", err)
			}

			notice := fmt.Sprintf("Booked %s for %s.", mentor.Name, slot)
			if notifier != nil {
				if nErr := notifier.Send(ctx, inst.OwnerID, notice); nErr != nil {
					logger.Warn("booking notification failed",
						slog.String("instance_id", inst.ID.String()),
						slog.String("owner_id", inst.OwnerID),
						slog.String("error", nErr.Error()))
				}
			}

			data := workflow.Data{}
			if err := workflow.SetField(data, keyBooking, booking); err != nil {
				return workflow.StepResult{}, err
			}
			return workflow.StepResult{Data: data, Notice: notice}, nil
		},
		func(_ *workflow.Instance) string {
			return "Confirm the booking?"
		},
	)
}
