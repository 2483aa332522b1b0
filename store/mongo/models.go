package mongo

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/campushub/concierge"
	"github.com/campushub/concierge/id"
	"github.com/campushub/concierge/workflow"
)

// instanceModel is the BSON shape of a workflow instance. Step data and
// the last step error are stored as raw JSON so the document round
// trips byte for byte.
type instanceModel struct {
	ID          string    `bson:"_id"`
	Type        string    `bson:"workflow_type"`
	OwnerID     string    `bson:"owner_id"`
	CurrentStep int       `bson:"current_step"`
	TotalSteps  int       `bson:"total_steps"`
	StepData    []byte    `bson:"step_data,omitempty"`
	State       string    `bson:"state"`
	LastError   []byte    `bson:"last_error,omitempty"`
	Version     int64     `bson:"version"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func toInstanceModel(inst *workflow.Instance) (*instanceModel, error) {
	stepData, err := json.Marshal(inst.StepData)
	if err != nil {
		return nil, fmt.Errorf("concierge/mongo: encode step data: %w", err)
	}

	var lastErr []byte
	if inst.LastError != nil {
		lastErr, err = json.Marshal(inst.LastError)
		if err != nil {
			return nil, fmt.Errorf("concierge/mongo: encode last error: %w", err)
		}
	}

	return &instanceModel{
		ID:          inst.ID.String(),
		Type:        inst.Type,
		OwnerID:     inst.OwnerID,
		CurrentStep: inst.CurrentStep,
		TotalSteps:  inst.TotalSteps,
		StepData:    stepData,
		State:       string(inst.State),
		LastError:   lastErr,
		Version:     inst.Version,
		CreatedAt:   inst.CreatedAt,
		UpdatedAt:   inst.UpdatedAt,
	}, nil
}

func fromInstanceModel(m *instanceModel) (*workflow.Instance, error) {
	parsedID, err := id.ParseInstanceID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("concierge/mongo: parse instance id %q: %w", m.ID, err)
	}

	inst := &workflow.Instance{
		Entity: concierge.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:          parsedID,
		Type:        m.Type,
		OwnerID:     m.OwnerID,
		CurrentStep: m.CurrentStep,
		TotalSteps:  m.TotalSteps,
		State:       workflow.State(m.State),
		Version:     m.Version,
	}

	if len(m.StepData) > 0 {
		if err := json.Unmarshal(m.StepData, &inst.StepData); err != nil {
			return nil, fmt.Errorf("concierge/mongo: decode step data: %w", err)
		}
	}
	if len(m.LastError) > 0 {
		inst.LastError = &workflow.StepError{}
		if err := json.Unmarshal(m.LastError, inst.LastError); err != nil {
			return nil, fmt.Errorf("concierge/mongo: decode last error: %w", err)
		}
	}
	return inst, nil
}
