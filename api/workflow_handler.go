package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/campushub/concierge/id"
	"github.com/campushub/concierge/workflow"
)

// StartWorkflowRequest is the body for POST /workflows/start.
type StartWorkflowRequest struct {
	Type    string          `json:"type"`
	OwnerID string          `json:"owner_id"`
	Input   json.RawMessage `json:"input,omitempty"`
}

// AdvanceWorkflowRequest is the body for POST /workflows/:id/advance.
type AdvanceWorkflowRequest struct {
	Input json.RawMessage `json:"input,omitempty"`
}

// InstanceResponse wraps an instance with the prompt for its current
// step, so conversational clients can render the next question.
type InstanceResponse struct {
	Instance *workflow.Instance `json:"instance"`
	Prompt   string             `json:"prompt,omitempty"`
}

// ListTypesResponse is the body for GET /workflows/types.
type ListTypesResponse struct {
	Types []string `json:"types"`
}

func (a *API) listWorkflowTypes(c echo.Context) error {
	return c.JSON(http.StatusOK, ListTypesResponse{Types: a.eng.Registry().Types()})
}

func (a *API) startWorkflow(c echo.Context) error {
	var req StartWorkflowRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Type == "" || req.OwnerID == "" {
		return badRequest(c, "type and owner_id are required")
	}

	inst, err := a.eng.Start(c.Request().Context(), req.Type, req.OwnerID, req.Input)
	if err != nil {
		return a.writeError(c, inst, err)
	}
	return c.JSON(http.StatusCreated, a.instanceResponse(inst))
}

func (a *API) getWorkflow(c echo.Context) error {
	instanceID, err := id.ParseInstanceID(c.Param("id"))
	if err != nil {
		return badRequest(c, "invalid instance ID")
	}

	inst, err := a.eng.Get(c.Request().Context(), instanceID)
	if err != nil {
		return a.writeError(c, nil, err)
	}
	return c.JSON(http.StatusOK, a.instanceResponse(inst))
}

func (a *API) getActiveWorkflow(c echo.Context) error {
	ownerID := c.QueryParam("owner_id")
	if ownerID == "" {
		return badRequest(c, "owner_id is required")
	}

	inst, err := a.eng.GetActive(c.Request().Context(), ownerID)
	if err != nil {
		return a.writeError(c, nil, err)
	}
	if inst == nil {
		return c.JSON(http.StatusNotFound, errorBody{Error: "no active workflow"})
	}
	return c.JSON(http.StatusOK, a.instanceResponse(inst))
}

func (a *API) advanceWorkflow(c echo.Context) error {
	instanceID, err := id.ParseInstanceID(c.Param("id"))
	if err != nil {
		return badRequest(c, "invalid instance ID")
	}

	var req AdvanceWorkflowRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	inst, err := a.eng.Advance(c.Request().Context(), instanceID, req.Input)
	if err != nil {
		return a.writeError(c, inst, err)
	}
	return c.JSON(http.StatusOK, a.instanceResponse(inst))
}

func (a *API) pauseWorkflow(c echo.Context) error {
	return a.transition(c, a.eng.Pause)
}

func (a *API) resumeWorkflow(c echo.Context) error {
	return a.transition(c, a.eng.Resume)
}

func (a *API) cancelWorkflow(c echo.Context) error {
	return a.transition(c, a.eng.Cancel)
}

func (a *API) transition(c echo.Context, op func(ctx context.Context, instanceID id.InstanceID) (*workflow.Instance, error)) error {
	instanceID, err := id.ParseInstanceID(c.Param("id"))
	if err != nil {
		return badRequest(c, "invalid instance ID")
	}

	inst, err := op(c.Request().Context(), instanceID)
	if err != nil {
		return a.writeError(c, nil, err)
	}
	return c.JSON(http.StatusOK, a.instanceResponse(inst))
}

func (a *API) instanceResponse(inst *workflow.Instance) InstanceResponse {
	return InstanceResponse{Instance: inst, Prompt: a.eng.Prompt(inst)}
}
