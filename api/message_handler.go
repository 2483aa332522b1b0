package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// MessageRequest is the body for POST /messages.
type MessageRequest struct {
	OwnerID string `json:"owner_id"`
	Message string `json:"message"`
}

// MessageResponse is the reply to a routed message.
type MessageResponse struct {
	Reply InstanceResponse `json:"reply"`
}

// postMessage feeds one free-text message through the router: the
// owner's active instance advances, or a new workflow is started from
// the classified intent.
func (a *API) postMessage(c echo.Context) error {
	var req MessageRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.OwnerID == "" || req.Message == "" {
		return badRequest(c, "owner_id and message are required")
	}

	reply, err := a.rt.Route(c.Request().Context(), req.OwnerID, req.Message)
	if err != nil {
		return a.writeError(c, nil, err)
	}
	return c.JSON(http.StatusOK, MessageResponse{
		Reply: InstanceResponse{Instance: reply.Instance, Prompt: reply.Prompt},
	})
}
