package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/campushub/concierge"
	"github.com/campushub/concierge/router"
	"github.com/campushub/concierge/workflow"
)

// errorBody is the JSON shape of every error response. Step failures
// additionally carry the step name, reason and any alternatives.
type errorBody struct {
	Error        string             `json:"error"`
	Step         string             `json:"step,omitempty"`
	Reason       string             `json:"reason,omitempty"`
	Alternatives []string           `json:"alternatives,omitempty"`
	Timeout      bool               `json:"timeout,omitempty"`
	Instance     *workflow.Instance `json:"instance,omitempty"`
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, errorBody{Error: msg})
}

// writeError translates a domain error into an HTTP response. inst,
// when non-nil, is the instance carrying the recorded failure; it is
// echoed back so clients can render the retry prompt without a
// follow-up GET.
func (a *API) writeError(c echo.Context, inst *workflow.Instance, err error) error {
	var verr *workflow.ValidationError
	if errors.As(err, &verr) {
		return c.JSON(http.StatusUnprocessableEntity, errorBody{
			Error:        "step input rejected",
			Step:         verr.Step,
			Reason:       verr.Reason,
			Alternatives: verr.Alternatives,
			Instance:     inst,
		})
	}

	var execErr *workflow.ExecutionError
	if errors.As(err, &execErr) {
		status := http.StatusBadGateway
		if execErr.Timeout {
			status = http.StatusGatewayTimeout
		}
		return c.JSON(status, errorBody{
			Error:    "step execution failed",
			Step:     execErr.Step,
			Reason:   execErr.Err.Error(),
			Timeout:  execErr.Timeout,
			Instance: inst,
		})
	}

	switch {
	case errors.Is(err, concierge.ErrInstanceNotFound),
		errors.Is(err, concierge.ErrUnknownWorkflowType):
		return c.JSON(http.StatusNotFound, errorBody{Error: err.Error()})
	case errors.Is(err, router.ErrNoIntent):
		return c.JSON(http.StatusUnprocessableEntity, errorBody{Error: err.Error()})
	case errors.Is(err, concierge.ErrInstancePaused),
		errors.Is(err, concierge.ErrNotPaused),
		errors.Is(err, concierge.ErrTerminalState),
		errors.Is(err, concierge.ErrInstanceExists),
		errors.Is(err, concierge.ErrConcurrentModification):
		return c.JSON(http.StatusConflict, errorBody{Error: err.Error()})
	}

	a.logger.Error("request failed", "error", err.Error())
	return c.JSON(http.StatusInternalServerError, errorBody{Error: "internal error"})
}
