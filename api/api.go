// Package api exposes the orchestrator over HTTP. Routes are mounted
// on an echo group and speak JSON; step failures carry their reason
// and alternatives in the response body so clients can re-prompt.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/campushub/concierge/router"
	"github.com/campushub/concierge/workflow"
)

// API holds the handler dependencies.
type API struct {
	eng    *workflow.Engine
	rt     *router.Router
	logger *slog.Logger
}

// Option configures the API.
type Option func(*API)

// WithRouter enables the conversational /messages endpoint.
func WithRouter(rt *router.Router) Option {
	return func(a *API) { a.rt = rt }
}

// WithLogger sets the request logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(a *API) { a.logger = logger }
}

// New creates the API over the given engine.
func New(eng *workflow.Engine, opts ...Option) *API {
	a := &API{
		eng:    eng,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// RegisterRoutes mounts all handlers on the given group, typically
// e.Group("/v1").
func (a *API) RegisterRoutes(g *echo.Group) {
	g.Use(a.requestLogger)

	g.GET("/workflows/types", a.listWorkflowTypes)
	g.POST("/workflows/start", a.startWorkflow)
	g.GET("/workflows/active", a.getActiveWorkflow)
	g.GET("/workflows/:id", a.getWorkflow)
	g.POST("/workflows/:id/advance", a.advanceWorkflow)
	g.POST("/workflows/:id/pause", a.pauseWorkflow)
	g.POST("/workflows/:id/resume", a.resumeWorkflow)
	g.POST("/workflows/:id/cancel", a.cancelWorkflow)

	if a.rt != nil {
		g.POST("/messages", a.postMessage)
	}
}

func (a *API) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		status := c.Response().Status
		if err != nil {
			if herr, ok := err.(*echo.HTTPError); ok {
				status = herr.Code
			} else {
				status = http.StatusInternalServerError
			}
		}
		a.logger.Info("http request",
			slog.String("method", c.Request().Method),
			slog.String("path", c.Path()),
			slog.Int("status", status),
			slog.Duration("elapsed", time.Since(start)),
		)
		return err
	}
}
