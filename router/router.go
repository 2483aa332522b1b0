package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/campushub/concierge"
	"github.com/campushub/concierge/backoff"
	"github.com/campushub/concierge/intent"
	"github.com/campushub/concierge/workflow"
)

// ErrNoIntent indicates the message could not be mapped to a workflow:
// either the classifier was not confident enough or the intent has no
// registered workflow type. The caller should ask the user to rephrase.
var ErrNoIntent = errors.New("concierge/router: no workflow for message")

// Reply is the outcome of routing one user message.
type Reply struct {
	// Instance is the workflow touched by the message.
	Instance *workflow.Instance
	// Prompt is the human-readable ask for the next step, empty once
	// the instance completed.
	Prompt string
}

// Router decides, per incoming message, whether to advance the owner's
// active workflow or to classify the message and start a new one.
type Router struct {
	engine        *workflow.Engine
	classifier    intent.Classifier
	intents       map[string]string
	minConfidence float64
	strategy      backoff.Strategy
	maxAttempts   int
	logger        *slog.Logger
}

// Option configures the Router.
type Option func(*Router)

// WithIntentMap replaces the intent-type to workflow-type mapping.
func WithIntentMap(m map[string]string) Option {
	return func(r *Router) {
		r.intents = m
	}
}

// WithMinConfidence sets the classification confidence below which a
// message is rejected with ErrNoIntent. Default 0.6.
func WithMinConfidence(c float64) Option {
	return func(r *Router) {
		r.minConfidence = c
	}
}

// WithBackoff sets the delay strategy for conflict retries.
func WithBackoff(s backoff.Strategy) Option {
	return func(r *Router) {
		r.strategy = s
	}
}

// WithMaxAttempts sets how many times a conflicting advance is retried
// before the conflict surfaces to the caller. Default 3.
func WithMaxAttempts(n int) Option {
	return func(r *Router) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) {
		r.logger = logger
	}
}

// New creates a Router over an engine and a classifier. By default each
// well-known intent maps to the workflow type of the same name.
func New(engine *workflow.Engine, classifier intent.Classifier, opts ...Option) *Router {
	r := &Router{
		engine:     engine,
		classifier: classifier,
		intents: map[string]string{
			intent.TypeBookMentor:        "book_mentor",
			intent.TypeTrackSubmission:   "track_submission",
			intent.TypeDiscoverResources: "discover_resources",
			intent.TypeApprovalStatus:    "approval_status",
		},
		minConfidence: 0.6,
		strategy:      backoff.DefaultStrategy(),
		maxAttempts:   3,
		logger:        slog.Default(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Route handles one user message. An owner with an active instance has
// the message fed to that instance as step input; otherwise the message
// is classified and a matching workflow is started with the extracted
// entities as initial input.
func (r *Router) Route(ctx context.Context, ownerID, message string) (*Reply, error) {
	active, err := r.engine.GetActive(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	if active != nil {
		input, err := messageInput(message, nil)
		if err != nil {
			return nil, err
		}
		inst, err := r.advanceWithRetry(ctx, active, input)
		if err != nil {
			return nil, err
		}
		return r.reply(inst), nil
	}

	res, err := r.classifier.Classify(ctx, message, map[string]string{"owner_id": ownerID})
	if err != nil {
		return nil, fmt.Errorf("concierge/router: classify: %w", err)
	}

	wfType, ok := r.intents[res.Type]
	if !ok || res.Confidence < r.minConfidence {
		r.logger.Debug("message not routed",
			slog.String("owner_id", ownerID),
			slog.String("intent", res.Type),
			slog.Float64("confidence", res.Confidence))
		return nil, fmt.Errorf("%w: intent %q at %.2f", ErrNoIntent, res.Type, res.Confidence)
	}

	input, err := messageInput(message, res.Entities)
	if err != nil {
		return nil, err
	}

	inst, err := r.engine.Start(ctx, wfType, ownerID, input)
	if err != nil {
		// Lost the race against another message that started a
		// workflow for this owner: feed ours to the winner.
		if errors.Is(err, concierge.ErrConcurrentModification) {
			return r.Route(ctx, ownerID, message)
		}
		return nil, err
	}
	return r.reply(inst), nil
}

// advanceWithRetry re-issues a conflicting advance with backoff. Other
// errors, including validation and execution failures, surface at once.
func (r *Router) advanceWithRetry(ctx context.Context, active *workflow.Instance, input json.RawMessage) (*workflow.Instance, error) {
	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		inst, err := r.engine.Advance(ctx, active.ID, input)
		if err == nil {
			return inst, nil
		}
		if !errors.Is(err, concierge.ErrConcurrentModification) {
			return inst, err
		}
		lastErr = err

		r.logger.Debug("advance conflict, retrying",
			slog.String("instance_id", active.ID.String()),
			slog.Int("attempt", attempt))

		if attempt < r.maxAttempts {
			if err := sleep(ctx, r.strategy.Delay(attempt)); err != nil {
				return nil, err
			}
		}
	}
	return nil, lastErr
}

func (r *Router) reply(inst *workflow.Instance) *Reply {
	return &Reply{Instance: inst, Prompt: r.engine.Prompt(inst)}
}

// messageInput builds the step input document: the raw message plus any
// extracted entities as top-level fields.
func messageInput(message string, entities map[string]string) (json.RawMessage, error) {
	doc := make(map[string]string, len(entities)+1)
	for k, v := range entities {
		doc[k] = v
	}
	doc["message"] = message

	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("concierge/router: encode input: %w", err)
	}
	return b, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
