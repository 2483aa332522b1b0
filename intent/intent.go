package intent

import (
	"context"
	"errors"
)

// Well-known intent types recognized by the concierge. The classifier
// may return other types; the router only acts on the ones it has a
// workflow mapping for.
const (
	TypeBookMentor        = "book_mentor"
	TypeTrackSubmission   = "track_submission"
	TypeDiscoverResources = "discover_resources"
	TypeApprovalStatus    = "approval_status"
	TypeUnknown           = "unknown"
)

// ErrUnavailable indicates the classification service could not be
// reached or refused the request. Callers should fall back to asking
// the user directly rather than failing the whole message.
var ErrUnavailable = errors.New("concierge/intent: classifier unavailable")

// Result is the outcome of classifying one user query.
type Result struct {
	// Type is the recognized intent, e.g. "book_mentor".
	Type string `json:"type"`
	// Confidence is the classifier's score in [0, 1].
	Confidence float64 `json:"confidence"`
	// Entities holds extracted slot values keyed by entity name,
	// e.g. "expertise" -> "IoT".
	Entities map[string]string `json:"entities,omitempty"`
}

// Classifier maps a free-form user query to an intent. The meta map
// carries conversational context (owner id, current workflow type)
// that the service may use for disambiguation.
type Classifier interface {
	Classify(ctx context.Context, query string, meta map[string]string) (*Result, error)
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(ctx context.Context, query string, meta map[string]string) (*Result, error)

// Classify implements Classifier.
func (f ClassifierFunc) Classify(ctx context.Context, query string, meta map[string]string) (*Result, error) {
	return f(ctx, query, meta)
}
