package chains

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// Workflow type names for the built-in chains.
const (
	TypeBookMentor        = "book_mentor"
	TypeTrackSubmission   = "track_submission"
	TypeDiscoverResources = "discover_resources"
	TypeApprovalStatus    = "approval_status"
)

// Option configures a chain constructor.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger used for non-fatal step events, e.g. a
// failed notification send.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func buildOptions(opts []Option) *options {
	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// decodeInput unmarshals a step input document. A nil input decodes as
// an empty document so optional-input steps don't special-case it.
func decodeInput(input json.RawMessage, v any) error {
	if len(input) == 0 {
		input = json.RawMessage(`{}`)
	}
	if err := json.Unmarshal(input, v); err != nil {
		return fmt.Errorf("concierge/chains: decode input: %w", err)
	}
	return nil
}

// firstNonEmpty returns the first non-blank string.
func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
