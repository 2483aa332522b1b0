package intent

import (
	"context"
	"strings"
)

var _ Classifier = (*Keyword)(nil)

// Keyword is a rule-based classifier used as a fallback when the
// external service is unavailable, and as a deterministic classifier
// in tests. Matching is case-insensitive substring search; the first
// rule whose every keyword appears in the query wins.
type Keyword struct {
	rules []keywordRule
}

type keywordRule struct {
	intentType string
	keywords   []string
}

// NewKeyword creates a keyword classifier with the default campus
// vocabulary.
func NewKeyword() *Keyword {
	k := &Keyword{}
	k.Add(TypeBookMentor, "mentor")
	k.Add(TypeBookMentor, "book", "advisor")
	k.Add(TypeTrackSubmission, "submission")
	k.Add(TypeTrackSubmission, "track", "request")
	k.Add(TypeDiscoverResources, "resource")
	k.Add(TypeDiscoverResources, "equipment")
	k.Add(TypeDiscoverResources, "room")
	k.Add(TypeApprovalStatus, "approval")
	k.Add(TypeApprovalStatus, "approved")
	return k
}

// Add registers a rule: the query matches intentType when all keywords
// occur in it. Rules are checked in registration order.
func (k *Keyword) Add(intentType string, keywords ...string) {
	lowered := make([]string, len(keywords))
	for i, w := range keywords {
		lowered[i] = strings.ToLower(w)
	}
	k.rules = append(k.rules, keywordRule{intentType: intentType, keywords: lowered})
}

// Classify matches the query against the registered rules. A match
// scores a fixed 0.9 confidence; no match returns TypeUnknown with
// zero confidence, never an error.
func (k *Keyword) Classify(_ context.Context, query string, _ map[string]string) (*Result, error) {
	q := strings.ToLower(query)

	for _, rule := range k.rules {
		matched := true
		for _, w := range rule.keywords {
			if !strings.Contains(q, w) {
				matched = false
				break
			}
		}
		if matched {
			return &Result{Type: rule.intentType, Confidence: 0.9}, nil
		}
	}

	return &Result{Type: TypeUnknown, Confidence: 0}, nil
}
