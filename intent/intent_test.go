package intent_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/campushub/concierge/intent"
)

func TestHTTPClient_Classify(t *testing.T) {
	var gotBody struct {
		Query   string            `json:"query"`
		Context map[string]string `json:"context"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/classify" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(intent.Result{
			Type:       intent.TypeBookMentor,
			Confidence: 0.92,
			Entities:   map[string]string{"expertise": "IoT"},
		})
	}))
	defer srv.Close()

	c := intent.NewHTTPClient(srv.URL)
	res, err := c.Classify(context.Background(), "I need an IoT mentor", map[string]string{"owner_id": "u1"})
	if err != nil {
		t.Fatalf("classify: %v", err)
	}

	if gotBody.Query != "I need an IoT mentor" {
		t.Errorf("query sent = %q", gotBody.Query)
	}
	if gotBody.Context["owner_id"] != "u1" {
		t.Errorf("context sent = %v", gotBody.Context)
	}
	if res.Type != intent.TypeBookMentor {
		t.Errorf("type = %q, want book_mentor", res.Type)
	}
	if res.Confidence != 0.92 {
		t.Errorf("confidence = %v", res.Confidence)
	}
	if res.Entities["expertise"] != "IoT" {
		t.Errorf("entities = %v", res.Entities)
	}
}

func TestHTTPClient_EmptyTypeBecomesUnknown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"confidence": 0.1})
	}))
	defer srv.Close()

	res, err := intent.NewHTTPClient(srv.URL).Classify(context.Background(), "hm", nil)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if res.Type != intent.TypeUnknown {
		t.Errorf("type = %q, want unknown", res.Type)
	}
}

func TestHTTPClient_ServerErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := intent.NewHTTPClient(srv.URL).Classify(context.Background(), "anything", nil)
	if !errors.Is(err, intent.ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
}

func TestHTTPClient_RateLimitHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(intent.Result{Type: intent.TypeBookMentor, Confidence: 1})
	}))
	defer srv.Close()

	// Burst of 1 at a very low rate: the second call has to wait and
	// a cancelled context should abort that wait.
	c := intent.NewHTTPClient(srv.URL, intent.WithRateLimit(0.01, 1))

	if _, err := c.Classify(context.Background(), "first", nil); err != nil {
		t.Fatalf("first classify: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Classify(ctx, "second", nil); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

func TestKeyword_Classify(t *testing.T) {
	k := intent.NewKeyword()

	tests := []struct {
		query string
		want  string
	}{
		{"I want to book a mentor session", intent.TypeBookMentor},
		{"where is my submission?", intent.TypeTrackSubmission},
		{"any free room tomorrow?", intent.TypeDiscoverResources},
		{"has my trip been approved", intent.TypeApprovalStatus},
		{"hello there", intent.TypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			res, err := k.Classify(context.Background(), tt.query, nil)
			if err != nil {
				t.Fatalf("classify: %v", err)
			}
			if res.Type != tt.want {
				t.Errorf("type = %q, want %q", res.Type, tt.want)
			}
			if tt.want != intent.TypeUnknown && res.Confidence == 0 {
				t.Errorf("matched intent has zero confidence")
			}
		})
	}
}

func TestKeyword_CustomRule(t *testing.T) {
	k := intent.NewKeyword()
	k.Add("order_pizza", "pizza")

	res, err := k.Classify(context.Background(), "one PIZZA please", nil)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if res.Type != "order_pizza" {
		t.Errorf("type = %q", res.Type)
	}
}
