package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/campushub/concierge/api"
	"github.com/campushub/concierge/id"
	"github.com/campushub/concierge/intent"
	"github.com/campushub/concierge/router"
	"github.com/campushub/concierge/store/memory"
	"github.com/campushub/concierge/workflow"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestAPI builds an echo server over a two-step enrollment workflow
// backed by the in-memory store.
func newTestAPI(t *testing.T) *echo.Echo {
	t.Helper()

	okStep := func(name string) workflow.Step {
		return workflow.NewStep(name, nil,
			func(_ context.Context, _ json.RawMessage, _ *workflow.Instance) (workflow.StepResult, error) {
				return workflow.StepResult{}, nil
			},
			func(_ *workflow.Instance) string { return "next: " + name },
		)
	}

	rejectStep := workflow.NewStep("choose_course",
		func(_ context.Context, input json.RawMessage, _ *workflow.Instance) error {
			if strings.Contains(string(input), "full") {
				return &workflow.ValidationError{
					Reason:       "course is full",
					Alternatives: []string{"cs101", "cs102"},
				}
			}
			return nil
		},
		func(_ context.Context, _ json.RawMessage, _ *workflow.Instance) (workflow.StepResult, error) {
			return workflow.StepResult{}, nil
		},
		func(_ *workflow.Instance) string { return "which course?" },
	)

	registry := workflow.NewRegistry()
	registry.MustRegister(workflow.NewDefinition("enroll", rejectStep, okStep("confirm")))

	eng := workflow.NewEngine(registry, memory.New(), workflow.WithLogger(discardLogger()))

	e := echo.New()
	a := api.New(eng, api.WithLogger(discardLogger()))
	a.RegisterRoutes(e.Group("/v1"))
	return e
}

func doJSON(t *testing.T, e *echo.Echo, method, path, body string) (*httptest.ResponseRecorder, map[string]json.RawMessage) {
	t.Helper()

	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("unmarshal response %q: %v", rec.Body.String(), err)
	}
	return rec, doc
}

func instanceID(t *testing.T, doc map[string]json.RawMessage) string {
	t.Helper()

	var inst struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(doc["instance"], &inst); err != nil {
		t.Fatalf("decode instance: %v", err)
	}
	return inst.ID
}

func TestStartWorkflow(t *testing.T) {
	e := newTestAPI(t)

	rec, doc := doJSON(t, e, http.MethodPost, "/v1/workflows/start",
		`{"type": "enroll", "owner_id": "student-1"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body)
	}
	if got := string(doc["prompt"]); got != `"which course?"` {
		t.Errorf("prompt = %s, want %q", got, "which course?")
	}
	if instanceID(t, doc) == "" {
		t.Error("expected an instance ID in the response")
	}
}

func TestStartWorkflowUnknownType(t *testing.T) {
	e := newTestAPI(t)

	rec, _ := doJSON(t, e, http.MethodPost, "/v1/workflows/start",
		`{"type": "nope", "owner_id": "student-1"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestStartWorkflowMissingFields(t *testing.T) {
	e := newTestAPI(t)

	rec, _ := doJSON(t, e, http.MethodPost, "/v1/workflows/start", `{"type": "enroll"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestAdvanceToCompletion(t *testing.T) {
	e := newTestAPI(t)

	_, doc := doJSON(t, e, http.MethodPost, "/v1/workflows/start",
		`{"type": "enroll", "owner_id": "student-1"}`)
	instID := instanceID(t, doc)

	rec, _ := doJSON(t, e, http.MethodPost, "/v1/workflows/"+instID+"/advance",
		`{"input": {"course": "cs101"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("first advance status = %d: %s", rec.Code, rec.Body)
	}

	rec, doc = doJSON(t, e, http.MethodPost, "/v1/workflows/"+instID+"/advance",
		`{"input": {}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("second advance status = %d: %s", rec.Code, rec.Body)
	}

	var inst struct {
		State string `json:"state"`
	}
	if err := json.Unmarshal(doc["instance"], &inst); err != nil {
		t.Fatal(err)
	}
	if inst.State != "completed" {
		t.Errorf("state = %q, want %q", inst.State, "completed")
	}
	if _, ok := doc["prompt"]; ok {
		t.Error("completed instance should have no prompt")
	}
}

func TestAdvanceValidationFailure(t *testing.T) {
	e := newTestAPI(t)

	_, doc := doJSON(t, e, http.MethodPost, "/v1/workflows/start",
		`{"type": "enroll", "owner_id": "student-1"}`)
	instID := instanceID(t, doc)

	rec, doc := doJSON(t, e, http.MethodPost, "/v1/workflows/"+instID+"/advance",
		`{"input": {"course": "full"}}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusUnprocessableEntity, rec.Body)
	}
	if got := string(doc["reason"]); got != `"course is full"` {
		t.Errorf("reason = %s", got)
	}
	var alts []string
	if err := json.Unmarshal(doc["alternatives"], &alts); err != nil || len(alts) != 2 {
		t.Errorf("alternatives = %s, want two entries", doc["alternatives"])
	}
	if _, ok := doc["instance"]; !ok {
		t.Error("expected the failed instance in the error body")
	}
}

func TestAdvanceBadID(t *testing.T) {
	e := newTestAPI(t)

	rec, _ := doJSON(t, e, http.MethodPost, "/v1/workflows/not-an-id/advance", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestGetWorkflowNotFound(t *testing.T) {
	e := newTestAPI(t)

	rec, _ := doJSON(t, e, http.MethodGet, "/v1/workflows/"+id.NewInstanceID().String(), "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestPauseResumeCycle(t *testing.T) {
	e := newTestAPI(t)

	_, doc := doJSON(t, e, http.MethodPost, "/v1/workflows/start",
		`{"type": "enroll", "owner_id": "student-1"}`)
	instID := instanceID(t, doc)

	rec, _ := doJSON(t, e, http.MethodPost, "/v1/workflows/"+instID+"/pause", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("pause status = %d", rec.Code)
	}

	rec, _ = doJSON(t, e, http.MethodPost, "/v1/workflows/"+instID+"/advance", `{"input": {}}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("advance while paused status = %d, want %d", rec.Code, http.StatusConflict)
	}

	rec, _ = doJSON(t, e, http.MethodPost, "/v1/workflows/"+instID+"/resume", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("resume status = %d", rec.Code)
	}

	rec, _ = doJSON(t, e, http.MethodPost, "/v1/workflows/"+instID+"/resume", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("double resume status = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestCancelTerminal(t *testing.T) {
	e := newTestAPI(t)

	_, doc := doJSON(t, e, http.MethodPost, "/v1/workflows/start",
		`{"type": "enroll", "owner_id": "student-1"}`)
	instID := instanceID(t, doc)

	rec, _ := doJSON(t, e, http.MethodPost, "/v1/workflows/"+instID+"/cancel", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel status = %d", rec.Code)
	}

	rec, _ = doJSON(t, e, http.MethodPost, "/v1/workflows/"+instID+"/cancel", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("double cancel status = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestGetActiveWorkflow(t *testing.T) {
	e := newTestAPI(t)

	rec, _ := doJSON(t, e, http.MethodGet, "/v1/workflows/active?owner_id=student-1", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("no active status = %d, want %d", rec.Code, http.StatusNotFound)
	}

	doJSON(t, e, http.MethodPost, "/v1/workflows/start",
		`{"type": "enroll", "owner_id": "student-1"}`)

	rec, doc := doJSON(t, e, http.MethodGet, "/v1/workflows/active?owner_id=student-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("active status = %d", rec.Code)
	}
	if instanceID(t, doc) == "" {
		t.Error("expected the active instance")
	}

	rec, _ = doJSON(t, e, http.MethodGet, "/v1/workflows/active", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing owner_id status = %d", rec.Code)
	}
}

func TestListWorkflowTypes(t *testing.T) {
	e := newTestAPI(t)

	rec, doc := doJSON(t, e, http.MethodGet, "/v1/workflows/types", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var types []string
	if err := json.Unmarshal(doc["types"], &types); err != nil {
		t.Fatal(err)
	}
	if len(types) != 1 || types[0] != "enroll" {
		t.Errorf("types = %v, want [enroll]", types)
	}
}

func TestPostMessage(t *testing.T) {
	okStep := workflow.NewStep("lookup", nil,
		func(_ context.Context, _ json.RawMessage, _ *workflow.Instance) (workflow.StepResult, error) {
			return workflow.StepResult{}, nil
		},
		func(_ *workflow.Instance) string { return "anything else?" },
	)
	registry := workflow.NewRegistry()
	registry.MustRegister(workflow.NewDefinition(intent.TypeTrackSubmission, okStep))

	eng := workflow.NewEngine(registry, memory.New(), workflow.WithLogger(discardLogger()))
	cls := intent.ClassifierFunc(func(_ context.Context, query string, _ map[string]string) (*intent.Result, error) {
		if strings.Contains(query, "gibberish") {
			return &intent.Result{Type: intent.TypeUnknown}, nil
		}
		return &intent.Result{Type: intent.TypeTrackSubmission, Confidence: 0.95}, nil
	})
	rt := router.New(eng, cls, router.WithLogger(discardLogger()))

	e := echo.New()
	a := api.New(eng, api.WithLogger(discardLogger()), api.WithRouter(rt))
	a.RegisterRoutes(e.Group("/v1"))

	rec, doc := doJSON(t, e, http.MethodPost, "/v1/messages",
		`{"owner_id": "student-1", "message": "where is my thesis submission?"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var reply struct {
		Instance struct {
			State string `json:"state"`
		} `json:"instance"`
	}
	if err := json.Unmarshal(doc["reply"], &reply); err != nil {
		t.Fatal(err)
	}
	if reply.Instance.State != "completed" {
		t.Errorf("state = %q, want completed", reply.Instance.State)
	}

	rec, _ = doJSON(t, e, http.MethodPost, "/v1/messages",
		`{"owner_id": "student-1", "message": "gibberish"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("unroutable message status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
}

func TestPostMessageDisabledWithoutRouter(t *testing.T) {
	e := newTestAPI(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/messages",
		strings.NewReader(`{"owner_id": "student-1", "message": "hi"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestWriteErrorUnknown(t *testing.T) {
	registry := workflow.NewRegistry()
	registry.MustRegister(workflow.NewDefinition("enroll", workflow.NewStep("only", nil,
		func(_ context.Context, _ json.RawMessage, _ *workflow.Instance) (workflow.StepResult, error) {
			return workflow.StepResult{}, errors.New("downstream exploded")
		}, nil)))
	eng := workflow.NewEngine(registry, memory.New(), workflow.WithLogger(discardLogger()))

	e := echo.New()
	a := api.New(eng, api.WithLogger(discardLogger()))
	a.RegisterRoutes(e.Group("/v1"))

	_, doc := doJSON(t, e, http.MethodPost, "/v1/workflows/start",
		`{"type": "enroll", "owner_id": "student-1"}`)
	instID := instanceID(t, doc)

	rec, doc := doJSON(t, e, http.MethodPost, "/v1/workflows/"+instID+"/advance", `{}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadGateway)
	}
	if got := string(doc["step"]); got != `"only"` {
		t.Errorf("step = %s", got)
	}
}
