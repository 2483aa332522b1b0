package chains_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/campushub/concierge/store/memory"
	"github.com/campushub/concierge/workflow"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newChainEngine registers a single definition and returns an engine
// over an in-memory store.
func newChainEngine(t *testing.T, def *workflow.Definition) *workflow.Engine {
	t.Helper()

	reg := workflow.NewRegistry()
	reg.MustRegister(def)
	return workflow.NewEngine(reg, memory.New(), workflow.WithLogger(testLogger()))
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()

	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal input: %v", err)
	}
	return b
}

// advanceOK advances and fails the test on error.
func advanceOK(t *testing.T, eng *workflow.Engine, inst *workflow.Instance, input any) *workflow.Instance {
	t.Helper()

	out, err := eng.Advance(context.Background(), inst.ID, mustJSON(t, input))
	if err != nil {
		t.Fatalf("advance at step %d: %v", inst.CurrentStep, err)
	}
	return out
}
