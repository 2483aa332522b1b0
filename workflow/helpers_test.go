package workflow_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/campushub/concierge/store/memory"
	"github.com/campushub/concierge/workflow"
)

// recordingEmitter captures lifecycle events for assertions.
type recordingEmitter struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingEmitter) record(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, name)
}

func (r *recordingEmitter) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recordingEmitter) EmitInstanceStarted(_ context.Context, _ *workflow.Instance) {
	r.record("started")
}

func (r *recordingEmitter) EmitStepCompleted(_ context.Context, _ *workflow.Instance, step string, _ time.Duration) {
	r.record("step_completed:" + step)
}

func (r *recordingEmitter) EmitStepFailed(_ context.Context, _ *workflow.Instance, step string, _ error) {
	r.record("step_failed:" + step)
}

func (r *recordingEmitter) EmitInstanceCompleted(_ context.Context, _ *workflow.Instance) {
	r.record("completed")
}

func (r *recordingEmitter) EmitInstancePaused(_ context.Context, _ *workflow.Instance) {
	r.record("paused")
}

func (r *recordingEmitter) EmitInstanceResumed(_ context.Context, _ *workflow.Instance) {
	r.record("resumed")
}

func (r *recordingEmitter) EmitInstanceCancelled(_ context.Context, _ *workflow.Instance) {
	r.record("cancelled")
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(opts ...workflow.Option) (*workflow.Engine, *workflow.Registry, *memory.Store, *recordingEmitter) {
	s := memory.New()
	reg := workflow.NewRegistry()
	em := &recordingEmitter{}
	base := []workflow.Option{
		workflow.WithLogger(testLogger()),
		workflow.WithEmitter(em),
	}
	eng := workflow.NewEngine(reg, s, append(base, opts...)...)
	return eng, reg, s, em
}

// okStep executes successfully and writes its name into step data.
func okStep(name string) workflow.Step {
	return workflow.NewStep(name, nil,
		func(_ context.Context, _ json.RawMessage, _ *workflow.Instance) (workflow.StepResult, error) {
			data := workflow.Data{}
			_ = workflow.SetField(data, name, "done")
			return workflow.StepResult{Data: data}, nil
		},
		func(_ *workflow.Instance) string { return "next: " + name },
	)
}
