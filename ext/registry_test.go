package ext_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/campushub/concierge/ext"
	"github.com/campushub/concierge/workflow"
)

// ──────────────────────────────────────────────────
// Test extensions
// ──────────────────────────────────────────────────

// allHooksExt implements every lifecycle hook for testing.
type allHooksExt struct {
	calls []string
}

func (e *allHooksExt) Name() string { return "all-hooks" }

func (e *allHooksExt) OnInstanceStarted(_ context.Context, _ *workflow.Instance) error {
	e.calls = append(e.calls, "OnInstanceStarted")
	return nil
}

func (e *allHooksExt) OnStepCompleted(_ context.Context, _ *workflow.Instance, _ string, _ time.Duration) error {
	e.calls = append(e.calls, "OnStepCompleted")
	return nil
}

func (e *allHooksExt) OnStepFailed(_ context.Context, _ *workflow.Instance, _ string, _ error) error {
	e.calls = append(e.calls, "OnStepFailed")
	return nil
}

func (e *allHooksExt) OnInstanceCompleted(_ context.Context, _ *workflow.Instance) error {
	e.calls = append(e.calls, "OnInstanceCompleted")
	return nil
}

func (e *allHooksExt) OnInstancePaused(_ context.Context, _ *workflow.Instance) error {
	e.calls = append(e.calls, "OnInstancePaused")
	return nil
}

func (e *allHooksExt) OnInstanceResumed(_ context.Context, _ *workflow.Instance) error {
	e.calls = append(e.calls, "OnInstanceResumed")
	return nil
}

func (e *allHooksExt) OnInstanceCancelled(_ context.Context, _ *workflow.Instance) error {
	e.calls = append(e.calls, "OnInstanceCancelled")
	return nil
}

func (e *allHooksExt) OnShutdown(_ context.Context) error {
	e.calls = append(e.calls, "OnShutdown")
	return nil
}

// stepOnlyExt only implements step-related hooks.
type stepOnlyExt struct {
	calls []string
}

func (e *stepOnlyExt) Name() string { return "step-only" }

func (e *stepOnlyExt) OnStepCompleted(_ context.Context, _ *workflow.Instance, _ string, _ time.Duration) error {
	e.calls = append(e.calls, "OnStepCompleted")
	return nil
}

func (e *stepOnlyExt) OnStepFailed(_ context.Context, _ *workflow.Instance, _ string, _ error) error {
	e.calls = append(e.calls, "OnStepFailed")
	return nil
}

// failingExt returns errors from hooks.
type failingExt struct{}

func (e *failingExt) Name() string { return "failing" }

func (e *failingExt) OnStepCompleted(_ context.Context, _ *workflow.Instance, _ string, _ time.Duration) error {
	return errors.New("boom")
}

func (e *failingExt) OnShutdown(_ context.Context) error {
	return errors.New("shutdown boom")
}

// ──────────────────────────────────────────────────
// Tests
// ──────────────────────────────────────────────────

func TestRegistry_RegisterDiscoversInterfaces(t *testing.T) {
	r := ext.NewRegistry(slog.Default())
	all := &allHooksExt{}
	r.Register(all)

	if got := len(r.Extensions()); got != 1 {
		t.Fatalf("expected 1 extension, got %d", got)
	}
	if got := r.Extensions()[0].Name(); got != "all-hooks" {
		t.Fatalf("expected name 'all-hooks', got %q", got)
	}
}

func TestRegistry_EmitFiresOnlyImplementors(t *testing.T) {
	r := ext.NewRegistry(slog.Default())
	all := &allHooksExt{}
	so := &stepOnlyExt{}
	r.Register(all)
	r.Register(so)

	ctx := context.Background()
	inst := &workflow.Instance{Type: "book_mentor"}

	// Both implement OnStepCompleted, so both are called.
	r.EmitStepCompleted(ctx, inst, "search", time.Second)
	if len(all.calls) != 1 || all.calls[0] != "OnStepCompleted" {
		t.Fatalf("all: expected [OnStepCompleted], got %v", all.calls)
	}
	if len(so.calls) != 1 || so.calls[0] != "OnStepCompleted" {
		t.Fatalf("so: expected [OnStepCompleted], got %v", so.calls)
	}

	// Only all implements OnInstanceStarted; so stays untouched.
	r.EmitInstanceStarted(ctx, inst)
	if len(all.calls) != 2 || all.calls[1] != "OnInstanceStarted" {
		t.Fatalf("all: expected OnInstanceStarted as 2nd, got %v", all.calls)
	}
	if len(so.calls) != 1 {
		t.Fatalf("so: should still have 1 call, got %v", so.calls)
	}
}

func TestRegistry_AllInstanceHooksFire(t *testing.T) {
	r := ext.NewRegistry(slog.Default())
	all := &allHooksExt{}
	r.Register(all)

	ctx := context.Background()
	inst := &workflow.Instance{Type: "book_mentor"}

	r.EmitInstanceStarted(ctx, inst)
	r.EmitStepCompleted(ctx, inst, "search", time.Second)
	r.EmitStepFailed(ctx, inst, "select", errors.New("step fail"))
	r.EmitInstancePaused(ctx, inst)
	r.EmitInstanceResumed(ctx, inst)
	r.EmitInstanceCompleted(ctx, inst)
	r.EmitInstanceCancelled(ctx, inst)
	r.EmitShutdown(ctx)

	expected := []string{
		"OnInstanceStarted", "OnStepCompleted", "OnStepFailed",
		"OnInstancePaused", "OnInstanceResumed", "OnInstanceCompleted",
		"OnInstanceCancelled", "OnShutdown",
	}
	if len(all.calls) != len(expected) {
		t.Fatalf("expected %d calls, got %d: %v", len(expected), len(all.calls), all.calls)
	}
	for i, want := range expected {
		if all.calls[i] != want {
			t.Errorf("call[%d] = %q, want %q", i, all.calls[i], want)
		}
	}
}

func TestRegistry_HookErrorsLoggedNotPropagated(t *testing.T) {
	r := ext.NewRegistry(slog.Default())
	failing := &failingExt{}
	all := &allHooksExt{}

	// Register failing first, then all-hooks. Both should be called.
	r.Register(failing)
	r.Register(all)

	ctx := context.Background()
	inst := &workflow.Instance{Type: "book_mentor"}

	// No panic, no error propagation. allHooksExt should still fire.
	r.EmitStepCompleted(ctx, inst, "search", time.Second)

	if len(all.calls) != 1 || all.calls[0] != "OnStepCompleted" {
		t.Fatalf("all: expected [OnStepCompleted] despite failing ext, got %v", all.calls)
	}
}

func TestRegistry_EmptyRegistryNoOp(_ *testing.T) {
	r := ext.NewRegistry(slog.Default())
	ctx := context.Background()
	inst := &workflow.Instance{}

	// None of these should panic or error.
	r.EmitInstanceStarted(ctx, inst)
	r.EmitStepCompleted(ctx, inst, "s", time.Second)
	r.EmitStepFailed(ctx, inst, "s", errors.New("x"))
	r.EmitInstanceCompleted(ctx, inst)
	r.EmitInstancePaused(ctx, inst)
	r.EmitInstanceResumed(ctx, inst)
	r.EmitInstanceCancelled(ctx, inst)
	r.EmitShutdown(ctx)
}

func TestRegistry_MultipleExtensionsOrderPreserved(t *testing.T) {
	r := ext.NewRegistry(slog.Default())
	ext1 := &allHooksExt{}
	ext2 := &allHooksExt{}
	r.Register(ext1)
	r.Register(ext2)

	ctx := context.Background()
	r.EmitInstanceStarted(ctx, &workflow.Instance{})

	// Both should be called.
	if len(ext1.calls) != 1 {
		t.Errorf("ext1: expected 1 call, got %d", len(ext1.calls))
	}
	if len(ext2.calls) != 1 {
		t.Errorf("ext2: expected 1 call, got %d", len(ext2.calls))
	}
}
