package service_test

import (
	"context"
	"testing"
	"time"

	"circuitflow/internal/domain"
	"circuitflow/internal/service"
)

func newExecution(blocks int, em service.EventEmitter) *service.ExecutionService {
	return service.NewExecutionService(func() int { return blocks }, 2*time.Millisecond, 10, em, nil)
}

// ─────────────────────────────────────────────────────────────
// ExecutionService
// ─────────────────────────────────────────────────────────────

func TestExecution_EmptyCanvasDoesNotStart(t *testing.T) {
	em := &service.MockEmitter{}
	exec := newExecution(0, em)
	if exec.Start(context.Background()) {
		t.Fatal("expected Start to refuse an empty canvas")
	}
	if exec.State() != (domain.ExecutionState{}) {
		t.Errorf("expected idle state, got %+v", exec.State())
	}
	if len(em.Snapshot()) != 0 {
		t.Errorf("expected no events, got %d", len(em.Snapshot()))
	}
}

func TestExecution_RunsToCompletion(t *testing.T) {
	em := &service.MockEmitter{}
	exec := newExecution(3, em)
	defer exec.Close()

	if !exec.Start(context.Background()) {
		t.Fatal("expected Start to succeed")
	}
	if exec.Start(context.Background()) {
		t.Fatal("expected second Start to be ignored while running")
	}
	waitFor(t, 2*time.Second, func() bool { return len(em.Named(service.EventExecutionFinished)) == 1 })

	if exec.State() != (domain.ExecutionState{}) {
		t.Errorf("expected reset after finish, got %+v", exec.State())
	}

	var progress []int
	for _, e := range em.Named(service.EventExecutionProgress) {
		progress = append(progress, e.Data.(domain.ExecutionState).Progress)
	}
	want := []int{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100}
	if len(progress) != len(want) {
		t.Fatalf("expected progress %v, got %v", want, progress)
	}
	for i := range want {
		if progress[i] != want[i] {
			t.Fatalf("expected progress %v, got %v", want, progress)
		}
	}

	// A finished run can be started again.
	if !exec.Start(context.Background()) {
		t.Fatal("expected restart after finish")
	}
}

func TestExecution_StopCancelsTicker(t *testing.T) {
	em := &service.MockEmitter{}
	exec := service.NewExecutionService(func() int { return 1 }, 20*time.Millisecond, 10, em, nil)

	if !exec.Start(context.Background()) {
		t.Fatal("expected Start to succeed")
	}
	exec.Stop(context.Background())
	if exec.State() != (domain.ExecutionState{}) {
		t.Fatalf("expected idle after Stop, got %+v", exec.State())
	}

	n := len(em.Snapshot())
	time.Sleep(60 * time.Millisecond)
	if len(em.Snapshot()) != n {
		t.Errorf("expected no events after Stop, got %d more", len(em.Snapshot())-n)
	}
	if len(em.Named(service.EventExecutionFinished)) != 0 {
		t.Error("a stopped run must not report finished")
	}
}

func TestExecution_OwnerCancelResets(t *testing.T) {
	exec := service.NewExecutionService(func() int { return 1 }, 20*time.Millisecond, 10, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())

	if !exec.Start(ctx) {
		t.Fatal("expected Start to succeed")
	}
	cancel()
	waitFor(t, time.Second, func() bool { return !exec.State().IsRunning })
	exec.Close()
}
