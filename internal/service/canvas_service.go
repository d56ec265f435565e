package service

import (
	"context"
	"reflect"
	"sync"

	"github.com/google/uuid"

	"circuitflow/internal/canvas"
)

// ─────────────────────────────────────────────────────────────
// Canvas Service — owns the live canvas state
// ─────────────────────────────────────────────────────────────

// Recorder is notified after every committed content change, i.e. one that
// alters blocks or connections outside an active drag. WorkflowService uses
// it to push undo snapshots.
type Recorder interface {
	Record(ctx context.Context, label string, st canvas.State)
}

// CanvasService serializes canvas actions. The reducer stays pure; this
// type holds the current value behind a mutex.
type CanvasService struct {
	mu       sync.Mutex
	state    canvas.State
	recorded canvas.State
	revision uint64
	emitter  EventEmitter
	recorder Recorder
}

// NewCanvasService creates a CanvasService with an empty canvas.
func NewCanvasService(emitter EventEmitter) *CanvasService {
	if emitter == nil {
		emitter = NopEmitter{}
	}
	st := canvas.New()
	return &CanvasService{state: st, recorded: st, emitter: emitter}
}

// SetRecorder installs the commit hook.
func (s *CanvasService) SetRecorder(r Recorder) {
	s.mu.Lock()
	s.recorder = r
	s.mu.Unlock()
}

// State returns a copy of the current canvas.
func (s *CanvasService) State() canvas.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// BlockCount is the number of blocks on the canvas.
func (s *CanvasService) BlockCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.Blocks)
}

// Revision increases with every committed content change.
func (s *CanvasService) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// Paths returns every connection with its rendered curve.
func (s *CanvasService) Paths() []canvas.RoutedConnection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Paths()
}

// Dispatch applies a and returns the resulting canvas. Actions whose
// preconditions fail leave the canvas untouched and emit nothing.
func (s *CanvasService) Dispatch(ctx context.Context, a canvas.Action) canvas.State {
	a = withConnectionID(a)

	s.mu.Lock()
	prev := s.state
	next := canvas.Reduce(prev, a)
	changed := !reflect.DeepEqual(prev, next)
	s.state = next
	commit := !next.Drag.Active() && !canvas.SameContent(s.recorded, next)
	if commit {
		s.recorded = next
		s.revision++
	}
	rec := s.recorder
	out := next.Clone()
	s.mu.Unlock()

	if commit && rec != nil {
		rec.Record(ctx, canvas.Name(a), out)
	}
	if changed {
		s.emitter.Emit(ctx, EventCanvasChanged, out)
	}
	return out
}

// Restore replaces the canvas contents without notifying the recorder.
// Used when loading a workflow or stepping through undo history.
func (s *CanvasService) Restore(ctx context.Context, st canvas.State) (canvas.State, uint64) {
	s.mu.Lock()
	next := canvas.Reduce(s.state, canvas.Load{Blocks: st.Blocks, Connections: st.Connections})
	s.state = next
	s.recorded = next
	s.revision++
	rev := s.revision
	out := next.Clone()
	s.mu.Unlock()

	s.emitter.Emit(ctx, EventCanvasChanged, out)
	return out, rev
}

// withConnectionID assigns a UUID to connect actions that arrive without one.
func withConnectionID(a canvas.Action) canvas.Action {
	switch v := a.(type) {
	case canvas.Connect:
		if v.ID == "" {
			v.ID = uuid.NewString()
		}
		return v
	case *canvas.Connect:
		c := *v
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		return c
	case canvas.CompleteConnect:
		if v.ID == "" {
			v.ID = uuid.NewString()
		}
		return v
	case *canvas.CompleteConnect:
		c := *v
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		return c
	}
	return a
}
