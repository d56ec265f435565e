// Package canvas holds the workflow canvas as an immutable value and the
// reducer that produces the next value for each user action.
package canvas

import (
	"reflect"

	"circuitflow/internal/domain"
)

// State is one snapshot of the canvas. Values are never mutated in place:
// every reducer returns a fresh State and leaves its input untouched.
type State struct {
	Blocks         []domain.Block      `json:"blocks"`
	Connections    []domain.Connection `json:"connections"`
	Selected       domain.BlockType    `json:"selected"`
	Drag           DragSession         `json:"drag"`
	ControlsFor    string              `json:"controlsFor"`
	PendingConnect string              `json:"pendingConnect"`
}

// DragSession tracks an active pointer drag. OffsetX/OffsetY is the grab
// point relative to the block origin.
type DragSession struct {
	BlockID string  `json:"blockId"`
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
}

// Active reports whether a drag is in progress.
func (d DragSession) Active() bool { return d.BlockID != "" }

// New returns an empty canvas.
func New() State {
	return State{Blocks: []domain.Block{}, Connections: []domain.Connection{}}
}

// Block looks up a block by id.
func (s State) Block(id string) (domain.Block, bool) {
	if i := s.blockIndex(id); i >= 0 {
		return s.Blocks[i].Clone(), true
	}
	return domain.Block{}, false
}

func (s State) blockIndex(id string) int {
	for i := range s.Blocks {
		if s.Blocks[i].ID == id {
			return i
		}
	}
	return -1
}

func (s State) hasConnection(id string) bool {
	for _, c := range s.Connections {
		if c.ID == id {
			return true
		}
	}
	return false
}

// Clone deep-copies the state.
func (s State) Clone() State {
	out := s
	out.Blocks = cloneBlocks(s.Blocks)
	out.Connections = append([]domain.Connection{}, s.Connections...)
	return out
}

// SameContent reports whether a and b hold the same blocks and connections,
// ignoring selection and other transient UI state.
func SameContent(a, b State) bool {
	return reflect.DeepEqual(a.Blocks, b.Blocks) && reflect.DeepEqual(a.Connections, b.Connections)
}

// Status builds the status bar view for this canvas and run state.
func (s State) Status(exec domain.ExecutionState) domain.WorkflowStatus {
	return domain.WorkflowStatus{
		ExecutionState:  exec,
		Text:            domain.StatusText(exec, len(s.Blocks)),
		BlockCount:      len(s.Blocks),
		ConnectionCount: len(s.Connections),
	}
}

func cloneBlocks(in []domain.Block) []domain.Block {
	out := make([]domain.Block, len(in))
	for i, b := range in {
		out[i] = b.Clone()
	}
	return out
}
