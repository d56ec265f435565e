package app

import (
	"circuitflow/internal/canvas"
	"circuitflow/internal/domain"
)

// CanvasView is everything the canvas needs to render in one call.
type CanvasView struct {
	State     canvas.State              `json:"state"`
	Paths     []canvas.RoutedConnection `json:"paths"`
	Status    domain.WorkflowStatus     `json:"status"`
	Execution domain.ExecutionState     `json:"execution"`
}

// WorkflowView is the open workflow's header.
type WorkflowView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Dirty       bool   `json:"dirty"`
}
