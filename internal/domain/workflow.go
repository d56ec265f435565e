package domain

import (
	"errors"
	"time"
)

// ErrNotFound is returned by stores and services when a record does not exist.
var ErrNotFound = errors.New("not found")

// Workflow is a saved canvas.
type Workflow struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Blocks      []Block      `json:"blocks"`
	Connections []Connection `json:"connections"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// WorkflowSummary is the list view of a workflow.
type WorkflowSummary struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	BlockCount      int       `json:"blockCount"`
	ConnectionCount int       `json:"connectionCount"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type WorkflowStore interface {
	CreateWorkflow(w *Workflow) error
	GetWorkflow(id string) (*Workflow, error)
	ListWorkflows() ([]WorkflowSummary, error)
	UpdateWorkflow(w *Workflow) error
	DeleteWorkflow(id string) error
}
