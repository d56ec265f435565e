package domain

// ExecutionState is the decorative run progress shown in the status bar.
type ExecutionState struct {
	IsRunning bool `json:"isRunning"`
	Progress  int  `json:"progress"`
}

const (
	StatusExecuting    = "Executing Workflow..."
	StatusReady        = "Workflow Ready"
	StatusNoComponents = "No Components"
)

// StatusText is the headline for the workflow status bar.
func StatusText(state ExecutionState, blockCount int) string {
	if state.IsRunning {
		return StatusExecuting
	}
	if blockCount > 0 {
		return StatusReady
	}
	return StatusNoComponents
}

// WorkflowStatus is the status bar view.
type WorkflowStatus struct {
	ExecutionState
	Text            string `json:"text"`
	BlockCount      int    `json:"blockCount"`
	ConnectionCount int    `json:"connectionCount"`
}
