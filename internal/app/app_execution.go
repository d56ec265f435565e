package app

import "circuitflow/internal/domain"

// ============================================================
// Execution
// ============================================================

// RunWorkflow starts the simulated run. It returns false on an empty canvas
// or while a run is already in progress.
func (a *App) RunWorkflow() bool {
	return a.svc.Execution.Start(a.ctx)
}

func (a *App) StopWorkflow() {
	a.svc.Execution.Stop(a.ctx)
}

func (a *App) GetExecutionState() domain.ExecutionState {
	return a.svc.Execution.State()
}
