package app

import "circuitflow/internal/storage"

// ============================================================
// Undo Tree
// ============================================================

func (a *App) LoadUndoTree() (*storage.UndoTree, error) {
	return a.svc.Workflows.History()
}

func (a *App) Undo() (bool, error) {
	return a.svc.Workflows.Undo(a.ctx)
}

func (a *App) Redo() (bool, error) {
	return a.svc.Workflows.Redo(a.ctx)
}

func (a *App) GoToUndoNode(nodeID string) error {
	return a.svc.Workflows.GoTo(a.ctx, nodeID)
}
