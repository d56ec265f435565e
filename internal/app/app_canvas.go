package app

import (
	"circuitflow/internal/canvas"
	"circuitflow/internal/domain"
	"circuitflow/internal/service"
)

// ============================================================
// Canvas
// ============================================================

func (a *App) GetPalette() []domain.PaletteCategory {
	return domain.Palette()
}

func (a *App) GetCanvas() CanvasView {
	return a.canvasView(a.svc.Canvas.State())
}

func (a *App) canvasView(st canvas.State) CanvasView {
	exec := a.svc.Execution.State()
	return CanvasView{
		State:     st,
		Paths:     st.Paths(),
		Status:    st.Status(exec),
		Execution: exec,
	}
}

// Dispatch applies any canvas action in its wire form.
func (a *App) Dispatch(env canvas.Envelope) (CanvasView, error) {
	action, err := canvas.Decode(env)
	if err != nil {
		return CanvasView{}, err
	}
	return a.canvasView(a.svc.Canvas.Dispatch(a.ctx, action)), nil
}

func (a *App) dispatch(action canvas.Action) CanvasView {
	return a.canvasView(a.svc.Canvas.Dispatch(a.ctx, action))
}

func (a *App) SelectBlockType(blockType string) CanvasView {
	return a.dispatch(canvas.Select{Type: domain.BlockType(blockType)})
}

func (a *App) ClearSelection() CanvasView {
	return a.dispatch(canvas.ClearSelection{})
}

// PlaceBlock drops the selected block type at the grid cell under (x, y).
func (a *App) PlaceBlock(x, y float64) CanvasView {
	return a.dispatch(canvas.Place{X: x, Y: y})
}

func (a *App) BeginDrag(blockID string, x, y float64) CanvasView {
	return a.dispatch(canvas.BeginDrag{BlockID: blockID, X: x, Y: y})
}

func (a *App) DragTo(blockID string, x, y float64) CanvasView {
	return a.dispatch(canvas.DragTo{BlockID: blockID, X: x, Y: y})
}

func (a *App) EndDrag() CanvasView {
	return a.dispatch(canvas.EndDrag{})
}

func (a *App) MoveBlock(blockID string, x, y float64) CanvasView {
	return a.dispatch(canvas.Move{BlockID: blockID, X: x, Y: y})
}

func (a *App) ConnectBlocks(fromID, toID string) CanvasView {
	return a.dispatch(canvas.Connect{From: fromID, To: toID})
}

func (a *App) BeginConnect(blockID string) CanvasView {
	return a.dispatch(canvas.BeginConnect{BlockID: blockID})
}

func (a *App) CompleteConnect(blockID string) CanvasView {
	return a.dispatch(canvas.CompleteConnect{BlockID: blockID})
}

func (a *App) CancelConnect() CanvasView {
	return a.dispatch(canvas.CancelConnect{})
}

// DeleteBlock removes a block and every connection touching it.
func (a *App) DeleteBlock(blockID string) CanvasView {
	return a.dispatch(canvas.Delete{BlockID: blockID})
}

func (a *App) ToggleBlockControls(blockID string) CanvasView {
	return a.dispatch(canvas.ToggleControls{BlockID: blockID})
}

func (a *App) ClearCanvas() CanvasView {
	return a.dispatch(canvas.Clear{})
}

// ============================================================
// Status
// ============================================================

func (a *App) GetWorkflowStatus() domain.WorkflowStatus {
	return a.svc.Status.Workflow()
}

func (a *App) GetStatusPanel() service.StatusPanel {
	return a.svc.Status.Panel()
}
