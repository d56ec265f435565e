package app

import (
	"fmt"
	"path/filepath"

	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"circuitflow/internal/domain"
	mcpserver "circuitflow/internal/mcp"
	"circuitflow/internal/storage"
)

// ============================================================
// Workflows
// ============================================================

func (a *App) ListWorkflows() ([]domain.WorkflowSummary, error) {
	return a.svc.Workflows.List()
}

func (a *App) CurrentWorkflow() WorkflowView {
	wf := a.svc.Workflows.Current()
	return WorkflowView{
		ID:          wf.ID,
		Name:        wf.Name,
		Description: wf.Description,
		Dirty:       a.svc.Workflows.Dirty(),
	}
}

func (a *App) NewWorkflow(name string) (*domain.Workflow, error) {
	return a.svc.Workflows.New(a.ctx, name)
}

func (a *App) OpenWorkflow(id string) error {
	return a.svc.Workflows.Open(a.ctx, id)
}

func (a *App) SaveWorkflow() error {
	return a.svc.Workflows.Save(a.ctx)
}

func (a *App) SaveWorkflowAs(name string) (*domain.Workflow, error) {
	return a.svc.Workflows.SaveAs(a.ctx, name)
}

func (a *App) RenameWorkflow(id, name string) error {
	return a.svc.Workflows.Rename(a.ctx, id, name)
}

func (a *App) DeleteWorkflow(id string) error {
	return a.svc.Workflows.Delete(a.ctx, id)
}

// ExportWorkflow asks for a destination and writes the open workflow as a
// .cflow file. It returns "" when the dialog is cancelled.
func (a *App) ExportWorkflow() (string, error) {
	wf := a.svc.Workflows.Current()
	path, err := wailsRuntime.SaveFileDialog(a.ctx, wailsRuntime.SaveDialogOptions{
		Title:           "Export workflow",
		DefaultFilename: wf.Name + storage.DocumentExt,
		Filters:         cflowFilters(),
	})
	if err != nil || path == "" {
		return "", err
	}
	if err := a.svc.Workflows.Export(path); err != nil {
		return "", err
	}
	return path, nil
}

// ImportWorkflow asks for a .cflow file and opens it as a new workflow.
// It returns nil when the dialog is cancelled.
func (a *App) ImportWorkflow() (*domain.Workflow, error) {
	path, err := wailsRuntime.OpenFileDialog(a.ctx, wailsRuntime.OpenDialogOptions{
		Title:   "Import workflow",
		Filters: cflowFilters(),
	})
	if err != nil || path == "" {
		return nil, err
	}
	wf, err := a.svc.Workflows.Import(a.ctx, path)
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", filepath.Base(path), err)
	}
	return wf, nil
}

func cflowFilters() []wailsRuntime.FileFilter {
	return []wailsRuntime.FileFilter{
		{DisplayName: "CircuitFlow workflow (*" + storage.DocumentExt + ")", Pattern: "*" + storage.DocumentExt},
	}
}

// ============================================================
// Templates
// ============================================================

func (a *App) ListTemplates() []domain.Template {
	return a.svc.Templates.List()
}

// ApplyTemplate replaces the canvas with a template's blocks.
func (a *App) ApplyTemplate(id string) (CanvasView, error) {
	st, err := a.svc.Templates.Apply(a.ctx, id)
	if err != nil {
		return CanvasView{}, err
	}
	return a.canvasView(st), nil
}

// ============================================================
// MCP approvals (standalone server, cross-process)
// ============================================================

func (a *App) ListPendingApprovals() ([]mcpserver.PendingAction, error) {
	return mcpserver.ListPendingApprovals(a.svc.DB.Conn())
}

func (a *App) ApproveMCPAction(id string) error {
	return mcpserver.ResolveApproval(a.svc.DB.Conn(), id, true)
}

func (a *App) RejectMCPAction(id string) error {
	return mcpserver.ResolveApproval(a.svc.DB.Conn(), id, false)
}
