package mcpserver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"circuitflow/internal/domain"
)

// chatReplyTimeout bounds how long send_chat waits for the assistant.
const chatReplyTimeout = 10 * time.Second

func (s *Server) registerWorkflowTools() {
	// ── run_workflow ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("run_workflow",
		mcp.WithDescription("Start the execution simulation. Progress climbs to 100% then resets. No-op on an empty canvas or while already running."),
	), s.handleRunWorkflow)

	// ── stop_workflow ──────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("stop_workflow",
		mcp.WithDescription("Stop a running simulation and reset progress"),
	), s.handleStopWorkflow)

	// ── send_chat ──────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("send_chat",
		mcp.WithDescription("Send a message to the workflow assistant and wait for its reply"),
		mcp.WithString("text", mcp.Description("Message text"), mcp.Required()),
	), s.handleSendChat)

	// ── list_templates ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_templates",
		mcp.WithDescription("List workflow templates (built-in and from the templates directory)"),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handleListTemplates)

	// ── load_template ──────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("load_template",
		mcp.WithDescription("Replace the canvas with a template's blocks and connections"),
		mcp.WithString("templateId", mcp.Description("Template ID"), mcp.Required()),
	), s.handleLoadTemplate)

	// ── save_workflow ──────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("save_workflow",
		mcp.WithDescription("Save the current canvas to the open workflow, optionally renaming it"),
		mcp.WithString("name", mcp.Description("New workflow name (optional)")),
	), s.handleSaveWorkflow)

	// ── list_workflows ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_workflows",
		mcp.WithDescription("List saved workflows, most recently updated first"),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handleListWorkflows)
}

func (s *Server) handleRunWorkflow(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	// The run outlives the tool call, so it is bound to the server context.
	if !s.exec.Start(s.ctx) {
		st := s.status.Workflow()
		if st.IsRunning {
			return textResult(fmt.Sprintf("Already running (%d%%)", st.Progress)), nil
		}
		return textResult("Nothing to run: " + st.Text), nil
	}
	return jsonResult(s.status.Workflow())
}

func (s *Server) handleStopWorkflow(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.exec.Stop(ctx)
	return jsonResult(s.status.Workflow())
}

func (s *Server) handleSendChat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text := getString(req.GetArguments(), "text")
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text is required")
	}
	before := len(s.chat.View().Messages)
	if !s.chat.Send(text) {
		return nil, fmt.Errorf("assistant is busy, try again shortly")
	}

	ctx, cancel := context.WithTimeout(ctx, chatReplyTimeout)
	defer cancel()
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			view := s.chat.View()
			if view.Typing {
				continue
			}
			for i := len(view.Messages) - 1; i > before; i-- {
				if view.Messages[i].Role == domain.ChatRoleAssistant {
					return textResult(view.Messages[i].Content), nil
				}
			}
			return nil, fmt.Errorf("chat session closed before replying")
		case <-ctx.Done():
			return nil, fmt.Errorf("wait for reply: %w", ctx.Err())
		}
	}
}

// templateSummary is the list view of a template.
type templateSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Blocks      int    `json:"blockCount"`
	Connections int    `json:"connectionCount"`
	Builtin     bool   `json:"builtin"`
}

func (s *Server) handleListTemplates(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	list := s.templates.List()
	out := make([]templateSummary, len(list))
	for i, t := range list {
		out[i] = templateSummary{
			ID:          t.ID,
			Name:        t.Name,
			Description: t.Description,
			Category:    t.Category,
			Blocks:      len(t.Blocks),
			Connections: len(t.Connections),
			Builtin:     t.Builtin,
		}
	}
	return jsonResult(out)
}

func (s *Server) handleLoadTemplate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := getString(req.GetArguments(), "templateId")
	st, err := s.templates.Apply(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load template %q: %w", id, err)
	}
	return textResult(fmt.Sprintf("Loaded template %s: %d blocks, %d connections", id, len(st.Blocks), len(st.Connections))), nil
}

func (s *Server) handleSaveWorkflow(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := strings.TrimSpace(getString(req.GetArguments(), "name"))
	var err error
	if name != "" {
		err = s.workflows.Rename(ctx, s.workflows.CurrentID(), name)
	} else {
		err = s.workflows.Save(ctx)
	}
	if err != nil {
		return nil, err
	}
	wf := s.workflows.Current()
	return textResult(fmt.Sprintf("Saved workflow %q (%s): %d blocks, %d connections",
		wf.Name, wf.ID, len(wf.Blocks), len(wf.Connections))), nil
}

func (s *Server) handleListWorkflows(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	list, err := s.workflows.List()
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []domain.WorkflowSummary{}
	}
	return jsonResult(list)
}
