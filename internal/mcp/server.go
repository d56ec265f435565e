package mcpserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"circuitflow/internal/service"
)

// Server is the MCP server for CircuitFlow.
// It exposes tools, resources, and prompts so AI agents can build workflows
// on the canvas.
type Server struct {
	ctx      context.Context
	mcp      *server.MCPServer
	approval *ApprovalQueue
	layout   *LayoutEngine
	logger   *slog.Logger

	canvas    *service.CanvasService
	exec      *service.ExecutionService
	chat      *service.ChatService
	templates *service.TemplateService
	workflows *service.WorkflowService
	status    *service.StatusService
}

// Deps holds all dependencies passed from the App layer to the MCP server.
type Deps struct {
	Logger     *slog.Logger
	Canvas     *service.CanvasService
	Execution  *service.ExecutionService
	Chat       *service.ChatService
	Templates  *service.TemplateService
	Workflows  *service.WorkflowService
	Status     *service.StatusService
	ApprovalDB *sql.DB // mcp_approvals lives here; destructive tools fail without it
}

// New creates and configures a new MCP server with all tools and resources.
// ctx bounds background work started by tools, such as workflow runs.
func New(ctx context.Context, deps Deps) *Server {
	approval := NewApprovalQueue(ctx, deps.ApprovalDB)
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		ctx:       ctx,
		approval:  approval,
		layout:    NewLayoutEngine(),
		logger:    logger,
		canvas:    deps.Canvas,
		exec:      deps.Execution,
		chat:      deps.Chat,
		templates: deps.Templates,
		workflows: deps.Workflows,
		status:    deps.Status,
	}
	if s.status == nil {
		s.status = service.NewStatusService(deps.Canvas, deps.Execution)
	}

	s.mcp = server.NewMCPServer(
		"circuitflow-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
	)

	s.registerCanvasTools()
	s.registerWorkflowTools()
	s.registerResources()
	s.registerPrompts()

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	s.logger.Info("starting MCP stdio server")
	return server.ServeStdio(s.mcp)
}

// ── Helpers ────────────────────────────────────────────────

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}
