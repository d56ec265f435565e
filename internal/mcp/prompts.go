package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("build_workflow",
		mcp.WithPromptDescription("Guide through building a workflow on the canvas from a plain-language goal"),
		mcp.WithArgument("goal",
			mcp.ArgumentDescription("What the workflow should do, e.g. \"send a daily report email\""),
			mcp.RequiredArgument(),
		),
	), s.handleBuildWorkflowPrompt)

	s.mcp.AddPrompt(mcp.NewPrompt("start_from_template",
		mcp.WithPromptDescription("Load a template and adapt it to a goal"),
		mcp.WithArgument("templateId",
			mcp.ArgumentDescription("Template to start from (see list_templates)"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("goal",
			mcp.ArgumentDescription("How the template should be adapted"),
		),
	), s.handleFromTemplatePrompt)
}

func (s *Server) handleBuildWorkflowPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	goal := req.Params.Arguments["goal"]
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Build a workflow for: %s", goal),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Build a workflow on the CircuitFlow canvas that will %s. Follow these steps:

1. Call get_palette to see the available block types
2. Call get_canvas to see what is already placed
3. Place one block per step with place_block, starting from a power-source. Omit x and y to let auto-layout find free grid cells
4. Wire the steps in order with connect_blocks (output on the right, input on the left)
5. Tidy the layout with arrange_blocks
6. Save with save_workflow, giving it a descriptive name, then start a test run with run_workflow

Keep the flow left to right and avoid blocks that serve no step.`, goal),
				},
			},
		},
	}, nil
}

func (s *Server) handleFromTemplatePrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	id := req.Params.Arguments["templateId"]
	goal := req.Params.Arguments["goal"]
	if goal == "" {
		goal = "the user's needs"
	}
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Start from template %s", id),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Start from the "%s" template and adapt it to %s:

1. Read circuitflow://template/%s to review its blocks and connections
2. Call load_template with templateId "%s". This replaces the current canvas
3. Add, move or connect blocks as needed. Ask before deleting anything with delete_block
4. Save the result with save_workflow`, id, goal, id, id),
				},
			},
		},
	}, nil
}
