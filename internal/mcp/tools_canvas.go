package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"circuitflow/internal/canvas"
	"circuitflow/internal/domain"
)

func blockTypeList() string {
	var names []string
	for _, cat := range domain.Palette() {
		for _, e := range cat.Entries {
			names = append(names, string(e.Type))
		}
	}
	return strings.Join(names, ", ")
}

func (s *Server) registerCanvasTools() {
	// ── get_palette ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("get_palette",
		mcp.WithDescription("List the block types that can be placed, grouped by category"),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handleGetPalette)

	// ── get_canvas ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("get_canvas",
		mcp.WithDescription("Return the blocks, connections, connection paths and status of the current workflow"),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handleGetCanvas)

	// ── place_block ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("place_block",
		mcp.WithDescription("Place a new 80x80 block on the canvas. Coordinates snap down to the 40px grid. Position is auto-calculated if x or y is omitted."),
		mcp.WithString("type",
			mcp.Description("Block type: "+blockTypeList()),
			mcp.Required(),
		),
		mcp.WithNumber("x", mcp.Description("X position (optional, auto-layout if omitted)")),
		mcp.WithNumber("y", mcp.Description("Y position (optional, auto-layout if omitted)")),
	), s.handlePlaceBlock)

	// ── move_block ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("move_block",
		mcp.WithDescription("Move a block to a new position, snapped to the grid"),
		mcp.WithString("blockId", mcp.Description("Block ID"), mcp.Required()),
		mcp.WithNumber("x", mcp.Description("New X position"), mcp.Required()),
		mcp.WithNumber("y", mcp.Description("New Y position"), mcp.Required()),
	), s.handleMoveBlock)

	// ── arrange_blocks ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("arrange_blocks",
		mcp.WithDescription("Lay out blocks in rows without overlaps, in the given order"),
		mcp.WithString("blockIds",
			mcp.Description("Comma-separated block IDs (optional, defaults to all blocks)"),
		),
		mcp.WithNumber("x", mcp.Description("Left edge of the group (default 0)")),
		mcp.WithNumber("y", mcp.Description("Top edge of the group (default 0)")),
	), s.handleArrangeBlocks)

	// ── connect_blocks ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("connect_blocks",
		mcp.WithDescription("Connect the right port of one block to the left port of another"),
		mcp.WithString("fromBlockId", mcp.Description("Source block ID"), mcp.Required()),
		mcp.WithString("toBlockId", mcp.Description("Target block ID"), mcp.Required()),
	), s.handleConnectBlocks)

	// ── delete_block (destructive) ─────────────────────
	s.mcp.AddTool(mcp.NewTool("delete_block",
		mcp.WithDescription("🛑 DESTRUCTIVE: Delete a block and every connection touching it. Requires user approval."),
		mcp.WithString("blockId", mcp.Description("Block ID to delete"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleDeleteBlock)

	// ── clear_canvas (destructive) ─────────────────────
	s.mcp.AddTool(mcp.NewTool("clear_canvas",
		mcp.WithDescription("🛑 DESTRUCTIVE: Remove every block and connection. Requires user approval."),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleClearCanvas)
}

// canvasView is the get_canvas payload.
type canvasView struct {
	Status      domain.WorkflowStatus     `json:"status"`
	Blocks      []domain.Block            `json:"blocks"`
	Connections []domain.Connection       `json:"connections"`
	Paths       []canvas.RoutedConnection `json:"paths"`
}

func (s *Server) handleGetPalette(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(domain.Palette())
}

func (s *Server) handleGetCanvas(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.canvasView())
}

func (s *Server) canvasView() canvasView {
	st := s.canvas.State()
	v := canvasView{
		Status:      s.status.Workflow(),
		Blocks:      st.Blocks,
		Connections: st.Connections,
		Paths:       st.Paths(),
	}
	if v.Blocks == nil {
		v.Blocks = []domain.Block{}
	}
	if v.Connections == nil {
		v.Connections = []domain.Connection{}
	}
	return v
}

func (s *Server) handlePlaceBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	bt := domain.BlockType(getString(args, "type"))
	if !bt.Valid() {
		return nil, fmt.Errorf("unknown block type %q (expected one of: %s)", bt, blockTypeList())
	}

	before := s.canvas.State()
	x, hasX := getFloat(args, "x", 0)
	y, hasY := getFloat(args, "y", 0)
	if !hasX || !hasY {
		nx, ny := s.layout.NextPosition(before.Blocks)
		if !hasX {
			x = float64(nx)
		}
		if !hasY {
			y = float64(ny)
		}
	}

	after := s.canvas.Dispatch(ctx, canvas.Place{Type: bt, X: x, Y: y})
	if len(after.Blocks) == 0 || after.Blocks[len(after.Blocks)-1].Type != bt {
		return nil, fmt.Errorf("place %s: canvas unchanged", bt)
	}
	return jsonResult(after.Blocks[len(after.Blocks)-1])
}

func (s *Server) handleMoveBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	id := getString(args, "blockId")
	if _, ok := s.canvas.State().Block(id); !ok {
		return nil, fmt.Errorf("block %q not found", id)
	}
	x, hasX := getFloat(args, "x", 0)
	y, hasY := getFloat(args, "y", 0)
	if !hasX || !hasY {
		return nil, fmt.Errorf("move %s: both x and y are required", id)
	}

	st := s.canvas.Dispatch(ctx, canvas.Move{BlockID: id, X: x, Y: y})
	b, _ := st.Block(id)
	return jsonResult(b)
}

func (s *Server) handleArrangeBlocks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	st := s.canvas.State()

	var group []domain.Block
	if raw := getString(args, "blockIds"); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			id = strings.TrimSpace(id)
			b, ok := st.Block(id)
			if !ok {
				return nil, fmt.Errorf("block %q not found", id)
			}
			group = append(group, b)
		}
	} else {
		group = append(group, st.Blocks...)
	}
	if len(group) == 0 {
		return textResult("Nothing to arrange"), nil
	}

	x, _ := getFloat(args, "x", 0)
	y, _ := getFloat(args, "y", 0)
	for _, b := range s.layout.ArrangeGroup(group, x, y) {
		s.canvas.Dispatch(ctx, canvas.Move{BlockID: b.ID, X: float64(b.X), Y: float64(b.Y)})
	}
	return textResult(fmt.Sprintf("Arranged %d blocks", len(group))), nil
}

func (s *Server) handleConnectBlocks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	from := getString(args, "fromBlockId")
	to := getString(args, "toBlockId")

	before := s.canvas.State()
	for _, id := range []string{from, to} {
		if _, ok := before.Block(id); !ok {
			return nil, fmt.Errorf("block %q not found", id)
		}
	}

	after := s.canvas.Dispatch(ctx, canvas.Connect{From: from, To: to})
	if len(after.Connections) <= len(before.Connections) {
		return nil, fmt.Errorf("connect %s -> %s: canvas unchanged", from, to)
	}
	return jsonResult(after.Connections[len(after.Connections)-1])
}

func (s *Server) handleDeleteBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := getString(req.GetArguments(), "blockId")
	st := s.canvas.State()
	b, ok := st.Block(id)
	if !ok {
		return nil, fmt.Errorf("block %q not found", id)
	}

	touching := 0
	for _, c := range st.Connections {
		if c.Touches(id) {
			touching++
		}
	}
	meta, _ := json.Marshal(map[string]string{"blockId": id})
	desc := fmt.Sprintf("Delete %s block %s and %d connection(s)", b.Type.Label(), id, touching)
	if err := s.approval.Request(ctx, "delete_block", desc, string(meta)); err != nil {
		return nil, err
	}

	s.canvas.Dispatch(ctx, canvas.Delete{BlockID: id})
	return textResult(fmt.Sprintf("Deleted block %s and %d connection(s)", id, touching)), nil
}

func (s *Server) handleClearCanvas(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st := s.canvas.State()
	if len(st.Blocks) == 0 {
		return textResult("Canvas is already empty"), nil
	}
	desc := fmt.Sprintf("Clear the canvas (%d blocks, %d connections)", len(st.Blocks), len(st.Connections))
	if err := s.approval.Request(ctx, "clear_canvas", desc, ""); err != nil {
		return nil, err
	}

	s.canvas.Dispatch(ctx, canvas.Clear{})
	return textResult("Canvas cleared"), nil
}
