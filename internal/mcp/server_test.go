package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"circuitflow/internal/canvas"
	"circuitflow/internal/domain"
	"circuitflow/internal/service"
	"circuitflow/internal/storage"
)

type fixture struct {
	srv     *Server
	db      *storage.DB
	emitter *service.MockEmitter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	dir := t.TempDir()
	db, err := storage.New(filepath.Join(dir, "test.db"), dir)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	em := &service.MockEmitter{}
	canvasSvc := service.NewCanvasService(em)
	exec := service.NewExecutionService(canvasSvc.BlockCount, 5*time.Millisecond, 10, em, nil)
	chatSvc := service.NewChatService(ctx, service.ChatOptions{
		Store:    storage.NewChatStore(db),
		Canvas:   canvasSvc,
		Emitter:  em,
		MinDelay: 5 * time.Millisecond,
		MaxDelay: 10 * time.Millisecond,
	})
	workflows := service.NewWorkflowService(service.WorkflowOptions{
		Store:    storage.NewWorkflowStore(db),
		Undo:     storage.NewUndoStore(db),
		Settings: service.NewSettingsService(db),
		Canvas:   canvasSvc,
		Emitter:  em,
	})
	if err := workflows.Init(ctx); err != nil {
		t.Fatalf("init workflows: %v", err)
	}

	srv := New(ctx, Deps{
		Canvas:     canvasSvc,
		Execution:  exec,
		Chat:       chatSvc,
		Templates:  service.NewTemplateService("", canvasSvc, em, nil),
		Workflows:  workflows,
		ApprovalDB: db.Conn(),
	})
	srv.approval.timeout = 2 * time.Second
	srv.approval.poll = 5 * time.Millisecond

	t.Cleanup(func() {
		exec.Close()
		chatSvc.Close()
		cancel()
		db.Close()
	})
	return &fixture{srv: srv, db: db, emitter: em}
}

func call(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{Params: mcp.CallToolParams{Arguments: args}}
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", res.Content[0])
	}
	return tc.Text
}

func decode[T any](t *testing.T, res *mcp.CallToolResult) T {
	t.Helper()
	var v T
	if err := json.Unmarshal([]byte(resultText(t, res)), &v); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	return v
}

func (f *fixture) place(t *testing.T, bt domain.BlockType, x, y float64) domain.Block {
	t.Helper()
	res, err := f.srv.handlePlaceBlock(context.Background(), call(map[string]any{"type": string(bt), "x": x, "y": y}))
	if err != nil {
		t.Fatalf("place_block: %v", err)
	}
	return decode[domain.Block](t, res)
}

// ─────────────────────────────────────────────────────────────
// Canvas tools
// ─────────────────────────────────────────────────────────────

func TestPlaceBlock_SnapsToGrid(t *testing.T) {
	f := newFixture(t)
	b := f.place(t, domain.BlockTypeMicrochip, 95, 130)

	if b.X != 80 || b.Y != 120 {
		t.Errorf("expected (80, 120), got (%d, %d)", b.X, b.Y)
	}
	if b.Width != 80 || b.Height != 80 {
		t.Errorf("expected 80x80, got %dx%d", b.Width, b.Height)
	}
	if !strings.HasPrefix(b.ID, "microchip-") {
		t.Errorf("unexpected id %q", b.ID)
	}
	if f.srv.canvas.State().Selected != "" {
		t.Error("selection should be cleared after placing")
	}
}

func TestPlaceBlock_AutoLayout(t *testing.T) {
	f := newFixture(t)
	first := f.place(t, domain.BlockTypePowerSource, 0, 0)

	res, err := f.srv.handlePlaceBlock(context.Background(), call(map[string]any{"type": "display"}))
	if err != nil {
		t.Fatal(err)
	}
	second := decode[domain.Block](t, res)
	if second.X == first.X && second.Y == first.Y {
		t.Fatal("auto-placed block landed on top of the existing one")
	}
	if blockRect(first).intersects(blockRect(second)) {
		t.Error("auto-placed block overlaps")
	}
}

func TestPlaceBlock_UnknownType(t *testing.T) {
	f := newFixture(t)
	if _, err := f.srv.handlePlaceBlock(context.Background(), call(map[string]any{"type": "toaster"})); err == nil {
		t.Fatal("expected error for unknown type")
	}
	if f.srv.canvas.BlockCount() != 0 {
		t.Error("canvas should be unchanged")
	}
}

func TestConnectAndGetCanvas(t *testing.T) {
	f := newFixture(t)
	a := f.place(t, domain.BlockTypePowerSource, 40, 40)
	b := f.place(t, domain.BlockTypeDisplay, 240, 40)

	res, err := f.srv.handleConnectBlocks(context.Background(), call(map[string]any{"fromBlockId": a.ID, "toBlockId": b.ID}))
	if err != nil {
		t.Fatal(err)
	}
	conn := decode[domain.Connection](t, res)
	if conn.FromPort != domain.PortRight || conn.ToPort != domain.PortLeft {
		t.Errorf("unexpected ports %s -> %s", conn.FromPort, conn.ToPort)
	}

	res, err = f.srv.handleGetCanvas(context.Background(), call(nil))
	if err != nil {
		t.Fatal(err)
	}
	view := decode[canvasView](t, res)
	if view.Status.BlockCount != 2 || view.Status.ConnectionCount != 1 {
		t.Errorf("unexpected status %+v", view.Status)
	}
	if len(view.Paths) != 1 {
		t.Fatalf("expected 1 path, got %d", len(view.Paths))
	}

	if _, err := f.srv.handleConnectBlocks(context.Background(), call(map[string]any{"fromBlockId": a.ID, "toBlockId": "nope"})); err == nil {
		t.Error("expected error for missing target")
	}
}

func TestMoveBlock(t *testing.T) {
	f := newFixture(t)
	b := f.place(t, domain.BlockTypeAntenna, 0, 0)

	res, err := f.srv.handleMoveBlock(context.Background(), call(map[string]any{"blockId": b.ID, "x": 399.0, "y": 41.0}))
	if err != nil {
		t.Fatal(err)
	}
	moved := decode[domain.Block](t, res)
	if moved.X != 360 || moved.Y != 40 {
		t.Errorf("expected (360, 40), got (%d, %d)", moved.X, moved.Y)
	}
}

func TestMoveBlock_RequiresBothCoordinates(t *testing.T) {
	f := newFixture(t)
	b := f.place(t, domain.BlockTypeAntenna, 120, 120)

	for _, args := range []map[string]any{
		{"blockId": b.ID, "x": 40.0},
		{"blockId": b.ID, "y": 40.0},
		{"blockId": b.ID},
	} {
		if _, err := f.srv.handleMoveBlock(context.Background(), call(args)); err == nil {
			t.Errorf("expected error for %v", args)
		}
	}
	got, _ := f.srv.canvas.State().Block(b.ID)
	if got.X != 120 || got.Y != 120 {
		t.Errorf("block moved to (%d, %d)", got.X, got.Y)
	}
}

func TestPlaceBlock_KeepsPaletteSelection(t *testing.T) {
	f := newFixture(t)
	f.srv.canvas.Dispatch(context.Background(), canvas.Select{Type: domain.BlockTypeScheduler})

	b := f.place(t, domain.BlockTypeDisplay, 0, 0)
	if b.Type != domain.BlockTypeDisplay {
		t.Errorf("expected display, got %q", b.Type)
	}
	if got := f.srv.canvas.State().Selected; got != domain.BlockTypeScheduler {
		t.Errorf("expected scheduler still selected, got %q", got)
	}
}

func TestPlaceBlock_ConcurrentCallsReportOwnBlock(t *testing.T) {
	f := newFixture(t)
	types := []domain.BlockType{
		domain.BlockTypeAntenna, domain.BlockTypeDisplay, domain.BlockTypeScheduler,
		domain.BlockTypeTransmitter, domain.BlockTypeReceiver, domain.BlockTypeMicrochip,
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(types))
	got := make([]domain.Block, len(types))
	for i, bt := range types {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.srv.handlePlaceBlock(context.Background(), call(map[string]any{"type": string(bt), "x": float64(i * 120), "y": 0.0}))
			if err != nil {
				errs <- err
				return
			}
			var b domain.Block
			if err := json.Unmarshal([]byte(res.Content[0].(mcp.TextContent).Text), &b); err != nil {
				errs <- err
				return
			}
			got[i] = b
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("place_block: %v", err)
	}

	for i, bt := range types {
		if got[i].Type != bt || got[i].X != i*120 {
			t.Errorf("call %d: expected %s at x=%d, got %+v", i, bt, i*120, got[i])
		}
	}
	if n := f.srv.canvas.BlockCount(); n != len(types) {
		t.Errorf("expected %d blocks, got %d", len(types), n)
	}
}

func TestArrangeBlocks(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		f.place(t, domain.BlockTypeCapacitor, 0, 0)
	}
	if _, err := f.srv.handleArrangeBlocks(context.Background(), call(nil)); err != nil {
		t.Fatal(err)
	}
	blocks := f.srv.canvas.State().Blocks
	for i := range blocks {
		for j := i + 1; j < len(blocks); j++ {
			if blockRect(blocks[i]).intersects(blockRect(blocks[j])) {
				t.Errorf("blocks %d and %d still overlap", i, j)
			}
		}
	}
}

// ─────────────────────────────────────────────────────────────
// Destructive tools and approvals
// ─────────────────────────────────────────────────────────────

// waitApproval plays the desktop side: it polls mcp_approvals for the
// request a tool call is blocked on.
func (f *fixture) waitApproval(t *testing.T) PendingAction {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		pending, err := ListPendingApprovals(f.db.Conn())
		if err != nil {
			t.Fatal(err)
		}
		if len(pending) > 0 {
			return pending[len(pending)-1]
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("no approval requested")
	return PendingAction{}
}

func TestDeleteBlock_Approved(t *testing.T) {
	f := newFixture(t)
	a := f.place(t, domain.BlockTypePowerSource, 0, 0)
	b := f.place(t, domain.BlockTypeDisplay, 200, 0)
	f.srv.canvas.Dispatch(context.Background(), canvas.Connect{From: a.ID, To: b.ID})

	done := make(chan error, 1)
	go func() {
		_, err := f.srv.handleDeleteBlock(context.Background(), call(map[string]any{"blockId": a.ID}))
		done <- err
	}()

	p := f.waitApproval(t)
	if p.Tool != "delete_block" || !strings.Contains(p.Metadata, a.ID) {
		t.Errorf("unexpected pending action %+v", p)
	}
	if err := ResolveApproval(f.db.Conn(), p.ID, true); err != nil {
		t.Fatal(err)
	}

	if err := <-done; err != nil {
		t.Fatalf("delete_block: %v", err)
	}
	st := f.srv.canvas.State()
	if len(st.Blocks) != 1 || len(st.Connections) != 0 {
		t.Errorf("expected 1 block and 0 connections, got %d and %d", len(st.Blocks), len(st.Connections))
	}
	if left, _ := ListPendingApprovals(f.db.Conn()); len(left) != 0 {
		t.Errorf("approval row not cleaned up: %+v", left)
	}
}

func TestClearCanvas_Rejected(t *testing.T) {
	f := newFixture(t)
	f.place(t, domain.BlockTypePowerSource, 0, 0)

	done := make(chan error, 1)
	go func() {
		_, err := f.srv.handleClearCanvas(context.Background(), call(nil))
		done <- err
	}()
	if err := ResolveApproval(f.db.Conn(), f.waitApproval(t).ID, false); err != nil {
		t.Fatal(err)
	}

	if err := <-done; !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
	if f.srv.canvas.BlockCount() != 1 {
		t.Error("canvas should be untouched after rejection")
	}
}

func TestResolveApproval_OnlyPending(t *testing.T) {
	f := newFixture(t)
	if err := ResolveApproval(f.db.Conn(), "missing", true); err == nil {
		t.Error("expected error for an unknown approval")
	}
}

func TestApproval_Timeout(t *testing.T) {
	f := newFixture(t)
	f.srv.approval.timeout = 20 * time.Millisecond

	err := f.srv.approval.Request(context.Background(), "clear_canvas", "test", "")
	if err == nil || !strings.Contains(err.Error(), "timed out") {
		t.Fatalf("expected timeout, got %v", err)
	}
	if left, _ := ListPendingApprovals(f.db.Conn()); len(left) != 0 {
		t.Errorf("expected timed out request removed, got %+v", left)
	}
}

func TestApproval_NoDatabase(t *testing.T) {
	q := NewApprovalQueue(context.Background(), nil)
	if err := q.Request(context.Background(), "delete_block", "test", ""); !errors.Is(err, ErrNoApprovals) {
		t.Fatalf("expected ErrNoApprovals, got %v", err)
	}
}

// ─────────────────────────────────────────────────────────────
// Workflow tools
// ─────────────────────────────────────────────────────────────

func TestRunWorkflow(t *testing.T) {
	f := newFixture(t)
	res, err := f.srv.handleRunWorkflow(context.Background(), call(nil))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(resultText(t, res), domain.StatusNoComponents) {
		t.Errorf("expected empty-canvas notice, got %q", resultText(t, res))
	}

	f.place(t, domain.BlockTypePowerSource, 0, 0)
	if _, err := f.srv.handleRunWorkflow(context.Background(), call(nil)); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for len(f.emitter.Named(service.EventExecutionFinished)) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("run never finished")
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestSendChat_WaitsForReply(t *testing.T) {
	f := newFixture(t)
	res, err := f.srv.handleSendChat(context.Background(), call(map[string]any{"text": "send an email when done"}))
	if err != nil {
		t.Fatal(err)
	}
	if resultText(t, res) == "" {
		t.Error("expected a reply")
	}
	if _, err := f.srv.handleSendChat(context.Background(), call(map[string]any{"text": "   "})); err == nil {
		t.Error("expected error for blank text")
	}
}

func TestTemplates(t *testing.T) {
	f := newFixture(t)
	res, err := f.srv.handleListTemplates(context.Background(), call(nil))
	if err != nil {
		t.Fatal(err)
	}
	list := decode[[]templateSummary](t, res)
	if len(list) < 4 {
		t.Fatalf("expected built-in templates, got %d", len(list))
	}

	if _, err := f.srv.handleLoadTemplate(context.Background(), call(map[string]any{"templateId": list[0].ID})); err != nil {
		t.Fatal(err)
	}
	if got := f.srv.canvas.BlockCount(); got != list[0].Blocks {
		t.Errorf("expected %d blocks after load, got %d", list[0].Blocks, got)
	}
	if _, err := f.srv.handleLoadTemplate(context.Background(), call(map[string]any{"templateId": "missing"})); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveAndListWorkflows(t *testing.T) {
	f := newFixture(t)
	f.place(t, domain.BlockTypeScheduler, 0, 0)

	if _, err := f.srv.handleSaveWorkflow(context.Background(), call(map[string]any{"name": "Nightly"})); err != nil {
		t.Fatal(err)
	}
	res, err := f.srv.handleListWorkflows(context.Background(), call(nil))
	if err != nil {
		t.Fatal(err)
	}
	list := decode[[]domain.WorkflowSummary](t, res)
	if len(list) != 1 || list[0].Name != "Nightly" || list[0].BlockCount != 1 {
		t.Errorf("unexpected list %+v", list)
	}
}

// ─────────────────────────────────────────────────────────────
// Resources
// ─────────────────────────────────────────────────────────────

func TestTemplateIDFromURI(t *testing.T) {
	tests := []struct {
		uri, want string
	}{
		{"circuitflow://template/email-automation", "email-automation"},
		{"circuitflow://template/a/b", ""},
		{"circuitflow://canvas", ""},
	}
	for _, tt := range tests {
		if got := templateIDFromURI(tt.uri); got != tt.want {
			t.Errorf("templateIDFromURI(%q) = %q, want %q", tt.uri, got, tt.want)
		}
	}
}

func TestTemplateResource(t *testing.T) {
	f := newFixture(t)
	req := mcp.ReadResourceRequest{}
	req.Params.URI = "circuitflow://template/data-pipeline"
	contents, err := f.srv.handleTemplateResource(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	text := contents[0].(mcp.TextResourceContents).Text
	if !strings.Contains(text, `"data-pipeline"`) {
		t.Errorf("unexpected resource body: %s", text)
	}
}
