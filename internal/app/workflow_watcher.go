package app

import (
	"context"
	"sync"
	"time"

	mcpserver "circuitflow/internal/mcp"
	"circuitflow/internal/service"
)

const watchInterval = 2 * time.Second

// workflowWatcher polls the database for changes to the open workflow,
// detecting external modifications (e.g. from the standalone MCP process)
// and reloading the canvas so the frontend refreshes. It also surfaces
// approvals requested by that process.
type workflowWatcher struct {
	ctx      context.Context
	svc      *Services
	emitter  service.EventEmitter
	interval time.Duration

	mu          sync.Mutex
	workflowID  string
	fingerprint string
	stopCh      chan struct{}
	done        chan struct{}
	// Track emitted approval IDs to avoid re-emission
	emittedApprovals map[string]bool
}

func newWorkflowWatcher(ctx context.Context, svc *Services, emitter service.EventEmitter) *workflowWatcher {
	return &workflowWatcher{
		ctx:              ctx,
		svc:              svc,
		emitter:          emitter,
		interval:         watchInterval,
		emittedApprovals: map[string]bool{},
	}
}

// Start begins the polling loop. Should be called once on app startup.
func (w *workflowWatcher) Start() {
	w.stopCh = make(chan struct{})
	w.done = make(chan struct{})
	go w.pollLoop()
}

// Stop terminates the polling loop and waits for it to exit.
func (w *workflowWatcher) Stop() {
	if w.stopCh == nil {
		return
	}
	close(w.stopCh)
	<-w.done
	w.stopCh = nil
}

func (w *workflowWatcher) pollLoop() {
	defer close(w.done)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.check()
		case <-w.stopCh:
			return
		case <-w.ctx.Done():
			return
		}
	}
}

func (w *workflowWatcher) check() {
	w.checkWorkflow()
	w.checkApprovals()
}

// checkWorkflow reloads the canvas when the stored fingerprint (block count
// plus last update) moved since the previous poll of the same workflow.
func (w *workflowWatcher) checkWorkflow() {
	id := w.svc.Workflows.CurrentID()
	fp, err := w.svc.Workflows.Fingerprint()
	if err != nil {
		return
	}

	w.mu.Lock()
	changed := w.workflowID == id && w.fingerprint != "" && w.fingerprint != fp
	w.workflowID, w.fingerprint = id, fp
	w.mu.Unlock()

	if !changed {
		return
	}
	if _, err := w.svc.Workflows.ReloadFromStore(w.ctx); err != nil {
		w.svc.Logger.Warn("reload workflow", "workflow", id, "err", err)
	}
}

func (w *workflowWatcher) checkApprovals() {
	pending, err := mcpserver.ListPendingApprovals(w.svc.DB.Conn())
	if err != nil {
		return
	}

	live := make(map[string]bool, len(pending))
	for _, p := range pending {
		live[p.ID] = true
		w.mu.Lock()
		alreadySent := w.emittedApprovals[p.ID]
		w.emittedApprovals[p.ID] = true
		w.mu.Unlock()
		if !alreadySent {
			w.emitter.Emit(w.ctx, mcpserver.EventApprovalRequired, p)
		}
	}

	// Rows vanish once the standalone process has its answer or gives up.
	var gone []string
	w.mu.Lock()
	for id := range w.emittedApprovals {
		if !live[id] {
			delete(w.emittedApprovals, id)
			gone = append(gone, id)
		}
	}
	w.mu.Unlock()
	for _, id := range gone {
		w.emitter.Emit(w.ctx, mcpserver.EventApprovalDismissed, map[string]string{"id": id})
	}
}
