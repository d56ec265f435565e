package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"circuitflow/internal/canvas"
	"circuitflow/internal/domain"
	"circuitflow/internal/storage"
)

// ─────────────────────────────────────────────────────────────
// Workflow Service — saved canvases, undo history, autosave
// ─────────────────────────────────────────────────────────────

const defaultWorkflowName = "Untitled Workflow"

// Publisher copies a saved workflow to an external archive.
type Publisher interface {
	Put(ctx context.Context, wf *domain.Workflow) error
}

// WorkflowOptions configures a WorkflowService.
type WorkflowOptions struct {
	Store    *storage.WorkflowStore
	Undo     *storage.UndoStore
	Settings *SettingsService
	Canvas   *CanvasService
	Archive  Publisher
	Emitter  EventEmitter
	Logger   *slog.Logger
	// SaveOnCommit writes every committed canvas change straight to the
	// store. The standalone MCP server uses it so the desktop app sees edits.
	SaveOnCommit bool
}

// WorkflowService binds the live canvas to a stored workflow.
type WorkflowService struct {
	mu        sync.Mutex
	currentID string
	name      string
	desc      string
	savedRev  uint64

	store        *storage.WorkflowStore
	undo         *storage.UndoStore
	settings     *SettingsService
	canvas       *CanvasService
	archive      Publisher
	emitter      EventEmitter
	logger       *slog.Logger
	saveOnCommit bool

	guard     runningJobsGuard
	cronSched *cron.Cron
}

// NewWorkflowService creates the service and installs itself as the canvas
// recorder.
func NewWorkflowService(opts WorkflowOptions) *WorkflowService {
	s := &WorkflowService{
		store:        opts.Store,
		undo:         opts.Undo,
		settings:     opts.Settings,
		canvas:       opts.Canvas,
		archive:      opts.Archive,
		emitter:      opts.Emitter,
		logger:       opts.Logger,
		saveOnCommit: opts.SaveOnCommit,
	}
	if s.emitter == nil {
		s.emitter = NopEmitter{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.canvas.SetRecorder(s)
	return s
}

// snapshot is the undo history payload.
type snapshot struct {
	Blocks      []domain.Block      `json:"blocks"`
	Connections []domain.Connection `json:"connections"`
}

func encodeSnapshot(st canvas.State) string {
	raw, _ := json.Marshal(snapshot{Blocks: st.Blocks, Connections: st.Connections})
	return string(raw)
}

func decodeSnapshot(raw string) (canvas.State, error) {
	var snap snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return canvas.State{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return canvas.State{Blocks: snap.Blocks, Connections: snap.Connections}, nil
}

// Init opens the last used workflow, or creates an empty one.
func (s *WorkflowService) Init(ctx context.Context) error {
	if id := s.settings.CurrentWorkflowID(); id != "" {
		err := s.Open(ctx, id)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
	}
	_, err := s.New(ctx, "")
	return err
}

// CurrentID is the id of the open workflow.
func (s *WorkflowService) CurrentID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentID
}

// Current returns the open workflow with the live canvas contents.
func (s *WorkflowService) Current() *domain.Workflow {
	s.mu.Lock()
	id, name, desc := s.currentID, s.name, s.desc
	s.mu.Unlock()
	st := s.canvas.State()
	return &domain.Workflow{ID: id, Name: name, Description: desc, Blocks: st.Blocks, Connections: st.Connections}
}

// Dirty reports whether the canvas changed since the last save or load.
func (s *WorkflowService) Dirty() bool {
	rev := s.canvas.Revision()
	s.mu.Lock()
	defer s.mu.Unlock()
	return rev != s.savedRev
}

// List returns every saved workflow.
func (s *WorkflowService) List() ([]domain.WorkflowSummary, error) {
	return s.store.ListWorkflows()
}

// New creates an empty workflow and opens it.
func (s *WorkflowService) New(ctx context.Context, name string) (*domain.Workflow, error) {
	if strings.TrimSpace(name) == "" {
		name = defaultWorkflowName
	}
	wf := &domain.Workflow{
		ID:          uuid.NewString(),
		Name:        name,
		Blocks:      []domain.Block{},
		Connections: []domain.Connection{},
	}
	if err := s.store.CreateWorkflow(wf); err != nil {
		return nil, fmt.Errorf("create workflow: %w", err)
	}
	s.activate(ctx, wf)
	return wf, nil
}

// SaveAs stores the current canvas as a new workflow and opens it.
func (s *WorkflowService) SaveAs(ctx context.Context, name string) (*domain.Workflow, error) {
	if strings.TrimSpace(name) == "" {
		name = defaultWorkflowName
	}
	rev := s.canvas.Revision()
	st := s.canvas.State()
	wf := &domain.Workflow{ID: uuid.NewString(), Name: name, Blocks: st.Blocks, Connections: st.Connections}
	if err := s.store.CreateWorkflow(wf); err != nil {
		return nil, fmt.Errorf("create workflow: %w", err)
	}

	s.mu.Lock()
	s.currentID, s.name, s.desc, s.savedRev = wf.ID, wf.Name, "", rev
	s.mu.Unlock()
	s.rememberCurrent(wf.ID)
	s.ensureHistory(wf.ID, st)
	s.emitter.Emit(ctx, EventWorkflowSaved, summaryOf(wf))
	return wf, nil
}

// Open loads a stored workflow onto the canvas.
func (s *WorkflowService) Open(ctx context.Context, id string) error {
	wf, err := s.store.GetWorkflow(id)
	if err != nil {
		return err
	}
	s.activate(ctx, wf)
	return nil
}

func (s *WorkflowService) activate(ctx context.Context, wf *domain.Workflow) {
	st, rev := s.canvas.Restore(ctx, canvas.State{Blocks: wf.Blocks, Connections: wf.Connections})

	s.mu.Lock()
	s.currentID, s.name, s.desc, s.savedRev = wf.ID, wf.Name, wf.Description, rev
	s.mu.Unlock()

	s.rememberCurrent(wf.ID)
	s.ensureHistory(wf.ID, st)
	s.emitter.Emit(ctx, EventWorkflowLoaded, summaryOf(wf))
}

func (s *WorkflowService) rememberCurrent(id string) {
	if err := s.settings.SetCurrentWorkflowID(id); err != nil {
		s.logger.Warn("remember current workflow", "err", err)
	}
}

// ensureHistory gives a workflow a root undo node so the first edit can be
// undone back to the loaded state.
func (s *WorkflowService) ensureHistory(id string, st canvas.State) {
	if _, err := s.undo.Current(id); err == nil {
		return
	}
	if _, err := s.undo.PushNode(id, "open", encodeSnapshot(st)); err != nil {
		s.logger.Warn("seed undo history", "workflow", id, "err", err)
	}
}

// Save writes the canvas to the current workflow and publishes it to the
// archive when one is configured.
func (s *WorkflowService) Save(ctx context.Context) error {
	rev := s.canvas.Revision()
	wf := s.Current()
	if wf.ID == "" {
		return errors.New("no workflow open")
	}
	if err := s.store.UpdateWorkflow(wf); err != nil {
		return fmt.Errorf("save workflow: %w", err)
	}

	s.mu.Lock()
	if rev > s.savedRev {
		s.savedRev = rev
	}
	s.mu.Unlock()

	s.emitter.Emit(ctx, EventWorkflowSaved, summaryOf(wf))
	if s.archive != nil {
		if err := s.archive.Put(ctx, wf); err != nil {
			s.logger.Warn("archive workflow", "workflow", wf.ID, "err", err)
		}
	}
	return nil
}

// Rename changes a workflow's name.
func (s *WorkflowService) Rename(ctx context.Context, id, name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("name is required")
	}
	if id == s.CurrentID() {
		s.mu.Lock()
		s.name = name
		s.mu.Unlock()
		return s.Save(ctx)
	}
	wf, err := s.store.GetWorkflow(id)
	if err != nil {
		return err
	}
	wf.Name = name
	return s.store.UpdateWorkflow(wf)
}

// Delete removes a workflow. Deleting the open workflow opens the most
// recently updated remaining one, or a new empty workflow.
func (s *WorkflowService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteWorkflow(id); err != nil {
		return fmt.Errorf("delete workflow: %w", err)
	}
	if id != s.CurrentID() {
		return nil
	}
	list, err := s.store.ListWorkflows()
	if err != nil {
		return err
	}
	if len(list) > 0 {
		return s.Open(ctx, list[0].ID)
	}
	_, err = s.New(ctx, "")
	return err
}

// ReloadFromStore replaces the canvas with the stored copy of the open
// workflow unless there are unsaved local edits or the stored copy matches
// the canvas. It reports whether the canvas was replaced.
func (s *WorkflowService) ReloadFromStore(ctx context.Context) (bool, error) {
	if s.Dirty() {
		return false, nil
	}
	id := s.CurrentID()
	wf, err := s.store.GetWorkflow(id)
	if err != nil {
		return false, err
	}
	stored := canvas.State{Blocks: wf.Blocks, Connections: wf.Connections}
	if canvas.SameContent(s.canvas.State(), canvas.Reduce(canvas.New(), canvas.Load{Blocks: wf.Blocks, Connections: wf.Connections})) {
		s.mu.Lock()
		s.name, s.desc = wf.Name, wf.Description
		s.mu.Unlock()
		return false, nil
	}
	st, rev := s.canvas.Restore(ctx, stored)
	s.mu.Lock()
	s.name, s.desc, s.savedRev = wf.Name, wf.Description, rev
	s.mu.Unlock()
	s.emitter.Emit(ctx, EventCanvasExternalChange, st)
	return true, nil
}

// Fingerprint summarizes the stored copy of the open workflow.
func (s *WorkflowService) Fingerprint() (string, error) {
	return s.store.Fingerprint(s.CurrentID())
}

// ── Undo history ───────────────────────────────────────────

// Record implements Recorder: every committed canvas change becomes an undo
// node, and is saved immediately when SaveOnCommit is set.
func (s *WorkflowService) Record(ctx context.Context, label string, st canvas.State) {
	id := s.CurrentID()
	if id == "" {
		return
	}
	if label == "" {
		label = "edit"
	}
	if _, err := s.undo.PushNode(id, label, encodeSnapshot(st)); err != nil {
		s.logger.Warn("record undo", "workflow", id, "err", err)
	}
	if s.saveOnCommit {
		if err := s.Save(ctx); err != nil {
			s.logger.Warn("save on commit", "workflow", id, "err", err)
		}
	}
}

// History returns the undo tree of the open workflow.
func (s *WorkflowService) History() (*storage.UndoTree, error) {
	return s.undo.LoadTree(s.CurrentID())
}

// Undo steps back to the parent snapshot. It reports false at the root.
func (s *WorkflowService) Undo(ctx context.Context) (bool, error) {
	id := s.CurrentID()
	cur, err := s.undo.Current(id)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if cur.ParentID == nil {
		return false, nil
	}
	return true, s.GoTo(ctx, *cur.ParentID)
}

// Redo steps forward to the most recent child snapshot. It reports false at
// a leaf.
func (s *WorkflowService) Redo(ctx context.Context) (bool, error) {
	id := s.CurrentID()
	cur, err := s.undo.Current(id)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	next, err := s.undo.LatestChild(cur.ID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, s.GoTo(ctx, next.ID)
}

// GoTo restores the snapshot of any node in the open workflow's history.
func (s *WorkflowService) GoTo(ctx context.Context, nodeID string) error {
	id := s.CurrentID()
	n, err := s.undo.GetNode(nodeID)
	if err != nil {
		return err
	}
	if n.WorkflowID != id {
		return fmt.Errorf("undo node %s: %w", nodeID, domain.ErrNotFound)
	}
	st, err := decodeSnapshot(n.SnapshotJSON)
	if err != nil {
		return err
	}
	if err := s.undo.GoTo(id, nodeID); err != nil {
		return fmt.Errorf("move undo pointer: %w", err)
	}
	s.canvas.Restore(ctx, st)
	return nil
}

// ── Autosave ───────────────────────────────────────────────

// StartAutosave saves the open workflow on schedule whenever it is dirty.
func (s *WorkflowService) StartAutosave(ctx context.Context, schedule string) error {
	s.StopAutosave()
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() { s.autosave(ctx) }); err != nil {
		return fmt.Errorf("autosave schedule %q: %w", schedule, err)
	}
	c.Start()
	s.mu.Lock()
	s.cronSched = c
	s.mu.Unlock()
	s.logger.Info("autosave scheduled", "schedule", schedule)
	return nil
}

func (s *WorkflowService) autosave(ctx context.Context) {
	if ctx.Err() != nil || !s.Dirty() {
		return
	}
	job := "autosave:" + s.CurrentID()
	if !s.guard.TryLock(job) {
		return
	}
	defer s.guard.Unlock(job)
	if err := s.Save(ctx); err != nil {
		s.logger.Warn("autosave", "err", err)
		return
	}
	s.logger.Debug("autosaved", "workflow", s.CurrentID())
}

// StopAutosave stops the scheduler and waits for a running save.
func (s *WorkflowService) StopAutosave() {
	s.mu.Lock()
	c := s.cronSched
	s.cronSched = nil
	s.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}

// WaitRunning blocks until in-flight autosaves finish or ctx is cancelled.
func (s *WorkflowService) WaitRunning(ctx context.Context) {
	s.guard.WaitAll(ctx)
}

// ── Export / import ────────────────────────────────────────

// Export writes the open workflow to a .cflow file.
func (s *WorkflowService) Export(path string) error {
	wf := s.Current()
	if !strings.HasSuffix(path, storage.DocumentExt) {
		path += storage.DocumentExt
	}
	if err := storage.ExportFile(path, wf); err != nil {
		return fmt.Errorf("export workflow: %w", err)
	}
	s.logger.Info("workflow exported", "path", path)
	return nil
}

// Import reads a .cflow file into a new workflow and opens it.
func (s *WorkflowService) Import(ctx context.Context, path string) (*domain.Workflow, error) {
	doc, err := storage.ImportFile(path)
	if err != nil {
		return nil, fmt.Errorf("import workflow: %w", err)
	}
	// Normalize through the reducer so imported ids and ports are consistent.
	st := canvas.Reduce(canvas.New(), canvas.Load{Blocks: doc.Blocks, Connections: doc.Connections})
	wf := &domain.Workflow{
		ID:          uuid.NewString(),
		Name:        doc.Name,
		Description: doc.Description,
		Blocks:      st.Blocks,
		Connections: st.Connections,
	}
	if err := s.store.CreateWorkflow(wf); err != nil {
		return nil, fmt.Errorf("create workflow: %w", err)
	}
	s.activate(ctx, wf)
	return wf, nil
}

func summaryOf(wf *domain.Workflow) domain.WorkflowSummary {
	return domain.WorkflowSummary{
		ID:              wf.ID,
		Name:            wf.Name,
		BlockCount:      len(wf.Blocks),
		ConnectionCount: len(wf.Connections),
		UpdatedAt:       wf.UpdatedAt,
	}
}
