package service

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"circuitflow/internal/canvas"
	"circuitflow/internal/domain"
	"circuitflow/internal/schema"
)

// ─────────────────────────────────────────────────────────────
// Template Service — built-in and user templates
// ─────────────────────────────────────────────────────────────

//go:embed templates/builtin.yaml
var builtinYAML []byte

var builtinTemplates = func() []domain.Template {
	var ts []domain.Template
	if err := yaml.Unmarshal(builtinYAML, &ts); err != nil {
		panic(fmt.Sprintf("builtin templates: %v", err))
	}
	for i := range ts {
		ts[i].Builtin = true
	}
	return ts
}()

const templateDebounce = 300 * time.Millisecond

// TemplateService lists templates and loads them onto the canvas. User
// templates are *.yaml, *.yml or *.json files in dir; invalid files are
// skipped with a warning.
type TemplateService struct {
	mu      sync.RWMutex
	dir     string
	custom  []domain.Template
	canvas  Dispatcher
	emitter EventEmitter
	logger  *slog.Logger

	watcher     *fsnotify.Watcher
	watchCancel context.CancelFunc
	watchDone   chan struct{}
}

// NewTemplateService creates a TemplateService and performs the first load.
func NewTemplateService(dir string, canvas Dispatcher, emitter EventEmitter, logger *slog.Logger) *TemplateService {
	if emitter == nil {
		emitter = NopEmitter{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &TemplateService{dir: dir, canvas: canvas, emitter: emitter, logger: logger}
	if err := s.Reload(); err != nil {
		logger.Warn("load templates", "dir", dir, "err", err)
	}
	return s
}

// List returns built-in templates followed by user templates sorted by id.
func (s *TemplateService) List() []domain.Template {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Template, 0, len(builtinTemplates)+len(s.custom))
	out = append(out, builtinTemplates...)
	out = append(out, s.custom...)
	return out
}

// Get returns a template by id. User templates cannot shadow built-ins.
func (s *TemplateService) Get(id string) (domain.Template, error) {
	for _, t := range s.List() {
		if t.ID == id {
			return t, nil
		}
	}
	return domain.Template{}, fmt.Errorf("template %s: %w", id, domain.ErrNotFound)
}

// Apply replaces the canvas with the template's blocks and connections.
func (s *TemplateService) Apply(ctx context.Context, id string) (canvas.State, error) {
	t, err := s.Get(id)
	if err != nil {
		return canvas.State{}, err
	}
	if s.canvas == nil {
		return canvas.State{}, errors.New("template service has no canvas")
	}
	return s.canvas.Dispatch(ctx, canvas.Load{Blocks: t.Blocks, Connections: t.Connections}), nil
}

// Reload rereads the templates directory. A missing directory yields no
// user templates.
func (s *TemplateService) Reload() error {
	if s.dir == "" {
		return nil
	}
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		s.setCustom(nil)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read templates dir: %w", err)
	}

	var loaded []domain.Template
	seen := make(map[string]bool)
	for _, t := range builtinTemplates {
		seen[t.ID] = true
	}
	for _, e := range entries {
		if e.IsDir() || !isTemplateFile(e.Name()) {
			continue
		}
		path := filepath.Join(s.dir, e.Name())
		t, err := LoadTemplateFile(path)
		if err != nil {
			s.logger.Warn("skip template", "file", e.Name(), "err", err)
			continue
		}
		if seen[t.ID] {
			s.logger.Warn("skip template", "file", e.Name(), "err", "duplicate id "+t.ID)
			continue
		}
		seen[t.ID] = true
		loaded = append(loaded, t)
	}
	sort.Slice(loaded, func(i, j int) bool { return loaded[i].ID < loaded[j].ID })
	s.setCustom(loaded)
	return nil
}

func (s *TemplateService) setCustom(ts []domain.Template) {
	s.mu.Lock()
	s.custom = ts
	s.mu.Unlock()
}

func isTemplateFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

// LoadTemplateFile decodes and validates one template file. The id defaults
// to the file name without extension.
func LoadTemplateFile(path string) (domain.Template, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.Template{}, err
	}
	var t domain.Template
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(raw, &t)
	} else {
		err = yaml.Unmarshal(raw, &t)
	}
	if err != nil {
		return domain.Template{}, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	t.Builtin = false
	if t.ID == "" {
		t.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	normalizeTemplate(&t)
	if err := schema.ValidateValue(t); err != nil {
		return domain.Template{}, err
	}
	return t, nil
}

// normalizeTemplate fills the sizes and ports a hand-written file may omit.
func normalizeTemplate(t *domain.Template) {
	for i := range t.Blocks {
		b := &t.Blocks[i]
		if b.Width == 0 {
			b.Width = domain.BlockWidth
		}
		if b.Height == 0 {
			b.Height = domain.BlockHeight
		}
	}
	for i := range t.Connections {
		c := &t.Connections[i]
		if c.FromPort == "" {
			c.FromPort = domain.PortRight
		}
		if c.ToPort == "" {
			c.ToPort = domain.PortLeft
		}
	}
	if t.Blocks == nil {
		t.Blocks = []domain.Block{}
	}
	if t.Connections == nil {
		t.Connections = []domain.Connection{}
	}
}

// ── Watcher ────────────────────────────────────────────────

// Watch reloads the templates directory whenever a file in it changes and
// emits templates:changed. Bursts of events are debounced. The watcher stops
// when ctx is cancelled or Close is called.
func (s *TemplateService) Watch(ctx context.Context) error {
	s.stopWatcher()
	if s.dir == "" {
		return nil
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create templates dir: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("template watcher: %w", err)
	}
	if err := watcher.Add(s.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", s.dir, err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.mu.Lock()
	s.watcher = watcher
	s.watchCancel = cancel
	s.watchDone = done
	s.mu.Unlock()

	go func() {
		defer close(done)
		var timer *time.Timer
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()
		for {
			select {
			case <-watchCtx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !isTemplateFile(event.Name) {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(templateDebounce, func() {
					if watchCtx.Err() != nil {
						return
					}
					if err := s.Reload(); err != nil {
						s.logger.Warn("reload templates", "err", err)
						return
					}
					s.logger.Info("templates reloaded", "dir", s.dir)
					s.emitter.Emit(watchCtx, EventTemplatesChanged, s.List())
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn("template watcher", "err", err)
			}
		}
	}()

	s.logger.Info("watching templates", "dir", s.dir)
	return nil
}

func (s *TemplateService) stopWatcher() {
	s.mu.Lock()
	cancel, watcher, done := s.watchCancel, s.watcher, s.watchDone
	s.watchCancel, s.watcher, s.watchDone = nil, nil, nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if watcher != nil {
		watcher.Close()
	}
	if done != nil {
		<-done
	}
}

// Close stops the directory watcher.
func (s *TemplateService) Close() {
	s.stopWatcher()
}
