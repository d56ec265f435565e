package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"circuitflow/internal/archive"
	"circuitflow/internal/config"
	"circuitflow/internal/secret"
	"circuitflow/internal/service"
	"circuitflow/internal/storage"
)

// Services is the backend shared by the desktop app, the standalone MCP
// server and the websocket server.
type Services struct {
	Config    *config.Config
	DB        *storage.DB
	Canvas    *service.CanvasService
	Execution *service.ExecutionService
	Chat      *service.ChatService
	Templates *service.TemplateService
	Workflows *service.WorkflowService
	Settings  *service.SettingsService
	Status    *service.StatusService
	Archive   archive.Archive
	Logger    *slog.Logger
}

// BuildOptions tunes Build per entry point.
type BuildOptions struct {
	Emitter service.EventEmitter
	Logger  *slog.Logger
	Secrets secret.SecretStore
	// SaveOnCommit persists every committed canvas edit, so another process
	// watching the database sees it.
	SaveOnCommit bool
}

// Build opens storage, wires every service and opens the last workflow.
// Timers started later by the services are bound to ctx.
func Build(ctx context.Context, cfg *config.Config, opts BuildOptions) (*Services, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	emitter := opts.Emitter
	if emitter == nil {
		emitter = service.NopEmitter{}
	}

	db, err := storage.New(cfg.DBPath(), cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	arch, err := openArchive(ctx, cfg.Archive, opts.Secrets, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &Services{Config: cfg, DB: db, Archive: arch, Logger: logger}
	s.Canvas = service.NewCanvasService(emitter)
	s.Execution = service.NewExecutionService(s.Canvas.BlockCount, cfg.Execution.TickInterval, cfg.Execution.Step, emitter, logger)
	s.Chat = service.NewChatService(ctx, service.ChatOptions{
		Store:    storage.NewChatStore(db),
		Canvas:   s.Canvas,
		Emitter:  emitter,
		Logger:   logger,
		MinDelay: cfg.Chat.MinDelay,
		MaxDelay: cfg.Chat.MaxDelay,
	})
	s.Templates = service.NewTemplateService(cfg.Templates.Dir, s.Canvas, emitter, logger)
	s.Settings = service.NewSettingsService(db)
	wopts := service.WorkflowOptions{
		Store:        storage.NewWorkflowStore(db),
		Undo:         storage.NewUndoStore(db),
		Settings:     s.Settings,
		Canvas:       s.Canvas,
		Emitter:      emitter,
		Logger:       logger,
		SaveOnCommit: opts.SaveOnCommit,
	}
	if arch != nil {
		wopts.Archive = arch
	}
	s.Workflows = service.NewWorkflowService(wopts)
	s.Status = service.NewStatusService(s.Canvas, s.Execution)

	if err := s.Workflows.Init(ctx); err != nil {
		s.Close(ctx)
		return nil, fmt.Errorf("open workflow: %w", err)
	}
	return s, nil
}

// openArchive connects the optional external archive. A configured archive
// that cannot be reached is logged and skipped rather than blocking startup.
func openArchive(ctx context.Context, cfg config.ArchiveConfig, secrets secret.SecretStore, logger *slog.Logger) (archive.Archive, error) {
	if cfg.Driver == "" {
		return nil, nil
	}
	password, err := secret.Resolve(secrets, config.EnvArchivePassword, secret.ArchiveKey(cfg.Driver))
	if err != nil {
		logger.Warn("archive password not found", "driver", cfg.Driver, "err", err)
	}
	arch, err := archive.Open(cfg, password)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	if err := arch.Ping(ctx); err != nil {
		logger.Warn("archive unreachable, publishing disabled", "driver", cfg.Driver, "err", err)
		arch.Close(ctx)
		return nil, nil
	}
	logger.Info("archive connected", "driver", cfg.Driver)
	return arch, nil
}

// StartBackground starts autosave and the template directory watcher.
func (s *Services) StartBackground(ctx context.Context) {
	if !s.Config.Autosave.Disabled {
		if err := s.Workflows.StartAutosave(ctx, s.Config.Autosave.Schedule); err != nil {
			s.Logger.Warn("autosave disabled", "schedule", s.Config.Autosave.Schedule, "err", err)
		}
	}
	if err := s.Templates.Watch(ctx); err != nil {
		s.Logger.Warn("template watcher disabled", "dir", s.Config.Templates.Dir, "err", err)
	}
}

// Close stops every timer, waits for in-flight jobs and closes storage.
func (s *Services) Close(ctx context.Context) {
	s.Execution.Close()
	s.Chat.Close()
	s.Templates.Close()
	s.Workflows.StopAutosave()
	s.Workflows.WaitRunning(ctx)
	if s.Archive != nil {
		if err := s.Archive.Close(ctx); err != nil {
			s.Logger.Warn("close archive", "err", err)
		}
	}
	if err := s.DB.Close(); err != nil {
		s.Logger.Warn("close database", "err", err)
	}
}

// NewLogger builds the slog logger for cfg. Headless modes log JSON.
func NewLogger(cfg *config.Config, w io.Writer, json bool) *slog.Logger {
	hopts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if json {
		return slog.New(slog.NewJSONHandler(w, hopts))
	}
	return slog.New(slog.NewTextHandler(w, hopts))
}
