package app

import (
	"context"
	"os"
	"time"

	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"circuitflow/internal/config"
	"circuitflow/internal/secret"
	"circuitflow/internal/service"
	"circuitflow/internal/storage"
)

// wailsEmitter forwards service events to the frontend. Events always go
// out on the Wails context, whatever context the service passes.
type wailsEmitter struct {
	ctx context.Context
}

func (e wailsEmitter) Emit(_ context.Context, event string, data any) {
	wailsRuntime.EventsEmit(e.ctx, event, data)
}

// App is the main Wails application struct.
// All exported methods are available as Wails bindings.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	svc     *Services
	watcher *workflowWatcher
}

// New creates a new App.
func New() *App {
	return &App{}
}

// Startup is called when the app starts.
func (a *App) Startup(ctx context.Context) {
	cfg, err := config.Load()
	if err != nil {
		wailsRuntime.LogFatalf(ctx, "Failed to load config: %v", err)
		return
	}

	a.ctx, a.cancel = context.WithCancel(ctx)
	logger := NewLogger(cfg, os.Stderr, false)

	svc, err := Build(a.ctx, cfg, BuildOptions{
		Emitter: wailsEmitter{ctx: ctx},
		Logger:  logger,
		Secrets: secret.NewKeychainStore(),
	})
	if err != nil {
		wailsRuntime.LogFatalf(ctx, "Failed to start: %v", err)
		return
	}
	a.svc = svc
	svc.StartBackground(a.ctx)

	a.watcher = newWorkflowWatcher(a.ctx, svc, wailsEmitter{ctx: ctx})
	a.watcher.Start()

	wailsRuntime.LogInfof(ctx, "CircuitFlow started, workflow %s", svc.Workflows.CurrentID())
}

// Shutdown is called when the app is closing. Unsaved edits are saved and
// every timer is stopped before the database closes.
func (a *App) Shutdown(ctx context.Context) {
	if a.svc == nil {
		return
	}
	if a.watcher != nil {
		a.watcher.Stop()
	}
	if w, h := wailsRuntime.WindowGetSize(ctx); w > 0 && h > 0 {
		if err := a.svc.Settings.SaveWindowSize(w, h); err != nil {
			wailsRuntime.LogErrorf(ctx, "Failed to save window size: %v", err)
		}
	}
	if a.svc.Workflows.Dirty() {
		if err := a.svc.Workflows.Save(ctx); err != nil {
			wailsRuntime.LogErrorf(ctx, "Failed to save workflow: %v", err)
		}
	}
	a.cancel()

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	a.svc.Close(waitCtx)
}

// InitialWindowSize reads the last saved window size before the window is
// created. Any failure falls back to the default size.
func InitialWindowSize() service.WindowSize {
	cfg, err := config.Load()
	if err != nil {
		return service.NewSettingsService(nil).LoadWindowSize()
	}
	db, err := storage.New(cfg.DBPath(), cfg.DataDir)
	if err != nil {
		return service.NewSettingsService(nil).LoadWindowSize()
	}
	defer db.Close()
	return service.NewSettingsService(db).LoadWindowSize()
}
