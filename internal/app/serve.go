package app

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"circuitflow/internal/config"
	"circuitflow/internal/secret"
	"circuitflow/internal/transport/ws"
)

// Serve runs the backend headless behind the websocket server until
// interrupted. addr overrides server.addr from the config when set.
func Serve(addr string) {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	logger := NewLogger(cfg, os.Stderr, true)

	if err := runServer(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func runServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	hub := ws.NewHub(logger)
	svc, err := Build(ctx, cfg, BuildOptions{
		Emitter: hub,
		Logger:  logger,
		Secrets: secret.NewKeychainStore(),
	})
	if err != nil {
		return err
	}
	defer svc.Close(context.Background())
	svc.StartBackground(ctx)

	srv := ws.NewServer(ctx, ws.Options{
		Hub:       hub,
		Canvas:    svc.Canvas,
		Execution: svc.Execution,
		Chat:      svc.Chat,
		Status:    svc.Status,
		Workflows: svc.Workflows,
		Logger:    logger,
	})
	httpSrv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", "addr", cfg.Server.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if svc.Workflows.Dirty() {
			if err := svc.Workflows.Save(shutdownCtx); err != nil {
				logger.Warn("save on shutdown", "err", err)
			}
		}
		return httpSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
