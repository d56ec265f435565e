package app

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"circuitflow/internal/config"
	mcpserver "circuitflow/internal/mcp"
	"circuitflow/internal/secret"
)

// ServeMCP runs the app as a standalone MCP server on stdin/stdout with no GUI.
// Every committed edit is saved immediately so a running desktop app picks
// it up, and destructive tools are approved through the shared database.
func ServeMCP() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	// stdout carries the MCP protocol; logs go to stderr.
	logger := NewLogger(cfg, os.Stderr, true)

	svc, err := Build(ctx, cfg, BuildOptions{
		Logger:       logger,
		Secrets:      secret.NewKeychainStore(),
		SaveOnCommit: true,
	})
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer svc.Close(context.Background())

	mcpSrv := mcpserver.New(ctx, mcpserver.Deps{
		Logger:     logger,
		Canvas:     svc.Canvas,
		Execution:  svc.Execution,
		Chat:       svc.Chat,
		Templates:  svc.Templates,
		Workflows:  svc.Workflows,
		Status:     svc.Status,
		ApprovalDB: svc.DB.Conn(), // Enable SQLite-based approval IPC
	})

	if err := mcpSrv.ServeStdio(); err != nil {
		logger.Error("MCP server stopped", "err", err)
		os.Exit(1)
	}
}
