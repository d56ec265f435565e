package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"circuitflow/internal/domain"
)

const templateURIPrefix = "circuitflow://template/"

func (s *Server) registerResources() {
	// ── circuitflow://canvas ───────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		"circuitflow://canvas",
		"Current Canvas",
		mcp.WithResourceDescription("Blocks, connections, paths and status of the open workflow"),
		mcp.WithMIMEType("application/json"),
	), s.handleCanvasResource)

	// ── circuitflow://palette ──────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		"circuitflow://palette",
		"Block Palette",
		mcp.WithMIMEType("application/json"),
	), s.handlePaletteResource)

	// ── circuitflow://template/{templateId} ────────────
	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate(
			templateURIPrefix+"{templateId}",
			"Workflow Template",
		),
		s.handleTemplateResource,
	)
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleCanvasResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonContents(req.Params.URI, s.canvasView())
}

func (s *Server) handlePaletteResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonContents(req.Params.URI, domain.Palette())
}

func (s *Server) handleTemplateResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	id := templateIDFromURI(uri)
	if id == "" {
		return nil, fmt.Errorf("could not extract templateId from URI: %s", uri)
	}
	t, err := s.templates.Get(id)
	if err != nil {
		return nil, err
	}
	return jsonContents(uri, t)
}

// templateIDFromURI extracts the id from "circuitflow://template/{id}".
func templateIDFromURI(uri string) string {
	id, ok := strings.CutPrefix(uri, templateURIPrefix)
	if !ok || strings.Contains(id, "/") {
		return ""
	}
	return id
}
