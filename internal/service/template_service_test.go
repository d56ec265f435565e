package service_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"circuitflow/internal/domain"
	"circuitflow/internal/service"
)

const customTemplateYAML = `name: Media Digest
description: Render a daily digest
category: Media
blocks:
  - {id: clock, type: scheduler, x: 80, y: 80}
  - {id: out, type: media-out, x: 240, y: 80}
connections:
  - {id: c1, fromBlockId: clock, toBlockId: out}
`

// ─────────────────────────────────────────────────────────────
// TemplateService
// ─────────────────────────────────────────────────────────────

func TestTemplates_Builtins(t *testing.T) {
	svc := service.NewTemplateService("", nil, nil, nil)
	list := svc.List()
	if len(list) != 4 {
		t.Fatalf("expected 4 built-in templates, got %d", len(list))
	}
	tpl, err := svc.Get("scheduled-tasks")
	if err != nil {
		t.Fatal(err)
	}
	if !tpl.Builtin || len(tpl.Blocks) != 4 || len(tpl.Connections) != 3 {
		t.Fatalf("unexpected template %+v", tpl)
	}
	if tpl.Connections[1].FromPort != domain.PortTop || tpl.Connections[2].FromPort != domain.PortBottom {
		t.Errorf("expected top/bottom fan-out ports, got %+v", tpl.Connections)
	}
	if _, err := svc.Get("nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTemplates_ApplyLoadsCanvas(t *testing.T) {
	canvasSvc := service.NewCanvasService(nil)
	svc := service.NewTemplateService("", canvasSvc, nil, nil)

	st, err := svc.Apply(context.Background(), "email-automation")
	if err != nil {
		t.Fatal(err)
	}
	if len(st.Blocks) != 3 || len(st.Connections) != 2 {
		t.Fatalf("unexpected canvas %d blocks %d connections", len(st.Blocks), len(st.Connections))
	}
	if b, _ := st.Block("processor-1"); b.X != 240 || b.Y != 160 {
		t.Errorf("unexpected processor position %+v", b)
	}
}

func TestTemplates_LoadsDirectoryAndSkipsInvalid(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "media-digest.yaml"), []byte(customTemplateYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte(`{"name":"x","blocks":[{"id":"a","type":"warp-core","x":0,"y":0}],"connections":[]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}

	svc := service.NewTemplateService(dir, nil, nil, nil)
	if len(svc.List()) != 5 {
		t.Fatalf("expected 4 built-ins plus 1 custom, got %d", len(svc.List()))
	}
	tpl, err := svc.Get("media-digest")
	if err != nil {
		t.Fatal(err)
	}
	if tpl.Builtin || tpl.Blocks[0].Width != domain.BlockWidth {
		t.Errorf("expected defaults filled on custom template, got %+v", tpl.Blocks[0])
	}
	if tpl.Connections[0].FromPort != domain.PortRight || tpl.Connections[0].ToPort != domain.PortLeft {
		t.Errorf("expected default ports, got %+v", tpl.Connections[0])
	}
}

func TestTemplates_WatchReloads(t *testing.T) {
	dir := t.TempDir()
	em := &service.MockEmitter{}
	svc := service.NewTemplateService(dir, nil, em, nil)
	defer svc.Close()

	if err := svc.Watch(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "digest.yml"), []byte(customTemplateYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, 3*time.Second, func() bool { return len(em.Named(service.EventTemplatesChanged)) > 0 })
	if _, err := svc.Get("digest"); err != nil {
		t.Errorf("expected reloaded template, got %v", err)
	}
}
