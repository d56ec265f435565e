package archive

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"circuitflow/internal/config"
	"circuitflow/internal/domain"
)

// ─────────────────────────────────────────────────────────────
// Connection strings
// ─────────────────────────────────────────────────────────────

func TestBuildDSNs(t *testing.T) {
	cfg := config.ArchiveConfig{Host: "db.local", Username: "flow", Database: "circuits"}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"mysql default port", buildMySQLDSN(cfg, "pw"), "flow:pw@tcp(db.local:3306)/circuits?parseTime=true&charset=utf8mb4"},
		{"postgres default sslmode", buildPostgresDSN(cfg, "pw"), "host=db.local port=5432 user=flow password=pw dbname=circuits sslmode=disable"},
		{"mongo host", buildMongoURI(cfg, "pw"), "mongodb://flow:pw@db.local:27017"},
		{"mongo uri placeholder", buildMongoURI(config.ArchiveConfig{URI: "mongodb+srv://flow:<password>@cluster.example/"}, "pw"), "mongodb+srv://flow:pw@cluster.example/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, tt.got)
			}
		})
	}

	tls := cfg
	tls.SSLMode = "require"
	if got := buildMySQLDSN(tls, "pw"); got[len(got)-len("&tls=true"):] != "&tls=true" {
		t.Errorf("expected tls flag, got %q", got)
	}
}

func TestRebind(t *testing.T) {
	q := "INSERT INTO t (a, b) VALUES (?, ?)"
	if got := dialectPostgres.rebind(q); got != "INSERT INTO t (a, b) VALUES ($1, $2)" {
		t.Errorf("unexpected postgres query %q", got)
	}
	if got := dialectMySQL.rebind(q); got != q {
		t.Errorf("mysql query must be unchanged, got %q", got)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	if a, err := Open(config.ArchiveConfig{}, ""); a != nil || err != nil {
		t.Fatalf("expected nil archive for empty driver, got %v %v", a, err)
	}
	if _, err := Open(config.ArchiveConfig{Driver: "cassandra"}, ""); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

// ─────────────────────────────────────────────────────────────
// SQLite backend
// ─────────────────────────────────────────────────────────────

func TestSQLiteArchive_PutGetList(t *testing.T) {
	ctx := context.Background()
	a, err := Open(config.ArchiveConfig{Driver: "sqlite", Database: filepath.Join(t.TempDir(), "archive.db")}, "")
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close(ctx)
	if err := a.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}

	wf := &domain.Workflow{
		ID:     "wf-1",
		Name:   "Hub",
		Blocks: []domain.Block{{ID: "a", Type: domain.BlockTypeReceiver, Width: 80, Height: 80}},
	}
	if err := a.Put(ctx, wf); err != nil {
		t.Fatalf("put: %v", err)
	}
	wf.Name = "Hub v2"
	if err := a.Put(ctx, wf); err != nil {
		t.Fatalf("second put: %v", err)
	}

	got, err := a.Get(ctx, "wf-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Hub v2" || len(got.Blocks) != 1 {
		t.Errorf("unexpected archived workflow %+v", got)
	}
	list, err := a.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].BlockCount != 1 {
		t.Errorf("unexpected list %+v", list)
	}
	if _, err := a.Get(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
