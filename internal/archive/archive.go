// Package archive publishes saved workflows to an external database so they
// can be shared outside the local SQLite file.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"circuitflow/internal/config"
	"circuitflow/internal/domain"
)

// Archive stores whole workflow documents keyed by workflow id.
type Archive interface {
	// Ping verifies connectivity.
	Ping(ctx context.Context) error

	// Put inserts or replaces a workflow.
	Put(ctx context.Context, wf *domain.Workflow) error

	// Get returns an archived workflow, or domain.ErrNotFound.
	Get(ctx context.Context, id string) (*domain.Workflow, error)

	// List returns summaries, most recently updated first.
	List(ctx context.Context) ([]domain.WorkflowSummary, error)

	// Close releases the connection.
	Close(ctx context.Context) error
}

// record is the stored shape shared by every backend.
type record struct {
	ID              string    `bson:"_id"`
	Name            string    `bson:"name"`
	BlockCount      int       `bson:"blockCount"`
	ConnectionCount int       `bson:"connectionCount"`
	Document        string    `bson:"document"`
	UpdatedAt       time.Time `bson:"updatedAt"`
}

func toRecord(wf *domain.Workflow) (record, error) {
	raw, err := json.Marshal(wf)
	if err != nil {
		return record{}, fmt.Errorf("encode workflow: %w", err)
	}
	updated := wf.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	return record{
		ID:              wf.ID,
		Name:            wf.Name,
		BlockCount:      len(wf.Blocks),
		ConnectionCount: len(wf.Connections),
		Document:        string(raw),
		UpdatedAt:       updated.UTC(),
	}, nil
}

func (r record) workflow() (*domain.Workflow, error) {
	var wf domain.Workflow
	if err := json.Unmarshal([]byte(r.Document), &wf); err != nil {
		return nil, fmt.Errorf("decode archived workflow %s: %w", r.ID, err)
	}
	return &wf, nil
}

func (r record) summary() domain.WorkflowSummary {
	return domain.WorkflowSummary{
		ID:              r.ID,
		Name:            r.Name,
		BlockCount:      r.BlockCount,
		ConnectionCount: r.ConnectionCount,
		UpdatedAt:       r.UpdatedAt,
	}
}

// Open connects to the archive described by cfg. The password is resolved
// separately (see package secret). An empty driver returns nil, nil.
func Open(cfg config.ArchiveConfig, password string) (Archive, error) {
	switch cfg.Driver {
	case "":
		return nil, nil
	case "sqlite":
		return newSQLArchive(dialectSQLite, buildSQLiteDSN(cfg))
	case "mysql":
		return newSQLArchive(dialectMySQL, buildMySQLDSN(cfg, password))
	case "postgres":
		return newSQLArchive(dialectPostgres, buildPostgresDSN(cfg, password))
	case "mongodb":
		return newMongoArchive(cfg, password)
	default:
		return nil, fmt.Errorf("unsupported archive driver: %s", cfg.Driver)
	}
}
