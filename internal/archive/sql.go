package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"circuitflow/internal/domain"
)

const archiveTable = "archived_workflows"

type dialect struct {
	driver string
	ddl    string
	upsert string
	// numbered placeholders ($1, $2, ...) instead of ?
	numbered bool
}

var (
	dialectSQLite = dialect{
		driver: "sqlite",
		ddl: `CREATE TABLE IF NOT EXISTS ` + archiveTable + ` (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			block_count INTEGER NOT NULL,
			connection_count INTEGER NOT NULL,
			document TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		upsert: ` ON CONFLICT(id) DO UPDATE SET name = excluded.name, block_count = excluded.block_count,
			connection_count = excluded.connection_count, document = excluded.document, updated_at = excluded.updated_at`,
	}
	dialectPostgres = dialect{
		driver: "postgres",
		ddl: `CREATE TABLE IF NOT EXISTS ` + archiveTable + ` (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			block_count INTEGER NOT NULL,
			connection_count INTEGER NOT NULL,
			document JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		upsert: ` ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, block_count = EXCLUDED.block_count,
			connection_count = EXCLUDED.connection_count, document = EXCLUDED.document, updated_at = EXCLUDED.updated_at`,
		numbered: true,
	}
	dialectMySQL = dialect{
		driver: "mysql",
		ddl: `CREATE TABLE IF NOT EXISTS ` + archiveTable + ` (
			id VARCHAR(191) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			block_count INT NOT NULL,
			connection_count INT NOT NULL,
			document JSON NOT NULL,
			updated_at DATETIME(6) NOT NULL
		)`,
		upsert: ` ON DUPLICATE KEY UPDATE name = VALUES(name), block_count = VALUES(block_count),
			connection_count = VALUES(connection_count), document = VALUES(document), updated_at = VALUES(updated_at)`,
	}
)

// rebind rewrites ? placeholders for dialects that number them.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// sqlArchive is the shared implementation for SQLite, MySQL and Postgres.
type sqlArchive struct {
	d  dialect
	db *sql.DB
}

func newSQLArchive(d dialect, dsn string) (*sqlArchive, error) {
	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.driver, err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(10 * time.Minute)
	if d.driver == "sqlite" {
		db.SetMaxOpenConns(1)
	}
	return &sqlArchive{d: d, db: db}, nil
}

func (a *sqlArchive) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := a.db.PingContext(ctx); err != nil {
		return err
	}
	if _, err := a.db.ExecContext(ctx, a.d.ddl); err != nil {
		return fmt.Errorf("create %s: %w", archiveTable, err)
	}
	return nil
}

func (a *sqlArchive) Put(ctx context.Context, wf *domain.Workflow) error {
	rec, err := toRecord(wf)
	if err != nil {
		return err
	}
	if _, err := a.db.ExecContext(ctx, a.d.ddl); err != nil {
		return fmt.Errorf("create %s: %w", archiveTable, err)
	}
	q := a.d.rebind(`INSERT INTO ` + archiveTable + ` (id, name, block_count, connection_count, document, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)` + a.d.upsert)
	_, err = a.db.ExecContext(ctx, q, rec.ID, rec.Name, rec.BlockCount, rec.ConnectionCount, rec.Document, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("archive workflow %s: %w", wf.ID, err)
	}
	return nil
}

func (a *sqlArchive) Get(ctx context.Context, id string) (*domain.Workflow, error) {
	var rec record
	err := a.db.QueryRowContext(ctx,
		a.d.rebind(`SELECT id, document FROM `+archiveTable+` WHERE id = ?`), id,
	).Scan(&rec.ID, &rec.Document)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("archived workflow %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return rec.workflow()
}

func (a *sqlArchive) List(ctx context.Context) ([]domain.WorkflowSummary, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT id, name, block_count, connection_count, updated_at FROM `+archiveTable+` ORDER BY updated_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.WorkflowSummary{}
	for rows.Next() {
		var rec record
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.BlockCount, &rec.ConnectionCount, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec.summary())
	}
	return out, rows.Err()
}

func (a *sqlArchive) Close(context.Context) error {
	return a.db.Close()
}
