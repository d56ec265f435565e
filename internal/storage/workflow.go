package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"circuitflow/internal/domain"
)

// WorkflowStore implements domain.WorkflowStore using SQLite. A workflow row
// and its blocks and connections are always written in one transaction.
type WorkflowStore struct {
	db *DB
}

func NewWorkflowStore(db *DB) *WorkflowStore {
	return &WorkflowStore{db: db}
}

func (s *WorkflowStore) CreateWorkflow(w *domain.Workflow) error {
	now := time.Now()
	w.CreatedAt = now
	w.UpdatedAt = now

	tx, err := s.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO workflows (id, name, description, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		w.ID, w.Name, w.Description, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert workflow: %w", err)
	}
	if err := replaceBlocks(tx, w.ID, w.Blocks); err != nil {
		return err
	}
	if err := replaceConnections(tx, w.ID, w.Connections); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *WorkflowStore) GetWorkflow(id string) (*domain.Workflow, error) {
	w := &domain.Workflow{}
	err := s.db.Conn().QueryRow(
		`SELECT id, name, description, created_at, updated_at FROM workflows WHERE id = ?`, id,
	).Scan(&w.ID, &w.Name, &w.Description, &w.CreatedAt, &w.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get workflow %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get workflow: %w", err)
	}
	if w.Blocks, err = listBlocks(s.db.Conn(), id); err != nil {
		return nil, fmt.Errorf("list blocks: %w", err)
	}
	if w.Connections, err = listConnections(s.db.Conn(), id); err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}
	return w, nil
}

func (s *WorkflowStore) ListWorkflows() ([]domain.WorkflowSummary, error) {
	rows, err := s.db.Conn().Query(
		`SELECT w.id, w.name, w.updated_at,
			(SELECT COUNT(*) FROM blocks b WHERE b.workflow_id = w.id),
			(SELECT COUNT(*) FROM connections c WHERE c.workflow_id = w.id)
		 FROM workflows w ORDER BY w.updated_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.WorkflowSummary{}
	for rows.Next() {
		var w domain.WorkflowSummary
		if err := rows.Scan(&w.ID, &w.Name, &w.UpdatedAt, &w.BlockCount, &w.ConnectionCount); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (s *WorkflowStore) UpdateWorkflow(w *domain.Workflow) error {
	w.UpdatedAt = time.Now()

	tx, err := s.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`UPDATE workflows SET name = ?, description = ?, updated_at = ? WHERE id = ?`,
		w.Name, w.Description, w.UpdatedAt, w.ID,
	)
	if err != nil {
		return fmt.Errorf("update workflow: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update workflow %s: %w", w.ID, domain.ErrNotFound)
	}
	if err := replaceBlocks(tx, w.ID, w.Blocks); err != nil {
		return err
	}
	if err := replaceConnections(tx, w.ID, w.Connections); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *WorkflowStore) DeleteWorkflow(id string) error {
	tx, err := s.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM connections WHERE workflow_id = ?`,
		`DELETE FROM blocks WHERE workflow_id = ?`,
		`DELETE FROM undo_state WHERE workflow_id = ?`,
		`DELETE FROM undo_nodes WHERE workflow_id = ?`,
		`DELETE FROM workflows WHERE id = ?`,
	} {
		if _, err := tx.Exec(q, id); err != nil {
			return fmt.Errorf("delete workflow: %w", err)
		}
	}
	return tx.Commit()
}

// Fingerprint summarizes a workflow's last write so pollers can detect
// changes made by another process.
func (s *WorkflowStore) Fingerprint(id string) (string, error) {
	var updated string
	var blocks int
	err := s.db.Conn().QueryRow(
		`SELECT COALESCE(w.updated_at, ''), (SELECT COUNT(*) FROM blocks b WHERE b.workflow_id = w.id)
		 FROM workflows w WHERE w.id = ?`, id,
	).Scan(&updated, &blocks)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d:%s", blocks, updated), nil
}
