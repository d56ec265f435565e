package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"circuitflow/internal/domain"
)

// MaxUndoNodes bounds the history kept per workflow.
const MaxUndoNodes = 40

// UndoNode is a single undo history entry holding a canvas snapshot.
type UndoNode struct {
	ID           string    `json:"id"`
	WorkflowID   string    `json:"workflowId"`
	ParentID     *string   `json:"parentId"`
	Label        string    `json:"label"`
	SnapshotJSON string    `json:"snapshotJson"`
	CreatedAt    time.Time `json:"createdAt"`
}

// UndoTree is the full history of a workflow.
type UndoTree struct {
	Nodes     []UndoNode `json:"nodes"`
	CurrentID string     `json:"currentId"`
	RootID    string     `json:"rootId"`
}

// UndoStore manages undo history in SQLite.
type UndoStore struct {
	db *DB
}

func NewUndoStore(db *DB) *UndoStore {
	return &UndoStore{db: db}
}

const undoColumns = `id, workflow_id, parent_id, label, snapshot_json, created_at`

func scanUndoNode(row interface{ Scan(...any) error }) (UndoNode, error) {
	var n UndoNode
	err := row.Scan(&n.ID, &n.WorkflowID, &n.ParentID, &n.Label, &n.SnapshotJSON, &n.CreatedAt)
	return n, err
}

// LoadTree returns the full undo tree for a workflow, or nil if it has none.
func (s *UndoStore) LoadTree(workflowID string) (*UndoTree, error) {
	rows, err := s.db.Conn().Query(
		`SELECT `+undoColumns+` FROM undo_nodes WHERE workflow_id = ? ORDER BY rowid ASC`, workflowID,
	)
	if err != nil {
		return nil, fmt.Errorf("load undo nodes: %w", err)
	}
	defer rows.Close()

	var nodes []UndoNode
	var rootID string
	for rows.Next() {
		n, err := scanUndoNode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan undo node: %w", err)
		}
		if n.ParentID == nil && rootID == "" {
			rootID = n.ID
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, nil
	}

	currentID, err := s.currentID(workflowID)
	if err != nil || currentID == "" {
		currentID = rootID
	}
	return &UndoTree{Nodes: nodes, CurrentID: currentID, RootID: rootID}, nil
}

// PushNode records a snapshot as a child of the current node and makes it current.
func (s *UndoStore) PushNode(workflowID, label, snapshotJSON string) (*UndoNode, error) {
	parentID, err := s.currentID(workflowID)
	if err != nil {
		return nil, err
	}
	n := &UndoNode{
		ID:           uuid.NewString(),
		WorkflowID:   workflowID,
		Label:        label,
		SnapshotJSON: snapshotJSON,
		CreatedAt:    time.Now(),
	}
	if parentID != "" {
		n.ParentID = &parentID
	}

	_, err = s.db.Conn().Exec(
		`INSERT INTO undo_nodes (`+undoColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		n.ID, n.WorkflowID, n.ParentID, n.Label, n.SnapshotJSON, n.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert undo node: %w", err)
	}
	if err := s.GoTo(workflowID, n.ID); err != nil {
		return nil, fmt.Errorf("update undo state: %w", err)
	}

	s.pruneIfNeeded(workflowID, MaxUndoNodes)
	return n, nil
}

// Current returns the node the workflow currently sits on.
func (s *UndoStore) Current(workflowID string) (*UndoNode, error) {
	id, err := s.currentID(workflowID)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, fmt.Errorf("undo history for %s: %w", workflowID, domain.ErrNotFound)
	}
	return s.GetNode(id)
}

func (s *UndoStore) GetNode(id string) (*UndoNode, error) {
	n, err := scanUndoNode(s.db.Conn().QueryRow(`SELECT `+undoColumns+` FROM undo_nodes WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("undo node %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// LatestChild returns the most recently pushed child of a node, the redo target.
func (s *UndoStore) LatestChild(id string) (*UndoNode, error) {
	n, err := scanUndoNode(s.db.Conn().QueryRow(
		`SELECT `+undoColumns+` FROM undo_nodes WHERE parent_id = ? ORDER BY rowid DESC LIMIT 1`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("redo from %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// GoTo updates the current position pointer.
func (s *UndoStore) GoTo(workflowID, nodeID string) error {
	_, err := s.db.Conn().Exec(
		`INSERT INTO undo_state (workflow_id, current_node_id) VALUES (?, ?)
		 ON CONFLICT(workflow_id) DO UPDATE SET current_node_id = excluded.current_node_id`,
		workflowID, nodeID,
	)
	return err
}

// Clear removes all undo data for a workflow.
func (s *UndoStore) Clear(workflowID string) error {
	_, _ = s.db.Conn().Exec(`DELETE FROM undo_state WHERE workflow_id = ?`, workflowID)
	_, err := s.db.Conn().Exec(`DELETE FROM undo_nodes WHERE workflow_id = ?`, workflowID)
	return err
}

func (s *UndoStore) currentID(workflowID string) (string, error) {
	var id string
	err := s.db.Conn().QueryRow(
		`SELECT current_node_id FROM undo_state WHERE workflow_id = ?`, workflowID,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return id, err
}

// pruneIfNeeded removes the oldest nodes when count exceeds maxNodes,
// re-parenting their children so the tree stays connected.
func (s *UndoStore) pruneIfNeeded(workflowID string, maxNodes int) {
	var count int
	s.db.Conn().QueryRow(`SELECT COUNT(*) FROM undo_nodes WHERE workflow_id = ?`, workflowID).Scan(&count)
	if count <= maxNodes {
		return
	}

	currentID, _ := s.currentID(workflowID)

	// Collect ids first; the single connection cannot run writes while rows are open.
	rows, err := s.db.Conn().Query(
		`SELECT id FROM undo_nodes WHERE workflow_id = ? ORDER BY rowid ASC LIMIT ?`,
		workflowID, count-maxNodes,
	)
	if err != nil {
		return
	}
	var ids []string
	for rows.Next() {
		var id string
		if rows.Scan(&id) == nil && id != currentID {
			ids = append(ids, id)
		}
	}
	rows.Close()

	for _, id := range ids {
		var parentID sql.NullString
		s.db.Conn().QueryRow(`SELECT parent_id FROM undo_nodes WHERE id = ?`, id).Scan(&parentID)
		s.db.Conn().Exec(`UPDATE undo_nodes SET parent_id = ? WHERE parent_id = ?`, parentID, id)
		s.db.Conn().Exec(`DELETE FROM undo_nodes WHERE id = ?`, id)
	}
}
