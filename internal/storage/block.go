package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"circuitflow/internal/domain"
)

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
}

func listBlocks(q execer, workflowID string) ([]domain.Block, error) {
	rows, err := q.Query(
		`SELECT id, type, x, y, width, height, connected_json FROM blocks WHERE workflow_id = ? ORDER BY sort_order ASC`,
		workflowID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	blocks := []domain.Block{}
	for rows.Next() {
		var b domain.Block
		var connected string
		if err := rows.Scan(&b.ID, &b.Type, &b.X, &b.Y, &b.Width, &b.Height, &connected); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(connected), &b.ConnectedBlockIDs); err != nil {
			return nil, fmt.Errorf("block %s: decode connections: %w", b.ID, err)
		}
		blocks = append(blocks, b)
	}
	return blocks, rows.Err()
}

func replaceBlocks(tx execer, workflowID string, blocks []domain.Block) error {
	if _, err := tx.Exec(`DELETE FROM blocks WHERE workflow_id = ?`, workflowID); err != nil {
		return fmt.Errorf("delete blocks: %w", err)
	}
	for i, b := range blocks {
		connected := b.ConnectedBlockIDs
		if connected == nil {
			connected = []string{}
		}
		raw, err := json.Marshal(connected)
		if err != nil {
			return fmt.Errorf("encode connections: %w", err)
		}
		_, err = tx.Exec(
			`INSERT INTO blocks (workflow_id, id, type, x, y, width, height, connected_json, sort_order) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			workflowID, b.ID, b.Type, b.X, b.Y, b.Width, b.Height, string(raw), i,
		)
		if err != nil {
			return fmt.Errorf("insert block %s: %w", b.ID, err)
		}
	}
	return nil
}
