package storage

import (
	"fmt"

	"circuitflow/internal/domain"
)

func listConnections(q execer, workflowID string) ([]domain.Connection, error) {
	rows, err := q.Query(
		`SELECT id, from_block_id, to_block_id, from_port, to_port FROM connections WHERE workflow_id = ? ORDER BY sort_order ASC`,
		workflowID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	conns := []domain.Connection{}
	for rows.Next() {
		var c domain.Connection
		if err := rows.Scan(&c.ID, &c.FromBlockID, &c.ToBlockID, &c.FromPort, &c.ToPort); err != nil {
			return nil, err
		}
		conns = append(conns, c)
	}
	return conns, rows.Err()
}

func replaceConnections(tx execer, workflowID string, conns []domain.Connection) error {
	if _, err := tx.Exec(`DELETE FROM connections WHERE workflow_id = ?`, workflowID); err != nil {
		return fmt.Errorf("delete connections: %w", err)
	}
	for i, c := range conns {
		_, err := tx.Exec(
			`INSERT INTO connections (workflow_id, id, from_block_id, to_block_id, from_port, to_port, sort_order) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			workflowID, c.ID, c.FromBlockID, c.ToBlockID, c.FromPort, c.ToPort, i,
		)
		if err != nil {
			return fmt.Errorf("insert connection %s: %w", c.ID, err)
		}
	}
	return nil
}
