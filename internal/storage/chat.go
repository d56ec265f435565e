package storage

import (
	"fmt"

	"circuitflow/internal/domain"
)

// ChatStore implements domain.ChatStore using SQLite.
type ChatStore struct {
	db *DB
}

func NewChatStore(db *DB) *ChatStore {
	return &ChatStore{db: db}
}

func (s *ChatStore) AppendMessage(m *domain.ChatMessage) error {
	_, err := s.db.conn.Exec(
		`INSERT INTO chat_messages (id, role, content, created_at) VALUES (?, ?, ?, ?)`,
		m.ID, m.Role, m.Content, m.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert chat message: %w", err)
	}
	return nil
}

// ListMessages returns the most recent limit messages in chronological order.
func (s *ChatStore) ListMessages(limit int) ([]domain.ChatMessage, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := s.db.conn.Query(
		`SELECT id, role, content, created_at FROM chat_messages
		 WHERE rowid IN (SELECT rowid FROM chat_messages ORDER BY rowid DESC LIMIT ?)
		 ORDER BY rowid ASC`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs := []domain.ChatMessage{}
	for rows.Next() {
		var m domain.ChatMessage
		if err := rows.Scan(&m.ID, &m.Role, &m.Content, &m.Timestamp); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (s *ChatStore) ClearMessages() error {
	_, err := s.db.conn.Exec(`DELETE FROM chat_messages`)
	return err
}
