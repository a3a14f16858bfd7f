package database

import (
	"context"
	"fmt"

	"betpulse/models"
)

func (db *Database) CreateChatMessage(ctx context.Context, m *models.ChatMessage) error {
	query := `INSERT INTO chat_messages (id, user_id, author, message)
	          VALUES ($1, $2, $3, $4)
	          RETURNING created_at`

	if err := db.pool.QueryRow(ctx, query, m.ID, m.UserID, m.Author, m.Message).Scan(&m.CreatedAt); err != nil {
		return fmt.Errorf("failed to store chat message: %w", err)
	}
	return nil
}

func (db *Database) ListChatMessages(ctx context.Context, limit int) ([]models.ChatMessage, error) {
	query := `SELECT id, user_id, author, message, created_at
	          FROM chat_messages ORDER BY created_at DESC LIMIT $1`

	rows, err := db.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat messages: %w", err)
	}
	defer rows.Close()

	var messages []models.ChatMessage
	for rows.Next() {
		var m models.ChatMessage
		if err := rows.Scan(&m.ID, &m.UserID, &m.Author, &m.Message, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat row: %w", err)
		}
		messages = append(messages, m)
	}

	// newest rows were fetched first, return them oldest first
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, rows.Err()
}
