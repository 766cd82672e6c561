package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/styxali/turfintel-sub000/internal/database"
	"github.com/styxali/turfintel-sub000/internal/models"
)

// PostgresChatRepository implements ChatRepository for PostgreSQL
type PostgresChatRepository struct {
	db *database.DB
}

// NewPostgresChatRepository creates a new chat repository
func NewPostgresChatRepository(db *database.DB) ChatRepository {
	return &PostgresChatRepository{db: db}
}

// EnsureSession creates the session row if it does not exist yet.
func (r *PostgresChatRepository) EnsureSession(ctx context.Context, sessionID uuid.UUID, userKey string) error {
	_, err := r.db.GetPool().Exec(ctx, `
		INSERT INTO chat_sessions (id, user_key)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET updated_at = NOW()
	`, sessionID, userKey)
	if err != nil {
		return fmt.Errorf("failed to ensure chat session: %w", err)
	}
	return nil
}

// SaveMessage persists one conversation turn.
func (r *PostgresChatRepository) SaveMessage(ctx context.Context, msg *models.ChatMessage) error {
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	_, err := r.db.GetPool().Exec(ctx, `
		INSERT INTO chat_messages (id, session_id, role, content, race_guid, horse_slug)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, msg.ID, msg.SessionID, msg.Role, msg.Content, msg.RaceGUID, msg.HorseSlug)
	if err != nil {
		return fmt.Errorf("failed to save chat message: %w", err)
	}
	return nil
}

// GetMessages returns the most recent messages of a session, oldest first.
func (r *PostgresChatRepository) GetMessages(ctx context.Context, sessionID uuid.UUID, limit int) ([]*models.ChatMessage, error) {
	rows, err := r.db.GetPool().Query(ctx, `
		SELECT id, session_id, role, content, race_guid, horse_slug, created_at
		FROM (
			SELECT id, session_id, role, content, race_guid, horse_slug, created_at
			FROM chat_messages WHERE session_id = $1
			ORDER BY created_at DESC LIMIT $2
		) recent
		ORDER BY created_at ASC
	`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat messages: %w", err)
	}
	defer rows.Close()

	var messages []*models.ChatMessage
	for rows.Next() {
		msg := &models.ChatMessage{}
		err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Role, &msg.Content, &msg.RaceGUID, &msg.HorseSlug, &msg.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}
