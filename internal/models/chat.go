package models

import (
	"time"

	"github.com/google/uuid"
)

// Chat message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatSession groups the conversation turns of one user session.
type ChatSession struct {
	ID        uuid.UUID `db:"id" json:"id" validate:"required,uuid4"`
	UserKey   string    `db:"user_key" json:"user_key"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ChatMessage is one persisted conversation turn, tagged with the active
// race/horse context at the time it was produced.
type ChatMessage struct {
	ID        uuid.UUID `db:"id" json:"id"`
	SessionID uuid.UUID `db:"session_id" json:"session_id" validate:"required,uuid4"`
	Role      string    `db:"role" json:"role" validate:"required,oneof=user assistant"`
	Content   string    `db:"content" json:"content" validate:"required"`
	RaceGUID  string    `db:"race_guid" json:"race_guid,omitempty"`
	HorseSlug string    `db:"horse_slug" json:"horse_slug,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ChatContext carries the active race/horse scope of a conversation turn.
type ChatContext struct {
	RaceGUID  string `json:"race_guid,omitempty"`
	HorseSlug string `json:"horse_slug,omitempty"`
}

// ChatResponse is what the assistant returns for one turn. A turn always
// yields a response object, even when retrieval degraded internally.
type ChatResponse struct {
	Message     string   `json:"message"`
	Sources     []string `json:"sources,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}
