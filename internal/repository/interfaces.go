// Package repository provides data access interfaces and PostgreSQL
// implementations for races, horses and chat sessions.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/styxali/turfintel-sub000/internal/models"
)

// RaceRepository defines race aggregate persistence operations.
type RaceRepository interface {
	Upsert(ctx context.Context, race *models.Race) error
	GetByGUID(ctx context.Context, guid string) (*models.Race, error)
	ListGUIDsByDate(ctx context.Context, date time.Time) ([]string, error)
	Delete(ctx context.Context, guid string) error
}

// HorseRepository defines horse persistence operations.
type HorseRepository interface {
	Upsert(ctx context.Context, horse *models.Horse) error
	GetBySlug(ctx context.Context, slug string) (*models.Horse, error)
	UpdateHistory(ctx context.Context, slug string, history []models.HistoryEntry, stats *models.HorseStats) error
}

// ChatRepository defines chat session persistence operations.
type ChatRepository interface {
	EnsureSession(ctx context.Context, sessionID uuid.UUID, userKey string) error
	SaveMessage(ctx context.Context, msg *models.ChatMessage) error
	GetMessages(ctx context.Context, sessionID uuid.UUID, limit int) ([]*models.ChatMessage, error)
}
