package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Horse represents a horse, identified by its slug (unique human-readable
// key) and an internal UUID.
type Horse struct {
	ID        uuid.UUID       `db:"id" json:"id" validate:"required,uuid4"`
	Slug      string          `db:"slug" json:"slug" validate:"required"`
	Name      string          `db:"name" json:"name" validate:"required"`
	Sex       string          `db:"sex" json:"sex"`
	Age       int             `db:"age" json:"age" validate:"gte=0"`
	Earnings  decimal.Decimal `db:"earnings" json:"earnings"`
	Form      string          `db:"form" json:"form"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`

	// Lazily populated from the history collaborator.
	History []HistoryEntry `db:"-" json:"history,omitempty"`
	Stats   *HorseStats    `db:"-" json:"stats,omitempty"`
}

// HistoryEntry is one past race of a horse as returned by the history
// collaborator. Ordered most recent first.
type HistoryEntry struct {
	Date       time.Time `json:"date"`
	Venue      string    `json:"venue"`
	Distance   int       `json:"distance"`
	Position   int       `json:"position"`
	Discipline string    `json:"discipline"`
	Ground     string    `json:"ground"`
}

// HorseStats holds aggregate career statistics for a horse.
type HorseStats struct {
	Races     int             `json:"races"`
	Wins      int             `json:"wins"`
	Places    int             `json:"places"`
	Earnings  decimal.Decimal `json:"earnings"`
	BestTime  string          `json:"best_time,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// WinRate returns the career win percentage, 0 if no races are recorded.
func (s *HorseStats) WinRate() float64 {
	if s.Races == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.Races) * 100
}

// PlaceRate returns the career place percentage, 0 if no races are recorded.
func (s *HorseStats) PlaceRate() float64 {
	if s.Races == 0 {
		return 0
	}
	return float64(s.Places) / float64(s.Races) * 100
}
