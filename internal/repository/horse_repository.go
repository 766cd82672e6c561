package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/styxali/turfintel-sub000/internal/database"
	"github.com/styxali/turfintel-sub000/internal/models"
)

// PostgresHorseRepository implements HorseRepository for PostgreSQL
type PostgresHorseRepository struct {
	db *database.DB
}

// NewPostgresHorseRepository creates a new horse repository
func NewPostgresHorseRepository(db *database.DB) HorseRepository {
	return &PostgresHorseRepository{db: db}
}

// Upsert inserts or updates a horse keyed by slug.
func (r *PostgresHorseRepository) Upsert(ctx context.Context, horse *models.Horse) error {
	_, err := r.db.GetPool().Exec(ctx, `
		INSERT INTO horses (id, slug, name, sex, age, earnings, form)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (slug) DO UPDATE SET
			name = EXCLUDED.name, sex = EXCLUDED.sex, age = EXCLUDED.age,
			earnings = EXCLUDED.earnings, form = EXCLUDED.form, updated_at = NOW()
	`, horse.ID, horse.Slug, horse.Name, horse.Sex, horse.Age, horse.Earnings, horse.Form)
	if err != nil {
		return fmt.Errorf("failed to upsert horse %s: %w", horse.Slug, err)
	}
	return nil
}

func upsertHorseTx(ctx context.Context, tx pgx.Tx, horse *models.Horse) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO horses (id, slug, name, sex, age, earnings, form)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (slug) DO UPDATE SET
			name = EXCLUDED.name, sex = EXCLUDED.sex, age = EXCLUDED.age,
			earnings = EXCLUDED.earnings, form = EXCLUDED.form, updated_at = NOW()
	`, horse.ID, horse.Slug, horse.Name, horse.Sex, horse.Age, horse.Earnings, horse.Form)
	if err != nil {
		return fmt.Errorf("failed to upsert horse %s within transaction: %w", horse.Slug, err)
	}
	return nil
}

// GetBySlug retrieves a horse with its cached history and stats, if any.
func (r *PostgresHorseRepository) GetBySlug(ctx context.Context, slug string) (*models.Horse, error) {
	horse := &models.Horse{}
	var history, stats []byte
	err := r.db.GetPool().QueryRow(ctx, `
		SELECT id, slug, name, sex, age, earnings, form, history, stats, created_at, updated_at
		FROM horses WHERE slug = $1
	`, slug).Scan(
		&horse.ID, &horse.Slug, &horse.Name, &horse.Sex, &horse.Age,
		&horse.Earnings, &horse.Form, &history, &stats, &horse.CreatedAt, &horse.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan horse: %w", err)
	}

	if len(history) > 0 {
		if err := json.Unmarshal(history, &horse.History); err != nil {
			return nil, fmt.Errorf("failed to parse horse history: %w", err)
		}
	}
	if len(stats) > 0 {
		if err := json.Unmarshal(stats, &horse.Stats); err != nil {
			return nil, fmt.Errorf("failed to parse horse stats: %w", err)
		}
	}
	return horse, nil
}

// UpdateHistory caches the horse's full race history and aggregate stats.
func (r *PostgresHorseRepository) UpdateHistory(ctx context.Context, slug string, history []models.HistoryEntry, stats *models.HorseStats) error {
	historyJSON, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("failed to encode horse history: %w", err)
	}
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to encode horse stats: %w", err)
	}

	commandTag, err := r.db.GetPool().Exec(ctx, `
		UPDATE horses SET history = $2, stats = $3, updated_at = NOW() WHERE slug = $1
	`, slug, historyJSON, statsJSON)
	if err != nil {
		return fmt.Errorf("failed to update horse history: %w", err)
	}
	if commandTag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
