package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/styxali/turfintel-sub000/internal/database"
	"github.com/styxali/turfintel-sub000/internal/models"
)

const errScanRace = "failed to scan race: %w"

// PostgresRaceRepository implements RaceRepository for PostgreSQL.
// Sub-resources live in jsonb columns and are parsed into typed structures
// here, at the read boundary; nothing downstream re-parses blobs.
type PostgresRaceRepository struct {
	db *database.DB
}

// NewPostgresRaceRepository creates a new race repository
func NewPostgresRaceRepository(db *database.DB) RaceRepository {
	return &PostgresRaceRepository{db: db}
}

// subResources groups the jsonb columns of a race row.
type subResources struct {
	Pronostic  *models.Pronostic      `json:"pronostic,omitempty"`
	Odds       *models.OddsSnapshot   `json:"odds,omitempty"`
	Notes      []models.JudgeNote     `json:"notes,omitempty"`
	Interviews []models.Interview     `json:"interviews,omitempty"`
	Tracking   *models.Tracking       `json:"tracking,omitempty"`
	Notule     *models.Notule         `json:"notule,omitempty"`
	References []models.ReferenceRace `json:"references,omitempty"`
}

// Upsert writes the race, its runners and their horses in one transaction.
func (r *PostgresRaceRepository) Upsert(ctx context.Context, race *models.Race) error {
	sub, err := json.Marshal(subResources{
		Pronostic:  race.Pronostic,
		Odds:       race.Odds,
		Notes:      race.Notes,
		Interviews: race.Interviews,
		Tracking:   race.Tracking,
		Notule:     race.Notule,
		References: race.References,
	})
	if err != nil {
		return fmt.Errorf("failed to encode race sub-resources: %w", err)
	}

	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO races (guid, name, venue, distance, ground, discipline, start_time, prize_money, category, sub_resources)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (guid) DO UPDATE SET
				name = EXCLUDED.name, venue = EXCLUDED.venue, distance = EXCLUDED.distance,
				ground = EXCLUDED.ground, discipline = EXCLUDED.discipline, start_time = EXCLUDED.start_time,
				prize_money = EXCLUDED.prize_money, category = EXCLUDED.category,
				sub_resources = EXCLUDED.sub_resources, updated_at = NOW()
		`, race.GUID, race.Name, race.Venue, race.Distance, race.Ground, race.Discipline,
			race.StartTime, race.PrizeMoney, race.Category, sub)
		if err != nil {
			return fmt.Errorf("failed to upsert race: %w", err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM runners WHERE race_guid = $1`, race.GUID); err != nil {
			return fmt.Errorf("failed to clear runners: %w", err)
		}

		for _, runner := range race.Runners {
			if runner.Horse != nil {
				if err := upsertHorseTx(ctx, tx, runner.Horse); err != nil {
					return err
				}
			}
			_, err := tx.Exec(ctx, `
				INSERT INTO runners (race_guid, number, horse_slug, jockey, trainer, weight, draw, odds, rating)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			`, race.GUID, runner.Number, runner.Horse.Slug, runner.Jockey, runner.Trainer,
				runner.Weight, runner.Draw, runner.Odds, runner.Rating)
			if err != nil {
				return fmt.Errorf("failed to insert runner %d: %w", runner.Number, err)
			}
		}
		return nil
	})
}

// GetByGUID retrieves a full race aggregate, runners and horses included.
func (r *PostgresRaceRepository) GetByGUID(ctx context.Context, guid string) (*models.Race, error) {
	race := &models.Race{}
	var sub []byte
	err := r.db.GetPool().QueryRow(ctx, `
		SELECT guid, name, venue, distance, ground, discipline, start_time, prize_money, category,
		       sub_resources, created_at, updated_at
		FROM races WHERE guid = $1
	`, guid).Scan(
		&race.GUID, &race.Name, &race.Venue, &race.Distance, &race.Ground, &race.Discipline,
		&race.StartTime, &race.PrizeMoney, &race.Category, &sub, &race.CreatedAt, &race.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf(errScanRace, err)
	}

	var resources subResources
	if len(sub) > 0 {
		if err := json.Unmarshal(sub, &resources); err != nil {
			return nil, fmt.Errorf("failed to parse race sub-resources: %w", err)
		}
	}
	race.Pronostic = resources.Pronostic
	race.Odds = resources.Odds
	race.Notes = resources.Notes
	race.Interviews = resources.Interviews
	race.Tracking = resources.Tracking
	race.Notule = resources.Notule
	race.References = resources.References

	runners, err := r.loadRunners(ctx, guid)
	if err != nil {
		return nil, err
	}
	race.Runners = runners

	return race, nil
}

func (r *PostgresRaceRepository) loadRunners(ctx context.Context, guid string) ([]*models.Runner, error) {
	rows, err := r.db.GetPool().Query(ctx, `
		SELECT r.number, r.race_guid, r.jockey, r.trainer, r.weight, r.draw, r.odds, r.rating,
		       h.id, h.slug, h.name, h.sex, h.age, h.earnings, h.form
		FROM runners r
		JOIN horses h ON h.slug = r.horse_slug
		WHERE r.race_guid = $1
		ORDER BY r.number ASC
	`, guid)
	if err != nil {
		return nil, fmt.Errorf("failed to query runners: %w", err)
	}
	defer rows.Close()

	var runners []*models.Runner
	for rows.Next() {
		runner := &models.Runner{Horse: &models.Horse{}}
		err := rows.Scan(
			&runner.Number, &runner.RaceGUID, &runner.Jockey, &runner.Trainer,
			&runner.Weight, &runner.Draw, &runner.Odds, &runner.Rating,
			&runner.Horse.ID, &runner.Horse.Slug, &runner.Horse.Name, &runner.Horse.Sex,
			&runner.Horse.Age, &runner.Horse.Earnings, &runner.Horse.Form,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan runner: %w", err)
		}
		runners = append(runners, runner)
	}
	return runners, rows.Err()
}

// ListGUIDsByDate returns the GUIDs of all races on a given meeting date.
func (r *PostgresRaceRepository) ListGUIDsByDate(ctx context.Context, date time.Time) ([]string, error) {
	prefix := date.Format("20060102") + "_%"
	rows, err := r.db.GetPool().Query(ctx, `SELECT guid FROM races WHERE guid LIKE $1 ORDER BY guid`, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to query races by date: %w", err)
	}
	defer rows.Close()

	var guids []string
	for rows.Next() {
		var guid string
		if err := rows.Scan(&guid); err != nil {
			return nil, fmt.Errorf(errScanRace, err)
		}
		guids = append(guids, guid)
	}
	return guids, rows.Err()
}

// Delete deletes a race and its runners.
func (r *PostgresRaceRepository) Delete(ctx context.Context, guid string) error {
	commandTag, err := r.db.GetPool().Exec(ctx, `DELETE FROM races WHERE guid = $1`, guid)
	if err != nil {
		return fmt.Errorf("failed to delete race: %w", err)
	}
	if commandTag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
