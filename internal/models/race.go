package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Race represents one race occurrence, identified by its composite GUID
// (date, meeting number, race number). Sub-resources are parsed into typed
// structures at the read boundary; downstream consumers never see raw blobs.
type Race struct {
	GUID        string          `db:"guid" json:"guid" validate:"required"`
	Name        string          `db:"name" json:"name" validate:"required"`
	Venue       string          `db:"venue" json:"venue" validate:"required"`
	Distance    int             `db:"distance" json:"distance" validate:"required,gt=0"`
	Ground      string          `db:"ground" json:"ground"`
	Discipline  string          `db:"discipline" json:"discipline" validate:"required"`
	StartTime   time.Time       `db:"start_time" json:"start_time" validate:"required"`
	PrizeMoney  decimal.Decimal `db:"prize_money" json:"prize_money"`
	Category    string          `db:"category" json:"category"`
	Runners     []*Runner       `db:"-" json:"runners,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`

	// Optional sub-resources, zero-or-one each.
	Pronostic  *Pronostic       `db:"-" json:"pronostic,omitempty"`
	Odds       *OddsSnapshot    `db:"-" json:"odds,omitempty"`
	Notes      []JudgeNote      `db:"-" json:"notes,omitempty"`
	Interviews []Interview      `db:"-" json:"interviews,omitempty"`
	Tracking   *Tracking        `db:"-" json:"tracking,omitempty"`
	Notule     *Notule          `db:"-" json:"notule,omitempty"`
	References []ReferenceRace  `db:"-" json:"references,omitempty"`
}

// IsUpcoming checks if the race hasn't started yet
func (r *Race) IsUpcoming() bool {
	return time.Now().Before(r.StartTime)
}

// RunnerByNumber returns the runner with the given entry number, or nil.
func (r *Race) RunnerByNumber(number int) *Runner {
	for _, runner := range r.Runners {
		if runner.Number == number {
			return runner
		}
	}
	return nil
}

// Runner represents one horse+jockey+trainer entry in a specific race
type Runner struct {
	Number   int      `db:"number" json:"number" validate:"required,gt=0"`
	RaceGUID string   `db:"race_guid" json:"race_guid" validate:"required"`
	Horse    *Horse   `db:"-" json:"horse" validate:"required"`
	Jockey   string   `db:"jockey" json:"jockey"`
	Trainer  string   `db:"trainer" json:"trainer"`
	Weight   float64  `db:"weight" json:"weight"`
	Draw     int      `db:"draw" json:"draw"`
	Odds     *float64 `db:"odds" json:"odds,omitempty"`
	Rating   *float64 `db:"rating" json:"rating,omitempty"`
}

// GetOdds returns the current odds or 0 if none are quoted
func (r *Runner) GetOdds() float64 {
	if r.Odds == nil {
		return 0
	}
	return *r.Odds
}

// GetRating returns the current rating or 0 if nil
func (r *Runner) GetRating() float64 {
	if r.Rating == nil {
		return 0
	}
	return *r.Rating
}
