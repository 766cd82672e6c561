package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/styxali/turfintel-sub000/internal/config"
	"github.com/styxali/turfintel-sub000/internal/metrics"
	"github.com/styxali/turfintel-sub000/internal/models"
	"github.com/styxali/turfintel-sub000/internal/provider"
)

// RaceOverview is the race header of a chart bundle.
type RaceOverview struct {
	GUID       string    `json:"guid"`
	Name       string    `json:"name"`
	Venue      string    `json:"venue"`
	StartTime  time.Time `json:"start_time"`
	Distance   int       `json:"distance"`
	Ground     string    `json:"ground,omitempty"`
	Discipline string    `json:"discipline"`
	Category   string    `json:"category,omitempty"`
	Prize      string    `json:"prize,omitempty"`
	Runners    int       `json:"runners"`
}

// RunnerSummary is the per-runner header of a chart bundle.
type RunnerSummary struct {
	Number    int     `json:"number"`
	Name      string  `json:"name"`
	Jockey    string  `json:"jockey,omitempty"`
	Trainer   string  `json:"trainer,omitempty"`
	Odds      float64 `json:"odds,omitempty"`
	WinRate   float64 `json:"win_rate"`
	Positions []int   `json:"positions,omitempty"`
}

// ChartBundle is the full analytics output for one race.
type ChartBundle struct {
	Overview RaceOverview     `json:"overview"`
	Runners  []RunnerSummary  `json:"runners"`
	Charts   map[string]Chart `json:"charts"`
}

// Engine computes chart bundles. Stateless apart from its collaborators;
// every computation works on a snapshot read at call time.
type Engine struct {
	races     provider.RaceReader
	assembler *assembler
	logger    *logrus.Logger
}

// NewEngine creates an analytics engine. history may be nil when aggregates
// already carry their runners' history.
func NewEngine(
	races provider.RaceReader,
	history provider.HistoryReader,
	thresholds config.AnalyticsConfig,
	logger *logrus.Logger,
) *Engine {
	if logger == nil {
		logger = logrus.New()
	}
	return &Engine{
		races: races,
		assembler: &assembler{
			history:    history,
			thresholds: thresholds,
			logger:     logger,
		},
		logger: logger,
	}
}

// ComputeCharts assembles runner statistics for the race and evaluates the
// full chart registry over them.
func (e *Engine) ComputeCharts(ctx context.Context, raceGUID string) (*ChartBundle, error) {
	start := time.Now()

	if _, err := models.ParseRaceID(raceGUID); err != nil {
		return nil, err
	}

	race, err := e.races.GetRace(ctx, raceGUID)
	if err != nil {
		return nil, fmt.Errorf("loading race %s: %w", raceGUID, err)
	}

	stats := e.assembler.assemble(ctx, race)

	bundle := &ChartBundle{
		Overview: RaceOverview{
			GUID:       race.GUID,
			Name:       race.Name,
			Venue:      race.Venue,
			StartTime:  race.StartTime,
			Distance:   race.Distance,
			Ground:     race.Ground,
			Discipline: race.Discipline,
			Category:   race.Category,
			Prize:      race.PrizeMoney.StringFixed(0),
			Runners:    len(race.Runners),
		},
		Runners: make([]RunnerSummary, 0, len(stats)),
		Charts:  make(map[string]Chart, len(chartRegistry)),
	}

	for _, r := range stats {
		bundle.Runners = append(bundle.Runners, RunnerSummary{
			Number:    r.Number,
			Name:      r.Name,
			Jockey:    r.Jockey,
			Trainer:   r.Trainer,
			Odds:      r.Odds,
			WinRate:   round1(r.WinRate),
			Positions: r.Positions,
		})
	}

	for _, def := range chartRegistry {
		bundle.Charts[def.name] = def.fn(race, stats)
	}

	metrics.RecordChartComputation(time.Since(start).Seconds())

	e.logger.WithFields(logrus.Fields{
		"race":   raceGUID,
		"charts": len(bundle.Charts),
	}).Debug("Chart bundle computed")

	return bundle, nil
}
