// Package analytics computes the derived chart bundle for a race: per-runner
// statistics assembled from parsed form history, mapped through ~50 pure
// chart functions.
package analytics

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/styxali/turfintel-sub000/internal/config"
	"github.com/styxali/turfintel-sub000/internal/form"
	"github.com/styxali/turfintel-sub000/internal/models"
	"github.com/styxali/turfintel-sub000/internal/provider"
)

const (
	formLimit    = 10
	recentWindow = 5
)

// Distance bucket labels.
const (
	BucketShort  = "short"
	BucketMedium = "medium"
	BucketLong   = "long"
)

// RunnerStats is the fully assembled statistical profile of one runner,
// the single input shape every chart function maps over.
type RunnerStats struct {
	Number  int
	Name    string
	Slug    string
	Age     int
	Sex     string
	Jockey  string
	Trainer string
	Weight  float64
	Draw    int
	Odds    float64
	Rating  float64

	Earnings decimal.Decimal

	// Positions parsed from the form string, most recent first, limit 10.
	Positions []int
	// Recent is the most recent 5 entries of the full history.
	Recent  []models.HistoryEntry
	History []models.HistoryEntry

	CareerRaces  int
	CareerWins   int
	CareerPlaces int

	WinRate           float64
	PlaceRate         float64
	DisciplineWinRate float64
	DistanceWinRate   float64
	GroundWinRate     float64
}

// HasPositions reports whether the runner has at least n parsed positions.
func (r *RunnerStats) HasPositions(n int) bool { return len(r.Positions) >= n }

// AveragePosition returns the mean of all parsed positions, 0 without history.
func (r *RunnerStats) AveragePosition() float64 {
	return mean(r.Positions)
}

// assembler builds RunnerStats from the race aggregate and the history
// collaborator.
type assembler struct {
	history    provider.HistoryReader
	thresholds config.AnalyticsConfig
	logger     *logrus.Logger
}

func (a *assembler) assemble(ctx context.Context, race *models.Race) []*RunnerStats {
	stats := make([]*RunnerStats, 0, len(race.Runners))
	for _, runner := range race.Runners {
		stats = append(stats, a.assembleRunner(ctx, race, runner))
	}
	return stats
}

func (a *assembler) assembleRunner(ctx context.Context, race *models.Race, runner *models.Runner) *RunnerStats {
	horse := runner.Horse

	rs := &RunnerStats{
		Number:   runner.Number,
		Name:     horse.Name,
		Slug:     horse.Slug,
		Age:      horse.Age,
		Sex:      horse.Sex,
		Jockey:   runner.Jockey,
		Trainer:  runner.Trainer,
		Weight:   runner.Weight,
		Draw:     runner.Draw,
		Odds:     runner.GetOdds(),
		Rating:   runner.GetRating(),
		Earnings: horse.Earnings,
	}

	rs.Positions = form.Parse(horse.Form, formLimit, "")

	history := horse.History
	careerStats := horse.Stats
	if len(history) == 0 && a.history != nil {
		fetched, fetchedStats, err := a.history.GetHistory(ctx, horse.Slug)
		if err != nil {
			a.logger.WithError(err).WithField("horse", horse.Slug).Debug("No history for runner")
		} else {
			history = fetched
			if careerStats == nil {
				careerStats = fetchedStats
			}
		}
	}
	rs.History = history
	if len(history) > recentWindow {
		rs.Recent = history[:recentWindow]
	} else {
		rs.Recent = history
	}

	if careerStats != nil {
		rs.CareerRaces = careerStats.Races
		rs.CareerWins = careerStats.Wins
		rs.CareerPlaces = careerStats.Places
		rs.WinRate = careerStats.WinRate()
		rs.PlaceRate = careerStats.PlaceRate()
	} else if len(history) > 0 {
		rs.CareerRaces = len(history)
		for _, entry := range history {
			if entry.Position == 1 {
				rs.CareerWins++
			}
			if entry.Position >= 1 && entry.Position <= 3 {
				rs.CareerPlaces++
			}
		}
		rs.WinRate = percent(rs.CareerWins, rs.CareerRaces)
		rs.PlaceRate = percent(rs.CareerPlaces, rs.CareerRaces)
	}

	rs.DisciplineWinRate = bucketWinRate(history, func(e models.HistoryEntry) bool {
		return strings.EqualFold(e.Discipline, race.Discipline)
	})
	raceBucket := a.distanceBucket(race.Discipline, race.Distance)
	rs.DistanceWinRate = bucketWinRate(history, func(e models.HistoryEntry) bool {
		return a.distanceBucket(e.Discipline, e.Distance) == raceBucket
	})
	rs.GroundWinRate = bucketWinRate(history, func(e models.HistoryEntry) bool {
		return race.Ground != "" && strings.EqualFold(e.Ground, race.Ground)
	})

	return rs
}

// distanceBucket classifies a distance into short/medium/long using the
// discipline-specific thresholds.
func (a *assembler) distanceBucket(discipline string, distance int) string {
	var shortMax, mediumMax int
	switch strings.ToLower(discipline) {
	case "trot":
		shortMax, mediumMax = a.thresholds.TrotShortMax, a.thresholds.TrotMediumMax
	case "obstacle", "hurdle", "steeplechase":
		shortMax, mediumMax = a.thresholds.ObstacleShortMax, a.thresholds.ObstacleMedMax
	default:
		shortMax, mediumMax = a.thresholds.FlatShortMax, a.thresholds.FlatMediumMax
	}
	switch {
	case distance <= shortMax:
		return BucketShort
	case distance <= mediumMax:
		return BucketMedium
	default:
		return BucketLong
	}
}

func bucketWinRate(history []models.HistoryEntry, match func(models.HistoryEntry) bool) float64 {
	var runs, wins int
	for _, entry := range history {
		if !match(entry) {
			continue
		}
		runs++
		if entry.Position == 1 {
			wins++
		}
	}
	return percent(wins, runs)
}

func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

func mean(values []int) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0
	for _, v := range values {
		sum += v
	}
	return float64(sum) / float64(len(values))
}

func meanFloat(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stdDev(values []int) float64 {
	if len(values) == 0 {
		return 0
	}
	m := mean(values)
	var sum float64
	for _, v := range values {
		d := float64(v) - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
