package analytics

import (
	"strings"

	"github.com/styxali/turfintel-sub000/internal/models"
)

// Specialization charts compare each runner's record under today's
// conditions (distance bucket, ground, venue, discipline, season) against
// its overall record. They all need the full history, not just the parsed
// form string.

// minBucketRuns is the minimum number of qualifying past runs before a
// condition-specific rate is considered meaningful.
const minBucketRuns = 2

func countMatching(history []models.HistoryEntry, match func(models.HistoryEntry) bool) (runs, wins int) {
	for _, entry := range history {
		if !match(entry) {
			continue
		}
		runs++
		if entry.Position == 1 {
			wins++
		}
	}
	return runs, wins
}

func specializationChart(name string, runners []*RunnerStats, match func(*RunnerStats, models.HistoryEntry) bool) Chart {
	c := Chart{Name: name}
	for _, r := range runners {
		runner := r
		runs, wins := countMatching(r.History, func(e models.HistoryEntry) bool {
			return match(runner, e)
		})
		if runs < minBucketRuns {
			continue
		}
		c.Points = append(c.Points, point(r, round1(percent(wins, runs)), ""))
	}
	return c
}

func chartDistanceSpecialization(_ *models.Race, runners []*RunnerStats) Chart {
	c := Chart{Name: "distance_specialization"}
	for _, r := range runners {
		if len(r.History) < minBucketRuns {
			continue
		}
		// DistanceWinRate was bucketed against today's distance at
		// assembly time.
		c.Points = append(c.Points, point(r, round1(r.DistanceWinRate), ""))
	}
	return c
}

func chartGroundSpecialization(race *models.Race, runners []*RunnerStats) Chart {
	if race.Ground == "" {
		return Chart{Name: "ground_specialization"}
	}
	return specializationChart("ground_specialization", runners, func(_ *RunnerStats, e models.HistoryEntry) bool {
		return strings.EqualFold(e.Ground, race.Ground)
	})
}

func chartTrackSpecialization(race *models.Race, runners []*RunnerStats) Chart {
	return specializationChart("track_specialization", runners, func(_ *RunnerStats, e models.HistoryEntry) bool {
		return strings.EqualFold(e.Venue, race.Venue)
	})
}

func chartDisciplineWinRate(race *models.Race, runners []*RunnerStats) Chart {
	return specializationChart("discipline_win_rate", runners, func(_ *RunnerStats, e models.HistoryEntry) bool {
		return strings.EqualFold(e.Discipline, race.Discipline)
	})
}

// chartDistanceRange measures the spread of distances a runner has raced
// over. A narrow range marks a specialist.
func chartDistanceRange(_ *models.Race, runners []*RunnerStats) Chart {
	c := Chart{Name: "distance_range"}
	for _, r := range runners {
		if len(r.History) < 3 {
			continue
		}
		lo, hi := r.History[0].Distance, r.History[0].Distance
		for _, e := range r.History[1:] {
			if e.Distance < lo {
				lo = e.Distance
			}
			if e.Distance > hi {
				hi = e.Distance
			}
		}
		label := "Specialist"
		if hi-lo > 600 {
			label = "Versatile"
		}
		c.Points = append(c.Points, point(r, float64(hi-lo), label))
	}
	return c
}

// chartClassLevel proxies class with earnings per start, relative to the
// field average.
func chartClassLevel(_ *models.Race, runners []*RunnerStats) Chart {
	c := Chart{Name: "class_level"}
	perStart := make(map[int]float64, len(runners))
	var total float64
	var counted int
	for _, r := range runners {
		if r.CareerRaces == 0 {
			continue
		}
		eps, _ := r.Earnings.Float64()
		eps /= float64(r.CareerRaces)
		perStart[r.Number] = eps
		total += eps
		counted++
	}
	if counted == 0 {
		return c
	}
	fieldAvg := total / float64(counted)
	for _, r := range runners {
		eps, ok := perStart[r.Number]
		if !ok {
			continue
		}
		label := "Below field average"
		if eps >= fieldAvg {
			label = "Above field average"
		}
		c.Points = append(c.Points, point(r, round1(eps), label))
	}
	return c
}

// chartSeasonalForm is the win rate in the same quarter of the year as
// today's race.
func chartSeasonalForm(race *models.Race, runners []*RunnerStats) Chart {
	quarter := (int(race.StartTime.Month()) - 1) / 3
	return specializationChart("seasonal_form", runners, func(_ *RunnerStats, e models.HistoryEntry) bool {
		return (int(e.Date.Month())-1)/3 == quarter
	})
}

// chartFirstTimeTrack flags runners with no previous run at today's venue.
func chartFirstTimeTrack(race *models.Race, runners []*RunnerStats) Chart {
	c := Chart{Name: "first_time_track"}
	for _, r := range runners {
		if len(r.History) == 0 {
			continue
		}
		runs, _ := countMatching(r.History, func(e models.HistoryEntry) bool {
			return strings.EqualFold(e.Venue, race.Venue)
		})
		if runs > 0 {
			continue
		}
		c.Points = append(c.Points, point(r, 1, "First time at track"))
	}
	return c
}

// chartLayoffPerformance reports days since the last run.
func chartLayoffPerformance(race *models.Race, runners []*RunnerStats) Chart {
	c := Chart{Name: "layoff_performance"}
	for _, r := range runners {
		if len(r.History) == 0 || r.History[0].Date.IsZero() {
			continue
		}
		days := daysBetween(r.History[0].Date, race.StartTime)
		if days < 0 {
			continue
		}
		label := "Race fit"
		if days > 90 {
			label = "Long layoff"
		} else if days > 45 {
			label = "Freshened"
		}
		c.Points = append(c.Points, point(r, float64(days), label))
	}
	return c
}
