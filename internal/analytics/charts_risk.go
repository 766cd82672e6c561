package analytics

import (
	"math"

	"github.com/styxali/turfintel-sub000/internal/models"
)

// Risk and composite charts.

// chartBounceRisk scores the regression risk of a runner whose most recent
// run was a career best well clear of its own average. Scores are 80, 60,
// 30 or 10 by decreasing strength of evidence.
func chartBounceRisk(_ *models.Race, runners []*RunnerStats) Chart {
	c := Chart{Name: "bounce_risk"}
	for _, r := range runners {
		if !r.HasPositions(recentWindow) {
			continue
		}
		last := r.Positions[0]
		best := minInt(r.Positions)
		avg := r.AveragePosition()
		margin := avg - float64(last)

		uniqueBest := last == best && countOf(r.Positions, best) == 1

		var score float64
		switch {
		case uniqueBest && margin > 3:
			score = 80
		case last == best && margin > 3:
			score = 60
		case last == best && margin > 2:
			score = 30
		default:
			score = 10
		}

		label := "Low risk"
		if score >= 60 {
			label = "Bounce candidate"
		} else if score >= 30 {
			label = "Some risk"
		}
		c.Points = append(c.Points, point(r, score, label))
	}
	return c
}

// chartReliabilityIndex blends place rate and consistency into one
// dependability score.
func chartReliabilityIndex(_ *models.Race, runners []*RunnerStats) Chart {
	c := Chart{Name: "reliability_index"}
	for _, r := range runners {
		if !r.HasPositions(3) || r.CareerRaces == 0 {
			continue
		}
		consistency := math.Max(0, 100-stdDev(r.Positions)*20)
		score := r.PlaceRate*0.5 + consistency*0.5
		c.Points = append(c.Points, point(r, round1(score), ""))
	}
	return c
}

// chartCompositeRating blends win rate, average finish, consistency and
// momentum into a single comparable figure.
func chartCompositeRating(_ *models.Race, runners []*RunnerStats) Chart {
	c := Chart{Name: "composite_rating"}
	for _, r := range runners {
		if !r.HasPositions(6) || r.CareerRaces == 0 {
			continue
		}
		positionScore := (10 - r.AveragePosition()) * 10
		consistency := math.Max(0, 100-stdDev(r.Positions)*20)

		recent := mean(r.Positions[0:3])
		previous := mean(r.Positions[3:6])
		momentum := math.Round(-(recent - previous) * 20)
		// Momentum spans roughly [-100, 100]; rescale to [0, 100].
		momentumScore := math.Max(0, math.Min(100, 50+momentum/2))

		score := r.WinRate*0.3 + positionScore*0.3 + consistency*0.2 + momentumScore*0.2
		c.Points = append(c.Points, point(r, round1(score), ""))
	}
	return c
}

// chartDarkHorse surfaces longshots whose recent form is clearly better
// than their career average, the profile the market is slow to reprice.
func chartDarkHorse(_ *models.Race, runners []*RunnerStats) Chart {
	c := Chart{Name: "dark_horse"}
	for _, r := range runners {
		if r.Odds < 10 || !r.HasPositions(recentWindow) {
			continue
		}
		window := r.Positions
		if len(window) > recentWindow {
			window = window[:recentWindow]
		}
		improvement := r.AveragePosition() - mean(window)
		if improvement < 1 {
			continue
		}
		c.Points = append(c.Points, point(r, round1(improvement), "Dark horse"))
	}
	return c
}

// chartEliminationFlags lists runners whose profile argues against them.
func chartEliminationFlags(_ *models.Race, runners []*RunnerStats) Chart {
	c := Chart{Name: "elimination_flags"}
	for _, r := range runners {
		if !r.HasPositions(3) {
			continue
		}
		window := r.Positions
		if len(window) > recentWindow {
			window = window[:recentWindow]
		}
		recentAvg := mean(window)

		switch {
		case recentAvg >= 8:
			c.Points = append(c.Points, point(r, recentAvg, "Chronic poor form"))
		case runsSinceWin(r.Positions) < 0 && r.CareerRaces > 0 && r.WinRate < 5:
			c.Points = append(c.Points, point(r, r.WinRate, "Rarely wins"))
		}
	}
	return c
}

// chartHeadToHead counts, for each runner, how many rivals it beats on
// recent average position.
func chartHeadToHead(_ *models.Race, runners []*RunnerStats) Chart {
	c := Chart{Name: "head_to_head"}

	recentAvg := make(map[int]float64, len(runners))
	for _, r := range runners {
		if !r.HasPositions(3) {
			continue
		}
		window := r.Positions
		if len(window) > recentWindow {
			window = window[:recentWindow]
		}
		recentAvg[r.Number] = mean(window)
	}

	for _, r := range runners {
		own, ok := recentAvg[r.Number]
		if !ok {
			continue
		}
		beaten := 0
		for number, rivalAvg := range recentAvg {
			if number != r.Number && own < rivalAvg {
				beaten++
			}
		}
		c.Points = append(c.Points, point(r, float64(beaten), ""))
	}
	return c
}

func countOf(values []int, target int) int {
	n := 0
	for _, v := range values {
		if v == target {
			n++
		}
	}
	return n
}
