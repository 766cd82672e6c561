package analytics

import (
	"math"

	"github.com/styxali/turfintel-sub000/internal/models"
)

// Form and trend charts. All of them map over the parsed form positions
// (most recent first) or the career counters.

func chartWinRate(_ *models.Race, runners []*RunnerStats) Chart {
	c := Chart{Name: "win_rate"}
	for _, r := range runners {
		if r.CareerRaces == 0 {
			continue
		}
		c.Points = append(c.Points, point(r, round1(r.WinRate), ""))
	}
	return c
}

func chartPlaceRate(_ *models.Race, runners []*RunnerStats) Chart {
	c := Chart{Name: "place_rate"}
	for _, r := range runners {
		if r.CareerRaces == 0 {
			continue
		}
		c.Points = append(c.Points, point(r, round1(r.PlaceRate), ""))
	}
	return c
}

func chartAveragePosition(_ *models.Race, runners []*RunnerStats) Chart {
	c := Chart{Name: "average_position"}
	for _, r := range runners {
		if !r.HasPositions(1) {
			continue
		}
		c.Points = append(c.Points, point(r, round1(r.AveragePosition()), ""))
	}
	return c
}

// chartConsistency scores how tightly grouped a runner's finishes are:
// max(0, 100 - stdDev*20).
func chartConsistency(_ *models.Race, runners []*RunnerStats) Chart {
	c := Chart{Name: "consistency"}
	for _, r := range runners {
		if !r.HasPositions(3) {
			continue
		}
		score := math.Max(0, 100-stdDev(r.Positions)*20)
		c.Points = append(c.Points, point(r, round1(score), ""))
	}
	return c
}

// chartMomentum compares the last 3 runs against the 3 before them:
// round(-(recentAvg - previousAvg) * 20). Positive means improving.
func chartMomentum(_ *models.Race, runners []*RunnerStats) Chart {
	c := Chart{Name: "momentum"}
	for _, r := range runners {
		if !r.HasPositions(6) {
			continue
		}
		recent := mean(r.Positions[0:3])
		previous := mean(r.Positions[3:6])
		momentum := math.Round(-(recent - previous) * 20)

		label := "Stable"
		if momentum > 10 {
			label = "Improving"
		} else if momentum < -10 {
			label = "Declining"
		}
		c.Points = append(c.Points, point(r, momentum, label))
	}
	return c
}

// chartFormTrend fits a least-squares slope to position over recency index.
// A positive slope means older runs were worse, i.e. the runner is improving.
func chartFormTrend(_ *models.Race, runners []*RunnerStats) Chart {
	c := Chart{Name: "form_trend"}
	for _, r := range runners {
		if !r.HasPositions(3) {
			continue
		}
		slope := regressionSlope(r.Positions)
		label := "Flat"
		if slope > 0.2 {
			label = "Improving"
		} else if slope < -0.2 {
			label = "Declining"
		}
		c.Points = append(c.Points, point(r, round1(slope), label))
	}
	return c
}

func chartRecentForm(_ *models.Race, runners []*RunnerStats) Chart {
	c := Chart{Name: "recent_form"}
	for _, r := range runners {
		if !r.HasPositions(3) {
			continue
		}
		window := r.Positions
		if len(window) > recentWindow {
			window = window[:recentWindow]
		}
		c.Points = append(c.Points, point(r, round1(mean(window)), ""))
	}
	return c
}

func chartBestRecentPosition(_ *models.Race, runners []*RunnerStats) Chart {
	c := Chart{Name: "best_recent_position"}
	for _, r := range runners {
		if !r.HasPositions(1) {
			continue
		}
		window := r.Positions
		if len(window) > recentWindow {
			window = window[:recentWindow]
		}
		c.Points = append(c.Points, point(r, float64(minInt(window)), ""))
	}
	return c
}

func chartPeakPerformance(_ *models.Race, runners []*RunnerStats) Chart {
	c := Chart{Name: "peak_performance"}
	for _, r := range runners {
		if !r.HasPositions(recentWindow) {
			continue
		}
		best := minInt(r.Positions)
		label := ""
		if best == 1 {
			label = "Proven winner"
		}
		c.Points = append(c.Points, point(r, float64(best), label))
	}
	return c
}

// chartFormCycle reports the number of runs since the last win in the parsed
// window. Runners who never won inside the window are excluded.
func chartFormCycle(_ *models.Race, runners []*RunnerStats) Chart {
	c := Chart{Name: "form_cycle"}
	for _, r := range runners {
		if !r.HasPositions(3) {
			continue
		}
		since := runsSinceWin(r.Positions)
		if since < 0 {
			continue
		}
		label := "Recent winner"
		if since > 5 {
			label = "Win overdue"
		} else if since > 2 {
			label = "Between wins"
		}
		c.Points = append(c.Points, point(r, float64(since), label))
	}
	return c
}

// chartImprovementRate compares the older half of the window against the
// recent half, as a percentage of the older average.
func chartImprovementRate(_ *models.Race, runners []*RunnerStats) Chart {
	c := Chart{Name: "improvement_rate"}
	for _, r := range runners {
		if !r.HasPositions(4) {
			continue
		}
		half := len(r.Positions) / 2
		recent := mean(r.Positions[:half])
		older := mean(r.Positions[half:])
		if older == 0 {
			continue
		}
		rate := (older - recent) / older * 100
		c.Points = append(c.Points, point(r, round1(rate), ""))
	}
	return c
}

func chartVolatility(_ *models.Race, runners []*RunnerStats) Chart {
	c := Chart{Name: "volatility"}
	for _, r := range runners {
		if !r.HasPositions(3) {
			continue
		}
		c.Points = append(c.Points, point(r, round1(stdDev(r.Positions)), ""))
	}
	return c
}

// chartColdStreak counts consecutive runs without a top-3 finish, starting
// from the most recent.
func chartColdStreak(_ *models.Race, runners []*RunnerStats) Chart {
	c := Chart{Name: "cold_streak"}
	for _, r := range runners {
		if !r.HasPositions(3) {
			continue
		}
		streak := 0
		for _, pos := range r.Positions {
			if pos <= 3 {
				break
			}
			streak++
		}
		label := ""
		if streak >= 5 {
			label = "Out of form"
		}
		c.Points = append(c.Points, point(r, float64(streak), label))
	}
	return c
}

// chartWinDrought counts runs since the last win; a runner with no win in
// the window scores the full window length.
func chartWinDrought(_ *models.Race, runners []*RunnerStats) Chart {
	c := Chart{Name: "win_drought"}
	for _, r := range runners {
		if !r.HasPositions(3) {
			continue
		}
		since := runsSinceWin(r.Positions)
		label := ""
		if since < 0 {
			since = len(r.Positions)
			label = "No win in window"
		}
		c.Points = append(c.Points, point(r, float64(since), label))
	}
	return c
}

// runsSinceWin returns the number of runs before the most recent win, or -1
// when the window holds no win.
func runsSinceWin(positions []int) int {
	for i, pos := range positions {
		if pos == 1 {
			return i
		}
	}
	return -1
}

func minInt(values []int) int {
	best := values[0]
	for _, v := range values[1:] {
		if v < best {
			best = v
		}
	}
	return best
}

// regressionSlope fits position against recency index (0 = most recent).
func regressionSlope(positions []int) float64 {
	n := float64(len(positions))
	var sumX, sumY, sumXY, sumXX float64
	for i, pos := range positions {
		x := float64(i)
		y := float64(pos)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}
