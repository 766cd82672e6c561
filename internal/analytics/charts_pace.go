package analytics

import (
	"github.com/styxali/turfintel-sub000/internal/models"
)

// Pace charts derive a speed figure from each parsed position:
// speed = (11 - position) * 10, so a win scores 100 and a 10th-or-worse 10.

const paceWindow = 3

// Pace style labels.
const (
	PaceFrontRunner = "Front-runner"
	PaceCloser      = "Closer"
	PaceBalanced    = "Balanced"
)

func speedFigure(position int) float64 {
	return float64(11-position) * 10
}

// earlyAndLateSpeed averages the speed figures of the first 3 and last 3
// entries of the form sequence.
func earlyAndLateSpeed(positions []int) (early, late float64) {
	figures := make([]float64, len(positions))
	for i, pos := range positions {
		figures[i] = speedFigure(pos)
	}
	return meanFloat(figures[:paceWindow]), meanFloat(figures[len(figures)-paceWindow:])
}

// paceStyle classifies a runner. Front-runner when early speed exceeds the
// finish speed by more than 10 points, Closer in the reverse case.
func paceStyle(positions []int) (style string, diff float64) {
	early, late := earlyAndLateSpeed(positions)
	diff = early - late
	switch {
	case diff > 10:
		return PaceFrontRunner, diff
	case diff < -10:
		return PaceCloser, diff
	default:
		return PaceBalanced, diff
	}
}

func chartPaceStyle(_ *models.Race, runners []*RunnerStats) Chart {
	c := Chart{Name: "pace_style"}
	for _, r := range runners {
		if !r.HasPositions(2 * paceWindow) {
			continue
		}
		style, diff := paceStyle(r.Positions)
		c.Points = append(c.Points, point(r, round1(diff), style))
	}
	return c
}

func chartEarlySpeed(_ *models.Race, runners []*RunnerStats) Chart {
	c := Chart{Name: "early_speed"}
	for _, r := range runners {
		if !r.HasPositions(paceWindow) {
			continue
		}
		figures := make([]float64, paceWindow)
		for i := 0; i < paceWindow; i++ {
			figures[i] = speedFigure(r.Positions[i])
		}
		c.Points = append(c.Points, point(r, round1(meanFloat(figures)), ""))
	}
	return c
}

func chartFinishingKick(_ *models.Race, runners []*RunnerStats) Chart {
	c := Chart{Name: "finishing_kick"}
	for _, r := range runners {
		if !r.HasPositions(2 * paceWindow) {
			continue
		}
		_, late := earlyAndLateSpeed(r.Positions)
		c.Points = append(c.Points, point(r, round1(late), ""))
	}
	return c
}

// chartPacePressure summarizes how contested the early pace is likely to be:
// the share of classifiable runners that are front-runners.
func chartPacePressure(_ *models.Race, runners []*RunnerStats) Chart {
	c := Chart{Name: "pace_pressure", Summary: map[string]float64{}}
	var classified, front int
	for _, r := range runners {
		if !r.HasPositions(2 * paceWindow) {
			continue
		}
		classified++
		if style, _ := paceStyle(r.Positions); style == PaceFrontRunner {
			front++
		}
	}
	c.Summary["classified"] = float64(classified)
	c.Summary["front_runners"] = float64(front)
	c.Summary["pressure"] = round1(percent(front, classified))
	return c
}

func chartFrontRunnerCount(_ *models.Race, runners []*RunnerStats) Chart {
	c := Chart{Name: "front_runner_count", Summary: map[string]float64{}}
	count := 0
	for _, r := range runners {
		if !r.HasPositions(2 * paceWindow) {
			continue
		}
		if style, _ := paceStyle(r.Positions); style == PaceFrontRunner {
			count++
		}
	}
	c.Summary["count"] = float64(count)
	return c
}

// chartClosingStrength measures how much stronger a runner finishes than it
// starts; positive values mark closers.
func chartClosingStrength(_ *models.Race, runners []*RunnerStats) Chart {
	c := Chart{Name: "closing_strength"}
	for _, r := range runners {
		if !r.HasPositions(2 * paceWindow) {
			continue
		}
		early, late := earlyAndLateSpeed(r.Positions)
		label := ""
		if late-early > 10 {
			label = PaceCloser
		}
		c.Points = append(c.Points, point(r, round1(late-early), label))
	}
	return c
}
