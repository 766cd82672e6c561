package analytics

import (
	"strings"

	"github.com/styxali/turfintel-sub000/internal/models"
)

// Bias and physical-profile charts.

func chartDrawBias(race *models.Race, runners []*RunnerStats) Chart {
	c := Chart{Name: "draw_bias"}
	field := len(race.Runners)
	for _, r := range runners {
		if r.Draw <= 0 {
			continue
		}
		label := "Middle draw"
		if r.Draw <= 4 {
			label = "Inside draw"
		} else if field > 0 && r.Draw > field*2/3 {
			label = "Outside draw"
		}
		c.Points = append(c.Points, point(r, float64(r.Draw), label))
	}
	return c
}

func chartWeightBurden(_ *models.Race, runners []*RunnerStats) Chart {
	c := Chart{Name: "weight_burden"}
	var total float64
	var counted int
	for _, r := range runners {
		if r.Weight > 0 {
			total += r.Weight
			counted++
		}
	}
	if counted == 0 {
		return c
	}
	fieldAvg := total / float64(counted)
	for _, r := range runners {
		if r.Weight <= 0 {
			continue
		}
		label := "Below field average"
		if r.Weight >= fieldAvg {
			label = "Above field average"
		}
		c.Points = append(c.Points, point(r, round1(r.Weight), label))
	}
	return c
}

// chartWeightPerRating relates carried weight to official rating; lower is
// better treated.
func chartWeightPerRating(_ *models.Race, runners []*RunnerStats) Chart {
	c := Chart{Name: "weight_per_rating"}
	for _, r := range runners {
		if r.Weight <= 0 || r.Rating <= 0 {
			continue
		}
		c.Points = append(c.Points, point(r, round1(r.Weight/r.Rating*100), ""))
	}
	return c
}

func chartAgeProfile(_ *models.Race, runners []*RunnerStats) Chart {
	c := Chart{Name: "age_profile"}
	for _, r := range runners {
		if r.Age <= 0 {
			continue
		}
		label := "Prime"
		if r.Age <= 4 {
			label = "Young"
		} else if r.Age >= 9 {
			label = "Veteran"
		}
		c.Points = append(c.Points, point(r, float64(r.Age), label))
	}
	return c
}

// chartSexDistribution summarizes the field composition by sex.
func chartSexDistribution(_ *models.Race, runners []*RunnerStats) Chart {
	c := Chart{Name: "sex_distribution", Summary: map[string]float64{}}
	for _, r := range runners {
		sex := strings.ToUpper(strings.TrimSpace(r.Sex))
		if sex == "" {
			sex = "UNKNOWN"
		}
		c.Summary[sex]++
	}
	return c
}

func chartEarningsPerStart(_ *models.Race, runners []*RunnerStats) Chart {
	c := Chart{Name: "earnings_per_start"}
	for _, r := range runners {
		if r.CareerRaces == 0 {
			continue
		}
		earnings, _ := r.Earnings.Float64()
		c.Points = append(c.Points, point(r, round1(earnings/float64(r.CareerRaces)), ""))
	}
	return c
}

func chartCareerEarnings(_ *models.Race, runners []*RunnerStats) Chart {
	c := Chart{Name: "career_earnings"}
	for _, r := range runners {
		earnings, _ := r.Earnings.Float64()
		if earnings <= 0 {
			continue
		}
		c.Points = append(c.Points, point(r, earnings, ""))
	}
	return c
}

func chartExperienceLevel(_ *models.Race, runners []*RunnerStats) Chart {
	c := Chart{Name: "experience_level"}
	for _, r := range runners {
		if r.CareerRaces == 0 {
			continue
		}
		label := "Seasoned"
		if r.CareerRaces < 5 {
			label = "Novice"
		} else if r.CareerRaces > 20 {
			label = "Veteran"
		}
		c.Points = append(c.Points, point(r, float64(r.CareerRaces), label))
	}
	return c
}
