package analytics

import (
	"sort"
	"strings"

	"github.com/styxali/turfintel-sub000/internal/models"
)

// Value and market charts. All of them require live odds; runners without a
// quote are excluded.

// Value index labels by threshold (0 / 15 / 30).
const (
	ValueNegative = "Overbet"
	ValueFair     = "Fair"
	ValueGood     = "Value"
	ValueStrong   = "Strong value"
)

func valueIndex(r *RunnerStats) float64 {
	return r.WinRate - 100/r.Odds
}

func valueLabel(value float64) string {
	switch {
	case value >= 30:
		return ValueStrong
	case value >= 15:
		return ValueGood
	case value >= 0:
		return ValueFair
	default:
		return ValueNegative
	}
}

func chartValueIndex(_ *models.Race, runners []*RunnerStats) Chart {
	c := Chart{Name: "value_index"}
	for _, r := range runners {
		if r.Odds <= 0 || r.CareerRaces == 0 {
			continue
		}
		v := valueIndex(r)
		c.Points = append(c.Points, point(r, round1(v), valueLabel(v)))
	}
	return c
}

func chartImpliedProbability(_ *models.Race, runners []*RunnerStats) Chart {
	c := Chart{Name: "implied_probability"}
	for _, r := range runners {
		if r.Odds <= 0 {
			continue
		}
		c.Points = append(c.Points, point(r, round1(100/r.Odds), ""))
	}
	return c
}

// chartOddsRank ranks runners by ascending odds, 1 being the favorite.
func chartOddsRank(_ *models.Race, runners []*RunnerStats) Chart {
	c := Chart{Name: "odds_rank"}
	quoted := make([]*RunnerStats, 0, len(runners))
	for _, r := range runners {
		if r.Odds > 0 {
			quoted = append(quoted, r)
		}
	}
	sort.SliceStable(quoted, func(i, j int) bool { return quoted[i].Odds < quoted[j].Odds })
	for rank, r := range quoted {
		label := ""
		if rank == 0 {
			label = "Favorite"
		}
		c.Points = append(c.Points, point(r, float64(rank+1), label))
	}
	return c
}

// chartMarketConfidence normalizes each implied probability by the market
// total, yielding the market's share of belief in each runner.
func chartMarketConfidence(_ *models.Race, runners []*RunnerStats) Chart {
	c := Chart{Name: "market_confidence"}
	var total float64
	for _, r := range runners {
		if r.Odds > 0 {
			total += 100 / r.Odds
		}
	}
	if total == 0 {
		return c
	}
	for _, r := range runners {
		if r.Odds <= 0 {
			continue
		}
		share := (100 / r.Odds) / total * 100
		c.Points = append(c.Points, point(r, round1(share), ""))
	}
	return c
}

// chartOverlayDetection lists only runners whose value index clears the
// "Value" threshold, the candidates the market underestimates.
func chartOverlayDetection(_ *models.Race, runners []*RunnerStats) Chart {
	c := Chart{Name: "overlay_detection"}
	for _, r := range runners {
		if r.Odds <= 0 || r.CareerRaces == 0 {
			continue
		}
		v := valueIndex(r)
		if v < 15 {
			continue
		}
		c.Points = append(c.Points, point(r, round1(v), valueLabel(v)))
	}
	return c
}

// chartPriceMomentum reads the odds snapshot's per-runner trend markers.
func chartPriceMomentum(race *models.Race, runners []*RunnerStats) Chart {
	c := Chart{Name: "price_momentum"}
	if race.Odds == nil {
		return c
	}
	trendByNumber := make(map[int]string, len(race.Odds.Entries))
	for _, entry := range race.Odds.Entries {
		trendByNumber[entry.Number] = entry.Trend
	}
	for _, r := range runners {
		trend, ok := trendByNumber[r.Number]
		if !ok || trend == "" {
			continue
		}
		var value float64
		label := "Steady"
		switch strings.ToLower(trend) {
		case "shortening", "in":
			value, label = 1, "Shortening"
		case "drifting", "out":
			value, label = -1, "Drifting"
		}
		c.Points = append(c.Points, point(r, value, label))
	}
	return c
}

// chartEachWayValue compares the place rate against the implied place
// probability at quarter odds.
func chartEachWayValue(_ *models.Race, runners []*RunnerStats) Chart {
	c := Chart{Name: "each_way_value"}
	for _, r := range runners {
		if r.Odds <= 1 || r.CareerRaces == 0 {
			continue
		}
		placeOdds := (r.Odds-1)/4 + 1
		v := r.PlaceRate - 100/placeOdds
		c.Points = append(c.Points, point(r, round1(v), valueLabel(v)))
	}
	return c
}
