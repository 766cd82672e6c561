package analytics

import (
	"github.com/styxali/turfintel-sub000/internal/models"
)

// ChartPoint is one runner's value in a chart. Runners lacking the chart's
// minimum history are absent, never zero-filled.
type ChartPoint struct {
	Number int     `json:"number"`
	Horse  string  `json:"horse"`
	Value  float64 `json:"value"`
	Label  string  `json:"label,omitempty"`
}

// Chart is one named analytics output: either a per-runner point series, a
// scalar summary, or both.
type Chart struct {
	Name    string             `json:"name"`
	Points  []ChartPoint       `json:"points,omitempty"`
	Summary map[string]float64 `json:"summary,omitempty"`
}

// chartFunc computes one chart from the assembled runner stats. Pure; no
// chart may mutate the stats it maps over.
type chartFunc func(race *models.Race, runners []*RunnerStats) Chart

type chartDef struct {
	name string
	fn   chartFunc
}

// chartRegistry lists every chart in bundle order.
var chartRegistry = []chartDef{
	// Form and trend
	{"win_rate", chartWinRate},
	{"place_rate", chartPlaceRate},
	{"average_position", chartAveragePosition},
	{"consistency", chartConsistency},
	{"momentum", chartMomentum},
	{"form_trend", chartFormTrend},
	{"recent_form", chartRecentForm},
	{"best_recent_position", chartBestRecentPosition},
	{"peak_performance", chartPeakPerformance},
	{"form_cycle", chartFormCycle},
	{"improvement_rate", chartImprovementRate},
	{"volatility", chartVolatility},
	{"cold_streak", chartColdStreak},
	{"win_drought", chartWinDrought},
	// Pace and running style
	{"pace_style", chartPaceStyle},
	{"early_speed", chartEarlySpeed},
	{"finishing_kick", chartFinishingKick},
	{"pace_pressure", chartPacePressure},
	{"front_runner_count", chartFrontRunnerCount},
	{"closing_strength", chartClosingStrength},
	// Value and market
	{"value_index", chartValueIndex},
	{"implied_probability", chartImpliedProbability},
	{"odds_rank", chartOddsRank},
	{"market_confidence", chartMarketConfidence},
	{"overlay_detection", chartOverlayDetection},
	{"price_momentum", chartPriceMomentum},
	{"each_way_value", chartEachWayValue},
	// Specialization
	{"distance_specialization", chartDistanceSpecialization},
	{"ground_specialization", chartGroundSpecialization},
	{"track_specialization", chartTrackSpecialization},
	{"discipline_win_rate", chartDisciplineWinRate},
	{"distance_range", chartDistanceRange},
	{"class_level", chartClassLevel},
	{"seasonal_form", chartSeasonalForm},
	{"first_time_track", chartFirstTimeTrack},
	{"layoff_performance", chartLayoffPerformance},
	// Bias and physical
	{"draw_bias", chartDrawBias},
	{"weight_burden", chartWeightBurden},
	{"weight_per_rating", chartWeightPerRating},
	{"age_profile", chartAgeProfile},
	{"sex_distribution", chartSexDistribution},
	{"earnings_per_start", chartEarningsPerStart},
	{"career_earnings", chartCareerEarnings},
	{"experience_level", chartExperienceLevel},
	// Risk and composite
	{"bounce_risk", chartBounceRisk},
	{"reliability_index", chartReliabilityIndex},
	{"composite_rating", chartCompositeRating},
	{"dark_horse", chartDarkHorse},
	{"elimination_flags", chartEliminationFlags},
	{"head_to_head", chartHeadToHead},
}

func point(r *RunnerStats, value float64, label string) ChartPoint {
	return ChartPoint{Number: r.Number, Horse: r.Name, Value: value, Label: label}
}
