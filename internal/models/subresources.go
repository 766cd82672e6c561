package models

import "time"

// Pronostic is the expert handicapper's pre-race pick summary.
type Pronostic struct {
	Headline   string `json:"headline"`
	Selections []int  `json:"selections"`
	BasePick   int    `json:"base_pick"`
	Outsider   int    `json:"outsider"`
	Dismissed  []int  `json:"dismissed,omitempty"`
	Comment    string `json:"comment,omitempty"`
}

// JudgeNote is an individual analyst note about one runner.
type JudgeNote struct {
	Number int    `json:"number"`
	Author string `json:"author,omitempty"`
	Text   string `json:"text"`
}

// Interview is a post-race connection interview tied to a runner.
type Interview struct {
	Number  int    `json:"number"`
	Speaker string `json:"speaker"`
	Role    string `json:"role,omitempty"`
	Quote   string `json:"quote"`
}

// Tracking holds GPS sectional-tracking data for a race.
type Tracking struct {
	Sections []TrackingSection `json:"sections"`
	Summary  string            `json:"summary,omitempty"`
}

// TrackingSection is one timed section of the tracking data.
type TrackingSection struct {
	Number   int     `json:"number"`
	TopSpeed float64 `json:"top_speed"`
	AvgSpeed float64 `json:"avg_speed"`
	Distance int     `json:"distance"`
}

// Notule is the narrative post-race analyst report.
type Notule struct {
	Title    string `json:"title,omitempty"`
	Analysis string `json:"analysis"`
	Author   string `json:"author,omitempty"`
}

// ReferenceRace is a historical race sharing characteristics with this one.
type ReferenceRace struct {
	GUID     string    `json:"guid"`
	Name     string    `json:"name"`
	Venue    string    `json:"venue"`
	Date     time.Time `json:"date"`
	Distance int       `json:"distance"`
	Winner   string    `json:"winner,omitempty"`
}

// OddsSnapshot is a point-in-time snapshot of the betting market for a race.
type OddsSnapshot struct {
	Time    time.Time    `json:"time"`
	Entries []RunnerOdds `json:"entries"`
}

// RunnerOdds is one runner's quoted odds within a snapshot.
type RunnerOdds struct {
	Number int     `json:"number"`
	Odds   float64 `json:"odds"`
	Trend  string  `json:"trend,omitempty"`
}

// ImpliedProbability returns the win probability implied by the quoted odds,
// as a percentage. Zero odds yield 0.
func (o RunnerOdds) ImpliedProbability() float64 {
	if o.Odds <= 0 {
		return 0
	}
	return 100 / o.Odds
}
