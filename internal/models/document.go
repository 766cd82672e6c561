package models

import "fmt"

// Document types stored in a race's vector store.
const (
	DocTypeRaceOverview  = "race_overview"
	DocTypeHorse         = "horse"
	DocTypePronostic     = "pronostic"
	DocTypeNote          = "note"
	DocTypeInterview     = "interview"
	DocTypeHorseHistory  = "horse_history"
	DocTypeHorseStats    = "horse_stats"
	DocTypeReferenceRace = "reference_race"
	DocTypeTracking      = "tracking"
	DocTypeNotule        = "notule"
)

// VectorDocument is an atomic retrievable unit in a race's vector store.
// Immutable once written; re-ingestion replaces it wholesale by ID.
type VectorDocument struct {
	ID        string    `db:"id" json:"id"`
	Content   string    `db:"content" json:"content"`
	Embedding []float32 `db:"-" json:"-"`
	Type      string    `db:"doc_type" json:"type"`
	RaceGUID  string    `db:"race_guid" json:"race_guid"`
	HorseSlug string    `db:"horse_slug" json:"horse_slug,omitempty"`
	Number    int       `db:"number" json:"number,omitempty"`
}

// Deterministic document ID constructors. These IDs are the upsert key:
// re-using them on re-ingestion is how idempotent replacement works.

func OverviewDocID(raceGUID string) string  { return raceGUID + "_overview" }
func PronosticDocID(raceGUID string) string { return raceGUID + "_pronostic" }
func TrackingDocID(raceGUID string) string  { return raceGUID + "_tracking" }
func NotuleDocID(raceGUID string) string    { return raceGUID + "_notule" }

func HorseDocID(raceGUID string, number int) string {
	return fmt.Sprintf("%s_horse_%d", raceGUID, number)
}

func NoteDocID(raceGUID string, number int) string {
	return fmt.Sprintf("%s_note_%d", raceGUID, number)
}

func InterviewDocID(raceGUID string, number int) string {
	return fmt.Sprintf("%s_interview_%d", raceGUID, number)
}

func HistoryDocID(raceGUID string, number int) string {
	return fmt.Sprintf("%s_history_%d", raceGUID, number)
}

func StatsDocID(raceGUID string, number int) string {
	return fmt.Sprintf("%s_stats_%d", raceGUID, number)
}

func ReferenceDocID(raceGUID string, index int) string {
	return fmt.Sprintf("%s_reference_%d", raceGUID, index)
}
