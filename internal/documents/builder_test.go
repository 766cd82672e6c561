package documents

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/styxali/turfintel-sub000/internal/models"
	"github.com/styxali/turfintel-sub000/internal/vectorstore"
)

type stubRaceReader struct {
	races map[string]*models.Race
}

func (s *stubRaceReader) GetRace(_ context.Context, guid string) (*models.Race, error) {
	race, ok := s.races[guid]
	if !ok {
		return nil, models.ErrNotFound
	}
	return race, nil
}

type stubHistoryReader struct {
	histories map[string][]models.HistoryEntry
	stats     map[string]*models.HorseStats
}

func (s *stubHistoryReader) GetHistory(_ context.Context, slug string) ([]models.HistoryEntry, *models.HorseStats, error) {
	history, ok := s.histories[slug]
	if !ok {
		return nil, nil, models.ErrNotFound
	}
	return history, s.stats[slug], nil
}

type stubEmbedder struct {
	dim      int
	failWord string
	calls    int
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	s.calls++
	if s.failWord != "" && strings.Contains(text, s.failWord) {
		return nil, errors.New("embedding service unavailable")
	}
	vec := make([]float32, s.dim)
	for i, r := range text {
		vec[i%s.dim] += float32(r) / 1000
	}
	return vec, nil
}

func (s *stubEmbedder) Dimension() int { return s.dim }

func testRace(guid string, runners int) *models.Race {
	race := &models.Race{
		GUID:       guid,
		Name:       "Prix de Test",
		Venue:      "Vincennes",
		Distance:   2700,
		Ground:     "good",
		Discipline: "trot",
		StartTime:  time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC),
		PrizeMoney: decimal.NewFromInt(52000),
		Category:   "Groupe III",
	}
	names := []string{"Hooker Berry", "Idao de Tillard", "Go On Boy", "Vivid Wise As"}
	for i := 0; i < runners; i++ {
		race.Runners = append(race.Runners, &models.Runner{
			Number:   i + 1,
			RaceGUID: guid,
			Horse: &models.Horse{
				Slug: "horse-" + string(rune('a'+i)),
				Name: names[i%len(names)],
				Age:  5 + i,
				Sex:  "M",
				Form: "1p3p5p",
			},
			Jockey:  "E. Raffin",
			Trainer: "T. Duvaldestin",
			Weight:  58.5,
			Draw:    i + 1,
		})
	}
	return race
}

func newTestBuilder(t *testing.T, races *stubRaceReader, history *stubHistoryReader) (*Builder, *vectorstore.Registry) {
	t.Helper()
	embedder := &stubEmbedder{dim: 8}
	logger := logrus.New()
	registry := vectorstore.NewRegistry(t.TempDir(), embedder, logger)
	t.Cleanup(func() { registry.Close() })

	var builder *Builder
	if history != nil {
		builder = NewBuilder(races, history, registry, embedder, logger)
	} else {
		builder = NewBuilder(races, nil, registry, embedder, logger)
	}
	return builder, registry
}

func TestIngestRaceThreeRunnersNoExtras(t *testing.T) {
	guid := "20240315_R1_C3"
	races := &stubRaceReader{races: map[string]*models.Race{guid: testRace(guid, 3)}}
	builder, registry := newTestBuilder(t, races, nil)

	count, err := builder.IngestRace(context.Background(), guid)
	require.NoError(t, err)
	assert.Equal(t, 4, count, "1 overview + 3 runner documents")

	store, err := registry.Get(guid)
	require.NoError(t, err)
	stored, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, stored)

	results, err := store.SimilaritySearch(context.Background(), "distance", 5, guid)
	require.NoError(t, err)
	require.Len(t, results, 4)

	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.Document.ID)
	}
	assert.Contains(t, ids, guid+"_overview")
	assert.Contains(t, ids, guid+"_horse_1")
	assert.Contains(t, ids, guid+"_horse_2")
	assert.Contains(t, ids, guid+"_horse_3")
}

func TestIngestRaceIdempotent(t *testing.T) {
	guid := "20240315_R1_C3"
	races := &stubRaceReader{races: map[string]*models.Race{guid: testRace(guid, 3)}}
	builder, registry := newTestBuilder(t, races, nil)

	first, err := builder.IngestRace(context.Background(), guid)
	require.NoError(t, err)
	second, err := builder.IngestRace(context.Background(), guid)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	store, err := registry.Get(guid)
	require.NoError(t, err)
	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, count, "re-ingestion must replace, not accumulate")
}

func TestIngestRaceNotFound(t *testing.T) {
	races := &stubRaceReader{races: map[string]*models.Race{}}
	builder, _ := newTestBuilder(t, races, nil)

	_, err := builder.IngestRace(context.Background(), "20240315_R1_C3")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestIngestRaceWithSubResources(t *testing.T) {
	guid := "20240315_R2_C7"
	race := testRace(guid, 2)
	race.Pronostic = &models.Pronostic{
		Headline:   "Idao holds the key",
		Selections: []int{1, 2},
		BasePick:   1,
		Outsider:   2,
	}
	race.Notes = []models.JudgeNote{
		{Number: 1, Author: "Le Juge", Text: "Went wide at the top of the stretch."},
	}
	race.Interviews = []models.Interview{
		{Number: 2, Speaker: "T. Duvaldestin", Role: "trainer", Quote: "He is coming back to his best."},
	}
	race.References = []models.ReferenceRace{
		{GUID: "20230315_R2_C7", Name: "Prix de Test 2023", Venue: "Vincennes",
			Date: time.Date(2023, 3, 15, 0, 0, 0, 0, time.UTC), Distance: 2700, Winner: "Hooker Berry"},
	}
	race.Tracking = &models.Tracking{
		Summary: "Fast early pace",
		Sections: []models.TrackingSection{
			{Number: 1, TopSpeed: 61.2, AvgSpeed: 52.4, Distance: 500},
		},
	}
	race.Notule = &models.Notule{Title: "Race review", Analysis: "Tactical affair won off a slow pace."}

	races := &stubRaceReader{races: map[string]*models.Race{guid: race}}
	builder, _ := newTestBuilder(t, races, nil)

	count, err := builder.IngestRace(context.Background(), guid)
	require.NoError(t, err)
	// overview + 2 runners + pronostic + note + interview + reference + tracking + notule
	assert.Equal(t, 9, count)
}

func TestIngestRaceHistoryAndStatsDocuments(t *testing.T) {
	guid := "20240315_R1_C1"
	race := testRace(guid, 2)
	races := &stubRaceReader{races: map[string]*models.Race{guid: race}}
	history := &stubHistoryReader{
		histories: map[string][]models.HistoryEntry{
			"horse-a": {
				{Date: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), Venue: "Vincennes", Distance: 2700, Position: 1, Discipline: "trot", Ground: "good"},
				{Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Venue: "Caen", Distance: 2450, Position: 3, Discipline: "trot", Ground: "heavy"},
			},
		},
		stats: map[string]*models.HorseStats{
			"horse-a": {Races: 20, Wins: 6, Places: 11},
		},
	}
	builder, _ := newTestBuilder(t, races, history)

	count, err := builder.IngestRace(context.Background(), guid)
	require.NoError(t, err)
	// overview + 2 runners + history + stats for horse-a; horse-b has no history
	assert.Equal(t, 5, count)
}

func TestIngestRaceEmbeddingFailureAbortsBatch(t *testing.T) {
	guid := "20240315_R1_C3"
	races := &stubRaceReader{races: map[string]*models.Race{guid: testRace(guid, 3)}}
	embedder := &stubEmbedder{dim: 8, failWord: "Jockey"}
	logger := logrus.New()
	registry := vectorstore.NewRegistry(t.TempDir(), embedder, logger)
	t.Cleanup(func() { registry.Close() })
	builder := NewBuilder(races, nil, registry, embedder, logger)

	_, err := builder.IngestRace(context.Background(), guid)
	require.Error(t, err)

	store, err := registry.Get(guid)
	require.NoError(t, err)
	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count, "no partial document set may be committed")
}

func TestOverviewContentLabeledLines(t *testing.T) {
	race := testRace("20240315_R1_C3", 3)
	content := overviewContent(race)

	assert.Contains(t, content, "Race: Prix de Test")
	assert.Contains(t, content, "Distance: 2700m")
	assert.Contains(t, content, "Runners: 3")

	lines := []string{"Race:", "Venue:", "Date:", "Time:", "Distance:", "Ground:", "Discipline:", "Category:", "Prize:", "Runners:"}
	prev := -1
	for _, label := range lines {
		idx := strings.Index(content, label)
		require.GreaterOrEqual(t, idx, 0, "missing label %s", label)
		assert.Greater(t, idx, prev, "label order must be stable: %s", label)
		prev = idx
	}
}
