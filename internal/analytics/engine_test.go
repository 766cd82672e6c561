package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/styxali/turfintel-sub000/internal/config"
	"github.com/styxali/turfintel-sub000/internal/models"
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
}

func (s *stubHistoryReader) GetHistory(_ context.Context, slug string) ([]models.HistoryEntry, *models.HorseStats, error) {
	history, ok := s.histories[slug]
	if !ok {
		return nil, nil, models.ErrNotFound
	}
	return history, nil, nil
}

func testThresholds() config.AnalyticsConfig {
	return config.AnalyticsConfig{
		FlatShortMax:     1400,
		FlatMediumMax:    2000,
		TrotShortMax:     2100,
		TrotMediumMax:    2700,
		ObstacleShortMax: 3500,
		ObstacleMedMax:   4500,
	}
}

func fullTestRace(guid string) *models.Race {
	odds1, odds2, odds3 := 2.5, 6.0, 15.0
	return &models.Race{
		GUID:       guid,
		Name:       "Prix d'Essai",
		Venue:      "Vincennes",
		Distance:   2700,
		Ground:     "good",
		Discipline: "trot",
		StartTime:  time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC),
		PrizeMoney: decimal.NewFromInt(60000),
		Runners: []*models.Runner{
			{Number: 1, RaceGUID: guid, Jockey: "A", Trainer: "X", Weight: 58, Draw: 1, Odds: &odds1,
				Horse: &models.Horse{Slug: "alpha", Name: "Alpha", Age: 5, Sex: "M", Form: "1t2t1t3t2t1t",
					Earnings: decimal.NewFromInt(300000)}},
			{Number: 2, RaceGUID: guid, Jockey: "B", Trainer: "Y", Weight: 58, Draw: 5, Odds: &odds2,
				Horse: &models.Horse{Slug: "beta", Name: "Beta", Age: 7, Sex: "F", Form: "4t5t3t6t4t5t",
					Earnings: decimal.NewFromInt(120000)}},
			{Number: 3, RaceGUID: guid, Jockey: "C", Trainer: "Z", Weight: 58, Draw: 8, Odds: &odds3,
				Horse: &models.Horse{Slug: "gamma", Name: "Gamma", Age: 4, Sex: "M", Form: "7t",
					Earnings: decimal.NewFromInt(15000)}},
		},
	}
}

func testHistories() map[string][]models.HistoryEntry {
	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }
	return map[string][]models.HistoryEntry{
		"alpha": {
			{Date: day(20), Venue: "Vincennes", Distance: 2700, Position: 1, Discipline: "trot", Ground: "good"},
			{Date: day(10), Venue: "Vincennes", Distance: 2700, Position: 2, Discipline: "trot", Ground: "good"},
			{Date: day(5), Venue: "Caen", Distance: 2450, Position: 1, Discipline: "trot", Ground: "heavy"},
			{Date: day(1), Venue: "Vincennes", Distance: 2850, Position: 3, Discipline: "trot", Ground: "good"},
		},
		"beta": {
			{Date: day(15), Venue: "Enghien", Distance: 2150, Position: 4, Discipline: "trot", Ground: "good"},
			{Date: day(8), Venue: "Enghien", Distance: 2150, Position: 5, Discipline: "trot", Ground: "good"},
			{Date: day(2), Venue: "Caen", Distance: 2450, Position: 3, Discipline: "trot", Ground: "heavy"},
		},
	}
}

func TestComputeChartsBundleShape(t *testing.T) {
	guid := "20240315_R1_C3"
	engine := NewEngine(
		&stubRaceReader{races: map[string]*models.Race{guid: fullTestRace(guid)}},
		&stubHistoryReader{histories: testHistories()},
		testThresholds(),
		logrus.New(),
	)

	bundle, err := engine.ComputeCharts(context.Background(), guid)
	require.NoError(t, err)

	assert.Equal(t, guid, bundle.Overview.GUID)
	assert.Equal(t, 2700, bundle.Overview.Distance)
	assert.Equal(t, 3, bundle.Overview.Runners)
	require.Len(t, bundle.Runners, 3)

	assert.Len(t, bundle.Charts, 50)
	for _, def := range chartRegistry {
		chart, ok := bundle.Charts[def.name]
		require.True(t, ok, "missing chart %s", def.name)
		assert.Equal(t, def.name, chart.Name)
	}
}

func TestComputeChartsExcludesShortHistory(t *testing.T) {
	guid := "20240315_R1_C3"
	engine := NewEngine(
		&stubRaceReader{races: map[string]*models.Race{guid: fullTestRace(guid)}},
		&stubHistoryReader{histories: testHistories()},
		testThresholds(),
		logrus.New(),
	)

	bundle, err := engine.ComputeCharts(context.Background(), guid)
	require.NoError(t, err)

	// Gamma has a single parsed position.
	momentum := bundle.Charts["momentum"]
	for _, p := range momentum.Points {
		assert.NotEqual(t, 3, p.Number, "runner with one run must not appear in momentum")
	}
	assert.True(t, hasPoint(bundle.Charts["average_position"], 3))
}

func TestComputeChartsRaceNotFound(t *testing.T) {
	engine := NewEngine(&stubRaceReader{races: map[string]*models.Race{}}, nil, testThresholds(), logrus.New())

	_, err := engine.ComputeCharts(context.Background(), "20240315_R1_C3")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestComputeChartsMalformedRaceID(t *testing.T) {
	engine := NewEngine(&stubRaceReader{races: map[string]*models.Race{}}, nil, testThresholds(), logrus.New())

	_, err := engine.ComputeCharts(context.Background(), "not-a-race-id")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrMalformedRaceID)
}

func TestDistanceBuckets(t *testing.T) {
	a := &assembler{thresholds: testThresholds()}

	assert.Equal(t, BucketShort, a.distanceBucket("flat", 1200))
	assert.Equal(t, BucketMedium, a.distanceBucket("flat", 1800))
	assert.Equal(t, BucketLong, a.distanceBucket("flat", 2400))

	assert.Equal(t, BucketShort, a.distanceBucket("trot", 2100))
	assert.Equal(t, BucketMedium, a.distanceBucket("trot", 2700))
	assert.Equal(t, BucketLong, a.distanceBucket("trot", 2800))

	assert.Equal(t, BucketShort, a.distanceBucket("obstacle", 3400))
	assert.Equal(t, BucketLong, a.distanceBucket("obstacle", 5000))
}

func TestAssembleRunnerCareerCountsFromHistory(t *testing.T) {
	a := &assembler{
		history:    &stubHistoryReader{histories: testHistories()},
		thresholds: testThresholds(),
		logger:     logrus.New(),
	}
	race := fullTestRace("20240315_R1_C3")

	rs := a.assembleRunner(context.Background(), race, race.Runners[0])

	assert.Equal(t, 4, rs.CareerRaces)
	assert.Equal(t, 2, rs.CareerWins)
	assert.Equal(t, 4, rs.CareerPlaces)
	assert.InDelta(t, 50.0, rs.WinRate, 0.01)
	assert.InDelta(t, 100.0, rs.PlaceRate, 0.01)
	assert.Equal(t, []int{1, 2, 1, 3, 2, 1}, rs.Positions)
	assert.Len(t, rs.Recent, 4)
}
