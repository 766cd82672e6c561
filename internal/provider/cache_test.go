package provider

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/styxali/turfintel-sub000/internal/models"
)

type stubRaceReader struct {
	races map[string]*models.Race
	calls int
}

func (s *stubRaceReader) GetRace(_ context.Context, guid string) (*models.Race, error) {
	s.calls++
	race, ok := s.races[guid]
	if !ok {
		return nil, models.ErrNotFound
	}
	return race, nil
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func floatPtr(f float64) *float64 { return &f }

func testRace(guid string) *models.Race {
	return &models.Race{
		GUID:       guid,
		Name:       "Prix du Test",
		Venue:      "Vincennes",
		Distance:   2700,
		Discipline: "trot",
		StartTime:  time.Now().Add(time.Hour),
		Runners: []*models.Runner{
			{Number: 1, RaceGUID: guid, Horse: &models.Horse{Name: "Alpha"}, Odds: floatPtr(3.5)},
			{Number: 2, RaceGUID: guid, Horse: &models.Horse{Name: "Beta"}, Odds: floatPtr(8.0)},
		},
	}
}

func TestCachedRaceReaderReadThrough(t *testing.T) {
	const guid = "20240315_R1_C1"
	upstream := &stubRaceReader{races: map[string]*models.Race{guid: testRace(guid)}}
	reader := NewCachedRaceReader(upstream, nil, time.Minute, testLogger())

	ctx := context.Background()
	first, err := reader.GetRace(ctx, guid)
	require.NoError(t, err)
	second, err := reader.GetRace(ctx, guid)
	require.NoError(t, err)

	assert.Equal(t, 1, upstream.calls, "second read must hit the cache")
	assert.Equal(t, first.GUID, second.GUID)
}

func TestApplyOddsUpdateRefreshesCachedRace(t *testing.T) {
	const guid = "20240315_R1_C1"
	upstream := &stubRaceReader{races: map[string]*models.Race{guid: testRace(guid)}}
	reader := NewCachedRaceReader(upstream, nil, time.Minute, testLogger())

	ctx := context.Background()
	stale, err := reader.GetRace(ctx, guid)
	require.NoError(t, err)

	at := time.Now()
	applied := reader.ApplyOddsUpdate(guid, at, []models.RunnerOdds{
		{Number: 1, Odds: 2.8, Trend: "shortening"},
		{Number: 2, Odds: 9.5, Trend: "drifting"},
	})
	require.True(t, applied)

	fresh, err := reader.GetRace(ctx, guid)
	require.NoError(t, err)
	require.NotNil(t, fresh.Odds)
	assert.Equal(t, at, fresh.Odds.Time)
	require.Len(t, fresh.Odds.Entries, 2)
	assert.Equal(t, "shortening", fresh.Odds.Entries[0].Trend)
	assert.Equal(t, 2.8, fresh.RunnerByNumber(1).GetOdds())
	assert.Equal(t, 9.5, fresh.RunnerByNumber(2).GetOdds())

	// The aggregate handed out before the update must not change under
	// a concurrent reader's feet.
	assert.Nil(t, stale.Odds)
	assert.Equal(t, 3.5, stale.RunnerByNumber(1).GetOdds())
	assert.Equal(t, 1, upstream.calls, "update must not trigger a refetch")
}

func TestApplyOddsUpdateUncachedRace(t *testing.T) {
	upstream := &stubRaceReader{races: map[string]*models.Race{}}
	reader := NewCachedRaceReader(upstream, nil, time.Minute, testLogger())

	applied := reader.ApplyOddsUpdate("20240315_R1_C9", time.Now(), []models.RunnerOdds{
		{Number: 1, Odds: 4.0},
	})
	assert.False(t, applied, "an update for an uncached race is a no-op")
}

func TestInvalidateForcesRefetch(t *testing.T) {
	const guid = "20240315_R1_C1"
	upstream := &stubRaceReader{races: map[string]*models.Race{guid: testRace(guid)}}
	reader := NewCachedRaceReader(upstream, nil, time.Minute, testLogger())

	ctx := context.Background()
	_, err := reader.GetRace(ctx, guid)
	require.NoError(t, err)

	reader.Invalidate(guid)

	_, err = reader.GetRace(ctx, guid)
	require.NoError(t, err)
	assert.Equal(t, 2, upstream.calls)
}
