package provider

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/styxali/turfintel-sub000/internal/models"
)

type stubHistoryReader struct {
	history []models.HistoryEntry
	stats   *models.HorseStats
	err     error
	calls   int
}

func (s *stubHistoryReader) GetHistory(_ context.Context, _ string) ([]models.HistoryEntry, *models.HorseStats, error) {
	s.calls++
	if s.err != nil {
		return nil, nil, s.err
	}
	return s.history, s.stats, nil
}

type memoryHorseRepo struct {
	horses  map[string]*models.Horse
	updates int
}

func newMemoryHorseRepo() *memoryHorseRepo {
	return &memoryHorseRepo{horses: map[string]*models.Horse{}}
}

func (m *memoryHorseRepo) Upsert(_ context.Context, horse *models.Horse) error {
	m.horses[horse.Slug] = horse
	return nil
}

func (m *memoryHorseRepo) GetBySlug(_ context.Context, slug string) (*models.Horse, error) {
	horse, ok := m.horses[slug]
	if !ok {
		return nil, models.ErrNotFound
	}
	return horse, nil
}

func (m *memoryHorseRepo) UpdateHistory(_ context.Context, slug string, history []models.HistoryEntry, stats *models.HorseStats) error {
	horse, ok := m.horses[slug]
	if !ok {
		return models.ErrNotFound
	}
	m.updates++
	horse.History = history
	horse.Stats = stats
	return nil
}

func sampleHistory() []models.HistoryEntry {
	return []models.HistoryEntry{
		{Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Venue: "Vincennes", Distance: 2700, Position: 1, Discipline: "trot"},
		{Date: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), Venue: "Enghien", Distance: 2150, Position: 4, Discipline: "trot"},
	}
}

func TestCachedHistoryReaderPersistsFetchedHistory(t *testing.T) {
	upstream := &stubHistoryReader{
		history: sampleHistory(),
		stats:   &models.HorseStats{Races: 2, Wins: 1},
	}
	repo := newMemoryHorseRepo()
	repo.horses["alpha"] = &models.Horse{Slug: "alpha", Name: "Alpha"}
	reader := NewCachedHistoryReader(upstream, repo, testLogger())

	history, stats, err := reader.GetHistory(context.Background(), "alpha")
	require.NoError(t, err)
	assert.Len(t, history, 2)
	assert.Equal(t, 1, stats.Wins)

	assert.Equal(t, 1, repo.updates, "fetched history must be written through")
	assert.Len(t, repo.horses["alpha"].History, 2)
}

func TestCachedHistoryReaderUnknownHorseStillServes(t *testing.T) {
	upstream := &stubHistoryReader{history: sampleHistory()}
	reader := NewCachedHistoryReader(upstream, newMemoryHorseRepo(), testLogger())

	history, _, err := reader.GetHistory(context.Background(), "never-ingested")
	require.NoError(t, err, "a missing horse row must not fail the read")
	assert.Len(t, history, 2)
}

func TestCachedHistoryReaderFallsBackToStoredCopy(t *testing.T) {
	upstream := &stubHistoryReader{err: models.ErrUpstreamUnavailable}
	repo := newMemoryHorseRepo()
	repo.horses["alpha"] = &models.Horse{
		Slug:    "alpha",
		Name:    "Alpha",
		History: sampleHistory(),
		Stats:   &models.HorseStats{Races: 2, Wins: 1},
	}
	reader := NewCachedHistoryReader(upstream, repo, testLogger())

	history, stats, err := reader.GetHistory(context.Background(), "alpha")
	require.NoError(t, err)
	assert.Len(t, history, 2)
	assert.Equal(t, 2, stats.Races)
}

func TestCachedHistoryReaderNoFallbackPropagatesError(t *testing.T) {
	upstream := &stubHistoryReader{err: models.ErrUpstreamUnavailable}
	reader := NewCachedHistoryReader(upstream, newMemoryHorseRepo(), testLogger())

	_, _, err := reader.GetHistory(context.Background(), "alpha")
	assert.ErrorIs(t, err, models.ErrUpstreamUnavailable)
}
