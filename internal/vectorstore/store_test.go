package vectorstore

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/styxali/turfintel-sub000/internal/metrics"
	"github.com/styxali/turfintel-sub000/internal/models"
)

// stubEmbedder returns canned vectors keyed by exact text, falling back to
// a constant vector.
type stubEmbedder struct {
	vectors  map[string][]float32
	fallback []float32
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if v, ok := s.vectors[text]; ok {
		return v, nil
	}
	return s.fallback, nil
}

func (s *stubEmbedder) Dimension() int { return len(s.fallback) }

func newStubEmbedder() *stubEmbedder {
	return &stubEmbedder{
		vectors:  map[string][]float32{},
		fallback: []float32{1, 0, 0},
	}
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func openTestStore(t *testing.T, raceGUID string) *Store {
	t.Helper()
	path, err := StorePath(t.TempDir(), raceGUID)
	require.NoError(t, err)
	store, err := Open(path, raceGUID, newStubEmbedder())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func doc(id, raceGUID, content string, vec []float32) models.VectorDocument {
	return models.VectorDocument{
		ID:        id,
		Content:   content,
		Embedding: vec,
		Type:      models.DocTypeRaceOverview,
		RaceGUID:  raceGUID,
	}
}

func TestStorePathDerivation(t *testing.T) {
	path, err := StorePath("vectors", "20240315_R1_C3")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("vectors", "2024-03-15", "R1", "C03", "context.db"), path)

	// Already two-digit race numbers stay as-is.
	path, err = StorePath("vectors", "20240315_R2_C12")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("vectors", "2024-03-15", "R2", "C12", "context.db"), path)
}

func TestStorePathMalformed(t *testing.T) {
	for _, bad := range []string{"", "20240315", "20240315_R1", "20240315_R1_C1_extra", "notadate_R1_C1", "20240315_X1_C1"} {
		_, err := StorePath("vectors", bad)
		assert.ErrorIs(t, err, models.ErrMalformedRaceID, bad)
	}
}

func TestAddDocumentsAndCount(t *testing.T) {
	const guid = "20240315_R1_C1"
	store := openTestStore(t, guid)
	ctx := context.Background()

	docs := []models.VectorDocument{
		doc(guid+"_overview", guid, "Race: Prix Test", []float32{1, 0, 0}),
		doc(guid+"_horse_1", guid, "1. Tornado", []float32{0, 1, 0}),
	}
	require.NoError(t, store.AddDocuments(ctx, docs))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestAddDocumentsUpsertIsIdempotent(t *testing.T) {
	const guid = "20240315_R1_C1"
	store := openTestStore(t, guid)
	ctx := context.Background()

	batch := []models.VectorDocument{
		doc(guid+"_overview", guid, "Race: Prix Test", []float32{1, 0, 0}),
	}
	require.NoError(t, store.AddDocuments(ctx, batch))
	batch[0].Content = "Race: Prix Test (updated)"
	require.NoError(t, store.AddDocuments(ctx, batch))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "upsert by id must not grow the document set")

	results, err := store.SimilaritySearch(ctx, "anything", 1, "")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Race: Prix Test (updated)", results[0].Document.Content)
}

func TestAddDocumentsRejectsForeignRace(t *testing.T) {
	store := openTestStore(t, "20240315_R1_C1")

	err := store.AddDocuments(context.Background(), []models.VectorDocument{
		doc("20240316_R9_C9_overview", "20240316_R9_C9", "wrong race", []float32{1, 0, 0}),
	})
	require.Error(t, err)

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count, "rejected batch must roll back entirely")
}

func TestSimilaritySearchRanking(t *testing.T) {
	const guid = "20240315_R1_C1"
	embedder := newStubEmbedder()
	embedder.vectors["distance"] = []float32{0, 0, 1}

	path, err := StorePath(t.TempDir(), guid)
	require.NoError(t, err)
	store, err := Open(path, guid, embedder)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.AddDocuments(ctx, []models.VectorDocument{
		doc(guid+"_overview", guid, "Distance: 2400m", []float32{0, 0.2, 0.9}),
		doc(guid+"_horse_1", guid, "1. Tornado", []float32{1, 0, 0}),
		doc(guid+"_horse_2", guid, "2. Eclair", []float32{0.9, 0.1, 0}),
	}))

	results, err := store.SimilaritySearch(ctx, "distance", 2, guid)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, guid+"_overview", results[0].Document.ID)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestSimilaritySearchRecordsMetrics(t *testing.T) {
	const guid = "20240315_R1_C1"
	store := openTestStore(t, guid)

	ctx := context.Background()
	require.NoError(t, store.AddDocuments(ctx, []models.VectorDocument{
		doc(guid+"_overview", guid, "Distance: 2400m", []float32{1, 0, 0}),
	}))

	before := testutil.ToFloat64(metrics.SimilaritySearchesTotal)
	_, err := store.SimilaritySearch(ctx, "anything", 3, guid)
	require.NoError(t, err)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.SimilaritySearchesTotal))
}

func TestSimilaritySearchStableTieBreak(t *testing.T) {
	const guid = "20240315_R1_C1"
	store := openTestStore(t, guid)
	ctx := context.Background()

	// Identical embeddings: insertion order must decide.
	require.NoError(t, store.AddDocuments(ctx, []models.VectorDocument{
		doc(guid+"_reference_0", guid, "first", []float32{1, 0, 0}),
		doc(guid+"_reference_1", guid, "second", []float32{1, 0, 0}),
		doc(guid+"_reference_2", guid, "third", []float32{1, 0, 0}),
	}))

	results, err := store.SimilaritySearch(ctx, "query", 3, "")
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, guid+"_reference_0", results[0].Document.ID)
	assert.Equal(t, guid+"_reference_1", results[1].Document.ID)
	assert.Equal(t, guid+"_reference_2", results[2].Document.ID)
}

func TestStoreIsolation(t *testing.T) {
	base := t.TempDir()
	embedder := newStubEmbedder()

	const guidA = "20240315_R1_C1"
	const guidB = "20240315_R1_C2"

	pathA, err := StorePath(base, guidA)
	require.NoError(t, err)
	storeA, err := Open(pathA, guidA, embedder)
	require.NoError(t, err)
	defer storeA.Close()

	pathB, err := StorePath(base, guidB)
	require.NoError(t, err)
	storeB, err := Open(pathB, guidB, embedder)
	require.NoError(t, err)
	defer storeB.Close()

	ctx := context.Background()
	require.NoError(t, storeA.AddDocuments(ctx, []models.VectorDocument{
		doc(guidA+"_overview", guidA, "race A overview", []float32{1, 0, 0}),
	}))

	// B sees nothing of A, filtered or not.
	results, err := storeB.SimilaritySearch(ctx, "race A overview", 5, "")
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = storeB.SimilaritySearch(ctx, "race A overview", 5, guidA)
	require.NoError(t, err)
	assert.Empty(t, results)

	count, err := storeB.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestClearAndDeleteByRaceID(t *testing.T) {
	const guid = "20240315_R1_C1"
	store := openTestStore(t, guid)
	ctx := context.Background()

	require.NoError(t, store.AddDocuments(ctx, []models.VectorDocument{
		doc(guid+"_overview", guid, "overview", []float32{1, 0, 0}),
		doc(guid+"_horse_1", guid, "runner", []float32{0, 1, 0}),
	}))

	require.NoError(t, store.DeleteByRaceID(ctx, guid))
	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	require.NoError(t, store.AddDocuments(ctx, []models.VectorDocument{
		doc(guid+"_overview", guid, "overview", []float32{1, 0, 0}),
	}))
	require.NoError(t, store.Clear(ctx))
	count, err = store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCosineSimilarityBounds(t *testing.T) {
	a := []float32{0.3, -0.4, 0.5}
	b := []float32{-0.7, 0.1, 0.9}

	sim := cosineSimilarity(a, b)
	assert.GreaterOrEqual(t, sim, -1.0)
	assert.LessOrEqual(t, sim, 1.0)

	assert.InDelta(t, 1.0, cosineSimilarity(a, a), 1e-9, "identical vectors")
	assert.Equal(t, 0.0, cosineSimilarity(a, []float32{0, 0, 0}), "zero vector is similarity 0, not NaN")
	assert.False(t, math.IsNaN(cosineSimilarity([]float32{0, 0}, []float32{0, 0})))
}

func TestEmbeddingRoundTrip(t *testing.T) {
	vec := []float32{0.125, -3.5, 42, 0}
	assert.Equal(t, vec, unpackEmbedding(packEmbedding(vec)))
}

func TestRegistryMemoizesStores(t *testing.T) {
	registry := NewRegistry(t.TempDir(), newStubEmbedder(), testLogger())
	defer registry.Close()

	first, err := registry.Get("20240315_R1_C1")
	require.NoError(t, err)
	second, err := registry.Get("20240315_R1_C1")
	require.NoError(t, err)
	assert.Same(t, first, second)

	_, err = registry.Get("garbage")
	assert.ErrorIs(t, err, models.ErrMalformedRaceID)
}

func TestCleanupRetentionBoundary(t *testing.T) {
	base := t.TempDir()
	registry := NewRegistry(base, newStubEmbedder(), testLogger())
	defer registry.Close()

	today := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	registry.now = func() time.Time { return today }

	// retentionDays=1: a race dated exactly yesterday survives, the day
	// before is reclaimed.
	boundary := "20240314_R1_C1"
	expired := "20240313_R1_C1"
	expired2 := "20240313_R1_C2"

	for _, guid := range []string{boundary, expired, expired2} {
		_, err := registry.Get(guid)
		require.NoError(t, err)
	}

	removed, err := registry.Cleanup(1)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	expiredPath, err := StorePath(base, expired)
	require.NoError(t, err)
	_, statErr := os.Stat(expiredPath)
	assert.True(t, os.IsNotExist(statErr), "expired store must be physically removed")

	boundaryPath, err := StorePath(base, boundary)
	require.NoError(t, err)
	_, statErr = os.Stat(boundaryPath)
	assert.NoError(t, statErr, "boundary-dated store must be retained")
}

func TestCleanupEmptyBase(t *testing.T) {
	registry := NewRegistry(filepath.Join(t.TempDir(), "missing"), newStubEmbedder(), testLogger())
	removed, err := registry.Cleanup(1)
	require.NoError(t, err)
	assert.Zero(t, removed)
}
