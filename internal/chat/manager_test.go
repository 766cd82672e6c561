package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/styxali/turfintel-sub000/internal/models"
	"github.com/styxali/turfintel-sub000/internal/vectorstore"
)

type stubEmbedder struct{ dim int }

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, s.dim)
	for i, r := range text {
		vec[i%s.dim] += float32(r) / 1000
	}
	return vec, nil
}

func (s *stubEmbedder) Dimension() int { return s.dim }

type stubIngester struct {
	docs  map[string][]models.VectorDocument
	store *vectorstore.Registry
	calls int
	err   error
}

func (s *stubIngester) IngestRace(ctx context.Context, raceGUID string) (int, error) {
	s.calls++
	if s.err != nil {
		return 0, s.err
	}
	store, err := s.store.Get(raceGUID)
	if err != nil {
		return 0, err
	}
	docs := s.docs[raceGUID]
	for i := range docs {
		vec, _ := (&stubEmbedder{dim: 8}).Embed(ctx, docs[i].Content)
		docs[i].Embedding = vec
	}
	if err := store.AddDocuments(ctx, docs); err != nil {
		return 0, err
	}
	return len(docs), nil
}

type memoryChatRepo struct {
	messages []*models.ChatMessage
}

func (m *memoryChatRepo) EnsureSession(context.Context, uuid.UUID, string) error { return nil }

func (m *memoryChatRepo) SaveMessage(_ context.Context, msg *models.ChatMessage) error {
	m.messages = append(m.messages, msg)
	return nil
}

func (m *memoryChatRepo) GetMessages(_ context.Context, sessionID uuid.UUID, limit int) ([]*models.ChatMessage, error) {
	var out []*models.ChatMessage
	for _, msg := range m.messages {
		if msg.SessionID == sessionID {
			out = append(out, msg)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

const testRaceGUID = "20240315_R1_C3"

func raceDocuments(guid string) []models.VectorDocument {
	overview := "Race: Prix de Test\nVenue: Vincennes\nDate: 2024-03-15\nTime: 14:30\nDistance: 2700m\nGround: good\nDiscipline: trot\nCategory: Groupe III\nPrize: 52000\nRunners: 3"
	pronostic := "Expert picks: Idao holds the key\nSelections: 1, 2\nBase pick: 1\nOutsider: 3"
	return []models.VectorDocument{
		{ID: guid + "_overview", Content: overview, Type: models.DocTypeRaceOverview, RaceGUID: guid},
		{ID: guid + "_horse_1", Content: "Runner 1: Hooker Berry\nAge: 5\nSex: M\nJockey: E. Raffin\nTrainer: T. Duvaldestin\nForm: 1p3p5p\nEarnings: 400000\nWeight: 58.5\nDraw: 1", Type: models.DocTypeHorse, RaceGUID: guid, HorseSlug: "hooker-berry", Number: 1},
		{ID: guid + "_horse_2", Content: "Runner 2: Idao de Tillard\nAge: 6\nSex: M\nJockey: C. Duvaldestin\nTrainer: T. Duvaldestin\nForm: 1p1p2p\nEarnings: 900000\nWeight: 58.5\nDraw: 2", Type: models.DocTypeHorse, RaceGUID: guid, HorseSlug: "idao-de-tillard", Number: 2},
		{ID: guid + "_horse_3", Content: "Runner 3: Go On Boy\nAge: 7\nSex: M\nJockey: P. Gubellini\nTrainer: P. Allaire\nForm: 3p2p1p\nEarnings: 700000\nWeight: 58.5\nDraw: 3", Type: models.DocTypeHorse, RaceGUID: guid, HorseSlug: "go-on-boy", Number: 3},
		{ID: guid + "_pronostic", Content: pronostic, Type: models.DocTypePronostic, RaceGUID: guid},
	}
}

func newTestManager(t *testing.T) (*Manager, *stubIngester, *memoryChatRepo) {
	t.Helper()
	logger := logrus.New()
	registry := vectorstore.NewRegistry(t.TempDir(), &stubEmbedder{dim: 8}, logger)
	t.Cleanup(func() { registry.Close() })

	ingester := &stubIngester{
		docs:  map[string][]models.VectorDocument{testRaceGUID: raceDocuments(testRaceGUID)},
		store: registry,
	}
	repo := &memoryChatRepo{}
	return NewManager(registry, ingester, repo, logger), ingester, repo
}

func TestEnsureReadyIngestsWhenEmpty(t *testing.T) {
	manager, ingester, _ := newTestManager(t)

	require.NoError(t, manager.EnsureReady(context.Background(), testRaceGUID))
	assert.Equal(t, 1, ingester.calls)

	// Already at or above the threshold, no second ingestion.
	require.NoError(t, manager.EnsureReady(context.Background(), testRaceGUID))
	assert.Equal(t, 1, ingester.calls)
}

func TestAnswerDistanceQuestion(t *testing.T) {
	manager, _, _ := newTestManager(t)

	resp, err := manager.Answer(context.Background(), uuid.New(), "What distance is this race?", models.ChatContext{RaceGUID: testRaceGUID})
	require.NoError(t, err)
	assert.Contains(t, resp.Message, "2700m")
	assert.NotEmpty(t, resp.Sources)
	assert.NotEmpty(t, resp.Suggestions)
}

func TestAnswerRunnersQuestion(t *testing.T) {
	manager, _, _ := newTestManager(t)

	resp, err := manager.Answer(context.Background(), uuid.New(), "Who are the horses in the field?", models.ChatContext{RaceGUID: testRaceGUID})
	require.NoError(t, err)
	assert.Contains(t, resp.Message, "Hooker Berry")
	assert.Contains(t, resp.Message, "Idao de Tillard")
	assert.Contains(t, resp.Message, "Go On Boy")
}

func TestAnswerFavoritesQuestion(t *testing.T) {
	manager, _, _ := newTestManager(t)

	resp, err := manager.Answer(context.Background(), uuid.New(), "Who are the favorites here?", models.ChatContext{RaceGUID: testRaceGUID})
	require.NoError(t, err)
	assert.Contains(t, resp.Message, "Base pick: 1")
}

func TestAnswerNumberedRunnerQuestion(t *testing.T) {
	manager, _, _ := newTestManager(t)

	resp, err := manager.Answer(context.Background(), uuid.New(), "Tell me about runner 2", models.ChatContext{RaceGUID: testRaceGUID})
	require.NoError(t, err)
	assert.Contains(t, resp.Message, "Runner 2: Idao de Tillard")
	assert.NotContains(t, resp.Message, "Runner 3:")
}

func TestAnswerFallsBackToOverview(t *testing.T) {
	manager, _, _ := newTestManager(t)

	resp, err := manager.Answer(context.Background(), uuid.New(), "anything interesting?", models.ChatContext{RaceGUID: testRaceGUID})
	require.NoError(t, err)
	assert.Contains(t, resp.Message, "Race: Prix de Test")
}

func TestAnswerDegradesWhenIngestionFails(t *testing.T) {
	manager, ingester, _ := newTestManager(t)
	ingester.err = errors.New("provider down")

	resp, err := manager.Answer(context.Background(), uuid.New(), "What distance?", models.ChatContext{RaceGUID: testRaceGUID})
	require.NoError(t, err, "a chat turn must never surface an internal error")
	assert.NotEmpty(t, resp.Message)
	assert.Empty(t, resp.Sources)
}

func TestAnswerWithoutRaceContext(t *testing.T) {
	manager, ingester, _ := newTestManager(t)

	resp, err := manager.Answer(context.Background(), uuid.New(), "hello", models.ChatContext{})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Message)
	assert.Zero(t, ingester.calls)
}

func TestAnswerPersistsBothTurns(t *testing.T) {
	manager, _, repo := newTestManager(t)
	session := uuid.New()

	_, err := manager.Answer(context.Background(), session, "What distance?", models.ChatContext{RaceGUID: testRaceGUID})
	require.NoError(t, err)

	require.Len(t, repo.messages, 2)
	assert.Equal(t, models.RoleUser, repo.messages[0].Role)
	assert.Equal(t, models.RoleAssistant, repo.messages[1].Role)
	assert.Equal(t, testRaceGUID, repo.messages[0].RaceGUID)
	assert.Equal(t, testRaceGUID, repo.messages[1].RaceGUID)
}

func TestRenderAnswerEmptyContext(t *testing.T) {
	template, msg := renderAnswer("What distance?", "")
	assert.Equal(t, templateOverview, template)
	assert.NotEmpty(t, msg)
}
