// Package chat implements the retrieval-backed assistant: it keeps a race's
// vector store warm, retrieves the most relevant documents for a user turn
// and renders a templated answer from their labeled lines.
package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/styxali/turfintel-sub000/internal/metrics"
	"github.com/styxali/turfintel-sub000/internal/models"
	"github.com/styxali/turfintel-sub000/internal/repository"
	"github.com/styxali/turfintel-sub000/internal/vectorstore"
)

const (
	// DefaultMinDocuments is the document count below which a race store
	// is considered not yet ingested.
	DefaultMinDocuments = 5
	// DefaultTopK is the number of documents retrieved per turn.
	DefaultTopK = 5
)

// Ingester triggers a full document ingestion for a race.
type Ingester interface {
	IngestRace(ctx context.Context, raceGUID string) (int, error)
}

// Manager answers chat turns against per-race vector stores.
type Manager struct {
	registry     *vectorstore.Registry
	ingester     Ingester
	sessions     repository.ChatRepository
	logger       *logrus.Logger
	minDocuments int
	topK         int
}

// NewManager creates a chat manager. sessions may be nil; turns are then
// not persisted.
func NewManager(
	registry *vectorstore.Registry,
	ingester Ingester,
	sessions repository.ChatRepository,
	logger *logrus.Logger,
) *Manager {
	if logger == nil {
		logger = logrus.New()
	}
	return &Manager{
		registry:     registry,
		ingester:     ingester,
		sessions:     sessions,
		logger:       logger,
		minDocuments: DefaultMinDocuments,
		topK:         DefaultTopK,
	}
}

// SetThresholds overrides the ingestion trigger threshold and retrieval
// depth. Zero values keep the current setting.
func (m *Manager) SetThresholds(minDocuments, topK int) {
	if minDocuments > 0 {
		m.minDocuments = minDocuments
	}
	if topK > 0 {
		m.topK = topK
	}
}

// EnsureReady ingests the race when its store holds fewer documents than
// the minimum threshold. The count is checked, not a remembered ingestion
// result, so a previously failed or partial write triggers a re-ingest.
func (m *Manager) EnsureReady(ctx context.Context, raceGUID string) error {
	store, err := m.registry.Get(raceGUID)
	if err != nil {
		return err
	}

	count, err := store.Count(ctx)
	if err != nil {
		return err
	}
	if count >= m.minDocuments {
		return nil
	}

	written, err := m.ingester.IngestRace(ctx, raceGUID)
	if err != nil {
		return fmt.Errorf("ingesting race %s: %w", raceGUID, err)
	}

	m.logger.WithFields(logrus.Fields{
		"race":      raceGUID,
		"documents": written,
	}).Info("Race context prepared for chat")
	return nil
}

// Answer handles one user turn. It never surfaces an internal error to the
// caller: retrieval failures degrade to an empty context and a fallback
// message.
func (m *Manager) Answer(ctx context.Context, sessionID uuid.UUID, text string, chatCtx models.ChatContext) (*models.ChatResponse, error) {
	m.persist(ctx, sessionID, models.RoleUser, text, chatCtx)

	var results []vectorstore.SearchResult
	if chatCtx.RaceGUID != "" {
		results = m.retrieve(ctx, chatCtx.RaceGUID, text)
	}

	contextBlock := make([]string, 0, len(results))
	sources := make([]string, 0, len(results))
	for _, r := range results {
		contextBlock = append(contextBlock, r.Document.Content)
		sources = append(sources, r.Document.ID)
	}

	// Blank line between documents; the templates treat it as a boundary.
	template, message := renderAnswer(text, strings.Join(contextBlock, "\n\n"))
	metrics.RecordChatTurn(template)

	response := &models.ChatResponse{
		Message:     message,
		Sources:     sources,
		Suggestions: suggestions(chatCtx),
	}

	m.persist(ctx, sessionID, models.RoleAssistant, response.Message, chatCtx)
	return response, nil
}

// History returns the most recent persisted turns of a session.
func (m *Manager) History(ctx context.Context, sessionID uuid.UUID, limit int) ([]*models.ChatMessage, error) {
	if m.sessions == nil {
		return nil, nil
	}
	return m.sessions.GetMessages(ctx, sessionID, limit)
}

func (m *Manager) retrieve(ctx context.Context, raceGUID, query string) []vectorstore.SearchResult {
	if err := m.EnsureReady(ctx, raceGUID); err != nil {
		m.logger.WithError(err).WithField("race", raceGUID).
			Warn("Chat context preparation failed, degrading to empty retrieval")
	}

	store, err := m.registry.Get(raceGUID)
	if err != nil {
		m.logger.WithError(err).WithField("race", raceGUID).Warn("Vector store unavailable for chat")
		return nil
	}

	results, err := store.SimilaritySearch(ctx, query, m.topK, raceGUID)
	if err != nil {
		m.logger.WithError(err).WithField("race", raceGUID).Warn("Similarity search failed for chat")
		return nil
	}
	return results
}

func (m *Manager) persist(ctx context.Context, sessionID uuid.UUID, role, content string, chatCtx models.ChatContext) {
	if m.sessions == nil {
		return
	}

	if err := m.sessions.EnsureSession(ctx, sessionID, ""); err != nil {
		m.logger.WithError(err).WithField("session", sessionID).Warn("Failed to ensure chat session")
		return
	}

	msg := &models.ChatMessage{
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		RaceGUID:  chatCtx.RaceGUID,
		HorseSlug: chatCtx.HorseSlug,
	}
	if err := m.sessions.SaveMessage(ctx, msg); err != nil {
		m.logger.WithError(err).WithField("session", sessionID).Warn("Failed to persist chat turn")
	}
}

func suggestions(chatCtx models.ChatContext) []string {
	if chatCtx.RaceGUID == "" {
		return []string{
			"Pick a race to get contextual answers",
		}
	}
	return []string{
		"What is the distance of this race?",
		"Who are the runners?",
		"Who are the favorites?",
	}
}
