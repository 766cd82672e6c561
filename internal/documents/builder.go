package documents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/styxali/turfintel-sub000/internal/embedding"
	"github.com/styxali/turfintel-sub000/internal/metrics"
	"github.com/styxali/turfintel-sub000/internal/models"
	"github.com/styxali/turfintel-sub000/internal/provider"
	"github.com/styxali/turfintel-sub000/internal/vectorstore"
)

// Builder turns a race aggregate into the set of vector documents stored in
// that race's vector store. Document ids are deterministic, so re-ingesting
// a race replaces its documents wholesale instead of accumulating.
type Builder struct {
	races    provider.RaceReader
	history  provider.HistoryReader
	registry *vectorstore.Registry
	embedder embedding.Embedder
	logger   *logrus.Logger
}

// NewBuilder creates a document builder. history may be nil, in which case
// history and stats documents are built only from data already present on
// the aggregate.
func NewBuilder(
	races provider.RaceReader,
	history provider.HistoryReader,
	registry *vectorstore.Registry,
	embedder embedding.Embedder,
	logger *logrus.Logger,
) *Builder {
	if logger == nil {
		logger = logrus.New()
	}
	return &Builder{
		races:    races,
		history:  history,
		registry: registry,
		embedder: embedder,
		logger:   logger,
	}
}

// IngestRace builds, embeds and stores all documents for one race, replacing
// any previous document set. Returns the number of documents written.
func (b *Builder) IngestRace(ctx context.Context, raceGUID string) (int, error) {
	start := time.Now()

	race, err := b.races.GetRace(ctx, raceGUID)
	if err != nil {
		metrics.RecordIngestion("error", 0, time.Since(start).Seconds())
		return 0, fmt.Errorf("loading race %s: %w", raceGUID, err)
	}

	store, err := b.registry.Get(raceGUID)
	if err != nil {
		metrics.RecordIngestion("error", 0, time.Since(start).Seconds())
		return 0, err
	}

	if err := store.Clear(ctx); err != nil {
		metrics.RecordIngestion("error", 0, time.Since(start).Seconds())
		return 0, fmt.Errorf("clearing store for race %s: %w", raceGUID, err)
	}

	docs := b.buildDocuments(ctx, race)

	// One embedding call per document. A single slow or failed call only
	// blocks its own document, and a failure aborts before anything is
	// committed, so a partial set is never visible.
	for i := range docs {
		vec, err := b.embedder.Embed(ctx, docs[i].Content)
		if err != nil {
			metrics.RecordIngestion("error", 0, time.Since(start).Seconds())
			return 0, fmt.Errorf("embedding document %s: %w", docs[i].ID, err)
		}
		docs[i].Embedding = vec
	}

	if err := store.AddDocuments(ctx, docs); err != nil {
		metrics.RecordIngestion("error", 0, time.Since(start).Seconds())
		return 0, fmt.Errorf("storing documents for race %s: %w", raceGUID, err)
	}

	metrics.RecordIngestion("success", len(docs), time.Since(start).Seconds())

	b.logger.WithFields(logrus.Fields{
		"race":      raceGUID,
		"documents": len(docs),
	}).Info("Race ingested")

	return len(docs), nil
}

// buildDocuments assembles the full document set for a race. Sub-resources
// that are absent simply contribute zero documents.
func (b *Builder) buildDocuments(ctx context.Context, race *models.Race) []models.VectorDocument {
	docs := make([]models.VectorDocument, 0, 2+2*len(race.Runners))

	docs = append(docs, models.VectorDocument{
		ID:       models.OverviewDocID(race.GUID),
		Content:  overviewContent(race),
		Type:     models.DocTypeRaceOverview,
		RaceGUID: race.GUID,
	})

	for _, runner := range race.Runners {
		docs = append(docs, models.VectorDocument{
			ID:        models.HorseDocID(race.GUID, runner.Number),
			Content:   runnerContent(runner),
			Type:      models.DocTypeHorse,
			RaceGUID:  race.GUID,
			HorseSlug: runner.Horse.Slug,
			Number:    runner.Number,
		})
	}

	if race.Pronostic != nil {
		docs = append(docs, models.VectorDocument{
			ID:       models.PronosticDocID(race.GUID),
			Content:  pronosticContent(race.Pronostic),
			Type:     models.DocTypePronostic,
			RaceGUID: race.GUID,
		})
	}

	for _, note := range race.Notes {
		docs = append(docs, models.VectorDocument{
			ID:       models.NoteDocID(race.GUID, note.Number),
			Content:  noteContent(note),
			Type:     models.DocTypeNote,
			RaceGUID: race.GUID,
			Number:   note.Number,
		})
	}

	for _, interview := range race.Interviews {
		docs = append(docs, models.VectorDocument{
			ID:       models.InterviewDocID(race.GUID, interview.Number),
			Content:  interviewContent(interview),
			Type:     models.DocTypeInterview,
			RaceGUID: race.GUID,
			Number:   interview.Number,
		})
	}

	docs = append(docs, b.historyDocuments(ctx, race)...)

	for i, ref := range race.References {
		docs = append(docs, models.VectorDocument{
			ID:       models.ReferenceDocID(race.GUID, i),
			Content:  referenceContent(ref),
			Type:     models.DocTypeReferenceRace,
			RaceGUID: race.GUID,
		})
	}

	if race.Tracking != nil && (len(race.Tracking.Sections) > 0 || race.Tracking.Summary != "") {
		docs = append(docs, models.VectorDocument{
			ID:       models.TrackingDocID(race.GUID),
			Content:  trackingContent(race.Tracking),
			Type:     models.DocTypeTracking,
			RaceGUID: race.GUID,
		})
	}

	if race.Notule != nil && race.Notule.Analysis != "" {
		docs = append(docs, models.VectorDocument{
			ID:       models.NotuleDocID(race.GUID),
			Content:  notuleContent(race.Notule),
			Type:     models.DocTypeNotule,
			RaceGUID: race.GUID,
		})
	}

	return docs
}

// historyDocuments builds per-runner history and stats summaries. History
// comes from the aggregate when already loaded, otherwise from the history
// collaborator; a fetch failure skips that runner's documents, it does not
// abort the ingestion.
func (b *Builder) historyDocuments(ctx context.Context, race *models.Race) []models.VectorDocument {
	docs := make([]models.VectorDocument, 0, 2*len(race.Runners))

	for _, runner := range race.Runners {
		history := runner.Horse.History
		stats := runner.Horse.Stats

		if len(history) == 0 && b.history != nil {
			fetched, fetchedStats, err := b.history.GetHistory(ctx, runner.Horse.Slug)
			if err != nil {
				b.logger.WithError(err).WithField("horse", runner.Horse.Slug).
					Debug("No history available for runner")
				continue
			}
			history = fetched
			if stats == nil {
				stats = fetchedStats
			}
		}

		if len(history) > 0 {
			docs = append(docs, models.VectorDocument{
				ID:        models.HistoryDocID(race.GUID, runner.Number),
				Content:   historyContent(runner, history),
				Type:      models.DocTypeHorseHistory,
				RaceGUID:  race.GUID,
				HorseSlug: runner.Horse.Slug,
				Number:    runner.Number,
			})
		}

		if stats != nil && stats.Races > 0 {
			docs = append(docs, models.VectorDocument{
				ID:        models.StatsDocID(race.GUID, runner.Number),
				Content:   statsContent(runner, stats),
				Type:      models.DocTypeHorseStats,
				RaceGUID:  race.GUID,
				HorseSlug: runner.Horse.Slug,
				Number:    runner.Number,
			})
		}
	}

	return docs
}

// The labeled-line shapes below are a contract with the chat templating,
// which pattern-matches on the field labels. Keep labels and order stable.

func overviewContent(race *models.Race) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Race: %s\n", race.Name)
	fmt.Fprintf(&sb, "Venue: %s\n", race.Venue)
	fmt.Fprintf(&sb, "Date: %s\n", race.StartTime.Format("2006-01-02"))
	fmt.Fprintf(&sb, "Time: %s\n", race.StartTime.Format("15:04"))
	fmt.Fprintf(&sb, "Distance: %dm\n", race.Distance)
	fmt.Fprintf(&sb, "Ground: %s\n", race.Ground)
	fmt.Fprintf(&sb, "Discipline: %s\n", race.Discipline)
	fmt.Fprintf(&sb, "Category: %s\n", race.Category)
	fmt.Fprintf(&sb, "Prize: %s\n", race.PrizeMoney.StringFixed(0))
	fmt.Fprintf(&sb, "Runners: %d", len(race.Runners))
	return sb.String()
}

func runnerContent(runner *models.Runner) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Runner %d: %s\n", runner.Number, runner.Horse.Name)
	fmt.Fprintf(&sb, "Age: %d\n", runner.Horse.Age)
	fmt.Fprintf(&sb, "Sex: %s\n", runner.Horse.Sex)
	fmt.Fprintf(&sb, "Jockey: %s\n", runner.Jockey)
	fmt.Fprintf(&sb, "Trainer: %s\n", runner.Trainer)
	fmt.Fprintf(&sb, "Form: %s\n", runner.Horse.Form)
	fmt.Fprintf(&sb, "Earnings: %s\n", runner.Horse.Earnings.StringFixed(0))
	fmt.Fprintf(&sb, "Weight: %.1f\n", runner.Weight)
	fmt.Fprintf(&sb, "Draw: %d", runner.Draw)
	return sb.String()
}

func pronosticContent(p *models.Pronostic) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Expert picks: %s\n", p.Headline)
	fmt.Fprintf(&sb, "Selections: %s\n", joinInts(p.Selections))
	fmt.Fprintf(&sb, "Base pick: %d\n", p.BasePick)
	fmt.Fprintf(&sb, "Outsider: %d", p.Outsider)
	if len(p.Dismissed) > 0 {
		fmt.Fprintf(&sb, "\nDismissed: %s", joinInts(p.Dismissed))
	}
	if p.Comment != "" {
		fmt.Fprintf(&sb, "\nComment: %s", p.Comment)
	}
	return sb.String()
}

func noteContent(note models.JudgeNote) string {
	if note.Author != "" {
		return fmt.Sprintf("Note on runner %d by %s: %s", note.Number, note.Author, note.Text)
	}
	return fmt.Sprintf("Note on runner %d: %s", note.Number, note.Text)
}

func interviewContent(iv models.Interview) string {
	speaker := iv.Speaker
	if iv.Role != "" {
		speaker = fmt.Sprintf("%s (%s)", iv.Speaker, iv.Role)
	}
	return fmt.Sprintf("Interview on runner %d, %s: %s", iv.Number, speaker, iv.Quote)
}

func historyContent(runner *models.Runner, history []models.HistoryEntry) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "History for runner %d (%s):", runner.Number, runner.Horse.Name)
	limit := len(history)
	if limit > 5 {
		limit = 5
	}
	for _, entry := range history[:limit] {
		fmt.Fprintf(&sb, "\n%s %s %dm position %d",
			entry.Date.Format("2006-01-02"), entry.Venue, entry.Distance, entry.Position)
	}
	return sb.String()
}

func statsContent(runner *models.Runner, stats *models.HorseStats) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Stats for runner %d (%s):\n", runner.Number, runner.Horse.Name)
	fmt.Fprintf(&sb, "Races: %d\n", stats.Races)
	fmt.Fprintf(&sb, "Wins: %d\n", stats.Wins)
	fmt.Fprintf(&sb, "Places: %d\n", stats.Places)
	fmt.Fprintf(&sb, "Win rate: %.1f%%\n", stats.WinRate())
	fmt.Fprintf(&sb, "Place rate: %.1f%%", stats.PlaceRate())
	return sb.String()
}

func referenceContent(ref models.ReferenceRace) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Reference race: %s\n", ref.Name)
	fmt.Fprintf(&sb, "Venue: %s\n", ref.Venue)
	fmt.Fprintf(&sb, "Date: %s\n", ref.Date.Format("2006-01-02"))
	fmt.Fprintf(&sb, "Distance: %dm", ref.Distance)
	if ref.Winner != "" {
		fmt.Fprintf(&sb, "\nWinner: %s", ref.Winner)
	}
	return sb.String()
}

func trackingContent(t *models.Tracking) string {
	var sb strings.Builder
	sb.WriteString("Tracking summary")
	if t.Summary != "" {
		fmt.Fprintf(&sb, ": %s", t.Summary)
	}
	for _, section := range t.Sections {
		fmt.Fprintf(&sb, "\nSection %d: top speed %.1f km/h, avg speed %.1f km/h over %dm",
			section.Number, section.TopSpeed, section.AvgSpeed, section.Distance)
	}
	return sb.String()
}

func notuleContent(n *models.Notule) string {
	var sb strings.Builder
	if n.Title != "" {
		fmt.Fprintf(&sb, "Report: %s\n", n.Title)
	}
	sb.WriteString(n.Analysis)
	if n.Author != "" {
		fmt.Fprintf(&sb, "\nAuthor: %s", n.Author)
	}
	return sb.String()
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return strings.Join(parts, ", ")
}
