// Package vectorstore provides the per-race similarity-search datastore.
// Each race owns one physically isolated SQLite file; searches are exact
// brute-force cosine scans, which is fine at tens of rows per store.
package vectorstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/styxali/turfintel-sub000/internal/embedding"
	"github.com/styxali/turfintel-sub000/internal/metrics"
	"github.com/styxali/turfintel-sub000/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id         TEXT PRIMARY KEY,
	content    TEXT NOT NULL,
	embedding  BLOB NOT NULL,
	doc_type   TEXT NOT NULL,
	race_guid  TEXT NOT NULL,
	horse_slug TEXT NOT NULL DEFAULT '',
	number     INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_documents_race ON documents(race_guid);
`

// SearchResult is one ranked document from a similarity search.
type SearchResult struct {
	Document models.VectorDocument
	Score    float64
}

// Store is the vector store for exactly one race.
type Store struct {
	db       *sqlx.DB
	path     string
	raceGUID string
	embedder embedding.Embedder
}

// Open creates or opens the store backing file, creating parent directories
// as needed and applying the schema. Idempotent.
func Open(path, raceGUID string, embedder embedding.Embedder) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open store at %s: %w", path, err)
	}
	// One writer per store; the race's store is exclusively owned.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply store schema: %w", err)
	}

	return &Store{db: db, path: path, raceGUID: raceGUID, embedder: embedder}, nil
}

// RaceGUID returns the race this store is scoped to.
func (s *Store) RaceGUID() string { return s.raceGUID }

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// AddDocuments bulk-upserts documents keyed by id in a single transaction:
// any failure rolls back the entire batch so a half-written document set is
// never visible to a concurrent search.
func (s *Store) AddDocuments(ctx context.Context, docs []models.VectorDocument) error {
	if len(docs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin store transaction: %w", err)
	}

	const query = `
		INSERT INTO documents (id, content, embedding, doc_type, race_guid, horse_slug, number)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content = excluded.content,
			embedding = excluded.embedding,
			doc_type = excluded.doc_type,
			race_guid = excluded.race_guid,
			horse_slug = excluded.horse_slug,
			number = excluded.number
	`
	for _, doc := range docs {
		if doc.RaceGUID != s.raceGUID {
			tx.Rollback()
			return fmt.Errorf("document %s is scoped to race %s, store owns %s", doc.ID, doc.RaceGUID, s.raceGUID)
		}
		if _, err := tx.ExecContext(ctx, query,
			doc.ID, doc.Content, packEmbedding(doc.Embedding),
			doc.Type, doc.RaceGUID, doc.HorseSlug, doc.Number,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to upsert document %s: %w", doc.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit document batch: %w", err)
	}
	return nil
}

// SimilaritySearch embeds the query, scans every stored embedding and
// returns the top k documents by descending cosine similarity. Ties are
// broken by insertion order. If raceGUID is non-empty, only documents
// scoped to that race are considered.
func (s *Store) SimilaritySearch(ctx context.Context, query string, k int, raceGUID string) ([]SearchResult, error) {
	if k <= 0 {
		return nil, nil
	}
	start := time.Now()

	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	sql := `SELECT id, content, embedding, doc_type, race_guid, horse_slug, number FROM documents`
	args := []interface{}{}
	if raceGUID != "" {
		sql += ` WHERE race_guid = ?`
		args = append(args, raceGUID)
	}
	sql += ` ORDER BY rowid`

	rows, err := s.db.QueryxContext(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to scan documents: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var doc models.VectorDocument
		var blob []byte
		if err := rows.Scan(&doc.ID, &doc.Content, &blob, &doc.Type, &doc.RaceGUID, &doc.HorseSlug, &doc.Number); err != nil {
			return nil, fmt.Errorf("failed to scan document row: %w", err)
		}
		doc.Embedding = unpackEmbedding(blob)
		results = append(results, SearchResult{
			Document: doc,
			Score:    cosineSimilarity(queryVec, doc.Embedding),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}

	// Stable sort keeps insertion order among equal scores.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > k {
		results = results[:k]
	}
	metrics.RecordSearch(time.Since(start).Seconds())
	return results, nil
}

// DeleteByRaceID removes all documents scoped to the given race.
func (s *Store) DeleteByRaceID(ctx context.Context, raceGUID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE race_guid = ?`, raceGUID); err != nil {
		return fmt.Errorf("failed to delete documents for race %s: %w", raceGUID, err)
	}
	return nil
}

// Clear removes every document in the store.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents`); err != nil {
		return fmt.Errorf("failed to clear store: %w", err)
	}
	return nil
}

// Count returns the number of stored documents.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM documents`); err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return count, nil
}

// Close releases the underlying database resources.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
