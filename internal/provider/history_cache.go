package provider

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/styxali/turfintel-sub000/internal/models"
	"github.com/styxali/turfintel-sub000/internal/repository"
)

// CachedHistoryReader persists fetched horse histories to the horse
// repository and serves the stored copy when the upstream is down. Like the
// race cache, persistence is best-effort.
type CachedHistoryReader struct {
	upstream HistoryReader
	horses   repository.HorseRepository
	logger   *logrus.Logger
}

// NewCachedHistoryReader creates a write-through history reader. horses may
// be nil when no database-backed fallback is wanted.
func NewCachedHistoryReader(upstream HistoryReader, horses repository.HorseRepository, logger *logrus.Logger) *CachedHistoryReader {
	return &CachedHistoryReader{
		upstream: upstream,
		horses:   horses,
		logger:   logger,
	}
}

// GetHistory returns the horse's history from upstream, falling back to the
// last stored copy when the fetch fails.
func (r *CachedHistoryReader) GetHistory(ctx context.Context, horseSlug string) ([]models.HistoryEntry, *models.HorseStats, error) {
	history, stats, err := r.upstream.GetHistory(ctx, horseSlug)
	if err == nil {
		if r.horses != nil {
			// ErrNotFound means the horse row does not exist yet; the race
			// upsert creates it on the next ingestion.
			if werr := r.horses.UpdateHistory(ctx, horseSlug, history, stats); werr != nil && !errors.Is(werr, models.ErrNotFound) {
				r.logger.WithError(werr).WithField("horse", horseSlug).Warn("Failed to persist horse history")
			}
		}
		return history, stats, nil
	}

	if r.horses != nil {
		horse, gerr := r.horses.GetBySlug(ctx, horseSlug)
		if gerr == nil && len(horse.History) > 0 {
			r.logger.WithError(err).WithField("horse", horseSlug).Warn("Upstream history fetch failed, serving stored copy")
			return horse.History, horse.Stats, nil
		}
	}
	return nil, nil, err
}
