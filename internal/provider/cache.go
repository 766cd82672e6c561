package provider

import (
	"context"
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/styxali/turfintel-sub000/internal/metrics"
	"github.com/styxali/turfintel-sub000/internal/models"
	"github.com/styxali/turfintel-sub000/internal/repository"
)

// CachedRaceReader is a read-through cache in front of the provider API
// with write-behind persistence to the race repository. Persistence is
// best-effort: a failed write is logged, not surfaced, so callers must not
// assume a just-fetched race is durably stored.
type CachedRaceReader struct {
	upstream RaceReader
	raceRepo repository.RaceRepository
	cache    *cache.Cache
	ttl      time.Duration
	logger   *logrus.Logger

	mu        sync.Mutex
	hitCount  uint64
	missCount uint64
}

// NewCachedRaceReader creates a read-through cached reader. raceRepo may be
// nil when no database-backed fallback is wanted.
func NewCachedRaceReader(upstream RaceReader, raceRepo repository.RaceRepository, ttl time.Duration, logger *logrus.Logger) *CachedRaceReader {
	return &CachedRaceReader{
		upstream: upstream,
		raceRepo: raceRepo,
		cache:    cache.New(ttl, ttl*2),
		ttl:      ttl,
		logger:   logger,
	}
}

// GetRace returns the race from cache, database or upstream, in that order.
func (r *CachedRaceReader) GetRace(ctx context.Context, guid string) (*models.Race, error) {
	if cached, found := r.cache.Get(guid); found {
		if race, ok := cached.(*models.Race); ok {
			r.recordHit(true)
			return race, nil
		}
	}
	r.recordHit(false)

	if r.raceRepo != nil {
		race, err := r.raceRepo.GetByGUID(ctx, guid)
		if err == nil {
			r.cache.Set(guid, race, r.ttl)
			return race, nil
		}
	}

	race, err := r.upstream.GetRace(ctx, guid)
	if err != nil {
		return nil, err
	}
	r.cache.Set(guid, race, r.ttl)

	if r.raceRepo != nil {
		if err := r.raceRepo.Upsert(ctx, race); err != nil {
			r.logger.WithError(err).WithField("race", guid).Warn("Failed to persist fetched race")
		}
	}
	return race, nil
}

// Invalidate drops a race from the cache.
func (r *CachedRaceReader) Invalidate(guid string) {
	r.cache.Delete(guid)
}

// ApplyOddsUpdate replaces the odds snapshot of a cached race with a live
// feed update. The cached aggregate is shared with readers, so the update
// swaps in a fresh copy instead of mutating in place. Returns false when
// the race is not cached; the next read fetches current odds anyway.
func (r *CachedRaceReader) ApplyOddsUpdate(guid string, at time.Time, entries []models.RunnerOdds) bool {
	cached, found := r.cache.Get(guid)
	if !found {
		return false
	}
	race, ok := cached.(*models.Race)
	if !ok {
		return false
	}

	quoted := make(map[int]float64, len(entries))
	for _, entry := range entries {
		quoted[entry.Number] = entry.Odds
	}

	updated := *race
	updated.Odds = &models.OddsSnapshot{Time: at, Entries: entries}
	updated.Runners = make([]*models.Runner, len(race.Runners))
	for i, runner := range race.Runners {
		copied := *runner
		if odds, ok := quoted[runner.Number]; ok {
			copied.Odds = &odds
		}
		updated.Runners[i] = &copied
	}

	r.cache.Set(guid, &updated, r.ttl)
	r.logger.WithFields(logrus.Fields{
		"race":    guid,
		"entries": len(entries),
	}).Debug("Applied live odds update")
	return true
}

// Stats returns cache hit/miss counts and the hit ratio.
func (r *CachedRaceReader) Stats() (hits, misses uint64, ratio float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	hits, misses = r.hitCount, r.missCount
	if total := hits + misses; total > 0 {
		ratio = float64(hits) / float64(total)
	}
	return
}

func (r *CachedRaceReader) recordHit(hit bool) {
	r.mu.Lock()
	if hit {
		r.hitCount++
	} else {
		r.missCount++
	}
	hits, misses := r.hitCount, r.missCount
	r.mu.Unlock()

	if total := hits + misses; total > 0 {
		metrics.ProviderCacheHitRatio.Set(float64(hits) / float64(total))
	}
}
