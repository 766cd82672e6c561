package vectorstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/styxali/turfintel-sub000/internal/embedding"
	"github.com/styxali/turfintel-sub000/internal/metrics"
)

// Registry tracks one vector store per race, lazily opening and memoizing
// them. It is an explicit injected dependency owned by the composition
// root, so tests can construct isolated registries per case.
type Registry struct {
	basePath string
	embedder embedding.Embedder
	logger   *logrus.Logger

	mu     sync.Mutex
	stores map[string]*Store

	// now is swappable for retention-boundary tests.
	now func() time.Time
}

// NewRegistry creates a registry rooted at basePath.
func NewRegistry(basePath string, embedder embedding.Embedder, logger *logrus.Logger) *Registry {
	return &Registry{
		basePath: basePath,
		embedder: embedder,
		logger:   logger,
		stores:   make(map[string]*Store),
		now:      time.Now,
	}
}

// Get returns the cached open store for the race, opening it on first use.
func (r *Registry) Get(raceGUID string) (*Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if store, ok := r.stores[raceGUID]; ok {
		return store, nil
	}

	path, err := StorePath(r.basePath, raceGUID)
	if err != nil {
		return nil, err
	}

	store, err := Open(path, raceGUID, r.embedder)
	if err != nil {
		return nil, err
	}
	r.stores[raceGUID] = store
	metrics.VectorStoresOpen.Set(float64(len(r.stores)))

	r.logger.WithFields(logrus.Fields{"race": raceGUID, "path": path}).Debug("Opened vector store")
	return store, nil
}

// Cleanup physically deletes the stores of every race whose meeting date is
// strictly older than today minus retentionDays, evicting them from the
// in-process cache, and reports the count removed. A race dated exactly on
// the boundary is retained.
func (r *Registry) Cleanup(retentionDays int) (int, error) {
	if retentionDays < 0 {
		retentionDays = 1
	}

	today := r.now().Truncate(24 * time.Hour)
	cutoff := today.AddDate(0, 0, -retentionDays)

	entries, err := os.ReadDir(r.basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read store base directory: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		date, err := time.Parse("2006-01-02", entry.Name())
		if err != nil {
			// Foreign directories are left alone.
			continue
		}
		if !date.Before(cutoff) {
			continue
		}

		dateDir := filepath.Join(r.basePath, entry.Name())
		count := countStores(dateDir)

		r.evictUnder(dateDir)
		if err := os.RemoveAll(dateDir); err != nil {
			return removed, fmt.Errorf("failed to remove stores under %s: %w", dateDir, err)
		}
		removed += count
		r.logger.WithFields(logrus.Fields{"date": entry.Name(), "stores": count}).Info("Reclaimed vector stores")
	}

	metrics.StoreCleanupsTotal.Inc()
	metrics.StoresReclaimedTotal.Add(float64(removed))
	return removed, nil
}

// Close closes every cached store.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for guid, store := range r.stores {
		if err := store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(r.stores, guid)
	}
	metrics.VectorStoresOpen.Set(0)
	return firstErr
}

// evictUnder closes and forgets cached stores whose file lives below dir.
func (r *Registry) evictUnder(dir string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prefix := dir + string(os.PathSeparator)
	for guid, store := range r.stores {
		if strings.HasPrefix(store.Path(), prefix) {
			store.Close()
			delete(r.stores, guid)
		}
	}
	metrics.VectorStoresOpen.Set(float64(len(r.stores)))
}

// countStores counts race store files below a date directory.
func countStores(dateDir string) int {
	count := 0
	filepath.WalkDir(dateDir, func(path string, d os.DirEntry, err error) error {
		if err == nil && !d.IsDir() && d.Name() == storeFileName {
			count++
		}
		return nil
	})
	return count
}
