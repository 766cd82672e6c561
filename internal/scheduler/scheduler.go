// Package scheduler runs the recurring maintenance jobs: the daily race
// card ingestion sweep and the nightly vector store cleanup.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// RaceLister lists the race GUIDs of one meeting date.
type RaceLister interface {
	ListGUIDsByDate(ctx context.Context, date time.Time) ([]string, error)
}

// Ingester performs a full document ingestion for one race.
type Ingester interface {
	IngestRace(ctx context.Context, raceGUID string) (int, error)
}

// Cleaner removes vector stores older than the retention window.
type Cleaner interface {
	Cleanup(retentionDays int) (int, error)
}

// Scheduler manages the recurring jobs.
type Scheduler struct {
	cron            *cron.Cron
	logger          *logrus.Logger
	mu              sync.RWMutex
	isRunning       bool
	jobIDs          []cron.EntryID
	gracefulTimeout time.Duration
}

// NewScheduler creates a new scheduler running in UTC.
func NewScheduler(logger *logrus.Logger) *Scheduler {
	if logger == nil {
		logger = logrus.New()
	}
	return &Scheduler{
		cron:            cron.New(cron.WithLocation(time.UTC)),
		logger:          logger,
		jobIDs:          make([]cron.EntryID, 0),
		gracefulTimeout: 30 * time.Second,
	}
}

// ScheduleIngestionSweep schedules a sweep that re-ingests every race on
// the current day's card. Individual race failures are logged and skipped;
// the sweep continues.
func (s *Scheduler) ScheduleIngestionSweep(cronExpression string, lister RaceLister, ingester Ingester) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}

	jobFunc := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Hour)
		defer cancel()

		date := time.Now().UTC()
		guids, err := lister.ListGUIDsByDate(ctx, date)
		if err != nil {
			s.logger.WithError(err).Error("Ingestion sweep failed to list races")
			return
		}

		var documents, failures int
		for _, guid := range guids {
			written, err := ingester.IngestRace(ctx, guid)
			if err != nil {
				failures++
				s.logger.WithError(err).WithField("race", guid).Warn("Sweep ingestion failed for race")
				continue
			}
			documents += written
		}

		s.logger.WithFields(logrus.Fields{
			"date":      date.Format("2006-01-02"),
			"races":     len(guids),
			"documents": documents,
			"failures":  failures,
		}).Info("Ingestion sweep completed")
	}

	entryID, err := s.cron.AddFunc(cronExpression, jobFunc)
	if err != nil {
		return fmt.Errorf("failed to add ingestion sweep job: %w", err)
	}

	s.jobIDs = append(s.jobIDs, entryID)
	s.logger.WithField("cron", cronExpression).Info("Scheduled ingestion sweep")
	return nil
}

// ScheduleCleanup schedules the nightly removal of vector stores older than
// the retention window.
func (s *Scheduler) ScheduleCleanup(cronExpression string, cleaner Cleaner, retentionDays int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}

	jobFunc := func() {
		removed, err := cleaner.Cleanup(retentionDays)
		if err != nil {
			s.logger.WithError(err).Error("Vector store cleanup failed")
			return
		}
		s.logger.WithFields(logrus.Fields{
			"removed":        removed,
			"retention_days": retentionDays,
		}).Info("Vector store cleanup completed")
	}

	entryID, err := s.cron.AddFunc(cronExpression, jobFunc)
	if err != nil {
		return fmt.Errorf("failed to add cleanup job: %w", err)
	}

	s.jobIDs = append(s.jobIDs, entryID)
	s.logger.WithField("cron", cronExpression).Info("Scheduled vector store cleanup")
	return nil
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}
	if len(s.jobIDs) == 0 {
		return fmt.Errorf("no jobs scheduled")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.WithField("jobs", len(s.jobIDs)).Info("Scheduler started")
	return nil
}

// Stop gracefully stops the scheduler, waiting for running jobs up to the
// graceful timeout.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	select {
	case <-s.cron.Stop().Done():
	case <-time.After(s.gracefulTimeout):
		s.logger.Warn("Scheduler stop timed out waiting for running jobs")
	}

	s.isRunning = false
	s.logger.Info("Scheduler stopped")
	return nil
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRun returns the time of the next scheduled job run
func (s *Scheduler) GetNextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning || len(s.jobIDs) == 0 {
		return time.Time{}
	}

	nextRun := time.Time{}
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() {
			if nextRun.IsZero() || entry.Next.Before(nextRun) {
				nextRun = entry.Next
			}
		}
	}
	return nextRun
}

// Entries returns information about scheduled entries
func (s *Scheduler) Entries() []cron.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]cron.Entry, 0, len(s.jobIDs))
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() {
			entries = append(entries, entry)
		}
	}
	return entries
}
