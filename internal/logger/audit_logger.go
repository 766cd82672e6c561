// Package logger provides audit logging.
package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// AuditLogger provides dedicated audit trail logging for data-changing
// operations: ingestions, store cleanups and chat persistence.
type AuditLogger struct {
	*logrus.Entry
}

// NewAuditLogger creates a new audit logger.
func NewAuditLogger(baseLogger *logrus.Logger) *AuditLogger {
	return &AuditLogger{
		Entry: baseLogger.WithField("component", "audit"),
	}
}

// LogRaceIngestion logs a completed or failed race ingestion.
func (al *AuditLogger) LogRaceIngestion(raceGUID string, documents int, duration time.Duration, err error) {
	fields := logrus.Fields{
		"race_guid":   raceGUID,
		"documents":   documents,
		"duration_ms": duration.Milliseconds(),
	}
	if err != nil {
		al.WithFields(fields).WithError(err).Warn("Race ingestion failed")
		return
	}
	al.WithFields(fields).Info("Race ingestion recorded")
}

// LogStoreCleanup logs a vector store cleanup sweep.
func (al *AuditLogger) LogStoreCleanup(retentionDays, removed int) {
	al.WithFields(logrus.Fields{
		"retention_days": retentionDays,
		"removed":        removed,
	}).Info("Vector store cleanup recorded")
}

// LogChatTurn logs one answered chat turn.
func (al *AuditLogger) LogChatTurn(sessionID, raceGUID string, sources int) {
	al.WithFields(logrus.Fields{
		"session_id": sessionID,
		"race_guid":  raceGUID,
		"sources":    sources,
	}).Info("Chat turn recorded")
}

// LogProviderFailure logs an upstream provider failure with its endpoint.
func (al *AuditLogger) LogProviderFailure(endpoint string, err error) {
	al.WithFields(logrus.Fields{
		"endpoint": endpoint,
	}).WithError(err).Warn("Provider failure recorded")
}
