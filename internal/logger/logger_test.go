package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestLogger() (*logrus.Logger, *bytes.Buffer) {
	log := logrus.New()
	buf := &bytes.Buffer{}
	log.SetOutput(buf)
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.DebugLevel)
	return log, buf
}

func parseLogOutput(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestNewLoggerLevels(t *testing.T) {
	log := NewLogger("debug")
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())

	log = NewLogger("warn")
	assert.Equal(t, logrus.WarnLevel, log.GetLevel())

	log = NewLogger("nonsense")
	assert.Equal(t, logrus.InfoLevel, log.GetLevel(), "invalid level falls back to info")
}

func TestAuditLoggerRaceIngestion(t *testing.T) {
	log, buf := setupTestLogger()
	audit := NewAuditLogger(log)

	audit.LogRaceIngestion("20240315_R1_C3", 12, 420*time.Millisecond, nil)

	entry := parseLogOutput(t, buf)
	assert.Equal(t, "audit", entry["component"])
	assert.Equal(t, "20240315_R1_C3", entry["race_guid"])
	assert.Equal(t, float64(12), entry["documents"])
	assert.Equal(t, "Race ingestion recorded", entry["msg"])
}

func TestAuditLoggerRaceIngestionFailure(t *testing.T) {
	log, buf := setupTestLogger()
	audit := NewAuditLogger(log)

	audit.LogRaceIngestion("20240315_R1_C3", 0, time.Second, errors.New("embedding unavailable"))

	entry := parseLogOutput(t, buf)
	assert.Equal(t, "warning", entry["level"])
	assert.Equal(t, "embedding unavailable", entry["error"])
}

func TestAuditLoggerStoreCleanup(t *testing.T) {
	log, buf := setupTestLogger()
	audit := NewAuditLogger(log)

	audit.LogStoreCleanup(1, 3)

	entry := parseLogOutput(t, buf)
	assert.Equal(t, float64(1), entry["retention_days"])
	assert.Equal(t, float64(3), entry["removed"])
}

func TestAuditLoggerChatTurn(t *testing.T) {
	log, buf := setupTestLogger()
	audit := NewAuditLogger(log)

	audit.LogChatTurn("session-1", "20240315_R1_C3", 5)

	entry := parseLogOutput(t, buf)
	assert.Equal(t, "session-1", entry["session_id"])
	assert.Equal(t, float64(5), entry["sources"])
}

func TestAuditLoggerProviderFailure(t *testing.T) {
	log, buf := setupTestLogger()
	audit := NewAuditLogger(log)

	audit.LogProviderFailure("race", errors.New("status 503"))

	entry := parseLogOutput(t, buf)
	assert.Equal(t, "warning", entry["level"])
	assert.Equal(t, "race", entry["endpoint"])
	assert.Equal(t, "status 503", entry["error"])
}
