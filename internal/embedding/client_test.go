package embedding

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/styxali/turfintel-sub000/internal/metrics"
	"github.com/styxali/turfintel-sub000/internal/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(ClientConfig{
		BaseURL:      srv.URL,
		APIKey:       "test-key",
		Model:        "test-model",
		Timeout:      2 * time.Second,
		MaxRetries:   0,
		RetryWaitMin: time.Millisecond,
		RetryWaitMax: time.Millisecond,
		RateLimit:    1000,
	}, testLogger())
}

func embeddingLatencySampleCount(t *testing.T) uint64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, metrics.EmbeddingLatency.Write(&m))
	return m.GetHistogram().GetSampleCount()
}

func TestEmbedReturnsVector(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"data":[{"embedding":[0.1,0.2,0.3]}]}`)
	})

	vector, err := client.Embed(context.Background(), "Distance: 2400m")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vector)
	assert.Equal(t, 3, client.Dimension())
}

func TestEmbedObservesLatency(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[{"embedding":[1]}]}`)
	})

	before := embeddingLatencySampleCount(t)
	_, err := client.Embed(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, before+1, embeddingLatencySampleCount(t))
}

func TestEmbedUpstreamError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	})

	_, err := client.Embed(context.Background(), "anything")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrUpstreamUnavailable)
}

func TestEmbedEmptyResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[]}`)
	})

	_, err := client.Embed(context.Background(), "anything")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrUpstreamUnavailable)
}
