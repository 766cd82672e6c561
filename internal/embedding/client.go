package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/styxali/turfintel-sub000/internal/metrics"
	"github.com/styxali/turfintel-sub000/internal/models"
)

// ClientConfig holds configuration for the embeddings HTTP client
type ClientConfig struct {
	BaseURL      string
	APIKey       string
	Model        string
	Timeout      time.Duration
	MaxRetries   int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	RateLimit    float64 // requests per second
}

// DefaultClientConfig returns recommended defaults
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BaseURL:      "https://api.openai.com/v1",
		Model:        "text-embedding-3-small",
		Timeout:      30 * time.Second,
		MaxRetries:   3,
		RetryWaitMin: 100 * time.Millisecond,
		RetryWaitMax: 5 * time.Second,
		RateLimit:    10.0,
	}
}

// Client is an OpenAI-compatible embeddings client with retries and
// rate limiting.
type Client struct {
	cfg     ClientConfig
	client  *retryablehttp.Client
	limiter *rate.Limiter
	logger  *logrus.Logger

	mu        sync.RWMutex
	dimension int
}

// NewClient creates a new embeddings client
func NewClient(cfg ClientConfig, logger *logrus.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultClientConfig().BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultClientConfig().Model
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = DefaultClientConfig().RateLimit
	}

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient.Timeout = cfg.Timeout
	retryClient.RetryMax = cfg.MaxRetries
	retryClient.RetryWaitMin = cfg.RetryWaitMin
	retryClient.RetryWaitMax = cfg.RetryWaitMax
	retryClient.Logger = nil

	return &Client{
		cfg:     cfg,
		client:  retryClient,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
		logger:  logger,
	}
}

type embeddingRequest struct {
	Input string `json:"input"`
	Model string `json:"model"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed returns an embedding vector for the given text. Failures are not
// retried beyond the transport policy; they propagate to the caller.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	body, err := json.Marshal(embeddingRequest{Input: text, Model: c.cfg.Model})
	if err != nil {
		return nil, fmt.Errorf("failed to encode embedding request: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	metrics.EmbeddingLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("%w: embedding request failed: %v", models.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: embedding service returned %d: %s", models.ErrUpstreamUnavailable, resp.StatusCode, snippet)
	}

	var parsed embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode embedding response: %w", err)
	}
	if len(parsed.Data) == 0 || len(parsed.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("%w: embedding service returned no vector", models.ErrUpstreamUnavailable)
	}

	vector := parsed.Data[0].Embedding
	c.mu.Lock()
	if c.dimension == 0 {
		c.dimension = len(vector)
		c.logger.WithField("dimension", c.dimension).Debug("Embedding dimension detected")
	}
	c.mu.Unlock()

	return vector, nil
}

// Dimension returns the dimensionality observed on the first call, 0 before.
func (c *Client) Dimension() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dimension
}
