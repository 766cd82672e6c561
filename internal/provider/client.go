// Package provider implements the client for the upstream racing data API.
// Raw provider payloads are mapped into typed aggregates here, at the read
// boundary; downstream components never see provider JSON.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/styxali/turfintel-sub000/internal/metrics"
	"github.com/styxali/turfintel-sub000/internal/models"
)

// RaceReader is the fetch-or-read interface consumed by the document
// builder and the analytics engine.
type RaceReader interface {
	GetRace(ctx context.Context, guid string) (*models.Race, error)
}

// HistoryReader supplies a horse's historical race list.
type HistoryReader interface {
	GetHistory(ctx context.Context, horseSlug string) ([]models.HistoryEntry, *models.HorseStats, error)
}

// Client talks to the racing data provider API.
type Client struct {
	httpClient *RateLimitedHTTPClient
	baseURL    string
	apiKey     string
	logger     *logrus.Logger
}

// NewClient creates a new provider API client
func NewClient(httpClient *RateLimitedHTTPClient, baseURL, apiKey string, logger *logrus.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     apiKey,
		logger:     logger,
	}
}

// raceEnvelope is the provider's race payload. Sub-resources arrive as
// embedded JSON objects and are decoded once, here.
type raceEnvelope struct {
	GUID       string          `json:"guid"`
	Name       string          `json:"name"`
	Venue      string          `json:"venueName"`
	Distance   int             `json:"distance"`
	Ground     string          `json:"ground"`
	Discipline string          `json:"discipline"`
	StartTime  time.Time       `json:"scheduledTime"`
	PrizeMoney string          `json:"prizeMoney"`
	Category   string          `json:"category"`
	Runners    []runnerEntry   `json:"runners"`
	Pronostic  json.RawMessage `json:"pronostic,omitempty"`
	Odds       json.RawMessage `json:"odds,omitempty"`
	Notes      json.RawMessage `json:"notes,omitempty"`
	Interviews json.RawMessage `json:"interviews,omitempty"`
	Tracking   json.RawMessage `json:"tracking,omitempty"`
	Notule     json.RawMessage `json:"notule,omitempty"`
	References json.RawMessage `json:"referenceRaces,omitempty"`
}

type runnerEntry struct {
	Number   int      `json:"number"`
	Slug     string   `json:"horseSlug"`
	Name     string   `json:"horseName"`
	Sex      string   `json:"sex"`
	Age      int      `json:"age"`
	Earnings string   `json:"earnings"`
	Form     string   `json:"form"`
	Jockey   string   `json:"jockey"`
	Trainer  string   `json:"trainer"`
	Weight   float64  `json:"weight"`
	Draw     int      `json:"draw"`
	Odds     *float64 `json:"odds,omitempty"`
	Rating   *float64 `json:"rating,omitempty"`
}

type historyEnvelope struct {
	Races []models.HistoryEntry `json:"races"`
	Stats *models.HorseStats    `json:"stats,omitempty"`
}

// GetRace fetches one race aggregate by GUID.
func (c *Client) GetRace(ctx context.Context, guid string) (*models.Race, error) {
	if _, err := models.ParseRaceID(guid); err != nil {
		return nil, err
	}

	var envelope raceEnvelope
	if err := c.getJSON(ctx, fmt.Sprintf("%s/races/%s", c.baseURL, guid), "race", &envelope); err != nil {
		return nil, err
	}
	return c.mapRace(&envelope)
}

// GetHistory fetches a horse's historical race list and aggregate stats.
func (c *Client) GetHistory(ctx context.Context, horseSlug string) ([]models.HistoryEntry, *models.HorseStats, error) {
	var envelope historyEnvelope
	if err := c.getJSON(ctx, fmt.Sprintf("%s/horses/%s/history", c.baseURL, horseSlug), "history", &envelope); err != nil {
		return nil, nil, err
	}
	return envelope.Races, envelope.Stats, nil
}

func (c *Client) getJSON(ctx context.Context, url, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(ctx, req)
	if err != nil {
		metrics.ProviderRequestsTotal.WithLabelValues(endpoint, "error").Inc()
		return fmt.Errorf("%w: %v", models.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		metrics.ProviderRequestsTotal.WithLabelValues(endpoint, "not_found").Inc()
		return models.ErrNotFound
	case resp.StatusCode != http.StatusOK:
		metrics.ProviderRequestsTotal.WithLabelValues(endpoint, "error").Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: unexpected status %d: %s", models.ErrUpstreamUnavailable, resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		metrics.ProviderRequestsTotal.WithLabelValues(endpoint, "invalid").Inc()
		return fmt.Errorf("failed to parse provider response: %w", err)
	}
	metrics.ProviderRequestsTotal.WithLabelValues(endpoint, "ok").Inc()
	return nil
}

func (c *Client) mapRace(envelope *raceEnvelope) (*models.Race, error) {
	prize, err := decimal.NewFromString(orZero(envelope.PrizeMoney))
	if err != nil {
		return nil, fmt.Errorf("failed to parse prize money %q: %w", envelope.PrizeMoney, err)
	}

	race := &models.Race{
		GUID:       envelope.GUID,
		Name:       envelope.Name,
		Venue:      envelope.Venue,
		Distance:   envelope.Distance,
		Ground:     envelope.Ground,
		Discipline: envelope.Discipline,
		StartTime:  envelope.StartTime,
		PrizeMoney: prize,
		Category:   envelope.Category,
	}

	for _, entry := range envelope.Runners {
		earnings, err := decimal.NewFromString(orZero(entry.Earnings))
		if err != nil {
			c.logger.WithFields(logrus.Fields{"horse": entry.Slug, "earnings": entry.Earnings}).
				Warn("Unparsable earnings, defaulting to zero")
			earnings = decimal.Zero
		}
		race.Runners = append(race.Runners, &models.Runner{
			Number:   entry.Number,
			RaceGUID: envelope.GUID,
			Horse: &models.Horse{
				ID:       uuid.New(),
				Slug:     entry.Slug,
				Name:     entry.Name,
				Sex:      entry.Sex,
				Age:      entry.Age,
				Earnings: earnings,
				Form:     entry.Form,
			},
			Jockey:  entry.Jockey,
			Trainer: entry.Trainer,
			Weight:  entry.Weight,
			Draw:    entry.Draw,
			Odds:    entry.Odds,
			Rating:  entry.Rating,
		})
	}

	if err := decodeSubResources(envelope, race); err != nil {
		return nil, err
	}
	return race, nil
}

// decodeSubResources parses the embedded sub-resource blobs into typed
// structures. An absent blob is not an error; a present but unparsable one
// is, so bad provider data surfaces at the boundary instead of downstream.
func decodeSubResources(envelope *raceEnvelope, race *models.Race) error {
	decode := func(raw json.RawMessage, name string, out interface{}) error {
		if len(raw) == 0 || string(raw) == "null" {
			return nil
		}
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("failed to parse %s sub-resource: %w", name, err)
		}
		return nil
	}

	if err := decode(envelope.Pronostic, "pronostic", &race.Pronostic); err != nil {
		return err
	}
	if err := decode(envelope.Odds, "odds", &race.Odds); err != nil {
		return err
	}
	if err := decode(envelope.Notes, "notes", &race.Notes); err != nil {
		return err
	}
	if err := decode(envelope.Interviews, "interviews", &race.Interviews); err != nil {
		return err
	}
	if err := decode(envelope.Tracking, "tracking", &race.Tracking); err != nil {
		return err
	}
	if err := decode(envelope.Notule, "notule", &race.Notule); err != nil {
		return err
	}
	if err := decode(envelope.References, "referenceRaces", &race.References); err != nil {
		return err
	}
	return nil
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}
