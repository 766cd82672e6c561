package provider

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/styxali/turfintel-sub000/internal/models"
)

// OddsHandler is called for every odds update received on the stream.
type OddsHandler func(update OddsUpdate) error

// OddsUpdate is a single push message from the provider's odds feed.
type OddsUpdate struct {
	RaceGUID  string              `json:"race_guid"`
	Time      time.Time           `json:"time"`
	Entries   []models.RunnerOdds `json:"entries"`
	Heartbeat bool                `json:"heartbeat,omitempty"`
}

// ReconnectConfig controls reconnection behavior for the odds stream.
type ReconnectConfig struct {
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

// DefaultReconnectConfig returns default reconnection configuration
func DefaultReconnectConfig() ReconnectConfig {
	return ReconnectConfig{
		MaxRetries:        10,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 1.5,
	}
}

// OddsStream maintains a WebSocket connection to the provider's live odds
// feed and fans incoming updates out to registered handlers.
type OddsStream struct {
	conn            *websocket.Conn
	apiKey          string
	baseURL         string
	mu              sync.RWMutex
	isConnected     bool
	handlers        []OddsHandler
	subscriptions   []string
	reconnectConfig ReconnectConfig
	lastMessageTime time.Time
	logger          *logrus.Logger
}

// NewOddsStream creates a new odds stream client
func NewOddsStream(baseURL, apiKey string, logger *logrus.Logger) *OddsStream {
	if logger == nil {
		logger = logrus.New()
	}

	return &OddsStream{
		apiKey:          apiKey,
		baseURL:         baseURL,
		handlers:        make([]OddsHandler, 0),
		reconnectConfig: DefaultReconnectConfig(),
		logger:          logger,
	}
}

// streamURL builds the feed endpoint. A bare host gets the wss scheme;
// an explicit ws:// or wss:// base is used verbatim.
func (s *OddsStream) streamURL() string {
	if strings.Contains(s.baseURL, "://") {
		return s.baseURL + "/stream/odds"
	}
	return fmt.Sprintf("wss://%s/stream/odds", s.baseURL)
}

// Connect establishes the WebSocket connection and starts the read loop.
func (s *OddsStream) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isConnected {
		return fmt.Errorf("already connected")
	}

	wsURL := s.streamURL()

	s.logger.WithField("url", wsURL).Info("Connecting to odds stream")

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to odds stream: %w", err)
	}

	s.conn = conn
	s.isConnected = true
	s.lastMessageTime = time.Now()

	s.logger.Info("Connected to odds stream")

	go s.readMessages(ctx)

	return nil
}

// Authenticate sends the authentication message
func (s *OddsStream) Authenticate(ctx context.Context) error {
	s.mu.RLock()
	if !s.isConnected || s.conn == nil {
		s.mu.RUnlock()
		return fmt.Errorf("not connected to odds stream")
	}
	s.mu.RUnlock()

	authMsg := map[string]interface{}{
		"op":      "connection",
		"api_key": s.apiKey,
	}

	return s.sendMessage(authMsg)
}

// Subscribe subscribes to odds updates for the given race GUIDs.
func (s *OddsStream) Subscribe(ctx context.Context, raceGUIDs []string) error {
	s.mu.Lock()
	if !s.isConnected || s.conn == nil {
		s.mu.Unlock()
		return fmt.Errorf("not connected to odds stream")
	}
	s.subscriptions = raceGUIDs
	s.mu.Unlock()

	subMsg := map[string]interface{}{
		"op":         "subscribe",
		"api_key":    s.apiKey,
		"race_guids": raceGUIDs,
		"heartbeat":  true,
	}

	s.logger.WithField("races", len(raceGUIDs)).Info("Subscribing to odds updates")
	return s.sendMessage(subMsg)
}

// AddHandler registers an odds update handler
func (s *OddsStream) AddHandler(handler OddsHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, handler)
}

// readMessages reads updates from the WebSocket connection and reconnects
// with exponential backoff when the connection drops.
func (s *OddsStream) readMessages(ctx context.Context) {
	for {
		var update OddsUpdate
		err := s.conn.ReadJSON(&update)
		if err != nil {
			s.mu.Lock()
			s.isConnected = false
			s.mu.Unlock()

			if ctx.Err() != nil {
				return
			}

			s.logger.WithError(err).Warn("Odds stream read failed, reconnecting")
			if rerr := s.reconnect(ctx); rerr != nil {
				s.logger.WithError(rerr).Error("Odds stream reconnection failed")
				return
			}
			continue
		}

		s.mu.Lock()
		s.lastMessageTime = time.Now()
		s.mu.Unlock()

		if update.Heartbeat {
			continue
		}

		s.mu.RLock()
		handlers := s.handlers
		s.mu.RUnlock()

		for _, handler := range handlers {
			if err := handler(update); err != nil {
				s.logger.WithError(err).WithField("race", update.RaceGUID).Warn("Odds handler error")
			}
		}
	}
}

// reconnect dials again with exponential backoff and restores the
// previous subscription.
func (s *OddsStream) reconnect(ctx context.Context) error {
	backoff := s.reconnectConfig.InitialBackoff

	for attempt := 1; attempt <= s.reconnectConfig.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		s.logger.WithField("attempt", attempt).Info("Reconnecting to odds stream")

		wsURL := s.streamURL()
		dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
		conn, _, err := dialer.DialContext(ctx, wsURL, nil)
		if err == nil {
			s.mu.Lock()
			s.conn = conn
			s.isConnected = true
			s.lastMessageTime = time.Now()
			subs := s.subscriptions
			s.mu.Unlock()

			if aerr := s.Authenticate(ctx); aerr != nil {
				s.logger.WithError(aerr).Warn("Re-authentication failed")
			}
			if len(subs) > 0 {
				if serr := s.Subscribe(ctx, subs); serr != nil {
					s.logger.WithError(serr).Warn("Re-subscription failed")
				}
			}
			return nil
		}

		s.logger.WithError(err).WithField("attempt", attempt).Warn("Reconnect attempt failed")

		backoff = time.Duration(float64(backoff) * s.reconnectConfig.BackoffMultiplier)
		if backoff > s.reconnectConfig.MaxBackoff {
			backoff = s.reconnectConfig.MaxBackoff
		}
	}

	return fmt.Errorf("failed to reconnect after %d attempts", s.reconnectConfig.MaxRetries)
}

// sendMessage sends a JSON message on the stream
func (s *OddsStream) sendMessage(msg interface{}) error {
	s.mu.RLock()
	if !s.isConnected || s.conn == nil {
		s.mu.RUnlock()
		return fmt.Errorf("not connected")
	}
	conn := s.conn
	s.mu.RUnlock()

	return conn.WriteJSON(msg)
}

// IsConnected returns whether the stream is connected
func (s *OddsStream) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isConnected
}

// LastMessageTime returns the time of the last received message
func (s *OddsStream) LastMessageTime() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastMessageTime
}

// Close closes the stream connection
func (s *OddsStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}

	s.isConnected = false
	return s.conn.Close()
}

// Ping sends a ping message to keep the connection alive
func (s *OddsStream) Ping() error {
	return s.sendMessage(map[string]interface{}{
		"op": "ping",
	})
}
