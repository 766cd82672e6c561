// Package main provides the entry point for the chat service.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/styxali/turfintel-sub000/internal/chat"
	"github.com/styxali/turfintel-sub000/internal/config"
	"github.com/styxali/turfintel-sub000/internal/database"
	"github.com/styxali/turfintel-sub000/internal/documents"
	"github.com/styxali/turfintel-sub000/internal/embedding"
	"github.com/styxali/turfintel-sub000/internal/health"
	applogger "github.com/styxali/turfintel-sub000/internal/logger"
	"github.com/styxali/turfintel-sub000/internal/metrics"
	"github.com/styxali/turfintel-sub000/internal/models"
	"github.com/styxali/turfintel-sub000/internal/provider"
	"github.com/styxali/turfintel-sub000/internal/repository"
	"github.com/styxali/turfintel-sub000/internal/scheduler"
	"github.com/styxali/turfintel-sub000/internal/vectorstore"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
)

// chatTurn is the inbound WebSocket message shape.
type chatTurn struct {
	SessionID string `json:"session_id,omitempty"`
	Text      string `json:"text"`
	RaceGUID  string `json:"race_guid,omitempty"`
	HorseSlug string `json:"horse_slug,omitempty"`
}

func main() {
	configPath := flag.String("config", "config/config.yaml", "Path to configuration file")
	port := flag.Int("port", 8090, "Chat WebSocket listen port")
	flag.Parse()

	cfg, err := config.LoadWithDefaults(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			log.Fatalf("AWS_REGION and AWS_SECRET_NAME environment variables must be set when AWS_SECRETS_ENABLED is true")
		}
		if err := config.LoadSecretsFromAWS(cfg, region, secretName); err != nil {
			log.Fatalf("Failed to load secrets: %v", err)
		}
	}

	if err := config.Validate(cfg); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	appLog := applogger.NewLogger(cfg.App.LogLevel)
	audit := applogger.NewAuditLogger(appLog)
	appLog.WithFields(logrus.Fields{
		"environment": cfg.App.Environment,
		"version":     Version,
	}).Info("TurfIntel chat service starting")

	metrics.InitRegistry()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.NewDB(ctx, &cfg.Database)
	if err != nil {
		appLog.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()
	appLog.Info("Database connection established")

	raceRepo := repository.NewPostgresRaceRepository(db)
	horseRepo := repository.NewPostgresHorseRepository(db)
	chatRepo := repository.NewPostgresChatRepository(db)

	embedder := embedding.NewClient(embedding.ClientConfig{
		BaseURL:      cfg.Embedding.BaseURL,
		APIKey:       cfg.Embedding.APIKey,
		Model:        cfg.Embedding.Model,
		Timeout:      time.Duration(cfg.Embedding.TimeoutSeconds) * time.Second,
		MaxRetries:   cfg.Embedding.MaxRetries,
		RetryWaitMin: 100 * time.Millisecond,
		RetryWaitMax: 5 * time.Second,
		RateLimit:    cfg.Embedding.RateLimit,
	}, appLog)

	registry := vectorstore.NewRegistry(cfg.VectorStore.BasePath, embedder, appLog)
	defer registry.Close()

	httpClient := provider.NewRateLimitedHTTPClient(provider.HTTPClientConfig{
		Timeout:           time.Duration(cfg.Provider.TimeoutSeconds) * time.Second,
		MaxRetries:        cfg.Provider.MaxRetries,
		RetryWaitMin:      100 * time.Millisecond,
		RetryWaitMax:      10 * time.Second,
		RateLimit:         cfg.Provider.RateLimit,
		CircuitBreakerMax: cfg.Provider.CircuitBreakerMax,
	}, appLog)
	client := provider.NewClient(httpClient, cfg.Provider.BaseURL, cfg.Provider.APIKey, appLog)
	cachedRaces := provider.NewCachedRaceReader(client, raceRepo,
		time.Duration(cfg.Provider.CacheTTLSeconds)*time.Second, appLog)
	histories := provider.NewCachedHistoryReader(client, horseRepo, appLog)

	builder := documents.NewBuilder(cachedRaces, histories, registry, embedder, appLog)

	manager := chat.NewManager(registry, builder, chatRepo, appLog)
	manager.SetThresholds(cfg.Chat.MinDocuments, cfg.Chat.TopK)

	// Health endpoints with dependency probes.
	healthServer := health.NewServer(health.Config{
		ServiceName: "chatd",
		Version:     Version,
		Commit:      GitCommit,
		Port:        fmt.Sprintf("%d", cfg.App.HealthPort),
		Logger:      appLog,
		DB:          db,
	})
	healthServer.AddCheck("provider", func(ctx context.Context) error {
		if httpClient.IsCircuitOpen() {
			return fmt.Errorf("provider circuit breaker open")
		}
		return nil
	})
	if err := healthServer.Start(ctx); err != nil {
		appLog.WithError(err).Fatal("Failed to start health server")
	}

	// Prometheus endpoint.
	if cfg.Metrics.Enabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.Metrics.Path, metrics.Handler())
		metricsServer := &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler: metricsMux,
		}
		go func() {
			appLog.WithField("port", cfg.Metrics.Port).Info("Metrics server starting")
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				appLog.WithError(err).Error("Metrics server error")
			}
		}()
		defer metricsServer.Shutdown(context.Background())
	}

	// Recurring jobs: daily card sweep and nightly store cleanup.
	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched = scheduler.NewScheduler(appLog)
		if err := sched.ScheduleIngestionSweep(cfg.Scheduler.IngestionCron, raceRepo, builder); err != nil {
			appLog.WithError(err).Fatal("Failed to schedule ingestion sweep")
		}
		if err := sched.ScheduleCleanup(cfg.Scheduler.CleanupCron, registry, cfg.VectorStore.RetentionDays); err != nil {
			appLog.WithError(err).Fatal("Failed to schedule cleanup")
		}
		if err := sched.Start(); err != nil {
			appLog.WithError(err).Fatal("Failed to start scheduler")
		}
		defer sched.Stop()
	}

	// Live odds feed. Updates land in the race cache so retrieval and
	// charts see current prices; the service runs fine without the feed.
	if cfg.Provider.StreamURL != "" {
		oddsStream := provider.NewOddsStream(cfg.Provider.StreamURL, cfg.Provider.APIKey, appLog)
		oddsStream.AddHandler(func(update provider.OddsUpdate) error {
			cachedRaces.ApplyOddsUpdate(update.RaceGUID, update.Time, update.Entries)
			return nil
		})
		go func() {
			if err := oddsStream.Connect(ctx); err != nil {
				appLog.WithError(err).Warn("Odds stream unavailable, running without live prices")
				return
			}
			if err := oddsStream.Authenticate(ctx); err != nil {
				appLog.WithError(err).Warn("Odds stream authentication failed")
				return
			}
			guids, err := raceRepo.ListGUIDsByDate(ctx, time.Now().UTC())
			if err != nil {
				appLog.WithError(err).Warn("Failed to list today's races for odds subscription")
				return
			}
			if len(guids) == 0 {
				appLog.Info("No races today, odds stream idle")
				return
			}
			if err := oddsStream.Subscribe(ctx, guids); err != nil {
				appLog.WithError(err).Warn("Odds subscription failed")
			}
		}()
		defer oddsStream.Close()
	}

	// Chat WebSocket endpoint.
	upgrader := websocket.Upgrader{
		HandshakeTimeout: 10 * time.Second,
		CheckOrigin:      func(*http.Request) bool { return true },
	}
	chatMux := http.NewServeMux()
	chatMux.HandleFunc("/chat", func(w http.ResponseWriter, r *http.Request) {
		serveChat(ctx, upgrader, manager, audit, appLog, w, r)
	})
	chatServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", *port),
		Handler: chatMux,
	}
	go func() {
		appLog.WithField("port", *port).Info("Chat server starting")
		if err := chatServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.WithError(err).Error("Chat server error")
		}
	}()

	healthServer.SetReady(true)
	appLog.Info("TurfIntel chat service ready")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	appLog.Info("Shutdown signal received")
	healthServer.SetReady(false)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Scheduler.GracefulTimeout)*time.Second)
	defer shutdownCancel()
	if err := chatServer.Shutdown(shutdownCtx); err != nil {
		appLog.WithError(err).Error("Chat server shutdown error")
	}
	cancel()

	appLog.Info("TurfIntel chat service stopped")
}

// serveChat upgrades the connection and answers turns until the client
// disconnects. Every turn yields a response; internal failures degrade.
func serveChat(ctx context.Context, upgrader websocket.Upgrader, manager *chat.Manager, audit *applogger.AuditLogger, appLog *logrus.Logger, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		appLog.WithError(err).Warn("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	for {
		var turn chatTurn
		if err := conn.ReadJSON(&turn); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				appLog.WithError(err).Debug("Chat connection closed")
			}
			return
		}

		sessionID, err := uuid.Parse(turn.SessionID)
		if err != nil {
			sessionID = uuid.New()
		}

		response, err := manager.Answer(ctx, sessionID, turn.Text, models.ChatContext{
			RaceGUID:  turn.RaceGUID,
			HorseSlug: turn.HorseSlug,
		})
		if err != nil {
			// Answer degrades internally; an error here means the turn
			// itself could not run.
			appLog.WithError(err).Error("Chat turn failed")
			response = &models.ChatResponse{Message: "Something went wrong, please try again."}
		}

		audit.LogChatTurn(sessionID.String(), turn.RaceGUID, len(response.Sources))

		if err := conn.WriteJSON(response); err != nil {
			appLog.WithError(err).Debug("Failed to write chat response")
			return
		}
	}
}
