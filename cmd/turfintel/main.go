// Package main provides the turfintel administration CLI.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/styxali/turfintel-sub000/internal/config"
	"github.com/styxali/turfintel-sub000/internal/database"
	"github.com/styxali/turfintel-sub000/internal/documents"
	"github.com/styxali/turfintel-sub000/internal/embedding"
	"github.com/styxali/turfintel-sub000/internal/logger"
	"github.com/styxali/turfintel-sub000/internal/provider"
	"github.com/styxali/turfintel-sub000/internal/repository"
	"github.com/styxali/turfintel-sub000/internal/vectorstore"

	analyticsengine "github.com/styxali/turfintel-sub000/internal/analytics"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
)

var (
	configFile string
	appLog     *logrus.Logger
	audit      *logger.AuditLogger
	cfg        *config.Config
	db         *database.DB
	registry   *vectorstore.Registry
	races      provider.RaceReader
	history    provider.HistoryReader
	builder    *documents.Builder
	engine     *analyticsengine.Engine
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	cleanupCmd.Flags().Int("days", 0, "Retention in days (defaults to the configured value)")

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(chartsCmd)
	rootCmd.AddCommand(cleanupCmd)
}

var rootCmd = &cobra.Command{
	Use:   "turfintel",
	Short: "Racing-content backend administration",
	Long:  `Ingests race documents into per-race vector stores, computes analytics chart bundles and maintains the store retention window.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := setupDependencies(); err != nil {
			return fmt.Errorf("failed to setup dependencies: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		teardown()
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <raceGUID>",
	Short: "Ingest one race's documents into its vector store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
		defer cancel()

		start := time.Now()
		count, err := builder.IngestRace(ctx, args[0])
		audit.LogRaceIngestion(args[0], count, time.Since(start), err)
		if err != nil {
			return err
		}
		fmt.Printf("Ingested %d documents for race %s\n", count, args[0])
		return nil
	},
}

var chartsCmd = &cobra.Command{
	Use:   "charts <raceGUID>",
	Short: "Compute the analytics chart bundle for a race",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
		defer cancel()

		bundle, err := engine.ComputeCharts(ctx, args[0])
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(bundle, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove vector stores older than the retention window",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		days, _ := cmd.Flags().GetInt("days")
		if days <= 0 {
			days = cfg.VectorStore.RetentionDays
		}

		removed, err := registry.Cleanup(days)
		if err != nil {
			return err
		}
		audit.LogStoreCleanup(days, removed)
		fmt.Printf("Removed %d vector stores older than %d day(s)\n", removed, days)
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func setupDependencies() error {
	var err error
	cfg, err = config.LoadWithDefaults(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			return fmt.Errorf("AWS_REGION and AWS_SECRET_NAME must be set when AWS_SECRETS_ENABLED is true")
		}
		if err := config.LoadSecretsFromAWS(cfg, region, secretName); err != nil {
			return fmt.Errorf("failed to load secrets: %w", err)
		}
	}

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	appLog = logger.NewLogger(cfg.App.LogLevel)
	audit = logger.NewAuditLogger(appLog)

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

	registry = vectorstore.NewRegistry(cfg.VectorStore.BasePath, embedder, appLog)

	httpClient := provider.NewRateLimitedHTTPClient(provider.HTTPClientConfig{
		Timeout:           time.Duration(cfg.Provider.TimeoutSeconds) * time.Second,
		MaxRetries:        cfg.Provider.MaxRetries,
		RetryWaitMin:      100 * time.Millisecond,
		RetryWaitMax:      10 * time.Second,
		RateLimit:         cfg.Provider.RateLimit,
		CircuitBreakerMax: cfg.Provider.CircuitBreakerMax,
	}, appLog)
	client := provider.NewClient(httpClient, cfg.Provider.BaseURL, cfg.Provider.APIKey, appLog)
	races = client
	history = client

	// The read-through cache needs Postgres; fall back to direct provider
	// reads when the database is unreachable.
	db, err = database.NewDB(context.Background(), &cfg.Database)
	if err != nil {
		appLog.WithError(err).Warn("Database unavailable, reading directly from provider")
		db = nil
	} else {
		raceRepo := repository.NewPostgresRaceRepository(db)
		horseRepo := repository.NewPostgresHorseRepository(db)
		ttl := time.Duration(cfg.Provider.CacheTTLSeconds) * time.Second
		races = provider.NewCachedRaceReader(client, raceRepo, ttl, appLog)
		history = provider.NewCachedHistoryReader(client, horseRepo, appLog)
	}

	builder = documents.NewBuilder(races, history, registry, embedder, appLog)
	engine = analyticsengine.NewEngine(races, history, cfg.Analytics, appLog)
	return nil
}

func teardown() {
	if registry != nil {
		if err := registry.Close(); err != nil {
			appLog.WithError(err).Warn("Failed to close vector store registry")
		}
	}
	if db != nil {
		db.Close()
	}
}
