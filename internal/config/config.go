// Package config provides configuration management for the TurfIntel backend.
package config

import (
	"fmt"
)

// Config represents the complete application configuration
type Config struct {
	App         AppConfig         `mapstructure:"app" validate:"required"`
	Database    DatabaseConfig    `mapstructure:"database" validate:"required"`
	Provider    ProviderConfig    `mapstructure:"provider" validate:"required"`
	Embedding   EmbeddingConfig   `mapstructure:"embedding" validate:"required"`
	VectorStore VectorStoreConfig `mapstructure:"vector_store" validate:"required"`
	Chat        ChatConfig        `mapstructure:"chat" validate:"required"`
	Analytics   AnalyticsConfig   `mapstructure:"analytics"`
	Scheduler   SchedulerConfig   `mapstructure:"scheduler" validate:"required"`
	Metrics     MetricsConfig     `mapstructure:"metrics" validate:"required"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
	HealthPort  int    `mapstructure:"health_port" validate:"required,min=1,max=65535"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Host           string `mapstructure:"host" validate:"required"`
	Port           int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Name           string `mapstructure:"name" validate:"required"`
	User           string `mapstructure:"user" validate:"required"`
	Password       string `mapstructure:"password" validate:"required"`
	SSLMode        string `mapstructure:"ssl_mode" validate:"required,oneof=disable require verify-full"`
	MaxConnections int    `mapstructure:"max_connections" validate:"required,gt=0"`
}

// ProviderConfig represents the upstream racing data provider configuration
type ProviderConfig struct {
	BaseURL            string  `mapstructure:"base_url" validate:"required,url"`
	StreamURL          string  `mapstructure:"stream_url"`
	APIKey             string  `mapstructure:"api_key"`
	TimeoutSeconds     int     `mapstructure:"timeout_seconds" validate:"required,gt=0"`
	MaxRetries         int     `mapstructure:"max_retries" validate:"gte=0"`
	RateLimit          float64 `mapstructure:"rate_limit" validate:"required,gt=0"`
	CacheTTLSeconds    int     `mapstructure:"cache_ttl_seconds" validate:"required,gt=0"`
	CircuitBreakerMax  int     `mapstructure:"circuit_breaker_max" validate:"required,gt=0"`
}

// EmbeddingConfig represents the embedding service configuration
type EmbeddingConfig struct {
	BaseURL        string  `mapstructure:"base_url" validate:"required,url"`
	APIKey         string  `mapstructure:"api_key"`
	Model          string  `mapstructure:"model" validate:"required"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds" validate:"required,gt=0"`
	MaxRetries     int     `mapstructure:"max_retries" validate:"gte=0"`
	RateLimit      float64 `mapstructure:"rate_limit" validate:"required,gt=0"`
}

// VectorStoreConfig represents the per-race vector store configuration
type VectorStoreConfig struct {
	BasePath      string `mapstructure:"base_path" validate:"required"`
	RetentionDays int    `mapstructure:"retention_days" validate:"required,gte=0"`
}

// ChatConfig represents the retrieval and chat assistant configuration
type ChatConfig struct {
	MinDocuments int `mapstructure:"min_documents" validate:"required,gt=0"`
	TopK         int `mapstructure:"top_k" validate:"required,gt=0"`
}

// AnalyticsConfig carries the discipline distance-bucket thresholds. The
// literal defaults mirror the provider's conventions; they are configuration,
// not validated domain truth.
type AnalyticsConfig struct {
	FlatShortMax     int `mapstructure:"flat_short_max"`
	FlatMediumMax    int `mapstructure:"flat_medium_max"`
	TrotShortMax     int `mapstructure:"trot_short_max"`
	TrotMediumMax    int `mapstructure:"trot_medium_max"`
	ObstacleShortMax int `mapstructure:"obstacle_short_max"`
	ObstacleMedMax   int `mapstructure:"obstacle_medium_max"`
}

// SchedulerConfig represents scheduled job configuration
type SchedulerConfig struct {
	Enabled          bool   `mapstructure:"enabled"`
	IngestionCron    string `mapstructure:"ingestion_cron" validate:"required"`
	CleanupCron      string `mapstructure:"cleanup_cron" validate:"required"`
	GracefulTimeout  int    `mapstructure:"graceful_timeout_seconds" validate:"required,gt=0"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Path    string `mapstructure:"path" validate:"required"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}
