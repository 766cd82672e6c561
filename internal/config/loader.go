package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const envPrefix = "TURFINTEL"

// Load reads and parses the configuration from file and environment
// variables. Environment variable placeholders in the YAML file (${VAR})
// are expanded before parsing.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s: %w", configPath, err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	v := newViper()
	if err := v.ReadConfig(bytes.NewBufferString(expanded)); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	return cfg, nil
}

// LoadWithDefaults loads configuration with default values for optional
// fields; a missing config file is not an error.
func LoadWithDefaults(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	v := newViper()
	setDefaults(v)

	if data, err := os.ReadFile(configPath); err == nil {
		expanded := os.ExpandEnv(string(data))
		if err := v.ReadConfig(bytes.NewBufferString(expanded)); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "turfintel")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.health_port", 8081)
	v.SetDefault("provider.timeout_seconds", 30)
	v.SetDefault("provider.rate_limit", 10.0)
	v.SetDefault("provider.cache_ttl_seconds", 300)
	v.SetDefault("provider.circuit_breaker_max", 5)
	v.SetDefault("embedding.base_url", "https://api.openai.com/v1")
	v.SetDefault("embedding.model", "text-embedding-3-small")
	v.SetDefault("embedding.timeout_seconds", 30)
	v.SetDefault("embedding.rate_limit", 10.0)
	v.SetDefault("vector_store.base_path", "vectors")
	v.SetDefault("vector_store.retention_days", 1)
	v.SetDefault("chat.min_documents", 5)
	v.SetDefault("chat.top_k", 5)
	v.SetDefault("analytics.flat_short_max", 1400)
	v.SetDefault("analytics.flat_medium_max", 2000)
	v.SetDefault("analytics.trot_short_max", 2100)
	v.SetDefault("analytics.trot_medium_max", 2700)
	v.SetDefault("analytics.obstacle_short_max", 3500)
	v.SetDefault("analytics.obstacle_medium_max", 4500)
	v.SetDefault("scheduler.ingestion_cron", "0 6 * * *")
	v.SetDefault("scheduler.cleanup_cron", "30 3 * * *")
	v.SetDefault("scheduler.graceful_timeout_seconds", 30)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")
}
