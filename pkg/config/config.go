// Package config loads application configuration. Defaults are overlaid
// first by an optional YAML file (GOTEAM_CONFIG_FILE), then by GOTEAM_*
// environment variables, so environments can override checked-in files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/alcadeta/portfolio-goteam/pkg/observability"
	"github.com/alcadeta/portfolio-goteam/pkg/storage"
)

// Config holds all application configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Storage       storage.Config      `yaml:"storage"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Health/metrics server (separate port for k8s probes)
	HealthPort string `yaml:"health_port"`
}

// ObservabilityConfig holds observability settings.
type ObservabilityConfig struct {
	LogLevel       string `yaml:"log_level"`
	MetricsEnabled bool   `yaml:"metrics_enabled"`

	OTelEnabled        bool   `yaml:"otel_enabled"`
	OTelEndpoint       string `yaml:"otel_endpoint"`
	OTelServiceName    string `yaml:"otel_service_name"`
	OTelServiceVersion string `yaml:"otel_service_version"`
	OTelInsecure       bool   `yaml:"otel_insecure"`
}

// ParsedLogLevel returns the configured log level.
func (c ObservabilityConfig) ParsedLogLevel() observability.LogLevel {
	return observability.ParseLogLevel(strings.ToLower(c.LogLevel))
}

// OTelConfig converts the settings into the observability package's form.
func (c ObservabilityConfig) OTelConfig() observability.OTelConfig {
	return observability.OTelConfig{
		Enabled:        c.OTelEnabled,
		Endpoint:       c.OTelEndpoint,
		ServiceName:    c.OTelServiceName,
		ServiceVersion: c.OTelServiceVersion,
		Insecure:       c.OTelInsecure,
	}
}

// DefaultConfig returns the baseline configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			HealthPort:      "9090",
		},
		Storage: storage.DefaultConfig(),
		Observability: ObservabilityConfig{
			LogLevel:           "info",
			MetricsEnabled:     true,
			OTelEnabled:        false,
			OTelEndpoint:       "localhost:4317",
			OTelServiceName:    "goteam-server",
			OTelServiceVersion: "1.0.0",
			OTelInsecure:       true,
		},
	}
}

// LoadConfig builds the configuration from defaults, the optional YAML
// file, and the environment, then validates it.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	if path := os.Getenv("GOTEAM_CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.loadEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadEnv() {
	setString(&c.Server.Host, "GOTEAM_HOST")
	setString(&c.Server.Port, "GOTEAM_PORT")
	setDuration(&c.Server.ReadTimeout, "GOTEAM_READ_TIMEOUT")
	setDuration(&c.Server.WriteTimeout, "GOTEAM_WRITE_TIMEOUT")
	setDuration(&c.Server.IdleTimeout, "GOTEAM_IDLE_TIMEOUT")
	setDuration(&c.Server.ShutdownTimeout, "GOTEAM_SHUTDOWN_TIMEOUT")
	setString(&c.Server.HealthPort, "GOTEAM_HEALTH_PORT")

	setString(&c.Storage.Type, "GOTEAM_STORAGE_TYPE")
	setString(&c.Storage.PostgresURL, "GOTEAM_POSTGRES_URL")
	setInt(&c.Storage.PostgresMaxConns, "GOTEAM_POSTGRES_MAX_CONNS")
	setInt(&c.Storage.PostgresMinConns, "GOTEAM_POSTGRES_MIN_CONNS")
	setDuration(&c.Storage.PostgresTimeout, "GOTEAM_POSTGRES_TIMEOUT")
	setString(&c.Storage.SQLitePath, "GOTEAM_SQLITE_PATH")
	setBool(&c.Storage.CacheEnabled, "GOTEAM_CACHE_ENABLED")
	setString(&c.Storage.RedisAddr, "GOTEAM_REDIS_ADDR")
	setString(&c.Storage.RedisPassword, "GOTEAM_REDIS_PASSWORD")
	setInt(&c.Storage.RedisDB, "GOTEAM_REDIS_DB")

	setString(&c.Observability.LogLevel, "GOTEAM_LOG_LEVEL")
	setBool(&c.Observability.MetricsEnabled, "GOTEAM_METRICS_ENABLED")
	setBool(&c.Observability.OTelEnabled, "GOTEAM_OTEL_ENABLED")
	setString(&c.Observability.OTelEndpoint, "GOTEAM_OTEL_ENDPOINT")
	setString(&c.Observability.OTelServiceName, "GOTEAM_OTEL_SERVICE_NAME")
	setString(&c.Observability.OTelServiceVersion, "GOTEAM_OTEL_SERVICE_VERSION")
	setBool(&c.Observability.OTelInsecure, "GOTEAM_OTEL_INSECURE")
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	switch c.Storage.Type {
	case "postgres":
		if c.Storage.PostgresURL == "" {
			return fmt.Errorf("postgres URL is required for postgres storage")
		}
	case "sqlite":
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("sqlite path is required for sqlite storage")
		}
	default:
		return fmt.Errorf("invalid storage type: %s (must be postgres or sqlite)", c.Storage.Type)
	}

	if c.Storage.CacheEnabled && c.Storage.RedisAddr == "" {
		return fmt.Errorf("redis address is required when the cache is enabled")
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}
	return nil
}

func setString(dest *string, key string) {
	if value := os.Getenv(key); value != "" {
		*dest = value
	}
}

func setInt(dest *int, key string) {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			*dest = parsed
		}
	}
}

func setBool(dest *bool, key string) {
	if value := os.Getenv(key); value != "" {
		*dest = strings.ToLower(value) == "true" || value == "1"
	}
}

func setDuration(dest *time.Duration, key string) {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			*dest = parsed
		}
	}
}
