// Package config provides configuration loading for the car search services.
// Supports YAML files and environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the car search services.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Catalog       CatalogConfig       `yaml:"catalog"`
	Database      DatabaseConfig      `yaml:"database"`
	Cache         CacheConfig         `yaml:"cache"`
	LLM           LLMConfig           `yaml:"llm"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
	AllowedOrigins   []string      `yaml:"allowed_origins"`
}

// CatalogConfig selects where the car catalog is loaded from.
type CatalogConfig struct {
	Source           string `yaml:"source"` // file or database
	Path             string `yaml:"path"`
	ImagePlaceholder string `yaml:"image_placeholder"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver   string         `yaml:"driver"` // sqlite or postgres
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// SQLiteConfig holds SQLite-specific settings.
type SQLiteConfig struct {
	Path         string `yaml:"path"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

// PostgresConfig holds Postgres-specific settings.
type PostgresConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// CacheConfig holds result cache settings.
type CacheConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Driver        string        `yaml:"driver"` // memory or redis
	TTL           time.Duration `yaml:"ttl"`
	MaxEntries    int           `yaml:"max_entries"`
	EventsChannel string        `yaml:"events_channel"`
	Redis         RedisConfig   `yaml:"redis"`
}

// RedisConfig holds Redis-specific settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
	Prefix   string `yaml:"prefix"`
}

// LLMConfig holds chat model settings.
type LLMConfig struct {
	BaseURL       string        `yaml:"base_url"`
	APIKey        string        `yaml:"api_key"`
	Model         string        `yaml:"model"`
	Temperature   float64       `yaml:"temperature"`
	MaxTokens     int           `yaml:"max_tokens"`
	MaxIterations int           `yaml:"max_iterations"`
	TurnTimeout   time.Duration `yaml:"turn_timeout"`
	SystemPrompt  string        `yaml:"system_prompt"`
	Retry         RetryConfig   `yaml:"retry"`
}

// RetryConfig holds provider retry settings.
type RetryConfig struct {
	MaxRetries     int           `yaml:"max_retries"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	ServiceName string `yaml:"service_name"`
}

// Load reads configuration from a YAML file and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults for development.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8080,
			ReadTimeout:      15 * time.Second,
			WriteTimeout:     60 * time.Second,
			IdleTimeout:      120 * time.Second,
			GracefulShutdown: 10 * time.Second,
			AllowedOrigins:   []string{"*"},
		},
		Catalog: CatalogConfig{
			Source: "file",
			Path:   "data/cars.json",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			SQLite: SQLiteConfig{
				Path:         "/tmp/car-search.db",
				MaxOpenConns: 1,
			},
			Postgres: PostgresConfig{
				MaxOpenConns:    10,
				MaxIdleConns:    5,
				ConnMaxLifetime: 5 * time.Minute,
			},
		},
		Cache: CacheConfig{
			Enabled:       true,
			Driver:        "memory",
			TTL:           10 * time.Minute,
			MaxEntries:    10000,
			EventsChannel: "car-search:turns",
			Redis: RedisConfig{
				Addr:     "localhost:6379",
				DB:       0,
				PoolSize: 10,
				Prefix:   "cs:",
			},
		},
		LLM: LLMConfig{
			Model:         "gpt-4o-mini",
			Temperature:   0.7,
			MaxIterations: 5,
			TurnTimeout:   30 * time.Second,
			Retry: RetryConfig{
				MaxRetries:     3,
				InitialBackoff: time.Second,
				MaxBackoff:     30 * time.Second,
			},
		},
		Observability: ObservabilityConfig{
			LogLevel:    "info",
			LogFormat:   "json",
			ServiceName: "car-search",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.Catalog.Source {
	case "file":
		if c.Catalog.Path == "" {
			return fmt.Errorf("catalog path is required for file source")
		}
	case "database":
	default:
		return fmt.Errorf("invalid catalog source: %s", c.Catalog.Source)
	}

	if c.Database.Driver != "sqlite" && c.Database.Driver != "postgres" {
		return fmt.Errorf("invalid database driver: %s", c.Database.Driver)
	}

	if c.Cache.Driver != "memory" && c.Cache.Driver != "redis" {
		return fmt.Errorf("invalid cache driver: %s", c.Cache.Driver)
	}

	if c.LLM.MaxIterations < 1 || c.LLM.MaxIterations > 10 {
		return fmt.Errorf("max_iterations must be between 1 and 10")
	}

	if c.LLM.TurnTimeout <= 0 {
		return fmt.Errorf("turn_timeout must be positive")
	}

	if c.LLM.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry max_retries must not be negative")
	}

	return nil
}

// DatabaseDSN returns the appropriate database connection string.
func (c *Config) DatabaseDSN() string {
	if c.Database.Driver == "sqlite" {
		return c.Database.SQLite.Path
	}
	return c.Database.Postgres.DSN
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}

	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.Server.AllowedOrigins = splitList(v)
	}

	if v := os.Getenv("CATALOG_SOURCE"); v != "" {
		cfg.Catalog.Source = v
	}

	if v := os.Getenv("CATALOG_PATH"); v != "" {
		cfg.Catalog.Path = v
	}

	if v := os.Getenv("IMAGE_PLACEHOLDER"); v != "" {
		cfg.Catalog.ImagePlaceholder = v
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		if strings.HasPrefix(v, "sqlite:") {
			cfg.Database.Driver = "sqlite"
			cfg.Database.SQLite.Path = strings.TrimPrefix(v, "sqlite:")
		} else if strings.HasPrefix(v, "postgres") {
			cfg.Database.Driver = "postgres"
			cfg.Database.Postgres.DSN = v
		}
	}

	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Cache.Driver = "redis"
		// Parse redis://host:port format
		cfg.Cache.Redis.Addr = strings.TrimPrefix(v, "redis://")
	}

	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Cache.Redis.Password = v
	}

	if v := firstEnv("LLM_API_KEY", "OPENAI_API_KEY", "OPENROUTER_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}

	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}

	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
