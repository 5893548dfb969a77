// Package config loads service configuration from an optional YAML file
// and FIREDISPATCH_ environment variables, env taking precedence. Nested
// keys use double underscores: FIREDISPATCH_DATABASE__URL.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "FIREDISPATCH_"

// Config is the root service configuration.
type Config struct {
	Server   Server   `koanf:"server"`
	Database Database `koanf:"database"`
	Redis    Redis    `koanf:"redis"`
	Log      Log      `koanf:"log"`
	JWT      JWT      `koanf:"jwt"`
	CORS     CORS     `koanf:"cors"`
	Notify   Notify   `koanf:"notify"`
}

// Server contains HTTP server configuration.
type Server struct {
	Host              string        `koanf:"host"`
	Port              int           `koanf:"port"`
	MetricsPort       int           `koanf:"metrics_port"`
	ReadTimeout       time.Duration `koanf:"read_timeout"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	WriteTimeout      time.Duration `koanf:"write_timeout"`
	IdleTimeout       time.Duration `koanf:"idle_timeout"`
}

// Database contains PostgreSQL configuration.
type Database struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnectAttempts int           `koanf:"connect_attempts"`
	MigrationsPath  string        `koanf:"migrations_path"`
}

// Redis contains Redis configuration for the webhook queue.
type Redis struct {
	Enabled  bool   `koanf:"enabled"`
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
	PoolSize int    `koanf:"pool_size"`
}

// Log contains logging configuration.
type Log struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // json, text
}

// JWT contains token signing configuration.
type JWT struct {
	SecretKey           string        `koanf:"secret_key"`
	AccessTokenDuration time.Duration `koanf:"access_token_duration"`
}

// CORS contains cross-origin configuration.
type CORS struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// Notify contains webhook delivery configuration.
type Notify struct {
	WebhookSecret      string        `koanf:"webhook_secret"`
	WebhookTimeout     time.Duration `koanf:"webhook_timeout"`
	WebhookRatePerSec  float64       `koanf:"webhook_rate_per_sec"`
	WebhookBurst       int           `koanf:"webhook_burst"`
	WebhookMaxAttempts int           `koanf:"webhook_max_attempts"`
	WebhookBackoff     time.Duration `koanf:"webhook_backoff"`
}

// Default returns the configuration defaults.
func Default() Config {
	return Config{
		Server: Server{
			Host:              "0.0.0.0",
			Port:              8080,
			MetricsPort:       9090,
			ReadTimeout:       15 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      0, // SSE connections stay open
			IdleTimeout:       60 * time.Second,
		},
		Database: Database{
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			ConnectAttempts: 5,
			MigrationsPath:  "migrations",
		},
		Redis: Redis{
			Addr:     "localhost:6379",
			PoolSize: 10,
		},
		Log: Log{
			Level:  "info",
			Format: "json",
		},
		JWT: JWT{
			AccessTokenDuration: 24 * time.Hour,
		},
		CORS: CORS{
			AllowedOrigins: []string{"*"},
		},
		Notify: Notify{
			WebhookTimeout:     10 * time.Second,
			WebhookRatePerSec:  20,
			WebhookBurst:       5,
			WebhookMaxAttempts: 4,
			WebhookBackoff:     time.Second,
		},
	}
}

// Load reads configuration. path may be empty or point to a missing file,
// in which case only defaults and environment apply.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("load config file: %w", err)
			}
		}
	}

	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration is runnable.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return errors.New("database.url is required")
	}
	if c.JWT.SecretKey == "" {
		return errors.New("jwt.secret_key is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.MetricsPort <= 0 || c.Server.MetricsPort > 65535 {
		return fmt.Errorf("server.metrics_port %d out of range", c.Server.MetricsPort)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("log.format %q is not one of json, text", c.Log.Format)
	}
	return nil
}
