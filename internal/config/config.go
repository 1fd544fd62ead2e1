// Package config loads gateway settings from the environment.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
)

// Config holds every tunable of the gateway. Fields are populated from
// environment variables; tags carry the defaults.
type Config struct {
	Port       int    `env:"PORT,default=8080"`
	DataDir    string `env:"DATA_DIR,default=./data"`
	DBPath     string `env:"DB_PATH"`
	AuthDir    string `env:"AUTH_DIR"`
	AuditPath  string `env:"AUDIT_PATH"`
	CORSOrigin string `env:"CORS_ORIGIN,default=*"`
	LogLevel   string `env:"LOG_LEVEL,default=info"`

	JWTSecret     string        `env:"JWT_SECRET"`
	TokenTTL      time.Duration `env:"TOKEN_TTL,default=24h"`
	AdminUsername string        `env:"ADMIN_USERNAME,default=admin"`
	AdminPassword string        `env:"ADMIN_PASSWORD"`

	RemoveGrace       time.Duration `env:"REMOVE_GRACE,default=2s"`
	TypingDuration    time.Duration `env:"TYPING_DURATION,default=1500ms"`
	MediaFetchTimeout time.Duration `env:"MEDIA_FETCH_TIMEOUT,default=30s"`
	MediaMaxBytes     int64         `env:"MEDIA_MAX_BYTES,default=16777216"`
	EventWorkers      int           `env:"EVENT_WORKERS,default=8"`
	MessageHistory    int           `env:"MESSAGE_HISTORY,default=20"`
}

// Default returns a Config with every default applied and no environment read.
func Default() *Config {
	cfg := &Config{
		Port:              8080,
		DataDir:           "./data",
		CORSOrigin:        "*",
		LogLevel:          "info",
		TokenTTL:          24 * time.Hour,
		AdminUsername:     "admin",
		RemoveGrace:       2 * time.Second,
		TypingDuration:    1500 * time.Millisecond,
		MediaFetchTimeout: 30 * time.Second,
		MediaMaxBytes:     16 << 20,
		EventWorkers:      8,
		MessageHistory:    20,
	}
	cfg.ApplyDerived()
	return cfg
}

// Load reads the environment on top of the defaults.
func Load() (*Config, error) {
	cfg := Default()
	cfg.DBPath, cfg.AuthDir, cfg.AuditPath = "", "", ""
	if err := envdecode.Decode(cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("failed to decode environment: %w", err)
	}
	cfg.ApplyDerived()
	return cfg, nil
}

// ApplyDerived fills paths that default to locations under DataDir.
func (c *Config) ApplyDerived() {
	if c.DBPath == "" {
		c.DBPath = filepath.Join(c.DataDir, "gateway.db")
	}
	if c.AuthDir == "" {
		c.AuthDir = filepath.Join(c.DataDir, "auth")
	}
	if c.AuditPath == "" {
		c.AuditPath = filepath.Join(c.DataDir, "audit.jsonl")
	}
}

// Validate checks that the configuration can run a server.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if c.DataDir == "" {
		return fmt.Errorf("data directory cannot be empty")
	}
	if len(c.JWTSecret) < 16 {
		return fmt.Errorf("JWT_SECRET must be at least 16 characters")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("token TTL must be positive")
	}
	if c.RemoveGrace < 0 {
		return fmt.Errorf("remove grace cannot be negative")
	}
	if c.TypingDuration < 0 {
		return fmt.Errorf("typing duration cannot be negative")
	}
	if c.MediaFetchTimeout <= 0 {
		return fmt.Errorf("media fetch timeout must be positive")
	}
	if c.MediaMaxBytes <= 0 {
		return fmt.Errorf("media size limit must be positive")
	}
	if c.EventWorkers <= 0 {
		return fmt.Errorf("event workers must be positive")
	}
	if c.MessageHistory <= 0 {
		return fmt.Errorf("message history must be positive")
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	return nil
}
