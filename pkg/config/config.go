// Package config assembles runtime configuration from defaults, an optional
// YAML file, and environment overrides, in that precedence order.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// StoreBackend selects the conversation log backend.
type StoreBackend string

const (
	StoreNone     StoreBackend = "none"
	StoreSQLite   StoreBackend = "sqlite"
	StorePostgres StoreBackend = "postgres"
)

// Config is the full runtime configuration for the intent service.
type Config struct {
	// Host and Port form the HTTP listen address.
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// ModelPath and CatalogPath locate the serving artifacts.
	ModelPath   string `yaml:"model_path"`
	CatalogPath string `yaml:"catalog_path"`

	// ConfidenceThreshold is the minimum classifier confidence for a
	// prediction to be served instead of the fallback reply.
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`

	// ConfidenceAcceptUnknown controls whether predictions without a
	// probability estimate (linear_svc) pass the confidence gate.
	ConfidenceAcceptUnknown bool `yaml:"confidence_accept_unknown"`

	// ModerationMode is the default gate mode: default, safe, or nsfw.
	ModerationMode string `yaml:"moderation_mode"`

	// Blocklist overrides the built-in safe-mode blocked terms when set.
	Blocklist []string `yaml:"blocklist"`

	// APIKey, when set, is required on mutating endpoints via X-API-Key.
	APIKey string `yaml:"api_key"`

	// Store selects the conversation log backend.
	Store StoreBackend `yaml:"store"`
	// SQLitePath is the database file for the sqlite backend.
	SQLitePath string `yaml:"sqlite_path"`
	// PostgresDSN is the connection string for the postgres backend.
	PostgresDSN string `yaml:"postgres_dsn"`

	// RateLimitEnabled toggles the Redis-backed per-client limiter.
	RateLimitEnabled bool   `yaml:"rate_limit_enabled"`
	RedisAddr        string `yaml:"redis_addr"`
	// RateLimitPerMin is the per-client request budget per minute.
	RateLimitPerMin int `yaml:"rate_limit_per_min"`

	// MaxMessageLen bounds accepted chat message length in bytes.
	MaxMessageLen int `yaml:"max_message_len"`

	// RequestTimeout bounds end-to-end request handling.
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// NewDefaultConfig returns the built-in defaults: local serving with an
// embedded sqlite log and no auth or rate limiting.
func NewDefaultConfig() *Config {
	return &Config{
		Host:                    "0.0.0.0",
		Port:                    8000,
		ModelPath:               "artifacts/model.gob",
		CatalogPath:             "data/intents.json",
		ConfidenceThreshold:     0.55,
		ConfidenceAcceptUnknown: true,
		ModerationMode:          "default",
		Store:                   StoreSQLite,
		SQLitePath:              "data/chats.db",
		RateLimitEnabled:        false,
		RedisAddr:               "localhost:6379",
		RateLimitPerMin:         30,
		MaxMessageLen:           2000,
		RequestTimeout:          10 * time.Second,
	}
}

// Load builds the config: defaults, then the YAML file at path (skipped when
// path is empty), then environment overrides.
func Load(path string) (*Config, error) {
	cfg := NewDefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Host = GetEnvString("INTENTD_HOST", c.Host)
	c.Port = GetEnvInt("INTENTD_PORT", c.Port)
	c.ModelPath = GetEnvString("INTENTD_MODEL_PATH", c.ModelPath)
	c.CatalogPath = GetEnvString("INTENTD_CATALOG_PATH", c.CatalogPath)
	c.ConfidenceThreshold = GetEnvFloat("INTENTD_CONFIDENCE_THRESHOLD", c.ConfidenceThreshold)
	c.ConfidenceAcceptUnknown = GetEnvBool("INTENTD_CONFIDENCE_ACCEPT_UNKNOWN", c.ConfidenceAcceptUnknown)
	c.ModerationMode = GetEnvString("INTENTD_MODERATION_MODE", c.ModerationMode)
	c.APIKey = GetEnvString("INTENTD_API_KEY", c.APIKey)
	c.Store = StoreBackend(GetEnvString("INTENTD_STORE", string(c.Store)))
	c.SQLitePath = GetEnvString("INTENTD_SQLITE_PATH", c.SQLitePath)
	c.PostgresDSN = GetEnvString("INTENTD_POSTGRES_DSN", c.PostgresDSN)
	c.RateLimitEnabled = GetEnvBool("INTENTD_RATE_LIMIT_ENABLED", c.RateLimitEnabled)
	c.RedisAddr = GetEnvString("INTENTD_REDIS_ADDR", c.RedisAddr)
	c.RateLimitPerMin = GetEnvInt("INTENTD_RATE_LIMIT_PER_MIN", c.RateLimitPerMin)
	c.MaxMessageLen = GetEnvInt("INTENTD_MAX_MESSAGE_LEN", c.MaxMessageLen)
}

// Validate rejects configurations the service cannot run with and clamps
// out-of-range tunables to sane bounds.
func (c *Config) Validate() error {
	c.Port = clampInt(c.Port, 1, 65535)
	c.RateLimitPerMin = clampInt(c.RateLimitPerMin, 1, 100000)
	c.MaxMessageLen = clampInt(c.MaxMessageLen, 1, 1<<20)

	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence_threshold must be in [0, 1], got %v", c.ConfidenceThreshold)
	}
	switch c.Store {
	case StoreNone, StoreSQLite, StorePostgres:
	default:
		return fmt.Errorf("unknown store backend %q", c.Store)
	}
	if c.Store == StorePostgres && c.PostgresDSN == "" {
		return fmt.Errorf("postgres store requires postgres_dsn")
	}
	return nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetEnvString returns the env var value, or def when unset or empty.
func GetEnvString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// GetEnvInt returns the env var parsed as int, or def when unset or invalid.
func GetEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// GetEnvFloat returns the env var parsed as float64, or def when unset or
// invalid.
func GetEnvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

// GetEnvBool returns the env var parsed as bool ("1", "true", "yes" and
// their negations), or def when unset or invalid.
func GetEnvBool(key string, def bool) bool {
	v := strings.ToLower(os.Getenv(key))
	switch v {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}

func clampInt(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
