// Package config resolves runtime settings for the pulsewire binaries.
// Values resolve in three layers: built-in defaults, then an optional
// YAML file, then PULSEWIRE_* environment variables.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config carries every tunable shared by the API server, the worker
// and the one-shot CLI.
type Config struct {
	Server  Server  `yaml:"server"`
	Log     Log     `yaml:"log"`
	Reddit  Reddit  `yaml:"reddit"`
	Scoring Scoring `yaml:"scoring"`
	Fetch   Fetch   `yaml:"fetch"`
	Score   Score   `yaml:"score"`
	Store   Store   `yaml:"store"`
	NATS    NATS    `yaml:"nats"`
}

// Server holds the HTTP surface settings. MetricsAddr is the worker's
// standalone metrics listener; the API serves metrics on its own addr.
type Server struct {
	Addr        string   `yaml:"addr"`
	MetricsAddr string   `yaml:"metrics_addr"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type Log struct {
	Level string `yaml:"level"`
}

// SlogLevel maps the configured level name onto slog. Unknown names
// fall back to info.
func (l Log) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type Reddit struct {
	BaseURL   string `yaml:"base_url"`
	UserAgent string `yaml:"user_agent"`
}

// Scoring selects the sentiment backend. Provider is one of local,
// openai, anthropic or nats; BaseURL only applies to the
// OpenAI-compatible backend.
type Scoring struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	APIKey   string `yaml:"api_key"`
	Breaker  bool   `yaml:"breaker"`
}

type Fetch struct {
	Workers   int `yaml:"workers"`
	BatchSize int `yaml:"batch_size"`
}

// Score tunes the scoring pool: BatchSize posts are scored per worker
// pass, and each backend call carries at most CallSize texts.
type Score struct {
	Workers   int `yaml:"workers"`
	BatchSize int `yaml:"batch_size"`
	CallSize  int `yaml:"call_size"`
}

// Store configures the results database. CleanupSchedule is a 5-field
// cron expression for the retention sweep; RetentionDays 0 keeps
// results forever.
type Store struct {
	Path            string `yaml:"path"`
	RetentionDays   int    `yaml:"retention_days"`
	CleanupSchedule string `yaml:"cleanup_schedule"`
}

type NATS struct {
	URL string `yaml:"url"`
}

// Default returns the configuration used when no file and no
// environment overrides are present.
func Default() Config {
	return Config{
		Server: Server{
			Addr:        ":8000",
			MetricsAddr: ":9091",
			CORSOrigins: []string{"*"},
		},
		Log: Log{Level: "info"},
		Reddit: Reddit{
			BaseURL:   "https://www.reddit.com",
			UserAgent: "pulsewire/0.1 (sentiment pipeline)",
		},
		Scoring: Scoring{
			Provider: "local",
			BaseURL:  "https://api.openai.com/v1",
		},
		Fetch: Fetch{
			Workers:   20,
			BatchSize: 50,
		},
		Score: Score{
			Workers:   5,
			BatchSize: 20,
			CallSize:  10,
		},
		Store: Store{
			Path:            "./pulsewire.db",
			RetentionDays:   30,
			CleanupSchedule: "0 3 * * *",
		},
		NATS: NATS{URL: "nats://127.0.0.1:4222"},
	}
}

// Load builds the effective configuration. A missing file at an empty
// path is fine; an explicit path that cannot be read or parsed is an
// error. Environment overrides apply last either way.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("PULSEWIRE_CONFIG")
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		// Unmarshal over the defaults: keys absent from the file keep
		// their default values.
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	envOverride(&c.Server.Addr, "PULSEWIRE_ADDR")
	envOverride(&c.Server.MetricsAddr, "PULSEWIRE_METRICS_ADDR")
	envOverride(&c.Log.Level, "PULSEWIRE_LOG_LEVEL")
	envOverride(&c.Reddit.BaseURL, "PULSEWIRE_REDDIT_URL")
	envOverride(&c.Reddit.UserAgent, "PULSEWIRE_USER_AGENT")
	envOverride(&c.Scoring.Provider, "PULSEWIRE_PROVIDER")
	envOverride(&c.Scoring.Model, "PULSEWIRE_MODEL")
	envOverride(&c.Scoring.BaseURL, "PULSEWIRE_SCORING_URL")
	envOverride(&c.Scoring.APIKey, "PULSEWIRE_API_KEY")
	envOverrideInt(&c.Fetch.Workers, "PULSEWIRE_FETCH_WORKERS")
	envOverrideInt(&c.Fetch.BatchSize, "PULSEWIRE_FETCH_BATCH")
	envOverrideInt(&c.Score.Workers, "PULSEWIRE_SCORE_WORKERS")
	envOverrideInt(&c.Score.BatchSize, "PULSEWIRE_SCORE_BATCH")
	envOverrideInt(&c.Score.CallSize, "PULSEWIRE_SCORE_CALL")
	envOverride(&c.Store.Path, "PULSEWIRE_DB_PATH")
	envOverrideInt(&c.Store.RetentionDays, "PULSEWIRE_RETENTION_DAYS")
	envOverride(&c.Store.CleanupSchedule, "PULSEWIRE_CLEANUP_SCHEDULE")
	envOverride(&c.NATS.URL, "PULSEWIRE_NATS_URL")

	if origins := os.Getenv("PULSEWIRE_CORS_ORIGINS"); origins != "" {
		c.Server.CORSOrigins = nil
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				c.Server.CORSOrigins = append(c.Server.CORSOrigins, o)
			}
		}
	}
}

// Validate rejects configurations the pipeline cannot run with.
func (c Config) Validate() error {
	switch c.Scoring.Provider {
	case "local", "nats":
	case "openai", "anthropic":
		if c.Scoring.APIKey == "" {
			return fmt.Errorf("scoring provider %q requires an api_key", c.Scoring.Provider)
		}
	default:
		return fmt.Errorf("unknown scoring provider %q", c.Scoring.Provider)
	}

	if c.Fetch.Workers <= 0 || c.Fetch.BatchSize <= 0 {
		return fmt.Errorf("fetch workers and batch_size must be positive")
	}
	if c.Score.Workers <= 0 || c.Score.BatchSize <= 0 || c.Score.CallSize <= 0 {
		return fmt.Errorf("score workers, batch_size and call_size must be positive")
	}
	if c.Store.RetentionDays < 0 {
		return fmt.Errorf("retention_days cannot be negative")
	}
	return nil
}

func envOverride(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envOverrideInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
