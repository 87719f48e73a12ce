// Package config handles loading and validating the application configuration
// from YAML files with environment variable substitution.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	domain "github.com/donaldgifford/float-tracker/pkg/types"
)

// History backends.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// Config is the top-level application configuration.
type Config struct {
	Server        ServerConfig         `yaml:"server"`
	CSFloat       CSFloatConfig        `yaml:"csfloat"`
	Exchange      ExchangeConfig       `yaml:"exchange"`
	Notifications NotificationsConfig  `yaml:"notifications"`
	Dedup         DedupConfig          `yaml:"dedup"`
	History       HistoryConfig        `yaml:"history"`
	Database      DatabaseConfig       `yaml:"database"`
	Schedule      ScheduleConfig       `yaml:"schedule"`
	Console       ConsoleConfig        `yaml:"console"`
	Logging       LoggingConfig        `yaml:"logging"`
	Telemetry     TelemetryConfig      `yaml:"telemetry"`
	Targets       []domain.WatchTarget `yaml:"targets"`
	Tiers         []TierRule           `yaml:"tiers"`
}

// ServerConfig defines the Echo HTTP server settings.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// CSFloatConfig defines marketplace API settings.
type CSFloatConfig struct {
	Token     string          `yaml:"token"`
	BaseURL   string          `yaml:"base_url"`
	Timeout   time.Duration   `yaml:"timeout"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig defines marketplace rate limiting settings.
type RateLimitConfig struct {
	PerSecond  float64 `yaml:"per_second"`
	Burst      int     `yaml:"burst"`
	DailyLimit int64   `yaml:"daily_limit"`
}

// ExchangeConfig defines the exchange-rate source. Without an app id the
// default rate is used for the lifetime of the process.
type ExchangeConfig struct {
	AppID           string        `yaml:"app_id"`
	BaseURL         string        `yaml:"base_url"`
	Currency        string        `yaml:"currency"`
	Symbol          string        `yaml:"symbol"`
	DefaultRate     float64       `yaml:"default_rate"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
}

// NotificationsConfig defines notification targets.
type NotificationsConfig struct {
	Discord DiscordConfig `yaml:"discord"`
}

// DiscordConfig defines Discord webhook settings.
type DiscordConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
	UserID     string `yaml:"user_id"`
}

// DedupConfig defines the alert reservation store.
type DedupConfig struct {
	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig defines Redis connection settings.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// HistoryConfig selects where listing history is persisted.
type HistoryConfig struct {
	Backend string `yaml:"backend"` // file, postgres
	Path    string `yaml:"path"`
	Key     string `yaml:"key"`
}

// DatabaseConfig defines PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns a PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		d.Host, d.Port, d.Name, d.User, d.Password, d.SSLMode,
	)
}

// ScheduleConfig defines poll timing.
type ScheduleConfig struct {
	PollInterval  time.Duration `yaml:"poll_interval"`
	StaggerOffset time.Duration `yaml:"stagger_offset"`
}

// ConsoleConfig toggles the interactive stats listener on stdin.
type ConsoleConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`  // debug, info, warn, error
	Format     string `yaml:"format"` // text, json
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// TelemetryConfig defines OTLP trace and metric export.
type TelemetryConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Endpoint       string        `yaml:"endpoint"`
	Insecure       bool          `yaml:"insecure"`
	ServiceName    string        `yaml:"service_name"`
	ExportInterval time.Duration `yaml:"export_interval"`
}

// TierRule assigns a tier label to every target with the given classifiers.
type TierRule struct {
	DefIndex   int    `yaml:"def_index"`
	PaintIndex int    `yaml:"paint_index"`
	Tier       string `yaml:"tier"`
}

// Load reads and parses a YAML config file, performing environment variable
// substitution and validation. Variables from .env and then .env.secrets
// next to the config file are loaded first; .env never overrides the
// process environment, .env.secrets does.
func Load(path string) (*Config, error) {
	if err := loadDotenv(filepath.Dir(path)); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path) //nolint:gosec // config path from trusted CLI flag
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the YAML content.
	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	resolveTiers(cfg)

	return cfg, nil
}

func loadDotenv(dir string) error {
	envFile := filepath.Join(dir, ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", envFile, err)
	}

	secrets := filepath.Join(dir, ".env.secrets")
	if err := godotenv.Overload(secrets); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", secrets, err)
	}
	return nil
}

func applyDefaults(cfg *Config) {
	applyServerDefaults(&cfg.Server)
	applyCSFloatDefaults(&cfg.CSFloat)
	applyExchangeDefaults(&cfg.Exchange)
	applyDedupDefaults(&cfg.Dedup)
	applyHistoryDefaults(&cfg.History)
	applyDatabaseDefaults(&cfg.Database)
	applyScheduleDefaults(&cfg.Schedule)
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
}

func applyServerDefaults(s *ServerConfig) {
	if s.Host == "" {
		s.Host = "0.0.0.0"
	}
	if s.Port == 0 {
		s.Port = 8080
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = 30 * time.Second
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = 30 * time.Second
	}
}

func applyCSFloatDefaults(c *CSFloatConfig) {
	if c.BaseURL == "" {
		c.BaseURL = "https://csfloat.com"
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.RateLimit.PerSecond == 0 {
		c.RateLimit.PerSecond = 1
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 2
	}
	if c.RateLimit.DailyLimit == 0 {
		c.RateLimit.DailyLimit = 5000
	}
}

func applyExchangeDefaults(e *ExchangeConfig) {
	if e.BaseURL == "" {
		e.BaseURL = "https://openexchangerates.org"
	}
	if e.Currency == "" {
		e.Currency = "EUR"
	}
	if e.Symbol == "" {
		e.Symbol = "€"
	}
	if e.DefaultRate == 0 {
		e.DefaultRate = 0.866
	}
	if e.RefreshInterval == 0 {
		e.RefreshInterval = time.Hour
	}
}

func applyDedupDefaults(d *DedupConfig) {
	if d.Redis.Addr == "" {
		d.Redis.Addr = "localhost:6379"
	}
	if d.Redis.TTL == 0 {
		d.Redis.TTL = 7 * 24 * time.Hour
	}
}

func applyHistoryDefaults(h *HistoryConfig) {
	if h.Backend == "" {
		h.Backend = BackendFile
	}
	if h.Path == "" {
		h.Path = "history.json"
	}
	if h.Key == "" {
		h.Key = "default"
	}
}

func applyDatabaseDefaults(d *DatabaseConfig) {
	if d.Port == 0 {
		d.Port = 5432
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}
}

func applyScheduleDefaults(s *ScheduleConfig) {
	if s.PollInterval == 0 {
		s.PollInterval = 60 * time.Second
	}
}

func applyLoggingDefaults(l *LoggingConfig) {
	if l.Level == "" {
		l.Level = "info"
	}
	if l.Format == "" {
		l.Format = "text"
	}
	if l.MaxSizeMB == 0 {
		l.MaxSizeMB = 50
	}
	if l.MaxBackups == 0 {
		l.MaxBackups = 5
	}
	if l.MaxAgeDays == 0 {
		l.MaxAgeDays = 28
	}
}

func applyTelemetryDefaults(t *TelemetryConfig) {
	if t.Endpoint == "" {
		t.Endpoint = "localhost:4317"
	}
	if t.ServiceName == "" {
		t.ServiceName = "float-tracker"
	}
	if t.ExportInterval == 0 {
		t.ExportInterval = time.Minute
	}
}

func validate(cfg *Config) error {
	var errs []error

	if cfg.CSFloat.Token == "" {
		errs = append(errs, fmt.Errorf("csfloat.token is required"))
	}

	errs = append(errs, validateTargets(cfg.Targets)...)

	if cfg.Notifications.Discord.Enabled && cfg.Notifications.Discord.WebhookURL == "" {
		errs = append(
			errs,
			fmt.Errorf("notifications.discord.webhook_url is required when discord is enabled"),
		)
	}

	if cfg.Dedup.Redis.Enabled && cfg.Dedup.Redis.Addr == "" {
		errs = append(errs, fmt.Errorf("dedup.redis.addr is required when redis is enabled"))
	}

	if r := cfg.Exchange.DefaultRate; r <= 0 || math.IsInf(r, 0) || math.IsNaN(r) {
		errs = append(errs, fmt.Errorf("exchange.default_rate must be positive (got %v)", r))
	}

	if cfg.Schedule.PollInterval < 0 {
		errs = append(errs, fmt.Errorf("schedule.poll_interval must be positive"))
	}
	if cfg.Schedule.StaggerOffset < 0 {
		errs = append(errs, fmt.Errorf("schedule.stagger_offset must not be negative"))
	}

	switch cfg.History.Backend {
	case BackendFile:
		// Path is defaulted.
	case BackendPostgres:
		if cfg.Database.Host == "" {
			errs = append(errs, fmt.Errorf("database.host is required when history.backend is postgres"))
		}
		if cfg.Database.Name == "" {
			errs = append(errs, fmt.Errorf("database.name is required when history.backend is postgres"))
		}
		if cfg.Database.User == "" {
			errs = append(errs, fmt.Errorf("database.user is required when history.backend is postgres"))
		}
	default:
		errs = append(
			errs,
			fmt.Errorf("history.backend must be one of: file, postgres (got %q)", cfg.History.Backend),
		)
	}

	return errors.Join(errs...)
}

func validateTargets(targets []domain.WatchTarget) []error {
	if len(targets) == 0 {
		return []error{fmt.Errorf("at least one target is required")}
	}

	var errs []error
	seen := make(map[string]bool, len(targets))

	for i := range targets {
		t := &targets[i]
		switch {
		case t.Name == "":
			errs = append(errs, fmt.Errorf("targets[%d].name is required", i))
		case seen[t.Name]:
			errs = append(errs, fmt.Errorf("targets[%d].name %q is duplicated", i, t.Name))
		}
		seen[t.Name] = true

		if t.MaxPrice <= 0 {
			errs = append(errs, fmt.Errorf("targets[%d].max_price must be positive", i))
		}
		if t.MinFloat < 0 || t.MaxFloat > 1 || t.MinFloat > t.MaxFloat {
			errs = append(errs, fmt.Errorf(
				"targets[%d] float range must satisfy 0 <= min_float <= max_float <= 1 (got %v..%v)",
				i, t.MinFloat, t.MaxFloat,
			))
		}
	}

	return errs
}

func resolveTiers(cfg *Config) {
	for i := range cfg.Targets {
		t := &cfg.Targets[i]
		for _, rule := range cfg.Tiers {
			if rule.DefIndex == t.DefIndex && rule.PaintIndex == t.PaintIndex {
				t.Tier = rule.Tier
				break
			}
		}
	}
}
