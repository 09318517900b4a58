// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Crawl     CrawlConfig     `mapstructure:"crawl"`
	DB        DBConfig        `mapstructure:"db"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// HTTPConfig configures the shared fetch-with-retry client.
type HTTPConfig struct {
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	MaxAttempts    int    `mapstructure:"max_attempts"`
	BackoffBaseMs  int    `mapstructure:"backoff_base_ms"`
	UserAgent      string `mapstructure:"user_agent"`
}

// CrawlConfig governs orchestrator fan-out behavior.
type CrawlConfig struct {
	AdapterTimeoutSeconds int `mapstructure:"adapter_timeout_seconds"`
}

// DBConfig controls access to the Postgres store.
type DBConfig struct {
	DSN                string `mapstructure:"dsn"`
	MaxConns           int32  `mapstructure:"max_conns"`
	MinConns           int32  `mapstructure:"min_conns"`
	MaxConnLifetimeMin int    `mapstructure:"max_conn_lifetime_minutes"`
}

// RedisConfig controls the fronting cache client.
type RedisConfig struct {
	Addr            string `mapstructure:"addr"`
	Password        string `mapstructure:"password"`
	DB              int    `mapstructure:"db"`
	DefaultTTLSec   int    `mapstructure:"default_ttl_seconds"`
	ScanBatchSize   int64  `mapstructure:"scan_batch_size"`
	DisableCache    bool   `mapstructure:"disabled"`
	DialTimeoutSec  int    `mapstructure:"dial_timeout_seconds"`
	ReadTimeoutSec  int    `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSec int    `mapstructure:"write_timeout_seconds"`
}

// SchedulerConfig sets job cadences and retention windows.
type SchedulerConfig struct {
	CrawlIntervalMinutes int `mapstructure:"crawl_interval_minutes"`
	EvictIntervalHours   int `mapstructure:"evict_interval_hours"`
	EvictAfterDays       int `mapstructure:"evict_after_days"`
	CacheSweepMinutes    int `mapstructure:"cache_sweep_minutes"`
}

// PubSubConfig holds metadata for ingest-report notifications.
// Leave ProjectID empty to disable publishing.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("HOTBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("http.timeout_seconds", 30)
	v.SetDefault("http.max_attempts", 3)
	v.SetDefault("http.backoff_base_ms", 1000)
	v.SetDefault("http.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")
	v.SetDefault("crawl.adapter_timeout_seconds", 90)
	v.SetDefault("db.max_conns", 8)
	v.SetDefault("db.min_conns", 1)
	v.SetDefault("db.max_conn_lifetime_minutes", 30)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.default_ttl_seconds", 300)
	v.SetDefault("redis.scan_batch_size", 200)
	v.SetDefault("redis.dial_timeout_seconds", 5)
	v.SetDefault("redis.read_timeout_seconds", 5)
	v.SetDefault("redis.write_timeout_seconds", 5)
	v.SetDefault("scheduler.crawl_interval_minutes", 30)
	v.SetDefault("scheduler.evict_interval_hours", 24)
	v.SetDefault("scheduler.evict_after_days", 7)
	v.SetDefault("scheduler.cache_sweep_minutes", 60)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.HTTP.MaxAttempts <= 0 {
		return fmt.Errorf("http.max_attempts must be > 0")
	}
	if c.Crawl.AdapterTimeoutSeconds <= 0 {
		return fmt.Errorf("crawl.adapter_timeout_seconds must be > 0")
	}
	if c.Scheduler.CrawlIntervalMinutes <= 0 {
		return fmt.Errorf("scheduler.crawl_interval_minutes must be > 0")
	}
	if c.Scheduler.EvictAfterDays <= 0 {
		return fmt.Errorf("scheduler.evict_after_days must be > 0")
	}
	if c.PubSub.ProjectID != "" && c.PubSub.TopicName == "" {
		return fmt.Errorf("pubsub.topic_name must be set when pubsub.project_id is set")
	}
	return nil
}

// FetchTimeout converts the HTTP timeout into a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// AdapterTimeout is the overall budget for one adapter run.
func (c Config) AdapterTimeout() time.Duration {
	return time.Duration(c.Crawl.AdapterTimeoutSeconds) * time.Second
}

// CrawlInterval is the cadence of the periodic ingestion job.
func (c Config) CrawlInterval() time.Duration {
	return time.Duration(c.Scheduler.CrawlIntervalMinutes) * time.Minute
}
