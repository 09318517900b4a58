package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, 30, cfg.HTTP.TimeoutSeconds)
	require.Equal(t, 3, cfg.HTTP.MaxAttempts)
	require.Equal(t, 30*time.Second, cfg.FetchTimeout())
	require.Equal(t, 90*time.Second, cfg.AdapterTimeout())
	require.Equal(t, 30*time.Minute, cfg.CrawlInterval())
	require.Equal(t, "localhost:6379", cfg.Redis.Addr)
	require.Equal(t, 7, cfg.Scheduler.EvictAfterDays)
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
http:
  timeout_seconds: 10
  max_attempts: 5
  backoff_base_ms: 250
crawl:
  adapter_timeout_seconds: 40
db:
  dsn: postgres://localhost/hotboard
  max_conns: 16
redis:
  addr: redis:6379
  default_ttl_seconds: 120
scheduler:
  crawl_interval_minutes: 10
  evict_after_days: 3
logging:
  development: false
`
	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, 5, cfg.HTTP.MaxAttempts)
	require.Equal(t, 40*time.Second, cfg.AdapterTimeout())
	require.Equal(t, "postgres://localhost/hotboard", cfg.DB.DSN)
	require.Equal(t, int32(16), cfg.DB.MaxConns)
	require.Equal(t, "redis:6379", cfg.Redis.Addr)
	require.Equal(t, 10*time.Minute, cfg.CrawlInterval())
	require.Equal(t, 3, cfg.Scheduler.EvictAfterDays)
	require.False(t, cfg.Logging.Development)
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero port", func(c *Config) { c.Server.Port = 0 }},
		{"zero timeout", func(c *Config) { c.HTTP.TimeoutSeconds = 0 }},
		{"zero attempts", func(c *Config) { c.HTTP.MaxAttempts = 0 }},
		{"zero adapter timeout", func(c *Config) { c.Crawl.AdapterTimeoutSeconds = 0 }},
		{"zero crawl interval", func(c *Config) { c.Scheduler.CrawlIntervalMinutes = 0 }},
		{"pubsub project without topic", func(c *Config) {
			c.PubSub.ProjectID = "proj"
			c.PubSub.TopicName = ""
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg, err := Load("")
			require.NoError(t, err)
			tc.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}
