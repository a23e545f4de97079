package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, defaults(), cfg)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
  cors_origins: ["http://pos.local"]
database:
  path: /var/lib/ticketspool/spool.db
  history_days: 7
printer:
  print_timeout: 30s
queue:
  max_retries: 5
  retry_delay: 1s
restaurant:
  name: Casa Nostra
  locale: en-US
  currency: USD
  currency_symbol: $
webhooks:
  endpoints:
    - url: http://hooks.local/print
      secret: s3cret
      events: [job_failed]
logging:
  level: debug
  format: text
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, []string{"http://pos.local"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "/var/lib/ticketspool/spool.db", cfg.Database.Path)
	assert.Equal(t, 7, cfg.Database.HistoryDays)
	assert.Equal(t, 30*time.Second, cfg.Printer.PrintTimeout)
	assert.Equal(t, 10*time.Second, cfg.Printer.ConnectionTimeout)
	assert.Equal(t, 5, cfg.Queue.MaxRetries)
	assert.Equal(t, time.Second, cfg.Queue.RetryDelay)
	assert.Equal(t, "Casa Nostra", cfg.Restaurant.Name)
	assert.Equal(t, "USD", cfg.Restaurant.Currency)
	require.Len(t, cfg.Webhooks.Endpoints, 1)
	assert.Equal(t, []string{"job_failed"}, cfg.Webhooks.Endpoints[0].Events)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9000\n")
	t.Setenv("TICKETSPOOL_SERVER_PORT", "9100")
	t.Setenv("TICKETSPOOL_QUEUE_RETRY_DELAY", "500ms")
	t.Setenv("TICKETSPOOL_RESTAURANT_CURRENCY_SYMBOL", "US$")
	t.Setenv("TICKETSPOOL_LOGGING_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, 500*time.Millisecond, cfg.Queue.RetryDelay)
	assert.Equal(t, "US$", cfg.Restaurant.CurrencySymbol)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoad_IgnoresUnprefixedEnv(t *testing.T) {
	t.Setenv("PORT", "1234")
	t.Setenv("LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "./data/ticketspool.db", cfg.Database.Path)
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "server: [unclosed"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{name: "port out of range", mutate: func(c *Config) { c.Server.Port = 70000 }},
		{name: "empty database path", mutate: func(c *Config) { c.Database.Path = "" }},
		{name: "negative history days", mutate: func(c *Config) { c.Database.HistoryDays = -1 }},
		{name: "negative print timeout", mutate: func(c *Config) { c.Printer.PrintTimeout = -time.Second }},
		{name: "negative retries", mutate: func(c *Config) { c.Queue.MaxRetries = -1 }},
		{name: "missing currency", mutate: func(c *Config) { c.Restaurant.Currency = "" }},
		{name: "webhook without url", mutate: func(c *Config) { c.Webhooks.Endpoints = []WebhookEndpoint{{Secret: "x"}} }},
		{name: "unknown log level", mutate: func(c *Config) { c.Logging.Level = "verbose" }},
		{name: "unknown log format", mutate: func(c *Config) { c.Logging.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, defaults().Validate())
	assert.NoError(t, NewTestConfig().Validate())
}
