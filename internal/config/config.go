package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override, e.g.
// TICKETSPOOL_SERVER_PORT or TICKETSPOOL_QUEUE_RETRY_DELAY. Unprefixed
// variables are never read.
const EnvPrefix = "TICKETSPOOL"

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Printer    PrinterConfig    `yaml:"printer"`
	Queue      QueueConfig      `yaml:"queue"`
	Restaurant RestaurantConfig `yaml:"restaurant"`
	Webhooks   WebhooksConfig   `yaml:"webhooks"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" split_words:"true"`
	WriteTimeout time.Duration `yaml:"write_timeout" split_words:"true"`
	CORSOrigins  []string      `yaml:"cors_origins" split_words:"true"`
}

type DatabaseConfig struct {
	Path        string `yaml:"path"`
	HistoryDays int    `yaml:"history_days" split_words:"true"`
}

type PrinterConfig struct {
	ConnectionTimeout time.Duration `yaml:"connection_timeout" split_words:"true"`
	// PrintTimeout bounds how long a browser print may stay unconfirmed.
	// Zero waits indefinitely.
	PrintTimeout time.Duration `yaml:"print_timeout" split_words:"true"`
}

type QueueConfig struct {
	MaxRetries int           `yaml:"max_retries" split_words:"true"`
	RetryDelay time.Duration `yaml:"retry_delay" split_words:"true"`
}

type RestaurantConfig struct {
	Name           string `yaml:"name"`
	Address        string `yaml:"address"`
	Phone          string `yaml:"phone"`
	Locale         string `yaml:"locale"`
	Currency       string `yaml:"currency"`
	CurrencySymbol string `yaml:"currency_symbol" split_words:"true"`
}

type WebhooksConfig struct {
	Endpoints  []WebhookEndpoint `yaml:"endpoints" ignored:"true"`
	Timeout    time.Duration     `yaml:"timeout"`
	RetryCount int               `yaml:"retry_count" split_words:"true"`
	RetryDelay time.Duration     `yaml:"retry_delay" split_words:"true"`
}

type WebhookEndpoint struct {
	URL    string   `yaml:"url"`
	Secret string   `yaml:"secret"`
	Events []string `yaml:"events"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 0,
			CORSOrigins:  []string{"http://localhost:3000"},
		},
		Database: DatabaseConfig{
			Path:        "./data/ticketspool.db",
			HistoryDays: 30,
		},
		Printer: PrinterConfig{
			ConnectionTimeout: 10 * time.Second,
			PrintTimeout:      2 * time.Minute,
		},
		Queue: QueueConfig{
			MaxRetries: 3,
			RetryDelay: 2 * time.Second,
		},
		Restaurant: RestaurantConfig{
			Name:           "Restaurant",
			Locale:         "pt-BR",
			Currency:       "BRL",
			CurrencySymbol: "R$",
		},
		Webhooks: WebhooksConfig{
			Timeout:    10 * time.Second,
			RetryCount: 3,
			RetryDelay: 5 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads the YAML file at configPath over the defaults, then applies
// environment overrides and validates the result. A missing file is not an
// error.
func Load(configPath string) (*Config, error) {
	cfg := defaults()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to process env config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewTestConfig returns a valid configuration for tests.
func NewTestConfig() *Config {
	cfg := defaults()
	cfg.Database.Path = ":memory:"
	cfg.Queue.RetryDelay = 10 * time.Millisecond
	cfg.Printer.PrintTimeout = time.Second
	cfg.Logging.Level = "error"
	return cfg
}

func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout < 0 {
		return fmt.Errorf("server read timeout must be non-negative")
	}

	if c.Server.WriteTimeout < 0 {
		return fmt.Errorf("server write timeout must be non-negative")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}

	if c.Database.HistoryDays < 0 {
		return fmt.Errorf("history days must be non-negative")
	}

	if c.Printer.ConnectionTimeout < 0 {
		return fmt.Errorf("connection timeout must be non-negative")
	}

	if c.Printer.PrintTimeout < 0 {
		return fmt.Errorf("print timeout must be non-negative")
	}

	if c.Queue.MaxRetries < 0 {
		return fmt.Errorf("max retries must be non-negative")
	}

	if c.Queue.RetryDelay < 0 {
		return fmt.Errorf("retry delay must be non-negative")
	}

	if c.Restaurant.Locale == "" || c.Restaurant.Currency == "" {
		return fmt.Errorf("restaurant locale and currency are required")
	}

	for i, ep := range c.Webhooks.Endpoints {
		if ep.URL == "" {
			return fmt.Errorf("webhook endpoint %d: url is required", i)
		}
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", c.Logging.Level)
	}

	validFormats := map[string]bool{
		"json": true,
		"text": true,
	}

	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s (valid: json, text)", c.Logging.Format)
	}

	return nil
}
