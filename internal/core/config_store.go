package core

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/orrn/ticketspool/internal/db"
)

const settingsKeyPrinterConfig = "printer_config"

const defaultBaudRate = 9100

var allowedWidths = map[int]bool{32: true, 42: true, 48: true}

// DefaultPrinterConfig is used until an operator saves a configuration.
func DefaultPrinterConfig() PrinterConfig {
	return PrinterConfig{
		Transport:    TransportNative,
		Vendor:       VendorEpson,
		Width:        42,
		BaudRate:     defaultBaudRate,
		CharacterSet: CharsetPC437,
	}
}

// SettingsStore is the key/value persistence behind the configuration store.
type SettingsStore interface {
	GetSetting(ctx context.Context, key string) (*db.Setting, error)
	SetSetting(ctx context.Context, key, value string, encrypted bool) error
}

// ConfigSource hands out the configuration future renders should use.
type ConfigSource interface {
	Get() PrinterConfig
}

type ConfigStore struct {
	settings SettingsStore
	logger   *slog.Logger

	mu      sync.RWMutex
	current PrinterConfig
}

// NewConfigStore reads the persisted configuration once. A missing or
// unreadable entry falls back to the default rather than failing startup.
func NewConfigStore(ctx context.Context, settings SettingsStore, logger *slog.Logger) *ConfigStore {
	s := &ConfigStore{
		settings: settings,
		logger:   logger.With("component", "config_store"),
		current:  DefaultPrinterConfig(),
	}

	setting, err := settings.GetSetting(ctx, settingsKeyPrinterConfig)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return s
	case err != nil:
		s.logger.Warn("failed to load printer config, using defaults", "error", err)
		return s
	}

	var stored PrinterConfig
	if err := json.Unmarshal([]byte(setting.Value), &stored); err != nil {
		s.logger.Warn("stored printer config is corrupt, using defaults", "error", err)
		return s
	}
	stored = withDefaults(stored)
	if err := validateConfig(stored); err != nil {
		s.logger.Warn("stored printer config is invalid, using defaults", "error", err)
		return s
	}
	s.current = stored
	return s
}

func (s *ConfigStore) Get() PrinterConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Set validates and persists cfg. On any error the previous configuration
// stays in effect.
func (s *ConfigStore) Set(ctx context.Context, cfg PrinterConfig) (PrinterConfig, error) {
	cfg = withOptionalDefaults(cfg)
	if err := validateConfig(cfg); err != nil {
		return PrinterConfig{}, err
	}

	data, err := json.Marshal(cfg)
	if err != nil {
		return PrinterConfig{}, errors.Wrap(err, "marshal printer config")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.settings.SetSetting(ctx, settingsKeyPrinterConfig, string(data), false); err != nil {
		return PrinterConfig{}, errors.Wrap(err, "persist printer config")
	}
	s.current = cfg
	s.logger.Info("printer config updated", "transport", cfg.Transport, "width", cfg.Width, "vendor", cfg.Vendor)
	return cfg, nil
}

func withDefaults(cfg PrinterConfig) PrinterConfig {
	def := DefaultPrinterConfig()
	if cfg.Transport == "" {
		cfg.Transport = def.Transport
	}
	if cfg.Width == 0 {
		cfg.Width = def.Width
	}
	return withOptionalDefaults(cfg)
}

// withOptionalDefaults fills the serial sub-options only. Transport and width
// must always be chosen explicitly when saving.
func withOptionalDefaults(cfg PrinterConfig) PrinterConfig {
	def := DefaultPrinterConfig()
	if cfg.Vendor == "" {
		cfg.Vendor = def.Vendor
	}
	if cfg.BaudRate == 0 {
		cfg.BaudRate = def.BaudRate
	}
	if cfg.CharacterSet == "" {
		cfg.CharacterSet = def.CharacterSet
	}
	return cfg
}

func validateConfig(cfg PrinterConfig) error {
	switch cfg.Transport {
	case TransportSerial, TransportNative:
	default:
		return newConfigError("transport", fmt.Sprintf("unknown transport %q", cfg.Transport))
	}
	if !allowedWidths[cfg.Width] {
		return newConfigError("width", fmt.Sprintf("width %d not in allowed set 32, 42, 48", cfg.Width))
	}
	if _, ok := vendorCommands[cfg.Vendor]; !ok {
		return newConfigError("vendor", fmt.Sprintf("unknown vendor %q", cfg.Vendor))
	}
	if _, ok := codePages[cfg.CharacterSet]; !ok {
		return newConfigError("characterSet", fmt.Sprintf("unknown character set %q", cfg.CharacterSet))
	}
	if cfg.BaudRate <= 0 {
		return newConfigError("baudRate", "must be positive")
	}
	return nil
}
