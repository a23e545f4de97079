package bootstrap

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/orrn/ticketspool/internal/api/middleware"
	"github.com/orrn/ticketspool/internal/config"
	"github.com/orrn/ticketspool/internal/pkg/clock"
)

// ConfigPath is the -config flag value handed to the fx graph.
type ConfigPath string

var ConfigModule = fx.Module("config",
	fx.Provide(
		NewConfig,
		NewLogger,
		NewClock,
	),
)

func NewConfig(path ConfigPath) (*config.Config, error) {
	return config.Load(string(path))
}

func NewLogger(cfg *config.Config) *slog.Logger {
	return middleware.NewLogger(cfg.Logging)
}

func NewClock() clock.Clock {
	return clock.NewRealClock()
}
