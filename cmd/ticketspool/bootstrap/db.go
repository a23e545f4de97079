package bootstrap

import (
	"context"
	"log/slog"
	"time"

	"go.uber.org/fx"

	"github.com/orrn/ticketspool/internal/config"
	"github.com/orrn/ticketspool/internal/db"
	"github.com/orrn/ticketspool/internal/pkg/clock"
)

var DBModule = fx.Module("db",
	fx.Provide(
		NewDB,
	),
	fx.Invoke(PurgeHistory),
)

func NewDB(lc fx.Lifecycle, cfg *config.Config) (*db.DB, error) {
	database, err := db.Open(context.Background(), db.Config{Path: cfg.Database.Path})
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return database.Close()
		},
	})

	return database, nil
}

// PurgeHistory drops job history older than the configured retention once
// at startup. Zero history days keeps everything.
func PurgeHistory(lc fx.Lifecycle, cfg *config.Config, database *db.DB, clk clock.Clock, logger *slog.Logger) {
	days := cfg.Database.HistoryDays
	if days == 0 {
		return
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			cutoff := clk.Now().Add(-time.Duration(days) * 24 * time.Hour)
			removed, err := database.Jobs.PurgeBefore(ctx, cutoff)
			if err != nil {
				logger.Warn("failed to purge job history", "error", err)
				return nil
			}
			if removed > 0 {
				logger.Info("purged job history", "removed", removed, "cutoff", cutoff)
			}
			return nil
		},
	})
}
