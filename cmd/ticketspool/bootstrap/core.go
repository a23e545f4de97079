package bootstrap

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/orrn/ticketspool/internal/config"
	"github.com/orrn/ticketspool/internal/core"
	"github.com/orrn/ticketspool/internal/db"
	"github.com/orrn/ticketspool/internal/pkg/clock"
	"github.com/orrn/ticketspool/internal/webhook"
)

var CoreModule = fx.Module("core",
	fx.Provide(
		NewStatusObserver,
		NewConfigStore,
		NewRenderer,
		NewConnectionManager,
		NewNativeTransport,
		NewQueue,
		NewWebhookSender,
	),
	fx.Invoke(func(*webhook.WebhookSender) {}),
)

func NewStatusObserver(clk clock.Clock, logger *slog.Logger) *core.StatusObserver {
	return core.NewStatusObserver(clk, logger)
}

func NewConfigStore(database *db.DB, logger *slog.Logger) *core.ConfigStore {
	return core.NewConfigStore(context.Background(), database.Settings, logger)
}

func NewRenderer(cfg *config.Config, clk clock.Clock) (*core.Renderer, error) {
	r := cfg.Restaurant
	money, err := core.NewMoneyFormatter(r.Locale, r.Currency, r.CurrencySymbol)
	if err != nil {
		return nil, err
	}
	info := core.RestaurantInfo{Name: r.Name, Address: r.Address, Phone: r.Phone}
	return core.NewRenderer(info, money, clk), nil
}

func NewConnectionManager(lc fx.Lifecycle, cfg *config.Config, configs *core.ConfigStore, observer *core.StatusObserver, logger *slog.Logger) *core.ConnectionManager {
	m := core.NewConnectionManager(configs, observer, logger, core.ConnectionOptions{
		ConnectTimeout: cfg.Printer.ConnectionTimeout,
	})

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			m.Disconnect(ctx)
			return nil
		},
	})

	return m
}

func NewNativeTransport(cfg *config.Config, clk clock.Clock, logger *slog.Logger) *core.NativeTransport {
	return core.NewNativeTransport(clk, logger, cfg.Printer.PrintTimeout)
}

func NewQueue(
	lc fx.Lifecycle,
	cfg *config.Config,
	renderer *core.Renderer,
	configs *core.ConfigStore,
	conn *core.ConnectionManager,
	native *core.NativeTransport,
	observer *core.StatusObserver,
	database *db.DB,
	clk clock.Clock,
	logger *slog.Logger,
) *core.Queue {
	transports := map[core.Transport]core.Sender{
		core.TransportSerial: conn,
		core.TransportNative: native,
	}
	q := core.NewQueue(renderer, configs, transports, observer, database.Jobs, clk, logger, core.QueueOptions{
		MaxRetries: cfg.Queue.MaxRetries,
		RetryDelay: cfg.Queue.RetryDelay,
	})

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			q.Stop()
			return nil
		},
	})

	return q
}

func NewWebhookSender(lc fx.Lifecycle, cfg *config.Config, observer *core.StatusObserver, logger *slog.Logger) *webhook.WebhookSender {
	w := cfg.Webhooks
	sender := webhook.NewWebhookSender(w.Endpoints, webhook.WebhookConfig{
		RetryCount: w.RetryCount,
		RetryDelay: w.RetryDelay,
		Timeout:    w.Timeout,
	}, logger)

	var detach func()
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			sender.Start()
			detach = sender.Attach(observer)
			return nil
		},
		OnStop: func(_ context.Context) error {
			if detach != nil {
				detach()
			}
			sender.Stop()
			return nil
		},
	})

	return sender
}
