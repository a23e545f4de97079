package bootstrap

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/orrn/ticketspool/internal/api"
	"github.com/orrn/ticketspool/internal/api/handlers"
	"github.com/orrn/ticketspool/internal/api/middleware"
	"github.com/orrn/ticketspool/internal/config"
	"github.com/orrn/ticketspool/internal/core"
	"github.com/orrn/ticketspool/internal/db"
	"github.com/orrn/ticketspool/internal/pkg/clock"
)

var APIModule = fx.Module("api",
	fx.Provide(
		NewEngine,
		NewAuthMiddleware,
		NewPrinterHandler,
		NewJobHandler,
		handlers.NewSettingsHandler,
	),
	fx.Invoke(NewRouter),
)

func NewEngine() *gin.Engine {
	return gin.New()
}

func NewAuthMiddleware(database *db.DB, clk clock.Clock) (*middleware.AuthMiddleware, error) {
	return middleware.NewAuthMiddleware(context.Background(), database.Settings, clk, gin.Mode() == gin.ReleaseMode)
}

func NewPrinterHandler(configs *core.ConfigStore, conn *core.ConnectionManager, observer *core.StatusObserver, logger *slog.Logger) *handlers.PrinterHandler {
	return handlers.NewPrinterHandler(configs, conn, observer, logger)
}

func NewJobHandler(
	queue *core.Queue,
	renderer *core.Renderer,
	configs *core.ConfigStore,
	database *db.DB,
	native *core.NativeTransport,
	clk clock.Clock,
) *handlers.JobHandler {
	return handlers.NewJobHandler(queue, renderer, configs, database.Jobs, database.Counters, native, clk)
}

func NewRouter(
	engine *gin.Engine,
	cfg *config.Config,
	logger *slog.Logger,
	auth *middleware.AuthMiddleware,
	printers *handlers.PrinterHandler,
	jobs *handlers.JobHandler,
	settings *handlers.SettingsHandler,
) {
	api.NewRouter(engine, cfg, logger, api.Handlers{
		Auth:     auth,
		Printers: printers,
		Jobs:     jobs,
		Settings: settings,
	})
}
