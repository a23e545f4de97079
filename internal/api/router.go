package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orrn/ticketspool/internal/api/handlers"
	"github.com/orrn/ticketspool/internal/api/middleware"
	"github.com/orrn/ticketspool/internal/config"
)

type Handlers struct {
	Auth     *middleware.AuthMiddleware
	Printers *handlers.PrinterHandler
	Jobs     *handlers.JobHandler
	Settings *handlers.SettingsHandler
}

func NewRouter(engine *gin.Engine, cfg *config.Config, logger *slog.Logger, h Handlers) {
	engine.Use(gin.Recovery())
	engine.Use(middleware.NewCORSMiddleware(cfg.Server.CORSOrigins))
	engine.Use(middleware.RequestLogger(logger.With("component", "http")))

	engine.GET("/health", healthCheck)

	apiGroup := engine.Group("/api")
	h.Auth.RegisterRoutes(apiGroup)

	protected := apiGroup.Group("")
	protected.Use(h.Auth.RequireAuth())
	h.Printers.RegisterRoutes(protected)
	h.Jobs.RegisterRoutes(protected)
	h.Settings.RegisterRoutes(protected)
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
