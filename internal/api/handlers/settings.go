package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orrn/ticketspool/internal/config"
)

type SettingsHandler struct {
	config *config.Config
}

type RestaurantResponse struct {
	Name     string `json:"name"`
	Address  string `json:"address"`
	Phone    string `json:"phone"`
	Locale   string `json:"locale"`
	Currency string `json:"currency"`
}

type ServerConfigResponse struct {
	Port              int    `json:"port"`
	DatabasePath      string `json:"database_path"`
	HistoryDays       int    `json:"history_days"`
	ConnectionTimeout string `json:"connection_timeout"`
	PrintTimeout      string `json:"print_timeout"`
	MaxRetries        int    `json:"max_retries"`
	RetryDelay        string `json:"retry_delay"`
	WebhookEndpoints  int    `json:"webhook_endpoints"`
	LogLevel          string `json:"log_level"`
	LogFormat         string `json:"log_format"`
}

func NewSettingsHandler(cfg *config.Config) *SettingsHandler {
	return &SettingsHandler{config: cfg}
}

func (h *SettingsHandler) GetRestaurant(c *gin.Context) {
	r := h.config.Restaurant
	c.JSON(http.StatusOK, RestaurantResponse{
		Name:     r.Name,
		Address:  r.Address,
		Phone:    r.Phone,
		Locale:   r.Locale,
		Currency: r.Currency,
	})
}

func (h *SettingsHandler) GetServerConfig(c *gin.Context) {
	resp := ServerConfigResponse{
		Port:              h.config.Server.Port,
		DatabasePath:      h.config.Database.Path,
		HistoryDays:       h.config.Database.HistoryDays,
		ConnectionTimeout: h.config.Printer.ConnectionTimeout.String(),
		PrintTimeout:      h.config.Printer.PrintTimeout.String(),
		MaxRetries:        h.config.Queue.MaxRetries,
		RetryDelay:        h.config.Queue.RetryDelay.String(),
		WebhookEndpoints:  len(h.config.Webhooks.Endpoints),
		LogLevel:          h.config.Logging.Level,
		LogFormat:         h.config.Logging.Format,
	}

	c.JSON(http.StatusOK, resp)
}

func (h *SettingsHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/settings/restaurant", h.GetRestaurant)
	r.GET("/settings/server", h.GetServerConfig)
}
