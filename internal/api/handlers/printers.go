package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orrn/ticketspool/internal/core"
)

const eventBufferSize = 16

type ConfigManager interface {
	Get() core.PrinterConfig
	Set(ctx context.Context, cfg core.PrinterConfig) (core.PrinterConfig, error)
}

type Connection interface {
	Connect(ctx context.Context) (core.ConnectionState, error)
	Disconnect(ctx context.Context) core.ConnectionState
	State() core.ConnectionState
	Ports() ([]string, error)
}

type PrinterStatusResponse struct {
	Connection core.ConnectionState `json:"connection"`
	Status     core.Status          `json:"status"`
}

type PortsResponse struct {
	Ports []string `json:"ports"`
}

type PrinterHandler struct {
	configs  ConfigManager
	conn     Connection
	observer *core.StatusObserver
	logger   *slog.Logger
}

func NewPrinterHandler(configs ConfigManager, conn Connection, observer *core.StatusObserver, logger *slog.Logger) *PrinterHandler {
	return &PrinterHandler{
		configs:  configs,
		conn:     conn,
		observer: observer,
		logger:   logger.With("component", "printer_handler"),
	}
}

func (h *PrinterHandler) GetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, h.configs.Get())
}

func (h *PrinterHandler) UpdateConfig(c *gin.Context) {
	var req core.PrinterConfig
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	cfg, err := h.configs.Set(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (h *PrinterHandler) Connect(c *gin.Context) {
	state, err := h.conn.Connect(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *PrinterHandler) Disconnect(c *gin.Context) {
	c.JSON(http.StatusOK, h.conn.Disconnect(c.Request.Context()))
}

func (h *PrinterHandler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, PrinterStatusResponse{
		Connection: h.conn.State(),
		Status:     h.observer.Current(),
	})
}

func (h *PrinterHandler) ListPorts(c *gin.Context) {
	ports, err := h.conn.Ports()
	if err != nil {
		respondError(c, err)
		return
	}
	if ports == nil {
		ports = []string{}
	}
	c.JSON(http.StatusOK, PortsResponse{Ports: ports})
}

// Events streams status snapshots as server-sent events until the client
// goes away. Slow clients miss snapshots rather than blocking the observer.
func (h *PrinterHandler) Events(c *gin.Context) {
	events := make(chan core.Status, eventBufferSize)
	unsubscribe := h.observer.Subscribe(func(s core.Status) {
		select {
		case events <- s:
		default:
			h.logger.Debug("event stream client lagging, snapshot dropped", "event", s.Event)
		}
	})
	defer unsubscribe()

	current := h.observer.Current()
	c.SSEvent("status", current)
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case s := <-events:
			c.SSEvent(string(s.Event), s)
			return true
		case <-ctx.Done():
			return false
		}
	})
}

func (h *PrinterHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/printer/config", h.GetConfig)
	r.PUT("/printer/config", h.UpdateConfig)
	r.POST("/printer/connect", h.Connect)
	r.POST("/printer/disconnect", h.Disconnect)
	r.GET("/printer/status", h.GetStatus)
	r.GET("/printer/ports", h.ListPorts)
	r.GET("/printer/events", h.Events)
}
