package handlers

import (
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"

	"github.com/orrn/ticketspool/internal/core"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// respondError maps core error kinds to HTTP responses.
func respondError(c *gin.Context, err error) {
	var cfgErr *core.ConfigError
	var renderErr *core.RenderError

	switch {
	case errors.As(err, &cfgErr):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_config", Message: err.Error(), Field: cfgErr.Field})
	case errors.As(err, &renderErr):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_order", Message: err.Error(), Field: renderErr.Field})
	case errors.Is(err, core.ErrConfig):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_config", Message: err.Error()})
	case errors.Is(err, core.ErrRender):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_order", Message: err.Error()})
	case errors.Is(err, core.ErrConnection):
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: "connection_failed", Message: err.Error()})
	case errors.Is(err, core.ErrQueueStopped):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "queue_stopped", Message: err.Error()})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error", Message: "Internal server error"})
	}
}

func bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "validation_error",
		Message: err.Error(),
	})
}
