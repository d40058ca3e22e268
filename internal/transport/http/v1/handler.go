// Package v1 provides the version 1 HTTP handlers.
package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/xiaot623/rolo/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Tool API
	e.GET("/v1/tools", h.ListTools)
	e.POST("/v1/tools/:tool_name/invoke", h.InvokeTool)

	// Conversation API
	e.POST("/v1/sessions", h.CreateSession)
	e.GET("/v1/sessions/:session_id/messages", h.GetSessionMessages)
	e.POST("/v1/sessions/:session_id/messages", h.PostSessionMessage)
	e.GET("/v1/sessions/:session_id/tool_calls", h.GetSessionToolCalls)

	// Backup API
	e.GET("/v1/backups", h.ListBackups)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}

func errorJSON(c echo.Context, status int, err error) error {
	return c.JSON(status, map[string]string{"error": err.Error()})
}
