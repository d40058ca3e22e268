package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/xiaot623/rolo/internal/domain"
)

// ListTools lists the enabled tools.
// GET /v1/tools
func (h *Handler) ListTools(c echo.Context) error {
	return c.JSON(http.StatusOK, domain.ListToolsResponse{Tools: h.service.ListTools()})
}

// InvokeTool runs one tool through the dispatcher. Tool failures are part of
// the result, so the status is 200 unless the request itself is malformed.
// POST /v1/tools/:tool_name/invoke
func (h *Handler) InvokeTool(c echo.Context) error {
	toolName := c.Param("tool_name")
	var req domain.ToolInvokeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	ctx := c.Request().Context()
	result := h.service.InvokeTool(ctx, req.SessionID, toolName, req.Args)
	return c.JSON(http.StatusOK, result)
}

// ListBackups lists all backups, oldest first.
// GET /v1/backups
func (h *Handler) ListBackups(c echo.Context) error {
	backups, err := h.service.ListBackups(c.Request().Context())
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, err)
	}
	if backups == nil {
		backups = []domain.Backup{}
	}
	return c.JSON(http.StatusOK, domain.ListBackupsResponse{Backups: backups})
}
