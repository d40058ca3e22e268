package v1

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/xiaot623/rolo/internal/domain"
	"github.com/xiaot623/rolo/internal/service"
)

// CreateSession opens a conversation.
// POST /v1/sessions
func (h *Handler) CreateSession(c echo.Context) error {
	var req domain.CreateSessionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	resp, err := h.service.CreateSession(c.Request().Context(), req)
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, err)
	}
	return c.JSON(http.StatusCreated, resp)
}

// GetSessionMessages retrieves messages for a session.
// GET /v1/sessions/:session_id/messages
func (h *Handler) GetSessionMessages(c echo.Context) error {
	sessionID := c.Param("session_id")
	limit := queryLimit(c, 50)

	messages, err := h.service.ListMessages(c.Request().Context(), sessionID, limit)
	if err != nil {
		return sessionError(c, err)
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	return c.JSON(http.StatusOK, domain.ListMessagesResponse{Messages: messages})
}

// PostSessionMessage runs one user turn and returns its outcome.
// POST /v1/sessions/:session_id/messages
func (h *Handler) PostSessionMessage(c echo.Context) error {
	sessionID := c.Param("session_id")
	var req domain.SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if strings.TrimSpace(req.Content) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "content is required"})
	}

	resp, err := h.service.SendMessage(c.Request().Context(), sessionID, req.Content, nil)
	if resp == nil {
		return sessionError(c, err)
	}
	switch {
	case errors.Is(err, service.ErrInference):
		return c.JSON(http.StatusBadGateway, resp)
	case err != nil:
		return c.JSON(http.StatusInternalServerError, resp)
	}
	return c.JSON(http.StatusOK, resp)
}

// GetSessionToolCalls retrieves the tool call audit of a session.
// GET /v1/sessions/:session_id/tool_calls
func (h *Handler) GetSessionToolCalls(c echo.Context) error {
	sessionID := c.Param("session_id")
	limit := queryLimit(c, 100)

	records, err := h.service.ListToolCalls(c.Request().Context(), sessionID, limit)
	if err != nil {
		return sessionError(c, err)
	}
	if records == nil {
		records = []domain.ToolCallRecord{}
	}
	return c.JSON(http.StatusOK, domain.ListToolCallsResponse{ToolCalls: records})
}

func sessionError(c echo.Context, err error) error {
	if errors.Is(err, service.ErrSessionNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "session not found"})
	}
	return errorJSON(c, http.StatusInternalServerError, err)
}

func queryLimit(c echo.Context, def int) int {
	if l := c.QueryParam("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil {
			return val
		}
	}
	return def
}
