// Package http provides the local HTTP API of rolo.
package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/xiaot623/rolo/internal/service"
	v1 "github.com/xiaot623/rolo/internal/transport/http/v1"
	"github.com/xiaot623/rolo/internal/transport/ws"
	"go.uber.org/zap"
)

// NewServer creates and configures the HTTP server. It serves the REST API,
// the chat WebSocket and the Prometheus metrics.
func NewServer(svc *service.Service, logger *zap.Logger) *echo.Echo {
	if logger == nil {
		logger = zap.NewNop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(requestLogger(logger))
	e.Use(middleware.Recover())
	e.Use(originGuard)
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOriginFunc: func(origin string) (bool, error) {
			return ws.LocalOrigin(origin), nil
		},
	}))

	// Handlers
	v1Handler := v1.NewHandler(svc)
	wsServer := ws.NewServer(svc, ws.DefaultOptions(), logger.Named("ws"))

	// Register Routes
	v1Handler.RegisterRoutes(e)
	e.GET("/v1/sessions/:session_id/ws", wsServer.HandleWebSocket)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return e
}

// originGuard refuses requests sent by pages served from other hosts.
func originGuard(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if origin := c.Request().Header.Get(echo.HeaderOrigin); !ws.LocalOrigin(origin) {
			return c.JSON(http.StatusForbidden, map[string]string{"error": "cross-origin requests are not allowed"})
		}
		return next(c)
	}
}

func requestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				logger.Warn("request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			logger.Info("request", fields...)
			return nil
		},
	})
}
