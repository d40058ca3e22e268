package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	httpserver "github.com/xiaot623/rolo/internal/transport/http"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the local HTTP and WebSocket API",
	Long: `Starts the local API used by chat front-ends:

  GET  /v1/tools                          list enabled tools
  POST /v1/tools/:tool_name/invoke        run one tool
  POST /v1/sessions                       open a conversation
  POST /v1/sessions/:session_id/messages  run one user turn
  GET  /v1/sessions/:session_id/ws        stream turns over a WebSocket
  GET  /v1/backups                        list backups
  GET  /metrics                           Prometheus metrics`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default 127.0.0.1:<http_port>)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	addr := serveAddr
	if addr == "" {
		addr = fmt.Sprintf("127.0.0.1:%d", cfg.HTTPPort)
	}
	e := httpserver.NewServer(a.svc, logger.Named("http"))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("rolo API started", zap.String("addr", addr), zap.String("llm_url", cfg.LLMURL), zap.String("model", cfg.LLMModel))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down rolo API")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shutdown server gracefully: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("rolo API stopped")
	return nil
}
