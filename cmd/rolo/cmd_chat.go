package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"github.com/xiaot623/rolo/internal/domain"
	"github.com/xiaot623/rolo/internal/transport/ws"
)

var (
	chatSession string
	chatRemote  string
	chatVerbose bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to your contacts through the local language model",
	Long: `Starts an interactive conversation. Every tool the model calls is printed
as it runs. Type /quit to leave.

With --remote the conversation runs on a "rolo serve" instance, e.g.
  rolo chat --remote ws://127.0.0.1:8765`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatSession, "session", "s", "", "resume a session by id")
	chatCmd.Flags().StringVar(&chatRemote, "remote", "", "base WebSocket URL of a rolo server")
	chatCmd.Flags().BoolVarP(&chatVerbose, "verbose", "v", false, "print model call timings")
}

// turnFunc runs one user turn and reports events as they arrive.
type turnFunc func(ctx context.Context, content string, onEvent func(domain.TurnEvent)) (*domain.TurnResponse, error)

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if chatRemote != "" {
		return runRemoteChat(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
	}

	a, err := openApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	resp, err := a.svc.CreateSession(ctx, domain.CreateSessionRequest{SessionID: chatSession})
	if err != nil {
		return err
	}
	sessionID := resp.SessionID
	fmt.Fprintf(cmd.OutOrStdout(), "rolo chat (session %s, model %s). Type /quit to leave.\n", sessionID, cfg.LLMModel)

	return chatLoop(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), func(ctx context.Context, content string, onEvent func(domain.TurnEvent)) (*domain.TurnResponse, error) {
		return a.svc.SendMessage(ctx, sessionID, content, onEvent)
	})
}

func runRemoteChat(ctx context.Context, in io.Reader, out io.Writer) error {
	sessionID := chatSession
	if sessionID == "" {
		sessionID = fmt.Sprintf("cli_%d", os.Getpid())
	}
	addr := strings.TrimRight(chatRemote, "/") + "/v1/sessions/" + url.PathEscape(sessionID) + "/ws"

	client, err := ws.Dial(ctx, addr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	defer client.Close()
	fmt.Fprintf(out, "Connected to %s (session %s). Type /quit to leave.\n", chatRemote, client.SessionID())

	return chatLoop(ctx, in, out, func(ctx context.Context, content string, onEvent func(domain.TurnEvent)) (*domain.TurnResponse, error) {
		done := make(chan struct{})
		defer close(done)
		go func() {
			select {
			case <-ctx.Done():
				_ = client.Cancel()
			case <-done:
			}
		}()
		return client.Send(content, onEvent)
	})
}

// chatLoop reads lines from in until EOF or /quit. Ctrl-C cancels the running
// turn only.
func chatLoop(ctx context.Context, in io.Reader, out io.Writer, run turnFunc) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "\n> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		}

		turnCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
		resp, err := run(turnCtx, line, func(e domain.TurnEvent) { printEvent(out, e) })
		stop()

		if err != nil {
			fmt.Fprintf(out, "! %v\n", err)
			continue
		}
		fmt.Fprintln(out, resp.Content)
	}
}

func printEvent(out io.Writer, e domain.TurnEvent) {
	switch e.Type {
	case domain.EventTypeToolCallCreated:
		if e.ToolCall != nil {
			args, _ := json.Marshal(e.ToolCall.Arguments)
			fmt.Fprintf(out, "  -> %s %s\n", e.ToolCall.Name, args)
		}
	case domain.EventTypeToolResult:
		if e.Result == nil {
			return
		}
		status := "ok"
		if !e.Result.Success {
			status = string(e.Result.Error)
		}
		line := fmt.Sprintf("  <- %s: %s", status, e.Result.Message)
		if e.Result.BackupID != nil {
			line += fmt.Sprintf(" (backup %d)", *e.Result.BackupID)
		}
		fmt.Fprintln(out, line)
	case domain.EventTypeLLMCallDone:
		if chatVerbose {
			fmt.Fprintf(out, "  (model %dms)\n", e.LatencyMs)
		}
	}
}
