package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xiaot623/rolo/internal/adapter/llm"
	"github.com/xiaot623/rolo/internal/domain"
	"github.com/xiaot623/rolo/internal/metrics"
	"go.uber.org/zap"
)

// Turn-fatal errors. Tool calls committed before either of them stay
// committed.
var (
	ErrInference    = errors.New("inference endpoint failed")
	ErrIterationCap = errors.New("tool-calling iteration cap reached")
)

// EventHandler receives turn events as they happen. It may be nil.
type EventHandler func(event domain.TurnEvent)

// SendMessage runs one user turn: it calls the model, executes the requested
// tool calls one after another in the order returned, feeds the results back
// and repeats until the model answers in plain text. The returned response is
// non-nil whenever the session exists, including on turn-fatal errors.
func (s *Service) SendMessage(ctx context.Context, sessionID, content string, onEvent EventHandler) (*domain.TurnResponse, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("content is required")
	}
	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	sess.turn.Lock()
	defer sess.turn.Unlock()

	t := &turn{svc: s, sess: sess, onEvent: onEvent}
	t.resp = &domain.TurnResponse{SessionID: sessionID}
	t.appendMessage(ctx, domain.ConversationMessage{Role: domain.RoleUser, Content: content})

	if err := t.run(ctx); err != nil {
		return t.fail(err), err
	}
	metrics.RecordTurn("final_answer")
	return t.resp, nil
}

type turn struct {
	svc     *Service
	sess    *Session
	onEvent EventHandler
	resp    *domain.TurnResponse
}

func (t *turn) run(ctx context.Context) error {
	maxRounds := t.svc.config.MaxToolIterations
	for round := 0; ; round++ {
		if err := t.sess.advance(domain.TurnStateInferencePending); err != nil {
			return err
		}
		reply, err := t.infer(ctx)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInference, err)
		}

		if len(reply.ToolCalls) == 0 {
			if err := t.sess.advance(domain.TurnStateFinalAnswer); err != nil {
				return err
			}
			t.appendMessage(ctx, domain.ConversationMessage{Role: domain.RoleAssistant, Content: reply.Content})
			t.resp.Content = reply.Content
			t.resp.Iterations = round
			t.emit(domain.TurnEvent{Type: domain.EventTypeTurnDone, Content: reply.Content})
			return t.sess.advance(domain.TurnStateAwaitingInput)
		}

		if round >= maxRounds {
			return fmt.Errorf("%w: %d rounds of tool calls without a final answer", ErrIterationCap, maxRounds)
		}

		if err := t.sess.advance(domain.TurnStateToolRequested); err != nil {
			return err
		}
		requests, argErrs := toRequests(reply.ToolCalls)
		t.appendMessage(ctx, domain.ConversationMessage{
			Role:      domain.RoleAssistant,
			Content:   reply.Content,
			ToolCalls: requests,
		})

		for i, req := range requests {
			if err := t.sess.advance(domain.TurnStateToolExecuting); err != nil {
				return err
			}
			t.emit(domain.TurnEvent{Type: domain.EventTypeToolCallCreated, ToolCall: &req})

			var result domain.ToolCallResult
			if argErrs[i] != nil {
				result = domain.Failed(domain.ValidationError("%v", argErrs[i]))
			} else {
				result = t.svc.executor.Execute(ctx, req.Name, req.Arguments)
			}
			t.svc.audit(ctx, t.sess.ID, req.Name, req.Arguments, result)

			t.appendMessage(ctx, domain.ConversationMessage{
				Role:       domain.RoleTool,
				Content:    result.JSON(),
				ToolCallID: req.ID,
				ToolName:   req.Name,
			})
			t.resp.ToolCalls = append(t.resp.ToolCalls, domain.ToolExecution{Request: req, Result: result})
			t.emit(domain.TurnEvent{Type: domain.EventTypeToolResult, ToolCall: &req, Result: &result})

			if err := t.sess.advance(domain.TurnStateResultAppended); err != nil {
				return err
			}
		}
	}
}

// infer sends the session history and the enabled tool schemas to the model.
func (t *turn) infer(ctx context.Context) (*llm.ChatMessage, error) {
	req := &llm.ChatCompletionRequest{
		Model:    t.svc.config.LLMModel,
		Messages: toChatMessages(t.sess.Messages()),
		Tools:    toLLMTools(t.svc.executor.Tools()),
	}

	t.emit(domain.TurnEvent{Type: domain.EventTypeLLMCallStarted})
	start := time.Now()
	resp, err := t.svc.llmClient.CreateChatCompletion(ctx, req)
	latency := time.Since(start)
	metrics.ObserveLLMCall(latency, err)

	done := domain.TurnEvent{Type: domain.EventTypeLLMCallDone, LatencyMs: latency.Milliseconds()}
	if err != nil {
		done.Error = err.Error()
		t.emit(done)
		t.svc.logger.Warn("llm call failed", zap.String("session_id", t.sess.ID), zap.Duration("latency", latency), zap.Error(err))
		return nil, err
	}
	t.emit(done)
	t.svc.logger.Debug("llm call done", zap.String("session_id", t.sess.ID), zap.Duration("latency", latency))

	if len(resp.Choices) == 0 || resp.Choices[0].Message == nil {
		return nil, fmt.Errorf("LLM API returned no choices")
	}
	return resp.Choices[0].Message, nil
}

// fail ends the turn with err and returns the partial response.
func (t *turn) fail(err error) *domain.TurnResponse {
	code := "TURN_FAILED"
	outcome := "failed"
	switch {
	case errors.Is(err, ErrInference):
		code, outcome = "INFERENCE_ERROR", "inference_error"
	case errors.Is(err, ErrIterationCap):
		code, outcome = "ITERATION_CAP", "iteration_cap"
	}
	metrics.RecordTurn(outcome)
	t.svc.logger.Warn("turn failed", zap.String("session_id", t.sess.ID), zap.String("code", code), zap.Error(err))

	t.sess.reset()
	t.resp.Error = &domain.TurnError{Code: code, Message: err.Error()}
	t.emit(domain.TurnEvent{Type: domain.EventTypeTurnFailed, Error: err.Error()})
	return t.resp
}

// appendMessage adds msg to the session history and persists it. A storage
// failure is logged and does not abort the turn.
func (t *turn) appendMessage(ctx context.Context, msg domain.ConversationMessage) {
	t.sess.Append(msg)
	record := &domain.Message{
		MessageID: "msg_" + uuid.New().String(),
		SessionID: t.sess.ID,
		Message:   msg,
		CreatedAt: time.Now().UTC(),
	}
	if err := t.svc.store.CreateMessage(ctx, record); err != nil {
		t.svc.logger.Warn("failed to save message", zap.String("session_id", t.sess.ID), zap.String("role", string(msg.Role)), zap.Error(err))
	}
}

func (t *turn) emit(event domain.TurnEvent) {
	if t.onEvent == nil {
		return
	}
	event.Ts = time.Now().UnixMilli()
	event.SessionID = t.sess.ID
	t.onEvent(event)
}

// audit stores the outcome of a dispatched call.
func (s *Service) audit(ctx context.Context, sessionID, toolName string, args map[string]interface{}, result domain.ToolCallResult) {
	argsJSON, err := json.Marshal(args)
	if err != nil {
		argsJSON = []byte("{}")
	}
	classification, _ := s.executor.Classification(toolName)
	record := &domain.ToolCallRecord{
		ToolCallID:     "tc_" + uuid.New().String(),
		SessionID:      sessionID,
		ToolName:       toolName,
		Classification: classification,
		Args:           argsJSON,
		Success:        result.Success,
		ErrorKind:      result.Error,
		Message:        result.Message,
		BackupID:       result.BackupID,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.store.CreateToolCall(ctx, record); err != nil {
		s.logger.Warn("failed to record tool call", zap.String("tool", toolName), zap.Error(err))
	}
}

// toRequests converts the model's tool calls. Calls without an id get one so
// the tool message can reference it. Arguments that do not decode are
// reported per call instead of failing the turn.
func toRequests(calls []llm.ToolCall) ([]domain.ToolCallRequest, []error) {
	requests := make([]domain.ToolCallRequest, len(calls))
	errs := make([]error, len(calls))
	for i, call := range calls {
		id := call.ID
		if id == "" {
			id = "call_" + uuid.New().String()[:8]
		}
		args, err := call.Function.Arguments.Map()
		if err != nil {
			errs[i] = err
			args = map[string]interface{}{}
		}
		requests[i] = domain.ToolCallRequest{ID: id, Name: call.Function.Name, Arguments: args}
	}
	return requests, errs
}

func toChatMessages(messages []domain.ConversationMessage) []llm.ChatMessage {
	out := make([]llm.ChatMessage, 0, len(messages))
	for _, m := range messages {
		msg := llm.ChatMessage{
			Role:       string(m.Role),
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		}
		if m.Role == domain.RoleTool {
			msg.Name = m.ToolName
		}
		for _, tc := range m.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, llm.ToolCall{
				ID:   tc.ID,
				Type: "function",
				Function: llm.ToolCallFunction{
					Name:      tc.Name,
					Arguments: llm.NewArguments(tc.Arguments),
				},
			})
		}
		out = append(out, msg)
	}
	return out
}

func toLLMTools(schemas []domain.ToolSchema) []llm.Tool {
	out := make([]llm.Tool, 0, len(schemas))
	for _, schema := range schemas {
		out = append(out, llm.Tool{
			Type: "function",
			Function: llm.ToolFunction{
				Name:        schema.Name,
				Description: schema.Description,
				Parameters:  schema.Parameters,
			},
		})
	}
	return out
}
