package llm

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockClient is a mock implementation of LLMClient. Scripted replies are
// returned in order; once they run out it echoes the conversation.
type MockClient struct {
	mu       sync.Mutex
	script   []MockReply
	requests []ChatCompletionRequest
}

// MockReply is one scripted completion. A non-nil Err is returned instead of
// a response.
type MockReply struct {
	Content   string
	ToolCalls []ToolCall
	Err       error
}

// NewMockClient creates a new mock LLM client.
func NewMockClient(script ...MockReply) *MockClient {
	return &MockClient{script: script}
}

// Ensure MockClient implements LLMClient interface.
var _ LLMClient = (*MockClient)(nil)

// MockToolCall builds a scripted tool call.
func MockToolCall(id, name string, args map[string]interface{}) ToolCall {
	return ToolCall{
		ID:   id,
		Type: "function",
		Function: ToolCallFunction{
			Name:      name,
			Arguments: NewArguments(args),
		},
	}
}

// Requests returns copies of the requests received so far.
func (m *MockClient) Requests() []ChatCompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ChatCompletionRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// CreateChatCompletion returns the next scripted reply.
func (m *MockClient) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	recorded := *req
	recorded.Messages = append([]ChatMessage(nil), req.Messages...)
	m.requests = append(m.requests, recorded)
	var reply MockReply
	if len(m.script) > 0 {
		reply = m.script[0]
		m.script = m.script[1:]
	} else {
		reply = MockReply{Content: m.generateMockResponse(req)}
	}
	m.mu.Unlock()

	if reply.Err != nil {
		return nil, reply.Err
	}

	finish := "stop"
	if len(reply.ToolCalls) > 0 {
		finish = "tool_calls"
	}
	return &ChatCompletionResponse{
		ID:      fmt.Sprintf("mock-chatcmpl-%d", time.Now().UnixNano()),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []Choice{
			{
				Index: 0,
				Message: &ChatMessage{
					Role:      "assistant",
					Content:   reply.Content,
					ToolCalls: reply.ToolCalls,
				},
				FinishReason: finish,
			},
		},
		Usage: &Usage{
			PromptTokens:     m.estimateTokens(req),
			CompletionTokens: len(reply.Content) / 4,
			TotalTokens:      m.estimateTokens(req) + len(reply.Content)/4,
		},
	}, nil
}

// ListModels returns a list of mock models.
func (m *MockClient) ListModels(ctx context.Context) ([]Model, error) {
	return []Model{
		{
			ID:      "mock-llama",
			Object:  "model",
			Created: time.Now().Unix(),
			OwnedBy: "mock",
		},
	}, nil
}

// generateMockResponse generates a mock response based on the request.
func (m *MockClient) generateMockResponse(req *ChatCompletionRequest) string {
	if n := len(req.Messages); n > 0 && req.Messages[n-1].Role == "tool" {
		return fmt.Sprintf("[MOCK] The tool returned: %s", truncate(req.Messages[n-1].Content, 200))
	}

	var lastUserMessage string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			lastUserMessage = req.Messages[i].Content
			break
		}
	}
	if lastUserMessage == "" {
		return "[MOCK] This is a mock response from the LLM client."
	}
	return fmt.Sprintf("[MOCK] Received your message: %q. This is a mock response.", truncate(lastUserMessage, 100))
}

// estimateTokens provides a rough token count estimate.
func (m *MockClient) estimateTokens(req *ChatCompletionRequest) int {
	total := 0
	for _, msg := range req.Messages {
		total += len(msg.Content) / 4
	}
	return total
}

// truncate truncates a string to the given length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
