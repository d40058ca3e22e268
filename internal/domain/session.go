package domain

import (
	"encoding/json"
	"time"
)

// Session represents a persisted conversation.
type Session struct {
	SessionID string          `json:"session_id"`
	UserID    string          `json:"user_id"`
	CreatedAt time.Time       `json:"created_at"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
}

// ConversationMessage is one entry of a conversation history.
type ConversationMessage struct {
	Role       Role              `json:"role"`
	Content    string            `json:"content"`
	ToolCalls  []ToolCallRequest `json:"tool_calls,omitempty"`
	ToolCallID string            `json:"tool_call_id,omitempty"`
	ToolName   string            `json:"tool_name,omitempty"`
}

// Message is a persisted conversation message.
type Message struct {
	MessageID string              `json:"message_id"`
	SessionID string              `json:"session_id"`
	Message   ConversationMessage `json:"message"`
	CreatedAt time.Time           `json:"created_at"`
}

// TurnEvent is emitted while a turn is processed.
type TurnEvent struct {
	Type      EventType        `json:"type"`
	Ts        int64            `json:"ts"`
	SessionID string           `json:"session_id"`
	ToolCall  *ToolCallRequest `json:"tool_call,omitempty"`
	Result    *ToolCallResult  `json:"result,omitempty"`
	Content   string           `json:"content,omitempty"`
	Error     string           `json:"error,omitempty"`
	LatencyMs int64            `json:"latency_ms,omitempty"`
}
