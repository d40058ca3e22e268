// Package ws streams conversation turns over a WebSocket.
package ws

import "github.com/xiaot623/rolo/internal/domain"

// Message types from client to server
const (
	TypeUserMessage = "user_message"
	TypeCancelTurn  = "cancel_turn"
)

// Message types from server to client
const (
	TypeHelloAck = "hello_ack"
	TypeEvent    = "event"
	TypeDone     = "done"
	TypeError    = "error"
)

// Error codes
const (
	ErrorCodeInvalidMessage  = "invalid_message"
	ErrorCodeTurnInProgress  = "turn_in_progress"
	ErrorCodeSessionNotFound = "session_not_found"
	ErrorCodeTurnFailed      = "turn_failed"
)

// BaseMessage contains common fields for all messages.
type BaseMessage struct {
	Type      string `json:"type"`
	Ts        int64  `json:"ts"`
	RequestID string `json:"request_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// UserMessage starts a turn.
type UserMessage struct {
	BaseMessage
	Content string `json:"content"`
}

// EventMessage carries one turn event.
type EventMessage struct {
	BaseMessage
	Event domain.TurnEvent `json:"event"`
}

// DoneMessage ends a turn, successful or not.
type DoneMessage struct {
	BaseMessage
	Response *domain.TurnResponse `json:"response"`
}

// ErrorMessage reports a request the server could not process.
type ErrorMessage struct {
	BaseMessage
	Code    string `json:"code"`
	Message string `json:"message"`
}
