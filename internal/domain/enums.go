// Package domain defines the core domain models for rolo.
package domain

// Classification tags a tool with the kind of access its handler needs.
// It is metadata on the tool and drives routing in the dispatcher.
type Classification string

const (
	ClassificationRead        Classification = "READ"
	ClassificationWrite       Classification = "WRITE"
	ClassificationSQL         Classification = "SQL"
	ClassificationDestructive Classification = "DESTRUCTIVE"
)

// Valid reports whether c is one of the known classifications.
func (c Classification) Valid() bool {
	switch c {
	case ClassificationRead, ClassificationWrite, ClassificationSQL, ClassificationDestructive:
		return true
	}
	return false
}

// Mutating reports whether tools of this classification always change state.
// SQL is decided per statement.
func (c Classification) Mutating() bool {
	return c == ClassificationWrite || c == ClassificationDestructive
}

// ErrorKind is the machine-readable reason code of a failed tool call.
type ErrorKind string

const (
	ErrorKindValidation           ErrorKind = "VALIDATION_ERROR"
	ErrorKindConfirmationRequired ErrorKind = "CONFIRMATION_REQUIRED"
	ErrorKindNotFound             ErrorKind = "NOT_FOUND"
	ErrorKindAmbiguousMatch       ErrorKind = "AMBIGUOUS_MATCH"
	ErrorKindExecution            ErrorKind = "EXECUTION_ERROR"
	ErrorKindSafetyRejected       ErrorKind = "SAFETY_REJECTED"
)

// Role is the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// TurnState is the state of a conversation session.
type TurnState string

const (
	TurnStateAwaitingInput    TurnState = "AWAITING_INPUT"
	TurnStateInferencePending TurnState = "INFERENCE_PENDING"
	TurnStateToolRequested    TurnState = "TOOL_REQUESTED"
	TurnStateToolExecuting    TurnState = "TOOL_EXECUTING"
	TurnStateResultAppended   TurnState = "RESULT_APPENDED"
	TurnStateFinalAnswer      TurnState = "FINAL_ANSWER"
)

// EventType represents the type of a turn event.
type EventType string

const (
	EventTypeLLMCallStarted  EventType = "llm_call_started"
	EventTypeLLMCallDone     EventType = "llm_call_done"
	EventTypeToolCallCreated EventType = "tool_call_created"
	EventTypeToolResult      EventType = "tool_result"
	EventTypeTurnDone        EventType = "turn_done"
	EventTypeTurnFailed      EventType = "turn_failed"
)
