package domain

import (
	"encoding/json"
	"time"
)

// Property describes one parameter of a tool.
type Property struct {
	Type        string      `json:"type"`
	Description string      `json:"description,omitempty"`
	Default     interface{} `json:"default,omitempty"`
	Enum        []string    `json:"enum,omitempty"`
}

// ParameterSchema is the JSON schema of a tool's arguments.
type ParameterSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required"`
}

// ToolSchema is the machine-readable tool description sent to the model.
type ToolSchema struct {
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	Parameters     ParameterSchema `json:"parameters"`
	Classification Classification  `json:"classification,omitempty"`
}

// ToolCallRequest is a tool invocation requested by the model.
type ToolCallRequest struct {
	ID        string                 `json:"id,omitempty"`
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// ToolCallResult is the only shape a tool invocation ever returns.
type ToolCallResult struct {
	Success  bool        `json:"success"`
	Result   interface{} `json:"result,omitempty"`
	Error    ErrorKind   `json:"error,omitempty"`
	Message  string      `json:"message"`
	BackupID *int64      `json:"backup_id,omitempty"`
}

// JSON renders the result for the tool message content.
func (r ToolCallResult) JSON() string {
	b, err := json.Marshal(r)
	if err != nil {
		fallback, _ := json.Marshal(ToolCallResult{
			Success: false,
			Error:   ErrorKindExecution,
			Message: "result could not be encoded: " + err.Error(),
		})
		return string(fallback)
	}
	return string(b)
}

// Backup is a recoverable snapshot of the contact database.
type Backup struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Comment   string    `json:"comment"`
	IsAuto    bool      `json:"is_auto"`
	Path      string    `json:"path,omitempty"`
}

// ToolCallRecord is the audit entry stored for each dispatched tool call.
type ToolCallRecord struct {
	ToolCallID     string          `json:"tool_call_id"`
	SessionID      string          `json:"session_id"`
	ToolName       string          `json:"tool_name"`
	Classification Classification  `json:"classification,omitempty"`
	Args           json.RawMessage `json:"args"`
	Success        bool            `json:"success"`
	ErrorKind      ErrorKind       `json:"error,omitempty"`
	Message        string          `json:"message"`
	BackupID       *int64          `json:"backup_id,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}
