package domain

// CreateSessionRequest represents the request to open a conversation.
type CreateSessionRequest struct {
	SessionID string `json:"session_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
}

// CreateSessionResponse represents the response after opening a conversation.
type CreateSessionResponse struct {
	SessionID string `json:"session_id"`
}

// SendMessageRequest represents a user turn.
type SendMessageRequest struct {
	Content string `json:"content"`
}

// TurnResponse represents the outcome of a user turn.
type TurnResponse struct {
	SessionID  string          `json:"session_id"`
	Content    string          `json:"content"`
	ToolCalls  []ToolExecution `json:"tool_calls,omitempty"`
	Iterations int             `json:"iterations"`
	Error      *TurnError      `json:"error,omitempty"`
}

// ToolExecution pairs a requested call with its result.
type ToolExecution struct {
	Request ToolCallRequest `json:"request"`
	Result  ToolCallResult  `json:"result"`
}

// TurnError is a turn-fatal failure.
type TurnError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ToolInvokeRequest represents the request to invoke a tool directly.
type ToolInvokeRequest struct {
	SessionID string                 `json:"session_id,omitempty"`
	Args      map[string]interface{} `json:"args"`
}

// ListToolsResponse represents the response for listing tools.
type ListToolsResponse struct {
	Tools []ToolSchema `json:"tools"`
}

// ListBackupsResponse represents the response for listing backups.
type ListBackupsResponse struct {
	Backups []Backup `json:"backups"`
}

// ListMessagesResponse represents the conversation history of a session.
type ListMessagesResponse struct {
	Messages []Message `json:"messages"`
}

// ListToolCallsResponse represents the tool call audit of a session.
type ListToolCallsResponse struct {
	ToolCalls []ToolCallRecord `json:"tool_calls"`
}
