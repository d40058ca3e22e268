package domain

import (
	"errors"
	"fmt"
)

// ToolError is a failure with a reason code that can be shown to the model.
type ToolError struct {
	Kind       ErrorKind `json:"error"`
	Message    string    `json:"message"`
	Candidates []string  `json:"candidates,omitempty"`
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewToolError creates a ToolError with a formatted message.
func NewToolError(kind ErrorKind, format string, args ...interface{}) *ToolError {
	return &ToolError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// ValidationError reports malformed or missing arguments.
func ValidationError(format string, args ...interface{}) *ToolError {
	return NewToolError(ErrorKindValidation, format, args...)
}

// NotFoundError reports a missing record.
func NotFoundError(format string, args ...interface{}) *ToolError {
	return NewToolError(ErrorKindNotFound, format, args...)
}

// AmbiguousMatchError reports a human-readable lookup that matched more than
// one record. The candidates are listed so the user can pick one.
func AmbiguousMatchError(query string, candidates []string) *ToolError {
	return &ToolError{
		Kind:       ErrorKindAmbiguousMatch,
		Message:    fmt.Sprintf("%q matches %d contacts; ask the user which one they mean", query, len(candidates)),
		Candidates: candidates,
	}
}

// AsToolError converts any error to a ToolError, defaulting to EXECUTION_ERROR.
func AsToolError(err error) *ToolError {
	if err == nil {
		return nil
	}
	var te *ToolError
	if errors.As(err, &te) {
		return te
	}
	return &ToolError{Kind: ErrorKindExecution, Message: err.Error()}
}
