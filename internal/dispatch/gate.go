package dispatch

import (
	"github.com/xiaot623/rolo/internal/domain"
	"github.com/xiaot623/rolo/internal/tools"
)

// confirmed reports whether the call carries confirm set to the JSON value
// true. Strings such as "true" or "yes" do not count.
func confirmed(args map[string]interface{}) bool {
	v, ok := args[tools.ArgConfirm].(bool)
	return ok && v
}

// gate returns nil when the call may proceed, or a CONFIRMATION_REQUIRED
// result otherwise.
func gate(toolName, reason string, args map[string]interface{}) *domain.ToolCallResult {
	if confirmed(args) {
		return nil
	}
	if reason == "" {
		reason = "this operation needs explicit confirmation"
	}
	r := domain.Failed(domain.NewToolError(domain.ErrorKindConfirmationRequired,
		"%s: %s. Ask the user to confirm, then call %s again with confirm=true",
		toolName, reason, toolName))
	return &r
}
