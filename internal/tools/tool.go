// Package tools holds the catalog of operations the conversational model may
// invoke, their parameter schemas and their handlers.
package tools

import (
	"context"

	"github.com/xiaot623/rolo/internal/domain"
)

// Argument names the dispatcher reads directly.
const (
	ArgConfirm = "confirm"
	ArgSQL     = "sql"
)

// Call runs a tool whose arguments have already been bound.
type Call func(ctx context.Context) (interface{}, error)

// Handler binds validated arguments to an executable call. Binding must not
// touch the database, so argument errors surface before any backup is taken.
type Handler interface {
	Bind(args map[string]interface{}) (Call, error)
}

// Tool is a registered operation.
type Tool struct {
	Name           string
	Description    string
	Parameters     domain.ParameterSchema
	Classification domain.Classification
	Handler        Handler
}

// Schema returns the machine-readable description sent to the model.
func (t *Tool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:           t.Name,
		Description:    t.Description,
		Parameters:     t.Parameters,
		Classification: t.Classification,
	}
}
