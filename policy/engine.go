// Package policy decides, per tool call, whether a call may run, needs the
// user's confirmation or is blocked. Decisions come from a Rego policy.
package policy

import (
	"context"
	"fmt"
	"os"

	"github.com/open-policy-agent/opa/v1/rego"
	"github.com/xiaot623/rolo/internal/domain"
)

// Action is the outcome of a policy evaluation.
type Action string

const (
	ActionAllow               Action = "allow"
	ActionRequireConfirmation Action = "require_confirmation"
	ActionBlock               Action = "block"
)

// Decision is a policy verdict with a human-readable reason.
type Decision struct {
	Action Action
	Reason string
}

// Settings are the configuration switches visible to the policy.
type Settings struct {
	ReadOnly           bool
	ConfirmDestructive bool
}

// Input describes one tool call.
type Input struct {
	ToolName       string
	Classification domain.Classification
	Mutates        bool
	Args           map[string]interface{}
}

// Engine is the OPA policy engine.
type Engine struct {
	query    rego.PreparedEvalQuery
	settings Settings
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string, settings Settings) (*Engine, error) {
	r := rego.New(
		rego.Query("data.rolo.tool_policy"),
		rego.Module("tool_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query, settings: settings}, nil
}

// LoadEngine reads the policy from path, or uses DefaultPolicy when path is
// empty.
func LoadEngine(ctx context.Context, path string, settings Settings) (*Engine, error) {
	content := DefaultPolicy
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read policy file: %w", err)
		}
		content = string(b)
	}
	return NewEngine(ctx, content, settings)
}

// Evaluate checks the tool policy.
func (e *Engine) Evaluate(ctx context.Context, in Input) (Decision, error) {
	args := in.Args
	if args == nil {
		args = map[string]interface{}{}
	}
	input := map[string]interface{}{
		"tool_name":      in.ToolName,
		"classification": string(in.Classification),
		"mutates":        in.Mutates,
		"args":           args,
		"settings": map[string]interface{}{
			"read_only":           e.settings.ReadOnly,
			"confirm_destructive": e.settings.ConfirmDestructive,
		},
	}

	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return Decision{}, fmt.Errorf("failed to evaluate policy: %w", err)
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return Decision{}, fmt.Errorf("policy produced no decision")
	}

	obj, ok := results[0].Expressions[0].Value.(map[string]interface{})
	if !ok {
		return Decision{}, fmt.Errorf("unexpected policy result %T", results[0].Expressions[0].Value)
	}
	action, _ := obj["decision"].(string)
	reason, _ := obj["reason"].(string)

	switch Action(action) {
	case ActionAllow, ActionRequireConfirmation, ActionBlock:
		return Decision{Action: Action(action), Reason: reason}, nil
	}
	return Decision{}, fmt.Errorf("unknown policy decision %q", action)
}

// DefaultPolicy is the default policy content. Raw SQL always needs
// confirmation regardless of what a policy says; the rule here only makes the
// reason visible.
const DefaultPolicy = `
package rolo

default tool_policy := {"decision": "allow", "reason": "default"}

tool_policy := {"decision": "block", "reason": "rolo is running in read-only mode"} if {
	input.mutates
	input.settings.read_only
} else := {"decision": "require_confirmation", "reason": "raw SQL needs explicit confirmation"} if {
	input.classification == "SQL"
} else := {"decision": "require_confirmation", "reason": "destructive operations need explicit confirmation"} if {
	input.classification == "DESTRUCTIVE"
	input.settings.confirm_destructive
}
`
