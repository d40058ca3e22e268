// Package dispatch routes tool calls requested by the model through policy,
// confirmation, SQL screening and backups before any handler runs, and turns
// every outcome into a domain.ToolCallResult.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/xiaot623/rolo/internal/domain"
	"github.com/xiaot623/rolo/internal/metrics"
	"github.com/xiaot623/rolo/internal/repository"
	"github.com/xiaot623/rolo/internal/sqlguard"
	"github.com/xiaot623/rolo/internal/tools"
	"github.com/xiaot623/rolo/policy"
	"go.uber.org/zap"
)

// PolicyEvaluator decides whether a call may run.
type PolicyEvaluator interface {
	Evaluate(ctx context.Context, in policy.Input) (policy.Decision, error)
}

// Options configures a Dispatcher.
type Options struct {
	Retention int
}

type route func(ctx context.Context, tool *tools.Tool, args map[string]interface{}) domain.ToolCallResult

// Dispatcher executes tool calls.
type Dispatcher struct {
	registry *tools.Registry
	policy   PolicyEvaluator
	safety   *SafetyWrapper
	routes   map[domain.Classification]route
	logger   *zap.Logger
}

// New freezes registry and builds the routing table. policy may be nil, in
// which case only the built-in SQL confirmation applies.
func New(registry *tools.Registry, backups store.BackupStore, evaluator PolicyEvaluator, opts Options, logger *zap.Logger) (*Dispatcher, error) {
	if registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if backups == nil {
		return nil, fmt.Errorf("backup store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := registry.Freeze(); err != nil {
		return nil, err
	}

	d := &Dispatcher{
		registry: registry,
		policy:   evaluator,
		safety:   NewSafetyWrapper(backups, opts.Retention, logger),
		logger:   logger,
	}
	d.routes = map[domain.Classification]route{
		domain.ClassificationRead:        d.routeRead,
		domain.ClassificationWrite:       d.routeWrite,
		domain.ClassificationDestructive: d.routeWrite,
		domain.ClassificationSQL:         d.routeSQL,
	}
	return d, nil
}

// Tools returns the schemas of the enabled tools.
func (d *Dispatcher) Tools() []domain.ToolSchema {
	return d.registry.SchemaForPrompt()
}

// Classification returns the classification of an enabled tool.
func (d *Dispatcher) Classification(name string) (domain.Classification, bool) {
	tool, ok := d.registry.Lookup(name)
	if !ok {
		return "", false
	}
	return tool.Classification, true
}

// Execute runs one tool call. It never panics and never returns a raw error.
func (d *Dispatcher) Execute(ctx context.Context, name string, args map[string]interface{}) (result domain.ToolCallResult) {
	start := time.Now()
	label := "unknown"
	class := domain.Classification("")
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("tool dispatch panicked", zap.String("tool", name), zap.Any("panic", r))
			result = domain.Failed(domain.NewToolError(domain.ErrorKindExecution, "tool panicked: %v", r))
		}
		outcome := "success"
		if !result.Success {
			outcome = string(result.Error)
		}
		metrics.RecordToolCall(label, string(class), outcome)
		d.logger.Info("tool call",
			zap.String("tool", name),
			zap.String("classification", string(class)),
			zap.String("outcome", outcome),
			zap.Duration("elapsed", time.Since(start)),
		)
	}()

	tool, ok := d.registry.Lookup(name)
	if !ok {
		return domain.Failed(domain.ValidationError("unknown tool: %s", name))
	}
	label, class = tool.Name, tool.Classification

	normalized, err := tools.Normalize(tool.Parameters, args)
	if err != nil {
		return domain.Failed(err)
	}

	rt, ok := d.routes[tool.Classification]
	if !ok {
		return domain.Failed(domain.ValidationError("tool %s has no route for %s", name, tool.Classification))
	}
	return rt(ctx, tool, normalized)
}

func (d *Dispatcher) routeRead(ctx context.Context, tool *tools.Tool, args map[string]interface{}) domain.ToolCallResult {
	if denied := d.authorize(ctx, tool, args, false); denied != nil {
		return *denied
	}
	call, err := tool.Handler.Bind(args)
	if err != nil {
		return domain.Failed(err)
	}
	return d.direct(ctx, tool.Name, call)
}

func (d *Dispatcher) routeWrite(ctx context.Context, tool *tools.Tool, args map[string]interface{}) domain.ToolCallResult {
	if denied := d.authorize(ctx, tool, args, true); denied != nil {
		return *denied
	}
	call, err := tool.Handler.Bind(args)
	if err != nil {
		return domain.Failed(err)
	}
	return d.safety.Run(ctx, tool.Name, call)
}

func (d *Dispatcher) routeSQL(ctx context.Context, tool *tools.Tool, args map[string]interface{}) domain.ToolCallResult {
	// Raw SQL always needs confirmation, whatever the policy says.
	if denied := gate(tool.Name, "raw SQL needs explicit confirmation", args); denied != nil {
		return *denied
	}

	query, _ := args[tools.ArgSQL].(string)
	if err := sqlguard.Validate(query); err != nil {
		d.logger.Warn("sql rejected", zap.String("tool", tool.Name), zap.Error(err))
		return domain.Failed(err)
	}
	mutates := !sqlguard.IsReadOnly(query)

	if denied := d.authorize(ctx, tool, args, mutates); denied != nil {
		return *denied
	}
	call, err := tool.Handler.Bind(args)
	if err != nil {
		return domain.Failed(err)
	}
	if mutates {
		return d.safety.Run(ctx, tool.Name, call)
	}
	return d.direct(ctx, tool.Name, call)
}

// authorize consults the policy. A policy that cannot be evaluated blocks the
// call.
func (d *Dispatcher) authorize(ctx context.Context, tool *tools.Tool, args map[string]interface{}, mutates bool) *domain.ToolCallResult {
	if d.policy == nil {
		return nil
	}
	decision, err := d.policy.Evaluate(ctx, policy.Input{
		ToolName:       tool.Name,
		Classification: tool.Classification,
		Mutates:        mutates,
		Args:           args,
	})
	if err != nil {
		d.logger.Error("policy evaluation failed", zap.String("tool", tool.Name), zap.Error(err))
		r := domain.Failed(domain.NewToolError(domain.ErrorKindExecution, "policy evaluation failed: %v", err))
		return &r
	}

	switch decision.Action {
	case policy.ActionBlock:
		r := domain.Failed(domain.NewToolError(domain.ErrorKindSafetyRejected, "%s blocked: %s", tool.Name, decision.Reason))
		return &r
	case policy.ActionRequireConfirmation:
		return gate(tool.Name, decision.Reason, args)
	}
	return nil
}

func (d *Dispatcher) direct(ctx context.Context, name string, call tools.Call) domain.ToolCallResult {
	value, err := invoke(ctx, call)
	if err != nil {
		return domain.Failed(err)
	}
	return domain.Succeeded(value, name+" succeeded")
}
