package tools

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/xiaot623/rolo/internal/domain"
)

// Registry stores tools keyed by name. Once frozen it no longer accepts
// registrations, so the catalog cannot change during a conversation.
type Registry struct {
	mu       sync.RWMutex
	tools    map[string]*Tool
	order    []string
	enabled  map[string]bool
	disabled map[string]bool
	frozen   bool
}

// NewRegistry creates an empty registry. enabled is an allow-list (empty
// means every tool); disabled is a deny-list applied after it.
func NewRegistry(enabled, disabled []string) *Registry {
	return &Registry{
		tools:    make(map[string]*Tool),
		enabled:  nameSet(enabled),
		disabled: nameSet(disabled),
	}
}

// Register adds a tool.
func (r *Registry) Register(tool Tool) error {
	if tool.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if tool.Handler == nil {
		return fmt.Errorf("handler is required for %s", tool.Name)
	}
	if !tool.Classification.Valid() {
		return fmt.Errorf("invalid classification %q for %s", tool.Classification, tool.Name)
	}
	if tool.Parameters.Type == "" {
		tool.Parameters.Type = "object"
	}
	if tool.Parameters.Properties == nil {
		tool.Parameters.Properties = map[string]domain.Property{}
	}
	if tool.Parameters.Required == nil {
		tool.Parameters.Required = []string{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return fmt.Errorf("registry is frozen, cannot register %s", tool.Name)
	}
	if _, exists := r.tools[tool.Name]; exists {
		return fmt.Errorf("tool already registered: %s", tool.Name)
	}
	r.tools[tool.Name] = &tool
	r.order = append(r.order, tool.Name)
	return nil
}

// MustRegister adds a tool or panics.
func (r *Registry) MustRegister(tool Tool) {
	if err := r.Register(tool); err != nil {
		panic(err)
	}
}

// Freeze stops further registration. It fails if the enabled or disabled
// lists name a tool that was never registered.
func (r *Registry) Freeze() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true

	var unknown []string
	for _, set := range []map[string]bool{r.enabled, r.disabled} {
		for name := range set {
			if _, ok := r.tools[name]; !ok {
				unknown = append(unknown, name)
			}
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("unknown tools in configuration: %s", strings.Join(unknown, ", "))
	}
	return nil
}

// Frozen reports whether Freeze was called.
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}

// Lookup returns an enabled tool by name.
func (r *Registry) Lookup(name string) (*Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	if !ok || !r.isEnabled(name) {
		return nil, false
	}
	return tool, true
}

// Enabled returns the enabled tools in registration order.
func (r *Registry) Enabled() []*Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Tool, 0, len(r.order))
	for _, name := range r.order {
		if r.isEnabled(name) {
			out = append(out, r.tools[name])
		}
	}
	return out
}

// SchemaForPrompt renders the schemas of the enabled tools.
func (r *Registry) SchemaForPrompt() []domain.ToolSchema {
	enabled := r.Enabled()
	schemas := make([]domain.ToolSchema, 0, len(enabled))
	for _, t := range enabled {
		schemas = append(schemas, t.Schema())
	}
	return schemas
}

func (r *Registry) isEnabled(name string) bool {
	if len(r.enabled) > 0 && !r.enabled[name] {
		return false
	}
	return !r.disabled[name]
}

func nameSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			set[n] = true
		}
	}
	return set
}
