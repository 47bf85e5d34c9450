package pipeline

import (
	"fmt"
	"sort"
	"sync"

	"github.com/foundryrun/harvest/pkg/core"
)

// ToolFactory constructs a fresh Tool instance given the process
// config; tools that need no per-invocation arguments beyond config
// (every shipped example tool) fit this shape directly.
type ToolFactory func(cfg *core.Config) core.Tool

// Registry maps config-recognized tool names to factories, so a driver
// binary can build its initial queue from a config-driven list of tool
// names rather than a hardcoded Go literal. Grounded in
// pkg/agent/registry.go's mutex-protected name -> constructor map
// pattern from the teacher, generalized from "skills" to "tools".
type Registry struct {
	mu        sync.RWMutex
	factories map[string]ToolFactory
	order     []string
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{factories: map[string]ToolFactory{}}
}

// Register adds a factory under name, overwriting any previous
// registration with that name without disturbing its position in
// Names().
func (r *Registry) Register(name string, factory ToolFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[name]; !exists {
		r.order = append(r.order, name)
	}
	r.factories[name] = factory
}

// Build constructs one tool per name in want, in the order of want,
// using cfg. Returns an error naming the first name in want that isn't
// registered.
func (r *Registry) Build(cfg *core.Config, want []string) ([]core.Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]core.Tool, 0, len(want))
	for _, name := range want {
		factory, ok := r.factories[name]
		if !ok {
			return nil, fmt.Errorf("pipeline: unknown tool %q", name)
		}
		tools = append(tools, factory(cfg))
	}
	return tools, nil
}

// Names returns every registered tool name, in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// SortedNames returns every registered tool name in lexical order.
func (r *Registry) SortedNames() []string {
	names := r.Names()
	sort.Strings(names)
	return names
}
