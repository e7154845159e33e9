package tool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aden-hq/hive/internal/types"
)

// Metrics tracks execution statistics for a single tool.
type Metrics struct {
	Calls       int64         `json:"calls"`
	Failures    int64         `json:"failures"`
	LastLatency time.Duration `json:"last_latency"`
}

// Registry manages tool registration, discovery, and execution. It is safe
// for concurrent use across runs; registration happens at startup and the
// registry is read-only while runs execute.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]Tool
	metrics map[string]*Metrics
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:   make(map[string]Tool),
		metrics: make(map[string]*Metrics),
	}
}

// Register adds a tool under its own name.
// Returns TOOL_ALREADY_EXISTS if the name is taken.
func (r *Registry) Register(t Tool) error {
	if t == nil {
		return types.NewError(types.TOOL_INVALID_INPUT, "tool cannot be nil")
	}
	name := t.Name()
	if name == "" {
		return types.NewError(types.TOOL_INVALID_INPUT, "tool name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; exists {
		return types.NewError(types.TOOL_ALREADY_EXISTS,
			fmt.Sprintf("tool %q already registered", name))
	}
	r.tools[name] = t
	r.metrics[name] = &Metrics{}
	return nil
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	if !ok {
		return nil, types.NewError(types.TOOL_NOT_FOUND,
			fmt.Sprintf("tool %q is not registered", name))
	}
	return t, nil
}

// List returns descriptors for all registered tools.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, Descriptor{
			Name:        t.Name(),
			Description: t.Description(),
			Credentials: t.Credentials(),
		})
	}
	return out
}

// Execute runs a tool by name with the given input, recording metrics.
// Lookup failures and execution failures both come back as classified
// Hive errors.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (map[string]any, error) {
	t, err := r.Get(name)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	out, err := t.Execute(ctx, args)
	latency := time.Since(start)

	r.mu.Lock()
	if m := r.metrics[name]; m != nil {
		m.Calls++
		m.LastLatency = latency
		if err != nil {
			m.Failures++
		}
	}
	r.mu.Unlock()

	if err != nil {
		var hiveErr *types.HiveError
		if asHiveError(err, &hiveErr) {
			return nil, err
		}
		return nil, types.WrapError(types.TOOL_EXECUTION_FAILED,
			fmt.Sprintf("tool %q failed", name), err)
	}
	return out, nil
}

// Metrics returns execution metrics for a specific tool.
func (r *Registry) Metrics(name string) (Metrics, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.metrics[name]
	if !ok {
		return Metrics{}, types.NewError(types.TOOL_NOT_FOUND,
			fmt.Sprintf("tool %q is not registered", name))
	}
	return *m, nil
}
