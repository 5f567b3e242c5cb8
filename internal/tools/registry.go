package tools

import (
	"sort"
	"sync"

	"minerva/pkg/errors"
)

// Registry stores tools by name for discovery and lookup. Registration is
// explicit: a duplicate name is an error, never a silent overwrite.
type Registry struct {
	tools map[string]Tool
	mu    sync.RWMutex
}

// NewRegistry constructs an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool under its declared name.
func (r *Registry) Register(t Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := t.Name()
	if _, exists := r.tools[name]; exists {
		return errors.Wrapf(errors.ErrAlreadyExists, "tool '%s' is already registered", name)
	}
	r.tools[name] = t

	return nil
}

// RegisterAll registers every tool, stopping at the first duplicate.
func (r *Registry) RegisterAll(ts ...Tool) error {
	for _, t := range ts {
		if err := r.Register(t); err != nil {
			return err
		}
	}
	return nil
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tools[name]
	if !ok {
		return nil, errors.Wrapf(errors.ErrToolNotFound, "tool '%s'", name)
	}

	return t, nil
}

// Unregister removes a tool, reporting whether it was present.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.tools[name]
	delete(r.tools, name)

	return ok
}

// List returns the sorted names of all registered tools.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// All returns a copy of the registered tools keyed by name.
func (r *Registry) All() map[string]Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]Tool, len(r.tools))
	for name, t := range r.tools {
		out[name] = t
	}

	return out
}

// Schemas returns the declared schemas of all tools, sorted by name.
// This is the catalog exposed to an LLM for tool selection.
func (r *Registry) Schemas() []Schema {
	r.mu.RLock()
	defer r.mu.RUnlock()

	schemas := make([]Schema, 0, len(r.tools))
	for _, t := range r.tools {
		schemas = append(schemas, t.Schema())
	}
	sort.Slice(schemas, func(i, j int) bool { return schemas[i].Name < schemas[j].Name })

	return schemas
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.tools)
}

// Clear removes all registered tools.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tools = make(map[string]Tool)
}
