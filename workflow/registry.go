package workflow

import (
	"fmt"
	"sync"

	"github.com/campushub/concierge"
)

// Registry maps workflow type names to definitions. It is populated
// once during startup and read-only thereafter; the lock exists so that
// registration and lookup remain safe if wiring happens concurrently.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]*Definition
}

// NewRegistry creates an empty workflow registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Definition)}
}

// Register adds a definition. Fails with
// concierge.ErrDuplicateWorkflowType if the type is already registered,
// and rejects definitions with an empty type or no steps.
func (r *Registry) Register(def *Definition) error {
	if def.Type == "" {
		return fmt.Errorf("workflow: register definition with empty type")
	}
	if len(def.Steps) == 0 {
		return fmt.Errorf("workflow: definition %q has no steps", def.Type)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.defs[def.Type]; exists {
		return fmt.Errorf("%w: %q", concierge.ErrDuplicateWorkflowType, def.Type)
	}
	r.defs[def.Type] = def
	return nil
}

// MustRegister is like Register but panics on error. Use during startup
// wiring where a duplicate registration is a programming error.
func (r *Registry) MustRegister(def *Definition) {
	if err := r.Register(def); err != nil {
		panic(err)
	}
}

// Lookup returns the definition for the given type, or
// concierge.ErrUnknownWorkflowType if none is registered.
func (r *Registry) Lookup(wfType string) (*Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.defs[wfType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", concierge.ErrUnknownWorkflowType, wfType)
	}
	return def, nil
}

// Types returns all registered workflow type names.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.defs))
	for t := range r.defs {
		types = append(types, t)
	}
	return types
}
