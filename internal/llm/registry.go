package llm

import (
	"fmt"
	"sort"
)

// Backend binds a named provider to the model it serves and its prompt ceiling.
type Backend struct {
	Name            string
	Provider        Provider
	Model           string
	MaxPromptTokens int // 0 = no ceiling
}

// Registry resolves backend names (e.g. "openai_api") to providers.
type Registry struct {
	backends       map[string]Backend
	defaultBackend string
	sampling       Sampling
}

// NewRegistry creates an empty registry with deterministic sampling.
func NewRegistry() *Registry {
	return &Registry{
		backends: make(map[string]Backend),
		sampling: Deterministic(),
	}
}

// SetSampling overrides the decoding parameters handed out by Resolve.
func (r *Registry) SetSampling(s Sampling) {
	r.sampling = s
}

// Sampling returns the configured decoding parameters.
func (r *Registry) Sampling() Sampling {
	return r.sampling
}

// Register adds a backend. The first one registered, or any marked default, becomes the default.
func (r *Registry) Register(b Backend, isDefault bool) {
	r.backends[b.Name] = b
	if isDefault || r.defaultBackend == "" {
		r.defaultBackend = b.Name
	}
}

// Default returns the default backend name.
func (r *Registry) Default() string {
	return r.defaultBackend
}

// Names lists registered backends in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve returns the backend for a given name (default if empty).
func (r *Registry) Resolve(name string) (Backend, error) {
	if name == "" {
		name = r.defaultBackend
	}
	b, ok := r.backends[name]
	if !ok {
		return Backend{}, fmt.Errorf("backend %q not registered", name)
	}
	if b.Provider == nil {
		return Backend{}, fmt.Errorf("backend %q has no provider", name)
	}
	return b, nil
}
