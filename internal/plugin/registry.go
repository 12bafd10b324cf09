package plugin

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Factory creates a plugin instance from its configured options.
type Factory func(name string, options map[string]any, logger *slog.Logger) (Plugin, error)

var (
	factoriesMu sync.RWMutex
	factories   = make(map[string]Factory)
)

// RegisterFactory adds a plugin implementation to the factory registry.
// Called by plugin implementations in their init() functions.
func RegisterFactory(impl string, factory Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[impl] = factory
}

// GetFactory retrieves a plugin factory by implementation name.
func GetFactory(impl string) (Factory, bool) {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	f, ok := factories[impl]
	return f, ok
}

// ListFactories returns all registered implementation names (sorted).
func ListFactories() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Def declares a plugin instance in configuration: a name the workflows
// refer to, the implementation to instantiate, and its options.
type Def struct {
	Name    string
	Impl    string
	Options map[string]any
}

// Registry maps plugin names to resolved instances. It is built once at
// startup and immutable afterward.
type Registry struct {
	plugins map[string]Plugin
}

// NewRegistry resolves plugin definitions into a registry.
// The Impl field defaults to the plugin name when empty.
func NewRegistry(defs []Def, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	plugins := make(map[string]Plugin, len(defs))
	for _, def := range defs {
		impl := def.Impl
		if impl == "" {
			impl = def.Name
		}

		factory, ok := GetFactory(impl)
		if !ok {
			return nil, fmt.Errorf("unknown plugin implementation %q; available implementations: %v", impl, ListFactories())
		}

		p, err := factory(def.Name, def.Options, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize plugin %s: %w", def.Name, err)
		}
		plugins[def.Name] = p

		logger.Debug("plugin initialized", "name", def.Name, "impl", impl)
	}

	return &Registry{plugins: plugins}, nil
}

// Get resolves a plugin by name.
func (r *Registry) Get(name string) (Plugin, bool) {
	p, ok := r.plugins[name]
	return p, ok
}

// Names returns the registered plugin names (sorted).
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.plugins))
	for name := range r.plugins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
