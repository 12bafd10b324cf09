package engine

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]func(*slog.Logger) Database)
)

// Register adds an engine factory to the registry.
// Called by engine implementations in their init() functions.
func Register(name string, factory func(*slog.Logger) Database) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// Get retrieves an engine factory by name.
func Get(name string) (func(*slog.Logger) Database, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[name]
	return f, ok
}

// New creates a new engine instance by name.
// The logger parameter is passed to the engine constructor (nil uses discard logger).
func New(name string, logger *slog.Logger) (Database, error) {
	if name == "" {
		return nil, fmt.Errorf("engine type not specified")
	}

	factory, ok := Get(name)
	if !ok {
		return nil, &UnknownEngineError{
			Type:      name,
			Available: ListEngines(),
		}
	}
	return factory(logger), nil
}

// ListEngines returns all registered engine names (sorted).
func ListEngines() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if an engine type is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[name]
	return ok
}

// UnknownEngineError is returned when an unknown engine type is requested.
type UnknownEngineError struct {
	Type      string
	Available []string
}

func (e *UnknownEngineError) Error() string {
	return fmt.Sprintf("unknown engine type %q\nAvailable engines: %v\nHint: Check your target.engine in duckbridge.yaml", e.Type, e.Available)
}
