// Package memory provides an in-process plugin that keeps stored
// dataframes in a map. Exports are upstream-referenceable, so a stored
// relation is immediately queryable in the same run.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/leapstack-labs/duckbridge/internal/engine"
	"github.com/leapstack-labs/duckbridge/internal/plugin"
)

func init() {
	plugin.RegisterFactory("memory", New)
}

// Plugin stores dataframes in memory, keyed by relation identifier.
type Plugin struct {
	name   string
	logger *slog.Logger

	mu     sync.RWMutex
	stored map[string]*engine.Dataframe
}

// New creates a memory plugin instance.
func New(name string, _ map[string]any, logger *slog.Logger) (plugin.Plugin, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Plugin{
		name:   name,
		logger: logger,
		stored: make(map[string]*engine.Dataframe),
	}, nil
}

// Load returns a previously stored dataframe.
func (p *Plugin) Load(_ context.Context, source plugin.SourceConfig) (*engine.Dataframe, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	df, ok := p.stored[source.Identifier]
	if !ok {
		return nil, fmt.Errorf("no stored relation %s in plugin %s", source.Identifier, p.name)
	}
	return df, nil
}

// Store keeps the dataframe under the target identifier.
func (p *Plugin) Store(_ context.Context, df *engine.Dataframe, target plugin.TargetConfig, _ engine.Cursor) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stored[target.Identifier] = df
	p.logger.Debug("dataframe stored", "plugin", p.name, "identifier", target.Identifier)
	return nil
}

// AdaptTargetConfig is the identity; memory targets need no defaults.
func (p *Plugin) AdaptTargetConfig(target plugin.TargetConfig) plugin.TargetConfig {
	return target
}

// DefaultMaterialization is "view": stored dataframes are re-bound on
// every cursor, so a view stays valid across sessions.
func (p *Plugin) DefaultMaterialization() string {
	return "view"
}

// CanBeUpstreamReferenced reports that stored relations can be used as
// sources in the same run.
func (p *Plugin) CanBeUpstreamReferenced() bool {
	return true
}

// CreateSourceConfig derives a source config pointing at the stored relation.
func (p *Plugin) CreateSourceConfig(target plugin.TargetConfig) plugin.SourceConfig {
	return plugin.SourceConfig{
		Schema:     target.Schema,
		Identifier: target.Identifier,
		Database:   target.Database,
		Meta:       target.Meta,
	}
}

var _ plugin.Plugin = (*Plugin)(nil)
