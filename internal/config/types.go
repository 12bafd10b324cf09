// Package config provides project configuration for DuckBridge. It is
// decoupled from CLI concerns so other tools can load the same config.
package config

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/duckbridge/internal/engine"
	"github.com/leapstack-labs/duckbridge/internal/plugin"
)

// TargetConfig holds the execution-engine target configuration.
type TargetConfig struct {
	Engine string `koanf:"engine"` // duckdb

	// Path is the database file path; empty or ":memory:" for in-memory.
	Path string `koanf:"path"`

	// Database is the default catalog name, if any.
	Database string `koanf:"database"`

	// Schema is the default schema.
	Schema string `koanf:"schema"`

	// KeepOpen keeps the shared handle open after the last connection closes.
	KeepOpen bool `koanf:"keep_open"`

	// Settings are session-level settings applied to every cursor.
	Settings map[string]string `koanf:"settings"`

	// Extensions are installed and loaded on every cursor.
	Extensions []string `koanf:"extensions"`

	// Attach lists external databases attached at connect time.
	Attach []AttachConfig `koanf:"attach"`

	// Options contains additional driver-specific options.
	Options map[string]string `koanf:"options"`
}

// AttachConfig describes an external database to attach.
type AttachConfig struct {
	Alias   string `koanf:"alias"`
	Path    string `koanf:"path"`
	Options string `koanf:"options"`
}

// Validate checks if the target configuration is valid.
// It uses the engine registry to determine which engine types are available.
func (t *TargetConfig) Validate() error {
	if t.Engine == "" {
		return fmt.Errorf("target engine is required")
	}
	if !engine.IsRegistered(strings.ToLower(t.Engine)) {
		return &engine.UnknownEngineError{
			Type:      t.Engine,
			Available: engine.ListEngines(),
		}
	}
	return nil
}

// ToEngineConfig converts the target to an engine connection config.
func (t *TargetConfig) ToEngineConfig() engine.Config {
	attach := make([]engine.AttachConfig, 0, len(t.Attach))
	for _, a := range t.Attach {
		attach = append(attach, engine.AttachConfig{Alias: a.Alias, Path: a.Path, Options: a.Options})
	}
	return engine.Config{
		Path:       t.Path,
		Database:   t.Database,
		Schema:     t.Schema,
		Settings:   t.Settings,
		Extensions: t.Extensions,
		Attach:     attach,
		Options:    t.Options,
	}
}

// PluginConfig declares a plugin instance.
type PluginConfig struct {
	Name    string         `koanf:"name"`
	Impl    string         `koanf:"impl"`
	Options map[string]any `koanf:"options"`
}

// ToDef converts the declaration to a plugin definition.
func (p PluginConfig) ToDef() plugin.Def {
	return plugin.Def{Name: p.Name, Impl: p.Impl, Options: p.Options}
}

// SourceConfig declares an external dataset to load at run time.
type SourceConfig struct {
	Plugin     string         `koanf:"plugin"`
	Schema     string         `koanf:"schema"`
	Identifier string         `koanf:"identifier"`
	Database   string         `koanf:"database"`
	Meta       map[string]any `koanf:"meta"`
}

// ToSourceConfig converts the declaration to a plugin source config.
func (s SourceConfig) ToSourceConfig() plugin.SourceConfig {
	return plugin.SourceConfig{
		Schema:     s.Schema,
		Identifier: s.Identifier,
		Database:   s.Database,
		Meta:       s.Meta,
	}
}

// ExportConfig declares a relation export to run after loads complete.
type ExportConfig struct {
	Plugin     string         `koanf:"plugin"`
	Schema     string         `koanf:"schema"`
	Identifier string         `koanf:"identifier"`
	Database   string         `koanf:"database"`
	Location   string         `koanf:"location"`
	Format     string         `koanf:"format"`
	SQL        string         `koanf:"sql"`
	Meta       map[string]any `koanf:"meta"`
}

// ToTargetConfig converts the declaration to a plugin target config.
func (e ExportConfig) ToTargetConfig() plugin.TargetConfig {
	return plugin.TargetConfig{
		Schema:      e.Schema,
		Identifier:  e.Identifier,
		Database:    e.Database,
		Location:    plugin.Location{Path: e.Location, Format: e.Format},
		CompiledSQL: e.SQL,
		Meta:        e.Meta,
	}
}

// Config holds the full project configuration.
type Config struct {
	Target    TargetConfig   `koanf:"target"`
	Plugins   []PluginConfig `koanf:"plugins"`
	Sources   []SourceConfig `koanf:"sources"`
	Exports   []ExportConfig `koanf:"exports"`
	StatePath string         `koanf:"state_path"`
	Verbose   bool           `koanf:"verbose"`
}
