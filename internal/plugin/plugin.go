// Package plugin defines the integration contract for external data
// sources and sinks, plus the registry that resolves plugins by name.
//
// A plugin materializes external data into queryable form (Load) and
// exports computed relations to external systems (Store). Concrete
// integrations register a factory in their init() function and are
// instantiated once from configuration at startup.
package plugin

import (
	"context"
	"strings"

	"github.com/leapstack-labs/duckbridge/internal/engine"
)

// SourceConfig describes an external dataset to materialize.
// It is an immutable input to the plugin contract.
type SourceConfig struct {
	// Schema is the target schema (created if missing).
	Schema string

	// Identifier is the target relation name.
	Identifier string

	// Database is the target catalog, if any.
	Database string

	// Meta carries arbitrary plugin- and workflow-level metadata,
	// including "save_mode" and "materialization" overrides.
	Meta map[string]any
}

// TableName returns the fully qualified relation name.
func (s SourceConfig) TableName() string {
	parts := make([]string, 0, 3)
	if s.Database != "" {
		parts = append(parts, s.Database)
	}
	if s.Schema != "" {
		parts = append(parts, s.Schema)
	}
	parts = append(parts, s.Identifier)
	return strings.Join(parts, ".")
}

// SaveMode returns the configured save mode, defaulting to "overwrite".
// Recognized values: overwrite, ignore, error_if_exists.
func (s SourceConfig) SaveMode() string {
	if mode, ok := s.Meta["save_mode"].(string); ok && mode != "" {
		return mode
	}
	return "overwrite"
}

// MetaString returns a string-valued meta entry, or "" if absent.
func (s SourceConfig) MetaString(key string) string {
	v, _ := s.Meta[key].(string)
	return v
}

// TargetConfig describes an export of a computed relation.
type TargetConfig struct {
	// Schema, Identifier and Database name the relation being exported.
	Schema     string
	Identifier string
	Database   string

	// Location is where the plugin should persist the data.
	Location Location

	// CompiledSQL is the compiled query producing the exported rows.
	CompiledSQL string

	// Meta carries arbitrary plugin-level metadata.
	Meta map[string]any
}

// Location describes a plugin-specific output destination.
type Location struct {
	Path   string
	Format string
}

// TableName returns the fully qualified relation name.
func (t TargetConfig) TableName() string {
	src := SourceConfig{Schema: t.Schema, Identifier: t.Identifier, Database: t.Database}
	return src.TableName()
}

// Plugin is the capability contract every integration must satisfy.
// Implementations are resolved by name at registry-build time and never
// mutated afterward; they must be safe for concurrent use.
type Plugin interface {
	// Load materializes the external dataset as a dataframe.
	Load(ctx context.Context, source SourceConfig) (*engine.Dataframe, error)

	// Store persists a computed dataframe. The cursor gives the plugin
	// access to the engine session that produced the dataframe.
	Store(ctx context.Context, df *engine.Dataframe, target TargetConfig, cursor engine.Cursor) error

	// AdaptTargetConfig injects plugin-specific defaults (locations,
	// formats) into a target config before Store runs.
	AdaptTargetConfig(target TargetConfig) TargetConfig

	// DefaultMaterialization is the storage form used when the source
	// config doesn't override it ("table" or "view").
	DefaultMaterialization() string

	// CanBeUpstreamReferenced reports whether this plugin's exports can
	// immediately be re-registered as queryable sources.
	CanBeUpstreamReferenced() bool

	// CreateSourceConfig derives a source config from a stored target,
	// used to chain an export into the next run's source availability.
	CreateSourceConfig(target TargetConfig) SourceConfig
}
