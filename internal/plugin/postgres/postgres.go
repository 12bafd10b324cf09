// Package postgres provides a plugin that exports computed relations to
// PostgreSQL and reads them back through the engine's postgres scanner.
// Writes go over the wire with pgx's binary COPY protocol.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/leapstack-labs/duckbridge/internal/engine"
	"github.com/leapstack-labs/duckbridge/internal/plugin"
)

func init() {
	plugin.RegisterFactory("postgres", New)
}

// Plugin reads and writes relations in a PostgreSQL database.
type Plugin struct {
	name   string
	dsn    string
	logger *slog.Logger
}

// New creates a postgres plugin instance.
// Options: "dsn" (required), a pgx-compatible connection string.
func New(name string, options map[string]any, logger *slog.Logger) (plugin.Plugin, error) {
	dsn, _ := options["dsn"].(string)
	if dsn == "" {
		return nil, fmt.Errorf("plugin %s requires a dsn option", name)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Plugin{name: name, dsn: dsn, logger: logger}, nil
}

// Load wraps a postgres_scan call as a dataframe. The remote schema and
// table default to the source's own schema and identifier, overridable
// via meta ("source_schema", "source_table").
func (p *Plugin) Load(_ context.Context, source plugin.SourceConfig) (*engine.Dataframe, error) {
	schema := source.MetaString("source_schema")
	if schema == "" {
		schema = source.Schema
	}
	if schema == "" {
		schema = "public"
	}
	table := source.MetaString("source_table")
	if table == "" {
		table = source.Identifier
	}

	query := fmt.Sprintf("SELECT * FROM postgres_scan(%s, %s, %s)",
		quoteLiteral(p.dsn), quoteLiteral(schema), quoteLiteral(table))
	return engine.NewDataframe(query), nil
}

// Store streams the dataframe's rows into the target Postgres table via
// COPY. The target table must already exist.
func (p *Plugin) Store(ctx context.Context, df *engine.Dataframe, target plugin.TargetConfig, cursor engine.Cursor) error {
	rows, err := cursor.Query(ctx, df.Query())
	if err != nil {
		return fmt.Errorf("failed to read export rows: %w", err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("failed to read export columns: %w", err)
	}

	var records [][]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return fmt.Errorf("failed to scan export row: %w", err)
		}
		records = append(records, values)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating export rows: %w", err)
	}

	conn, err := pgx.Connect(ctx, p.dsn)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer func() { _ = conn.Close(ctx) }()

	ident := pgx.Identifier{target.Identifier}
	if target.Schema != "" {
		ident = pgx.Identifier{target.Schema, target.Identifier}
	}

	copied, err := conn.CopyFrom(ctx, ident, cols, pgx.CopyFromRows(records))
	if err != nil {
		return fmt.Errorf("failed to copy into %s: %w", ident.Sanitize(), err)
	}

	p.logger.Debug("rows copied to postgres", "plugin", p.name, "relation", ident.Sanitize(), "rows", copied)
	return nil
}

// AdaptTargetConfig is the identity; the destination comes from the DSN.
func (p *Plugin) AdaptTargetConfig(target plugin.TargetConfig) plugin.TargetConfig {
	return target
}

// DefaultMaterialization is "table"; remote scans are materialized once
// rather than re-executed on every query.
func (p *Plugin) DefaultMaterialization() string {
	return "table"
}

// CanBeUpstreamReferenced is false by default: re-reading an export
// requires the postgres extension, so chaining is opt-in per deployment.
func (p *Plugin) CanBeUpstreamReferenced() bool {
	return false
}

// CreateSourceConfig derives a source config reading back the exported table.
func (p *Plugin) CreateSourceConfig(target plugin.TargetConfig) plugin.SourceConfig {
	return plugin.SourceConfig{
		Schema:     target.Schema,
		Identifier: target.Identifier,
		Database:   target.Database,
		Meta: map[string]any{
			"source_schema": target.Schema,
			"source_table":  target.Identifier,
		},
	}
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

var _ plugin.Plugin = (*Plugin)(nil)
