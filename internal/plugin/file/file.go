// Package file provides a plugin for file-based sources and sinks on the
// engine's native readers and writers. CSV, Parquet and JSON files are
// read through read_csv_auto/read_parquet/read_json_auto and written
// through COPY ... TO.
package file

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/duckbridge/internal/engine"
	"github.com/leapstack-labs/duckbridge/internal/plugin"
)

func init() {
	plugin.RegisterFactory("file", New)
}

// Plugin reads and writes data files in a configured directory.
type Plugin struct {
	name      string
	directory string
	format    string
	logger    *slog.Logger
}

// New creates a file plugin instance.
// Options: "directory" (default export location), "format" (default "csv").
func New(name string, options map[string]any, logger *slog.Logger) (plugin.Plugin, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	p := &Plugin{name: name, format: "csv", logger: logger}
	if dir, ok := options["directory"].(string); ok {
		p.directory = dir
	}
	if format, ok := options["format"].(string); ok && format != "" {
		p.format = format
	}
	if !supportedFormat(p.format) {
		return nil, fmt.Errorf("unsupported file format %q", p.format)
	}
	return p, nil
}

// Load wraps the source file's reader function as a dataframe.
// The location comes from meta ("location") or is derived from the
// plugin's directory and the source identifier.
func (p *Plugin) Load(_ context.Context, source plugin.SourceConfig) (*engine.Dataframe, error) {
	format := source.MetaString("format")
	location := source.MetaString("location")
	if location == "" {
		if p.directory == "" {
			return nil, fmt.Errorf("source %s has no location and plugin %s has no directory", source.TableName(), p.name)
		}
		if format == "" {
			format = p.format
		}
		location = filepath.Join(p.directory, source.Identifier+"."+format)
	}
	if format == "" {
		format = formatFromPath(location, p.format)
	}

	reader, err := readerFor(format, location)
	if err != nil {
		return nil, err
	}
	return engine.NewDataframe("SELECT * FROM " + reader), nil
}

// Store writes the dataframe to the target location with COPY ... TO.
func (p *Plugin) Store(ctx context.Context, df *engine.Dataframe, target plugin.TargetConfig, cursor engine.Cursor) error {
	options, err := copyOptions(target.Location.Format)
	if err != nil {
		return err
	}

	stmt := fmt.Sprintf("COPY (%s) TO '%s' (%s)", df.Query(), target.Location.Path, options)
	if err := cursor.Execute(ctx, stmt); err != nil {
		return fmt.Errorf("failed to write %s: %w", target.Location.Path, err)
	}

	p.logger.Debug("file written", "plugin", p.name, "path", target.Location.Path, "format", target.Location.Format)
	return nil
}

// AdaptTargetConfig fills in the default format and location.
func (p *Plugin) AdaptTargetConfig(target plugin.TargetConfig) plugin.TargetConfig {
	if target.Location.Format == "" {
		if target.Location.Path != "" {
			target.Location.Format = formatFromPath(target.Location.Path, p.format)
		} else {
			target.Location.Format = p.format
		}
	}
	if target.Location.Path == "" {
		target.Location.Path = filepath.Join(p.directory, target.Identifier+"."+target.Location.Format)
	}
	return target
}

// DefaultMaterialization is "table"; file reads are materialized rather
// than re-read on every query.
func (p *Plugin) DefaultMaterialization() string {
	return "table"
}

// CanBeUpstreamReferenced reports that written files can be re-read as
// sources in the same run.
func (p *Plugin) CanBeUpstreamReferenced() bool {
	return true
}

// CreateSourceConfig derives a source config pointing at the written file.
func (p *Plugin) CreateSourceConfig(target plugin.TargetConfig) plugin.SourceConfig {
	return plugin.SourceConfig{
		Schema:     target.Schema,
		Identifier: target.Identifier,
		Database:   target.Database,
		Meta: map[string]any{
			"location": target.Location.Path,
			"format":   target.Location.Format,
		},
	}
}

func supportedFormat(format string) bool {
	switch format {
	case "csv", "parquet", "json":
		return true
	}
	return false
}

// formatFromPath infers a format from the file extension.
func formatFromPath(path, fallback string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if supportedFormat(ext) {
		return ext
	}
	return fallback
}

func readerFor(format, location string) (string, error) {
	switch format {
	case "csv":
		return fmt.Sprintf("read_csv_auto('%s', header = true)", location), nil
	case "parquet":
		return fmt.Sprintf("read_parquet('%s')", location), nil
	case "json":
		return fmt.Sprintf("read_json_auto('%s')", location), nil
	default:
		return "", fmt.Errorf("unsupported file format %q", format)
	}
}

func copyOptions(format string) (string, error) {
	switch format {
	case "csv":
		return "FORMAT CSV, HEADER", nil
	case "parquet":
		return "FORMAT PARQUET", nil
	case "json":
		return "FORMAT JSON", nil
	default:
		return "", fmt.Errorf("unsupported file format %q", format)
	}
}

var _ plugin.Plugin = (*Plugin)(nil)
