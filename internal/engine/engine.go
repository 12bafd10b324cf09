// Package engine provides the execution-engine boundary for DuckBridge.
// It defines the database and cursor contracts that the environment
// coordinates against, plus a name-based registry of concrete engines.
package engine

import (
	"context"
	"database/sql"
)

// Config holds the configuration for connecting to an engine.
type Config struct {
	// Path is the database file path. Use ":memory:" or empty for an
	// in-memory database.
	Path string

	// Database is the default catalog name, if any.
	Database string

	// Schema is the default schema to use.
	Schema string

	// Settings are session-level settings applied to every cursor.
	Settings map[string]string

	// Extensions are installed and loaded on every cursor.
	Extensions []string

	// Attach lists external databases attached once at connect time.
	Attach []AttachConfig

	// Options contains additional driver-specific options.
	Options map[string]string
}

// AttachConfig describes an external database attached at connect time.
type AttachConfig struct {
	Alias   string
	Path    string
	Options string
}

// Rows wraps sql.Rows to provide a consistent interface across engines.
type Rows struct {
	*sql.Rows
}

// Database is the shared handle to an engine. One Database is reused
// across many cursors; it is safe for concurrent cursor creation.
type Database interface {
	// Connect establishes the underlying connection using the provided config.
	Connect(ctx context.Context, cfg Config) error

	// Cursor opens a new session-scoped cursor. Session settings and
	// temporary bindings are cursor-local.
	Cursor(ctx context.Context) (Cursor, error)

	// Close closes the shared handle and releases resources.
	Close() error
}

// Cursor is a per-caller execution context bound to the shared handle.
// The capability set is enumerated explicitly; every engine must support
// each named operation.
type Cursor interface {
	// Execute runs a SQL statement that doesn't return rows, with
	// optional bound parameters.
	Execute(ctx context.Context, query string, args ...any) error

	// Query runs a SQL statement that returns rows.
	Query(ctx context.Context, query string, args ...any) (*Rows, error)

	// FetchOne runs a query and returns the first row's values, or nil
	// if the result set is empty.
	FetchOne(ctx context.Context, query string, args ...any) ([]any, error)

	// SQL wraps a query as a lazy dataframe without executing it.
	SQL(query string) *Dataframe

	// Register binds a dataframe under the given name for the lifetime
	// of this cursor's session.
	Register(ctx context.Context, name string, df *Dataframe) error

	// Close releases the cursor's session.
	Close() error
}
