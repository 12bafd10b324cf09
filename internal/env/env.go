// Package env implements the connection-lifecycle and data-materialization
// coordinator. An Environment owns a single shared engine handle, hands out
// reference-counted connection handles to concurrent callers, and tears the
// handle down exactly when the last one closes. On top of that lifecycle it
// sequences the two plugin workflows: loading external data into queryable
// form and exporting computed relations to external systems.
package env

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/leapstack-labs/duckbridge/internal/engine"
	"github.com/leapstack-labs/duckbridge/internal/plugin"
)

// Config holds environment configuration.
type Config struct {
	// Engine is the execution engine type (defaults to "duckdb").
	Engine string

	// DB is the engine connection configuration.
	DB engine.Config

	// KeepOpen keeps the shared handle open after the last connection
	// closes. It is forced on for in-memory and MotherDuck databases,
	// where closing the handle would discard state.
	KeepOpen bool
}

// keepOpen derives the effective keep-open flag from configuration.
func (c Config) keepOpen() bool {
	return c.KeepOpen || c.DB.Path == "" || c.DB.Path == ":memory:" || strings.HasPrefix(c.DB.Path, "md:")
}

// Environment coordinates the shared engine handle and the plugin
// workflows. Multiple goroutines may call Handle, LoadSource and
// StoreRelation concurrently against one Environment.
type Environment struct {
	cfg     Config
	plugins *plugin.Registry
	logger  *slog.Logger

	// mu guards db, handleCount and registered. It is held only across
	// the lazy-init-and-increment and decrement-and-maybe-close critical
	// sections; cursor setup happens outside the lock.
	mu          sync.Mutex
	db          engine.Database
	handleCount int
	keepOpen    bool

	// registered caches dataframe bindings for view materializations.
	// Views are not materialized storage, so every new cursor session
	// needs the binding re-established.
	registered map[string]*engine.Dataframe
}

// New creates an Environment. The shared handle is opened lazily on the
// first Handle call.
func New(cfg Config, plugins *plugin.Registry, logger *slog.Logger) *Environment {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Engine == "" {
		cfg.Engine = "duckdb"
	}
	return &Environment{
		cfg:        cfg,
		plugins:    plugins,
		logger:     logger,
		keepOpen:   cfg.keepOpen(),
		registered: make(map[string]*engine.Dataframe),
	}
}

// Handle returns a new connection handle, lazily opening the shared
// engine handle on first use. Cursor construction and configuration
// happen outside the lock so concurrent callers' cursor setup is not
// serialized against each other.
//
// Initialization failure propagates to the caller and leaves the shared
// handle nil; there is no retry.
func (e *Environment) Handle(ctx context.Context) (*ConnectionHandle, error) {
	e.mu.Lock()
	if e.db == nil {
		db, err := engine.New(e.cfg.Engine, e.logger)
		if err != nil {
			e.mu.Unlock()
			return nil, err
		}
		if err := db.Connect(ctx, e.cfg.DB); err != nil {
			e.mu.Unlock()
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		e.logger.Debug("shared handle opened", "engine", e.cfg.Engine)
		e.db = db
	}
	e.handleCount++
	db := e.db

	// Snapshot the view bindings to re-establish on the new cursor.
	registered := make(map[string]*engine.Dataframe, len(e.registered))
	for name, df := range e.registered {
		registered[name] = df
	}
	e.mu.Unlock()

	cursor, err := db.Cursor(ctx)
	if err != nil {
		e.notifyClosed()
		return nil, fmt.Errorf("failed to open cursor: %w", err)
	}

	for name, df := range registered {
		if err := cursor.Register(ctx, name, df); err != nil {
			_ = cursor.Close()
			e.notifyClosed()
			return nil, fmt.Errorf("failed to rebind dataframe %s: %w", name, err)
		}
	}

	return &ConnectionHandle{cursor: &CursorHandle{cur: cursor}, env: e}, nil
}

// notifyClosed is invoked by ConnectionHandle.Close. When the last handle
// closes and the environment is not configured to stay open, the shared
// handle is torn down.
func (e *Environment) notifyClosed() {
	e.mu.Lock()
	defer e.mu.Unlock()

	// ConnectionHandle.Close is idempotent, so the count cannot normally
	// underflow; clamp anyway rather than corrupt the invariant.
	if e.handleCount > 0 {
		e.handleCount--
	}
	if e.handleCount == 0 && !e.keepOpen {
		e.closeLocked()
	}
}

// Close tears down the shared handle if it is open. Safe to call at any
// time (e.g. process shutdown) and idempotent: closing an already-nil
// handle is a no-op.
func (e *Environment) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closeLocked()
}

func (e *Environment) closeLocked() error {
	if e.db == nil {
		return nil
	}
	err := e.db.Close()
	e.db = nil
	if err != nil {
		return fmt.Errorf("failed to close shared handle: %w", err)
	}
	e.logger.Debug("shared handle closed")
	return nil
}

// HandleCount returns the current number of open connection handles.
func (e *Environment) HandleCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.handleCount
}

// LoadSource materializes an external dataset as a queryable relation via
// the named plugin. The acquired handle is released on every exit path,
// including the save-mode "ignore" early return.
func (e *Environment) LoadSource(ctx context.Context, pluginName string, source plugin.SourceConfig) (err error) {
	p, ok := e.plugins.Get(pluginName)
	if !ok {
		return &NotFoundError{Name: pluginName, Known: e.plugins.Names()}
	}

	handle, err := e.Handle(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := handle.Close(); err == nil {
			err = closeErr
		}
	}()
	cursor := handle.Cursor()

	if source.Schema != "" {
		if err := cursor.Execute(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", source.Schema)); err != nil {
			return err
		}
	}

	saveMode := source.SaveMode()
	if saveMode == "ignore" || saveMode == "error_if_exists" {
		exists, err := e.relationExists(ctx, cursor, source)
		if err != nil {
			return err
		}
		if exists {
			if saveMode == "error_if_exists" {
				return &RelationExistsError{Relation: source.TableName()}
			}
			// Nothing to do (we ignore the existing table).
			e.logger.Debug("source exists, ignoring", "relation", source.TableName())
			return nil
		}
	}

	df, err := p.Load(ctx, source)
	if err != nil {
		return err
	}
	if df == nil {
		return &LoadError{Plugin: pluginName}
	}

	materialization := source.MetaString("materialization")
	if materialization == "" {
		materialization = p.DefaultMaterialization()
	}

	tableName := source.TableName()
	dfName := strings.ReplaceAll(tableName, ".", "_") + "_df"

	if err := cursor.Register(ctx, dfName, df); err != nil {
		return err
	}

	if materialization == "view" {
		// Save the binding so it is re-registered on each cursor creation.
		e.mu.Lock()
		e.registered[dfName] = df
		e.mu.Unlock()
	}

	stmt := fmt.Sprintf("CREATE OR REPLACE %s %s AS SELECT * FROM %s",
		strings.ToUpper(materialization), tableName, dfName)
	if err := cursor.Execute(ctx, stmt); err != nil {
		return err
	}

	e.logger.Info("source loaded", "plugin", pluginName, "relation", tableName, "materialization", materialization)
	return nil
}

// relationExists checks the catalog for an existing relation matching the
// source's schema and identifier (and catalog, if specified).
func (e *Environment) relationExists(ctx context.Context, cursor *CursorHandle, source plugin.SourceConfig) (bool, error) {
	query := `SELECT COUNT(1)
		FROM system.information_schema.tables
		WHERE table_schema = ?
		AND table_name = ?
		`
	args := []any{source.Schema, source.Identifier}
	if source.Database != "" {
		query += "AND table_catalog = ?"
		args = append(args, source.Database)
	}

	row, err := cursor.FetchOne(ctx, query, args...)
	if err != nil {
		return false, err
	}
	if len(row) == 0 {
		return false, nil
	}

	switch n := row[0].(type) {
	case int64:
		return n > 0, nil
	case int32:
		return n > 0, nil
	case int:
		return n > 0, nil
	case uint64:
		return n > 0, nil
	default:
		return false, fmt.Errorf("unexpected catalog count type %T", row[0])
	}
}

// StoreRelation exports a computed relation through the named plugin.
// If the plugin declares itself upstream-referenceable, the export is
// chained straight back into LoadSource so the next run can reference it
// without a separate invocation; a chained failure propagates as-is.
func (e *Environment) StoreRelation(ctx context.Context, pluginName string, target plugin.TargetConfig) error {
	p, ok := e.plugins.Get(pluginName)
	if !ok {
		return &NotFoundError{Name: pluginName, Known: e.plugins.Names()}
	}

	// Let the plugin inject its defaults (e.g. file format and location).
	target = p.AdaptTargetConfig(target)

	if err := e.storeWithHandle(ctx, p, target); err != nil {
		return err
	}

	e.logger.Info("relation stored", "plugin", pluginName, "relation", target.TableName())

	if p.CanBeUpstreamReferenced() {
		source := p.CreateSourceConfig(target)
		return e.LoadSource(ctx, pluginName, source)
	}
	return nil
}

// storeWithHandle runs the store step with its own handle, released
// before any chained upstream registration acquires the next one.
func (e *Environment) storeWithHandle(ctx context.Context, p plugin.Plugin, target plugin.TargetConfig) (err error) {
	handle, err := e.Handle(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := handle.Close(); err == nil {
			err = closeErr
		}
	}()
	cursor := handle.Cursor()

	// Hand over the result lazily; the plugin chooses how to persist it.
	df := cursor.SQL(target.CompiledSQL)
	return p.Store(ctx, df, target, cursor)
}

// Response is returned by SubmitJob.
type Response struct {
	Status string
}

// ParsedModel carries the model attributes a job needs.
type ParsedModel struct {
	Alias string
}

// JobFunc is caller-supplied compiled code executed against a cursor. The
// ldf thunk queries a table as a lazy dataframe in the cursor's session.
type JobFunc func(ctx context.Context, cursor *CursorHandle, ldf func(tableName string) *engine.Dataframe, alias string) error

// SubmitJob executes compiled code against the handle's cursor. This is a
// pass-through execution entry point: failures propagate from the job.
func (e *Environment) SubmitJob(ctx context.Context, handle *ConnectionHandle, model ParsedModel, job JobFunc) (Response, error) {
	con := handle.Cursor()

	ldf := func(tableName string) *engine.Dataframe {
		return con.SQL(fmt.Sprintf("select * from %s", tableName))
	}

	if err := job(ctx, con, ldf, model.Alias); err != nil {
		return Response{}, err
	}
	return Response{Status: "OK"}, nil
}
