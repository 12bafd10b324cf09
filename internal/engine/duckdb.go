package engine

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

func init() {
	Register("duckdb", func(logger *slog.Logger) Database { return NewDuckDB(logger) })
}

// DuckDB implements the Database interface on top of database/sql and the
// go-duckdb driver. Each cursor is a dedicated *sql.Conn session, so
// temporary views and session settings are naturally cursor-scoped.
type DuckDB struct {
	db     *sql.DB
	config Config
	logger *slog.Logger
}

// NewDuckDB creates a new DuckDB engine instance.
func NewDuckDB(logger *slog.Logger) *DuckDB {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &DuckDB{logger: logger}
}

// Connect opens the shared DuckDB handle.
// Use ":memory:" or an empty path for an in-memory database.
func (d *DuckDB) Connect(ctx context.Context, cfg Config) error {
	db, err := sql.Open("duckdb", dsn(cfg))
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}

	// Attached databases are visible to every session on this handle.
	for _, att := range cfg.Attach {
		stmt := fmt.Sprintf("ATTACH IF NOT EXISTS '%s'", att.Path)
		if att.Alias != "" {
			stmt += " AS " + att.Alias
		}
		if att.Options != "" {
			stmt += " (" + att.Options + ")"
		}
		if err := execContext(ctx, db, stmt); err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to attach %s: %w", att.Path, err)
		}
	}

	d.db = db
	d.config = cfg

	d.logger.Debug("duckdb connected", "path", cfg.Path)

	return nil
}

// Cursor opens a new session and applies per-cursor configuration:
// extensions and settings are session-level in DuckDB, so they are
// re-applied for every cursor rather than once per handle.
func (d *DuckDB) Cursor(ctx context.Context) (Cursor, error) {
	if d.db == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	conn, err := d.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open cursor: %w", err)
	}

	cur := &duckdbCursor{conn: conn}

	for _, ext := range d.config.Extensions {
		if err := cur.Execute(ctx, fmt.Sprintf("INSTALL %s", ext)); err != nil {
			_ = cur.Close()
			return nil, fmt.Errorf("failed to install extension %s: %w", ext, err)
		}
		if err := cur.Execute(ctx, fmt.Sprintf("LOAD %s", ext)); err != nil {
			_ = cur.Close()
			return nil, fmt.Errorf("failed to load extension %s: %w", ext, err)
		}
	}

	for key, value := range d.config.Settings {
		if err := cur.Execute(ctx, fmt.Sprintf("SET %s = '%s'", key, value)); err != nil {
			_ = cur.Close()
			return nil, fmt.Errorf("failed to apply setting %s: %w", key, err)
		}
	}

	return cur, nil
}

// Close closes the shared DuckDB handle.
func (d *DuckDB) Close() error {
	if d.db != nil {
		d.logger.Debug("closing duckdb connection")
		return d.db.Close()
	}
	return nil
}

// dsn builds the driver connection string from a config.
func dsn(cfg Config) string {
	path := cfg.Path
	if path == ":memory:" {
		path = ""
	}
	if len(cfg.Options) == 0 {
		return path
	}
	params := url.Values{}
	for k, v := range cfg.Options {
		params.Set(k, v)
	}
	return path + "?" + params.Encode()
}

func execContext(ctx context.Context, db *sql.DB, query string) error {
	_, err := db.ExecContext(ctx, query)
	return err
}

// duckdbCursor wraps a dedicated *sql.Conn session.
type duckdbCursor struct {
	conn *sql.Conn
}

// Execute runs a SQL statement that doesn't return rows.
func (c *duckdbCursor) Execute(ctx context.Context, query string, args ...any) error {
	_, err := c.conn.ExecContext(ctx, query, args...)
	return err
}

// Query runs a SQL statement that returns rows.
func (c *duckdbCursor) Query(ctx context.Context, query string, args ...any) (*Rows, error) {
	//nolint:rowserrcheck // rows.Err() must be checked by caller after iteration completes
	rows, err := c.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &Rows{Rows: rows}, nil
}

// FetchOne returns the first row of a query result, or nil if empty.
func (c *duckdbCursor) FetchOne(ctx context.Context, query string, args ...any) ([]any, error) {
	rows, err := c.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		return nil, rows.Err()
	}

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}

	return values, rows.Err()
}

// SQL wraps a query as a lazy dataframe.
func (c *duckdbCursor) SQL(query string) *Dataframe {
	return NewDataframe(query)
}

// Register binds a dataframe as a temporary view. Temporary views are
// session-scoped, so the binding lives exactly as long as this cursor.
func (c *duckdbCursor) Register(ctx context.Context, name string, df *Dataframe) error {
	stmt := fmt.Sprintf("CREATE OR REPLACE TEMPORARY VIEW %s AS %s", name, df.Query())
	if err := c.Execute(ctx, stmt); err != nil {
		return fmt.Errorf("failed to register dataframe %s: %w", name, err)
	}
	return nil
}

// Close releases the cursor's session.
func (c *duckdbCursor) Close() error {
	return c.conn.Close()
}

// Ensure interfaces are implemented.
var (
	_ Database = (*DuckDB)(nil)
	_ Cursor   = (*duckdbCursor)(nil)
)
