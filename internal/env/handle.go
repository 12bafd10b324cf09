package env

import (
	"context"
	"sync"

	"github.com/leapstack-labs/duckbridge/internal/engine"
)

// CursorHandle wraps an engine cursor. Every operation passes through
// unchanged except Execute, which normalizes an engine failure into a
// *RuntimeError preserving the original message.
type CursorHandle struct {
	cur engine.Cursor
}

// Execute runs a SQL statement with optional bound parameters.
func (c *CursorHandle) Execute(ctx context.Context, query string, args ...any) error {
	if err := c.cur.Execute(ctx, query, args...); err != nil {
		return &RuntimeError{Msg: err.Error()}
	}
	return nil
}

// Query runs a SQL statement that returns rows.
func (c *CursorHandle) Query(ctx context.Context, query string, args ...any) (*engine.Rows, error) {
	return c.cur.Query(ctx, query, args...)
}

// FetchOne returns the first row of a query result, or nil if empty.
func (c *CursorHandle) FetchOne(ctx context.Context, query string, args ...any) ([]any, error) {
	return c.cur.FetchOne(ctx, query, args...)
}

// SQL wraps a query as a lazy dataframe.
func (c *CursorHandle) SQL(query string) *engine.Dataframe {
	return c.cur.SQL(query)
}

// Register binds a dataframe for the lifetime of this cursor's session.
func (c *CursorHandle) Register(ctx context.Context, name string, df *engine.Dataframe) error {
	return c.cur.Register(ctx, name, df)
}

// Close releases the cursor's session.
func (c *CursorHandle) Close() error {
	return c.cur.Close()
}

var _ engine.Cursor = (*CursorHandle)(nil)

// ConnectionHandle binds one cursor to its owning environment. Closing
// the handle releases the cursor and notifies the environment so it can
// decrement its open-handle count.
//
// Close is idempotent: a second Close is a no-op and never decrements
// the count twice.
type ConnectionHandle struct {
	cursor    *CursorHandle
	env       *Environment
	closeOnce sync.Once
}

// Cursor returns the handle's cursor.
func (h *ConnectionHandle) Cursor() *CursorHandle {
	return h.cursor
}

// Close releases the cursor and notifies the environment.
func (h *ConnectionHandle) Close() error {
	var err error
	h.closeOnce.Do(func() {
		err = h.cursor.Close()
		h.env.notifyClosed()
	})
	return err
}
