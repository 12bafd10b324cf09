package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestDuckDB_ConnectInMemory(t *testing.T) {
	ctx := context.Background()
	db := NewDuckDB(nil)

	err := db.Connect(ctx, Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("failed to connect to in-memory DuckDB: %v", err)
	}
	defer db.Close()
}

func TestDuckDB_ConnectFileBased(t *testing.T) {
	ctx := context.Background()
	db := NewDuckDB(nil)

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.duckdb")

	err := db.Connect(ctx, Config{Path: dbPath})
	if err != nil {
		t.Fatalf("failed to connect to file-based DuckDB: %v", err)
	}
	defer db.Close()

	// Verify the file was created
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestDuckDB_CursorExecuteAndFetch(t *testing.T) {
	ctx := context.Background()
	db := NewDuckDB(nil)

	if err := db.Connect(ctx, Config{Path: ":memory:"}); err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer db.Close()

	cur, err := db.Cursor(ctx)
	if err != nil {
		t.Fatalf("failed to open cursor: %v", err)
	}
	defer cur.Close()

	if err := cur.Execute(ctx, `CREATE TABLE test_table (id INTEGER, name VARCHAR)`); err != nil {
		t.Fatalf("failed to create table: %v", err)
	}
	if err := cur.Execute(ctx, `INSERT INTO test_table VALUES (1, 'alice'), (2, 'bob')`); err != nil {
		t.Fatalf("failed to insert data: %v", err)
	}

	row, err := cur.FetchOne(ctx, `SELECT COUNT(*) FROM test_table`)
	if err != nil {
		t.Fatalf("failed to fetch count: %v", err)
	}
	if len(row) != 1 {
		t.Fatalf("expected 1 column, got %d", len(row))
	}
	if count, ok := row[0].(int64); !ok || count != 2 {
		t.Errorf("expected count 2, got %v (%T)", row[0], row[0])
	}
}

func TestDuckDB_FetchOneEmptyResult(t *testing.T) {
	ctx := context.Background()
	db := NewDuckDB(nil)

	if err := db.Connect(ctx, Config{Path: ":memory:"}); err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer db.Close()

	cur, err := db.Cursor(ctx)
	if err != nil {
		t.Fatalf("failed to open cursor: %v", err)
	}
	defer cur.Close()

	row, err := cur.FetchOne(ctx, `SELECT 1 WHERE 1 = 0`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if row != nil {
		t.Errorf("expected nil row for empty result, got %v", row)
	}
}

func TestDuckDB_RegisterIsSessionScoped(t *testing.T) {
	ctx := context.Background()
	db := NewDuckDB(nil)

	if err := db.Connect(ctx, Config{Path: ":memory:"}); err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer db.Close()

	cur1, err := db.Cursor(ctx)
	if err != nil {
		t.Fatalf("failed to open cursor: %v", err)
	}
	defer cur1.Close()

	df := NewDataframe("SELECT 7 AS lucky")
	if err := cur1.Register(ctx, "lucky_df", df); err != nil {
		t.Fatalf("failed to register dataframe: %v", err)
	}

	// Visible in the registering session
	row, err := cur1.FetchOne(ctx, "SELECT lucky FROM lucky_df")
	if err != nil {
		t.Fatalf("failed to query registered dataframe: %v", err)
	}
	if v, ok := row[0].(int32); !ok || v != 7 {
		if v64, ok := row[0].(int64); !ok || v64 != 7 {
			t.Errorf("expected 7, got %v (%T)", row[0], row[0])
		}
	}

	// Not visible from a second, independent session
	cur2, err := db.Cursor(ctx)
	if err != nil {
		t.Fatalf("failed to open second cursor: %v", err)
	}
	defer cur2.Close()

	if _, err := cur2.FetchOne(ctx, "SELECT lucky FROM lucky_df"); err == nil {
		t.Error("temporary view should not be visible from another session")
	}
}

func TestDuckDB_SettingsAppliedPerCursor(t *testing.T) {
	ctx := context.Background()
	db := NewDuckDB(nil)

	cfg := Config{
		Path:     ":memory:",
		Settings: map[string]string{"memory_limit": "500MB"},
	}
	if err := db.Connect(ctx, cfg); err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer db.Close()

	cur, err := db.Cursor(ctx)
	if err != nil {
		t.Fatalf("failed to open configured cursor: %v", err)
	}
	defer cur.Close()

	row, err := cur.FetchOne(ctx, "SELECT current_setting('memory_limit')")
	if err != nil {
		t.Fatalf("failed to read setting: %v", err)
	}
	if len(row) != 1 {
		t.Fatalf("expected 1 column, got %d", len(row))
	}
}

func TestDuckDB_CursorWithoutConnect(t *testing.T) {
	db := NewDuckDB(nil)
	if _, err := db.Cursor(context.Background()); err == nil {
		t.Error("expected error when opening cursor without connection")
	}
}
