package state

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // sqlite driver
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite operation-log store.
func NewSQLiteStore(logger *slog.Logger) *SQLiteStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLiteStore{logger: logger}
}

// Open opens a connection to the SQLite database.
// Use ":memory:" for an in-memory database.
func (s *SQLiteStore) Open(path string) error {
	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s.db = db
	s.path = path
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// generateID creates a new UUID.
func generateID() string {
	return uuid.New().String()
}

// BeginRun creates a new run row.
func (s *SQLiteStore) BeginRun() (string, error) {
	if s.db == nil {
		return "", fmt.Errorf("database not opened")
	}

	id := generateID()
	_, err := s.db.Exec(
		`INSERT INTO runs (id, started_at) VALUES (?, ?)`,
		id, time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create run: %w", err)
	}
	return id, nil
}

// CompleteRun marks a run finished.
func (s *SQLiteStore) CompleteRun(runID string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	_, err := s.db.Exec(
		`UPDATE runs SET completed_at = ? WHERE id = ?`,
		time.Now().UTC(), runID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	return nil
}

// BeginOperation records the start of a load or store operation.
func (s *SQLiteStore) BeginOperation(runID string, kind OperationKind, pluginName, relation string) (*Operation, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	op := &Operation{
		ID:        generateID(),
		RunID:     runID,
		Kind:      kind,
		Plugin:    pluginName,
		Relation:  relation,
		Status:    OperationRunning,
		StartedAt: time.Now().UTC(),
	}

	_, err := s.db.Exec(
		`INSERT INTO operations (id, run_id, kind, plugin, relation, status, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		op.ID, op.RunID, op.Kind, op.Plugin, op.Relation, op.Status, op.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record operation: %w", err)
	}
	return op, nil
}

// CompleteOperation records an operation's outcome and duration.
func (s *SQLiteStore) CompleteOperation(id string, status OperationStatus, errMsg string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	now := time.Now().UTC()
	_, err := s.db.Exec(
		`UPDATE operations
		 SET status = ?, error = ?, completed_at = ?,
		     duration_ms = CAST((julianday(?) - julianday(started_at)) * 86400000 AS INTEGER)
		 WHERE id = ?`,
		status, errMsg, now, now, id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete operation: %w", err)
	}
	return nil
}

// ListOperations returns the most recent operations, newest first.
func (s *SQLiteStore) ListOperations(limit int) ([]*Operation, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(
		`SELECT id, run_id, kind, plugin, relation, status, COALESCE(error, ''),
		        started_at, completed_at, COALESCE(duration_ms, 0)
		 FROM operations
		 ORDER BY started_at DESC
		 LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list operations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ops []*Operation
	for rows.Next() {
		op := &Operation{}
		var completedAt sql.NullTime
		if err := rows.Scan(&op.ID, &op.RunID, &op.Kind, &op.Plugin, &op.Relation,
			&op.Status, &op.Error, &op.StartedAt, &completedAt, &op.DurationMS); err != nil {
			return nil, fmt.Errorf("failed to scan operation: %w", err)
		}
		if completedAt.Valid {
			t := completedAt.Time
			op.CompletedAt = &t
		}
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating operations: %w", err)
	}

	return ops, nil
}

var _ Store = (*SQLiteStore)(nil)
