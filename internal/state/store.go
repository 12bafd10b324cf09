// Package state provides the operation log for DuckBridge using SQLite.
// It records load and store operations per run so past materializations
// can be inspected after the fact.
package state

import "time"

// OperationKind distinguishes load and store operations.
type OperationKind string

const (
	// OperationLoad is a source materialization.
	OperationLoad OperationKind = "load"

	// OperationStore is a relation export.
	OperationStore OperationKind = "store"
)

// OperationStatus represents the outcome of an operation.
type OperationStatus string

const (
	// OperationRunning means the operation is in progress.
	OperationRunning OperationStatus = "running"

	// OperationCompleted means the operation succeeded.
	OperationCompleted OperationStatus = "completed"

	// OperationFailed means the operation failed.
	OperationFailed OperationStatus = "failed"
)

// Operation is one recorded load or store.
type Operation struct {
	ID          string
	RunID       string
	Kind        OperationKind
	Plugin      string
	Relation    string
	Status      OperationStatus
	Error       string
	StartedAt   time.Time
	CompletedAt *time.Time
	DurationMS  int64
}

// Store is the operation-log persistence contract.
type Store interface {
	// Open opens the store at the given path (":memory:" for in-memory).
	Open(path string) error

	// Migrate runs all pending schema migrations.
	Migrate() error

	// BeginRun creates a new run and returns its id.
	BeginRun() (string, error)

	// CompleteRun marks a run finished.
	CompleteRun(runID string) error

	// BeginOperation records the start of an operation and returns it.
	BeginOperation(runID string, kind OperationKind, pluginName, relation string) (*Operation, error)

	// CompleteOperation records an operation's outcome.
	CompleteOperation(id string, status OperationStatus, errMsg string) error

	// ListOperations returns the most recent operations, newest first.
	ListOperations(limit int) ([]*Operation, error)

	// Close closes the store.
	Close() error
}
