package state

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/duckbridge/internal/testutil"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s := NewSQLiteStore(testutil.NewTestLogger(t))
	require.NoError(t, s.Open(":memory:"))
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate())
	return s
}

func TestOpenFileBased(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")

	s := NewSQLiteStore(nil)
	require.NoError(t, s.Open(path))
	defer s.Close()
	require.NoError(t, s.Migrate())

	_, err := s.BeginRun()
	require.NoError(t, err)
}

func TestNotOpened(t *testing.T) {
	s := NewSQLiteStore(nil)

	_, err := s.BeginRun()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not opened")

	_, err = s.ListOperations(10)
	require.Error(t, err)
}

func TestRunLifecycle(t *testing.T) {
	s := newTestStore(t)

	runID, err := s.BeginRun()
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	require.NoError(t, s.CompleteRun(runID))
}

func TestOperationLifecycle(t *testing.T) {
	s := newTestStore(t)

	runID, err := s.BeginRun()
	require.NoError(t, err)

	op, err := s.BeginOperation(runID, OperationLoad, "files", "raw.users")
	require.NoError(t, err)
	assert.Equal(t, OperationRunning, op.Status)
	assert.Equal(t, runID, op.RunID)

	require.NoError(t, s.CompleteOperation(op.ID, OperationCompleted, ""))

	ops, err := s.ListOperations(10)
	require.NoError(t, err)
	require.Len(t, ops, 1)

	got := ops[0]
	assert.Equal(t, op.ID, got.ID)
	assert.Equal(t, OperationLoad, got.Kind)
	assert.Equal(t, "files", got.Plugin)
	assert.Equal(t, "raw.users", got.Relation)
	assert.Equal(t, OperationCompleted, got.Status)
	assert.Empty(t, got.Error)
	require.NotNil(t, got.CompletedAt)
	assert.GreaterOrEqual(t, got.DurationMS, int64(0))
}

func TestFailedOperationRecordsError(t *testing.T) {
	s := newTestStore(t)

	runID, err := s.BeginRun()
	require.NoError(t, err)

	op, err := s.BeginOperation(runID, OperationStore, "pg", "marts.orders")
	require.NoError(t, err)
	require.NoError(t, s.CompleteOperation(op.ID, OperationFailed, "connection refused"))

	ops, err := s.ListOperations(10)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, OperationFailed, ops[0].Status)
	assert.Equal(t, "connection refused", ops[0].Error)
}

func TestListOperationsNewestFirstWithLimit(t *testing.T) {
	s := newTestStore(t)

	runID, err := s.BeginRun()
	require.NoError(t, err)

	relations := []string{"raw.a", "raw.b", "raw.c"}
	for _, rel := range relations {
		_, err := s.BeginOperation(runID, OperationLoad, "files", rel)
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond) // distinct started_at for ordering
	}

	ops, err := s.ListOperations(2)
	require.NoError(t, err)
	require.Len(t, ops, 2)
	assert.Equal(t, "raw.c", ops[0].Relation)
	assert.Equal(t, "raw.b", ops[1].Relation)
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Migrate())
}
