package task

import (
	"context"
	"database/sql"
	"testing"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := NewSQLStore(db, "sqlite3", nil)
	require.NoError(t, err)
	return store
}

func TestSaveAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	task := &a2a.Task{
		ID:        a2a.TaskID("task-1"),
		ContextID: "ctx-1",
		Status: a2a.TaskStatus{
			State: a2a.TaskStateWorking,
		},
		Metadata: map[string]any{"customer": "alice"},
	}

	require.NoError(t, store.Save(ctx, task))

	loaded, err := store.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, loaded.ID)
	assert.Equal(t, "ctx-1", loaded.ContextID)
	assert.Equal(t, a2a.TaskStateWorking, loaded.Status.State)
	assert.Equal(t, "alice", loaded.Metadata["customer"])
}

func TestSaveUpdatesExistingTask(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	task := &a2a.Task{
		ID:        a2a.TaskID("task-1"),
		ContextID: "ctx-1",
		Status:    a2a.TaskStatus{State: a2a.TaskStateSubmitted},
	}
	require.NoError(t, store.Save(ctx, task))

	task.Status.State = a2a.TaskStateCompleted
	require.NoError(t, store.Save(ctx, task))

	loaded, err := store.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, a2a.TaskStateCompleted, loaded.Status.State)
}

func TestGetUnknownTask(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), a2a.TaskID("nope"))
	assert.ErrorIs(t, err, a2a.ErrTaskNotFound)
}

func TestSaveNilTask(t *testing.T) {
	store := newTestStore(t)
	assert.Error(t, store.Save(context.Background(), nil))
}

func TestNewSQLStoreRejectsBadDriver(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer db.Close()

	_, err = NewSQLStore(db, "oracle", nil)
	assert.Error(t, err)

	_, err = NewSQLStore(nil, "sqlite3", nil)
	assert.Error(t, err)
}
