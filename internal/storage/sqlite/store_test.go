package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kanban/internal/storage"
	"kanban/internal/storage/storagetest"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "db", "kanban.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreContract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Repository {
		return newTestStore(t)
	})
}

func TestStore_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kanban.db")
	ctx := context.Background()

	first, err := Open(path, nil)
	require.NoError(t, err)
	want := storagetest.SampleProject("proj-1", "JOIN-ALPH-AB12")
	require.NoError(t, first.CreateProject(ctx, want))
	require.NoError(t, first.Close())

	second, err := Open(path, nil)
	require.NoError(t, err)
	defer second.Close()

	got, err := second.GetProject(ctx, "proj-1")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestStore_DeleteProjectCascades(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateProject(ctx, storagetest.SampleProject("proj-1", "JOIN-ALPH-AB12")))
	require.NoError(t, store.DeleteProject(ctx, "proj-1"))

	for _, table := range []string{"project_members", "board_columns", "tasks", "task_subtasks", "task_attachments", "task_activity"} {
		var n int
		require.NoError(t, store.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n))
		assert.Zero(t, n, table)
	}
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open("", nil)
	assert.Error(t, err)
}
