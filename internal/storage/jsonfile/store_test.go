package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kanban/internal/storage"
	"kanban/internal/storage/storagetest"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "data", "kanban.json"))
	require.NoError(t, err)
	return store
}

func TestStoreContract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Repository {
		return newTestStore(t)
	})
}

func TestStore_PersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kanban.json")
	ctx := context.Background()

	first, err := Open(path)
	require.NoError(t, err)
	want := storagetest.SampleProject("proj-1", "JOIN-ALPH-AB12")
	require.NoError(t, first.CreateProject(ctx, want))

	_, err = os.Stat(path)
	require.NoError(t, err)

	second, err := Open(path)
	require.NoError(t, err)
	got, err := second.GetProject(ctx, "proj-1")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kanban.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	store, err := Open(path)
	require.NoError(t, err)
	_, err = store.ListUsers(context.Background())
	assert.ErrorContains(t, err, "parse store file")
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}
