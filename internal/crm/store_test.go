package crm

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "connections.json")
	store := NewFileStore(path)
	ctx := context.Background()

	all, err := store.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all, "missing file should load as empty")

	conns := []Connection{
		{Alias: "glen", URL: "http://crm.example", APIKey: "k", APISecret: "s"},
		{Alias: "ops", URL: "http://ops.example", APIKey: "k2", APISecret: "s2"},
	}
	require.NoError(t, store.SaveChat(ctx, 7, conns))
	require.NoError(t, store.SaveChat(ctx, 8, []Connection{{Alias: "glen", URL: "http://crm.example"}}))

	reloaded := NewFileStore(path)
	all, err = reloaded.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, conns, all[7])
	assert.Equal(t, "glen", all[8][0].Alias)
}

func TestFileStoreSaveEmptyRemovesChat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "connections.json")
	store := NewFileStore(path)
	ctx := context.Background()

	require.NoError(t, store.SaveChat(ctx, 7, []Connection{{Alias: "glen", URL: "http://crm.example"}}))
	require.NoError(t, store.SaveChat(ctx, 7, nil))

	all, err := store.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestFileStoreRejectsCorruptContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "connections.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewFileStore(path).LoadAll(context.Background())
	assert.Error(t, err)
}
