package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NSSaDS/ftp/internal/domain"
)

func exerciseCredentialStore(t *testing.T, store domain.CredentialStore) {
	ctx := context.Background()

	ok, err := store.Authenticate(ctx, "alice", "secret")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.Register(ctx, "alice", "secret")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Register(ctx, "alice", "another")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.Authenticate(ctx, "alice", "secret")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Authenticate(ctx, "alice", "another")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryCredentialStore(t *testing.T) {
	store := NewMemoryCredentialStore()
	defer store.Close()

	exerciseCredentialStore(t, store)
}

func TestSQLiteCredentialStoreInMemory(t *testing.T) {
	store, err := NewSQLiteCredentialStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	exerciseCredentialStore(t, store)
}

func TestSQLiteCredentialStorePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.db")
	ctx := context.Background()

	store, err := NewSQLiteCredentialStore(path)
	require.NoError(t, err)
	ok, err := store.Register(ctx, "bob", "pw")
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteCredentialStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	ok, err = reopened.Authenticate(ctx, "bob", "pw")
	require.NoError(t, err)
	assert.True(t, ok)
}
