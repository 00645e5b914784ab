package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NSSaDS/ftp/internal/domain"
	"NSSaDS/ftp/internal/infrastructure/repository"
)

type fixedVolumes []string

func (v fixedVolumes) Volumes() ([]string, error) {
	return v, nil
}

type brokenCredentials struct{}

func (brokenCredentials) Authenticate(ctx context.Context, username, password string) (bool, error) {
	return false, errors.New("database is locked")
}

func (brokenCredentials) Register(ctx context.Context, username, password string) (bool, error) {
	return false, errors.New("database is locked")
}

func (brokenCredentials) Close() error { return nil }

func newHandler(t *testing.T) (*CommandHandler, *domain.Session, string) {
	t.Helper()

	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "docs"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), make([]byte, 100), 0644))

	store, err := repository.NewFileManager(root, fixedVolumes{"/"})
	require.NoError(t, err)

	handler := NewCommandHandler(store, repository.NewMemoryCredentialStore())
	return handler, domain.NewSession("test", store.Root()), store.Root()
}

func TestListCommand(t *testing.T) {
	handler, session, root := newHandler(t)

	response, err := handler.HandleCommand(context.Background(), session, domain.VerbList, "")
	require.NoError(t, err)

	listing, err := domain.ParseListing(response)
	require.NoError(t, err)
	assert.Equal(t, root, listing.Directory)
	assert.ElementsMatch(t, []domain.ListEntry{
		{Name: "docs", Kind: domain.EntryDir},
		{Name: "a.txt", Size: 100, Kind: domain.EntryFile},
	}, listing.Entries)
}

func TestChangeDirCommand(t *testing.T) {
	handler, session, root := newHandler(t)
	ctx := context.Background()

	response, err := handler.HandleCommand(ctx, session, domain.VerbCd, "docs")
	require.NoError(t, err)
	assert.Equal(t, "OK "+filepath.Join(root, "docs"), response)
	assert.Equal(t, filepath.Join(root, "docs"), session.CurrentDir)

	_, err = handler.HandleCommand(ctx, session, domain.VerbCd, "nowhere")
	assert.ErrorIs(t, err, domain.ErrDirectoryNotFound)
	assert.Equal(t, filepath.Join(root, "docs"), session.CurrentDir)

	_, err = handler.HandleCommand(ctx, session, domain.VerbCd, "")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	response, err = handler.HandleCommand(ctx, session, domain.VerbCd, "..")
	require.NoError(t, err)
	assert.Equal(t, "OK "+root, response)
}

func TestChangeDirToVolumeRoot(t *testing.T) {
	handler, session, _ := newHandler(t)
	ctx := context.Background()

	session.CurrentDir = "/"
	response, err := handler.HandleCommand(ctx, session, domain.VerbCd, "..")
	require.NoError(t, err)
	assert.Equal(t, "OK "+domain.VolumeRoot, response)
	assert.True(t, session.AtVolumeRoot())

	response, err = handler.HandleCommand(ctx, session, domain.VerbList, "")
	require.NoError(t, err)
	assert.Equal(t, domain.VolumeRoot+"\n/", response)

	response, err = handler.HandleCommand(ctx, session, domain.VerbCd, "/")
	require.NoError(t, err)
	assert.Equal(t, "OK /", response)
}

func TestRestartCommand(t *testing.T) {
	handler, session, _ := newHandler(t)
	ctx := context.Background()

	response, err := handler.HandleCommand(ctx, session, domain.VerbRestart, "40")
	require.NoError(t, err)
	assert.Equal(t, "40", response)
	assert.Equal(t, int64(40), session.RestartOffset)

	response, err = handler.HandleCommand(ctx, session, domain.VerbRestart, "0")
	require.NoError(t, err)
	assert.Equal(t, "0", response)
	assert.Zero(t, session.RestartOffset)

	for _, bad := range []string{"", "-1", "ten"} {
		_, err = handler.HandleCommand(ctx, session, domain.VerbRestart, bad)
		assert.ErrorIs(t, err, domain.ErrInvalidArgument, "arg %q", bad)
	}
	assert.Zero(t, session.RestartOffset)
}

func TestUnknownCommandLeavesSessionAlone(t *testing.T) {
	handler, session, _ := newHandler(t)
	session.RestartOffset = 7
	before := *session

	_, err := handler.HandleCommand(context.Background(), session, domain.Verb("mkdir"), "x")
	assert.ErrorIs(t, err, domain.ErrUnknownCommand)
	assert.Equal(t, before, *session)
}

func TestRegisterAndLogin(t *testing.T) {
	handler, session, _ := newHandler(t)
	ctx := context.Background()

	_, err := handler.HandleCommand(ctx, session, domain.VerbLogin, "alice secret")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	response, err := handler.HandleCommand(ctx, session, domain.VerbRegister, "alice secret")
	require.NoError(t, err)
	assert.Equal(t, "OK", response)

	_, err = handler.HandleCommand(ctx, session, domain.VerbRegister, "alice other")
	assert.ErrorIs(t, err, domain.ErrUserExists)

	response, err = handler.HandleCommand(ctx, session, domain.VerbLogin, "alice secret")
	require.NoError(t, err)
	assert.Equal(t, "OK", response)

	_, err = handler.HandleCommand(ctx, session, domain.VerbLogin, "alice wrong")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = handler.HandleCommand(ctx, session, domain.VerbLogin, "alice")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestCredentialStoreFaultsAreFailures(t *testing.T) {
	store, err := repository.NewFileManager(t.TempDir(), fixedVolumes{"/"})
	require.NoError(t, err)

	handler := NewCommandHandler(store, brokenCredentials{})
	session := domain.NewSession("test", store.Root())
	ctx := context.Background()

	_, err = handler.HandleCommand(ctx, session, domain.VerbLogin, "bob pw")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = handler.HandleCommand(ctx, session, domain.VerbRegister, "bob pw")
	assert.Error(t, err)
}
