package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sipico/covid-counter-client/internal/storage"
	"github.com/sipico/covid-counter-client/internal/testutil/mockstore"
)

func TestOpen_Empty(t *testing.T) {
	t.Parallel()
	s, err := Open(context.Background(), storage.NewMemory())
	require.NoError(t, err)

	assert.Equal(t, "", s.Credential())
	_, ok := s.PendingChallenge()
	assert.False(t, ok)
}

func TestOpen_RestoresPersistedState(t *testing.T) {
	t.Parallel()
	backing := mockstore.New(map[string]string{
		KeyCredential:   "tok-1",
		KeyPendingEmail: "a@b.com",
	})

	s, err := Open(context.Background(), backing)
	require.NoError(t, err)

	assert.Equal(t, "tok-1", s.Credential())
	assert.Equal(t, "tok-1", s.Token())
	c, ok := s.PendingChallenge()
	require.True(t, ok)
	assert.Equal(t, "a@b.com", c.PendingEmail)
}

func TestOpen_ReadFailure(t *testing.T) {
	t.Parallel()
	backing := mockstore.New(nil)
	backing.GetFunc = func(context.Context, string) (string, error) {
		return "", errors.New("disk gone")
	}

	_, err := Open(context.Background(), backing)
	assert.Error(t, err)
}

func TestOpen_UndecryptableTreatedAsAbsent(t *testing.T) {
	t.Parallel()
	backing := mockstore.New(nil)
	backing.GetFunc = func(context.Context, string) (string, error) {
		return "", storage.ErrDecryption
	}

	s, err := Open(context.Background(), backing)
	require.NoError(t, err)
	assert.False(t, s.HasCredential())
}

func TestWriteThroughSurvivesReopen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	backing := storage.NewMemory()

	s, err := Open(ctx, backing)
	require.NoError(t, err)
	require.NoError(t, s.SetCredential(ctx, "tok"))
	require.NoError(t, s.SetPendingChallenge(ctx, &Challenge{PendingEmail: "x@y.z"}))

	reopened, err := Open(ctx, backing)
	require.NoError(t, err)
	assert.Equal(t, "tok", reopened.Credential())
	c, ok := reopened.PendingChallenge()
	require.True(t, ok)
	assert.Equal(t, "x@y.z", c.PendingEmail)

	require.NoError(t, reopened.Clear(ctx))
	_, err = backing.Get(ctx, KeyCredential)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = backing.Get(ctx, KeyPendingEmail)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSetPendingChallenge_EmptyEmailClears(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, err := Open(ctx, storage.NewMemory())
	require.NoError(t, err)

	require.NoError(t, s.SetPendingChallenge(ctx, &Challenge{PendingEmail: "a@b.com"}))
	require.NoError(t, s.SetPendingChallenge(ctx, &Challenge{}))
	assert.False(t, s.HasPendingChallenge())
}

func TestFailedWriteLeavesMemoryUnchanged(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	backing := mockstore.New(map[string]string{KeyCredential: "old"})

	s, err := Open(ctx, backing)
	require.NoError(t, err)

	backing.SetFunc = func(context.Context, string, string) error {
		return errors.New("read-only")
	}
	err = s.SetCredential(ctx, "new")
	require.Error(t, err)
	assert.Equal(t, "old", s.Credential())
}
