package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]func(t *testing.T) Storage {
	t.Helper()
	return map[string]func(t *testing.T) Storage{
		"sqlite": func(t *testing.T) Storage {
			s, err := NewSQLite(":memory:")
			require.NoError(t, err)
			return s
		},
		"bolt": func(t *testing.T) Storage {
			s, err := NewBolt(filepath.Join(t.TempDir(), "client.bolt"))
			require.NoError(t, err)
			return s
		},
		"memory": func(t *testing.T) Storage {
			return NewMemory()
		},
		"encrypted": func(t *testing.T) Storage {
			s, err := NewEncrypted(NewMemory(), []byte("this-is-a-32-byte-key-for-aes!!!"))
			require.NoError(t, err)
			return s
		},
	}
}

func TestStorageContract(t *testing.T) {
	t.Parallel()
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			s := open(t)
			defer func() { _ = s.Close() }()
			ctx := context.Background()

			_, err := s.Get(ctx, "auth_token")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.Set(ctx, "auth_token", "abc"))
			v, err := s.Get(ctx, "auth_token")
			require.NoError(t, err)
			assert.Equal(t, "abc", v)

			require.NoError(t, s.Set(ctx, "auth_token", "def"))
			v, err = s.Get(ctx, "auth_token")
			require.NoError(t, err)
			assert.Equal(t, "def", v)

			require.NoError(t, s.Delete(ctx, "auth_token"))
			_, err = s.Get(ctx, "auth_token")
			assert.ErrorIs(t, err, ErrNotFound)

			// deleting an absent key is a no-op
			assert.NoError(t, s.Delete(ctx, "auth_token"))
			assert.NoError(t, Ping(ctx, s))
		})
	}
}

func TestSQLite_SurvivesReopen(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nested", "client.db")
	ctx := context.Background()

	s, err := NewSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "pending_otp_email", "a@b.co"))
	require.NoError(t, s.Close())

	s, err = NewSQLite(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	v, err := s.Get(ctx, "pending_otp_email")
	require.NoError(t, err)
	assert.Equal(t, "a@b.co", v)
}

func TestBolt_SurvivesReopen(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "client.bolt")
	ctx := context.Background()

	s, err := NewBolt(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "auth_token", "tok"))
	require.NoError(t, s.Close())

	s, err = NewBolt(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	v, err := s.Get(ctx, "auth_token")
	require.NoError(t, err)
	assert.Equal(t, "tok", v)
}

func TestMemory_ClosedRejectsUse(t *testing.T) {
	t.Parallel()
	s := NewMemory()
	require.NoError(t, s.Close())

	err := s.Set(context.Background(), "k", "v")
	if !errors.Is(err, ErrClosed) {
		t.Errorf("Set after Close = %v, want ErrClosed", err)
	}
}

func TestOpen(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		opts    Options
		wantErr error
	}{
		{"memory", Options{Backend: BackendMemory}, nil},
		{"sqlite default", Options{Path: filepath.Join(t.TempDir(), "a.db")}, nil},
		{"bolt", Options{Backend: BackendBolt, Path: filepath.Join(t.TempDir(), "a.bolt")}, nil},
		{"encrypted", Options{Backend: BackendMemory, EncryptionKey: make([]byte, 32)}, nil},
		{"bad key", Options{Backend: BackendMemory, EncryptionKey: []byte("short")}, ErrInvalidKey},
		{"unknown", Options{Backend: "redis"}, ErrUnknownBackend},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Open(tt.opts)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NoError(t, s.Close())
		})
	}
}
