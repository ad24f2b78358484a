// Package storage provides the durable key/value store that keeps client
// session state across restarts.
package storage

import (
	"context"
	"fmt"
)

// Storage is a durable string key/value store.
//
// Get returns ErrNotFound for keys that have never been set or were deleted.
// Delete of an absent key is not an error.
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error

	// Lifecycle
	Close() error
}

// Backend names accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendBolt   = "bolt"
	BackendMemory = "memory"
)

// Options selects and configures a storage backend.
type Options struct {
	Backend string
	Path    string

	// EncryptionKey enables AES-256-GCM encryption of stored values when
	// non-empty. It must be exactly 32 bytes.
	EncryptionKey []byte
}

// Open creates the backend described by opts, wrapping it with value
// encryption when an encryption key is configured.
func Open(opts Options) (Storage, error) {
	var (
		s   Storage
		err error
	)

	switch opts.Backend {
	case BackendSQLite, "":
		s, err = NewSQLite(opts.Path)
	case BackendBolt:
		s, err = NewBolt(opts.Path)
	case BackendMemory:
		s = NewMemory()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
	if err != nil {
		return nil, err
	}

	if len(opts.EncryptionKey) == 0 {
		return s, nil
	}

	enc, err := NewEncrypted(s, opts.EncryptionKey)
	if err != nil {
		_ = s.Close() //nolint:errcheck
		return nil, err
	}
	return enc, nil
}
