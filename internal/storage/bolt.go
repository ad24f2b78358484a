package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

const boltBucketSession = "session" // key: storage key -> value

// BoltStorage implements Storage on a single bbolt bucket.
type BoltStorage struct {
	db *bbolt.DB
}

// NewBolt opens (or creates) the bbolt database at path.
func NewBolt(path string) (*BoltStorage, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database: %w", err)
	}

	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(boltBucketSession))
		return err
	}); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	return &BoltStorage{db: db}, nil
}

// Get returns the value stored under key.
func (b *BoltStorage) Get(_ context.Context, key string) (string, error) {
	var value string
	err := b.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(boltBucketSession)).Get([]byte(key))
		if v == nil {
			return ErrNotFound
		}
		// v is only valid inside the transaction
		value = string(v)
		return nil
	})
	if err != nil {
		return "", err
	}
	return value, nil
}

// Set stores value under key.
func (b *BoltStorage) Set(_ context.Context, key, value string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(boltBucketSession)).Put([]byte(key), []byte(value))
	})
}

// Delete removes key.
func (b *BoltStorage) Delete(_ context.Context, key string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(boltBucketSession)).Delete([]byte(key))
	})
}

// Ping opens a read transaction.
func (b *BoltStorage) Ping(_ context.Context) error {
	return b.db.View(func(tx *bbolt.Tx) error {
		return nil
	})
}

// Close closes the database file.
func (b *BoltStorage) Close() error {
	return b.db.Close()
}
