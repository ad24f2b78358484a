package storage

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"io"
)

// ParseKey decodes a hex-encoded 32-byte encryption key.
func ParseKey(hexKey string) ([]byte, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil || len(key) != 32 {
		return nil, ErrInvalidKey
	}
	return key, nil
}

// EncryptValue encrypts a stored value using AES-256-GCM.
// The encryptionKey must be exactly 32 bytes.
// Returns hex-encoded nonce+ciphertext concatenated.
func EncryptValue(value string, encryptionKey []byte) (string, error) {
	if len(encryptionKey) != 32 {
		return "", ErrInvalidKey
	}

	// Create cipher (safe because key size is already validated)
	block, _ := aes.NewCipher(encryptionKey) //nolint:errcheck
	gcm, _ := cipher.NewGCM(block)           //nolint:errcheck

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(value), nil)

	return hex.EncodeToString(ciphertext), nil
}

// DecryptValue decrypts a value produced by EncryptValue with the same key.
func DecryptValue(encrypted string, encryptionKey []byte) (string, error) {
	if len(encryptionKey) != 32 {
		return "", ErrInvalidKey
	}

	ciphertext, err := hex.DecodeString(encrypted)
	if err != nil {
		return "", ErrDecryption
	}

	block, _ := aes.NewCipher(encryptionKey) //nolint:errcheck
	gcm, _ := cipher.NewGCM(block)           //nolint:errcheck

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return "", ErrDecryption
	}

	plaintext, err := gcm.Open(nil, ciphertext[:nonceSize], ciphertext[nonceSize:], nil)
	if err != nil {
		return "", ErrDecryption
	}

	return string(plaintext), nil
}

// EncryptedStorage encrypts values before handing them to the wrapped store.
// Keys are stored in clear so lookups stay exact.
type EncryptedStorage struct {
	inner Storage
	key   []byte
}

// NewEncrypted wraps inner with AES-256-GCM value encryption.
func NewEncrypted(inner Storage, key []byte) (*EncryptedStorage, error) {
	if len(key) != 32 {
		return nil, ErrInvalidKey
	}
	return &EncryptedStorage{inner: inner, key: key}, nil
}

func (e *EncryptedStorage) Get(ctx context.Context, key string) (string, error) {
	v, err := e.inner.Get(ctx, key)
	if err != nil {
		return "", err
	}
	return DecryptValue(v, e.key)
}

func (e *EncryptedStorage) Set(ctx context.Context, key, value string) error {
	enc, err := EncryptValue(value, e.key)
	if err != nil {
		return err
	}
	return e.inner.Set(ctx, key, enc)
}

func (e *EncryptedStorage) Delete(ctx context.Context, key string) error {
	return e.inner.Delete(ctx, key)
}

// Ping forwards to the wrapped store.
func (e *EncryptedStorage) Ping(ctx context.Context) error {
	return Ping(ctx, e.inner)
}

func (e *EncryptedStorage) Close() error {
	return e.inner.Close()
}
