// Package session owns the client's durable login state: the bearer
// credential and the pending one-time-passcode challenge.
//
// Store is the only reader and writer of the two storage keys. Both values
// are loaded once by Open and written through on every change, so a restarted
// process resumes exactly where the previous one stopped.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sipico/covid-counter-client/internal/storage"
)

// Storage keys.
const (
	KeyCredential   = "auth_token"
	KeyPendingEmail = "pending_otp_email"
)

// Challenge records that a login attempt needs a second factor.
type Challenge struct {
	PendingEmail string
}

// Store holds the credential and pending challenge.
type Store struct {
	mu         sync.RWMutex
	storage    storage.Storage
	credential string
	pending    *Challenge
}

// Open reads both keys from s. Missing keys and values that can no longer
// be decrypted are treated as absent.
func Open(ctx context.Context, s storage.Storage) (*Store, error) {
	credential, err := read(ctx, s, KeyCredential)
	if err != nil {
		return nil, err
	}
	email, err := read(ctx, s, KeyPendingEmail)
	if err != nil {
		return nil, err
	}

	st := &Store{storage: s, credential: credential}
	if email != "" {
		st.pending = &Challenge{PendingEmail: email}
	}
	return st, nil
}

func read(ctx context.Context, s storage.Storage, key string) (string, error) {
	v, err := s.Get(ctx, key)
	switch {
	case err == nil:
		return v, nil
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, storage.ErrDecryption):
		return "", nil
	default:
		return "", fmt.Errorf("session: failed to read %s: %w", key, err)
	}
}

// Credential returns the bearer token, or "" when logged out.
func (s *Store) Credential() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.credential
}

// Token implements api.TokenSource.
func (s *Store) Token() string {
	return s.Credential()
}

// SetCredential persists c. An empty c clears the credential.
// On a storage failure the in-memory value is left unchanged.
func (s *Store) SetCredential(ctx context.Context, c string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.write(ctx, KeyCredential, c); err != nil {
		return err
	}
	s.credential = c
	return nil
}

// PendingChallenge returns the pending challenge, if any.
func (s *Store) PendingChallenge() (Challenge, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pending == nil {
		return Challenge{}, false
	}
	return *s.pending, true
}

// SetPendingChallenge persists c, replacing any previous challenge.
// A nil c, or one with an empty email, clears it.
func (s *Store) SetPendingChallenge(ctx context.Context, c *Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := ""
	if c != nil {
		email = c.PendingEmail
	}
	if err := s.write(ctx, KeyPendingEmail, email); err != nil {
		return err
	}
	if email == "" {
		s.pending = nil
	} else {
		s.pending = &Challenge{PendingEmail: email}
	}
	return nil
}

// Clear removes both the credential and the pending challenge.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.SetPendingChallenge(ctx, nil); err != nil {
		return err
	}
	return s.SetCredential(ctx, "")
}

// HasCredential reports whether a credential is present.
func (s *Store) HasCredential() bool {
	return s.Credential() != ""
}

// HasPendingChallenge reports whether an OTP challenge is pending.
func (s *Store) HasPendingChallenge() bool {
	_, ok := s.PendingChallenge()
	return ok
}

func (s *Store) write(ctx context.Context, key, value string) error {
	var err error
	if value == "" {
		err = s.storage.Delete(ctx, key)
	} else {
		err = s.storage.Set(ctx, key, value)
	}
	if err != nil {
		return fmt.Errorf("session: failed to persist %s: %w", key, err)
	}
	return nil
}
