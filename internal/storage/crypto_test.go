package storage

import (
	"context"
	"strings"
	"testing"
)

func TestEncryptDecryptValue(t *testing.T) {
	encryptionKey := []byte("this-is-a-32-byte-key-for-aes!!!")

	tests := []struct {
		name      string
		value     string
		key       []byte
		wantError error
	}{
		{name: "round trip", value: "eyJhbGciOiJIUzI1NiJ9.payload.sig", key: encryptionKey},
		{name: "empty value", value: "", key: encryptionKey},
		{name: "special characters", value: "user+tag@example.com", key: encryptionKey},
		{name: "short key", value: "x", key: []byte("short-key"), wantError: ErrInvalidKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := EncryptValue(tt.value, tt.key)
			if tt.wantError != nil {
				if err != tt.wantError {
					t.Fatalf("EncryptValue() error = %v, want %v", err, tt.wantError)
				}
				return
			}
			if err != nil {
				t.Fatalf("EncryptValue() error = %v", err)
			}
			if tt.value != "" && strings.Contains(enc, tt.value) {
				t.Errorf("ciphertext contains plaintext")
			}

			got, err := DecryptValue(enc, tt.key)
			if err != nil {
				t.Fatalf("DecryptValue() error = %v", err)
			}
			if got != tt.value {
				t.Errorf("DecryptValue() = %q, want %q", got, tt.value)
			}
		})
	}
}

func TestDecryptValue_WrongKey(t *testing.T) {
	key1 := []byte("this-is-a-32-byte-key-for-aes!!!")
	key2 := []byte("another-32-byte-key-for-aes-256!")

	enc, err := EncryptValue("secret", key1)
	if err != nil {
		t.Fatalf("EncryptValue() error = %v", err)
	}

	if _, err := DecryptValue(enc, key2); err != ErrDecryption {
		t.Errorf("DecryptValue() with wrong key error = %v, want ErrDecryption", err)
	}
	if _, err := DecryptValue("not-hex", key1); err != ErrDecryption {
		t.Errorf("DecryptValue() with garbage error = %v, want ErrDecryption", err)
	}
	if _, err := DecryptValue("abcd", key1); err != ErrDecryption {
		t.Errorf("DecryptValue() with short input error = %v, want ErrDecryption", err)
	}
}

func TestParseKey(t *testing.T) {
	if _, err := ParseKey(strings.Repeat("ab", 32)); err != nil {
		t.Errorf("ParseKey(valid) error = %v", err)
	}
	if _, err := ParseKey("abcd"); err != ErrInvalidKey {
		t.Errorf("ParseKey(short) error = %v, want ErrInvalidKey", err)
	}
	if _, err := ParseKey(strings.Repeat("zz", 32)); err != ErrInvalidKey {
		t.Errorf("ParseKey(non-hex) error = %v, want ErrInvalidKey", err)
	}
}

func TestEncryptedStorage_StoresCiphertext(t *testing.T) {
	ctx := context.Background()
	inner := NewMemory()
	key := []byte("this-is-a-32-byte-key-for-aes!!!")

	s, err := NewEncrypted(inner, key)
	if err != nil {
		t.Fatalf("NewEncrypted() error = %v", err)
	}
	if err := s.Set(ctx, "auth_token", "plain-token"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	raw, err := inner.Get(ctx, "auth_token")
	if err != nil {
		t.Fatalf("inner Get() error = %v", err)
	}
	if raw == "plain-token" {
		t.Errorf("inner store holds plaintext")
	}

	got, err := s.Get(ctx, "auth_token")
	if err != nil || got != "plain-token" {
		t.Errorf("Get() = %q, %v; want plain-token", got, err)
	}
}
