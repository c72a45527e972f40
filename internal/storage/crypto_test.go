package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
)

func readyKeyStore(t *testing.T) *MemoryKeyStore {
	t.Helper()
	keys := NewMemoryKeyStore()
	if err := keys.Generate(); err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}
	return keys
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	enc := NewEncryptor(true, readyKeyStore(t))
	plaintext := []byte(`{"jsonapi":{"version":"1.1"},"data":[]}`)

	env, err := enc.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt() failed: %v", err)
	}

	if env.Version != EnvelopeVersion {
		t.Errorf("envelope version = %q, want %q", env.Version, EnvelopeVersion)
	}
	if !env.Encrypted {
		t.Error("envelope encrypted flag is false")
	}
	if env.Algorithm != Algorithm {
		t.Errorf("envelope algorithm = %q, want %q", env.Algorithm, Algorithm)
	}
	if len(env.Nonce) != NonceSize {
		t.Errorf("nonce is %d bytes, want %d", len(env.Nonce), NonceSize)
	}

	got, err := enc.Decrypt(env)
	if err != nil {
		t.Fatalf("Decrypt() failed: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("Decrypt() = %q, want %q", got, plaintext)
	}
}

func TestEncryptFreshNoncePerCall(t *testing.T) {
	enc := NewEncryptor(true, readyKeyStore(t))
	plaintext := []byte("same plaintext")

	a, err := enc.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt() failed: %v", err)
	}
	b, err := enc.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt() failed: %v", err)
	}

	if bytes.Equal(a.Nonce, b.Nonce) {
		t.Error("two encryptions reused a nonce")
	}
	if bytes.Equal(a.Ciphertext, b.Ciphertext) {
		t.Error("two encryptions of the same plaintext produced identical ciphertext")
	}
}

func TestEncryptDisabled(t *testing.T) {
	enc := NewEncryptor(false, readyKeyStore(t))

	if _, err := enc.Encrypt([]byte("data")); !errors.Is(err, ErrEncryptionDisabled) {
		t.Errorf("Encrypt() = %v, want ErrEncryptionDisabled", err)
	}
}

func TestEncryptMissingKey(t *testing.T) {
	enc := NewEncryptor(true, NewMemoryKeyStore())

	if _, err := enc.Encrypt([]byte("data")); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("Encrypt() = %v, want ErrKeyNotFound", err)
	}
}

func TestDecryptShapeErrors(t *testing.T) {
	// The key store is empty on purpose: shape errors must surface before
	// any key retrieval is attempted.
	enc := NewEncryptor(true, NewMemoryKeyStore())

	tests := []struct {
		name string
		env  Envelope
		want error
	}{
		{
			name: "not encrypted",
			env:  Envelope{Version: "1", Encrypted: false, Algorithm: Algorithm, Nonce: make([]byte, NonceSize)},
			want: ErrNotEncrypted,
		},
		{
			name: "unsupported algorithm",
			env:  Envelope{Version: "1", Encrypted: true, Algorithm: "AES-128-CBC", Nonce: make([]byte, NonceSize)},
			want: ErrUnsupportedAlgorithm,
		},
		{
			name: "wrong nonce size",
			env:  Envelope{Version: "1", Encrypted: true, Algorithm: Algorithm, Nonce: []byte{1, 2, 3}},
			want: ErrInvalidNonce,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := enc.Decrypt(&tt.env); !errors.Is(err, tt.want) {
				t.Errorf("Decrypt() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDecryptTamperedCiphertext(t *testing.T) {
	enc := NewEncryptor(true, readyKeyStore(t))

	env, err := enc.Encrypt([]byte("authentic data"))
	if err != nil {
		t.Fatalf("Encrypt() failed: %v", err)
	}
	env.Ciphertext[0] ^= 0xff

	if _, err := enc.Decrypt(env); !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("Decrypt() = %v, want ErrDecryptionFailed", err)
	}
}

func TestDecryptWrongKey(t *testing.T) {
	keysA := readyKeyStore(t)
	env, err := NewEncryptor(true, keysA).Encrypt([]byte("data"))
	if err != nil {
		t.Fatalf("Encrypt() failed: %v", err)
	}

	keysB := readyKeyStore(t)
	if _, err := NewEncryptor(true, keysB).Decrypt(env); !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("Decrypt() with wrong key = %v, want ErrDecryptionFailed", err)
	}
}

func TestEnvelopeJSONRoundTrip(t *testing.T) {
	env := Envelope{
		Version:    "1",
		Encrypted:  true,
		Algorithm:  Algorithm,
		Nonce:      []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11},
		Ciphertext: []byte{255, 254, 253},
	}

	data, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("Marshal() failed: %v", err)
	}

	// Binary fields must serialize as base64 strings.
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal() to map failed: %v", err)
	}
	if _, ok := raw["nonce"].(string); !ok {
		t.Errorf("nonce serialized as %T, want base64 string", raw["nonce"])
	}

	var parsed Envelope
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("Unmarshal() failed: %v", err)
	}
	if !bytes.Equal(parsed.Nonce, env.Nonce) || !bytes.Equal(parsed.Ciphertext, env.Ciphertext) {
		t.Error("binary fields changed in round trip")
	}
}
