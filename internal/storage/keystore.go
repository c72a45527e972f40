package storage

import (
	"crypto/rand"
	"errors"
	"sync"
)

// keySize is the AES-256 key length in bytes.
const keySize = 32

// Key store errors checked with errors.Is.
var (
	// ErrPlatformNotSupported is returned when the platform has no secret
	// store with user-presence protection. There is no plaintext fallback.
	ErrPlatformNotSupported = errors.New("biometric-protected key storage is not supported on this platform")

	// ErrKeyNotFound is returned when no encryption key is present in the
	// store. Enable encryption first.
	ErrKeyNotFound = errors.New("encryption key not found in secret store")
)

// KeyStore holds the master encryption key outside the process. The
// platform implementation may prompt for user presence on every access and
// block for however long that takes.
type KeyStore interface {
	// Generate creates a fresh random key and stores it, replacing any
	// previous key.
	Generate() error

	// Key retrieves the stored key. Returns ErrKeyNotFound if none exists.
	Key() ([]byte, error)

	// Delete removes the key from the store. Deleting a missing key is
	// not an error.
	Delete() error
}

// MemoryKeyStore is an in-process KeyStore for tests and non-persistent
// use. It never prompts.
type MemoryKeyStore struct {
	mu  sync.Mutex
	key []byte
}

// NewMemoryKeyStore returns an empty in-memory key store.
func NewMemoryKeyStore() *MemoryKeyStore {
	return &MemoryKeyStore{}
}

// Generate creates and stores a fresh random 256-bit key.
func (m *MemoryKeyStore) Generate() error {
	key := make([]byte, keySize)
	if _, err := rand.Read(key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.key = key
	return nil
}

// Key returns the stored key.
func (m *MemoryKeyStore) Key() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.key == nil {
		return nil, ErrKeyNotFound
	}
	out := make([]byte, len(m.key))
	copy(out, m.key)
	return out, nil
}

// Delete removes the stored key.
func (m *MemoryKeyStore) Delete() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.key = nil
	return nil
}
