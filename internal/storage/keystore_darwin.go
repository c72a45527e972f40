//go:build darwin

package storage

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os/exec"
	"strings"
)

const (
	keychainService = "com.webtags.encryption"
	keychainAccount = "master-key"
)

// KeychainStore keeps the master key in the macOS Keychain with an empty
// trusted-application list, so every read triggers a user-presence (Touch
// ID or password) prompt. The key is stored base64-encoded.
type KeychainStore struct{}

// NewPlatformKeyStore returns the macOS Keychain-backed key store.
func NewPlatformKeyStore() (KeyStore, error) {
	return &KeychainStore{}, nil
}

// Generate creates a fresh random 256-bit key and stores it in the
// Keychain, replacing any previous key.
func (k *KeychainStore) Generate() error {
	key := make([]byte, keySize)
	if _, err := rand.Read(key); err != nil {
		return fmt.Errorf("failed to generate key: %w", err)
	}

	// Drop any existing item first so the access control list is rebuilt.
	_ = k.Delete()

	// -T "" leaves the trusted-application list empty, which forces
	// authentication on every access.
	cmd := exec.Command("security", "add-generic-password",
		"-a", keychainAccount,
		"-s", keychainService,
		"-w", base64.StdEncoding.EncodeToString(key),
		"-T", "",
		"-U")

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("failed to store key in Keychain: %w\n%s", err, string(output))
	}

	return nil
}

// Key retrieves the master key from the Keychain. This may prompt for
// Touch ID or the login password and block until the user responds.
func (k *KeychainStore) Key() ([]byte, error) {
	cmd := exec.Command("security", "find-generic-password",
		"-a", keychainAccount,
		"-s", keychainService,
		"-w")

	output, err := cmd.Output()
	if err != nil {
		return nil, ErrKeyNotFound
	}

	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(output)))
	if err != nil {
		return nil, fmt.Errorf("failed to decode stored key: %w", err)
	}
	if len(key) != keySize {
		return nil, fmt.Errorf("stored key has invalid size %d", len(key))
	}

	return key, nil
}

// Delete removes the master key from the Keychain. A missing item is not
// an error.
func (k *KeychainStore) Delete() error {
	cmd := exec.Command("security", "delete-generic-password",
		"-a", keychainAccount,
		"-s", keychainService)

	if output, err := cmd.CombinedOutput(); err != nil {
		if strings.Contains(string(output), "could not be found") {
			return nil
		}
		return fmt.Errorf("failed to delete key from Keychain: %w\n%s", err, string(output))
	}

	return nil
}
