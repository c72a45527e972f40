package github

import (
	"errors"
	"fmt"
	"sync"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "com.webtags.github"
	keyringUser    = "github_token"
)

// ErrTokenNotFound is returned when no token has been stored yet.
var ErrTokenNotFound = errors.New("no GitHub token stored")

// TokenStore persists the GitHub access token between host sessions.
type TokenStore interface {
	// Set stores the token, replacing any previous one.
	Set(token string) error

	// Token returns the stored token, or ErrTokenNotFound.
	Token() (string, error)

	// Delete removes the stored token. Deleting an absent token is not
	// an error.
	Delete() error
}

// KeyringStore keeps the token in the operating system keyring under a
// fixed service and account name.
type KeyringStore struct{}

// NewKeyringStore returns the OS-keyring backed store.
func NewKeyringStore() *KeyringStore {
	return &KeyringStore{}
}

func (s *KeyringStore) Set(token string) error {
	if err := keyring.Set(keyringService, keyringUser, token); err != nil {
		return fmt.Errorf("failed to store token in keyring: %w", err)
	}
	return nil
}

func (s *KeyringStore) Token() (string, error) {
	token, err := keyring.Get(keyringService, keyringUser)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrTokenNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read token from keyring: %w", err)
	}
	return token, nil
}

func (s *KeyringStore) Delete() error {
	err := keyring.Delete(keyringService, keyringUser)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete token from keyring: %w", err)
	}
	return nil
}

// MemoryTokenStore is an in-memory TokenStore for tests and for platforms
// without a usable keyring.
type MemoryTokenStore struct {
	mu    sync.Mutex
	token string
	set   bool
}

func (s *MemoryTokenStore) Set(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token, s.set = token, true
	return nil
}

func (s *MemoryTokenStore) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.set {
		return "", ErrTokenNotFound
	}
	return s.token, nil
}

func (s *MemoryTokenStore) Delete() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token, s.set = "", false
	return nil
}
