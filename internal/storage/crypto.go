package storage

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

const (
	// EnvelopeVersion is the on-disk envelope format version.
	EnvelopeVersion = "1"

	// Algorithm identifies the one supported authenticated cipher.
	Algorithm = "AES-256-GCM"

	// NonceSize is the AES-GCM nonce length in bytes.
	NonceSize = 12
)

// Cryptographic errors checked with errors.Is.
var (
	// ErrEncryptionDisabled is returned when encrypt or decrypt is called
	// without encryption enabled.
	ErrEncryptionDisabled = errors.New("encryption is not enabled")

	// ErrNotEncrypted is returned when decrypt is handed an envelope whose
	// encrypted flag is false.
	ErrNotEncrypted = errors.New("data is not encrypted")

	// ErrUnsupportedAlgorithm is returned before any cryptographic attempt
	// when the envelope declares an algorithm other than Algorithm.
	ErrUnsupportedAlgorithm = errors.New("unsupported encryption algorithm")

	// ErrInvalidNonce is returned when the envelope nonce is not NonceSize
	// bytes.
	ErrInvalidNonce = errors.New("invalid nonce size")

	// ErrDecryptionFailed is returned when the authentication tag does not
	// verify (tampered or wrong-key ciphertext).
	ErrDecryptionFailed = errors.New("decryption failed")
)

// base64Bytes marshals binary fields as standard base64 strings.
type base64Bytes []byte

func (b base64Bytes) MarshalJSON() ([]byte, error) {
	return json.Marshal(base64.StdEncoding.EncodeToString(b))
}

func (b *base64Bytes) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	decoded, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return err
	}
	*b = decoded
	return nil
}

// Envelope is the on-disk wrapper around encrypted document bytes.
type Envelope struct {
	Version    string      `json:"version"`
	Encrypted  bool        `json:"encrypted"`
	Algorithm  string      `json:"algorithm"`
	Nonce      base64Bytes `json:"nonce"`
	Ciphertext base64Bytes `json:"ciphertext"`
}

// Encryptor performs AES-256-GCM sealing and opening with the key held in
// a KeyStore. Key retrieval may prompt for user presence.
type Encryptor struct {
	enabled bool
	keys    KeyStore
}

// NewEncryptor returns an Encryptor gated by the enabled flag.
func NewEncryptor(enabled bool, keys KeyStore) *Encryptor {
	return &Encryptor{enabled: enabled, keys: keys}
}

// Enabled reports whether encryption is active.
func (e *Encryptor) Enabled() bool {
	return e.enabled
}

// Encrypt seals plaintext under a fresh random nonce and returns the
// envelope. A nonce is never reused: every call draws NonceSize bytes from
// crypto/rand.
func (e *Encryptor) Encrypt(plaintext []byte) (*Envelope, error) {
	if !e.enabled {
		return nil, ErrEncryptionDisabled
	}

	key, err := e.keys.Key()
	if err != nil {
		return nil, err
	}

	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return &Envelope{
		Version:    EnvelopeVersion,
		Encrypted:  true,
		Algorithm:  Algorithm,
		Nonce:      nonce,
		Ciphertext: aead.Seal(nil, nonce, plaintext, nil),
	}, nil
}

// Decrypt opens an envelope. Envelope shape errors (not encrypted, wrong
// algorithm, bad nonce size) are reported before the key is touched, so no
// user-presence prompt fires for garbage input.
func (e *Encryptor) Decrypt(env *Envelope) ([]byte, error) {
	if !e.enabled {
		return nil, ErrEncryptionDisabled
	}
	if !env.Encrypted {
		return nil, ErrNotEncrypted
	}
	if env.Algorithm != Algorithm {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, env.Algorithm)
	}
	if len(env.Nonce) != NonceSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidNonce, len(env.Nonce))
	}

	key, err := e.keys.Key()
	if err != nil {
		return nil, err
	}

	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Open(nil, env.Nonce, env.Ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	return plaintext, nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return aead, nil
}
