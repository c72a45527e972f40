// Package storage maps the bookmark document to and from its single file
// on disk, optionally wrapping the bytes in an AES-256-GCM envelope whose
// key lives in a platform secret store.
//
// Two on-disk shapes exist: the plaintext JSON document, or the encryption
// envelope. Readers detect which is present by attempting a strict parse of
// the envelope shape and treating failure as "not encrypted".
package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/webtags/native-host/internal/bookmarks"
)

// ErrEncryptedFile is returned when the stored file is encrypted but the
// caller has not enabled encryption.
var ErrEncryptedFile = errors.New("bookmarks file is encrypted but encryption is not enabled")

// Store reads and writes the bookmark document file.
type Store struct {
	keys KeyStore
	log  *zap.Logger
}

// NewStore returns a Store using the given key store for envelope keys.
func NewStore(keys KeyStore, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{keys: keys, log: log}
}

// parseEnvelope attempts a strict decode of the envelope shape. The
// plaintext document carries fields (jsonapi, data) the envelope does not,
// so DisallowUnknownFields cleanly rejects it.
func parseEnvelope(content []byte) (*Envelope, bool) {
	dec := json.NewDecoder(bytes.NewReader(content))
	dec.DisallowUnknownFields()

	var env Envelope
	if err := dec.Decode(&env); err != nil {
		return nil, false
	}
	if env.Version == "" || env.Algorithm == "" {
		return nil, false
	}
	return &env, true
}

// IsEncrypted reports whether the file at path is an envelope with its
// encrypted flag set. A missing or unparseable file is simply not
// encrypted; this never returns an error to the caller.
func (s *Store) IsEncrypted(path string) bool {
	content, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	env, ok := parseEnvelope(content)
	return ok && env.Encrypted
}

// ReadDocument loads, optionally decrypts, decodes, and validates the
// document at path. Reading an encrypted file without encryption enabled
// fails with ErrEncryptedFile.
func (s *Store) ReadDocument(path string, encryptionEnabled bool) (*bookmarks.Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read bookmarks file: %w", err)
	}

	if env, ok := parseEnvelope(content); ok && env.Encrypted {
		if !encryptionEnabled {
			return nil, ErrEncryptedFile
		}
		enc := NewEncryptor(true, s.keys)
		content, err = enc.Decrypt(env)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt bookmarks file: %w", err)
		}
	}

	var doc bookmarks.Document
	if err := json.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse bookmarks JSON: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	return &doc, nil
}

// WriteDocument validates, serializes, optionally encrypts, and atomically
// replaces the document file at path.
func (s *Store) WriteDocument(path string, doc *bookmarks.Document, encryptionEnabled bool) error {
	if err := doc.Validate(); err != nil {
		return err
	}

	content, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize bookmarks data: %w", err)
	}

	if encryptionEnabled {
		enc := NewEncryptor(true, s.keys)
		env, err := enc.Encrypt(content)
		if err != nil {
			return err
		}
		content, err = json.MarshalIndent(env, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to serialize envelope: %w", err)
		}
	}

	if err := atomicWrite(path, content); err != nil {
		return err
	}

	if encryptionEnabled {
		s.log.Info("bookmarks written", zap.String("mode", "encrypted"))
	} else {
		s.log.Info("bookmarks written", zap.String("mode", "plaintext"))
	}
	return nil
}

// EnableEncryption generates a fresh key and re-encrypts the file at path
// in place. An already-encrypted file is left untouched and no key is
// generated (no-op, not an error).
func (s *Store) EnableEncryption(path string) error {
	if s.IsEncrypted(path) {
		return nil
	}

	// Load any existing plaintext document before the key swap so a
	// validation failure aborts the transition cleanly.
	var doc *bookmarks.Document
	if _, err := os.Stat(path); err == nil {
		doc, err = s.ReadDocument(path, false)
		if err != nil {
			return err
		}
	}

	if err := s.keys.Generate(); err != nil {
		return err
	}

	if doc != nil {
		if err := s.WriteDocument(path, doc, true); err != nil {
			return err
		}
	}

	s.log.Info("encryption enabled", zap.String("path", path))
	return nil
}

// DisableEncryption decrypts the file at path back to plaintext and
// removes the key from the secret store. A plaintext file is a no-op. A
// key deletion failure is logged and tolerated so the user is never locked
// out of the already-decrypted file; the stale key may linger in the store.
func (s *Store) DisableEncryption(path string) error {
	if !s.IsEncrypted(path) {
		return nil
	}

	doc, err := s.ReadDocument(path, true)
	if err != nil {
		return err
	}
	if err := s.WriteDocument(path, doc, false); err != nil {
		return err
	}

	if err := s.keys.Delete(); err != nil {
		s.log.Warn("failed to delete encryption key from secret store", zap.Error(err))
	}

	s.log.Info("encryption disabled", zap.String("path", path))
	return nil
}

// atomicWrite writes content to a sibling temporary path and renames it
// onto path, so no reader ever observes a partial file.
func atomicWrite(path string, content []byte) error {
	tmp := strings.TrimSuffix(path, filepath.Ext(path)) + ".tmp"
	if err := os.WriteFile(tmp, content, 0o600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to rename temp file to target: %w", err)
	}
	return nil
}
