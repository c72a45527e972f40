//go:build !darwin

package storage

// NewPlatformKeyStore fails on platforms without a user-presence gated
// secret store. Encryption never silently falls back to a weaker store.
func NewPlatformKeyStore() (KeyStore, error) {
	return nil, ErrPlatformNotSupported
}
