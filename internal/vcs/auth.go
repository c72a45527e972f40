package vcs

import (
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	gitssh "github.com/go-git/go-git/v5/plumbing/transport/ssh"
)

// AuthProvider resolves the credential method to use for a remote URL.
// Returning a nil method with a nil error means anonymous access, which is
// what local filesystem remotes use.
type AuthProvider interface {
	Method(url string) (transport.AuthMethod, error)
}

// TokenFunc supplies a bearer token for HTTPS remotes. The second return
// reports whether a token is available.
type TokenFunc func() (string, bool)

// CredentialHelper picks credentials by URL scheme: the SSH agent for SSH
// remotes and a stored token for HTTPS remotes. When neither applies the
// remote is tried anonymously rather than failing up front, so public
// reads still work without any credential configured.
type CredentialHelper struct {
	token TokenFunc
}

// NewCredentialHelper returns a helper backed by the given token source.
// A nil token source disables HTTPS token auth.
func NewCredentialHelper(token TokenFunc) *CredentialHelper {
	return &CredentialHelper{token: token}
}

// Method implements AuthProvider.
func (c *CredentialHelper) Method(url string) (transport.AuthMethod, error) {
	switch ClassifyURL(url) {
	case URLSSH:
		auth, err := gitssh.NewSSHAgentAuth("git")
		if err != nil {
			// No agent running; let the transport try without one.
			return nil, nil
		}
		return auth, nil
	case URLHTTPS:
		if c.token != nil {
			if tok, ok := c.token(); ok {
				// Any non-empty username works for token auth over HTTPS.
				return &githttp.BasicAuth{Username: "git", Password: tok}, nil
			}
		}
		return nil, nil
	default:
		return nil, nil
	}
}

// anonymousAuth never supplies credentials. Local and public remotes need
// none.
type anonymousAuth struct{}

func (anonymousAuth) Method(string) (transport.AuthMethod, error) { return nil, nil }
