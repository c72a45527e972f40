package vcs

import (
	"fmt"
	"regexp"
)

// URLScheme identifies how a git remote is addressed.
type URLScheme int

const (
	// URLUnknown is any string neither pattern recognizes, including
	// plain filesystem paths.
	URLUnknown URLScheme = iota
	URLSSH
	URLHTTPS
)

// SSH remotes come in two shapes: scp-like git@host:path and full
// ssh://git@host/path URLs.
var sshURLPattern = regexp.MustCompile(`^(?:ssh://git@([^/]+)/(.+?)|git@([^:]+):(.+?))(?:\.git)?$`)

var httpsURLPattern = regexp.MustCompile(`^https?://([^/]+)/(.+?)(?:\.git)?$`)

// ClassifyURL reports which scheme a remote URL uses. HTTPS is checked
// first since its pattern is the more specific of the two.
func ClassifyURL(url string) URLScheme {
	if httpsURLPattern.MatchString(url) {
		return URLHTTPS
	}
	if sshURLPattern.MatchString(url) {
		return URLSSH
	}
	return URLUnknown
}

// ParseURLScheme is ClassifyURL with an error for unrecognized input.
func ParseURLScheme(url string) (URLScheme, error) {
	scheme := ClassifyURL(url)
	if scheme == URLUnknown {
		return URLUnknown, fmt.Errorf("%w: %s", ErrInvalidURL, url)
	}
	return scheme, nil
}

// ConvertSSHToHTTPS rewrites an SSH remote URL to its HTTPS equivalent,
// always with a .git suffix:
//
//	git@github.com:user/repo.git  -> https://github.com/user/repo.git
//	ssh://git@github.com/user/repo -> https://github.com/user/repo.git
func ConvertSSHToHTTPS(url string) (string, error) {
	m := sshURLPattern.FindStringSubmatch(url)
	if m == nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidURL, url)
	}
	host, path := m[1], m[2]
	if host == "" {
		host, path = m[3], m[4]
	}
	return fmt.Sprintf("https://%s/%s.git", host, path), nil
}

// ConvertHTTPSToSSH rewrites an HTTPS remote URL to scp-like SSH form,
// always with a .git suffix:
//
//	https://github.com/user/repo.git -> git@github.com:user/repo.git
//	https://gitlab.com/user/repo     -> git@gitlab.com:user/repo.git
func ConvertHTTPSToSSH(url string) (string, error) {
	m := httpsURLPattern.FindStringSubmatch(url)
	if m == nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidURL, url)
	}
	return fmt.Sprintf("git@%s:%s.git", m[1], m[2]), nil
}
