// Package vcs wraps a local git working tree and drives the bounded set of
// synchronization actions the host needs: stage-and-commit of the storage
// file, push, and pull with a fixed "theirs" auto-merge policy against one
// remote ("origin") and one branch ("main").
//
// The implementation is built on go-git, so no git binary is required on
// the machine. Credentials are delegated to an AuthProvider; the engine
// never stores credentials itself.
package vcs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const (
	// DefaultRemote is the single remote name the engine operates on.
	DefaultRemote = "origin"

	// DefaultBranch is the single branch the engine tracks.
	DefaultBranch = "main"

	// Fallback identity used when no author is configured in the
	// environment.
	fallbackName  = "WebTags User"
	fallbackEmail = "webtags@localhost"
)

// Repo is an open handle to a version-controlled working tree. It holds no
// state beyond the handle itself; every operation reads the repository
// fresh.
type Repo struct {
	repo *git.Repository
	path string
	auth AuthProvider
}

// Open opens the git repository at path, initializing a new one with a
// "main" default branch if none exists. Idempotent.
func Open(path string, auth AuthProvider) (*Repo, error) {
	if auth == nil {
		auth = anonymousAuth{}
	}

	repo, err := git.PlainOpen(path)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		if mkErr := os.MkdirAll(path, 0o755); mkErr != nil {
			return nil, fmt.Errorf("failed to create repository directory: %w", mkErr)
		}
		repo, err = git.PlainInitWithOptions(path, &git.PlainInitOptions{
			InitOptions: git.InitOptions{
				DefaultBranch: plumbing.NewBranchReferenceName(DefaultBranch),
			},
		})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}

	return &Repo{repo: repo, path: path, auth: auth}, nil
}

// CloneFrom materializes a new working tree at path by fetching the full
// history from url. The target must not already contain files.
func CloneFrom(ctx context.Context, url, path string, auth AuthProvider) (*Repo, error) {
	if auth == nil {
		auth = anonymousAuth{}
	}

	if entries, err := os.ReadDir(path); err == nil && len(entries) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrTargetNotEmpty, path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create parent directories: %w", err)
	}

	method, err := auth.Method(url)
	if err != nil {
		return nil, err
	}

	repo, err := git.PlainCloneContext(ctx, path, false, &git.CloneOptions{
		URL:  url,
		Auth: method,
	})
	if err != nil {
		return nil, classifyTransportError(err, fmt.Errorf("failed to clone repository: %w", err))
	}

	return &Repo{repo: repo, path: path, auth: auth}, nil
}

// Path returns the working tree path.
func (r *Repo) Path() string {
	return r.path
}

// HasRemote reports whether the named remote is configured.
func (r *Repo) HasRemote(name string) bool {
	_, err := r.repo.Remote(name)
	return err == nil
}

// AddRemote configures a new remote.
func (r *Repo) AddRemote(name, url string) error {
	_, err := r.repo.CreateRemote(&config.RemoteConfig{
		Name: name,
		URLs: []string{url},
	})
	if err != nil {
		return fmt.Errorf("failed to add remote: %w", err)
	}
	return nil
}

// RemoteURL returns the fetch URL of the named remote.
func (r *Repo) RemoteURL(name string) (string, error) {
	remote, err := r.repo.Remote(name)
	if err != nil {
		return "", ErrNoRemote
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", ErrNoRemote
	}
	return urls[0], nil
}

// Stage adds the file at relativePath (relative to the working tree root)
// to the index.
func (r *Repo) Stage(relativePath string) error {
	wt, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}
	if _, err := wt.Add(relativePath); err != nil {
		return fmt.Errorf("failed to stage %s: %w", relativePath, err)
	}
	return nil
}

// Commit records the staged index on the current branch tip. The very
// first commit has no parent. An unchanged tree still commits, so a
// rewrite of identical content is not an error.
func (r *Repo) Commit(message string) (string, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("failed to get worktree: %w", err)
	}

	sig := signature()
	hash, err := wt.Commit(message, &git.CommitOptions{
		Author:            sig,
		Committer:         sig,
		AllowEmptyCommits: true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to commit: %w", err)
	}

	return hash.String(), nil
}

// StageAndCommit stages exactly the given file and commits it in one step.
func (r *Repo) StageAndCommit(relativePath, message string) (string, error) {
	if err := r.Stage(relativePath); err != nil {
		return "", err
	}
	return r.Commit(message)
}

// IsClean reports whether the working tree has no staged or unstaged
// differences from the last commit.
func (r *Repo) IsClean() (bool, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("failed to get worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return false, fmt.Errorf("failed to get repository status: %w", err)
	}
	return status.IsClean(), nil
}

// LastCommitMessage returns the message of the branch tip commit, or
// "(no message)" when the branch has no commits yet.
func (r *Repo) LastCommitMessage() (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "(no message)", nil
	}
	commit, err := r.repo.CommitObject(head.Hash())
	if err != nil {
		return "", fmt.Errorf("failed to read head commit: %w", err)
	}
	return commit.Message, nil
}

// headCommit returns the tip commit of the local branch, or nil if the
// branch does not exist yet.
func (r *Repo) headCommit() (*object.Commit, error) {
	ref, err := r.repo.Reference(plumbing.NewBranchReferenceName(DefaultBranch), true)
	if err != nil {
		return nil, nil
	}
	commit, err := r.repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to read branch tip: %w", err)
	}
	return commit, nil
}

// signature builds the commit identity from the environment, falling back
// to a fixed identity when none is configured.
func signature() *object.Signature {
	name := os.Getenv("GIT_AUTHOR_NAME")
	if name == "" {
		name = fallbackName
	}
	email := os.Getenv("GIT_AUTHOR_EMAIL")
	if email == "" {
		email = fallbackEmail
	}
	return &object.Signature{Name: name, Email: email, When: time.Now()}
}
