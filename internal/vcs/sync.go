package vcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
)

// PullOutcome describes which of the three pull paths was taken.
type PullOutcome int

const (
	// PullUpToDate means the local branch already contained the remote
	// history; nothing changed.
	PullUpToDate PullOutcome = iota

	// PullFastForward means the branch pointer moved forward onto the
	// remote tip without a merge.
	PullFastForward

	// PullMerged means histories had diverged and a merge commit was
	// created, preferring the remote's version of every conflicting path.
	PullMerged
)

// String returns a short description of the outcome.
func (o PullOutcome) String() string {
	switch o {
	case PullFastForward:
		return "fast-forward"
	case PullMerged:
		return "merged"
	default:
		return "up to date"
	}
}

// Push sends the branch to the remote. A rejected credential surfaces as
// ErrAuthRejected and a diverged remote as ErrNonFastForward; the engine
// performs no local retry.
func (r *Repo) Push(ctx context.Context, remote, branch string) error {
	if !r.HasRemote(remote) {
		return ErrNoRemote
	}

	method, err := r.authFor(remote)
	if err != nil {
		return err
	}

	refspec := config.RefSpec(fmt.Sprintf("refs/heads/%s:refs/heads/%s", branch, branch))
	err = r.repo.PushContext(ctx, &git.PushOptions{
		RemoteName: remote,
		RefSpecs:   []config.RefSpec{refspec},
		Auth:       method,
	})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil
	}
	if err != nil {
		return classifyTransportError(err, fmt.Errorf("failed to push to remote: %w", err))
	}

	return nil
}

// Pull fetches the remote branch and applies exactly one of three
// outcomes: no-op when already up to date, a fast-forward when local
// history is a strict prefix of the remote's, or a "theirs" merge when the
// histories have truly diverged. The merge deterministically keeps the
// remote's version of every conflicting path and records a merge commit
// with both histories as parents. This trades local-edit loss for
// availability; it is intentional, not user-mediated.
func (r *Repo) Pull(ctx context.Context, remote, branch string) (PullOutcome, error) {
	if !r.HasRemote(remote) {
		return PullUpToDate, ErrNoRemote
	}

	method, err := r.authFor(remote)
	if err != nil {
		return PullUpToDate, err
	}

	refspec := config.RefSpec(fmt.Sprintf("+refs/heads/%s:refs/remotes/%s/%s", branch, remote, branch))
	err = r.repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: remote,
		RefSpecs:   []config.RefSpec{refspec},
		Auth:       method,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		// A remote without the branch yet has nothing to pull.
		if strings.Contains(err.Error(), "couldn't find remote ref") {
			return PullUpToDate, nil
		}
		return PullUpToDate, classifyTransportError(err, fmt.Errorf("failed to fetch from remote: %w", err))
	}

	remoteRef, err := r.repo.Reference(plumbing.NewRemoteReferenceName(remote, branch), true)
	if err != nil {
		return PullUpToDate, nil
	}
	remoteCommit, err := r.repo.CommitObject(remoteRef.Hash())
	if err != nil {
		return PullUpToDate, fmt.Errorf("failed to read remote tip: %w", err)
	}

	local, err := r.headCommit()
	if err != nil {
		return PullUpToDate, err
	}

	wt, err := r.repo.Worktree()
	if err != nil {
		return PullUpToDate, fmt.Errorf("failed to get worktree: %w", err)
	}

	// Unborn local branch: adopt the remote history wholesale.
	if local == nil {
		branchRef := plumbing.NewBranchReferenceName(branch)
		if err := r.repo.Storer.SetReference(plumbing.NewHashReference(branchRef, remoteRef.Hash())); err != nil {
			return PullUpToDate, fmt.Errorf("failed to move branch pointer: %w", err)
		}
		if err := wt.Checkout(&git.CheckoutOptions{Branch: branchRef, Force: true}); err != nil {
			return PullUpToDate, fmt.Errorf("failed to update working tree: %w", err)
		}
		return PullFastForward, nil
	}

	if local.Hash == remoteRef.Hash() {
		return PullUpToDate, nil
	}

	bases, err := local.MergeBase(remoteCommit)
	if err != nil {
		return PullUpToDate, fmt.Errorf("failed to compute merge base: %w", err)
	}
	var base *object.Commit
	if len(bases) > 0 {
		base = bases[0]
	}

	if base != nil && base.Hash == remoteCommit.Hash {
		// Local is strictly ahead; nothing to pull.
		return PullUpToDate, nil
	}

	if base != nil && base.Hash == local.Hash {
		if err := wt.Reset(&git.ResetOptions{Mode: git.HardReset, Commit: remoteRef.Hash()}); err != nil {
			return PullUpToDate, fmt.Errorf("failed to fast-forward: %w", err)
		}
		return PullFastForward, nil
	}

	if err := r.mergeTheirs(wt, local, remoteCommit, base, remote, branch); err != nil {
		return PullUpToDate, err
	}
	return PullMerged, nil
}

// mergeTheirs builds the merged tree in the working directory and commits
// it with both tips as parents. For every path the remote touched relative
// to the merge base the remote's state wins, including deletions; paths
// only the local side touched keep their local state.
func (r *Repo) mergeTheirs(wt *git.Worktree, local, remote, base *object.Commit, remoteName, branch string) error {
	localFiles, err := treeFiles(local)
	if err != nil {
		return err
	}
	remoteFiles, err := treeFiles(remote)
	if err != nil {
		return err
	}
	baseFiles := map[string]plumbing.Hash{}
	if base != nil {
		baseFiles, err = treeFiles(base)
		if err != nil {
			return err
		}
	}

	paths := make(map[string]bool)
	for p := range localFiles {
		paths[p] = true
	}
	for p := range remoteFiles {
		paths[p] = true
	}

	for path := range paths {
		lh, lok := localFiles[path]
		rh, rok := remoteFiles[path]
		bh, bok := baseFiles[path]

		remoteChanged := rok != bok || (rok && rh != bh)

		want, exists := lh, lok
		if remoteChanged {
			want, exists = rh, rok
		}

		switch {
		case exists && (!lok || lh != want):
			if err := r.writeBlob(path, want); err != nil {
				return err
			}
			if _, err := wt.Add(path); err != nil {
				return fmt.Errorf("failed to stage %s: %w", path, err)
			}
		case !exists && lok:
			if _, err := wt.Remove(path); err != nil {
				return fmt.Errorf("failed to remove %s: %w", path, err)
			}
		}
	}

	sig := signature()
	_, err = wt.Commit(fmt.Sprintf("Merge from %s/%s", remoteName, branch), &git.CommitOptions{
		Author:            sig,
		Committer:         sig,
		Parents:           []plumbing.Hash{local.Hash, remote.Hash},
		AllowEmptyCommits: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create merge commit: %w", err)
	}

	return nil
}

// writeBlob materializes the blob's content at path inside the working
// tree.
func (r *Repo) writeBlob(path string, hash plumbing.Hash) error {
	blob, err := r.repo.BlobObject(hash)
	if err != nil {
		return fmt.Errorf("failed to read blob for %s: %w", path, err)
	}
	reader, err := blob.Reader()
	if err != nil {
		return fmt.Errorf("failed to open blob for %s: %w", path, err)
	}
	defer reader.Close()

	target := filepath.Join(r.path, path)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create directories for %s: %w", path, err)
	}
	f, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, reader); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// treeFiles flattens a commit's tree into a path to blob-hash map.
func treeFiles(c *object.Commit) (map[string]plumbing.Hash, error) {
	tree, err := c.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to read tree: %w", err)
	}
	files := make(map[string]plumbing.Hash)
	err = tree.Files().ForEach(func(f *object.File) error {
		files[f.Name] = f.Hash
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk tree: %w", err)
	}
	return files, nil
}

// authFor resolves the credential method for the named remote's URL.
func (r *Repo) authFor(remote string) (transport.AuthMethod, error) {
	url, err := r.RemoteURL(remote)
	if err != nil {
		return nil, err
	}
	return r.auth.Method(url)
}

// classifyTransportError maps transport failures onto the engine's named
// errors, falling back to the wrapped error. Remote response details are
// never included beyond go-git's own messages.
func classifyTransportError(err error, wrapped error) error {
	if errors.Is(err, transport.ErrAuthenticationRequired) ||
		errors.Is(err, transport.ErrAuthorizationFailed) {
		return ErrAuthRejected
	}
	if strings.Contains(err.Error(), "non-fast-forward") {
		return ErrNonFastForward
	}
	return wrapped
}
