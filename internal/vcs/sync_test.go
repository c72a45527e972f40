package vcs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// setupSyncedPair seeds a bare remote with one commit and returns two
// working clones of it, both tracking the remote.
func setupSyncedPair(t *testing.T) (bare string, a, b *Repo) {
	t.Helper()
	bare = newBareRemote(t)

	a, err := Open(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	writeAndCommit(t, a, "bookmarks.json", "base", "seed")
	if err := a.AddRemote(DefaultRemote, bare); err != nil {
		t.Fatalf("AddRemote() failed: %v", err)
	}
	if err := a.Push(context.Background(), DefaultRemote, DefaultBranch); err != nil {
		t.Fatalf("Push() failed: %v", err)
	}

	b, err = CloneFrom(context.Background(), bare, filepath.Join(t.TempDir(), "b"), nil)
	if err != nil {
		t.Fatalf("CloneFrom() failed: %v", err)
	}
	return bare, a, b
}

func readWorkFile(t *testing.T, r *Repo, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(r.Path(), name))
	if err != nil {
		t.Fatalf("ReadFile() failed: %v", err)
	}
	return string(data)
}

func TestPushWithoutRemote(t *testing.T) {
	r := setupRepo(t)
	writeAndCommit(t, r, "bookmarks.json", "{}", "msg")
	if err := r.Push(context.Background(), DefaultRemote, DefaultBranch); !errors.Is(err, ErrNoRemote) {
		t.Errorf("Push() error = %v, want ErrNoRemote", err)
	}
}

func TestPullWithoutRemote(t *testing.T) {
	r := setupRepo(t)
	if _, err := r.Pull(context.Background(), DefaultRemote, DefaultBranch); !errors.Is(err, ErrNoRemote) {
		t.Errorf("Pull() error = %v, want ErrNoRemote", err)
	}
}

func TestPushAlreadyUpToDate(t *testing.T) {
	_, a, _ := setupSyncedPair(t)
	// Pushing the same tip again is a no-op, not an error.
	if err := a.Push(context.Background(), DefaultRemote, DefaultBranch); err != nil {
		t.Fatalf("Push() failed: %v", err)
	}
}

func TestPushNonFastForward(t *testing.T) {
	_, a, b := setupSyncedPair(t)

	writeAndCommit(t, a, "bookmarks.json", "from a", "a change")
	if err := a.Push(context.Background(), DefaultRemote, DefaultBranch); err != nil {
		t.Fatalf("Push() failed: %v", err)
	}

	writeAndCommit(t, b, "bookmarks.json", "from b", "b change")
	err := b.Push(context.Background(), DefaultRemote, DefaultBranch)
	if !errors.Is(err, ErrNonFastForward) {
		t.Errorf("Push() error = %v, want ErrNonFastForward", err)
	}
}

func TestPullUpToDate(t *testing.T) {
	_, _, b := setupSyncedPair(t)

	outcome, err := b.Pull(context.Background(), DefaultRemote, DefaultBranch)
	if err != nil {
		t.Fatalf("Pull() failed: %v", err)
	}
	if outcome != PullUpToDate {
		t.Errorf("Pull() outcome = %v, want PullUpToDate", outcome)
	}
}

func TestPullLocalAhead(t *testing.T) {
	_, _, b := setupSyncedPair(t)

	writeAndCommit(t, b, "bookmarks.json", "ahead", "local change")
	outcome, err := b.Pull(context.Background(), DefaultRemote, DefaultBranch)
	if err != nil {
		t.Fatalf("Pull() failed: %v", err)
	}
	if outcome != PullUpToDate {
		t.Errorf("Pull() outcome = %v, want PullUpToDate", outcome)
	}
	if got := readWorkFile(t, b, "bookmarks.json"); got != "ahead" {
		t.Errorf("local content = %q, want local change kept", got)
	}
}

func TestPullFastForward(t *testing.T) {
	_, a, b := setupSyncedPair(t)

	writeAndCommit(t, a, "bookmarks.json", "newer", "a change")
	if err := a.Push(context.Background(), DefaultRemote, DefaultBranch); err != nil {
		t.Fatalf("Push() failed: %v", err)
	}

	outcome, err := b.Pull(context.Background(), DefaultRemote, DefaultBranch)
	if err != nil {
		t.Fatalf("Pull() failed: %v", err)
	}
	if outcome != PullFastForward {
		t.Errorf("Pull() outcome = %v, want PullFastForward", outcome)
	}
	if got := readWorkFile(t, b, "bookmarks.json"); got != "newer" {
		t.Errorf("content after pull = %q, want %q", got, "newer")
	}
	msg, err := b.LastCommitMessage()
	if err != nil {
		t.Fatalf("LastCommitMessage() failed: %v", err)
	}
	if msg != "a change" {
		t.Errorf("LastCommitMessage() = %q, want the remote commit", msg)
	}
}

func TestPullIntoEmptyRepo(t *testing.T) {
	bare, _, _ := setupSyncedPair(t)

	r, err := Open(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if err := r.AddRemote(DefaultRemote, bare); err != nil {
		t.Fatalf("AddRemote() failed: %v", err)
	}

	outcome, err := r.Pull(context.Background(), DefaultRemote, DefaultBranch)
	if err != nil {
		t.Fatalf("Pull() failed: %v", err)
	}
	if outcome != PullFastForward {
		t.Errorf("Pull() outcome = %v, want PullFastForward", outcome)
	}
	if got := readWorkFile(t, r, "bookmarks.json"); got != "base" {
		t.Errorf("content after pull = %q, want %q", got, "base")
	}
}

func TestPullFromEmptyRemote(t *testing.T) {
	bare := newBareRemote(t)

	r, err := Open(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	writeAndCommit(t, r, "bookmarks.json", "{}", "local only")
	if err := r.AddRemote(DefaultRemote, bare); err != nil {
		t.Fatalf("AddRemote() failed: %v", err)
	}

	outcome, err := r.Pull(context.Background(), DefaultRemote, DefaultBranch)
	if err != nil {
		t.Fatalf("Pull() failed: %v", err)
	}
	if outcome != PullUpToDate {
		t.Errorf("Pull() outcome = %v, want PullUpToDate", outcome)
	}
}

func TestPullMergeRemoteWins(t *testing.T) {
	_, a, b := setupSyncedPair(t)

	// Both sides change the same file: the remote's version must win.
	writeAndCommit(t, a, "bookmarks.json", "remote version", "remote change")
	if err := a.Push(context.Background(), DefaultRemote, DefaultBranch); err != nil {
		t.Fatalf("Push() failed: %v", err)
	}
	writeAndCommit(t, b, "bookmarks.json", "local version", "local change")

	outcome, err := b.Pull(context.Background(), DefaultRemote, DefaultBranch)
	if err != nil {
		t.Fatalf("Pull() failed: %v", err)
	}
	if outcome != PullMerged {
		t.Errorf("Pull() outcome = %v, want PullMerged", outcome)
	}
	if got := readWorkFile(t, b, "bookmarks.json"); got != "remote version" {
		t.Errorf("content after merge = %q, want remote version", got)
	}
	msg, err := b.LastCommitMessage()
	if err != nil {
		t.Fatalf("LastCommitMessage() failed: %v", err)
	}
	if msg != "Merge from origin/main" {
		t.Errorf("LastCommitMessage() = %q, want %q", msg, "Merge from origin/main")
	}

	// With both histories as parents the merge result pushes cleanly.
	if err := b.Push(context.Background(), DefaultRemote, DefaultBranch); err != nil {
		t.Fatalf("Push() after merge failed: %v", err)
	}
	outcome, err = a.Pull(context.Background(), DefaultRemote, DefaultBranch)
	if err != nil {
		t.Fatalf("Pull() on other side failed: %v", err)
	}
	if outcome != PullFastForward {
		t.Errorf("Pull() outcome = %v, want PullFastForward", outcome)
	}
}

func TestPullMergeKeepsLocalOnlyFiles(t *testing.T) {
	_, a, b := setupSyncedPair(t)

	writeAndCommit(t, a, "bookmarks.json", "remote version", "remote change")
	if err := a.Push(context.Background(), DefaultRemote, DefaultBranch); err != nil {
		t.Fatalf("Push() failed: %v", err)
	}
	writeAndCommit(t, b, "notes.json", "local notes", "add notes")

	outcome, err := b.Pull(context.Background(), DefaultRemote, DefaultBranch)
	if err != nil {
		t.Fatalf("Pull() failed: %v", err)
	}
	if outcome != PullMerged {
		t.Errorf("Pull() outcome = %v, want PullMerged", outcome)
	}
	if got := readWorkFile(t, b, "bookmarks.json"); got != "remote version" {
		t.Errorf("bookmarks.json = %q, want remote version", got)
	}
	if got := readWorkFile(t, b, "notes.json"); got != "local notes" {
		t.Errorf("notes.json = %q, want local file kept", got)
	}
}

func TestPullOutcomeString(t *testing.T) {
	cases := []struct {
		outcome PullOutcome
		want    string
	}{
		{PullUpToDate, "up to date"},
		{PullFastForward, "fast-forward"},
		{PullMerged, "merged"},
	}
	for _, tc := range cases {
		if got := tc.outcome.String(); got != tc.want {
			t.Errorf("%d.String() = %q, want %q", tc.outcome, got, tc.want)
		}
	}
}
