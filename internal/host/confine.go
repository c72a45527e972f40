package host

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrPathOutsideBase is returned when a requested repository path escapes
// the configured base directory.
var ErrPathOutsideBase = errors.New("path is outside the allowed base directory")

// confinePath resolves a requested repository path against the base
// directory and rejects anything that escapes it. Relative paths are
// taken relative to base; an empty request means the base itself.
//
// The check resolves symlinks through the nearest existing ancestor of
// the requested path, so a link planted inside the base cannot point the
// host at a directory outside it. The path may not exist yet; the
// unresolved tail is carried through verbatim.
func confinePath(base, requested string) (string, error) {
	if requested == "" {
		requested = base
	}
	if !filepath.IsAbs(requested) {
		requested = filepath.Join(base, requested)
	}
	requested = filepath.Clean(requested)

	resolvedBase, err := filepath.EvalSymlinks(base)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base directory: %w", err)
	}

	// Walk up to the nearest existing ancestor, keeping the missing tail.
	existing := requested
	var tail []string
	for {
		if _, err := os.Lstat(existing); err == nil {
			break
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			break
		}
		tail = append([]string{filepath.Base(existing)}, tail...)
		existing = parent
	}

	resolved, err := filepath.EvalSymlinks(existing)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	full := filepath.Join(append([]string{resolved}, tail...)...)

	rel, err := filepath.Rel(resolvedBase, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrPathOutsideBase, requested)
	}
	return full, nil
}
