// pkg/extent/sandbox.go
//
// Sandbox confinement for wipe targets. A target reference is only ever
// opened after it resolves, symlinks and all, to a path under the configured
// root. Violations surface before a single byte is written.

package extent

import (
	"os"
	"path/filepath"
	"strings"

	cerr "github.com/cockroachdb/errors"
	"golang.org/x/text/unicode/norm"
)

// Sandbox confines all destructive operations to one directory tree.
type Sandbox struct {
	root string
}

// NewSandbox resolves root (following symlinks) and returns a sandbox
// rooted there. The root must exist and be a directory.
func NewSandbox(root string) (*Sandbox, error) {
	if strings.TrimSpace(root) == "" {
		return nil, cerr.New("sandbox root must be configured")
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, cerr.Wrapf(err, "resolve sandbox root %s", root)
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, cerr.Wrapf(err, "sandbox root %s", abs)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return nil, cerr.Wrapf(err, "stat sandbox root %s", resolved)
	}
	if !info.IsDir() {
		return nil, cerr.Newf("sandbox root %s is not a directory", resolved)
	}

	return &Sandbox{root: resolved}, nil
}

// Root returns the resolved sandbox root.
func (s *Sandbox) Root() string {
	return s.root
}

// Resolve validates a raw target reference and returns its canonical path.
// Any reference that escapes the sandbox root yields ErrPathEscapesSandbox.
func (s *Sandbox) Resolve(raw string) (string, error) {
	// SECURITY: Unicode normalization first, so visually-identical
	// references ("café" NFD vs NFC) resolve to one canonical path and
	// one per-target lock.
	cleaned := norm.NFC.String(raw)

	// SECURITY: Reject null bytes (directory traversal on some filesystems)
	if strings.ContainsRune(cleaned, 0) {
		return "", cerr.Mark(cerr.Newf("target reference contains null byte"), ErrPathEscapesSandbox)
	}
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return "", cerr.Mark(cerr.New("empty target reference"), ErrPathEscapesSandbox)
	}

	abs, err := filepath.Abs(cleaned)
	if err != nil {
		return "", cerr.Mark(cerr.Wrapf(err, "resolve %s", cleaned), ErrPathEscapesSandbox)
	}

	// SECURITY: Resolve symlinks before the containment check. The target
	// itself may not exist yet at submit validation time, so fall back to
	// resolving the deepest existing ancestor and rejoining.
	resolved, err := resolveExisting(abs)
	if err != nil {
		return "", cerr.Mark(cerr.Wrapf(err, "resolve symlinks for %s", abs), ErrPathEscapesSandbox)
	}

	// SECURITY: Containment check against the resolved root (prevent ../
	// traversal and symlink escape)
	if resolved != s.root && !strings.HasPrefix(resolved, s.root+string(os.PathSeparator)) {
		return "", cerr.Mark(
			cerr.Newf("target %s resolves to %s, outside sandbox %s", raw, resolved, s.root),
			ErrPathEscapesSandbox)
	}

	// The root itself is never a valid wipe target.
	if resolved == s.root {
		return "", cerr.Mark(cerr.Newf("target %s is the sandbox root itself", raw), ErrPathEscapesSandbox)
	}

	return resolved, nil
}

// resolveExisting evaluates symlinks for path, walking up to the deepest
// existing ancestor when the leaf does not exist yet.
func resolveExisting(abs string) (string, error) {
	resolved, err := filepath.EvalSymlinks(abs)
	if err == nil {
		return resolved, nil
	}
	if !os.IsNotExist(err) {
		return "", err
	}

	dir, base := filepath.Split(filepath.Clean(abs))
	dir = filepath.Clean(dir)
	if dir == abs {
		// Reached the filesystem root without finding an existing ancestor.
		return abs, nil
	}

	resolvedDir, err := resolveExisting(dir)
	if err != nil {
		return "", err
	}
	return filepath.Join(resolvedDir, base), nil
}
