// Package sandbox writes downloaded translations inside the project root.
package sandbox

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const tempPattern = ".crowdin-sync-*.tmp"

var ErrOutsideRoot = errors.New("outside the project root")

// Root is a directory that every write is confined to.
type Root struct {
	Dir  string
	Perm os.FileMode // file mode for new files; 0644 if zero
}

// New returns a Root for projectRoot.
func New(projectRoot string) *Root {
	return &Root{Dir: projectRoot, Perm: 0o644}
}

// Resolve maps a slash-separated path relative to the root onto an absolute
// path with every existing symlink followed. Paths that land outside the
// root, lexically or through a symlink, fail with ErrOutsideRoot.
func (r *Root) Resolve(rel string) (string, error) {
	base, err := filepath.Abs(r.Dir)
	if err != nil {
		return "", fmt.Errorf("resolving project root: %w", err)
	}
	if base, err = filepath.EvalSymlinks(base); err != nil {
		return "", fmt.Errorf("resolving project root symlinks: %w", err)
	}

	target, err := followExisting(filepath.Join(base, filepath.FromSlash(rel)))
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", rel, err)
	}
	up, err := filepath.Rel(base, target)
	if err != nil || up == ".." || strings.HasPrefix(up, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path '%s' resolves to '%s': %w", rel, target, ErrOutsideRoot)
	}
	return target, nil
}

// followExisting evaluates symlinks in the longest prefix of p that exists
// and re-attaches the remaining elements unchanged.
func followExisting(p string) (string, error) {
	p = filepath.Clean(p)
	var rest []string
	for {
		resolved, err := filepath.EvalSymlinks(p)
		switch {
		case err == nil:
			return filepath.Join(append([]string{resolved}, rest...)...), nil
		case !errors.Is(err, os.ErrNotExist):
			return "", err
		}
		parent := filepath.Dir(p)
		if parent == p {
			return filepath.Join(append([]string{p}, rest...)...), nil
		}
		rest = append([]string{filepath.Base(p)}, rest...)
		p = parent
	}
}

// WriteFile atomically replaces rel with content. When the file already
// holds exactly content it is left untouched and unchanged is true.
func (r *Root) WriteFile(rel string, content []byte) (unchanged bool, err error) {
	if clean := filepath.Clean(filepath.FromSlash(rel)); clean == "." || clean == string(filepath.Separator) {
		return false, fmt.Errorf("path '%s' names the project root", rel)
	}
	target, err := r.Resolve(rel)
	if err != nil {
		return false, err
	}

	if existing, err := os.ReadFile(target); err == nil && bytes.Equal(existing, content) {
		return true, nil
	}

	perm := r.Perm
	if perm == 0 {
		perm = 0o644
	}
	return false, replace(target, content, perm)
}

// replace writes content to a temp file beside target, then renames it over
// target.
func replace(target string, content []byte, perm os.FileMode) (err error) {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, tempPattern)
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(content); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err = os.Chmod(tmp.Name(), perm); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err = os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("renaming temp file to %s: %w", target, err)
	}
	return nil
}
