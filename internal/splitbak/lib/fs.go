package lib

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnsureDir creates dir and any missing parents.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, DirPerm)
}

// RequireDir returns an error unless path exists and is a directory.
func RequireDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("directory does not exist: %s", path)
		}
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory: %s", path)
	}
	return nil
}

// CreateExclusive creates a new file for writing and fails if it already
// exists. Restores never merge into or overwrite existing files.
func CreateExclusive(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, FilePerm)
}

// CanonicalPath resolves symlinks in the directories leading to path, keeping
// its last element as is. Missing trailing components are kept verbatim, so
// a destination that does not exist yet still resolves through its existing
// parents.
func CanonicalPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	dir, base := filepath.Split(abs)
	dir = filepath.Clean(dir)
	var missing []string
	for {
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			parts := append([]string{resolved}, missing...)
			return filepath.Join(append(parts, base)...)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return abs
		}
		missing = append([]string{filepath.Base(dir)}, missing...)
		dir = parent
	}
}

// NestedPath reports whether path lies strictly below root once both are
// canonical, and returns its root-relative form.
func NestedPath(root, path string) (string, bool) {
	rootDir, err := filepath.EvalSymlinks(root)
	if err != nil {
		rootDir = CanonicalPath(root)
	}
	rel, err := filepath.Rel(rootDir, CanonicalPath(path))
	if err != nil || rel == "." || rel == ".." ||
		strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return rel, true
}
