package lib

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/denormal/go-gitignore"
)

// IgnoreRules decides which paths under an origin directory are left out of a
// backup. Rules come only from the origin's .splitbakignore file; without one,
// nothing is ignored and a backup round-trips the whole tree.
type IgnoreRules struct {
	root    string
	matcher gitignore.GitIgnore
}

// LoadIgnoreRules reads the ignore file at the root of origin, if any. A nil
// *IgnoreRules ignores nothing, which is what is returned when no file exists.
func LoadIgnoreRules(origin string) (*IgnoreRules, error) {
	// We MUST use the same canonical pathing for the root and the checked
	// paths, otherwise filepath.Rel gives nonsense on systems where the temp
	// directory is a symlink.
	absOrigin, err := filepath.Abs(origin)
	if err != nil {
		return nil, err
	}
	root, err := filepath.EvalSymlinks(absOrigin)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(filepath.Join(root, IgnoreFilename))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	patterns := cleanPatterns(strings.Split(string(content), "\n"))
	if len(patterns) == 0 {
		return nil, nil
	}

	matcher := gitignore.New(
		strings.NewReader(strings.Join(patterns, "\n")),
		root,
		// The error handler tells the parser to continue on error.
		func(err gitignore.Error) bool { return false },
	)
	if matcher == nil {
		return nil, nil
	}
	return &IgnoreRules{root: root, matcher: matcher}, nil
}

// cleanPatterns drops comments and blank lines and normalizes separators.
func cleanPatterns(lines []string) []string {
	var patterns []string
	for _, p := range lines {
		trimmed := strings.TrimSpace(p)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		trimmed = strings.ReplaceAll(trimmed, "\\", "/")
		// Directory patterns (ending with /) become globs so they also match
		// everything below the directory.
		if strings.HasSuffix(trimmed, "/") && !strings.HasSuffix(trimmed, "**/") {
			trimmed = trimmed + "**"
		}
		patterns = append(patterns, trimmed)
	}
	return patterns
}

// Ignored reports whether path, which must lie under the origin, is excluded.
// A symlink is matched by its own name, not by its target's.
func (r *IgnoreRules) Ignored(path string) bool {
	if r == nil {
		return false
	}

	// The root itself and anything outside it are never ignored.
	relativePath, err := filepath.Rel(r.root, CanonicalPath(path))
	if err != nil || relativePath == "." || relativePath == ".." ||
		strings.HasPrefix(relativePath, ".."+string(filepath.Separator)) {
		return false
	}

	isDir := false
	if info, err := os.Stat(path); err == nil {
		isDir = info.IsDir()
	}
	match := r.matcher.Relative(filepath.ToSlash(relativePath), isDir)
	if match == nil {
		return false
	}
	return match.Ignore()
}
