package resolver

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// GlobExpander expands glob-or-path keys to concrete repo-relative files and
// memoizes the result for the lifetime of a session.
type GlobExpander struct {
	root string
	fsys fs.FS
	memo map[string][]string
}

// NewGlobExpander returns an expander rooted at the repository root.
func NewGlobExpander(root string) *GlobExpander {
	return &GlobExpander{
		root: root,
		fsys: os.DirFS(root),
		memo: make(map[string][]string),
	}
}

// Expand returns the regular files matching pattern, sorted. A key naming an
// existing file is returned as-is even if it contains glob metacharacters.
func (g *GlobExpander) Expand(pattern string) ([]string, error) {
	if cached, ok := g.memo[pattern]; ok {
		return cached, nil
	}

	var out []string
	info, err := os.Lstat(filepath.Join(g.root, filepath.FromSlash(pattern)))
	switch {
	case err == nil && info.Mode().IsRegular():
		out = []string{pattern}
	default:
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid glob pattern %q", pattern)
		}
		matches, err := doublestar.Glob(g.fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("expanding %q: %w", pattern, err)
		}
		sort.Strings(matches)
		out = matches
	}

	g.memo[pattern] = out
	return out, nil
}

// Forget drops the memoized expansion of each pattern.
func (g *GlobExpander) Forget(patterns ...string) {
	for _, p := range patterns {
		delete(g.memo, p)
	}
}

// Reset drops every memoized expansion.
func (g *GlobExpander) Reset() {
	g.memo = make(map[string][]string)
}

// Matches reports whether file is claimed by the glob-or-path key.
func Matches(key, file string) bool {
	if key == file {
		return true
	}
	ok, err := doublestar.Match(key, file)
	return err == nil && ok
}

var globMeta = strings.NewReplacer(
	`\`, `\\`,
	`[`, `\[`,
	`]`, `\]`,
	`*`, `\*`,
	`?`, `\?`,
	`{`, `\{`,
	`}`, `\}`,
)

// EscapeGlob escapes metacharacters so a real path matches only itself.
func EscapeGlob(p string) string {
	return globMeta.Replace(p)
}

// DirectoryGlob is the recursive glob covering every file below dir.
func DirectoryGlob(dir string) string {
	if dir == "" || dir == "." {
		return "**/*"
	}
	return EscapeGlob(dir) + "/**/*"
}
