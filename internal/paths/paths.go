// Package paths holds repo-relative path helpers and the locations of
// featuremap's files under .feature_map/.
package paths

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	// DataDirName is the per-repository directory featuremap owns.
	DataDirName = ".feature_map"

	AssignmentsFile  = "assignments.yml"
	MetricsFile      = "metrics.yml"
	CoverageFile     = "test-coverage.yml"
	PyramidFile      = "test-pyramid.yml"
	HealthFile       = "health.json"
	ConfigFile       = "config.yml"
	CacheFile        = "cache.db"
	DefinitionsDir   = "definitions"
	DocsBlobFile     = "feature-map-config.js"
	DocsOutputSubdir = "docs"
)

// DataDir returns <repoRoot>/.feature_map.
func DataDir(repoRoot string) string {
	return filepath.Join(repoRoot, DataDirName)
}

// EnsureDataDir creates .feature_map if needed and returns its path.
func EnsureDataDir(repoRoot string) (string, error) {
	dir := DataDir(repoRoot)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

// DataFile returns the path of a file inside .feature_map.
func DataFile(repoRoot, name string) string {
	return filepath.Join(DataDir(repoRoot), name)
}

// CanonicalizePath converts an absolute path to a repo-relative, forward-slash path.
// Symlinks are resolved when the target exists.
func CanonicalizePath(absolutePath string, repoRoot string) (string, error) {
	resolved, err := filepath.EvalSymlinks(absolutePath)
	if err != nil {
		if !os.IsNotExist(err) {
			return "", err
		}
		resolved = absolutePath
	}

	rootResolved, err := filepath.EvalSymlinks(repoRoot)
	if err != nil {
		if !os.IsNotExist(err) {
			return "", err
		}
		rootResolved = repoRoot
	}

	rel, err := filepath.Rel(rootResolved, resolved)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// RepoRelative returns p as a clean forward-slash path relative to repoRoot.
// Relative inputs are taken to be relative to the repository already.
func RepoRelative(p string, repoRoot string) (string, error) {
	if filepath.IsAbs(p) {
		return CanonicalizePath(p, repoRoot)
	}
	return NormalizePath(filepath.Clean(p)), nil
}

// IsWithinRepo checks if a path is within the repository root
func IsWithinRepo(path string, repoRoot string) bool {
	canonical, err := CanonicalizePath(path, repoRoot)
	if err != nil {
		return false
	}
	return canonical != ".." && !strings.HasPrefix(canonical, "../")
}

// NormalizePath converts backslashes to forward slashes
func NormalizePath(path string) string {
	return strings.ReplaceAll(filepath.ToSlash(path), "\\", "/")
}

// JoinRepoPath joins a repo root with a canonical path
func JoinRepoPath(repoRoot string, canonicalPath string) string {
	parts := strings.Split(NormalizePath(canonicalPath), "/")
	return filepath.Join(append([]string{repoRoot}, parts...)...)
}
