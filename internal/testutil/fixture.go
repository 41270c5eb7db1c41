// Package testutil provides repository fixtures for tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile writes body to root/rel, creating parent directories.
func WriteFile(t testing.TB, root, rel, body string) {
	t.Helper()

	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("Failed to create directory for %s: %v", rel, err)
	}
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", rel, err)
	}
}

// Repo creates a temporary repository holding files, keyed by
// slash-separated relative path. It is not a git work tree, so file
// listing falls back to walking the directory.
func Repo(t testing.TB, files map[string]string) string {
	t.Helper()

	root := t.TempDir()
	for rel, body := range files {
		WriteFile(t, root, rel, body)
	}
	return root
}
