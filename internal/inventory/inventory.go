// Package inventory lists the repository files subject to feature
// assignment, filtered by the configured include and exclude globs.
package inventory

import (
	"bytes"
	"context"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"featuremap/internal/config"
	ferrors "featuremap/internal/errors"
	"featuremap/internal/slogutil"
)

// DefaultGitTimeout bounds each git invocation.
const DefaultGitTimeout = 30 * time.Second

// Inventory enumerates candidate files.
type Inventory struct {
	root       string
	include    []string
	exclude    []string
	logger     *slog.Logger
	gitTimeout time.Duration
}

// New creates an inventory for the repository at root.
func New(root string, cfg *config.Config, logger *slog.Logger) *Inventory {
	return &Inventory{
		root:       root,
		include:    cfg.Include,
		exclude:    cfg.Exclude,
		logger:     slogutil.OrDiscard(logger),
		gitTimeout: DefaultGitTimeout,
	}
}

// Files returns the sorted repo-relative paths of tracked and untracked,
// non-ignored regular files that pass the include and exclude filters. Outside
// a git work tree the directory is walked instead.
func (i *Inventory) Files(ctx context.Context) ([]string, error) {
	all, err := i.gitFiles(ctx)
	if err != nil {
		i.logger.Debug("Falling back to directory walk", "reason", err.Error())
		all, err = i.walkFiles()
		if err != nil {
			return nil, err
		}
	}

	files := i.Filter(all)
	i.logger.Debug("Inventory built", "candidates", len(all), "files", len(files))
	return files, nil
}

// Filter keeps regular files matching an include glob and no exclude glob.
func (i *Inventory) Filter(files []string) []string {
	out := make([]string, 0, len(files))
	seen := make(map[string]bool, len(files))
	for _, f := range files {
		if seen[f] || !matchesAny(i.include, f) || matchesAny(i.exclude, f) {
			continue
		}
		info, err := os.Lstat(filepath.Join(i.root, filepath.FromSlash(f)))
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Included reports whether a single path passes the include and exclude globs.
func (i *Inventory) Included(file string) bool {
	return matchesAny(i.include, file) && !matchesAny(i.exclude, file)
}

func matchesAny(globs []string, file string) bool {
	for _, g := range globs {
		if ok, _ := doublestar.Match(g, file); ok {
			return true
		}
	}
	return false
}

func (i *Inventory) gitFiles(ctx context.Context) ([]string, error) {
	out, err := i.git(ctx, "ls-files", "-z", "--cached", "--others", "--exclude-standard")
	if err != nil {
		return nil, err
	}
	var files []string
	for _, p := range bytes.Split(out, []byte{0}) {
		if len(p) > 0 {
			files = append(files, string(p))
		}
	}
	return files, nil
}

// git runs a git command in the repository with a timeout.
func (i *Inventory) git(ctx context.Context, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, i.gitTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = i.root

	i.logger.Debug("Executing git command", "args", args, "timeout", i.gitTimeout.String())

	output, err := cmd.Output()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, ferrors.New(ferrors.ExternalUnavailable, "git command timed out", err)
		}
		if exitErr, ok := err.(*exec.ExitError); ok {
			return nil, ferrors.New(ferrors.InternalError, "git command failed", err).
				WithDetails(map[string]interface{}{
					"args":   args,
					"stderr": string(exitErr.Stderr),
				})
		}
		return nil, ferrors.New(ferrors.InternalError, "failed to execute git command", err)
	}
	return output, nil
}

func (i *Inventory) walkFiles() ([]string, error) {
	var files []string
	err := filepath.WalkDir(i.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(i.root, p)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	return files, err
}

// Stamp is the cheap change signature of a file.
type Stamp struct {
	Size    int64 `json:"size"`
	ModTime int64 `json:"mtime"`
}

// Stamps stats each file; files that vanished are omitted.
func (i *Inventory) Stamps(files []string) map[string]Stamp {
	out := make(map[string]Stamp, len(files))
	for _, f := range files {
		info, err := os.Stat(filepath.Join(i.root, filepath.FromSlash(f)))
		if err != nil {
			continue
		}
		out[f] = Stamp{Size: info.Size(), ModTime: info.ModTime().UnixNano()}
	}
	return out
}

// Changed compares two stamp sets and returns the added, removed and
// restamped files, sorted.
func Changed(previous, current map[string]Stamp) []string {
	var changed []string
	for f, s := range current {
		if prev, ok := previous[f]; !ok || prev != s {
			changed = append(changed, f)
		}
	}
	for f := range previous {
		if _, ok := current[f]; !ok {
			changed = append(changed, f)
		}
	}
	sort.Strings(changed)
	return changed
}
