// Package validation runs the consistency checks over a resolved repository
// and reports every violation at once.
package validation

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	ferrors "featuremap/internal/errors"
	"featuremap/internal/resolver"
	"featuremap/internal/snapshot"
)

// Error aggregates every violation found in one run.
type Error struct {
	Errors []string
}

func (e *Error) Error() string {
	return strings.Join(e.Errors, "\n\n")
}

// Unwrap exposes the CONSISTENCY code to errors.CodeOf.
func (e *Error) Unwrap() error {
	return ferrors.Newf(ferrors.Consistency, "%d validation errors", len(e.Errors))
}

// Input is what the checks inspect.
type Input struct {
	// Files are the tracked, non-excluded repository files.
	Files []string
	// Claims maps each file to the descriptions of the resolvers claiming it.
	Claims map[string][]string
	// Overlaps are the glob groups matching the same files.
	Overlaps []resolver.Overlap
	// UnassignedGlobs excuse matching files from the unassigned check.
	UnassignedGlobs []string
	// Snapshot is set when the stored assignments must match the computed ones.
	Snapshot *SnapshotState
}

// SnapshotState pairs the computed snapshot with the one on disk.
type SnapshotState struct {
	Path     string
	Expected []byte
	Actual   []byte
}

// Check is one independent consistency rule.
type Check interface {
	Name() string
	Run(in *Input) []string
}

// DefaultChecks returns the closed set of checks in reporting order.
func DefaultChecks() []Check {
	return []Check{
		UnassignedCheck{},
		DuplicateCheck{},
		OverlapCheck{},
		StaleSnapshotCheck{},
	}
}

// Run executes every check and fails with all errors when any check failed.
func Run(in *Input, checks ...Check) error {
	if len(checks) == 0 {
		checks = DefaultChecks()
	}
	var errs []string
	for _, c := range checks {
		errs = append(errs, c.Run(in)...)
	}
	if len(errs) > 0 {
		return &Error{Errors: errs}
	}
	return nil
}

// UnassignedCheck requires every file to be claimed.
type UnassignedCheck struct{}

func (UnassignedCheck) Name() string { return "unassigned" }

func (UnassignedCheck) Run(in *Input) []string {
	var missing []string
	for _, f := range in.Files {
		if len(in.Claims[f]) > 0 || excused(f, in.UnassignedGlobs) {
			continue
		}
		missing = append(missing, f)
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return []string{"Some files are missing a feature assignment:\n\n- " + strings.Join(missing, "\n- ")}
}

func excused(file string, globs []string) bool {
	for _, g := range globs {
		if ok, _ := doublestar.Match(g, file); ok {
			return true
		}
	}
	return false
}

// DuplicateCheck forbids a file being claimed by more than one resolver.
type DuplicateCheck struct{}

func (DuplicateCheck) Name() string { return "duplicate" }

func (DuplicateCheck) Run(in *Input) []string {
	var lines []string
	for _, f := range in.Files {
		descs := in.Claims[f]
		if len(descs) < 2 {
			continue
		}
		sorted := append([]string(nil), descs...)
		sort.Strings(sorted)
		lines = append(lines, fmt.Sprintf("- %s (%s)", f, strings.Join(sorted, ", ")))
	}
	if len(lines) == 0 {
		return nil
	}
	sort.Strings(lines)
	return []string{"Feature assignment should only be defined for each file in one way. " +
		"The following files have declared features in multiple ways:\n\n" + strings.Join(lines, "\n")}
}

// OverlapCheck forbids assigned_globs of different entries matching the same file.
type OverlapCheck struct{}

func (OverlapCheck) Name() string { return "overlap" }

func (OverlapCheck) Run(in *Input) []string {
	out := make([]string, 0, len(in.Overlaps))
	for _, o := range in.Overlaps {
		claims := make([]string, len(o.Claims))
		for i, c := range o.Claims {
			claims[i] = fmt.Sprintf("`%s` (from %s)", c.Glob, c.Feature)
		}
		out = append(out, fmt.Sprintf("%s overlap on %d file(s), e.g. %s",
			strings.Join(claims, " and "), len(o.Files), o.Files[0]))
	}
	return out
}

// StaleSnapshotCheck reports drift between the stored and computed snapshot.
type StaleSnapshotCheck struct{}

func (StaleSnapshotCheck) Name() string { return "stale-snapshot" }

func (StaleSnapshotCheck) Run(in *Input) []string {
	s := in.Snapshot
	if s == nil {
		return nil
	}
	if bytes.Equal(s.Expected, s.Actual) {
		return nil
	}
	msg := fmt.Sprintf("%s is out of date. Run `featuremap validate --autocorrect` to regenerate it.", s.Path)
	d := snapshot.DiffLines(s.Expected, s.Actual)
	if d.Empty() {
		// Same lines, different order: a file moved between features or buckets.
		return []string{msg + "\nEvery line is present but in a different order."}
	}
	return []string{msg + "\nLines expected but missing (+) and present but unexpected (-):\n" +
		strings.TrimRight(d.String(), "\n")}
}
