package engine

import (
	"context"
	"fmt"
	"os"

	"featuremap/internal/paths"
	"featuremap/internal/resolution"
	"featuremap/internal/resolver"
	"featuremap/internal/snapshot"
	"featuremap/internal/validation"
)

// ValidateOptions controls Validate.
type ValidateOptions struct {
	// Autocorrect rewrites assignments.yml whenever its content changed,
	// even when other checks fail.
	Autocorrect bool
}

// ValidateResult reports what Validate did besides checking.
type ValidateResult struct {
	SnapshotPath string `json:"snapshotPath"`
	Written      bool   `json:"written"`
	Files        int    `json:"files"`
	Assigned     int    `json:"assigned"`
	// Diff is what an autocorrect rewrite changed.
	Diff snapshot.Diff `json:"diff"`
}

// Validate resolves the repository, runs every consistency check and
// reconciles .feature_map/assignments.yml. The returned error is a
// *validation.Error carrying every violation when any check failed.
func (s *Session) Validate(ctx context.Context, opts ValidateOptions) (*ValidateResult, error) {
	files, err := s.Inventory(ctx)
	if err != nil {
		return nil, err
	}
	assigned, err := s.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	claims, err := s.cache.Claims(files)
	if err != nil {
		return nil, err
	}

	doc, err := s.assignmentsDocument(assigned)
	if err != nil {
		return nil, err
	}
	expected, err := doc.Encode()
	if err != nil {
		return nil, fmt.Errorf("encoding assignments: %w", err)
	}

	path := s.dataFile(paths.AssignmentsFile)
	result := &ValidateResult{
		SnapshotPath: path,
		Files:        len(files),
		Assigned:     len(assigned),
	}
	in := &validation.Input{
		Files:           files,
		Claims:          claims,
		Overlaps:        s.overlaps(files),
		UnassignedGlobs: s.cfg.UnassignedGlobs,
	}

	if opts.Autocorrect {
		previous, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, err
		}
		written, err := snapshot.Write(path, expected)
		if err != nil {
			return nil, fmt.Errorf("writing %s: %w", path, err)
		}
		result.Written = written
		if written {
			result.Diff = snapshot.DiffLines(expected, previous)
			s.logger.Info("Assignments snapshot updated", "path", path)
		}
	} else {
		actual, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, err
		}
		in.Snapshot = &validation.SnapshotState{
			Path:     paths.DataDirName + "/" + paths.AssignmentsFile,
			Expected: expected,
			Actual:   actual,
		}
	}

	if err := validation.Run(in); err != nil {
		return result, err
	}
	return result, nil
}

func (s *Session) assignmentsDocument(assigned map[string]resolution.Assignment) (*snapshot.Assignments, error) {
	reg, err := s.Features()
	if err != nil {
		return nil, err
	}
	teams, err := s.teams(resolution.FilesByFeature(assigned))
	if err != nil {
		return nil, err
	}
	return snapshot.BuildAssignments(assigned, reg.Names(), teams), nil
}

func (s *Session) overlaps(files []string) []resolver.Overlap {
	res, ok := s.resolvers.Lookup(resolver.GlobDescription)
	if !ok {
		return nil
	}
	glob, ok := res.(*resolver.GlobResolver)
	if !ok {
		return nil
	}
	return glob.Overlaps(files)
}
