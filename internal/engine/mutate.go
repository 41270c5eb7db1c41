package engine

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"featuremap/internal/annotation"
	ferrors "featuremap/internal/errors"
	"featuremap/internal/features"
	"featuremap/internal/paths"
)

// ApplyResult counts the outcome of apply-assignments.
type ApplyResult struct {
	Applied int `json:"applied"`
	Skipped int `json:"skipped"`
}

// ApplyAssignments reads path,feature rows and annotates each file that is
// not yet assigned. Rows naming an unknown feature or a missing file, and
// files that already resolve to a feature, are reported and skipped.
func (s *Session) ApplyAssignments(ctx context.Context, csvPath string) (*ApplyResult, error) {
	f, err := os.Open(csvPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	reg, err := s.Features()
	if err != nil {
		return nil, err
	}
	resolvers, err := s.Resolvers()
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	result := &ApplyResult{}
	for line := 1; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, ferrors.New(ferrors.ConfigInvalid, "reading "+csvPath, err)
		}
		if len(record) < 2 {
			s.logger.Info("Skipping malformed row", "line", line)
			result.Skipped++
			continue
		}
		file, name := strings.TrimSpace(record[0]), strings.TrimSpace(record[1])

		if reg.Find(name) == nil {
			s.logger.Info("Skipping unknown feature", "file", file, "feature", name)
			result.Skipped++
			continue
		}
		rel, err := paths.RepoRelative(file, s.root)
		if err != nil || rel == ".." || strings.HasPrefix(rel, "../") {
			s.logger.Info("Skipping file outside the repository", "file", file)
			result.Skipped++
			continue
		}
		abs := paths.JoinRepoPath(s.root, rel)
		if _, err := os.Stat(abs); err != nil {
			s.logger.Info("Skipping missing file", "file", rel)
			result.Skipped++
			continue
		}
		current, desc, err := resolvers.ResolveOne(rel)
		if err != nil {
			return nil, err
		}
		if current != nil {
			s.logger.Info("File already assigned", "file", rel, "feature", current.Name, "mapper", desc)
			result.Skipped++
			continue
		}

		if err := annotation.Add(abs, name); err != nil {
			s.logger.Info("Could not annotate file", "file", rel, "error", err.Error())
			result.Skipped++
			continue
		}
		s.logger.Info("Assigned file", "file", rel, "feature", name)
		result.Applied++
	}

	if result.Applied > 0 {
		s.Reset()
	}
	return result, nil
}

// NewFeature writes a definition for name and returns its repo-relative path.
func (s *Session) NewFeature(name string, globs []string) (string, error) {
	reg, err := s.Features()
	if err != nil {
		return "", err
	}
	if reg.Find(name) != nil {
		return "", ferrors.Newf(ferrors.ConfigInvalid, "feature %q is already defined", name)
	}
	rel, err := features.WriteDefinition(s.root, s.cfg.DefinitionsDir, &features.Feature{
		Name:          name,
		AssignedGlobs: globs,
	})
	if err != nil {
		return "", err
	}
	s.logger.Info("Feature defined", "feature", name, "path", rel)
	s.Reset()
	return rel, nil
}

// RemoveAnnotation strips single-line annotations from file.
func (s *Session) RemoveAnnotation(file string) (bool, error) {
	rel, err := paths.RepoRelative(file, s.root)
	if err != nil {
		return false, err
	}
	changed, err := annotation.Remove(paths.JoinRepoPath(s.root, rel))
	if err != nil {
		return false, fmt.Errorf("%s: %w", rel, err)
	}
	if changed {
		s.logger.Info("Annotation removed", "file", rel)
		s.Reset()
	}
	return changed, nil
}
