package engine

import (
	"context"
	"fmt"

	"featuremap/internal/paths"
	"featuremap/internal/pyramid"
	"featuremap/internal/snapshot"
)

// PyramidReports names the test-result document of each pyramid level.
// Empty levels are skipped.
type PyramidReports struct {
	Unit        string
	Integration string
	Regression  string
}

func (r PyramidReports) byLevel() map[pyramid.Level]string {
	return map[pyramid.Level]string{
		pyramid.Unit:        r.Unit,
		pyramid.Integration: r.Integration,
		pyramid.Regression:  r.Regression,
	}
}

// TestPyramid maps each report onto the resolved features and writes
// .feature_map/test-pyramid.yml. The regression level is mapped against
// test_pyramid.regression_assignments when that is configured, so a
// separate test repository can carry its own assignments.
func (s *Session) TestPyramid(ctx context.Context, reports PyramidReports) (map[string]pyramid.Pyramid, error) {
	byFeature, err := s.FilesByFeature(ctx)
	if err != nil {
		return nil, err
	}

	n := s.normalizer()
	files := reports.byLevel()
	inputs := make(map[pyramid.Level]pyramid.Input)
	for _, level := range pyramid.Levels {
		file := files[level]
		if file == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		report, err := pyramid.LoadReport(s.abs(file), n)
		if err != nil {
			return nil, fmt.Errorf("loading %s report: %w", level, err)
		}
		s.logger.Debug("Test report loaded", "level", string(level), "file", file, "keys", report.Keys())

		assigned := byFeature
		if level == pyramid.Regression && s.cfg.TestPyramid.RegressionAssignments != "" {
			doc, err := snapshot.LoadAssignments(s.abs(s.cfg.TestPyramid.RegressionAssignments))
			if err != nil {
				return nil, fmt.Errorf("loading regression assignments: %w", err)
			}
			assigned = doc.FilesByFeature()
		}
		inputs[level] = pyramid.Input{Report: report, FilesByFeature: assigned}
	}

	built := pyramid.Build(inputs, n)
	data, err := snapshot.EncodePyramid(built)
	if err != nil {
		return nil, fmt.Errorf("encoding test pyramid: %w", err)
	}
	if _, err := snapshot.Write(s.dataFile(paths.PyramidFile), data); err != nil {
		return nil, err
	}
	return built, nil
}

func (s *Session) normalizer() pyramid.Normalizer {
	return pyramid.Normalizer{
		RepoRoot: s.root,
		Prefixes: s.cfg.TestPyramid.PathPrefixes,
		Suffixes: s.cfg.TestPyramid.TestSuffixes,
	}
}
