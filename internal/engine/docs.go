package engine

import (
	"context"
	"fmt"
	"os"

	ferrors "featuremap/internal/errors"
	"featuremap/internal/output"
	"featuremap/internal/paths"
	"featuremap/internal/pyramid"
	"featuremap/internal/scoring"
	"featuremap/internal/snapshot"
)

// DocsFeature is one feature's entry in the documentation blob.
type DocsFeature struct {
	Name              string                    `json:"name"`
	Description       string                    `json:"description,omitempty"`
	DocumentationLink string                    `json:"documentation_link,omitempty"`
	CustomAttributes  map[string]string         `json:"custom_attributes,omitempty"`
	Assignments       *snapshot.FeatureEntry    `json:"assignments,omitempty"`
	Metrics           *snapshot.FeatureMetrics  `json:"metrics,omitempty"`
	TestCoverage      *snapshot.FeatureCoverage `json:"test_coverage,omitempty"`
	TestPyramid       pyramid.Pyramid           `json:"test_pyramid,omitempty"`
	Health            *scoring.FeatureHealth    `json:"health,omitempty"`
}

// DocsDocument is the object assigned to the documentation site's global.
type DocsDocument struct {
	Features      map[string]DocsFeature `json:"features"`
	CoverageSHA   string                 `json:"coverage_commit,omitempty"`
	DefinitionDir string                 `json:"definitions_dir,omitempty"`
}

// Docs merges every generated document that exists into the documentation
// blob and writes it to documentation_site.output. Missing documents leave
// their sections out. It returns the path written.
func (s *Session) Docs(ctx context.Context) (string, error) {
	doc, err := s.DocsDocument(ctx)
	if err != nil {
		return "", err
	}
	data, err := output.DocsBlob(doc)
	if err != nil {
		return "", fmt.Errorf("encoding documentation blob: %w", err)
	}
	target := s.abs(s.cfg.DocumentationSite.Output)
	if _, err := snapshot.Write(target, data); err != nil {
		return "", err
	}
	s.logger.Info("Documentation blob written", "path", target, "features", len(doc.Features))
	return target, nil
}

// DocsDocument assembles the documentation object from the registry and the
// documents under .feature_map.
func (s *Session) DocsDocument(ctx context.Context) (*DocsDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	reg, err := s.Features()
	if err != nil {
		return nil, err
	}

	doc := &DocsDocument{
		Features:      make(map[string]DocsFeature, reg.Len()),
		DefinitionDir: s.cfg.DefinitionsDir,
	}
	for _, f := range reg.All() {
		doc.Features[f.Name] = DocsFeature{
			Name:              f.Name,
			Description:       f.Description,
			DocumentationLink: f.DocumentationLink,
			CustomAttributes:  f.CustomAttributes,
		}
	}

	if data, ok, err := s.readDataFile(paths.AssignmentsFile); err != nil {
		return nil, err
	} else if ok {
		assignments, err := snapshot.DecodeAssignments(data)
		if err != nil {
			return nil, parseError(paths.AssignmentsFile, err)
		}
		for name, entry := range assignments.Features {
			s.mergeDocs(doc, name, func(d *DocsFeature) { d.Assignments = &entry })
		}
	}

	if data, ok, err := s.readDataFile(paths.MetricsFile); err != nil {
		return nil, err
	} else if ok {
		byFeature, err := snapshot.DecodeMetrics(data)
		if err != nil {
			return nil, parseError(paths.MetricsFile, err)
		}
		for name, m := range byFeature {
			s.mergeDocs(doc, name, func(d *DocsFeature) { d.Metrics = &m })
		}
	}

	if data, ok, err := s.readDataFile(paths.CoverageFile); err != nil {
		return nil, err
	} else if ok {
		commit, byFeature, err := snapshot.DecodeCoverage(data)
		if err != nil {
			return nil, parseError(paths.CoverageFile, err)
		}
		doc.CoverageSHA = commit
		for name, c := range byFeature {
			s.mergeDocs(doc, name, func(d *DocsFeature) { d.TestCoverage = &c })
		}
	}

	if data, ok, err := s.readDataFile(paths.PyramidFile); err != nil {
		return nil, err
	} else if ok {
		byFeature, err := snapshot.DecodePyramid(data)
		if err != nil {
			return nil, parseError(paths.PyramidFile, err)
		}
		for name, p := range byFeature {
			s.mergeDocs(doc, name, func(d *DocsFeature) { d.TestPyramid = p })
		}
	}

	if data, ok, err := s.readDataFile(paths.HealthFile); err != nil {
		return nil, err
	} else if ok {
		health, err := snapshot.DecodeHealth(data)
		if err != nil {
			return nil, parseError(paths.HealthFile, err)
		}
		for name, h := range health.Features {
			s.mergeDocs(doc, name, func(d *DocsFeature) { d.Health = &h })
		}
	}

	return doc, nil
}

// mergeDocs applies fn to a registered feature's entry. Documents may name
// features that have since been removed; those are dropped.
func (s *Session) mergeDocs(doc *DocsDocument, name string, fn func(*DocsFeature)) {
	entry, ok := doc.Features[name]
	if !ok {
		s.logger.Debug("Ignoring stale feature in generated document", "feature", name)
		return
	}
	fn(&entry)
	doc.Features[name] = entry
}

func (s *Session) readDataFile(name string) ([]byte, bool, error) {
	data, err := os.ReadFile(s.dataFile(name))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func parseError(name string, err error) error {
	return ferrors.New(ferrors.ConfigInvalid, "parsing "+paths.DataDirName+"/"+name, err)
}
