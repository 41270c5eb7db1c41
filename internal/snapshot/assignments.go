// Package snapshot renders the generated documents under .feature_map and
// compares them with what is on disk.
package snapshot

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	ferrors "featuremap/internal/errors"
	"featuremap/internal/resolution"
)

const generatedHeader = `# STOP! - DO NOT EDIT THIS FILE MANUALLY
# This file was automatically generated by "featuremap validate --autocorrect".
# Feature assignments come from annotations, .feature marker files,
# assigned_globs and the feature definition files themselves.
`

// FileEntry is the files-section record of one file.
type FileEntry struct {
	Feature string `yaml:"feature" json:"feature"`
	Mapper  string `yaml:"mapper" json:"mapper"`
}

// FeatureEntry is the features-section record of one feature.
type FeatureEntry struct {
	Files []string `yaml:"files" json:"files"`
	Teams []string `yaml:"teams,omitempty" json:"teams,omitempty"`
}

// Assignments is the .feature_map/assignments.yml document.
type Assignments struct {
	Files    map[string]FileEntry    `yaml:"files" json:"files"`
	Features map[string]FeatureEntry `yaml:"features" json:"features"`
}

// BuildAssignments assembles the document. Every name in featureNames gets a
// features entry, with or without files; teams may be nil.
func BuildAssignments(assigned map[string]resolution.Assignment, featureNames []string, teams map[string][]string) *Assignments {
	doc := &Assignments{
		Files:    make(map[string]FileEntry, len(assigned)),
		Features: make(map[string]FeatureEntry, len(featureNames)),
	}
	for _, name := range featureNames {
		doc.Features[name] = FeatureEntry{Files: []string{}}
	}
	for file, a := range assigned {
		doc.Files[file] = FileEntry{Feature: a.Feature.Name, Mapper: a.Description}
		entry := doc.Features[a.Feature.Name]
		entry.Files = append(entry.Files, file)
		doc.Features[a.Feature.Name] = entry
	}
	for name, entry := range doc.Features {
		sort.Strings(entry.Files)
		if t := teams[name]; len(t) > 0 {
			entry.Teams = append([]string(nil), t...)
			sort.Strings(entry.Teams)
		}
		doc.Features[name] = entry
	}
	return doc
}

// Encode renders the document with every mapping in byte order.
func (a *Assignments) Encode() ([]byte, error) {
	files := sortedMapping(a.Files, func(e FileEntry) *yaml.Node {
		return mapping("feature", str(e.Feature), "mapper", str(e.Mapper))
	})
	features := sortedMapping(a.Features, func(e FeatureEntry) *yaml.Node {
		n := mapping("files", list(e.Files))
		if len(e.Teams) > 0 {
			n.Content = append(n.Content, str("teams"), list(e.Teams))
		}
		return n
	})
	return encode(generatedHeader, mapping("files", files, "features", features))
}

// FilesByFeature returns the features section as feature -> files.
func (a *Assignments) FilesByFeature() map[string][]string {
	out := make(map[string][]string, len(a.Features))
	for name, e := range a.Features {
		out[name] = e.Files
	}
	return out
}

// DecodeAssignments parses an assignments document.
func DecodeAssignments(data []byte) (*Assignments, error) {
	var a Assignments
	if err := yaml.Unmarshal(data, &a); err != nil {
		return nil, err
	}
	if a.Files == nil {
		a.Files = map[string]FileEntry{}
	}
	if a.Features == nil {
		a.Features = map[string]FeatureEntry{}
	}
	return &a, nil
}

// LoadAssignments reads an assignments document from disk.
func LoadAssignments(path string) (*Assignments, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ferrors.New(ferrors.SnapshotStale,
				fmt.Sprintf("%s does not exist", path), err)
		}
		return nil, err
	}
	a, err := DecodeAssignments(data)
	if err != nil {
		return nil, ferrors.New(ferrors.ConfigInvalid, "parsing "+path, err)
	}
	return a, nil
}
