// Package features loads feature definitions and exposes them as an
// immutable, name-indexed registry for one run.
package features

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	ferrors "featuremap/internal/errors"
	"featuremap/internal/paths"
)

// Feature is a named product capability. The files it owns are derived by
// the resolvers and never stored here.
type Feature struct {
	Name              string            `json:"name"`
	Description       string            `json:"description,omitempty"`
	DocumentationLink string            `json:"documentationLink,omitempty"`
	CustomAttributes  map[string]string `json:"customAttributes,omitempty"`
	AssignedGlobs     []string          `json:"assignedGlobs,omitempty"`

	// DefinitionPath is the repo-relative path of the definition file.
	DefinitionPath string `json:"definitionPath"`
}

// definition is the on-disk shape shared by YAML and TOML files.
type definition struct {
	Name              string            `yaml:"name" toml:"name"`
	Description       string            `yaml:"description" toml:"description,omitempty"`
	DocumentationLink string            `yaml:"documentation_link" toml:"documentation_link,omitempty"`
	CustomAttributes  map[string]string `yaml:"custom_attributes" toml:"custom_attributes,omitempty"`
	AssignedGlobs     []string          `yaml:"assigned_globs" toml:"assigned_globs,omitempty"`
}

// Registry is the set of features for one run, in declaration order.
type Registry struct {
	features []*Feature
	byName   map[string]*Feature
}

// NewRegistry builds a registry; duplicate names are a configuration error.
func NewRegistry(features ...*Feature) (*Registry, error) {
	r := &Registry{
		features: make([]*Feature, 0, len(features)),
		byName:   make(map[string]*Feature, len(features)),
	}
	for _, f := range features {
		if prev, ok := r.byName[f.Name]; ok {
			return nil, ferrors.Newf(ferrors.ConfigInvalid,
				"feature %q is defined in both %s and %s", f.Name, prev.DefinitionPath, f.DefinitionPath)
		}
		r.byName[f.Name] = f
		r.features = append(r.features, f)
	}
	return r, nil
}

// Load reads every *.yml, *.yaml and *.toml file below dir (relative to repoRoot).
// Files are visited in lexical path order, which is the declaration order.
// A missing directory yields an empty registry.
func Load(repoRoot, dir string) (*Registry, error) {
	absDir := paths.JoinRepoPath(repoRoot, dir)
	if _, err := os.Stat(absDir); os.IsNotExist(err) {
		return NewRegistry()
	}

	var loaded []*Feature
	err := filepath.WalkDir(absDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isDefinitionFile(p) {
			return nil
		}
		rel, err := paths.CanonicalizePath(p, repoRoot)
		if err != nil {
			return err
		}
		f, err := LoadDefinition(p, rel)
		if err != nil {
			return err
		}
		loaded = append(loaded, f)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return NewRegistry(loaded...)
}

// LoadDefinition parses one definition file. relPath is recorded as the origin.
func LoadDefinition(absPath, relPath string) (*Feature, error) {
	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, ferrors.New(ferrors.ConfigInvalid, "cannot read feature definition "+relPath, err)
	}

	var def definition
	switch strings.ToLower(filepath.Ext(absPath)) {
	case ".toml":
		err = toml.Unmarshal(data, &def)
	default:
		err = yaml.Unmarshal(data, &def)
	}
	if err != nil {
		return nil, ferrors.New(ferrors.ConfigInvalid, "malformed feature definition "+relPath, err)
	}

	name := strings.TrimSpace(def.Name)
	if name == "" {
		return nil, ferrors.Newf(ferrors.ConfigInvalid, "feature definition %s is missing a name", relPath)
	}

	return &Feature{
		Name:              name,
		Description:       def.Description,
		DocumentationLink: def.DocumentationLink,
		CustomAttributes:  def.CustomAttributes,
		AssignedGlobs:     def.AssignedGlobs,
		DefinitionPath:    relPath,
	}, nil
}

func isDefinitionFile(p string) bool {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".yml", ".yaml", ".toml":
		return true
	}
	return false
}

// All returns features in declaration order.
func (r *Registry) All() []*Feature {
	return r.features
}

// Len returns the number of features.
func (r *Registry) Len() int {
	return len(r.features)
}

// Find returns the feature with the given name, or nil.
func (r *Registry) Find(name string) *Feature {
	return r.byName[name]
}

// Names returns every feature name sorted ascending.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.features))
	for _, f := range r.features {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	return names
}

// MustFind returns the named feature or an UNKNOWN_FEATURE error naming the
// offending source and the full sorted list of valid names.
func (r *Registry) MustFind(name, source string) (*Feature, error) {
	if f := r.Find(name); f != nil {
		return f, nil
	}
	return nil, ferrors.Newf(ferrors.UnknownFeature,
		"%s names unknown feature %q; valid features are: %s",
		source, name, strings.Join(r.Names(), ", ")).WithDetails(r.Names())
}

// String implements fmt.Stringer for log output.
func (f *Feature) String() string {
	return fmt.Sprintf("Feature(%s)", f.Name)
}
