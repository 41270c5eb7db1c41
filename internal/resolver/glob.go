package resolver

import (
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	ferrors "featuremap/internal/errors"
	"featuremap/internal/features"
)

// GlobDescription labels claims made by assigned_globs.
const GlobDescription = "Feature-specific assigned globs"

// GlobResolver assigns files through each feature's assigned_globs.
type GlobResolver struct {
	features *features.Registry
}

// NewGlobResolver creates a glob resolver.
func NewGlobResolver(reg *features.Registry) *GlobResolver {
	return &GlobResolver{features: reg}
}

func (r *GlobResolver) Description() string { return GlobDescription }

// ResolveOne returns the first feature, in declaration order, with a glob
// matching file.
func (r *GlobResolver) ResolveOne(file string) (*features.Feature, error) {
	for _, f := range r.features.All() {
		for _, g := range f.AssignedGlobs {
			if Matches(g, file) {
				return f, nil
			}
		}
	}
	return nil, nil
}

// ResolveMany returns every declared glob. When two features declare the
// same glob the earlier declaration keeps it.
func (r *GlobResolver) ResolveMany(_ []string) (Assignments, error) {
	out := make(Assignments)
	for _, f := range r.features.All() {
		for _, g := range f.AssignedGlobs {
			if !doublestar.ValidatePattern(g) {
				return nil, ferrors.Newf(ferrors.ConfigInvalid,
					"%s: invalid assigned glob %q", f.DefinitionPath, g)
			}
			if _, taken := out[g]; !taken {
				out[g] = f
			}
		}
	}
	return out, nil
}

func (r *GlobResolver) UpdateCache(_ Assignments, _ []string) (Assignments, error) {
	return r.ResolveMany(nil)
}

func (r *GlobResolver) Reset() {}

// GlobClaim is one (glob, feature) pair.
type GlobClaim struct {
	Glob    string `json:"glob"`
	Feature string `json:"feature"`
}

// Overlap is a set of (glob, feature) pairs that all match the same files.
type Overlap struct {
	Claims []GlobClaim `json:"claims"`
	Files  []string    `json:"files"`
}

// Overlaps groups the files matched by more than one (glob, feature) pair.
// Groups are keyed by their pair set, so enumeration order does not matter.
func (r *GlobResolver) Overlaps(files []string) []Overlap {
	groups := make(map[string]*Overlap)
	for _, file := range files {
		var claims []GlobClaim
		for _, f := range r.features.All() {
			for _, g := range f.AssignedGlobs {
				if Matches(g, file) {
					claims = append(claims, GlobClaim{Glob: g, Feature: f.Name})
				}
			}
		}
		if len(claims) < 2 {
			continue
		}

		sort.Slice(claims, func(i, j int) bool {
			if claims[i].Glob != claims[j].Glob {
				return claims[i].Glob < claims[j].Glob
			}
			return claims[i].Feature < claims[j].Feature
		})
		parts := make([]string, len(claims))
		for i, c := range claims {
			parts[i] = c.Glob + "\x00" + c.Feature
		}
		key := strings.Join(parts, "\x01")

		g, ok := groups[key]
		if !ok {
			g = &Overlap{Claims: claims}
			groups[key] = g
		}
		g.Files = append(g.Files, file)
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]Overlap, 0, len(keys))
	for _, k := range keys {
		g := groups[k]
		sort.Strings(g.Files)
		out = append(out, *g)
	}
	return out
}
