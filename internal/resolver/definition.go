package resolver

import (
	"featuremap/internal/features"
)

// DefinitionDescription labels the self-claim of definition files.
const DefinitionDescription = "Feature definition file assignment"

// DefinitionResolver makes each feature own its definition file.
type DefinitionResolver struct {
	features *features.Registry
}

// NewDefinitionResolver creates a definition resolver.
func NewDefinitionResolver(reg *features.Registry) *DefinitionResolver {
	return &DefinitionResolver{features: reg}
}

func (r *DefinitionResolver) Description() string { return DefinitionDescription }

func (r *DefinitionResolver) ResolveOne(file string) (*features.Feature, error) {
	for _, f := range r.features.All() {
		if f.DefinitionPath == file {
			return f, nil
		}
	}
	return nil, nil
}

func (r *DefinitionResolver) ResolveMany(_ []string) (Assignments, error) {
	out := make(Assignments, r.features.Len())
	for _, f := range r.features.All() {
		if f.DefinitionPath != "" {
			out[f.DefinitionPath] = f
		}
	}
	return out, nil
}

func (r *DefinitionResolver) UpdateCache(_ Assignments, _ []string) (Assignments, error) {
	return r.ResolveMany(nil)
}

func (r *DefinitionResolver) Reset() {}
