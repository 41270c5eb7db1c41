// Package resolver maps repository files to features. Each Resolver is one
// independent strategy; their outputs are reconciled by the resolution cache.
package resolver

import (
	"fmt"
	"sort"

	"featuremap/internal/features"
)

// Assignments maps a glob or repo-relative path to the feature it claims.
type Assignments map[string]*features.Feature

// Clone returns a shallow copy.
func (a Assignments) Clone() Assignments {
	out := make(Assignments, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Keys returns the globs or paths in byte order.
func (a Assignments) Keys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Resolver is one file-to-feature strategy.
type Resolver interface {
	// Description is the stable provenance label written to snapshots.
	Description() string
	// ResolveOne returns the feature owning file, or nil.
	ResolveOne(file string) (*features.Feature, error)
	// ResolveMany returns every glob or path this strategy claims among files.
	ResolveMany(files []string) (Assignments, error)
	// UpdateCache recomputes only the entries touching changed and merges
	// them into a copy of existing, dropping stale claims.
	UpdateCache(existing Assignments, changed []string) (Assignments, error)
	// Reset drops memoized state.
	Reset()
}

// Registry holds the resolvers of a session in construction order.
type Registry struct {
	resolvers []Resolver
	byDesc    map[string]Resolver
}

// NewRegistry registers resolvers. Descriptions must be unique.
func NewRegistry(resolvers ...Resolver) (*Registry, error) {
	r := &Registry{byDesc: make(map[string]Resolver, len(resolvers))}
	for _, res := range resolvers {
		if err := r.Register(res); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register appends a resolver.
func (r *Registry) Register(res Resolver) error {
	desc := res.Description()
	if _, exists := r.byDesc[desc]; exists {
		return fmt.Errorf("resolver already registered: %s", desc)
	}
	r.byDesc[desc] = res
	r.resolvers = append(r.resolvers, res)
	return nil
}

// All returns resolvers in registration order.
func (r *Registry) All() []Resolver {
	out := make([]Resolver, len(r.resolvers))
	copy(out, r.resolvers)
	return out
}

// Sorted returns resolvers ordered by description.
func (r *Registry) Sorted() []Resolver {
	out := r.All()
	sort.Slice(out, func(i, j int) bool {
		return out[i].Description() < out[j].Description()
	})
	return out
}

// Lookup returns the resolver with the given description.
func (r *Registry) Lookup(desc string) (Resolver, bool) {
	res, ok := r.byDesc[desc]
	return res, ok
}

// Descriptions lists registered descriptions in byte order.
func (r *Registry) Descriptions() []string {
	out := make([]string, 0, len(r.resolvers))
	for _, res := range r.resolvers {
		out = append(out, res.Description())
	}
	sort.Strings(out)
	return out
}

// Reset resets every resolver.
func (r *Registry) Reset() {
	for _, res := range r.resolvers {
		res.Reset()
	}
}

// ResolveOne asks each resolver in order and returns the first claim along
// with the description of the resolver that made it.
func (r *Registry) ResolveOne(file string) (*features.Feature, string, error) {
	for _, res := range r.resolvers {
		f, err := res.ResolveOne(file)
		if err != nil {
			return nil, "", err
		}
		if f != nil {
			return f, res.Description(), nil
		}
	}
	return nil, "", nil
}
