package engine

import (
	"context"
	"fmt"
	"os"
	"sort"

	ferrors "featuremap/internal/errors"
	"featuremap/internal/features"
	"featuremap/internal/inventory"
	"featuremap/internal/ownership"
	"featuremap/internal/paths"
	"featuremap/internal/resolution"
	"featuremap/internal/resolver"
	"featuremap/internal/storage"
)

// Inventory returns the filtered repository files, listed once per session.
func (s *Session) Inventory(ctx context.Context) ([]string, error) {
	if s.files != nil {
		return s.files, nil
	}
	files, err := s.inventory.Files(ctx)
	if err != nil {
		return nil, err
	}
	s.files = files
	return files, nil
}

// Resolve assigns every inventory file to a feature. The resolution cache is
// hydrated from the persisted cache when the feature set is unchanged and
// then updated for the files whose stamps differ; otherwise it is rebuilt.
func (s *Session) Resolve(ctx context.Context) (map[string]resolution.Assignment, error) {
	if s.assigned != nil {
		return s.assigned, nil
	}

	files, err := s.Inventory(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.buildCache(files); err != nil {
		return nil, err
	}

	assigned, err := s.cache.Assign(files)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Resolved feature assignments", "files", len(files), "assigned", len(assigned))
	s.assigned = assigned
	return assigned, nil
}

func (s *Session) buildCache(files []string) error {
	if s.cache != nil && s.cache.Built() {
		return nil
	}
	reg, err := s.Features()
	if err != nil {
		return err
	}
	resolvers, err := s.Resolvers()
	if err != nil {
		return err
	}
	s.cache = resolution.New(resolvers, s.expander, s.logger)

	store, err := s.cacheStore()
	if err != nil {
		s.logger.Warn("Resolution cache unavailable, rebuilding", "error", err.Error())
		store = nil
	}
	if store == nil {
		return s.cache.Rebuild(files)
	}

	fingerprint, err := s.fingerprint(reg)
	if err != nil {
		return err
	}
	stamps := s.inventory.Stamps(files)

	state, ok, err := store.Load()
	if err != nil {
		s.logger.Warn("Ignoring unreadable resolution cache", "error", err.Error())
		ok = false
	}

	hydrated := false
	if ok && state.Fingerprint == fingerprint {
		if buckets, valid := rehydrate(state.Buckets, reg); valid {
			s.cache.Hydrate(buckets)
			hydrated = true
			changed := inventory.Changed(state.Stamps, stamps)
			if len(changed) > 0 {
				if err := s.cache.Update(changed); err != nil {
					return err
				}
			}
			s.logger.Debug("Resolution cache hydrated", "changed", len(changed), "buckets", s.cache.String())
		}
	}
	if !hydrated {
		if err := s.cache.Rebuild(files); err != nil {
			return err
		}
		s.logger.Debug("Resolution cache rebuilt", "buckets", s.cache.String())
	}

	if err := store.Save(&storage.CachedState{
		Fingerprint: fingerprint,
		Stamps:      stamps,
		Buckets:     flatten(s.cache.Buckets()),
	}); err != nil {
		s.logger.Warn("Failed to persist resolution cache", "error", err.Error())
	}
	return nil
}

// rehydrate maps persisted feature names back onto the registry. Any name
// the registry no longer knows invalidates the whole state.
func rehydrate(stored map[string]map[string]string, reg *features.Registry) (map[string]resolver.Assignments, bool) {
	out := make(map[string]resolver.Assignments, len(stored))
	for desc, bucket := range stored {
		a := make(resolver.Assignments, len(bucket))
		for key, name := range bucket {
			f := reg.Find(name)
			if f == nil {
				return nil, false
			}
			a[key] = f
		}
		out[desc] = a
	}
	return out, true
}

func flatten(buckets map[string]resolver.Assignments) map[string]map[string]string {
	out := make(map[string]map[string]string, len(buckets))
	for desc, bucket := range buckets {
		flat := make(map[string]string, len(bucket))
		for key, f := range bucket {
			flat[key] = f.Name
		}
		out[desc] = flat
	}
	return out
}

// FilesByFeature returns every feature's sorted files. Features without
// files are present with an empty list.
func (s *Session) FilesByFeature(ctx context.Context) (map[string][]string, error) {
	assigned, err := s.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	reg, err := s.Features()
	if err != nil {
		return nil, err
	}
	byFeature := resolution.FilesByFeature(assigned)
	for _, name := range reg.Names() {
		if _, ok := byFeature[name]; !ok {
			byFeature[name] = []string{}
		}
	}
	return byFeature, nil
}

// FileResult is the answer to for-file.
type FileResult struct {
	File        string            `json:"file"`
	Feature     *features.Feature `json:"feature,omitempty"`
	Description string            `json:"mapper,omitempty"`
}

// ForFile resolves a single path without building the resolution cache.
func (s *Session) ForFile(path string) (*FileResult, error) {
	rel, err := paths.RepoRelative(path, s.root)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(paths.JoinRepoPath(s.root, rel)); err != nil {
		return nil, fmt.Errorf("%s: %w", rel, err)
	}
	resolvers, err := s.Resolvers()
	if err != nil {
		return nil, err
	}
	f, desc, err := resolvers.ResolveOne(rel)
	if err != nil {
		return nil, err
	}
	return &FileResult{File: rel, Feature: f, Description: desc}, nil
}

// FeatureResult is the answer to for-feature.
type FeatureResult struct {
	Feature *features.Feature `json:"feature"`
	Files   []string          `json:"files"`
	Teams   []string          `json:"teams,omitempty"`
}

// ForFeature lists the files and owning teams of one feature.
func (s *Session) ForFeature(ctx context.Context, name string) (*FeatureResult, error) {
	reg, err := s.Features()
	if err != nil {
		return nil, err
	}
	f, err := reg.MustFind(name, "for-feature")
	if err != nil {
		return nil, err
	}
	byFeature, err := s.FilesByFeature(ctx)
	if err != nil {
		return nil, err
	}
	result := &FeatureResult{Feature: f, Files: byFeature[name]}

	teams, err := s.teams(map[string][]string{name: result.Files})
	if err != nil {
		return nil, err
	}
	result.Teams = teams[name]
	return result, nil
}

// teams derives owning teams from CODEOWNERS when enabled.
func (s *Session) teams(filesByFeature map[string][]string) (map[string][]string, error) {
	if !s.cfg.Codeowners.Enabled {
		return nil, nil
	}
	co, err := ownership.Load(s.root)
	if err != nil {
		return nil, ferrors.New(ferrors.ConfigInvalid, "reading CODEOWNERS", err)
	}
	if co == nil {
		s.logger.Warn("codeowners.enabled is set but no CODEOWNERS file was found")
		return nil, nil
	}
	return co.TeamsByFeature(filesByFeature), nil
}

// sortedNames returns the keys of m in order.
func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
