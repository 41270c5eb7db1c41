// Package resolution aggregates every resolver's raw output into one cache
// keyed by resolver description and answers which resolvers claim a file.
package resolution

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"featuremap/internal/features"
	"featuremap/internal/resolver"
	"featuremap/internal/slogutil"
)

// Assignment is the winning claim on one file.
type Assignment struct {
	Feature     *features.Feature
	Description string
	Key         string
}

type claim struct {
	desc string
	key  string
}

// Cache stores description -> (glob-or-path -> Feature).
type Cache struct {
	registry *resolver.Registry
	expander *resolver.GlobExpander
	logger   *slog.Logger

	buckets map[string]resolver.Assignments
	built   bool
}

// New creates an empty cache over the given resolvers.
func New(reg *resolver.Registry, expander *resolver.GlobExpander, logger *slog.Logger) *Cache {
	return &Cache{
		registry: reg,
		expander: expander,
		logger:   slogutil.OrDiscard(logger),
		buckets:  make(map[string]resolver.Assignments),
	}
}

// Built reports whether the cache holds a rebuilt or hydrated state.
func (c *Cache) Built() bool { return c.built }

// Rebuild runs every resolver over files from scratch.
func (c *Cache) Rebuild(files []string) error {
	buckets := make(map[string]resolver.Assignments)
	for _, res := range c.registry.All() {
		b, err := res.ResolveMany(files)
		if err != nil {
			return fmt.Errorf("%s: %w", res.Description(), err)
		}
		buckets[res.Description()] = b
		c.logger.Debug("Resolver finished", "resolver", res.Description(), "entries", len(b))
	}
	c.buckets = buckets
	c.built = true
	return nil
}

// Hydrate installs previously persisted buckets. Buckets of unregistered
// resolvers are dropped.
func (c *Cache) Hydrate(buckets map[string]resolver.Assignments) {
	c.buckets = make(map[string]resolver.Assignments, len(buckets))
	for desc, b := range buckets {
		if _, ok := c.registry.Lookup(desc); !ok {
			c.logger.Debug("Dropping bucket of unknown resolver", "resolver", desc)
			continue
		}
		c.buckets[desc] = b
	}
	c.built = true
}

// Update recomputes the entries touching changed in every bucket, including
// removal of claims that no longer hold.
func (c *Cache) Update(changed []string) error {
	if !c.built {
		return fmt.Errorf("resolution cache updated before it was built")
	}
	for _, res := range c.registry.All() {
		desc := res.Description()
		existing := c.buckets[desc]
		if existing == nil {
			existing = resolver.Assignments{}
		}
		b, err := res.UpdateCache(existing, changed)
		if err != nil {
			return fmt.Errorf("%s: %w", desc, err)
		}
		c.buckets[desc] = b
	}
	// new files may now match globs expanded earlier
	c.expander.Reset()
	c.logger.Debug("Resolution cache updated", "changed", len(changed))
	return nil
}

// Buckets returns the raw per-resolver buckets.
func (c *Cache) Buckets() map[string]resolver.Assignments {
	return c.buckets
}

// Bucket returns one resolver's raw output.
func (c *Cache) Bucket(desc string) resolver.Assignments {
	return c.buckets[desc]
}

// Reset empties the cache and the glob expansion memo behind it.
func (c *Cache) Reset() {
	c.buckets = make(map[string]resolver.Assignments)
	c.built = false
	c.expander.Reset()
}

func (c *Cache) descriptions() []string {
	descs := make([]string, 0, len(c.buckets))
	for d := range c.buckets {
		descs = append(descs, d)
	}
	sort.Strings(descs)
	return descs
}

// index expands every key of every bucket and records the claims on files.
func (c *Cache) index(files []string) (map[string][]claim, error) {
	wanted := make(map[string]struct{}, len(files))
	for _, f := range files {
		wanted[f] = struct{}{}
	}

	idx := make(map[string][]claim, len(files))
	for _, desc := range c.descriptions() {
		bucket := c.buckets[desc]
		for _, key := range bucket.Keys() {
			matches, err := c.expander.Expand(key)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", desc, err)
			}
			for _, m := range matches {
				if _, ok := wanted[m]; ok {
					idx[m] = append(idx[m], claim{desc: desc, key: key})
				}
			}
		}
	}
	return idx, nil
}

// Claims returns, for each file, the sorted descriptions of the resolvers
// claiming it. An empty list means unassigned.
func (c *Cache) Claims(files []string) (map[string][]string, error) {
	idx, err := c.index(files)
	if err != nil {
		return nil, err
	}

	out := make(map[string][]string, len(files))
	for _, f := range files {
		seen := make(map[string]bool)
		descs := []string{}
		for _, cl := range idx[f] {
			if !seen[cl.desc] {
				seen[cl.desc] = true
				descs = append(descs, cl.desc)
			}
		}
		sort.Strings(descs)
		out[f] = descs
	}
	return out, nil
}

// Assign picks one claim per claimed file. Resolvers are ranked by
// registration order; inside a bucket the most specific key wins, so the
// nearest marker directory beats its ancestors.
func (c *Cache) Assign(files []string) (map[string]Assignment, error) {
	idx, err := c.index(files)
	if err != nil {
		return nil, err
	}

	rank := make(map[string]int)
	for i, res := range c.registry.All() {
		rank[res.Description()] = i
	}

	out := make(map[string]Assignment, len(idx))
	for file, claims := range idx {
		best := claims[0]
		for _, cl := range claims[1:] {
			if better(cl, best, file, rank) {
				best = cl
			}
		}
		out[file] = Assignment{
			Feature:     c.buckets[best.desc][best.key],
			Description: best.desc,
			Key:         best.key,
		}
	}
	return out, nil
}

func better(a, b claim, file string, rank map[string]int) bool {
	if a.desc != b.desc {
		return rank[a.desc] < rank[b.desc]
	}
	if (a.key == file) != (b.key == file) {
		return a.key == file
	}
	if la, lb := literalPrefix(a.key), literalPrefix(b.key); la != lb {
		return la > lb
	}
	return a.key < b.key
}

// literalPrefix is the length of key before its first unescaped metacharacter.
func literalPrefix(key string) int {
	for i := 0; i < len(key); i++ {
		switch key[i] {
		case '\\':
			i++
		case '*', '?', '[', '{':
			return i
		}
	}
	return len(key)
}

// FilesByFeature groups assigned files by feature name, each list sorted.
func FilesByFeature(assigned map[string]Assignment) map[string][]string {
	out := make(map[string][]string)
	for file, a := range assigned {
		out[a.Feature.Name] = append(out[a.Feature.Name], file)
	}
	for _, files := range out {
		sort.Strings(files)
	}
	return out
}

// String summarizes bucket sizes for logs.
func (c *Cache) String() string {
	parts := make([]string, 0, len(c.buckets))
	for _, d := range c.descriptions() {
		parts = append(parts, fmt.Sprintf("%s=%d", d, len(c.buckets[d])))
	}
	return strings.Join(parts, " ")
}
