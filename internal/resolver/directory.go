package resolver

import (
	"bufio"
	"os"
	"path"
	"path/filepath"
	"strings"

	"featuremap/internal/features"
)

// DirectoryDescriptionFor labels claims made through marker files.
func DirectoryDescriptionFor(marker string) string {
	return "Feature Assignment in " + marker
}

type dirMarker struct {
	feature string
	found   bool
}

// DirCache memoizes the marker lookup of each directory, including
// directories without one. It is shared by every directory resolver of a
// session.
type DirCache struct {
	root    string
	marker  string
	entries map[string]dirMarker
}

// NewDirCache creates an empty cache for marker files named marker.
func NewDirCache(root, marker string) *DirCache {
	return &DirCache{root: root, marker: marker, entries: make(map[string]dirMarker)}
}

// Marker returns the feature named by dir's own marker file.
func (c *DirCache) Marker(dir string) (string, bool, error) {
	if m, ok := c.entries[dir]; ok {
		return m.feature, m.found, nil
	}

	name, err := readFirstLine(filepath.Join(c.root, filepath.FromSlash(dir), c.marker))
	if err != nil && !os.IsNotExist(err) {
		return "", false, err
	}
	m := dirMarker{feature: name, found: name != ""}
	c.entries[dir] = m
	return m.feature, m.found, nil
}

// Forget drops dir from the cache.
func (c *DirCache) Forget(dir string) {
	delete(c.entries, dir)
}

// Len is the number of memoized directories.
func (c *DirCache) Len() int { return len(c.entries) }

// Reset drops every memoized directory.
func (c *DirCache) Reset() {
	c.entries = make(map[string]dirMarker)
}

func readFirstLine(p string) (string, error) {
	f, err := os.Open(p)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	sc := bufio.NewScanner(f)
	if sc.Scan() {
		return strings.TrimSpace(sc.Text()), nil
	}
	return "", sc.Err()
}

// DirectoryResolver assigns files to the feature named by the nearest
// ancestor directory's marker file.
type DirectoryResolver struct {
	root     string
	marker   string
	features *features.Registry
	dirs     *DirCache
	expander *GlobExpander
}

// NewDirectoryResolver creates a directory resolver over a shared cache.
func NewDirectoryResolver(root, marker string, reg *features.Registry, dirs *DirCache, expander *GlobExpander) *DirectoryResolver {
	return &DirectoryResolver{root: root, marker: marker, features: reg, dirs: dirs, expander: expander}
}

func (r *DirectoryResolver) Description() string { return DirectoryDescriptionFor(r.marker) }

// ResolveOne walks from file's parent up to the repository root. A directory
// argument is checked itself before its parents.
func (r *DirectoryResolver) ResolveOne(file string) (*features.Feature, error) {
	file = path.Clean(file)
	dir := path.Dir(file)
	if info, err := os.Stat(filepath.Join(r.root, filepath.FromSlash(file))); err == nil && info.IsDir() {
		dir = file
	}

	for {
		name, found, err := r.dirs.Marker(dir)
		if err != nil {
			return nil, err
		}
		if found {
			return r.features.MustFind(name, path.Join(dir, r.marker))
		}
		if dir == "." || dir == "/" {
			return nil, nil
		}
		dir = path.Dir(dir)
	}
}

// ResolveMany claims one recursive glob per marker directory found anywhere in
// the repository; the files argument does not restrict it.
func (r *DirectoryResolver) ResolveMany(_ []string) (Assignments, error) {
	markers, err := r.expander.Expand("**/" + EscapeGlob(r.marker))
	if err != nil {
		return nil, err
	}

	out := make(Assignments, len(markers))
	for _, m := range markers {
		dir := path.Dir(m)
		name, found, err := r.dirs.Marker(dir)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		f, err := r.features.MustFind(name, m)
		if err != nil {
			return nil, err
		}
		out[DirectoryGlob(dir)] = f
	}
	return out, nil
}

// UpdateCache rebuilds when a marker file changed; otherwise directory globs
// are unaffected by file edits.
func (r *DirectoryResolver) UpdateCache(existing Assignments, changed []string) (Assignments, error) {
	touched := false
	for _, file := range changed {
		if path.Base(file) == r.marker {
			r.dirs.Forget(path.Dir(file))
			touched = true
		}
	}
	if !touched {
		return existing.Clone(), nil
	}
	r.expander.Forget("**/" + EscapeGlob(r.marker))
	return r.ResolveMany(nil)
}

// Reset clears the shared directory cache.
func (r *DirectoryResolver) Reset() {
	r.dirs.Reset()
}
