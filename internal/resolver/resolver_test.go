package resolver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "featuremap/internal/errors"
	"featuremap/internal/features"
)

func writeFile(t *testing.T, root, rel, body string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(t, os.WriteFile(p, []byte(body), 0644))
}

func newRegistry(t *testing.T, fs ...*features.Feature) *features.Registry {
	t.Helper()
	reg, err := features.NewRegistry(fs...)
	require.NoError(t, err)
	return reg
}

func TestRegistry(t *testing.T) {
	reg := newRegistry(t, &features.Feature{Name: "Foo"})
	r, err := NewRegistry(NewGlobResolver(reg), NewDefinitionResolver(reg), NewAnnotationResolver(t.TempDir(), reg, 10))
	require.NoError(t, err)

	assert.Equal(t, GlobDescription, r.All()[0].Description())
	assert.Equal(t, AnnotationDescription, r.Sorted()[0].Description())
	assert.Equal(t, []string{AnnotationDescription, DefinitionDescription, GlobDescription}, r.Descriptions())

	_, ok := r.Lookup(DefinitionDescription)
	assert.True(t, ok)

	assert.Error(t, r.Register(NewGlobResolver(reg)))
}

func TestRegistry_ResolveOneFirstClaimWins(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "app/a.rb", "# @feature Bar\n")
	foo := &features.Feature{Name: "Foo", AssignedGlobs: []string{"app/**/*.rb"}}
	bar := &features.Feature{Name: "Bar"}
	reg := newRegistry(t, foo, bar)

	r, err := NewRegistry(NewAnnotationResolver(root, reg, 10), NewGlobResolver(reg))
	require.NoError(t, err)

	f, desc, err := r.ResolveOne("app/a.rb")
	require.NoError(t, err)
	assert.Equal(t, "Bar", f.Name)
	assert.Equal(t, AnnotationDescription, desc)

	f, desc, err = r.ResolveOne("lib/x.go")
	require.NoError(t, err)
	assert.Nil(t, f)
	assert.Empty(t, desc)
}

func TestAnnotationResolver(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "app/a.rb", "# @feature Foo\n")
	writeFile(t, root, "app/b.rb", "puts 1\n")
	writeFile(t, root, "app/c.rb", "# @feature Missing\n")
	reg := newRegistry(t, &features.Feature{Name: "Foo"}, &features.Feature{Name: "Bar"})
	r := NewAnnotationResolver(root, reg, 10)

	got, err := r.ResolveMany([]string{"app/a.rb", "app/b.rb"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Foo", got["app/a.rb"].Name)

	_, err = r.ResolveOne("app/c.rb")
	require.Error(t, err)
	assert.True(t, ferrors.Is(err, ferrors.UnknownFeature))
	assert.Contains(t, err.Error(), "app/c.rb")
	assert.Contains(t, err.Error(), "Bar, Foo")

	writeFile(t, root, "app/a.rb", "puts 1\n")
	writeFile(t, root, "app/b.rb", "# @feature Bar\n")
	updated, err := r.UpdateCache(got, []string{"app/a.rb", "app/b.rb"})
	require.NoError(t, err)
	require.Len(t, updated, 1)
	assert.Equal(t, "Bar", updated["app/b.rb"].Name)
	assert.Contains(t, got, "app/a.rb", "existing buckets are not mutated")
}

func TestDirectoryResolver_NearestAncestorWins(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a/.feature", "Bar\n")
	writeFile(t, root, "a/b/.feature", "Foo\nignored second line\n")
	writeFile(t, root, "a/b/c/file.rb", "")
	writeFile(t, root, "a/other/file.rb", "")
	writeFile(t, root, "top.rb", "")

	reg := newRegistry(t, &features.Feature{Name: "Foo"}, &features.Feature{Name: "Bar"})
	dirs := NewDirCache(root, ".feature")
	r := NewDirectoryResolver(root, ".feature", reg, dirs, NewGlobExpander(root))
	assert.Equal(t, "Feature Assignment in .feature", r.Description())

	f, err := r.ResolveOne("a/b/c/file.rb")
	require.NoError(t, err)
	assert.Equal(t, "Foo", f.Name)

	f, err = r.ResolveOne("a/other/file.rb")
	require.NoError(t, err)
	assert.Equal(t, "Bar", f.Name)

	f, err = r.ResolveOne("a/b")
	require.NoError(t, err)
	assert.Equal(t, "Foo", f.Name)

	f, err = r.ResolveOne("top.rb")
	require.NoError(t, err)
	assert.Nil(t, f)

	// negative results are memoized too
	assert.GreaterOrEqual(t, dirs.Len(), 5)
	r.Reset()
	assert.Zero(t, dirs.Len())
}

func TestDirectoryResolver_ResolveMany(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a/.feature", "Bar\n")
	writeFile(t, root, "weird[1]/.feature", "Foo\n")
	writeFile(t, root, "weird[1]/x.rb", "")
	writeFile(t, root, "weird1/y.rb", "")

	reg := newRegistry(t, &features.Feature{Name: "Foo"}, &features.Feature{Name: "Bar"})
	expander := NewGlobExpander(root)
	r := NewDirectoryResolver(root, ".feature", reg, NewDirCache(root, ".feature"), expander)

	got, err := r.ResolveMany(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{`a/**/*`, `weird\[1\]/**/*`}, got.Keys())
	assert.Equal(t, "Foo", got[`weird\[1\]/**/*`].Name)

	files, err := expander.Expand(`weird\[1\]/**/*`)
	require.NoError(t, err)
	assert.Equal(t, []string{"weird[1]/.feature", "weird[1]/x.rb"}, files)

	writeFile(t, root, "c/.feature", "Foo\n")
	unchanged, err := r.UpdateCache(got, []string{"weird1/y.rb"})
	require.NoError(t, err)
	assert.Len(t, unchanged, 2)

	updated, err := r.UpdateCache(got, []string{"c/.feature"})
	require.NoError(t, err)
	assert.Contains(t, updated, "c/**/*")
}

func TestDirectoryResolver_UnknownFeature(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a/.feature", "Nope\n")
	reg := newRegistry(t, &features.Feature{Name: "Foo"})
	r := NewDirectoryResolver(root, ".feature", reg, NewDirCache(root, ".feature"), NewGlobExpander(root))

	_, err := r.ResolveOne("a/x.rb")
	require.Error(t, err)
	assert.True(t, ferrors.Is(err, ferrors.UnknownFeature))
	assert.Contains(t, err.Error(), "a/.feature")
}

func TestGlobResolver(t *testing.T) {
	foo := &features.Feature{Name: "Foo", AssignedGlobs: []string{"app/**/*.rb"}}
	bar := &features.Feature{Name: "Bar", AssignedGlobs: []string{"app/models/*.rb", "app/**/*.rb"}}
	r := NewGlobResolver(newRegistry(t, foo, bar))

	f, err := r.ResolveOne("app/models/user.rb")
	require.NoError(t, err)
	assert.Equal(t, "Foo", f.Name, "declaration order decides")

	f, err = r.ResolveOne("lib/x.rb")
	require.NoError(t, err)
	assert.Nil(t, f)

	got, err := r.ResolveMany(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"app/**/*.rb", "app/models/*.rb"}, got.Keys())
	assert.Equal(t, "Foo", got["app/**/*.rb"].Name)

	bad := NewGlobResolver(newRegistry(t, &features.Feature{Name: "X", AssignedGlobs: []string{"app/[.rb"}}))
	_, err = bad.ResolveMany(nil)
	assert.True(t, ferrors.Is(err, ferrors.ConfigInvalid))
}

func TestGlobResolver_Overlaps(t *testing.T) {
	foo := &features.Feature{Name: "Foo", AssignedGlobs: []string{"app/**/*.rb"}}
	bar := &features.Feature{Name: "Bar", AssignedGlobs: []string{"app/models/*.rb"}}
	r := NewGlobResolver(newRegistry(t, foo, bar))

	files := []string{"app/models/b.rb", "app/x.rb", "app/models/a.rb"}
	overlaps := r.Overlaps(files)
	require.Len(t, overlaps, 1)
	assert.Equal(t, []GlobClaim{{Glob: "app/**/*.rb", Feature: "Foo"}, {Glob: "app/models/*.rb", Feature: "Bar"}}, overlaps[0].Claims)
	assert.Equal(t, []string{"app/models/a.rb", "app/models/b.rb"}, overlaps[0].Files)

	reversed := NewGlobResolver(newRegistry(t, bar, foo)).Overlaps([]string{"app/models/a.rb", "app/models/b.rb"})
	assert.Equal(t, overlaps, reversed)
}

func TestDefinitionResolver(t *testing.T) {
	foo := &features.Feature{Name: "Foo", DefinitionPath: ".feature_map/definitions/foo.yml"}
	r := NewDefinitionResolver(newRegistry(t, foo))

	f, err := r.ResolveOne(".feature_map/definitions/foo.yml")
	require.NoError(t, err)
	assert.Equal(t, foo, f)

	got, err := r.ResolveMany(nil)
	require.NoError(t, err)
	assert.Equal(t, Assignments{".feature_map/definitions/foo.yml": foo}, got)
}

func TestGlobExpander(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "app/b.rb", "")
	writeFile(t, root, "app/a.rb", "")
	writeFile(t, root, "app/[id].tsx", "")
	writeFile(t, root, "lib/c.go", "")

	g := NewGlobExpander(root)
	got, err := g.Expand("app/*.rb")
	require.NoError(t, err)
	assert.Equal(t, []string{"app/a.rb", "app/b.rb"}, got)

	got, err = g.Expand("app/[id].tsx")
	require.NoError(t, err)
	assert.Equal(t, []string{"app/[id].tsx"}, got, "existing literal path wins over character class")

	writeFile(t, root, "app/c.rb", "")
	got, err = g.Expand("app/*.rb")
	require.NoError(t, err)
	assert.Len(t, got, 2, "memoized")

	g.Reset()
	got, err = g.Expand("app/*.rb")
	require.NoError(t, err)
	assert.Len(t, got, 3)

	_, err = g.Expand("app/[")
	assert.Error(t, err)
}

func TestEscapeGlobAndMatches(t *testing.T) {
	assert.Equal(t, `app/\[id\]`, EscapeGlob("app/[id]"))
	assert.Equal(t, "**/*", DirectoryGlob("."))
	assert.True(t, Matches(`app/\[id\]/**/*`, "app/[id]/page.tsx"))
	assert.False(t, Matches(`app/\[id\]/**/*`, "app/i/page.tsx"))
	assert.True(t, Matches("app/[id].tsx", "app/[id].tsx"))
	assert.False(t, Matches("app/[", "app/x"))
}
