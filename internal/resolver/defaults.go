package resolver

import (
	"featuremap/internal/features"
)

// Options configures the default resolver set.
type Options struct {
	Root       string
	MarkerFile string
	ScanLines  int
	Features   *features.Registry
	Dirs       *DirCache
	Expander   *GlobExpander
}

// NewDefaultRegistry registers the annotation, glob, directory and
// definition resolvers in that order.
func NewDefaultRegistry(opts Options) (*Registry, error) {
	return NewRegistry(
		NewAnnotationResolver(opts.Root, opts.Features, opts.ScanLines),
		NewGlobResolver(opts.Features),
		NewDirectoryResolver(opts.Root, opts.MarkerFile, opts.Features, opts.Dirs, opts.Expander),
		NewDefinitionResolver(opts.Features),
	)
}
