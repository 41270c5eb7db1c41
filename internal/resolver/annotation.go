package resolver

import (
	"path/filepath"

	"featuremap/internal/annotation"
	"featuremap/internal/features"
)

// AnnotationDescription labels claims made by file annotations.
const AnnotationDescription = "Annotations at the top of file"

// AnnotationResolver reads `@feature` comments at the top of each file.
type AnnotationResolver struct {
	root     string
	features *features.Registry
	scanner  *annotation.Scanner
}

// NewAnnotationResolver creates an annotation resolver scanning scanLines lines.
func NewAnnotationResolver(root string, reg *features.Registry, scanLines int) *AnnotationResolver {
	return &AnnotationResolver{
		root:     root,
		features: reg,
		scanner:  annotation.NewScanner(scanLines),
	}
}

func (r *AnnotationResolver) Description() string { return AnnotationDescription }

func (r *AnnotationResolver) ResolveOne(file string) (*features.Feature, error) {
	m, err := r.scanner.ScanFile(filepath.Join(r.root, filepath.FromSlash(file)))
	if err != nil || m == nil {
		return nil, err
	}
	return r.features.MustFind(m.Feature, file)
}

func (r *AnnotationResolver) ResolveMany(files []string) (Assignments, error) {
	out := make(Assignments)
	for _, file := range files {
		f, err := r.ResolveOne(file)
		if err != nil {
			return nil, err
		}
		if f != nil {
			out[file] = f
		}
	}
	return out, nil
}

func (r *AnnotationResolver) UpdateCache(existing Assignments, changed []string) (Assignments, error) {
	out := existing.Clone()
	for _, file := range changed {
		delete(out, file)
	}
	fresh, err := r.ResolveMany(changed)
	if err != nil {
		return nil, err
	}
	for k, v := range fresh {
		out[k] = v
	}
	return out, nil
}

func (r *AnnotationResolver) Reset() {}
