// Package metrics collects per-file static metrics and sums them per feature.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sort"

	"featuremap/internal/complexity"
	"featuremap/internal/slogutil"
	"featuremap/internal/snapshot"
)

// FileMetrics are the raw metrics of one file.
type FileMetrics struct {
	ABCSize              float64
	LinesOfCode          int
	CyclomaticComplexity int
}

// Collector supplies per-file metrics. A nil result means the file is not
// supported and contributes nothing.
type Collector interface {
	FileMetrics(ctx context.Context, file string) (*FileMetrics, error)
}

// TreeSitterCollector computes metrics with the tree-sitter analyzer.
type TreeSitterCollector struct {
	root     string
	analyzer *complexity.Analyzer
}

// NewTreeSitterCollector creates a collector for files below root.
func NewTreeSitterCollector(root string) *TreeSitterCollector {
	return &TreeSitterCollector{root: root, analyzer: complexity.NewAnalyzer()}
}

func (c *TreeSitterCollector) FileMetrics(ctx context.Context, file string) (*FileMetrics, error) {
	fm, err := c.analyzer.AnalyzeFile(ctx, filepath.Join(c.root, filepath.FromSlash(file)))
	if err != nil || fm == nil {
		return nil, err
	}
	return &FileMetrics{
		ABCSize:              fm.ABC.Size(),
		LinesOfCode:          fm.LinesOfCode,
		CyclomaticComplexity: fm.Cyclomatic,
	}, nil
}

// Aggregator sums file metrics per feature.
type Aggregator struct {
	root      string
	collector Collector
	logger    *slog.Logger
}

// NewAggregator creates an aggregator.
func NewAggregator(root string, collector Collector, logger *slog.Logger) *Aggregator {
	return &Aggregator{root: root, collector: collector, logger: slogutil.OrDiscard(logger)}
}

// Collect sums each feature's file metrics and gathers its TODO locations.
func (a *Aggregator) Collect(ctx context.Context, filesByFeature map[string][]string) (map[string]snapshot.FeatureMetrics, error) {
	names := make([]string, 0, len(filesByFeature))
	for name := range filesByFeature {
		names = append(names, name)
	}
	sort.Strings(names)

	unavailable := false
	out := make(map[string]snapshot.FeatureMetrics, len(names))
	for _, name := range names {
		var fm snapshot.FeatureMetrics
		for _, file := range filesByFeature[name] {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			m, err := a.collector.FileMetrics(ctx, file)
			switch {
			case errors.Is(err, complexity.ErrNoCGO):
				if !unavailable {
					a.logger.Warn("Complexity analysis unavailable in this build; only TODOs are collected")
					unavailable = true
				}
			case err != nil:
				a.logger.Warn("Skipping metrics for file", "file", file, "error", err.Error())
			case m != nil:
				fm.ABCSize += m.ABCSize
				fm.LinesOfCode += m.LinesOfCode
				fm.CyclomaticComplexity += m.CyclomaticComplexity
			}

			todos, err := FindTodos(a.root, file)
			if err != nil {
				return nil, err
			}
			for loc, text := range todos {
				if fm.TodoLocations == nil {
					fm.TodoLocations = make(map[string]string)
				}
				fm.TodoLocations[loc] = text
			}
		}
		out[name] = fm
	}
	a.logger.Debug("Metrics collected", "features", len(out))
	return out, nil
}
