package pyramid

import (
	"sort"
)

// Level is a tier of the test pyramid.
type Level string

const (
	Unit        Level = "unit"
	Integration Level = "integration"
	Regression  Level = "regression"
)

// Levels lists pyramid levels bottom-up.
var Levels = []Level{Unit, Integration, Regression}

// Pyramid holds one feature's counts per level.
type Pyramid map[Level]Count

// Map sums report outcomes over each feature's files. Files that normalize to
// the same key are counted once per feature; unmatched files add nothing.
func Map(report *Report, filesByFeature map[string][]string, n Normalizer) map[string]Count {
	out := make(map[string]Count, len(filesByFeature))
	for feature, files := range filesByFeature {
		seen := make(map[string]bool, len(files))
		var total Count
		for _, f := range files {
			key := n.Key(f)
			if seen[key] {
				continue
			}
			seen[key] = true
			total = total.Add(report.Lookup(key))
		}
		out[feature] = total
	}
	return out
}

// Input is one level's report and the assignments it is mapped against.
type Input struct {
	Report         *Report
	FilesByFeature map[string][]string
}

// Build maps every provided level. Each feature named by any level's
// assignments gets an entry for all levels.
func Build(inputs map[Level]Input, n Normalizer) map[string]Pyramid {
	out := make(map[string]Pyramid)
	for _, level := range Levels {
		in, ok := inputs[level]
		if !ok {
			continue
		}
		for feature, count := range Map(in.Report, in.FilesByFeature, n) {
			p, ok := out[feature]
			if !ok {
				p = make(Pyramid, len(Levels))
				out[feature] = p
			}
			p[level] = count
		}
	}
	for _, p := range out {
		for _, level := range Levels {
			if _, ok := p[level]; !ok {
				p[level] = Count{}
			}
		}
	}
	return out
}

// Features returns the feature names of a pyramid map in order.
func Features(m map[string]Pyramid) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
