package coverage

import "featuremap/internal/snapshot"

// ForFeatures sums file totals per feature. Coverage is hits/lines*100 and
// zero for a feature with no covered lines.
func ForFeatures(filesByFeature map[string][]string, stats map[string]FileStats) map[string]snapshot.FeatureCoverage {
	out := make(map[string]snapshot.FeatureCoverage, len(filesByFeature))
	for name, files := range filesByFeature {
		var fc snapshot.FeatureCoverage
		for _, file := range files {
			s, ok := stats[file]
			if !ok {
				continue
			}
			fc.Lines += s.Lines
			fc.Hits += s.Hits
			fc.Misses += s.Misses
		}
		if fc.Lines > 0 {
			fc.Coverage = float64(fc.Hits) / float64(fc.Lines) * 100
		}
		out[name] = fc
	}
	return out
}
