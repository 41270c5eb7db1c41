package snapshot

import (
	"gopkg.in/yaml.v3"

	"featuremap/internal/output"
	"featuremap/internal/pyramid"
)

const metricsHeader = "# Generated by \"featuremap metrics\". Do not edit.\n"
const coverageHeader = "# Generated by \"featuremap coverage\". Do not edit.\n"
const pyramidHeader = "# Generated by \"featuremap test-pyramid\". Do not edit.\n"

// FeatureMetrics are the summed raw metrics of one feature.
type FeatureMetrics struct {
	ABCSize              float64           `yaml:"abc_size" json:"abc_size"`
	LinesOfCode          int               `yaml:"lines_of_code" json:"lines_of_code"`
	CyclomaticComplexity int               `yaml:"cyclomatic_complexity" json:"cyclomatic_complexity"`
	TodoLocations        map[string]string `yaml:"todo_locations,omitempty" json:"todo_locations,omitempty"`
}

// EncodeMetrics renders .feature_map/metrics.yml.
func EncodeMetrics(byFeature map[string]FeatureMetrics) ([]byte, error) {
	root := sortedMapping(byFeature, func(m FeatureMetrics) *yaml.Node {
		n := mapping(
			"abc_size", float(m.ABCSize),
			"lines_of_code", integer(m.LinesOfCode),
			"cyclomatic_complexity", integer(m.CyclomaticComplexity),
		)
		if len(m.TodoLocations) > 0 {
			n.Content = append(n.Content, str("todo_locations"), sortedMapping(m.TodoLocations, str))
		}
		return n
	})
	return encode(metricsHeader, mapping("features", root))
}

// DecodeMetrics parses a metrics document.
func DecodeMetrics(data []byte) (map[string]FeatureMetrics, error) {
	var doc struct {
		Features map[string]FeatureMetrics `yaml:"features"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc.Features, nil
}

// FeatureCoverage is the coverage roll-up of one feature.
type FeatureCoverage struct {
	Lines    int     `yaml:"lines" json:"lines"`
	Hits     int     `yaml:"hits" json:"hits"`
	Misses   int     `yaml:"misses" json:"misses"`
	Coverage float64 `yaml:"coverage" json:"coverage"`
}

// EncodeCoverage renders .feature_map/test-coverage.yml.
func EncodeCoverage(commit string, byFeature map[string]FeatureCoverage) ([]byte, error) {
	root := sortedMapping(byFeature, func(c FeatureCoverage) *yaml.Node {
		return mapping(
			"lines", integer(c.Lines),
			"hits", integer(c.Hits),
			"misses", integer(c.Misses),
			"coverage", float(output.RoundFloat(c.Coverage)),
		)
	})
	return encode(coverageHeader, mapping("commit", str(commit), "features", root))
}

// DecodeCoverage parses a coverage document.
func DecodeCoverage(data []byte) (string, map[string]FeatureCoverage, error) {
	var doc struct {
		Commit   string                     `yaml:"commit"`
		Features map[string]FeatureCoverage `yaml:"features"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return "", nil, err
	}
	return doc.Commit, doc.Features, nil
}

// EncodePyramid renders .feature_map/test-pyramid.yml.
func EncodePyramid(byFeature map[string]pyramid.Pyramid) ([]byte, error) {
	root := sortedMapping(byFeature, func(p pyramid.Pyramid) *yaml.Node {
		n := mapping()
		for _, level := range pyramid.Levels {
			c := p[level]
			n.Content = append(n.Content,
				str(string(level)+"_count"), integer(c.Count),
				str(string(level)+"_pending"), integer(c.Pending),
			)
		}
		return n
	})
	return encode(pyramidHeader, mapping("features", root))
}

// DecodePyramid parses a pyramid document.
func DecodePyramid(data []byte) (map[string]pyramid.Pyramid, error) {
	var doc struct {
		Features map[string]map[string]int `yaml:"features"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	out := make(map[string]pyramid.Pyramid, len(doc.Features))
	for name, counts := range doc.Features {
		p := make(pyramid.Pyramid, len(pyramid.Levels))
		for _, level := range pyramid.Levels {
			p[level] = pyramid.Count{
				Count:   counts[string(level)+"_count"],
				Pending: counts[string(level)+"_pending"],
			}
		}
		out[name] = p
	}
	return out, nil
}
