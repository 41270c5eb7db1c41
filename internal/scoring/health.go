package scoring

import (
	"sort"

	"featuremap/internal/config"
)

// Metric names used in health documents.
const (
	MetricTestCoverage         = "test_coverage"
	MetricCyclomaticComplexity = "cyclomatic_complexity"
	MetricEncapsulation        = "encapsulation"
)

// ComponentInput is everything needed to score one component.
type ComponentInput struct {
	AwardablePoints       float64
	Score                 float64
	ScoreThreshold        float64
	PercentOfMax          float64
	PercentOfMaxThreshold float64 // zero disables the percent-of-max branch
}

// Component is a scored health component.
type Component struct {
	AwardablePoints       float64 `json:"awardable_points"`
	HealthScore           float64 `json:"health_score"`
	CloseToMaximumScore   bool    `json:"close_to_maximum_score"`
	ExceedsScoreThreshold bool    `json:"exceeds_score_threshold"`
}

// Compose awards full points when the metric's spread is too small to matter
// or the score clears its threshold, and linear partial credit otherwise.
func Compose(in ComponentInput) Component {
	c := Component{
		AwardablePoints:       in.AwardablePoints,
		CloseToMaximumScore:   in.PercentOfMaxThreshold > 0 && in.PercentOfMax >= in.PercentOfMaxThreshold,
		ExceedsScoreThreshold: in.Score >= in.ScoreThreshold,
	}

	switch {
	case c.CloseToMaximumScore || c.ExceedsScoreThreshold:
		c.HealthScore = in.AwardablePoints
	case in.ScoreThreshold > 0 && in.Score > 0:
		c.HealthScore = in.Score / in.ScoreThreshold * in.AwardablePoints
	}
	return c
}

// ComposeCoverage scores the coverage component, which only has the
// threshold branch.
func ComposeCoverage(points, score, threshold float64) Component {
	return Compose(ComponentInput{
		AwardablePoints: points,
		Score:           score,
		ScoreThreshold:  threshold,
	})
}

// FeatureHealth is the health document entry of one feature.
type FeatureHealth struct {
	TestCoverage         Component         `json:"test_coverage"`
	CyclomaticComplexity Component         `json:"cyclomatic_complexity"`
	Encapsulation        Component         `json:"encapsulation"`
	Percentiles          map[string]Result `json:"percentiles"`
	Overall              float64           `json:"overall"`
}

// Samples maps a metric name to feature -> raw feature-level score. A feature
// absent from a metric is excluded from that distribution.
type Samples map[string]map[string]float64

// ComputeHealth scores every named feature. The raw feature-level score feeds
// each component; percent-of-max comes from the metric's distribution.
func ComputeHealth(names []string, samples Samples, cfg config.HealthComponentsConfig) map[string]FeatureHealth {
	dists := make(map[string]*Distribution, len(samples))
	for metric, byFeature := range samples {
		dists[metric] = DistributionOf(byFeature)
	}

	// A feature without a sample is not ranked; its components score zero.
	rank := func(metric, feature string) (Result, bool) {
		score, ok := samples[metric][feature]
		if !ok {
			return Result{}, false
		}
		return dists[metric].Rank(score), true
	}

	sorted := append([]string(nil), names...)
	sort.Strings(sorted)

	out := make(map[string]FeatureHealth, len(sorted))
	for _, name := range sorted {
		percentiles := make(map[string]Result, 3)
		ranked := func(metric string) Result {
			r, ok := rank(metric, name)
			if ok {
				percentiles[metric] = r
			}
			return r
		}
		cov := ranked(MetricTestCoverage)
		cc := ranked(MetricCyclomaticComplexity)
		enc := ranked(MetricEncapsulation)

		h := FeatureHealth{
			TestCoverage: ComposeCoverage(cfg.TestCoverage.Weight, cov.Score, cfg.TestCoverage.ScoreThreshold),
			CyclomaticComplexity: Compose(ComponentInput{
				AwardablePoints:       cfg.CyclomaticComplexity.Weight,
				Score:                 cc.Score,
				ScoreThreshold:        cfg.CyclomaticComplexity.ScoreThreshold,
				PercentOfMax:          cc.PercentOfMax,
				PercentOfMaxThreshold: cfg.CyclomaticComplexity.MinimumVariance,
			}),
			Encapsulation: Compose(ComponentInput{
				AwardablePoints:       cfg.Encapsulation.Weight,
				Score:                 enc.Score,
				ScoreThreshold:        cfg.Encapsulation.ScoreThreshold,
				PercentOfMax:          enc.PercentOfMax,
				PercentOfMaxThreshold: cfg.Encapsulation.MinimumVariance,
			}),
			Percentiles: percentiles,
		}
		h.Overall = h.TestCoverage.HealthScore + h.CyclomaticComplexity.HealthScore + h.Encapsulation.HealthScore
		out[name] = h
	}
	return out
}
