// Package scoring normalizes per-feature metric scores into percentiles and
// composes them into a health score.
package scoring

import (
	"math"
	"sort"
)

// Result is one feature's standing within a metric's distribution.
type Result struct {
	Percentile   float64 `json:"percentile"`
	PercentOfMax float64 `json:"percent_of_max"`
	Score        float64 `json:"score"`
}

// Distribution is the collection of one metric's feature-level scores.
type Distribution struct {
	sorted []float64
}

// NewDistribution collects scores; NaN values are treated as missing.
func NewDistribution(scores []float64) *Distribution {
	sorted := make([]float64, 0, len(scores))
	for _, s := range scores {
		if !math.IsNaN(s) {
			sorted = append(sorted, s)
		}
	}
	sort.Float64s(sorted)
	return &Distribution{sorted: sorted}
}

// DistributionOf builds a distribution from a feature -> score map.
func DistributionOf(samples map[string]float64) *Distribution {
	scores := make([]float64, 0, len(samples))
	for _, s := range samples {
		scores = append(scores, s)
	}
	return NewDistribution(scores)
}

// Len is the number of scores.
func (d *Distribution) Len() int { return len(d.sorted) }

// Max is the largest score, or 0 when empty.
func (d *Distribution) Max() float64 {
	if len(d.sorted) == 0 {
		return 0
	}
	return d.sorted[len(d.sorted)-1]
}

// Rank places score in the distribution using the midpoint tie convention:
// 100 * (below + 0.5*equal) / N. A unique maximum therefore never reaches 100.
func (d *Distribution) Rank(score float64) Result {
	n := len(d.sorted)
	if n == 0 {
		return Result{Score: score}
	}

	below := sort.SearchFloat64s(d.sorted, score)
	upper := sort.Search(n, func(i int) bool { return d.sorted[i] > score })
	equal := upper - below

	r := Result{
		Percentile: 100 * (float64(below) + 0.5*float64(equal)) / float64(n),
		Score:      score,
	}
	if max := d.Max(); max != 0 {
		r.PercentOfMax = math.Round(100 * score / max)
	}
	return r
}

// Percentile ranks target within scores.
func Percentile(scores []float64, target float64) Result {
	return NewDistribution(scores).Rank(target)
}
