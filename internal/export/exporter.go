// Package export writes health scores as Prometheus textfile gauges for
// node_exporter's textfile collector.
package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"featuremap/internal/scoring"
)

const namespace = "featuremap"

// Component label values.
const (
	ComponentOverall = "overall"
)

// Exporter collects health gauges into its own registry.
type Exporter struct {
	registry   *prometheus.Registry
	score      *prometheus.GaugeVec
	percentile *prometheus.GaugeVec
}

// NewExporter creates an exporter with an empty registry.
func NewExporter() *Exporter {
	e := &Exporter{
		registry: prometheus.NewRegistry(),
		score: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "health_score",
			Help:      "Health points awarded to a feature per component, and overall.",
		}, []string{"feature", "component"}),
		percentile: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "metric_percentile",
			Help:      "Percentile rank of a feature's raw metric among all features.",
		}, []string{"feature", "metric"}),
	}
	e.registry.MustRegister(e.score, e.percentile)
	return e
}

// Observe records the health of every feature.
func (e *Exporter) Observe(health map[string]scoring.FeatureHealth) {
	for feature, h := range health {
		e.score.WithLabelValues(feature, scoring.MetricTestCoverage).Set(h.TestCoverage.HealthScore)
		e.score.WithLabelValues(feature, scoring.MetricCyclomaticComplexity).Set(h.CyclomaticComplexity.HealthScore)
		e.score.WithLabelValues(feature, scoring.MetricEncapsulation).Set(h.Encapsulation.HealthScore)
		e.score.WithLabelValues(feature, ComponentOverall).Set(h.Overall)
		for metric, r := range h.Percentiles {
			e.percentile.WithLabelValues(feature, metric).Set(r.Percentile)
		}
	}
}

// Registry exposes the gatherer.
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

// WriteTextfile writes the gathered gauges to path atomically.
func (e *Exporter) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create textfile directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, e.registry); err != nil {
		return fmt.Errorf("failed to write textfile %s: %w", path, err)
	}
	return nil
}
