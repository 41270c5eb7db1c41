package engine

import (
	"context"
	"fmt"
	"os"
	"time"

	"featuremap/internal/coverage"
	ferrors "featuremap/internal/errors"
	"featuremap/internal/metrics"
	"featuremap/internal/paths"
	"featuremap/internal/scoring"
	"featuremap/internal/snapshot"
)

// healthRetention bounds how long overall scores are kept in the cache.
const healthRetention = 180 * 24 * time.Hour

// CollectMetrics sums per-file metrics for every feature and writes
// .feature_map/metrics.yml.
func (s *Session) CollectMetrics(ctx context.Context) (map[string]snapshot.FeatureMetrics, error) {
	byFeature, err := s.FilesByFeature(ctx)
	if err != nil {
		return nil, err
	}
	collected, err := metrics.NewAggregator(s.root, s.collector, s.logger).Collect(ctx, byFeature)
	if err != nil {
		return nil, err
	}

	data, err := snapshot.EncodeMetrics(collected)
	if err != nil {
		return nil, fmt.Errorf("encoding metrics: %w", err)
	}
	if _, err := snapshot.Write(s.dataFile(paths.MetricsFile), data); err != nil {
		return nil, err
	}
	return collected, nil
}

// Coverage fetches the coverage report for commit and writes the per-feature
// roll-up to .feature_map/test-coverage.yml.
func (s *Session) Coverage(ctx context.Context, commit string) (map[string]snapshot.FeatureCoverage, error) {
	tc := s.cfg.TestCoverage
	token := ""
	if tc.TokenEnv != "" {
		token = os.Getenv(tc.TokenEnv)
	}
	if token == "" {
		s.logger.Warn("No coverage API token set; the request is unauthenticated", "env", tc.TokenEnv)
	}

	client := coverage.NewClient(coverage.ClientConfig{
		BaseURL: tc.BaseURL,
		Service: tc.Service,
		Owner:   tc.Owner,
		Repo:    tc.Repo,
		Token:   token,
	}, s.httpClient, s.logger)

	stats, err := client.FetchFileStats(ctx, commit)
	if err != nil {
		return nil, err
	}
	byFeature, err := s.FilesByFeature(ctx)
	if err != nil {
		return nil, err
	}
	rollup := coverage.ForFeatures(byFeature, stats)

	data, err := snapshot.EncodeCoverage(commit, rollup)
	if err != nil {
		return nil, fmt.Errorf("encoding coverage: %w", err)
	}
	if _, err := snapshot.Write(s.dataFile(paths.CoverageFile), data); err != nil {
		return nil, err
	}
	return rollup, nil
}

// Health scores every feature from freshly collected metrics and the stored
// coverage document, then writes .feature_map/health.json. Features missing
// from the coverage document are left out of the coverage distribution.
func (s *Session) Health(ctx context.Context) (*snapshot.HealthDocument, error) {
	reg, err := s.Features()
	if err != nil {
		return nil, err
	}
	collected, err := s.CollectMetrics(ctx)
	if err != nil {
		return nil, err
	}
	byFeature, err := s.FilesByFeature(ctx)
	if err != nil {
		return nil, err
	}
	cov, err := s.storedCoverage()
	if err != nil {
		return nil, err
	}

	samples := HealthSamples(byFeature, collected, cov)
	doc := &snapshot.HealthDocument{
		Features: scoring.ComputeHealth(reg.Names(), samples, s.cfg.Health.Components),
	}

	data, err := snapshot.EncodeHealth(*doc)
	if err != nil {
		return nil, fmt.Errorf("encoding health: %w", err)
	}
	if _, err := snapshot.Write(s.dataFile(paths.HealthFile), data); err != nil {
		return nil, err
	}
	s.recordHealth(doc)
	return doc, nil
}

// HealthSamples derives the raw feature-level score of each metric:
// coverage percentage, summed cyclomatic complexity and files per line of
// code. Features without code are left out of the code metrics.
func HealthSamples(byFeature map[string][]string, collected map[string]snapshot.FeatureMetrics, cov map[string]snapshot.FeatureCoverage) scoring.Samples {
	samples := scoring.Samples{
		scoring.MetricCyclomaticComplexity: {},
		scoring.MetricEncapsulation:        {},
	}
	for name, m := range collected {
		if m.LinesOfCode <= 0 {
			continue
		}
		samples[scoring.MetricCyclomaticComplexity][name] = float64(m.CyclomaticComplexity)
		samples[scoring.MetricEncapsulation][name] = float64(len(byFeature[name])) / float64(m.LinesOfCode)
	}
	if cov != nil {
		samples[scoring.MetricTestCoverage] = make(map[string]float64, len(cov))
		for name, c := range cov {
			samples[scoring.MetricTestCoverage][name] = c.Coverage
		}
	}
	return samples
}

func (s *Session) storedCoverage() (map[string]snapshot.FeatureCoverage, error) {
	data, err := os.ReadFile(s.dataFile(paths.CoverageFile))
	if os.IsNotExist(err) {
		s.logger.Info("No coverage document found; run `featuremap coverage` first to score coverage")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	_, cov, err := snapshot.DecodeCoverage(data)
	if err != nil {
		return nil, ferrors.New(ferrors.ConfigInvalid, "parsing "+paths.CoverageFile, err)
	}
	return cov, nil
}

func (s *Session) recordHealth(doc *snapshot.HealthDocument) {
	store, err := s.cacheStore()
	if err != nil || store == nil {
		return
	}
	overall := make(map[string]float64, len(doc.Features))
	for name, h := range doc.Features {
		overall[name] = h.Overall
	}
	if err := store.DB().RecordHealth(s.runID, overall, s.now()); err != nil {
		s.logger.Warn("Failed to record health history", "error", err.Error())
		return
	}
	if pruned, err := store.DB().PruneHealthHistory(healthRetention); err != nil {
		s.logger.Warn("Failed to prune health history", "error", err.Error())
	} else if pruned > 0 {
		s.logger.Debug("Pruned health history", "records", pruned)
	}
}

// HealthHistory returns the recorded overall scores of a feature, newest first.
func (s *Session) HealthHistory(name string, limit int) ([]HealthPoint, error) {
	store, err := s.cacheStore()
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, ferrors.Newf(ferrors.ConfigInvalid, "health history needs cache.enabled")
	}
	records, err := store.DB().HealthHistory(name, limit)
	if err != nil {
		return nil, err
	}
	points := make([]HealthPoint, len(records))
	for i, r := range records {
		points[i] = HealthPoint{RunID: r.RunID, Overall: r.Overall, RecordedAt: r.RecordedAt.Format("2006-01-02T15:04:05Z07:00")}
	}
	return points, nil
}

// HealthPoint is one entry of a feature's health history.
type HealthPoint struct {
	RunID      string  `json:"runId"`
	Overall    float64 `json:"overall"`
	RecordedAt string  `json:"recordedAt"`
}
