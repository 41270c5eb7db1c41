package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"featuremap/internal/config"
	ferrors "featuremap/internal/errors"
	"featuremap/internal/metrics"
	"featuremap/internal/paths"
	"featuremap/internal/pyramid"
	"featuremap/internal/resolver"
	"featuremap/internal/snapshot"
	"featuremap/internal/testutil"
)

type stubCollector struct{}

func (stubCollector) FileMetrics(_ context.Context, file string) (*metrics.FileMetrics, error) {
	if !strings.HasSuffix(file, ".rb") {
		return nil, nil
	}
	return &metrics.FileMetrics{ABCSize: 1, LinesOfCode: 10, CyclomaticComplexity: 2}, nil
}

// newRepo lays out two features claimed through every resolver kind.
func newRepo(t *testing.T) string {
	t.Helper()
	return testutil.Repo(t, map[string]string{
		".feature_map/definitions/auth.yml":    "name: Auth\ndescription: Sign in\n",
		".feature_map/definitions/billing.yml": "name: Billing\nassigned_globs:\n  - app/billing/**/*.rb\n",
		"app/billing/invoice.rb":               "class Invoice\n  # TODO: tax rules\nend\n",
		"app/auth/.feature":                    "Auth\n",
		"app/auth/session.rb":                  "class Session\nend\n",
		"app/auth/admin/.feature":              "Billing\n",
		"app/auth/admin/panel.rb":              "class Panel\nend\n",
		"lib/tools.rb":                         "# @feature Auth\nmodule Tools\nend\n",
	})
}

func newSession(t *testing.T, root string, mutate func(*config.Config)) *Session {
	t.Helper()
	cfg := config.DefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	s, err := New(Options{Root: root, Config: cfg, Collector: stubCollector{}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestResolve(t *testing.T) {
	root := newRepo(t)
	s := newSession(t, root, nil)

	assigned, err := s.Resolve(context.Background())
	require.NoError(t, err)

	want := map[string][2]string{
		"app/billing/invoice.rb":  {"Billing", resolver.GlobDescription},
		"app/auth/session.rb":     {"Auth", resolver.DirectoryDescriptionFor(".feature")},
		"app/auth/.feature":       {"Auth", resolver.DirectoryDescriptionFor(".feature")},
		"app/auth/admin/panel.rb": {"Billing", resolver.DirectoryDescriptionFor(".feature")},
		"app/auth/admin/.feature": {"Billing", resolver.DirectoryDescriptionFor(".feature")},
		"lib/tools.rb":            {"Auth", resolver.AnnotationDescription},
	}
	require.Len(t, assigned, len(want))
	for file, w := range want {
		a, ok := assigned[file]
		require.True(t, ok, file)
		assert.Equal(t, w[0], a.Feature.Name, file)
		assert.Equal(t, w[1], a.Description, file)
	}

	byFeature, err := s.FilesByFeature(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"app/auth/.feature", "app/auth/session.rb", "lib/tools.rb"}, byFeature["Auth"])
}

func TestValidate(t *testing.T) {
	root := newRepo(t)
	ctx := context.Background()

	s := newSession(t, root, nil)
	_, err := s.Validate(ctx, ValidateOptions{})
	require.Error(t, err)
	assert.Equal(t, ferrors.Consistency, ferrors.CodeOf(err))
	assert.Contains(t, err.Error(), ".feature_map/assignments.yml is out of date")

	result, err := s.Validate(ctx, ValidateOptions{Autocorrect: true})
	require.NoError(t, err)
	assert.True(t, result.Written)
	assert.Equal(t, 6, result.Assigned)

	doc, err := snapshot.LoadAssignments(paths.DataFile(root, paths.AssignmentsFile))
	require.NoError(t, err)
	assert.Equal(t, "Billing", doc.Files["app/auth/admin/panel.rb"].Feature)

	// A fresh session hydrates from the persisted cache and agrees.
	again := newSession(t, root, nil)
	result, err = again.Validate(ctx, ValidateOptions{})
	require.NoError(t, err)
	assert.False(t, result.Written)
}

func TestValidate_ReportsEveryViolation(t *testing.T) {
	root := newRepo(t)
	testutil.WriteFile(t, root, "lib/orphan.rb", "module Orphan\nend\n")
	testutil.WriteFile(t, root, "app/billing/dup.rb", "# @feature Auth\nclass Dup\nend\n")

	s := newSession(t, root, func(c *config.Config) { c.Cache.Enabled = false })
	_, err := s.Validate(context.Background(), ValidateOptions{Autocorrect: true})
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, "- lib/orphan.rb")
	assert.Contains(t, msg, "app/billing/dup.rb")
	assert.Contains(t, msg, "declared features in multiple ways")

	// autocorrect still persists the snapshot
	_, statErr := os.Stat(paths.DataFile(root, paths.AssignmentsFile))
	assert.NoError(t, statErr)
}

func TestResolve_IncrementalCache(t *testing.T) {
	root := newRepo(t)
	ctx := context.Background()

	first := newSession(t, root, nil)
	_, err := first.Resolve(ctx)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	testutil.WriteFile(t, root, "app/auth/login.rb", "class Login\nend\n")
	testutil.WriteFile(t, root, "lib/tools.rb", "# @feature Billing\nmodule Tools\nend\n")

	second := newSession(t, root, nil)
	assigned, err := second.Resolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Auth", assigned["app/auth/login.rb"].Feature.Name)
	assert.Equal(t, "Billing", assigned["lib/tools.rb"].Feature.Name)
	assert.Len(t, assigned, 7)
}

func TestResolve_CachedMarkerOutsideInventory(t *testing.T) {
	root := newRepo(t)
	ctx := context.Background()
	onlyRuby := func(c *config.Config) { c.Include = []string{"app/**/*.rb"} }

	first := newSession(t, root, onlyRuby)
	assigned, err := first.Resolve(ctx)
	require.NoError(t, err)
	require.NotContains(t, assigned, "app/auth/.feature")
	assert.Equal(t, "Auth", assigned["app/auth/session.rb"].Feature.Name)
	require.NoError(t, first.Close())

	testutil.WriteFile(t, root, "app/auth/.feature", "Billing\n")

	second := newSession(t, root, onlyRuby)
	assigned, err = second.Resolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Billing", assigned["app/auth/session.rb"].Feature.Name)

	res, err := second.ForFile("app/auth/session.rb")
	require.NoError(t, err)
	require.NotNil(t, res.Feature)
	assert.Equal(t, "Billing", res.Feature.Name)
}

func TestReset_PicksUpDefinitionChanges(t *testing.T) {
	root := newRepo(t)
	ctx := context.Background()
	s := newSession(t, root, nil)

	_, err := s.Resolve(ctx)
	require.NoError(t, err)

	testutil.WriteFile(t, root, "app/search/index.rb", "class Index\nend\n")
	rel, err := s.NewFeature("Search", []string{"app/search/**/*.rb"})
	require.NoError(t, err)
	assert.Equal(t, ".feature_map/definitions/search.toml", rel)

	assigned, err := s.Resolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Search", assigned["app/search/index.rb"].Feature.Name)

	_, err = s.NewFeature("Search", nil)
	assert.Equal(t, ferrors.ConfigInvalid, ferrors.CodeOf(err))
}

func TestForFileAndForFeature(t *testing.T) {
	root := newRepo(t)
	s := newSession(t, root, nil)

	res, err := s.ForFile(filepath.Join(root, "lib", "tools.rb"))
	require.NoError(t, err)
	assert.Equal(t, "lib/tools.rb", res.File)
	require.NotNil(t, res.Feature)
	assert.Equal(t, "Auth", res.Feature.Name)
	assert.Equal(t, resolver.AnnotationDescription, res.Description)

	feat, err := s.ForFeature(context.Background(), "Billing")
	require.NoError(t, err)
	assert.Equal(t, []string{"app/auth/admin/.feature", "app/auth/admin/panel.rb", "app/billing/invoice.rb"}, feat.Files)

	_, err = s.ForFeature(context.Background(), "Nope")
	assert.Equal(t, ferrors.UnknownFeature, ferrors.CodeOf(err))
}

func TestApplyAssignments(t *testing.T) {
	root := newRepo(t)
	testutil.WriteFile(t, root, "app/misc/util.rb", "module Util\nend\n")
	csvPath := filepath.Join(t.TempDir(), "assignments.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(
		"app/misc/util.rb,Nope\n"+
			"app/misc/util.rb,Billing\n"+
			"lib/tools.rb,Billing\n"+
			"missing.rb,Auth\n"), 0644))

	s := newSession(t, root, nil)
	result, err := s.ApplyAssignments(context.Background(), csvPath)
	require.NoError(t, err)
	assert.Equal(t, &ApplyResult{Applied: 1, Skipped: 3}, result)

	data, err := os.ReadFile(filepath.Join(root, "app", "misc", "util.rb"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# @feature Billing\n"))

	res, err := s.ForFile("app/misc/util.rb")
	require.NoError(t, err)
	require.NotNil(t, res.Feature)
	assert.Equal(t, "Billing", res.Feature.Name)

	changed, err := s.RemoveAnnotation("lib/tools.rb")
	require.NoError(t, err)
	assert.True(t, changed)
	res, err = s.ForFile("lib/tools.rb")
	require.NoError(t, err)
	assert.Nil(t, res.Feature)
}

func TestCoverageAndHealth(t *testing.T) {
	root := newRepo(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"files":[
			{"name":"app/billing/invoice.rb","totals":{"lines":10,"hits":5,"misses":5}},
			{"name":"app/auth/session.rb","totals":{"lines":4,"hits":4,"misses":0}}
		]}`))
	}))
	defer srv.Close()
	t.Setenv("FEATUREMAP_TEST_TOKEN", "token-1")

	s := newSession(t, root, func(c *config.Config) {
		c.TestCoverage.BaseURL = srv.URL
		c.TestCoverage.Owner = "acme"
		c.TestCoverage.Repo = "shop"
		c.TestCoverage.TokenEnv = "FEATUREMAP_TEST_TOKEN"
	})
	ctx := context.Background()

	cov, err := s.Coverage(ctx, "abc123")
	require.NoError(t, err)
	assert.InDelta(t, 50.0, cov["Billing"].Coverage, 1e-9)
	assert.InDelta(t, 100.0, cov["Auth"].Coverage, 1e-9)

	doc, err := s.Health(ctx)
	require.NoError(t, err)
	require.Contains(t, doc.Features, "Auth")
	require.Contains(t, doc.Features, "Billing")

	auth := doc.Features["Auth"]
	assert.True(t, auth.TestCoverage.ExceedsScoreThreshold)
	assert.InDelta(t, 70.0, auth.TestCoverage.HealthScore, 1e-9)
	billing := doc.Features["Billing"]
	assert.False(t, billing.TestCoverage.ExceedsScoreThreshold)
	assert.InDelta(t, 50.0/95.0*70.0, billing.TestCoverage.HealthScore, 1e-9)
	for name, h := range doc.Features {
		assert.GreaterOrEqual(t, h.Overall, 0.0, name)
		assert.LessOrEqual(t, h.Overall, 100.0, name)
	}

	data, err := os.ReadFile(paths.DataFile(root, paths.HealthFile))
	require.NoError(t, err)
	var stored snapshot.HealthDocument
	require.NoError(t, json.Unmarshal(data, &stored))
	assert.Len(t, stored.Features, 2)

	metricsDoc, err := os.ReadFile(paths.DataFile(root, paths.MetricsFile))
	require.NoError(t, err)
	assert.Contains(t, string(metricsDoc), "invoice.rb:2")
	assert.Contains(t, string(metricsDoc), "tax rules")

	history, err := s.HealthHistory("Auth", 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, s.RunID(), history[0].RunID)
}

func TestHealthSamples(t *testing.T) {
	byFeature := map[string][]string{"A": {"a.rb", "b.rb"}, "Empty": {"README"}}
	collected := map[string]snapshot.FeatureMetrics{
		"A":     {LinesOfCode: 40, CyclomaticComplexity: 6},
		"Empty": {},
	}

	samples := HealthSamples(byFeature, collected, nil)
	assert.Equal(t, map[string]float64{"A": 6}, samples["cyclomatic_complexity"])
	assert.Equal(t, map[string]float64{"A": 0.05}, samples["encapsulation"])
	_, ok := samples["test_coverage"]
	assert.False(t, ok)
}

func TestTestPyramid(t *testing.T) {
	root := newRepo(t)
	testutil.WriteFile(t, root, "reports/unit.json", `[
		{"id": "./spec/auth/session_spec.rb[1:1]", "status": "passed"},
		{"id": "./spec/auth/session_spec.rb[1:2]", "status": "pending"},
		{"id": "./spec/billing/invoice_spec.rb[1:1]", "status": "failed"}
	]`)
	testutil.WriteFile(t, root, "reports/integration.json", `{"testResults": [
		{"name": "test/billing/invoice.test.rb", "assertionResults": [{"status": "passed"}, {"status": "skipped"}]}
	]}`)

	s := newSession(t, root, func(c *config.Config) { c.Exclude = append(c.Exclude, "reports/**") })
	built, err := s.TestPyramid(context.Background(), PyramidReports{
		Unit:        "reports/unit.json",
		Integration: "reports/integration.json",
	})
	require.NoError(t, err)

	assert.Equal(t, pyramid.Count{Count: 2, Pending: 1}, built["Auth"][pyramid.Unit])
	assert.Equal(t, pyramid.Count{Count: 1}, built["Billing"][pyramid.Unit])
	assert.Equal(t, pyramid.Count{Count: 2, Pending: 1}, built["Billing"][pyramid.Integration])
	assert.Equal(t, pyramid.Count{}, built["Auth"][pyramid.Regression])

	_, err = os.Stat(paths.DataFile(root, paths.PyramidFile))
	assert.NoError(t, err)
}

func TestDocs(t *testing.T) {
	root := newRepo(t)
	s := newSession(t, root, nil)
	ctx := context.Background()

	_, err := s.Validate(ctx, ValidateOptions{Autocorrect: true})
	require.NoError(t, err)

	target, err := s.Docs(ctx)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, ".feature_map", "docs", "feature-map-config.js"), target)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	blob := string(data)
	require.True(t, strings.HasPrefix(blob, "window.FEATURE_MAP_CONFIG = {"))
	require.True(t, strings.HasSuffix(blob, ";\n"))

	var doc DocsDocument
	payload := strings.TrimSuffix(strings.TrimPrefix(blob, "window.FEATURE_MAP_CONFIG = "), ";\n")
	require.NoError(t, json.Unmarshal([]byte(payload), &doc))
	require.Contains(t, doc.Features, "Auth")
	assert.Equal(t, "Sign in", doc.Features["Auth"].Description)
	require.NotNil(t, doc.Features["Billing"].Assignments)
	assert.Contains(t, doc.Features["Billing"].Assignments.Files, "app/billing/invoice.rb")
	assert.Nil(t, doc.Features["Auth"].Health)
}
