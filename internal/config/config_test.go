package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, root, body string) {
	t.Helper()
	dir := filepath.Join(root, ".feature_map")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(body), 0644))
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, ".feature", cfg.MarkerFile)
	assert.Equal(t, 10, cfg.Annotation.ScanLines)
	assert.Equal(t, ".feature_map/definitions", cfg.DefinitionsDir)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 70.0, cfg.Health.Components.TestCoverage.Weight)
	assert.Zero(t, cfg.Health.Components.TestCoverage.MinimumVariance)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_OverridesKeepDefaults(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, `
include:
  - "app/**/*.rb"
exclude:
  - "app/legacy/**"
health:
  components:
    cyclomatic_complexity:
      weight: 20
test_pyramid:
  regression_assignments: ../regression/.feature_map/assignments.yml
`)

	cfg, err := LoadConfig(root)
	require.NoError(t, err)

	assert.Equal(t, []string{"app/**/*.rb"}, cfg.Include)
	assert.Equal(t, []string{"app/legacy/**"}, cfg.Exclude)
	assert.Equal(t, 20.0, cfg.Health.Components.CyclomaticComplexity.Weight)
	assert.Equal(t, 50.0, cfg.Health.Components.CyclomaticComplexity.ScoreThreshold)
	assert.Equal(t, 90.0, cfg.Health.Components.CyclomaticComplexity.MinimumVariance)
	assert.Equal(t, ".feature", cfg.MarkerFile)
	assert.Equal(t, "../regression/.feature_map/assignments.yml", cfg.TestPyramid.RegressionAssignments)
	assert.Contains(t, cfg.TestPyramid.TestSuffixes, "_spec")
}

func TestLoadConfig_Invalid(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, `
health:
  components:
    encapsulation:
      score_threshold: 0
`)

	_, err := LoadConfig(root)
	require.Error(t, err)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "health.components.encapsulation.score_threshold", cfgErr.Field)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"empty marker", func(c *Config) { c.MarkerFile = "" }, "marker_file"},
		{"zero scan lines", func(c *Config) { c.Annotation.ScanLines = 0 }, "annotation.scan_lines"},
		{"negative weight", func(c *Config) { c.Health.Components.TestCoverage.Weight = -1 }, "health.components.test_coverage.weight"},
		{"variance above 100", func(c *Config) { c.Health.Components.Encapsulation.MinimumVariance = 101 }, "health.components.encapsulation.minimum_variance"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestConfigError_Error(t *testing.T) {
	err := &ConfigError{Field: "marker_file", Message: "must not be empty"}
	assert.Equal(t, "config error in field 'marker_file': must not be empty", err.Error())
}
