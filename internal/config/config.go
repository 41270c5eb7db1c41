package config

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"

	"featuremap/internal/paths"
)

// Config represents .feature_map/config.yml
type Config struct {
	Include           []string                `json:"include" mapstructure:"include"`
	Exclude           []string                `json:"exclude" mapstructure:"exclude"`
	UnassignedGlobs   []string                `json:"unassignedGlobs" mapstructure:"unassigned_globs"`
	DefinitionsDir    string                  `json:"definitionsDir" mapstructure:"definitions_dir"`
	MarkerFile        string                  `json:"markerFile" mapstructure:"marker_file"`
	Annotation        AnnotationConfig        `json:"annotation" mapstructure:"annotation"`
	Codeowners        CodeownersConfig        `json:"codeowners" mapstructure:"codeowners"`
	Cache             CacheConfig             `json:"cache" mapstructure:"cache"`
	Health            HealthConfig            `json:"health" mapstructure:"health"`
	TestCoverage      TestCoverageConfig      `json:"testCoverage" mapstructure:"test_coverage"`
	TestPyramid       TestPyramidConfig       `json:"testPyramid" mapstructure:"test_pyramid"`
	DocumentationSite DocumentationSiteConfig `json:"documentationSite" mapstructure:"documentation_site"`
	Logging           LoggingConfig           `json:"logging" mapstructure:"logging"`
}

// AnnotationConfig controls the comment annotation scanner
type AnnotationConfig struct {
	ScanLines int `json:"scanLines" mapstructure:"scan_lines"`
}

// CodeownersConfig controls team lookups through CODEOWNERS
type CodeownersConfig struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`
}

// CacheConfig controls the persisted resolution cache
type CacheConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Path    string `json:"path" mapstructure:"path"`
}

// HealthConfig holds one entry per health component
type HealthConfig struct {
	Components HealthComponentsConfig `json:"components" mapstructure:"components"`
}

// HealthComponentsConfig lists the three weighted components
type HealthComponentsConfig struct {
	TestCoverage         ComponentConfig `json:"testCoverage" mapstructure:"test_coverage"`
	CyclomaticComplexity ComponentConfig `json:"cyclomaticComplexity" mapstructure:"cyclomatic_complexity"`
	Encapsulation        ComponentConfig `json:"encapsulation" mapstructure:"encapsulation"`
}

// ComponentConfig configures one health component.
// MinimumVariance is the percent-of-max threshold; zero disables it.
type ComponentConfig struct {
	Weight          float64 `json:"weight" mapstructure:"weight"`
	ScoreThreshold  float64 `json:"scoreThreshold" mapstructure:"score_threshold"`
	MinimumVariance float64 `json:"minimumVariance" mapstructure:"minimum_variance"`
}

// TestCoverageConfig points at the coverage provider
type TestCoverageConfig struct {
	BaseURL  string `json:"baseUrl" mapstructure:"base_url"`
	Service  string `json:"service" mapstructure:"service"`
	Owner    string `json:"owner" mapstructure:"owner"`
	Repo     string `json:"repo" mapstructure:"repo"`
	TokenEnv string `json:"tokenEnv" mapstructure:"token_env"`
}

// TestPyramidConfig controls test-report path normalization
type TestPyramidConfig struct {
	PathPrefixes          []string `json:"pathPrefixes" mapstructure:"path_prefixes"`
	TestSuffixes          []string `json:"testSuffixes" mapstructure:"test_suffixes"`
	RegressionAssignments string   `json:"regressionAssignments" mapstructure:"regression_assignments"`
}

// DocumentationSiteConfig controls where the docs blob is written
type DocumentationSiteConfig struct {
	Output string `json:"output" mapstructure:"output"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Include:         []string{"**/*"},
		Exclude:         []string{".feature_map/**", "node_modules/**", "vendor/**", "tmp/**"},
		UnassignedGlobs: []string{},
		DefinitionsDir:  filepath.ToSlash(filepath.Join(paths.DataDirName, paths.DefinitionsDir)),
		MarkerFile:      ".feature",
		Annotation:      AnnotationConfig{ScanLines: 10},
		Codeowners:      CodeownersConfig{Enabled: false},
		Cache: CacheConfig{
			Enabled: true,
			Path:    filepath.ToSlash(filepath.Join(paths.DataDirName, paths.CacheFile)),
		},
		Health: HealthConfig{
			Components: HealthComponentsConfig{
				TestCoverage:         ComponentConfig{Weight: 70, ScoreThreshold: 95},
				CyclomaticComplexity: ComponentConfig{Weight: 15, ScoreThreshold: 50, MinimumVariance: 90},
				Encapsulation:        ComponentConfig{Weight: 15, ScoreThreshold: 50, MinimumVariance: 90},
			},
		},
		TestCoverage: TestCoverageConfig{
			BaseURL:  "https://api.codecov.io",
			Service:  "github",
			TokenEnv: "CODECOV_API_TOKEN",
		},
		TestPyramid: TestPyramidConfig{
			PathPrefixes: []string{"spec/", "test/", "tests/", "app/", "lib/", "src/", "__tests__/"},
			TestSuffixes: []string{"_spec", "_test", ".spec", ".test"},
		},
		DocumentationSite: DocumentationSiteConfig{
			Output: filepath.ToSlash(filepath.Join(paths.DataDirName, paths.DocsOutputSubdir, paths.DocsBlobFile)),
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// LoadConfig loads configuration from .feature_map/config.yml.
// A missing file yields DefaultConfig; keys absent from the file keep their defaults.
func LoadConfig(repoRoot string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(paths.DataDir(repoRoot))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return DefaultConfig(), nil
		}
		return nil, &ConfigError{Field: "config.yml", Message: err.Error()}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &ConfigError{Field: "config.yml", Message: err.Error()}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("include", d.Include)
	v.SetDefault("exclude", d.Exclude)
	v.SetDefault("unassigned_globs", d.UnassignedGlobs)
	v.SetDefault("definitions_dir", d.DefinitionsDir)
	v.SetDefault("marker_file", d.MarkerFile)
	v.SetDefault("annotation.scan_lines", d.Annotation.ScanLines)
	v.SetDefault("codeowners.enabled", d.Codeowners.Enabled)
	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.path", d.Cache.Path)

	components := map[string]ComponentConfig{
		"test_coverage":         d.Health.Components.TestCoverage,
		"cyclomatic_complexity": d.Health.Components.CyclomaticComplexity,
		"encapsulation":         d.Health.Components.Encapsulation,
	}
	for name, c := range components {
		prefix := "health.components." + name + "."
		v.SetDefault(prefix+"weight", c.Weight)
		v.SetDefault(prefix+"score_threshold", c.ScoreThreshold)
		v.SetDefault(prefix+"minimum_variance", c.MinimumVariance)
	}

	v.SetDefault("test_coverage.base_url", d.TestCoverage.BaseURL)
	v.SetDefault("test_coverage.service", d.TestCoverage.Service)
	v.SetDefault("test_coverage.token_env", d.TestCoverage.TokenEnv)
	v.SetDefault("test_pyramid.path_prefixes", d.TestPyramid.PathPrefixes)
	v.SetDefault("test_pyramid.test_suffixes", d.TestPyramid.TestSuffixes)
	v.SetDefault("documentation_site.output", d.DocumentationSite.Output)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.level", d.Logging.Level)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.MarkerFile == "" {
		return &ConfigError{Field: "marker_file", Message: "must not be empty"}
	}
	if c.Annotation.ScanLines <= 0 {
		return &ConfigError{Field: "annotation.scan_lines", Message: "must be positive"}
	}

	components := []struct {
		name string
		cfg  ComponentConfig
	}{
		{"test_coverage", c.Health.Components.TestCoverage},
		{"cyclomatic_complexity", c.Health.Components.CyclomaticComplexity},
		{"encapsulation", c.Health.Components.Encapsulation},
	}
	for _, comp := range components {
		field := "health.components." + comp.name
		if comp.cfg.Weight < 0 {
			return &ConfigError{Field: field + ".weight", Message: "must not be negative"}
		}
		if comp.cfg.ScoreThreshold <= 0 {
			return &ConfigError{Field: field + ".score_threshold", Message: "must be positive"}
		}
		if comp.cfg.MinimumVariance < 0 || comp.cfg.MinimumVariance > 100 {
			return &ConfigError{Field: field + ".minimum_variance", Message: fmt.Sprintf("must be within [0,100], got %v", comp.cfg.MinimumVariance)}
		}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
