package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"featuremap/internal/engine"
	"featuremap/internal/output"
	"featuremap/internal/snapshot"
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Collect per-feature code metrics into .feature_map/metrics.yml",
	Long: `Sum ABC size, lines of code and cyclomatic complexity over every file of
each feature and gather TODO comments. Complexity needs a cgo build; without
it only TODOs are collected.`,
	Args: cobra.NoArgs,
	RunE: runMetrics,
}

var coverageCommit string

var coverageCmd = &cobra.Command{
	Use:   "coverage",
	Short: "Fetch test coverage for a commit into .feature_map/test-coverage.yml",
	Long: `Fetch the per-file coverage report of a commit from the configured
coverage provider and roll it up per feature. The API token is read from the
environment variable named by test_coverage.token_env.

Examples:
  featuremap coverage --commit $(git rev-parse HEAD)`,
	Args: cobra.NoArgs,
	RunE: runCoverage,
}

func init() {
	coverageCmd.Flags().StringVar(&coverageCommit, "commit", "", "Commit SHA to fetch coverage for")
	_ = coverageCmd.MarkFlagRequired("commit")
	rootCmd.AddCommand(metricsCmd)
	rootCmd.AddCommand(coverageCmd)
}

func runMetrics(cmd *cobra.Command, args []string) error {
	return withSession(func(ctx context.Context, s *engine.Session) error {
		collected, err := s.CollectMetrics(ctx)
		if err != nil {
			return err
		}
		return printResult(os.Stdout, map[string]interface{}{"features": collected}, func(w io.Writer) {
			humanMetrics(w, collected)
		})
	})
}

func humanMetrics(w io.Writer, collected map[string]snapshot.FeatureMetrics) {
	names := make([]string, 0, len(collected))
	for name := range collected {
		names = append(names, name)
	}
	sort.Strings(names)
	_, _ = fmt.Fprintf(w, "%-30s %8s %6s %10s %6s\n", "FEATURE", "LOC", "CC", "ABC", "TODOS")
	for _, name := range names {
		m := collected[name]
		_, _ = fmt.Fprintf(w, "%-30s %8d %6d %10s %6d\n", name, m.LinesOfCode, m.CyclomaticComplexity,
			output.FormatFloat(m.ABCSize), len(m.TodoLocations))
	}
}

func runCoverage(cmd *cobra.Command, args []string) error {
	return withSession(func(ctx context.Context, s *engine.Session) error {
		rollup, err := s.Coverage(ctx, coverageCommit)
		if err != nil {
			return err
		}
		return printResult(os.Stdout, map[string]interface{}{"commit": coverageCommit, "features": rollup}, func(w io.Writer) {
			names := make([]string, 0, len(rollup))
			for name := range rollup {
				names = append(names, name)
			}
			sort.Strings(names)
			_, _ = fmt.Fprintf(w, "Coverage at %s\n", coverageCommit)
			for _, name := range names {
				c := rollup[name]
				_, _ = fmt.Fprintf(w, "  %-30s %7s%% (%d/%d lines)\n", name, output.FormatFloat(c.Coverage), c.Hits, c.Lines)
			}
		})
	})
}
